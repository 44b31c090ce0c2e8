// Copyright 2025 The Procdog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jlevy/procdog/dist"
)

var (
	buildSource     string
	buildOut        string
	buildXz         bool
	buildFormula    bool
	buildGPGKey     string
	buildGPGPass    string

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Produce the release artifact set",
		Long: `Build derives the metadata record from the about manifest, then
produces the release artifacts under the output directory:

  metadata.json   the metadata record
  METADATA        the same record as a control-style stanza
  <name>-<ver>.tar.gz   the source tarball (or .tar.xz with --xz)
  CHECKSUMS       digests of the tarball
  <name>.rb       a Homebrew formula (with --formula)
  CHECKSUMS.asc   a detached signature (with --gpg-key)

The record is derived before any artifact work starts, so a bad
manifest fails the run with nothing half-written.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildSource, "source", "s", ".", "Source tree to pack")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "dist", "Output directory")
	buildCmd.Flags().BoolVar(&buildXz, "xz", false, "Compress the tarball with xz instead of gzip")
	buildCmd.Flags().BoolVar(&buildFormula, "formula", false, "Also write a Homebrew formula")
	buildCmd.Flags().StringVar(&buildGPGKey, "gpg-key", "", "Path to GPG private key for signing")
	buildCmd.Flags().StringVar(&buildGPGPass, "gpg-passphrase", "", "GPG key passphrase")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	rec, err := dist.BuildFromFile(manifestPath)
	if err != nil {
		return err
	}
	logrus.Infof("Building release %s %s", rec.Name, rec.Version)

	if err := os.MkdirAll(buildOut, 0755); err != nil {
		return err
	}

	jsonPath := filepath.Join(buildOut, "metadata.json")
	if err := rec.WriteJSON(jsonPath); err != nil {
		return err
	}
	logrus.Infof("Wrote %s", jsonPath)

	metaPath := filepath.Join(buildOut, "METADATA")
	if err := rec.WriteMetadata(metaPath); err != nil {
		return err
	}
	logrus.Infof("Wrote %s", metaPath)

	tarPath := filepath.Join(buildOut, rec.TarballName(buildXz))
	if err := rec.BuildArchive(buildSource, tarPath); err != nil {
		return err
	}
	logrus.Infof("Wrote %s", tarPath)

	tarball, err := dist.ChecksumFile(tarPath)
	if err != nil {
		return err
	}
	logrus.Debugf("Tarball sha256 %s", tarball.SHA256)

	sumPath := filepath.Join(buildOut, "CHECKSUMS")
	if err := dist.WriteChecksums(sumPath, []*dist.Artifact{tarball}); err != nil {
		return err
	}
	logrus.Infof("Wrote %s", sumPath)

	if buildFormula {
		rbPath := filepath.Join(buildOut, rec.Name+".rb")
		if err := rec.WriteFormula(rbPath, tarball); err != nil {
			return err
		}
		logrus.Infof("Wrote %s", rbPath)
	}

	if buildGPGKey != "" {
		signer, err := dist.NewSigner(buildGPGKey, buildGPGPass)
		if err != nil {
			return err
		}
		if err := signer.SignFile(sumPath, sumPath+".asc"); err != nil {
			return err
		}
		logrus.Infof("Wrote %s.asc", sumPath)
	}

	logrus.Infof("Release %s complete", rec.Version)
	return nil
}
