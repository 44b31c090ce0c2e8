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

// Command procdog-dist assembles release metadata and artifacts for
// procdog.  It is a build-time tool; it never ships in a distribution.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	manifestPath string

	rootCmd = &cobra.Command{
		Use:   "procdog-dist",
		Short: "Build procdog release metadata and artifacts",
		Long: `Procdog-dist reads the project's about manifest and derives the
release metadata from it: one version string feeds the tool, the
metadata record, and the tarball download URL alike.

Typical use:

  # Validate the manifest and show what a release would declare
  procdog-dist check

  # Produce the full artifact set under ./dist
  procdog-dist build --source . --out dist`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m",
		"about/about.toml", "Path to the about manifest")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
