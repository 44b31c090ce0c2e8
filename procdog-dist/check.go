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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog/dist"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the manifest and show the derived release metadata",
	Long: `Check reads the about manifest, derives the complete metadata
record, and prints a summary.  It produces no artifacts; a release that
would fail fails here first.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	rec, err := dist.BuildFromFile(manifestPath)
	if err != nil {
		return err
	}

	fmt.Printf("Name:         %s\n", rec.Name)
	fmt.Printf("Version:      %s\n", rec.Version)
	fmt.Printf("Author:       %s\n", rec.Author)
	fmt.Printf("License:      %s\n", rec.License)
	fmt.Printf("Homepage:     %s\n", rec.URL)
	fmt.Printf("Download URL: %s\n", rec.DownloadURL)
	fmt.Printf("Scripts:      %s\n", strings.Join(rec.Scripts, ", "))
	fmt.Printf("Description:  %s\n", rec.Description)
	return nil
}
