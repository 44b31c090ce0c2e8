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

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog/about"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the procdog version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Unlike toolVersion, a broken embedded manifest is reported
		// here rather than papered over with "dev": there is exactly
		// one place the version is defined, and it must hold.
		info, err := about.Load()
		if err != nil {
			return fmt.Errorf("embedded manifest: %w", err)
		}
		fmt.Printf("procdog %s\n%s\n", info.Version, info.Description)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
