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
	"github.com/spf13/cobra"

	"github.com/jlevy/procdog/procdog/ui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Full-screen monitor of all supervised processes",
	Long: `Ui opens a terminal interface showing every process under the runtime
directory, live.  Processes can be inspected, stopped, restarted, and
health-checked from the list; press H inside for the key reference.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ui.NewApp(baseDir(), toolVersion()).Run()
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}
