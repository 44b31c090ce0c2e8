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
	"context"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
)

var aliveCmd = &cobra.Command{
	Use:   "alive <id>",
	Short: "Probe whether a process is running (exit 0 yes, 3 no)",
	Long: `Alive prints nothing; it answers through its exit status so shell
scripts can branch on it:

  procdog alive myserver || procdog start myserver --config procdog.toml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAlive(args[0])
	},
}

func init() {
	rootCmd.AddCommand(aliveCmd)
}

func runAlive(id string) error {
	base := baseDir()
	notRunning := &exitError{code: exitNotRunning}

	if !monitorAlive(base, id) {
		return notRunning
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	client, err := dialMonitor(ctx, base, id)
	if err != nil {
		return notRunning
	}
	st, err := client.Status(ctx)
	if err != nil {
		return notRunning
	}
	if state, err := procdog.ParseState(st.State); err != nil || state.Terminal() {
		return notRunning
	}
	return nil
}
