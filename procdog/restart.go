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
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var restartTimeout time.Duration

var restartCmd = &cobra.Command{
	Use:   "restart <id>",
	Short: "Restart a supervised process",
	Long: `Restart stops the process if it is running and launches it again from
the manifest its watchdog already holds.  The watchdog must be up; use
"procdog start" to launch one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRestart(args[0])
	},
}

func init() {
	restartCmd.Flags().DurationVar(&restartTimeout, "timeout", 30*time.Second,
		"How long to allow for the stop plus the fresh start")
	rootCmd.AddCommand(restartCmd)
}

func runRestart(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), restartTimeout)
	defer cancel()

	client, err := dialMonitor(ctx, baseDir(), id)
	if err != nil {
		return err
	}
	st, err := client.Restart(ctx)
	if err != nil {
		return fmt.Errorf("%s: restart: %w", id, err)
	}
	fmt.Printf("restarted %s pid=%d\n", id, st.Pid)
	return nil
}
