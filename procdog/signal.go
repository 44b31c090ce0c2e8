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

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
)

var signalCmd = &cobra.Command{
	Use:   "signal <id> <signal>",
	Short: "Send a signal to a supervised process",
	Long: `Signal delivers a Unix signal, by name (HUP, TERM, sigusr1) or
number, to the process group of the supervised child.  It does not
change the watchdog's idea of the process state; use stop for a
supervised shutdown.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSignal(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(signalCmd)
}

func runSignal(id, sig string) error {
	// Reject nonsense before it travels.
	parsed, err := procdog.ParseSignal(sig)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	client, err := dialMonitor(ctx, baseDir(), id)
	if err != nil {
		return err
	}
	st, err := client.Signal(ctx, sig)
	if err != nil {
		return fmt.Errorf("%s: signal: %w", id, err)
	}
	fmt.Printf("sent %s to %s pid=%d\n", procdog.SignalName(parsed), id, st.Pid)
	return nil
}
