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

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/rest"
)

var waitOpts struct {
	target  string
	timeout time.Duration
}

var waitCmd = &cobra.Command{
	Use:   "wait <id>",
	Short: "Wait until a process reaches a state",
	Long: `Wait blocks until the process is in the requested condition: running,
stopped, failed, or healthy (running with a passing health check).
Waiting for "stopped" is also satisfied once the watchdog itself is
gone.  Exits 0 when the condition holds, 7 if the timeout passes
first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWait(args[0])
	},
}

func init() {
	f := waitCmd.Flags()
	f.StringVar(&waitOpts.target, "for", "running", "Condition to wait for: running, stopped, failed, or healthy")
	f.DurationVar(&waitOpts.timeout, "timeout", time.Minute, "Give up after this long")
	rootCmd.AddCommand(waitCmd)
}

func waitSatisfied(st *rest.StatusInfo, target string) bool {
	if target == "healthy" {
		return st.State == procdog.Running.String() && st.Healthy
	}
	return st.State == target
}

func runWait(id string) error {
	target := waitOpts.target
	if target != "healthy" {
		state, err := procdog.ParseState(target)
		if err != nil || (state != procdog.Running && !state.Terminal()) {
			return fmt.Errorf("wait target must be running, stopped, failed, or healthy")
		}
	}

	base := baseDir()
	ctx, cancel := context.WithTimeout(context.Background(), waitOpts.timeout)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		if monitorAlive(base, id) {
			if client, err := dialMonitor(ctx, base, id); err == nil {
				st, err := client.Status(ctx)
				for err == nil {
					if waitSatisfied(st, target) {
						fmt.Printf("%s is %s\n", id, target)
						return nil
					}
					st, err = client.WaitStatus(ctx, st)
				}
				// The watchdog went away mid-watch, or the deadline
				// hit; the checks below sort out which.
			}
		} else if target == procdog.Stopped.String() {
			// No watchdog at all is as stopped as it gets.
			fmt.Printf("%s is %s\n", id, target)
			return nil
		}
		select {
		case <-ctx.Done():
			return exitf(exitTimeout, "%s: not %s after %v", id, target, waitOpts.timeout)
		case <-tick.C:
		}
	}
}
