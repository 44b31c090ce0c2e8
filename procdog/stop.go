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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/rest"
)

var stopOpts struct {
	signal  string
	timeout time.Duration
	strict  bool
}

var stopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a process and retire its watchdog",
	Long: `Stop gracefully stops the supervised process (stop signal, grace
period, then SIGKILL) and shuts the watchdog down, removing the
process's runtime files.  Stopping something that is not running is a
no-op unless --strict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop(args[0])
	},
}

func init() {
	f := stopCmd.Flags()
	f.StringVar(&stopOpts.signal, "signal", "", "Stop signal (default: the manifest's, normally TERM)")
	f.DurationVar(&stopOpts.timeout, "timeout", 0, "Grace period before SIGKILL (default: the manifest's)")
	f.BoolVar(&stopOpts.strict, "strict", false, "Error if the process is not running")
	rootCmd.AddCommand(stopCmd)
}

func runStop(id string) error {
	if stopOpts.signal != "" {
		if _, err := procdog.ParseSignal(stopOpts.signal); err != nil {
			return err
		}
	}

	base := baseDir()
	if !monitorAlive(base, id) {
		if stopOpts.strict {
			return fmt.Errorf("%s: %w", id, procdog.ErrNotRunning)
		}
		fmt.Printf("not running: %s\n", id)
		return nil
	}

	// Budget: the grace period plus headroom for the RPCs themselves.
	grace := stopOpts.timeout
	if grace == 0 {
		grace = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace+opTimeout)
	defer cancel()

	client, err := dialMonitor(ctx, base, id)
	if err != nil {
		if errors.Is(err, procdog.ErrNotRunning) && !stopOpts.strict {
			fmt.Printf("not running: %s\n", id)
			return nil
		}
		return err
	}

	if _, err := client.Stop(ctx, stopOpts.signal, stopOpts.timeout); err != nil {
		// The child being down already is fine; we still want the
		// watchdog gone.
		if !rest.IsNotRunning(err) {
			return fmt.Errorf("%s: stop: %w", id, err)
		}
	}
	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", id, err)
	}
	if err := waitMonitorGone(ctx, base, id); err != nil {
		return fmt.Errorf("%s: watchdog still up: %w", id, err)
	}
	fmt.Printf("stopped %s\n", id)
	return nil
}

// waitMonitorGone polls until the watchdog's pid file stops answering.
func waitMonitorGone(ctx context.Context, base, id string) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if !monitorAlive(base, id) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
