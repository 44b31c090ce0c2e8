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

	"github.com/jlevy/procdog/rest"
)

var logFollow bool

var logCmd = &cobra.Command{
	Use:   "log <id>",
	Short: "Show a watchdog's log ring",
	Long: `Log prints the records the watchdog has retained: supervision events
plus any process output that was not redirected to files.  With
--follow it keeps long-polling for new records until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLog(args[0])
	},
}

func init() {
	logCmd.Flags().BoolVarP(&logFollow, "follow", "f", false, "Keep printing new records as they arrive")
	rootCmd.AddCommand(logCmd)
}

func printLogRecords(li *rest.LogInfo, lastId int64) int64 {
	for _, r := range li.Records {
		if r.Id <= lastId {
			continue
		}
		fmt.Printf("%s %s\n", r.Time.Format(time.StampMilli), r.Text)
		lastId = r.Id
	}
	return lastId
}

func runLog(id string) error {
	// No deadline: --follow polls until interrupted, and even the
	// plain fetch is bounded by the dial below.
	ctx := context.Background()

	dctx, cancel := context.WithTimeout(ctx, opTimeout)
	client, err := dialMonitor(dctx, baseDir(), id)
	cancel()
	if err != nil {
		return err
	}

	li, err := client.Log(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	lastId := printLogRecords(li, 0)
	if !logFollow {
		return nil
	}
	for {
		next, err := client.WaitLog(ctx, li)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		lastId = printLogRecords(next, lastId)
		li = next
	}
}
