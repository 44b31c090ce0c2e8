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
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/procdog/util"
)

var statusCmd = &cobra.Command{
	Use:   "status [<id>...]",
	Short: "Show the status of supervised processes",
	Long: `Status prints one line per process: id, state, child pid, uptime,
health, and the reason for the last state change.  With no ids, every
process found under the runtime directory is shown.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// fetchRow gathers one process's status for display.  It never fails;
// trouble is folded into the row itself.
func fetchRow(ctx context.Context, base, id string) *util.Row {
	row := &util.Row{Id: id}
	if !procdog.ValidId(id) {
		row.Err = fmt.Errorf("%w: %q", procdog.ErrBadProcessId, id)
		return row
	}
	pid, alive := procdog.PidAlive(procdog.PidPath(base, id))
	if !alive {
		return row
	}
	row.Pid = pid
	client, err := dialMonitor(ctx, base, id)
	if err != nil {
		row.Err = err
		return row
	}
	row.Status, row.Err = client.Status(ctx)
	return row
}

func gatherRows(ids []string) ([]*util.Row, error) {
	base := baseDir()
	if len(ids) == 0 {
		var err error
		ids, err = procdog.ListIds(base)
		if err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows := make([]*util.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, fetchRow(ctx, base, id))
	}
	util.SortRows(rows)
	return rows, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	rows, err := gatherRows(args)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no processes")
		return nil
	}

	idw := len("ID")
	for _, r := range rows {
		if len(r.Id) > idw {
			idw = len(r.Id)
		}
	}

	fmt.Printf("%-*s  %-11s  %6s  %9s  %-6s  %s\n",
		idw, "ID", "STATE", "PID", "UPTIME", "HEALTH", "DETAIL")
	for _, r := range rows {
		pid := "-"
		health := "-"
		if st := r.Status; st != nil {
			if st.Pid != 0 {
				pid = strconv.Itoa(st.Pid)
			}
			if st.State == procdog.Running.String() {
				if st.Healthy {
					health = "ok"
				} else {
					health = "fail"
				}
			}
		}
		line := fmt.Sprintf("%-*s  %-11s  %6s  %9s  %-6s  %s",
			idw, r.Id, util.StatusWord(r), pid, util.Uptime(r), health, util.Detail(r))
		rowColor(r).Println(line)
	}
	return nil
}

// rowColor picks the rendering for a whole status line.  Coloring the
// formatted line keeps the escape codes out of the column math.
func rowColor(r *util.Row) *color.Color {
	switch util.StatusWord(r) {
	case "failed", "unreachable":
		return color.New(color.FgRed)
	case "running":
		return color.New(color.FgGreen)
	case "unhealthy", "starting", "stopping":
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}
