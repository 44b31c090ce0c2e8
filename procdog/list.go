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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
)

var listQuiet bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known process ids",
	Long: `List shows every process id found under the runtime directory and
whether a watchdog is up for it.  With --quiet only the ids are
printed, one per line.  Liveness comes from pid files alone; see
"procdog status" for the processes themselves.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listQuiet, "quiet", "q", false, "Print only the ids")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	base := baseDir()
	ids, err := procdog.ListIds(base)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if listQuiet {
			fmt.Println(id)
			continue
		}
		pid, alive := procdog.PidAlive(procdog.PidPath(base, id))
		if alive {
			fmt.Printf("%s\twatchdog up pid=%d\n", id, pid)
		} else {
			color.New(color.Faint).Printf("%s\twatchdog down\n", id)
		}
	}
	return nil
}
