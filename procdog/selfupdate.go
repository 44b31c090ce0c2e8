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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// updateRepo is where releases of procdog are published.
const updateRepo = "jlevy/procdog"

var selfupdateOpts struct {
	check bool
	yes   bool
}

var selfupdateCmd = &cobra.Command{
	Use:   "selfupdate",
	Short: "Update procdog to the latest release",
	Long: `Selfupdate checks the GitHub releases of ` + updateRepo + ` and replaces
this binary with the newest one.  With --check it only reports whether
an update exists.`,
	Args: cobra.NoArgs,
	RunE: runSelfUpdate,
}

func init() {
	f := selfupdateCmd.Flags()
	f.BoolVar(&selfupdateOpts.check, "check", false, "Only check; do not install")
	f.BoolVarP(&selfupdateOpts.yes, "yes", "y", false, "Update without asking")
	rootCmd.AddCommand(selfupdateCmd)
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	cur, err := semver.NewVersion(strings.TrimPrefix(toolVersion(), "v"))
	if err != nil {
		return fmt.Errorf("this is a %q build; install a release before self-updating", toolVersion())
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return fmt.Errorf("github source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return fmt.Errorf("updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(cmd.Context(), selfupdate.ParseSlug(updateRepo))
	if err != nil {
		return fmt.Errorf("detect latest release: %w", err)
	}
	if !found || !latest.GreaterThan(cur.String()) {
		fmt.Printf("procdog %s is up to date\n", cur)
		return nil
	}

	fmt.Printf("new version available: %s (running %s)\n", latest.Version(), cur)
	if selfupdateOpts.check {
		return nil
	}
	if !selfupdateOpts.yes {
		fmt.Print("Update now? (y/N): ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(line)) != "y" {
			fmt.Println("update cancelled")
			return nil
		}
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate own executable: %w", err)
	}
	if err := updater.UpdateTo(cmd.Context(), latest, execPath); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Printf("updated to %s\n", latest.Version())
	return nil
}
