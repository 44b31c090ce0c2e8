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
	"os/exec"
	"strings"
	"syscall"

	"github.com/jlevy/procdog"
)

// spawnWatchdog re-executes this binary as a detached watchdog daemon
// for id.  The daemon gets its own session so it survives the caller's
// terminal, and its stdout/stderr are appended to the monitor log so
// early failures (bad manifest, busy socket) leave a trace.
func spawnWatchdog(base, id string) (int, error) {
	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("cannot locate own executable: %w", err)
	}

	args := []string{"watch", id}
	if runtimeDir != "" {
		args = append(args, "--dir", runtimeDir)
	}

	logf, err := os.OpenFile(procdog.LogPath(base, id),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return 0, fmt.Errorf("cannot open monitor log: %w", err)
	}
	defer logf.Close()

	cmd := exec.Command(self, args...)
	cmd.Stdin = nil
	cmd.Stdout = logf
	cmd.Stderr = logf
	// The manifest carries absolute paths, so the daemon need not pin
	// the caller's working directory (which may be unmounted later).
	cmd.Dir = "/"
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("cannot start watchdog: %w", err)
	}
	pid := cmd.Process.Pid
	// Detach; the watchdog reparents to init and reaps its own child.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("cannot detach watchdog: %w", err)
	}
	return pid, nil
}

// tailLog returns up to n trailing lines of the watchdog's log, for
// error reports when the daemon died before answering.
func tailLog(base, id string, n int) string {
	f, err := os.Open(procdog.LogPath(base, id))
	if err != nil {
		return ""
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return strings.Join(lines, "\n")
}
