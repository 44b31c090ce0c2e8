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

// Command procdog starts, stops, and checks long running processes.
//
// Each supervised process is owned by a small watchdog daemon (the
// hidden watch subcommand), which procdog spawns on demand and talks to
// over a Unix domain socket.  The CLI itself holds no state; everything
// lives with the watchdog, so procdog commands can be issued from shell
// scripts, crontabs, and terminals interchangeably.
//
// Exit codes are stable for scripting:
//
//	0  success
//	1  failure: bad usage, unreachable watchdog, failed operation
//	3  the probed process is not running (alive)
//	7  a wait deadline expired before the condition held
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/about"
)

const (
	exitFailure    = 1
	exitNotRunning = 3
	exitTimeout    = 7
)

// exitError carries a specific exit code out of a subcommand.  An empty
// message exits silently, which the alive probe relies on.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func exitf(code int, format string, v ...interface{}) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, v...)}
}

var (
	runtimeDir string

	rootCmd = &cobra.Command{
		Use:   "procdog",
		Short: "Lightweight command-line process control",
		Long: `Procdog starts, stops, and checks the health of long-running
processes.  Each supervised process gets its own watchdog daemon that
owns the child, restarts it according to policy, and answers a control
API on a local Unix domain socket.

Typical use:

  # Launch a server under supervision, restarting it if it dies
  procdog start myserver --restart -- python server.py --port 8080

  # Is it up?  (exit status 0 if running, 3 if not)
  procdog alive myserver

  # Watch everything procdog is minding
  procdog status

  # Bring it down gracefully
  procdog stop myserver`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// baseDir resolves the runtime directory, preferring the --dir flag
// over the environment-driven default.
func baseDir() string {
	if runtimeDir != "" {
		return runtimeDir
	}
	return procdog.BaseDir()
}

// toolVersion is this build's version per the embedded about manifest.
// A broken build reports "dev" here; the version command complains
// loudly instead.
func toolVersion() string {
	if info, err := about.Load(); err == nil {
		return info.Version
	}
	return "dev"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&runtimeDir, "dir", "",
		"Runtime directory (default $PROCDOG_DIR, else a per-user directory)")
	rootCmd.Version = toolVersion()
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := exitFailure
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		if ee.msg == "" {
			os.Exit(code)
		}
	}
	fmt.Fprintf(os.Stderr, "procdog: %v\n", err)
	os.Exit(code)
}
