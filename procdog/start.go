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
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/rest"
)

var startOpts struct {
	shell          string
	cwd            string
	env            []string
	stdout         string
	stderr         string
	appendOut      bool
	restart        bool
	restartLimit   int
	restartPeriod  time.Duration
	stopSignal     string
	stopTime       time.Duration
	healthCmd      string
	healthInterval time.Duration
	healthTimeout  time.Duration
	healthStartup  time.Duration
	healthRetries  int
	config         string
	strict         bool
	waitHealthy    bool
	timeout        time.Duration
}

var startCmd = &cobra.Command{
	Use:   "start <id> [flags] [-- command args...]",
	Short: "Start a process under a watchdog",
	Long: `Start launches a command under a dedicated watchdog daemon and waits
until it is confirmed running (or healthy, with --wait-healthy).

The command comes after a "--" separator, or from --shell as a single
/bin/sh string, or from a [processes.<id>] table in a --config file.

If a watchdog for the id is already running, start is a no-op when the
process is up (an error with --strict), and a restart when it had
stopped or failed.  Flags do not reach an already-running watchdog;
stop it first to change the command or policy.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

func init() {
	f := startCmd.Flags()
	f.StringVar(&startOpts.shell, "shell", "", "Run this string via /bin/sh -c instead of a command")
	f.StringVar(&startOpts.cwd, "cwd", "", "Working directory for the process (default: current)")
	f.StringArrayVar(&startOpts.env, "env", nil, "Extra environment entry KEY=VALUE (repeatable)")
	f.StringVar(&startOpts.stdout, "stdout", "", "Redirect process stdout to this file")
	f.StringVar(&startOpts.stderr, "stderr", "", "Redirect process stderr to this file")
	f.BoolVar(&startOpts.appendOut, "append", false, "Append to redirection files instead of truncating")
	f.BoolVar(&startOpts.restart, "restart", false, "Restart the process if it fails")
	f.IntVar(&startOpts.restartLimit, "restart-limit", 0, "Max restarts per period before backing off (default 10)")
	f.DurationVar(&startOpts.restartPeriod, "restart-period", 0, "Period for the restart limit (default 1m)")
	f.StringVar(&startOpts.stopSignal, "stop-signal", "", "Signal used by stop (default TERM)")
	f.DurationVar(&startOpts.stopTime, "stop-time", 0, "Grace period before SIGKILL on stop (default 10s)")
	f.StringVar(&startOpts.healthCmd, "health-cmd", "", "Health check, run via /bin/sh -c with PROCDOG_PID set")
	f.DurationVar(&startOpts.healthInterval, "health-interval", 0, "Interval between health checks (default 10s)")
	f.DurationVar(&startOpts.healthTimeout, "health-timeout", 0, "Health check timeout (default 5s)")
	f.DurationVar(&startOpts.healthStartup, "health-startup", 0, "Delay before the first health check")
	f.IntVar(&startOpts.healthRetries, "health-retries", 0, "Consecutive failures before the process is faulted (default 1)")
	f.StringVar(&startOpts.config, "config", "", "Take the process definition from this procdog.toml")
	f.BoolVar(&startOpts.strict, "strict", false, "Error if the process is already running")
	f.BoolVar(&startOpts.waitHealthy, "wait-healthy", false, "Wait for the first health check to pass")
	f.DurationVar(&startOpts.timeout, "timeout", 10*time.Second, "How long to wait for the start to be confirmed")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	id, command, err := splitStartArgs(cmd, args)
	if err != nil {
		return err
	}

	manifest, err := buildManifest(cmd, id, command)
	if err != nil {
		return err
	}

	base := baseDir()
	ctx, cancel := context.WithTimeout(context.Background(), startOpts.timeout)
	defer cancel()

	// An existing watchdog owns the id: reuse it rather than racing it.
	if monitorAlive(base, id) {
		client, err := dialMonitor(ctx, base, id)
		if err != nil {
			return err
		}
		st, err := client.Status(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if state, _ := procdog.ParseState(st.State); !state.Terminal() {
			if startOpts.strict {
				return fmt.Errorf("%s: %w", id, procdog.ErrAlreadyRunning)
			}
			fmt.Printf("already running: %s pid=%d\n", id, st.Pid)
			return nil
		}
		if _, err := client.Restart(ctx); err != nil {
			return fmt.Errorf("%s: restart: %w", id, err)
		}
		return awaitStart(ctx, client, base, id, "restarted")
	}

	if _, err := procdog.EnsureProcDir(base, id); err != nil {
		return err
	}
	mf, err := os.Create(procdog.ManifestPath(base, id))
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	err = manifest.WriteJSON(mf)
	if cerr := mf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if _, err := spawnWatchdog(base, id); err != nil {
		return err
	}
	if err := procdog.WaitSocket(ctx, procdog.SocketPath(base, id)); err != nil {
		return startFailed(base, id, "watchdog did not come up")
	}
	client, err := dialMonitor(ctx, base, id)
	if err != nil {
		return startFailed(base, id, "watchdog did not answer")
	}
	return awaitStart(ctx, client, base, id, "started")
}

// splitStartArgs separates the id from the command after the "--".
func splitStartArgs(cmd *cobra.Command, args []string) (string, []string, error) {
	dash := cmd.ArgsLenAtDash()
	positional := args
	var command []string
	if dash >= 0 {
		positional = args[:dash]
		command = args[dash:]
	}
	if len(positional) != 1 {
		return "", nil, fmt.Errorf("start takes one id, then the command after \"--\"")
	}
	return positional[0], command, nil
}

// buildManifest assembles the process manifest from a config file or the
// command line.  Paths are made absolute here so the detached watchdog,
// which runs from /, resolves them the way the user saw them.
func buildManifest(cmd *cobra.Command, id string, command []string) (*procdog.ProcessManifest, error) {
	var m *procdog.ProcessManifest

	if startOpts.config != "" {
		if len(command) != 0 || startOpts.shell != "" {
			return nil, fmt.Errorf("--config and a command are mutually exclusive")
		}
		cfg, err := procdog.LoadConfig(startOpts.config)
		if err != nil {
			return nil, err
		}
		pm, ok := cfg.Processes[id]
		if !ok {
			return nil, fmt.Errorf("no process %q in %s", id, startOpts.config)
		}
		if cfg.Dir != "" && runtimeDir == "" {
			runtimeDir = cfg.Dir
		}
		m = &pm
	} else {
		if len(command) == 0 && startOpts.shell == "" {
			return nil, fmt.Errorf("%s: %w (give a command after \"--\", or --shell, or --config)",
				id, procdog.ErrNoCommand)
		}
		m = &procdog.ProcessManifest{Id: id, Command: command}
	}

	f := cmd.Flags()
	if f.Changed("shell") {
		m.Shell = startOpts.shell
	}
	if f.Changed("cwd") {
		m.Dir = startOpts.cwd
	}
	if f.Changed("env") {
		m.Env = append(m.Env, startOpts.env...)
	}
	if f.Changed("stdout") {
		m.Stdout = startOpts.stdout
	}
	if f.Changed("stderr") {
		m.Stderr = startOpts.stderr
	}
	if f.Changed("append") {
		m.Append = startOpts.appendOut
	}
	if f.Changed("restart") {
		m.Restart = startOpts.restart
	}
	if f.Changed("restart-limit") {
		m.RestartLimit = startOpts.restartLimit
	}
	if f.Changed("restart-period") {
		m.RestartPeriod = procdog.Duration(startOpts.restartPeriod)
	}
	if f.Changed("stop-signal") {
		m.StopSignal = startOpts.stopSignal
	}
	if f.Changed("stop-time") {
		m.StopTime = procdog.Duration(startOpts.stopTime)
	}
	if f.Changed("health-cmd") {
		m.Health = &procdog.HealthCheck{
			Command: []string{"/bin/sh", "-c", startOpts.healthCmd},
		}
	}
	if m.Health != nil {
		if f.Changed("health-interval") {
			m.Health.Interval = procdog.Duration(startOpts.healthInterval)
		}
		if f.Changed("health-timeout") {
			m.Health.Timeout = procdog.Duration(startOpts.healthTimeout)
		}
		if f.Changed("health-startup") {
			m.Health.Startup = procdog.Duration(startOpts.healthStartup)
		}
		if f.Changed("health-retries") {
			m.Health.Retries = startOpts.healthRetries
		}
	} else if f.Changed("health-interval") || f.Changed("health-timeout") ||
		f.Changed("health-startup") || f.Changed("health-retries") {
		return nil, fmt.Errorf("health flags need --health-cmd (or a config health table)")
	}

	if m.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		m.Dir = wd
	} else if abs, err := filepath.Abs(m.Dir); err == nil {
		m.Dir = abs
	}
	for _, p := range []*string{&m.Stdout, &m.Stderr} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}

	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// awaitStart watches the monitor until the child is confirmed up, has
// reached a terminal state, or the deadline passes.
func awaitStart(ctx context.Context, client *rest.Client, base, id, verb string) error {
	st, err := client.Status(ctx)
	for err == nil {
		switch st.State {
		case procdog.Running.String():
			if !startOpts.waitHealthy || st.Healthy {
				fmt.Printf("%s %s pid=%d\n", verb, id, st.Pid)
				return nil
			}
		case procdog.Stopped.String(), procdog.Failed.String():
			return startFailed(base, id, st.Reason)
		}
		st, err = client.WaitStatus(ctx, st)
	}
	if ctx.Err() != nil {
		if startOpts.waitHealthy {
			return exitf(exitTimeout, "%s: not healthy after %v", id, startOpts.timeout)
		}
		return exitf(exitTimeout, "%s: start not confirmed after %v", id, startOpts.timeout)
	}
	return fmt.Errorf("%s: %w", id, err)
}

// startFailed reports a failed launch with the tail of the monitor log,
// which is where the reason usually is.
func startFailed(base, id, reason string) error {
	msg := fmt.Sprintf("%s: %s", id, reason)
	if tail := tailLog(base, id, 8); tail != "" {
		msg += "\nrecent monitor log:\n" + tail
	}
	return exitf(exitFailure, "%s", msg)
}
