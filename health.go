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

package procdog

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// runCheck executes a health or hook command once, with a hard timeout.
// The child's pid is exported as PROCDOG_PID so that checks can probe the
// exact process they guard.  Output is folded into the monitor log with
// the given prefix.  A nil return means the command exited zero.
func runCheck(check []string, m *ProcessManifest, pid int, timeout time.Duration, logger *log.Logger) error {
	if len(check) == 0 {
		return ErrNoHealthCheck
	}
	cmd := exec.Command(check[0], check[1:]...)
	cmd.Dir = m.Dir
	cmd.Env = append(os.Environ(), m.Env...)
	if pid > 0 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("PROCDOG_PID=%d", pid))
	}

	logPipe := func(r io.ReadCloser, prefix string) {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if len(line) != 0 {
				logger.Print(prefix, strings.Trim(line, "\n"))
			}
			if err != nil {
				return
			}
		}
	}
	if stdout, err := cmd.StdoutPipe(); err == nil {
		go logPipe(stdout, "health> ")
	}
	if stderr, err := cmd.StderrPipe(); err == nil {
		go logPipe(stderr, "health> ")
	}

	if timeout <= 0 {
		timeout = defaultHealthTimeout.Std()
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("health check failed to start: %w", err)
	}
	proc := cmd.Process
	timer := time.AfterFunc(timeout, func() {
		logger.Printf("Timeout waiting for health check")
		proc.Kill()
	})
	err := cmd.Wait()
	timer.Stop()
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}
