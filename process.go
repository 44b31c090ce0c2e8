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
	"sync"
	"syscall"
	"time"
)

// Process is one launch of the supervised child.  A Process is used for a
// single run; the Monitor allocates a fresh one for every (re)start.  The
// child is placed in its own process group so that stop signals reach any
// grandchildren it spawned.
type Process struct {
	manifest *ProcessManifest
	logger   *log.Logger

	cmd      *exec.Cmd
	pid      int
	started  time.Time
	exited   bool
	exitCode int
	exitErr  error
	files    []*os.File // redirection targets, closed after exit
	done     chan struct{}

	lock   sync.Mutex
	waiter sync.WaitGroup
}

func newProcess(m *ProcessManifest, logger *log.Logger) *Process {
	return &Process{
		manifest: m,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// openOutput opens a redirection target per the manifest's append flag.
func (p *Process) openOutput(path string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if p.manifest.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	p.files = append(p.files, f)
	return f, nil
}

// doLog copies child output into the monitor log, a line at a time.
func (p *Process) doLog(r io.ReadCloser, prefix string) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			p.logger.Print(prefix, strings.Trim(line, "\n"))
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) buildCmd() (*exec.Cmd, error) {
	m := p.manifest
	var cmd *exec.Cmd
	if m.Shell != "" {
		cmd = exec.Command("/bin/sh", "-c", m.Shell)
	} else if len(m.Command) != 0 {
		cmd = exec.Command(m.Command[0], m.Command[1:]...)
	} else {
		return nil, ErrNoCommand
	}
	cmd.Dir = m.Dir
	if len(m.Env) != 0 {
		cmd.Env = append(os.Environ(), m.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if m.Stdout != "" {
		f, err := p.openOutput(m.Stdout)
		if err != nil {
			return nil, fmt.Errorf("open stdout %s: %w", m.Stdout, err)
		}
		cmd.Stdout = f
	}
	if m.Stderr != "" {
		if m.Stderr == m.Stdout {
			cmd.Stderr = cmd.Stdout
		} else {
			f, err := p.openOutput(m.Stderr)
			if err != nil {
				return nil, fmt.Errorf("open stderr %s: %w", m.Stderr, err)
			}
			cmd.Stderr = f
		}
	}
	return cmd, nil
}

// Start launches the child.  Output streams without a file destination
// are piped into the monitor log.
func (p *Process) Start() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.cmd != nil {
		return ErrAlreadyRunning
	}
	cmd, err := p.buildCmd()
	if err != nil {
		p.closeFiles()
		return err
	}
	if cmd.Stdout == nil {
		if stdout, err := cmd.StdoutPipe(); err != nil {
			p.logger.Printf("Failed to capture stdout: %v", err)
		} else {
			go p.doLog(stdout, "stdout> ")
		}
	}
	if cmd.Stderr == nil {
		if stderr, err := cmd.StderrPipe(); err != nil {
			p.logger.Printf("Failed to capture stderr: %v", err)
		} else {
			go p.doLog(stderr, "stderr> ")
		}
	}
	if err := cmd.Start(); err != nil {
		p.closeFiles()
		return err
	}
	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.started = time.Now()
	p.waiter.Add(1)
	go p.doWait()
	return nil
}

// doWait reaps the child and records how it went.
func (p *Process) doWait() {
	err := p.cmd.Wait()
	p.lock.Lock()
	p.exited = true
	p.exitErr = err
	p.exitCode = 0
	if err != nil {
		p.exitCode = -1
		if ee, ok := err.(*exec.ExitError); ok {
			p.exitCode = ee.ExitCode()
		}
	}
	p.closeFiles()
	close(p.done)
	p.lock.Unlock()
	p.waiter.Done()
}

// closeFiles is called with the lock held.
func (p *Process) closeFiles() {
	for _, f := range p.files {
		f.Close()
	}
	p.files = nil
}

// Done is closed once the child has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) Pid() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pid
}

func (p *Process) Started() time.Time {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.started
}

// Running reports whether the child has started and not yet been reaped.
func (p *Process) Running() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.cmd != nil && !p.exited
}

// ExitStatus returns the child's exit code and wait error.  It is only
// meaningful after Done is closed.
func (p *Process) ExitStatus() (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.exitCode, p.exitErr
}

// Signal delivers sig to the child's process group, falling back to the
// child alone if the group is gone.
func (p *Process) Signal(sig syscall.Signal) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.cmd == nil || p.exited {
		return ErrNotRunning
	}
	if err := syscall.Kill(-p.pid, sig); err != nil {
		return p.cmd.Process.Signal(sig)
	}
	return nil
}

// Stop asks the child to exit with the manifest's stop signal, escalating
// to SIGKILL after the grace period.  Zero arguments take the manifest's
// defaults.  Stop blocks until the child has been reaped.
func (p *Process) Stop(sig syscall.Signal, grace time.Duration) error {
	if sig == 0 {
		// Normalize guarantees a parseable name.
		sig, _ = ParseSignal(p.manifest.StopSignal)
		if sig == 0 {
			sig = syscall.SIGTERM
		}
	}
	if grace == 0 {
		grace = p.manifest.StopTime.Std()
	}

	p.lock.Lock()
	if p.cmd == nil {
		p.lock.Unlock()
		return ErrNotRunning
	}
	if !p.exited {
		if err := syscall.Kill(-p.pid, sig); err != nil {
			if err := p.cmd.Process.Signal(sig); err != nil {
				p.logger.Printf("Failed sending %s: %v", SignalName(sig), err)
			}
		}
	}
	var timer *time.Timer
	if grace > 0 {
		pid := p.pid
		timer = time.AfterFunc(grace, func() {
			p.logger.Printf("Graceful shutdown timed out, killing")
			syscall.Kill(-pid, syscall.SIGKILL)
		})
	}
	p.lock.Unlock()

	p.waiter.Wait()
	if timer != nil {
		timer.Stop()
	}
	return nil
}
