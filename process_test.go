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
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// capture is a log sink the test can inspect.
type capture struct {
	mu    sync.Mutex
	lines []string
}

func (c *capture) Write(b []byte) (int, error) {
	c.mu.Lock()
	c.lines = append(c.lines, strings.TrimSuffix(string(b), "\n"))
	c.mu.Unlock()
	return len(b), nil
}

func (c *capture) contains(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func (c *capture) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// waitFor polls f for up to limit.  Pipe reader goroutines drain on their
// own schedule, so log-based assertions have to poll.
func waitFor(limit time.Duration, f func() bool) bool {
	deadline := time.Now().Add(limit)
	for !f() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func testProcess(t *testing.T, m *ProcessManifest) *Process {
	m.Normalize()
	return newProcess(m, log.New(&testLog{t: t}, "", 0))
}

func waitDone(p *Process, limit time.Duration) bool {
	select {
	case <-p.Done():
		return true
	case <-time.After(limit):
		return false
	}
}

func TestProcessExits(t *testing.T) {
	Convey("A process that exits cleanly", t, func() {
		p := testProcess(t, shellManifest("clean", "exit 0"))
		So(p.Start(), ShouldBeNil)
		So(p.Pid(), ShouldBeGreaterThan, 0)
		So(p.Started().IsZero(), ShouldBeFalse)
		So(waitDone(p, 10*time.Second), ShouldBeTrue)
		So(p.Running(), ShouldBeFalse)
		code, err := p.ExitStatus()
		So(code, ShouldEqual, 0)
		So(err, ShouldBeNil)
	})

	Convey("A process that exits with a code", t, func() {
		p := testProcess(t, shellManifest("angry", "exit 7"))
		So(p.Start(), ShouldBeNil)
		So(waitDone(p, 10*time.Second), ShouldBeTrue)
		code, err := p.ExitStatus()
		So(code, ShouldEqual, 7)
		So(err, ShouldNotBeNil)
	})

	Convey("A manifest without a command cannot start", t, func() {
		p := testProcess(t, &ProcessManifest{Id: "empty"})
		So(p.Start(), ShouldEqual, ErrNoCommand)
	})
}

func TestProcessStartStop(t *testing.T) {
	Convey("Given a long-running process", t, func() {
		p := testProcess(t, shellManifest("lived", "sleep 30"))
		So(p.Start(), ShouldBeNil)
		Reset(func() {
			p.Stop(syscall.SIGKILL, time.Second)
		})
		So(p.Running(), ShouldBeTrue)

		Convey("Starting it again is rejected", func() {
			So(p.Start(), ShouldEqual, ErrAlreadyRunning)
		})

		Convey("Stop reaps it", func() {
			So(p.Stop(0, 0), ShouldBeNil)
			So(p.Running(), ShouldBeFalse)
			select {
			case <-p.Done():
			default:
				So(true, ShouldBeFalse)
			}
		})
	})

	Convey("Stopping a process that never started", t, func() {
		p := testProcess(t, shellManifest("unborn", "sleep 30"))
		So(p.Stop(0, 0), ShouldEqual, ErrNotRunning)
	})
}

func TestProcessStopEscalation(t *testing.T) {
	Convey("A child that shrugs off the stop signal is killed", t, func() {
		p := testProcess(t, shellManifest("stubborn",
			"trap '' TERM; while :; do sleep 1; done"))
		So(p.Start(), ShouldBeNil)
		begin := time.Now()
		So(p.Stop(syscall.SIGTERM, 500*time.Millisecond), ShouldBeNil)
		So(time.Since(begin), ShouldBeGreaterThanOrEqualTo, 500*time.Millisecond)
		So(p.Running(), ShouldBeFalse)
		code, err := p.ExitStatus()
		So(code, ShouldEqual, -1)
		So(err, ShouldNotBeNil)
	})
}

func TestProcessSignal(t *testing.T) {
	Convey("Given a long-running process", t, func() {
		p := testProcess(t, shellManifest("target", "sleep 30"))
		So(p.Start(), ShouldBeNil)

		Convey("A fatal signal takes it down", func() {
			So(p.Signal(syscall.SIGTERM), ShouldBeNil)
			So(waitDone(p, 10*time.Second), ShouldBeTrue)
			code, err := p.ExitStatus()
			So(code, ShouldEqual, -1)
			So(err, ShouldNotBeNil)

			Convey("After which signaling is rejected", func() {
				So(p.Signal(syscall.SIGTERM), ShouldEqual, ErrNotRunning)
			})
		})
	})
}

func TestProcessRedirection(t *testing.T) {
	Convey("Given output redirected to files", t, func() {
		dir := t.TempDir()
		outPath := filepath.Join(dir, "out.log")
		errPath := filepath.Join(dir, "err.log")

		run := func(m *ProcessManifest) {
			p := testProcess(t, m)
			So(p.Start(), ShouldBeNil)
			So(waitDone(p, 10*time.Second), ShouldBeTrue)
		}

		Convey("Stdout and stderr land in their files", func() {
			m := shellManifest("split", "echo to-out; echo to-err 1>&2")
			m.Stdout = outPath
			m.Stderr = errPath
			run(m)
			out, err := os.ReadFile(outPath)
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "to-out\n")
			errb, err := os.ReadFile(errPath)
			So(err, ShouldBeNil)
			So(string(errb), ShouldEqual, "to-err\n")

			Convey("Append keeps prior content", func() {
				m2 := shellManifest("split", "echo more")
				m2.Stdout = outPath
				m2.Append = true
				run(m2)
				out, err := os.ReadFile(outPath)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "to-out\nmore\n")
			})

			Convey("Without append the file is truncated", func() {
				m2 := shellManifest("split", "echo fresh")
				m2.Stdout = outPath
				run(m2)
				out, err := os.ReadFile(outPath)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "fresh\n")
			})
		})

		Convey("The same file can take both streams", func() {
			m := shellManifest("merged", "echo first; echo second 1>&2")
			m.Stdout = outPath
			m.Stderr = outPath
			run(m)
			out, err := os.ReadFile(outPath)
			So(err, ShouldBeNil)
			So(string(out), ShouldContainSubstring, "first\n")
			So(string(out), ShouldContainSubstring, "second\n")
		})
	})
}

func TestProcessPipesToLogger(t *testing.T) {
	Convey("Unredirected output is folded into the log", t, func() {
		sink := &capture{}
		m := shellManifest("chatty", "echo hello; echo oops 1>&2")
		m.Normalize()
		p := newProcess(m, log.New(sink, "", 0))
		So(p.Start(), ShouldBeNil)
		So(waitDone(p, 10*time.Second), ShouldBeTrue)
		So(waitFor(5*time.Second, func() bool {
			return sink.contains("stdout> hello") && sink.contains("stderr> oops")
		}), ShouldBeTrue)
	})
}

func TestProcessEnvAndDir(t *testing.T) {
	Convey("The manifest's env and dir reach the child", t, func() {
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "marker"), nil, 0644), ShouldBeNil)
		outPath := filepath.Join(dir, "out.log")

		m := shellManifest("placed", "test -e marker && echo found $PROCDOG_FRUIT")
		m.Dir = dir
		m.Env = []string{"PROCDOG_FRUIT=banana"}
		m.Stdout = outPath
		p := testProcess(t, m)
		So(p.Start(), ShouldBeNil)
		So(waitDone(p, 10*time.Second), ShouldBeTrue)
		code, _ := p.ExitStatus()
		So(code, ShouldEqual, 0)
		out, err := os.ReadFile(outPath)
		So(err, ShouldBeNil)
		So(string(out), ShouldEqual, "found banana\n")
	})
}
