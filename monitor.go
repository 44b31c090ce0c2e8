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
	"io"
	"log"
	"os"
	"sync"
	"syscall"
	"time"
)

// Monitor owns one supervised process: it launches the child, reaps it,
// applies the restart policy, runs health checks, and keeps the log ring.
// All methods are safe for concurrent use.  State changes bump a serial
// number, seeded from the clock so that clients holding an Etag from a
// previous monitor instance are forced to refresh.
type Monitor struct {
	manifest *ProcessManifest
	proc     *Process
	state    State
	healthy  bool
	hfails   int
	hdetail  string
	failing  string // pending failure reason while the child is put down
	reason   string
	stamp    time.Time
	exitCode int
	starts   int

	startTimes []time.Time
	rateLog    bool

	serial   int64
	created  time.Time
	logger   *log.Logger
	mlog     *MultiLogger
	rlog     *Log
	cvs      map[*sync.Cond]bool
	shutdown bool
	done     chan struct{}
	mx       sync.Mutex
}

// Status is a point-in-time snapshot of a Monitor.
type Status struct {
	Id           string
	State        State
	Healthy      bool
	HealthDetail string
	Pid          int
	Started      time.Time
	Stamp        time.Time
	Reason       string
	ExitCode     int
	Starts       int
	Command      []string
	Dir          string
	Serial       int64
}

// NewMonitor validates the manifest and returns an idle Monitor.  Nothing
// runs until Start is called.
func NewMonitor(m *ProcessManifest) (*Monitor, error) {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	mon := &Monitor{
		manifest:   m,
		state:      Stopped,
		healthy:    m.Health == nil,
		reason:     "Created",
		stamp:      time.Now(),
		serial:     time.Now().UnixNano(),
		created:    time.Now(),
		startTimes: make([]time.Time, m.RestartLimit),
		cvs:        make(map[*sync.Cond]bool),
		done:       make(chan struct{}),
	}
	mon.mlog = NewMultiLogger()
	mon.rlog = NewLog()
	mon.mlog.AddLogger(log.New(mon.rlog, "", 0))
	mon.logger = log.New(os.Stderr, "", log.LstdFlags)
	mon.mlog.AddLogger(mon.logger)
	return mon, nil
}

func (m *Monitor) lock() {
	m.mx.Lock()
}

func (m *Monitor) unlock() {
	m.mx.Unlock()
}

func (m *Monitor) wakeUp() {
	// Requires the lock; otherwise woken goroutines can miss the new
	// serial number.
	for cv := range m.cvs {
		cv.Broadcast()
	}
}

// bumpSerial increments the serial and notifies watchers.  Call with the
// lock held.
func (m *Monitor) bumpSerial() int64 {
	m.stamp = time.Now()
	m.serial++
	rv := m.serial
	m.wakeUp()
	return rv
}

// waitChange blocks, with the lock held, until the next serial bump.
func (m *Monitor) waitChange() {
	cv := sync.NewCond(&m.mx)
	m.cvs[cv] = true
	cv.Wait()
	delete(m.cvs, cv)
}

// WatchSerial blocks until the serial number differs from old, or the
// expiration passes.  The current serial is returned either way; a zero
// expiration polls.
func (m *Monitor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&m.mx)
	var timer *time.Timer
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			m.lock()
			expired = true
			cv.Broadcast()
			m.unlock()
		})
	} else {
		expired = true
	}

	m.lock()
	m.cvs[cv] = true
	var rv int64
	for {
		rv = m.serial
		if rv != old || expired {
			break
		}
		cv.Wait()
	}
	delete(m.cvs, cv)
	m.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

func (m *Monitor) Id() string {
	return m.manifest.Id
}

func (m *Monitor) Serial() int64 {
	m.lock()
	rv := m.serial
	m.unlock()
	return rv
}

func (m *Monitor) Created() time.Time {
	return m.created
}

// Done is closed once Shutdown has completed.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// SetLogger replaces the external log destination.  The in-memory ring is
// always retained.
func (m *Monitor) SetLogger(l *log.Logger) {
	m.lock()
	if m.logger != nil {
		m.mlog.DelLogger(m.logger)
	}
	m.logger = l
	m.mlog.AddLogger(l)
	m.unlock()
}

// SetLogWriter is a convenience over SetLogger for plain writers, such as
// the watchdog's logfile or a testing.T adapter.
func (m *Monitor) SetLogWriter(w io.Writer) {
	m.SetLogger(log.New(w, "", log.LstdFlags))
}

func (m *Monitor) logf(format string, v ...interface{}) {
	m.mlog.Logger().Printf(format, v...)
}

// GetLog returns retained log records newer than the given Etag id.
func (m *Monitor) GetLog(last int64) ([]LogRecord, int64) {
	return m.rlog.GetRecords(last)
}

// WatchLog blocks until the log grows past the given id or the expiration
// passes, returning the current last id.
func (m *Monitor) WatchLog(old int64, expire time.Duration) int64 {
	return m.rlog.Watch(old, expire)
}

// Start launches the child.  A manual start resets the restart rate
// accounting; automatic self-healing restarts do not.
func (m *Monitor) Start() error {
	m.lock()
	defer m.unlock()
	if m.shutdown {
		return ErrShutdown
	}
	if !m.state.Terminal() {
		return ErrAlreadyRunning
	}
	m.starts = 0
	m.rateLog = false
	return m.startLocked("Requested start")
}

// startLocked does the real work of launching.  Call with the lock held
// and the state terminal.
func (m *Monitor) startLocked(detail string) error {
	if err := m.tooQuickly(); err != nil {
		m.state = Failed
		m.reason = "Restarting too quickly"
		m.bumpSerial()
		return err
	}
	if m.manifest.RestartLimit > 0 {
		m.startTimes[m.starts%m.manifest.RestartLimit] = time.Now()
	}
	m.starts++
	m.state = Starting
	proc := newProcess(m.manifest, m.mlog.Logger())
	if err := proc.Start(); err != nil {
		m.logf("Failed to start %s: %v", m.Id(), err)
		m.state = Failed
		m.reason = "Failed to start: " + err.Error()
		m.exitCode = -1
		m.bumpSerial()
		return err
	}
	m.proc = proc
	m.state = Running
	m.healthy = m.manifest.Health == nil
	m.hfails = 0
	m.hdetail = ""
	m.reason = "Started: " + detail
	m.logf("Started %s (pid %d): %s", m.Id(), proc.Pid(), detail)
	m.bumpSerial()

	go m.reap(proc)
	if m.manifest.Health != nil {
		go m.healthLoop(proc)
	}
	return nil
}

// reap records the child's fate once it has been waited on, and applies
// the restart policy.
func (m *Monitor) reap(proc *Process) {
	<-proc.Done()
	code, werr := proc.ExitStatus()

	m.lock()
	defer m.unlock()
	if m.proc != proc {
		return // a newer launch took over
	}
	m.exitCode = code
	m.healthy = false
	switch {
	case m.failing != "":
		m.state = Failed
		m.reason = m.failing
		m.failing = ""
	case m.state == Stopping || m.shutdown:
		m.state = Stopped
		m.reason = "Stopped: requested"
		m.logf("Stopped %s", m.Id())
	case code == 0:
		m.state = Stopped
		m.reason = "Exited cleanly"
		m.logf("Process %s exited cleanly", m.Id())
	default:
		m.state = Failed
		m.reason = "Exited: " + werr.Error()
		m.logf("Failed: %v", werr)
	}
	m.bumpSerial()

	if m.state == Failed && m.manifest.Restart && !m.shutdown {
		m.logf("Attempting self-healing")
		m.startLocked("Self-healing attempt")
	}
}

// healthLoop probes the child at the configured interval until this
// launch of it exits.
func (m *Monitor) healthLoop(proc *Process) {
	h := m.manifest.Health
	if h.Startup > 0 {
		select {
		case <-time.After(h.Startup.Std()):
		case <-proc.Done():
			return
		}
	}
	ticker := time.NewTicker(h.Interval.Std())
	defer ticker.Stop()
	for {
		select {
		case <-proc.Done():
			return
		case <-ticker.C:
		}
		if !proc.Running() {
			return
		}
		err := runCheck(h.Command, m.manifest, proc.Pid(), h.Timeout.Std(), m.mlog.Logger())
		if !m.applyCheck(proc, err) {
			return
		}
	}
}

// applyCheck folds one health check result into the state.  It returns
// false when this launch is no longer current, ending the caller's loop.
func (m *Monitor) applyCheck(proc *Process, err error) bool {
	h := m.manifest.Health
	m.lock()
	defer m.unlock()
	if m.proc != proc || m.state != Running {
		return false
	}
	if err == nil {
		if !m.healthy {
			m.logf("Health restored on %s", m.Id())
			m.healthy = true
			m.bumpSerial()
		}
		m.hfails = 0
		m.hdetail = ""
		return true
	}
	m.hfails++
	m.hdetail = err.Error()
	m.logf("Health check failed on %s (%d/%d): %v", m.Id(), m.hfails, h.Retries, err)
	if m.healthy {
		m.healthy = false
		m.bumpSerial()
	}
	if m.hfails >= h.Retries {
		// Put the child down; reap completes the Failed transition
		// and may self-heal.
		m.failing = "Faulted: " + err.Error()
		m.state = Stopping
		m.reason = "Stopping: health check failed"
		m.bumpSerial()
		go proc.Stop(0, 0)
		return false
	}
	return true
}

// CheckNow runs the health check immediately, outside the normal
// schedule, and folds the result in.
func (m *Monitor) CheckNow() error {
	h := m.manifest.Health
	if h == nil {
		return ErrNoHealthCheck
	}
	m.lock()
	proc := m.proc
	running := m.state == Running
	m.unlock()
	if !running || proc == nil || !proc.Running() {
		return ErrNotRunning
	}
	err := runCheck(h.Command, m.manifest, proc.Pid(), h.Timeout.Std(), m.mlog.Logger())
	m.applyCheck(proc, err)
	return err
}

// StopSignal performs a requested stop with the given signal and grace
// period; zero values take the manifest's defaults.  It blocks until the
// monitor reaches a terminal state.
func (m *Monitor) StopSignal(sig syscall.Signal, grace time.Duration) error {
	m.lock()
	proc := m.proc
	if proc == nil || m.state.Terminal() {
		m.unlock()
		return ErrNotRunning
	}
	if m.state != Stopping {
		m.state = Stopping
		m.reason = "Stopping: requested"
		m.logf("Stopping %s", m.Id())
		m.bumpSerial()
	}
	m.unlock()

	err := proc.Stop(sig, grace)

	m.lock()
	for m.proc == proc && !m.state.Terminal() {
		m.waitChange()
	}
	m.unlock()
	return err
}

// Stop gracefully stops the child using the manifest's stop signal and
// grace period.
func (m *Monitor) Stop() error {
	return m.StopSignal(0, 0)
}

// Restart stops the child if running and launches it afresh, clearing any
// failure state and rate accounting.
func (m *Monitor) Restart() error {
	m.lock()
	if m.shutdown {
		m.unlock()
		return ErrShutdown
	}
	running := !m.state.Terminal()
	m.unlock()

	if running {
		if err := m.StopSignal(0, 0); err != nil && err != ErrNotRunning {
			return err
		}
	}

	m.lock()
	defer m.unlock()
	if m.shutdown {
		return ErrShutdown
	}
	m.starts = 0
	m.rateLog = false
	m.logf("Restarting %s", m.Id())
	return m.startLocked("Restarted")
}

// Signal delivers an arbitrary signal to the child's process group.
func (m *Monitor) Signal(sig syscall.Signal) error {
	m.lock()
	proc := m.proc
	running := !m.state.Terminal()
	m.unlock()
	if proc == nil || !running {
		return ErrNotRunning
	}
	m.logf("Sending %s to %s (pid %d)", SignalName(sig), m.Id(), proc.Pid())
	return proc.Signal(sig)
}

// Status returns a consistent snapshot.
func (m *Monitor) Status() *Status {
	m.lock()
	defer m.unlock()
	st := &Status{
		Id:           m.manifest.Id,
		State:        m.state,
		Healthy:      m.healthy,
		HealthDetail: m.hdetail,
		Stamp:        m.stamp,
		Reason:       m.reason,
		ExitCode:     m.exitCode,
		Starts:       m.starts,
		Dir:          m.manifest.Dir,
		Serial:       m.serial,
	}
	if len(m.manifest.Command) != 0 {
		st.Command = append([]string{}, m.manifest.Command...)
	} else {
		st.Command = []string{"/bin/sh", "-c", m.manifest.Shell}
	}
	if p := m.proc; p != nil && !m.state.Terminal() {
		st.Pid = p.Pid()
		st.Started = p.Started()
	}
	return st
}

// Shutdown stops the child if needed and retires the monitor.  After
// Shutdown the monitor accepts no further starts and Done is closed.
func (m *Monitor) Shutdown() {
	m.lock()
	if m.shutdown {
		m.unlock()
		return
	}
	m.shutdown = true
	proc := m.proc
	running := !m.state.Terminal()
	m.unlock()

	if proc != nil && running {
		proc.Stop(0, 0)
		m.lock()
		for m.proc == proc && !m.state.Terminal() {
			m.waitChange()
		}
		m.unlock()
	}

	m.lock()
	m.reason = "Shut down"
	m.bumpSerial()
	m.unlock()
	m.logf("*** Procdog monitor shut down: %s ***", m.Id())
	close(m.done)
}

// A process is restarting too quickly if it restarts more than the limit
// within the period.  Once over the threshold we wait out a full extra
// period before allowing another start, halving the effective rate as a
// penalty for thrashing.
func (m *Monitor) tooQuickly() error {
	limit := m.manifest.RestartLimit
	period := m.manifest.RestartPeriod.Std()
	if limit == 0 {
		return nil
	}
	if m.starts < limit {
		return nil
	}

	idx := (m.starts - 1) % limit
	end := m.startTimes[idx]
	if time.Now().Before(end.Add(period)) {
		if !m.rateLog {
			m.logf("Process %s restarting too quickly", m.Id())
		}
		m.rateLog = true
		return ErrRateLimited
	}

	if !m.rateLog {
		return nil
	}

	// In cool down; check whether the prior penalty period has expired.
	idx = (m.starts - 2) % limit
	end = m.startTimes[idx]
	if time.Now().Before(end.Add(period)) {
		return ErrRateLimited
	}
	m.rateLog = false
	return nil
}
