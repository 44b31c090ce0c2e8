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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that reads and writes as a string such as
// "10s", both in TOML manifests and on the JSON wire.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// HealthCheck configures periodic liveness probing of the child.  The
// command is run with PROCDOG_PID set to the child's pid; a zero exit
// means healthy.  After Retries consecutive failures the process is
// declared failed and subjected to the restart policy.
type HealthCheck struct {
	Command  []string `toml:"command" json:"command"`
	Interval Duration `toml:"interval" json:"interval,omitempty"`
	Timeout  Duration `toml:"timeout" json:"timeout,omitempty"`
	Startup  Duration `toml:"startup" json:"startup,omitempty"`
	Retries  int      `toml:"retries" json:"retries,omitempty"`
}

// ProcessManifest is the complete description of one supervised process.
// It is what `procdog start` hands to the watchdog it spawns, and what a
// [processes.<id>] table in procdog.toml declares.  Command and Shell are
// mutually exclusive; Shell is run via "/bin/sh -c".
type ProcessManifest struct {
	Id            string       `toml:"id" json:"id"`
	Command       []string     `toml:"command" json:"command,omitempty"`
	Shell         string       `toml:"shell" json:"shell,omitempty"`
	Dir           string       `toml:"dir" json:"dir,omitempty"`
	Env           []string     `toml:"env" json:"env,omitempty"`
	Stdout        string       `toml:"stdout" json:"stdout,omitempty"`
	Stderr        string       `toml:"stderr" json:"stderr,omitempty"`
	Append        bool         `toml:"append" json:"append,omitempty"`
	StopSignal    string       `toml:"stop_signal" json:"stopSignal,omitempty"`
	StopTime      Duration     `toml:"stop_time" json:"stopTime,omitempty"`
	Restart       bool         `toml:"restart" json:"restart,omitempty"`
	RestartLimit  int          `toml:"restart_limit" json:"restartLimit,omitempty"`
	RestartPeriod Duration     `toml:"restart_period" json:"restartPeriod,omitempty"`
	Health        *HealthCheck `toml:"health" json:"health,omitempty"`
}

const (
	defaultStopTime       = Duration(10 * time.Second)
	defaultRestartLimit   = 10
	defaultRestartPeriod  = Duration(time.Minute)
	defaultHealthInterval = Duration(10 * time.Second)
	defaultHealthTimeout  = Duration(5 * time.Second)
)

// Normalize fills in defaults for fields left at their zero values.
func (m *ProcessManifest) Normalize() {
	if m.StopSignal == "" {
		m.StopSignal = "TERM"
	}
	if m.StopTime == 0 {
		m.StopTime = defaultStopTime
	}
	if m.RestartLimit == 0 {
		m.RestartLimit = defaultRestartLimit
	}
	if m.RestartPeriod == 0 {
		m.RestartPeriod = defaultRestartPeriod
	}
	if h := m.Health; h != nil {
		if h.Interval == 0 {
			h.Interval = defaultHealthInterval
		}
		if h.Timeout == 0 {
			h.Timeout = defaultHealthTimeout
		}
		if h.Retries == 0 {
			h.Retries = 1
		}
	}
}

// ValidId reports whether id is usable as a process identifier.  Ids name
// directories under the runtime dir, so anything that cannot be a single
// clean path element is rejected.
func ValidId(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\x00")
}

// Validate checks the manifest for problems that should stop us before a
// process is ever spawned.
func (m *ProcessManifest) Validate() error {
	if !ValidId(m.Id) {
		return fmt.Errorf("%w: %q", ErrBadProcessId, m.Id)
	}
	if len(m.Command) == 0 && m.Shell == "" {
		return ErrNoCommand
	}
	if len(m.Command) != 0 && m.Shell != "" {
		return fmt.Errorf("process %s: command and shell are mutually exclusive", m.Id)
	}
	if _, err := ParseSignal(m.StopSignal); m.StopSignal != "" && err != nil {
		return fmt.Errorf("process %s: %w", m.Id, err)
	}
	for _, d := range []Duration{m.StopTime, m.RestartPeriod} {
		if d < 0 {
			return fmt.Errorf("process %s: negative duration", m.Id)
		}
	}
	if m.RestartLimit < 0 {
		return fmt.Errorf("process %s: negative restart limit", m.Id)
	}
	if h := m.Health; h != nil {
		if len(h.Command) == 0 {
			return fmt.Errorf("process %s: health check without a command", m.Id)
		}
		if h.Interval < 0 || h.Timeout < 0 || h.Startup < 0 {
			return fmt.Errorf("process %s: negative health duration", m.Id)
		}
		if h.Retries < 0 {
			return fmt.Errorf("process %s: negative health retries", m.Id)
		}
	}
	return nil
}

// WriteJSON serializes the manifest for the handoff file passed to the
// watchdog.  ReadManifest is its inverse.
func (m *ProcessManifest) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadManifest parses a JSON manifest, normalizes it, and validates it.
func ReadManifest(r io.Reader) (*ProcessManifest, error) {
	m := &ProcessManifest{}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Config is an optional procdog.toml holding named process manifests, so
// that `procdog start --config <id>` need not repeat flags.
type Config struct {
	Dir       string                     `toml:"dir"`
	Processes map[string]ProcessManifest `toml:"processes"`
}

// LoadConfig reads a procdog.toml.  Map keys become manifest ids; a
// manifest that also sets id must agree with its key.  Unknown keys are
// rejected to catch typos before they silently drop a setting.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if und := meta.Undecoded(); len(und) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", path, und[0].String())
	}
	for id, m := range cfg.Processes {
		if m.Id == "" {
			m.Id = id
		} else if m.Id != id {
			return nil, fmt.Errorf("load config %s: process %q declares id %q", path, id, m.Id)
		}
		m.Normalize()
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg.Processes[id] = m
	}
	return cfg, nil
}

var signalNames = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
	"TERM": syscall.SIGTERM,
	"CONT": syscall.SIGCONT,
	"STOP": syscall.SIGSTOP,
}

// ParseSignal resolves a signal given as a name ("TERM", "sigterm") or a
// number ("15").
func ParseSignal(name string) (syscall.Signal, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "SIG")
	if sig, ok := signalNames[s]; ok {
		return sig, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 && n < 64 {
		return syscall.Signal(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadSignal, name)
}

// SignalName renders a signal the way ParseSignal accepts it, preferring
// the symbolic name.
func SignalName(sig syscall.Signal) string {
	for n, s := range signalNames {
		if s == sig {
			return n
		}
	}
	return strconv.Itoa(int(sig))
}

// LoadManifestFile is a convenience wrapper over ReadManifest for the
// watchdog's handoff file.
func LoadManifestFile(path string) (*ProcessManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return ReadManifest(f)
}
