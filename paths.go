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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Runtime layout: each process id gets its own directory under the base
// dir, holding the control socket, the watchdog's pid file, and the
// watchdog's log.
const (
	SocketName   = "control.sock"
	PidFileName  = "monitor.pid"
	LogFileName  = "monitor.log"
	ManifestName = "manifest.json"
)

// BaseDir resolves the runtime directory, in order of preference:
// $PROCDOG_DIR, $XDG_RUNTIME_DIR/procdog, /var/run/procdog for root, and
// a per-user directory under the system temp dir otherwise.
func BaseDir() string {
	if d := os.Getenv("PROCDOG_DIR"); d != "" {
		return d
	}
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return filepath.Join(d, "procdog")
	}
	if os.Geteuid() == 0 {
		return "/var/run/procdog"
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("procdog-%d", os.Getuid()))
}

// ProcDir returns the directory for one process id.
func ProcDir(base, id string) string {
	return filepath.Join(base, id)
}

func SocketPath(base, id string) string {
	return filepath.Join(base, id, SocketName)
}

func PidPath(base, id string) string {
	return filepath.Join(base, id, PidFileName)
}

func LogPath(base, id string) string {
	return filepath.Join(base, id, LogFileName)
}

func ManifestPath(base, id string) string {
	return filepath.Join(base, id, ManifestName)
}

// EnsureProcDir creates the per-process directory.  Sockets and pid files
// live here, so it is private to the user.
func EnsureProcDir(base, id string) (string, error) {
	if !ValidId(id) {
		return "", ErrBadProcessId
	}
	dir := ProcDir(base, id)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create runtime dir %s: %w", dir, err)
	}
	return dir, nil
}

// ListIds returns the process ids that have runtime directories, sorted.
// A missing base dir is an empty list, not an error.
func ListIds(base string) ([]string, error) {
	ents, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan runtime dir %s: %w", base, err)
	}
	ids := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() && ValidId(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// WritePidFile records our own pid for liveness probes.
func WritePidFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0644); err != nil {
		return fmt.Errorf("write pid file %s: %w", path, err)
	}
	return nil
}

// ReadPidFile parses a pid file.
func ReadPidFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s: malformed", path)
	}
	return pid, nil
}

// PidAlive probes the watchdog recorded in a pid file using signal 0.  A
// stale file left by a dead watchdog is removed on the way.
func PidAlive(path string) (int, bool) {
	pid, err := ReadPidFile(path)
	if err != nil {
		return 0, false
	}
	if err := syscall.Kill(pid, 0); err != nil {
		os.Remove(path)
		return 0, false
	}
	return pid, true
}

// RemoveRuntime clears a process's runtime files once its watchdog has
// exited.  The directory itself is removed only if nothing else is left
// in it (user log files may live there).
func RemoveRuntime(base, id string) {
	os.Remove(SocketPath(base, id))
	os.Remove(PidPath(base, id))
	os.Remove(ManifestPath(base, id))
	os.Remove(ProcDir(base, id)) // fails if non-empty, which is fine
}

// WaitSocket blocks until the control socket exists or the context ends.
// It watches the parent directory for creation events, with a coarse poll
// as a fallback for filesystems that swallow notifications.
func WaitSocket(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(filepath.Dir(path)); werr != nil {
			watcher.Close()
			watcher = nil
		} else {
			defer watcher.Close()
		}
	} else {
		watcher = nil
	}
	// The socket may have appeared while the watch was being set up.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var events chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.Name == path && ev.Has(fsnotify.Create) {
				return nil
			}
		case <-tick.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
