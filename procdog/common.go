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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/rest"
)

// opTimeout bounds ordinary control operations (status, signal, etc.)
// that should answer promptly.  Waits and long polls use their own
// deadlines.
const opTimeout = 5 * time.Second

// monitorAlive reports whether a watchdog for id appears to be running,
// going by its pid file.  Stale pid files are cleaned up as a side
// effect.
func monitorAlive(base, id string) bool {
	_, alive := procdog.PidAlive(procdog.PidPath(base, id))
	return alive
}

// dialMonitor connects to the watchdog for id and verifies the control
// protocol version.  The returned client is ready for use.  When no
// watchdog is reachable the error wraps procdog.ErrNotRunning so
// callers can treat "nothing there" distinctly from a failed call.
func dialMonitor(ctx context.Context, base, id string) (*rest.Client, error) {
	if !procdog.ValidId(id) {
		return nil, fmt.Errorf("%q: %w", id, procdog.ErrBadProcessId)
	}
	sock := procdog.SocketPath(base, id)
	if _, err := os.Stat(sock); err != nil {
		return nil, fmt.Errorf("%s: %w", id, procdog.ErrNotRunning)
	}
	client := rest.NewClient(sock)
	_, err := client.Handshake(ctx, toolVersion())
	switch {
	case err == nil:
	case errors.Is(err, rest.ErrVersionSkew):
		// Keep going; the watchdog predates or postdates this CLI
		// but the protocol is close enough for a best effort.
		fmt.Fprintf(os.Stderr, "procdog: warning: %v\n", err)
	default:
		return nil, fmt.Errorf("%s: %w", id, procdog.ErrNotRunning)
	}
	return client, nil
}
