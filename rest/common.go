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

package rest

import (
	"errors"
	"time"

	"github.com/jlevy/procdog"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// Long-poll request headers.  A client that holds an Etag sends it
	// back in PollEtagHeader along with a wait budget, in seconds, in
	// PollTimeHeader; the server blocks until the resource changes or
	// the budget runs out, then answers 304 or 200 as usual.
	PollEtagHeader = "Poll-Etag"
	PollTimeHeader = "Poll-Time"

	// maxPollTime caps how long a server will hold a long poll.
	maxPollTime = 300 * time.Second
)

var ok = struct{}{}

// ErrVersionSkew indicates the watchdog was built from a different major
// version than this client.  Operations still work; callers should warn.
var ErrVersionSkew = errors.New("Monitor version skew")

// MonitorInfo identifies the watchdog daemon itself.
type MonitorInfo struct {
	Id      string    `json:"id"`
	Version string    `json:"version"`
	Pid     int       `json:"pid"`
	Started time.Time `json:"started"`

	etag string
}

// StatusInfo is the wire form of the monitor's status snapshot.
type StatusInfo struct {
	Id        string    `json:"id"`
	State     string    `json:"state"`
	Healthy   bool      `json:"healthy"`
	Health    string    `json:"health,omitempty"`
	Pid       int       `json:"pid,omitempty"`
	Started   time.Time `json:"started"`
	TimeStamp time.Time `json:"tstamp"`
	Reason    string    `json:"reason"`
	ExitCode  int       `json:"exitCode"`
	Starts    int       `json:"starts"`
	Command   []string  `json:"command"`
	Dir       string    `json:"dir,omitempty"`

	etag string
}

// LogInfo carries a snapshot of the monitor's log ring.
type LogInfo struct {
	Records []procdog.LogRecord

	etag string
}

// Error is the JSON error body; its code doubles as the HTTP status.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsNotRunning reports whether an error is the server telling us the
// process was not running (conflict), which several commands treat as
// success for idempotence.
func IsNotRunning(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == 409
}
