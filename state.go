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
	"fmt"
	"strings"
)

// State describes where a monitored process is in its lifecycle.
//
//	Starting --> Running --> Stopping --> Stopped
//	     \           \                       ^
//	      \           +--> Failed -----------+ (restart policy permitting)
//	       +--> Failed
//
// Stopped is reached by request, or when the child exits cleanly on its
// own.  Failed is reached when the child exits nonzero, dies from a
// signal we did not send, or flunks its health check too many times.
type State int

const (
	Starting State = iota
	Running
	Stopping
	Stopped
	Failed
)

var stateNames = map[State]string{
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
	Stopped:  "stopped",
	Failed:   "failed",
}

func (st State) String() string {
	if n, ok := stateNames[st]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(st))
}

// Terminal reports whether the process has come to rest.
func (st State) Terminal() bool {
	return st == Stopped || st == Failed
}

// ParseState converts a state name, as printed by String, back to a State.
func ParseState(s string) (State, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for st, n := range stateNames {
		if n == want {
			return st, nil
		}
	}
	return Stopped, fmt.Errorf("unknown state %q", s)
}
