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

// Package util holds presentation helpers shared by the procdog CLI and
// its full screen UI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/jlevy/procdog/rest"
)

// Row pairs a process id with the status its watchdog last reported.
// Status is nil when no watchdog is running for the id; Err records a
// watchdog that was alive but could not be queried.
type Row struct {
	Id     string
	Pid    int // watchdog pid, not the child's
	Status *rest.StatusInfo
	Err    error
}

// StatusWord condenses a row into the single word shown in listings.
func StatusWord(r *Row) string {
	switch {
	case r.Err != nil:
		return "unreachable"
	case r.Status == nil:
		return "not running"
	case r.Status.State == "running" && !r.Status.Healthy:
		return "unhealthy"
	default:
		return r.Status.State
	}
}

// Uptime renders how long the child has been up, or "-" when it isn't.
func Uptime(r *Row) string {
	if r.Status == nil || r.Status.Pid == 0 || r.Status.Started.IsZero() {
		return "-"
	}
	return FormatDuration(time.Since(r.Status.Started))
}

// Detail returns the human reason line for a row.
func Detail(r *Row) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.Status == nil {
		return ""
	}
	if r.Status.State == "running" && !r.Status.Healthy && r.Status.Health != "" {
		return r.Status.Health
	}
	return r.Status.Reason
}

// FormatDuration renders a duration as h:mm:ss, which lines up nicely
// in columns no matter how long a process has been up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

type rows []*Row

func (s rows) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s rows) Len() int {
	return len(s)
}

func (s rows) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	af := a.Err != nil || (a.Status != nil && a.Status.State == "failed")
	bf := b.Err != nil || (b.Status != nil && b.Status.State == "failed")
	if af != bf {
		// put troubled items at the front
		return af
	}
	ar := a.Status != nil && a.Status.State == "running"
	br := b.Status != nil && b.Status.State == "running"
	if ar != br {
		// running items in front of idle ones
		return ar
	}
	return a.Id < b.Id
}

// SortRows orders rows for display: failures first, then running
// processes, then everything else, alphabetically within each group.
func SortRows(items []*Row) {
	sort.Sort(rows(items))
}
