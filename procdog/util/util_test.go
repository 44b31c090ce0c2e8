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

package util

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jlevy/procdog/rest"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatDuration(0))
	assert.Equal(t, "0:00:59", FormatDuration(59*time.Second))
	assert.Equal(t, "0:01:01", FormatDuration(61*time.Second))
	assert.Equal(t, "3:02:05", FormatDuration(3*time.Hour+2*time.Minute+5*time.Second))
	assert.Equal(t, "26:00:00", FormatDuration(26*time.Hour))
	assert.Equal(t, "0:00:00", FormatDuration(-5*time.Second))
}

func TestStatusWord(t *testing.T) {
	assert.Equal(t, "unreachable", StatusWord(&Row{
		Id: "a", Err: errors.New("no route")}))
	assert.Equal(t, "not running", StatusWord(&Row{Id: "a"}))
	assert.Equal(t, "running", StatusWord(&Row{
		Id: "a", Status: &rest.StatusInfo{State: "running", Healthy: true}}))
	assert.Equal(t, "unhealthy", StatusWord(&Row{
		Id: "a", Status: &rest.StatusInfo{State: "running"}}))
	assert.Equal(t, "failed", StatusWord(&Row{
		Id: "a", Status: &rest.StatusInfo{State: "failed"}}))
	assert.Equal(t, "stopped", StatusWord(&Row{
		Id: "a", Status: &rest.StatusInfo{State: "stopped"}}))
}

func TestUptime(t *testing.T) {
	assert.Equal(t, "-", Uptime(&Row{Id: "a"}))
	assert.Equal(t, "-", Uptime(&Row{
		Id: "a", Status: &rest.StatusInfo{State: "stopped"}}))

	up := &Row{Id: "a", Status: &rest.StatusInfo{
		State:   "running",
		Pid:     42,
		Started: time.Now().Add(-2 * time.Hour),
	}}
	got := Uptime(up)
	assert.NotEqual(t, "-", got)
	assert.Contains(t, got, "2:00:0")
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "no route", Detail(&Row{
		Id: "a", Err: errors.New("no route")}))
	assert.Equal(t, "", Detail(&Row{Id: "a"}))
	assert.Equal(t, "Started: Requested start", Detail(&Row{
		Id: "a", Status: &rest.StatusInfo{
			State: "running", Healthy: true,
			Reason: "Started: Requested start"}}))
	assert.Equal(t, "health check: exit status 1", Detail(&Row{
		Id: "a", Status: &rest.StatusInfo{
			State:  "running",
			Health: "health check: exit status 1",
			Reason: "Started: Requested start"}}))
}

func TestSortRows(t *testing.T) {
	mk := func(id, state string, err error) *Row {
		r := &Row{Id: id, Err: err}
		if state != "" {
			r.Status = &rest.StatusInfo{State: state, Healthy: state == "running"}
		}
		return r
	}
	items := []*Row{
		mk("mike", "running", nil),
		mk("zeta", "failed", nil),
		mk("bravo", "stopped", nil),
		mk("kilo", "", nil),
		mk("alpha", "running", nil),
		mk("echo", "", errors.New("no route")),
	}
	SortRows(items)

	order := make([]string, len(items))
	for i, r := range items {
		order[i] = r.Id
	}
	assert.Equal(t, []string{"echo", "zeta", "alpha", "mike", "bravo", "kilo"},
		order)
}
