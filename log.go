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
	"strings"
	"sync"
	"time"
)

// MaxLogRecords bounds the in-memory history kept for a monitor.  Older
// records are overwritten; readers that fall behind simply miss them.
const MaxLogRecords = 1000

// LogRecord is one line of monitor or child output.  Ids ascend strictly,
// so a reader can resume from the last id it has seen.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a fixed-size ring of LogRecords.  It implements io.Writer so a
// log.Logger can deliver lines into it, and it supports long-polling via
// Watch.  Ids are seeded from the clock so that they remain unique across
// restarts of the monitor, letting clients detect a restarted server.
type Log struct {
	records []LogRecord
	written int // total lines ever written; next slot is written % len
	id      int64
	cvs     map[*sync.Cond]bool
	mx      sync.Mutex
}

// NewLog returns an empty Log holding up to MaxLogRecords entries.
func NewLog() *Log {
	return &Log{
		records: make([]LogRecord, MaxLogRecords),
		id:      time.Now().UnixNano(),
		cvs:     make(map[*sync.Cond]bool),
	}
}

func (l *Log) lock() {
	l.mx.Lock()
}

func (l *Log) unlock() {
	l.mx.Unlock()
}

// Write implements io.Writer for use with log.Logger.  Input is expected
// to be whole lines; embedded newlines produce multiple records.
func (l *Log) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	now := time.Now()
	l.lock()
	for _, line := range lines {
		idx := l.written % len(l.records)
		l.id++
		l.records[idx] = LogRecord{Id: l.id, Time: now, Text: line}
		l.written++
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
	return len(b), nil
}

// Clear empties the ring.  The id sequence is reseeded from the clock so
// that stale reader positions cannot collide with new records.
func (l *Log) Clear() {
	l.lock()
	l.written = 0
	l.id = time.Now().UnixNano()
	l.unlock()
}

// LastId returns the id of the most recent record.  It is suitable for
// use as an Etag.
func (l *Log) LastId() int64 {
	l.lock()
	id := l.id
	l.unlock()
	return id
}

// GetRecords returns the retained records in order, along with the current
// last id.  If last matches the current id, nil is returned immediately,
// so callers holding an Etag avoid copying unchanged history.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.lock()
	defer l.unlock()
	if l.id == last {
		return nil, last
	}
	cnt := l.written
	if cnt > len(l.records) {
		cnt = len(l.records)
	}
	recs := make([]LogRecord, 0, cnt)
	for i := l.written - cnt; i < l.written; i++ {
		recs = append(recs, l.records[i%len(l.records)])
	}
	return recs, l.id
}

// Watch blocks until the log has grown past last, or the expiration
// passes.  It returns the current last id; if unchanged the caller knows
// the wait timed out.  An expiration of zero polls without blocking.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.lock()
			expired = true
			cv.Broadcast()
			l.unlock()
		})
	} else {
		expired = true
	}

	l.lock()
	l.cvs[cv] = true
	for l.id == last && !expired {
		cv.Wait()
	}
	delete(l.cvs, cv)
	last = l.id
	l.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}
