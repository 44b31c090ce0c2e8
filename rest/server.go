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
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/jlevy/procdog"
)

// Handler exposes one Monitor over HTTP.  The watchdog serves it on the
// process's Unix domain socket; filesystem permissions are the access
// control.  Reads honor Etags and the Poll-* headers for long polling.
type Handler struct {
	m       *procdog.Monitor
	r       *mux.Router
	version string
	started time.Time
}

// NewHandler wraps a Monitor.  The version string is reported in
// MonitorInfo so clients can detect skew against their own build.
func NewHandler(m *procdog.Monitor, version string) *Handler {
	r := mux.NewRouter()
	h := &Handler{m: m, r: r, version: version, started: time.Now()}
	r.HandleFunc("/", h.getInfo).Methods("GET")
	r.HandleFunc("/status", h.getStatus).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	r.HandleFunc("/stop", h.postStop).Methods("POST")
	r.HandleFunc("/restart", h.postRestart).Methods("POST")
	r.HandleFunc("/signal/{signal}", h.postSignal).Methods("POST")
	r.HandleFunc("/check", h.postCheck).Methods("POST")
	r.HandleFunc("/shutdown", h.postShutdown).Methods("POST")
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, etag string, v interface{}) {
	b, e := json.Marshal(v)
	if e != nil {
		h.internalError(w, e)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	if etag != "" {
		w.Header().Set("Etag", etag)
	}
	w.Write(b)
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	b, err := json.Marshal(e)
	if err != nil {
		h.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", mimeJson)
	w.WriteHeader(e.Code)
	w.Write(b)
}

// opError maps monitor errors onto wire errors: not-running is a
// conflict (409) so idempotent clients can recognize it, bad input is a
// 400, anything else a 500.
func (h *Handler) opError(w http.ResponseWriter, err error) {
	switch err {
	case procdog.ErrNotRunning, procdog.ErrAlreadyRunning, procdog.ErrShutdown:
		h.writeError(w, &Error{http.StatusConflict, err.Error()})
	case procdog.ErrBadSignal, procdog.ErrNoHealthCheck, procdog.ErrRateLimited:
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	default:
		h.writeError(w, &Error{http.StatusInternalServerError, err.Error()})
	}
}

// pollArgs extracts the caller's Etag and long-poll budget.
func pollArgs(req *http.Request) (string, time.Duration) {
	etag := req.Header.Get(PollEtagHeader)
	if etag == "" {
		etag = req.Header.Get("If-None-Match")
	}
	wait := time.Duration(0)
	if s := req.Header.Get(PollTimeHeader); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
			if wait > maxPollTime {
				wait = maxPollTime
			}
		}
	}
	return etag, wait
}

func etagString(v int64) string {
	return strconv.FormatInt(v, 16)
}

func parseEtag(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 16, 64)
	return v, err == nil
}

func (h *Handler) getInfo(w http.ResponseWriter, req *http.Request) {
	info := &MonitorInfo{
		Id:      h.m.Id(),
		Version: h.version,
		Pid:     os.Getpid(),
		Started: h.started,
	}
	h.writeJson(w, etagString(h.m.Serial()), info)
}

func (h *Handler) getStatus(w http.ResponseWriter, req *http.Request) {
	etag, wait := pollArgs(req)
	if old, valid := parseEtag(etag); valid {
		serial := h.m.Serial()
		if serial == old && wait > 0 {
			serial = h.m.WatchSerial(old, wait)
		}
		if serial == old {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.writeStatus(w)
}

// writeStatus renders the current snapshot with its serial as the Etag.
func (h *Handler) writeStatus(w http.ResponseWriter) {
	st := h.m.Status()
	info := &StatusInfo{
		Id:        st.Id,
		State:     st.State.String(),
		Healthy:   st.Healthy,
		Health:    st.HealthDetail,
		Pid:       st.Pid,
		Started:   st.Started,
		TimeStamp: st.Stamp,
		Reason:    st.Reason,
		ExitCode:  st.ExitCode,
		Starts:    st.Starts,
		Command:   st.Command,
		Dir:       st.Dir,
	}
	h.writeJson(w, etagString(st.Serial), info)
}

func (h *Handler) getLog(w http.ResponseWriter, req *http.Request) {
	etag, wait := pollArgs(req)
	last, valid := parseEtag(etag)
	if !valid {
		last = 0
	}
	if valid && wait > 0 {
		h.m.WatchLog(last, wait)
	}
	recs, id := h.m.GetLog(last)
	if valid && id == last {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if recs == nil {
		recs = []procdog.LogRecord{}
	}
	h.writeJson(w, etagString(id), recs)
}

func (h *Handler) postStop(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
		return
	}
	var sig syscall.Signal
	if s := req.PostForm.Get("signal"); s != "" {
		v, err := procdog.ParseSignal(s)
		if err != nil {
			h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
			return
		}
		sig = v
	}
	var grace time.Duration
	if s := req.PostForm.Get("timeout"); s != "" {
		v, err := time.ParseDuration(s)
		if err != nil || v < 0 {
			h.writeError(w, &Error{http.StatusBadRequest, "bad timeout"})
			return
		}
		grace = v
	}
	if err := h.m.StopSignal(sig, grace); err != nil {
		h.opError(w, err)
		return
	}
	h.writeStatus(w)
}

func (h *Handler) postRestart(w http.ResponseWriter, req *http.Request) {
	if err := h.m.Restart(); err != nil {
		h.opError(w, err)
		return
	}
	h.writeStatus(w)
}

func (h *Handler) postSignal(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	sig, err := procdog.ParseSignal(vars["signal"])
	if err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
		return
	}
	if err := h.m.Signal(sig); err != nil {
		h.opError(w, err)
		return
	}
	h.writeStatus(w)
}

func (h *Handler) postCheck(w http.ResponseWriter, req *http.Request) {
	err := h.m.CheckNow()
	switch err {
	case nil:
		h.writeStatus(w)
	case procdog.ErrNoHealthCheck, procdog.ErrNotRunning:
		h.opError(w, err)
	default:
		h.writeError(w, &Error{http.StatusBadGateway, err.Error()})
	}
}

func (h *Handler) postShutdown(w http.ResponseWriter, req *http.Request) {
	// Answer first; the monitor retires once the response is on its way
	// and the watchdog's serve loop winds down after Done closes.
	h.writeJson(w, "", ok)
	go h.m.Shutdown()
}
