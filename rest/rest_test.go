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
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jlevy/procdog"
)

type testLog struct {
	t *testing.T
}

func (l *testLog) Write(b []byte) (int, error) {
	l.t.Log(strings.TrimSuffix(string(b), "\n"))
	return len(b), nil
}

// withServer stands up a monitor, serves it on a Unix socket in a temp
// dir, and hands the test a client dialing that socket.
func withServer(t *testing.T, m *procdog.ProcessManifest, fn func(mon *procdog.Monitor, c *Client)) func() {
	return func() {
		mon, err := procdog.NewMonitor(m)
		So(err, ShouldBeNil)
		mon.SetLogWriter(&testLog{t: t})
		sock := filepath.Join(t.TempDir(), "control.sock")
		l, err := net.Listen("unix", sock)
		So(err, ShouldBeNil)
		srv := &http.Server{Handler: NewHandler(mon, "1.2.3")}
		go srv.Serve(l)
		Reset(func() {
			srv.Close()
			mon.Shutdown()
		})
		fn(mon, NewClient(sock))
	}
}

// waitWire polls over the wire until the status reaches the wanted state
// or the limit passes, long-polling between looks.
func waitWire(c *Client, want string, limit time.Duration) *StatusInfo {
	deadline := time.Now().Add(limit)
	st, err := c.Status(context.Background())
	if err != nil {
		return nil
	}
	for st.State != want && time.Now().Before(deadline) {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		next, err := c.WaitStatus(ctx, st)
		cancel()
		if err != nil {
			break
		}
		st = next
	}
	return st
}

func TestInfoAndHandshake(t *testing.T) {
	m := &procdog.ProcessManifest{Id: "web", Shell: "sleep 30"}
	Convey("Given a served monitor", t, withServer(t, m,
		func(mon *procdog.Monitor, c *Client) {
			ctx := context.Background()

			Convey("Info identifies the watchdog", func() {
				info, err := c.Info(ctx)
				So(err, ShouldBeNil)
				So(info.Id, ShouldEqual, "web")
				So(info.Version, ShouldEqual, "1.2.3")
				So(info.Pid, ShouldEqual, os.Getpid())
				So(info.Started.IsZero(), ShouldBeFalse)
				So(c.Socket(), ShouldNotBeEmpty)
			})

			Convey("A same-major client shakes hands cleanly", func() {
				info, err := c.Handshake(ctx, "1.9.9")
				So(err, ShouldBeNil)
				So(info, ShouldNotBeNil)
			})

			Convey("A major version difference is flagged", func() {
				info, err := c.Handshake(ctx, "2.0.0")
				So(errors.Is(err, ErrVersionSkew), ShouldBeTrue)
				So(info, ShouldNotBeNil)
			})

			Convey("Unparseable versions never count as skew", func() {
				_, err := c.Handshake(ctx, "dev")
				So(err, ShouldBeNil)
			})
		}))
}

func TestStatusOverWire(t *testing.T) {
	m := &procdog.ProcessManifest{Id: "web", Shell: "sleep 30"}
	Convey("Given a served monitor", t, withServer(t, m,
		func(mon *procdog.Monitor, c *Client) {
			ctx := context.Background()

			Convey("The initial status is stopped", func() {
				st, err := c.Status(ctx)
				So(err, ShouldBeNil)
				So(st.State, ShouldEqual, "stopped")
				So(st.Reason, ShouldEqual, "Created")
			})

			Convey("A started child shows up running", func() {
				So(mon.Start(), ShouldBeNil)
				st := waitWire(c, "running", 10*time.Second)
				So(st, ShouldNotBeNil)
				So(st.State, ShouldEqual, "running")
				So(st.Pid, ShouldBeGreaterThan, 0)
				So(st.Starts, ShouldEqual, 1)
				So(st.Command, ShouldResemble,
					[]string{"/bin/sh", "-c", "sleep 30"})

				Convey("WaitStatus rides the transition to stopped", func() {
					go func() {
						time.Sleep(50 * time.Millisecond)
						mon.Stop()
					}()
					final := waitWire(c, "stopped", 10*time.Second)
					So(final.State, ShouldEqual, "stopped")
					So(final.Reason, ShouldEqual, "Stopped: requested")
					So(final.Pid, ShouldEqual, 0)
				})
			})
		}))
}

func TestControlOverWire(t *testing.T) {
	m := &procdog.ProcessManifest{Id: "web", Shell: "sleep 30"}
	Convey("Given a served monitor with a running child", t, withServer(t, m,
		func(mon *procdog.Monitor, c *Client) {
			ctx := context.Background()
			So(mon.Start(), ShouldBeNil)
			So(waitWire(c, "running", 10*time.Second).State,
				ShouldEqual, "running")

			Convey("A benign signal leaves it running", func() {
				st, err := c.Signal(ctx, "CONT")
				So(err, ShouldBeNil)
				So(st.State, ShouldEqual, "running")
			})

			Convey("A nonsense signal is a client error", func() {
				_, err := c.Signal(ctx, "BANANA")
				re := &Error{}
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Check without a health check is a client error", func() {
				_, err := c.Check(ctx)
				re := &Error{}
				So(errors.As(err, &re), ShouldBeTrue)
				So(re.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Stop is honored and reports the final status", func() {
				st, err := c.Stop(ctx, "", 0)
				So(err, ShouldBeNil)
				So(st.State, ShouldEqual, "stopped")
				So(st.Reason, ShouldEqual, "Stopped: requested")

				Convey("A second stop conflicts, which reads as idempotent", func() {
					_, err := c.Stop(ctx, "", 0)
					So(err, ShouldNotBeNil)
					So(IsNotRunning(err), ShouldBeTrue)
				})

				Convey("Restart revives it", func() {
					st, err := c.Restart(ctx)
					So(err, ShouldBeNil)
					So(st.State, ShouldEqual, "running")
					So(st.Starts, ShouldEqual, 1)
				})
			})

			Convey("Stop accepts an explicit signal and grace", func() {
				st, err := c.Stop(ctx, "KILL", 2*time.Second)
				So(err, ShouldBeNil)
				So(st.State, ShouldEqual, "stopped")
			})

			Convey("Shutdown retires the watchdog", func() {
				So(c.Shutdown(ctx), ShouldBeNil)
				select {
				case <-mon.Done():
				case <-time.After(15 * time.Second):
					So(true, ShouldBeFalse)
				}

				Convey("After which operations conflict", func() {
					_, err := c.Restart(ctx)
					So(IsNotRunning(err), ShouldBeTrue)
				})
			})
		}))
}

func TestLogOverWire(t *testing.T) {
	m := &procdog.ProcessManifest{Id: "web", Shell: "sleep 30"}
	Convey("Given a served monitor with a running child", t, withServer(t, m,
		func(mon *procdog.Monitor, c *Client) {
			ctx := context.Background()
			So(mon.Start(), ShouldBeNil)
			So(waitWire(c, "running", 10*time.Second).State,
				ShouldEqual, "running")

			Convey("The log snapshot includes the launch line", func() {
				li, err := c.Log(ctx)
				So(err, ShouldBeNil)
				found := false
				for _, r := range li.Records {
					if strings.Contains(r.Text, "Started web") {
						found = true
					}
				}
				So(found, ShouldBeTrue)

				Convey("WaitLog picks up new lines", func() {
					go func() {
						time.Sleep(50 * time.Millisecond)
						mon.Signal(0) // logs the attempt
					}()
					wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
					defer cancel()
					li2, err := c.WaitLog(wctx, li)
					So(err, ShouldBeNil)
					So(len(li2.Records), ShouldBeGreaterThan, len(li.Records))
				})
			})
		}))
}

func TestHandlerWire(t *testing.T) {
	m := &procdog.ProcessManifest{Id: "web", Shell: "sleep 30"}
	Convey("Given a bare handler", t, func() {
		mon, err := procdog.NewMonitor(m)
		So(err, ShouldBeNil)
		mon.SetLogWriter(&testLog{t: t})
		Reset(func() {
			mon.Shutdown()
		})
		h := NewHandler(mon, "3.1.4")

		get := func(path string, hdr map[string]string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", path, nil)
			for k, v := range hdr {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			return w
		}

		Convey("GET / reports identity with an etag", func() {
			w := get("/", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Etag"), ShouldNotBeEmpty)
			info := &MonitorInfo{}
			So(json.Unmarshal(w.Body.Bytes(), info), ShouldBeNil)
			So(info.Version, ShouldEqual, "3.1.4")
		})

		Convey("GET /status honors If-None-Match", func() {
			w := get("/status", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			etag := w.Header().Get("Etag")
			So(etag, ShouldNotBeEmpty)

			w2 := get("/status", map[string]string{"If-None-Match": etag})
			So(w2.Code, ShouldEqual, http.StatusNotModified)
		})

		Convey("GET /status long-polls against an unchanged etag", func() {
			w := get("/status", nil)
			etag := w.Header().Get("Etag")
			begin := time.Now()
			w2 := get("/status", map[string]string{
				PollEtagHeader: etag,
				PollTimeHeader: "1",
			})
			So(w2.Code, ShouldEqual, http.StatusNotModified)
			So(time.Since(begin), ShouldBeGreaterThanOrEqualTo, time.Second)
		})

		Convey("GET /log answers with records and an etag", func() {
			w := get("/log", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Etag"), ShouldNotBeEmpty)
			recs := []procdog.LogRecord{}
			So(json.Unmarshal(w.Body.Bytes(), &recs), ShouldBeNil)
		})

		Convey("POST /stop while stopped is a conflict", func() {
			req := httptest.NewRequest("POST", "/stop", strings.NewReader(""))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusConflict)
			e := &Error{}
			So(json.Unmarshal(w.Body.Bytes(), e), ShouldBeNil)
			So(e.Message, ShouldNotBeEmpty)
		})

		Convey("POST /stop with a bad timeout is a client error", func() {
			req := httptest.NewRequest("POST", "/stop",
				strings.NewReader("timeout=eleven"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("POST /signal with a bad name is a client error", func() {
			req := httptest.NewRequest("POST", "/signal/BANANA", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
