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
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Client talks to one watchdog over its Unix domain socket.  Reads cache
// the last value with its Etag, so repeated gets are cheap and watches
// long-poll instead of spinning.
type Client struct {
	sock   string
	base   string
	client *http.Client

	// Cached data
	info   *MonitorInfo
	status *StatusInfo
	log    *LogInfo
	lock   sync.Mutex
}

// NewClient returns a client for the watchdog listening on sockPath.  No
// connection is attempted until the first call.
func NewClient(sockPath string) *Client {
	t := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", sockPath)
		},
		// One watchdog, one socket; no reason to hoard sockets.
		MaxIdleConns: 2,
	}
	return &Client{
		sock: sockPath,
		// The host is a placeholder; the transport always dials the
		// socket regardless.
		base:   "http://procdog",
		client: &http.Client{Transport: t},
	}
}

// Socket returns the socket path this client dials.
func (c *Client) Socket() string {
	return c.sock
}

// poll issues a GET, optionally as a long poll against a known Etag.  On
// 304 it returns an empty etag and nil error, meaning "unchanged".
func (c *Client) poll(ctx context.Context, path string, etag string, wait time.Duration, v interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.base+path, nil)
	if err != nil {
		return "", err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(int(wait/time.Second)))
		}
	}
	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", decodeError(res)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return "", err
	}
	return res.Header.Get("Etag"), nil
}

// post issues a POST with optional form values, decoding a 200 body into
// v when v is non-nil.
func (c *Client) post(ctx context.Context, path string, form url.Values, v interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return decodeError(res)
	}
	if v == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}

// decodeError prefers the server's JSON error body, falling back to the
// HTTP status line.
func decodeError(res *http.Response) error {
	e := &Error{}
	if b, err := io.ReadAll(res.Body); err == nil {
		if json.Unmarshal(b, e) == nil && e.Message != "" {
			e.Code = res.StatusCode
			return e
		}
	}
	return &Error{Code: res.StatusCode, Message: res.Status}
}

// Info fetches the watchdog's identity.
func (c *Client) Info(ctx context.Context) (*MonitorInfo, error) {
	v := &MonitorInfo{}
	etag, err := c.poll(ctx, "/", "", 0, v)
	if err != nil {
		return nil, err
	}
	v.etag = etag
	c.lock.Lock()
	c.info = v
	c.lock.Unlock()
	return v, nil
}

// Handshake fetches MonitorInfo and compares versions.  A major version
// difference returns the info together with ErrVersionSkew; callers
// usually warn and continue.  Unparseable versions (dev builds) never
// count as skew.
func (c *Client) Handshake(ctx context.Context, ownVersion string) (*MonitorInfo, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	ours, err1 := semver.NewVersion(ownVersion)
	theirs, err2 := semver.NewVersion(info.Version)
	if err1 == nil && err2 == nil && ours.Major() != theirs.Major() {
		return info, fmt.Errorf("%w: client %s, monitor %s",
			ErrVersionSkew, ownVersion, info.Version)
	}
	return info, nil
}

func (c *Client) pollStatus(ctx context.Context, wait time.Duration, last *StatusInfo) (*StatusInfo, error) {
	c.lock.Lock()
	cached := c.status
	c.lock.Unlock()

	otag := ""
	if last == nil {
		wait = 0
	} else if cached != nil && last.etag != cached.etag {
		// The cache already moved past what the caller has seen.
		return cached, nil
	} else {
		otag = last.etag
	}

	v := &StatusInfo{}
	etag, err := c.poll(ctx, "/status", otag, wait, v)
	if err != nil {
		c.lock.Lock()
		c.status = nil
		c.lock.Unlock()
		return nil, err
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.status = v
	c.lock.Unlock()
	return v, nil
}

// Status fetches the current status.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	return c.pollStatus(ctx, 0, nil)
}

// WaitStatus long-polls for a status change past the one the caller
// holds.  It returns the freshest status available; compare Etag equality
// via the returned pointer to detect a timeout.
func (c *Client) WaitStatus(ctx context.Context, last *StatusInfo) (*StatusInfo, error) {
	return c.pollStatus(ctx, maxPollTime, last)
}

func (c *Client) pollLog(ctx context.Context, wait time.Duration, last *LogInfo) (*LogInfo, error) {
	c.lock.Lock()
	cached := c.log
	c.lock.Unlock()

	otag := ""
	if last == nil {
		wait = 0
	} else if cached != nil && last.etag != cached.etag {
		return cached, nil
	} else {
		otag = last.etag
	}

	v := &LogInfo{}
	etag, err := c.poll(ctx, "/log", otag, wait, &v.Records)
	if err != nil {
		c.lock.Lock()
		c.log = nil
		c.lock.Unlock()
		return nil, err
	}
	if etag == "" {
		return cached, nil
	}
	v.etag = etag
	c.lock.Lock()
	c.log = v
	c.lock.Unlock()
	return v, nil
}

// Log fetches the retained log records.
func (c *Client) Log(ctx context.Context) (*LogInfo, error) {
	return c.pollLog(ctx, 0, nil)
}

// WaitLog long-polls for log growth past the snapshot the caller holds.
func (c *Client) WaitLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	return c.pollLog(ctx, maxPollTime, last)
}

// Stop asks the watchdog to stop the child.  Empty signal and zero
// timeout use the manifest's defaults.  The final status is returned.
func (c *Client) Stop(ctx context.Context, signal string, timeout time.Duration) (*StatusInfo, error) {
	form := url.Values{}
	if signal != "" {
		form.Set("signal", signal)
	}
	if timeout > 0 {
		form.Set("timeout", timeout.String())
	}
	v := &StatusInfo{}
	if err := c.post(ctx, "/stop", form, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Restart stops the child if needed and starts it afresh.
func (c *Client) Restart(ctx context.Context) (*StatusInfo, error) {
	v := &StatusInfo{}
	if err := c.post(ctx, "/restart", nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Signal delivers a signal, by name or number, to the child.
func (c *Client) Signal(ctx context.Context, signal string) (*StatusInfo, error) {
	v := &StatusInfo{}
	if err := c.post(ctx, "/signal/"+url.PathEscape(signal), nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Check runs the health check immediately.  An unhealthy result comes
// back as an *Error with a 502 code.
func (c *Client) Check(ctx context.Context) (*StatusInfo, error) {
	v := &StatusInfo{}
	if err := c.post(ctx, "/check", nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Shutdown retires the watchdog itself, stopping the child first if it
// is still running.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.post(ctx, "/shutdown", nil, nil)
}
