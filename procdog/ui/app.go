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

// Package ui implements the full screen monitor behind "procdog ui".
// Unlike the rest of the CLI it watches every process at once: ids are
// discovered from the runtime directory and each live watchdog is
// queried over its own control socket.
package ui

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/procdog/util"
	"github.com/jlevy/procdog/rest"
)

// opTimeout bounds the control calls made from key handlers and the
// per-id status sweep.
const opTimeout = 5 * time.Second

type App struct {
	app     *views.Application
	view    views.View
	panel   views.Widget
	info    *InfoPanel
	help    *HelpPanel
	log     *LogPanel
	main    *MainPanel
	base    string
	version string
	logger  *log.Logger
	err     error
	items   []*util.Row

	clients map[string]*rest.Client
	cmu     sync.Mutex

	kick chan struct{}

	logId     string
	logInfo   *rest.LogInfo
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func NewApp(base, version string) *App {
	a := &App{
		app:     &views.Application{},
		base:    base,
		version: version,
		clients: make(map[string]*rest.Client),
		kick:    make(chan struct{}, 1),
	}
	a.info = NewInfoPanel(a)
	a.help = NewHelpPanel(a)
	a.log = NewLogPanel(a)
	a.main = NewMainPanel(a, base)
	a.panel = a.main

	go a.refresh()
	return a
}

// client returns the cached control client for id.  Clients dial per
// request, so one survives watchdog restarts on the same socket path.
func (a *App) client(id string) *rest.Client {
	a.cmu.Lock()
	defer a.cmu.Unlock()
	c, ok := a.clients[id]
	if !ok {
		c = rest.NewClient(procdog.SocketPath(a.base, id))
		a.clients[id] = c
	}
	return c
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(id string) {
	a.info.SetId(id)
	a.show(a.info)
}

func (a *App) ShowLog(id string) {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.logInfo = nil
	a.logErr = nil
	a.logId = id
	a.logCancel = cancel
	a.log.SetId(id)
	go a.refreshLog(ctx, id)

	a.show(a.log)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

// poke wakes the refresh loop so the effect of an operation shows up
// without waiting out the tick.
func (a *App) poke() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// withClient runs one control call against id's watchdog off the event
// loop, then refreshes.  Errors surface through the next status sweep.
func (a *App) withClient(id string, fn func(context.Context, *rest.Client) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := fn(ctx, a.client(id)); err != nil {
			a.Logf("%s: %v", id, err)
		}
		a.poke()
	}()
}

// StopProcess stops the child; the watchdog stays to report on it.
func (a *App) StopProcess(id string) {
	a.withClient(id, func(ctx context.Context, c *rest.Client) error {
		_, err := c.Stop(ctx, "", 0)
		return err
	})
}

// KillProcess takes down the child and the watchdog both.
func (a *App) KillProcess(id string) {
	a.withClient(id, func(ctx context.Context, c *rest.Client) error {
		if _, err := c.Stop(ctx, "", 0); err != nil && !rest.IsNotRunning(err) {
			return err
		}
		return c.Shutdown(ctx)
	})
}

func (a *App) RestartProcess(id string) {
	a.withClient(id, func(ctx context.Context, c *rest.Client) error {
		_, err := c.Restart(ctx)
		return err
	})
}

// CheckProcess runs the health check out of schedule.
func (a *App) CheckProcess(id string) {
	a.withClient(id, func(ctx context.Context, c *rest.Client) error {
		_, err := c.Check(ctx)
		return err
	})
}

func (a *App) Quit() {
	a.app.Quit()
}

func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
}

func (a *App) Logf(fmt string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(fmt, v...)
	}
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// A few control keys are global.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetAppName() string {
	return "Procdog v" + a.version
}

// getItems sweeps the runtime directory and asks each live watchdog for
// its status.  Trouble with one id never hides the others.
func (a *App) getItems() ([]*util.Row, error) {
	ids, err := procdog.ListIds(a.base)
	if err != nil {
		return nil, err
	}
	rows := make([]*util.Row, 0, len(ids))
	for _, id := range ids {
		row := &util.Row{Id: id}
		if pid, alive := procdog.PidAlive(procdog.PidPath(a.base, id)); alive {
			row.Pid = pid
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			row.Status, row.Err = a.client(id).Status(ctx)
			cancel()
		}
		rows = append(rows, row)
	}
	util.SortRows(rows)
	return rows, nil
}

// refresh keeps the item list current.  New and removed ids show up via
// directory events; everything else rides the periodic tick, since each
// watchdog is its own server and there is no one etag to long-poll.
func (a *App) refresh() {
	var events chan fsnotify.Event
	var werrs chan error
	if w, err := fsnotify.NewWatcher(); err == nil {
		if w.Add(a.base) == nil {
			events = w.Events
			werrs = w.Errors
		} else {
			w.Close()
		}
	}

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		items, err := a.getItems()

		a.app.PostFunc(func() {
			a.items = items
			a.err = err
			a.app.Update()
		})
		select {
		case <-tick.C:
		case <-a.kick:
		case <-events:
		case <-werrs:
		}
	}
}

func (a *App) refreshLog(ctx context.Context, id string) {
	client := a.client(id)
	info, err := client.Log(ctx)

	for {
		a.app.PostFunc(func() {
			if a.logId == id {
				a.logInfo = info
				a.logErr = err
				a.app.Update()
			}
		})
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err != nil {
			// The watchdog may be down or mid-restart; retry slowly.
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			info, err = client.Log(ctx)
			continue
		}
		info, err = client.WaitLog(ctx, info)
	}
}

func (a *App) GetItems() ([]*util.Row, error) {
	return a.items, a.err
}

func (a *App) GetItem(id string) (*util.Row, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.Id == id {
			return i, nil
		}
	}
	return nil, errors.New("Process not found")
}

func (a *App) GetLog(id string) (*rest.LogInfo, error) {
	if a.logId == id {
		return a.logInfo, a.logErr
	}
	return nil, nil
}

func (a *App) Run() error {
	a.app.SetRootWidget(a)
	a.ShowMain()
	go func() {
		// Uptimes tick along even when nothing else changes.
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	return a.app.Run()
}
