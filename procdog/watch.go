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
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlevy/procdog"
	"github.com/jlevy/procdog/rest"
)

// watchCmd is the watchdog daemon itself.  `procdog start` spawns it in
// a fresh session; nobody types it by hand, hence hidden.  It reads the
// manifest handoff file from the process's runtime dir, supervises the
// child, and serves the control API on the Unix socket until told to
// shut down.
var watchCmd = &cobra.Command{
	Use:    "watch <id>",
	Short:  "Run the watchdog daemon for a process (internal)",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(id string) error {
	base := baseDir()
	dir, err := procdog.EnsureProcDir(base, id)
	if err != nil {
		return err
	}
	log.SetPrefix("[" + id + "] ")

	if monitorAlive(base, id) {
		return fmt.Errorf("%s: watchdog %w", id, procdog.ErrAlreadyRunning)
	}

	manifest, err := procdog.LoadManifestFile(procdog.ManifestPath(base, id))
	if err != nil {
		return err
	}
	if manifest.Id != id {
		return fmt.Errorf("manifest in %s is for %q, not %q", dir, manifest.Id, id)
	}

	if err := procdog.WritePidFile(procdog.PidPath(base, id)); err != nil {
		return err
	}
	defer procdog.RemoveRuntime(base, id)

	// A stale socket from a crashed watchdog would make Listen fail.
	// The pid file check above already ruled out a live owner.
	sock := procdog.SocketPath(base, id)
	os.Remove(sock)
	l, err := net.Listen("unix", sock)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", sock, err)
	}

	mon, err := procdog.NewMonitor(manifest)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: rest.NewHandler(mon, toolVersion())}
	go srv.Serve(l)

	// A launch failure is not fatal: the watchdog stays up so the
	// client that spawned us can read the Failed status and the log.
	if err := mon.Start(); err != nil {
		log.Printf("start failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	select {
	case sig := <-sigCh:
		log.Printf("caught %v, shutting down", sig)
		mon.Shutdown()
	case <-mon.Done():
		// Shut down over the control API.
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	return nil
}
