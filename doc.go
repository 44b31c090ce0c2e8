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

// Package procdog supervises a single operating system process.
//
// Unlike full supervision frameworks, procdog deliberately manages exactly
// one child per Monitor.  Each supervised process gets its own small
// watchdog daemon, which owns the child, restarts it according to policy,
// runs optional health checks, and answers a JSON control API on a Unix
// domain socket.  The command line tool in the procdog directory is a thin
// client over that API; it spawns the watchdog on demand and talks to it
// over the socket.
//
// This is intended for users and administrators who want to keep a handful
// of their own long running processes alive, not as a replacement for the
// system's init.  Only POSIX systems are supported.
package procdog
