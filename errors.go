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
	"errors"
)

var (
	ErrNotRunning     = errors.New("Process is not running")
	ErrAlreadyRunning = errors.New("Process is already running")
	ErrRateLimited    = errors.New("Restarting too quickly")
	ErrNoCommand      = errors.New("No command or shell specified")
	ErrBadProcessId   = errors.New("Invalid process id")
	ErrBadSignal      = errors.New("Unknown signal name")
	ErrNoHealthCheck  = errors.New("No health check configured")
	ErrShutdown       = errors.New("Monitor is shutting down")
)
