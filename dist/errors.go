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

package dist

import "fmt"

// ErrorKind represents different categories of packaging errors.
type ErrorKind int

const (
	// ErrManifest means the identity manifest could not be read at all.
	ErrManifest ErrorKind = iota

	// ErrIncomplete means the manifest was read but a required key
	// is missing or empty.
	ErrIncomplete

	// ErrArtifact means an output artifact could not be produced.
	ErrArtifact

	// ErrSigning means a signature was requested but could not be made.
	ErrSigning
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrManifest:
		return "Manifest"
	case ErrIncomplete:
		return "Incomplete"
	case ErrArtifact:
		return "Artifact"
	case ErrSigning:
		return "Signing"
	default:
		return "Unknown"
	}
}

// Error represents a failure during package assembly.  Every kind is
// fatal to the run; the kind exists so callers can report what stage
// failed, not so they can recover.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

func errManifest(path string, err error) error {
	return &Error{Kind: ErrManifest, Path: path, Err: err}
}

func errIncomplete(path string, err error) error {
	return &Error{Kind: ErrIncomplete, Path: path, Err: err}
}

func errArtifact(path string, err error) error {
	return &Error{Kind: ErrArtifact, Path: path, Err: err}
}

func errSigning(path string, err error) error {
	return &Error{Kind: ErrSigning, Path: path, Err: err}
}
