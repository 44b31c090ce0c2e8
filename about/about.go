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

// Package about holds the project's identity manifest.  The version and
// descriptions live in about.toml and nowhere else: the procdog binary
// embeds the file at build time, and procdog-dist reads the same file
// from the source tree when it assembles the package metadata record.
// Keeping one copy prevents the tool's self-reported version from ever
// drifting from the version the distribution declares.
package about

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed about.toml
var embedded []byte

// Info is the parsed manifest.  Every field is required; values pass
// through exactly as written, with no trimming or case changes.
type Info struct {
	Version         string `toml:"version"`
	Description     string `toml:"description"`
	LongDescription string `toml:"long_description"`
}

// MissingKeyError reports a required manifest key that is absent or
// empty.  Packaging treats this differently from an unreadable file,
// so it gets its own type.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("about manifest: missing %s", e.Key)
}

// Validate reports the first missing or empty field.  An empty value is
// as much of a packaging bug as an absent key.
func (i *Info) Validate() error {
	for _, f := range []struct{ key, val string }{
		{"version", i.Version},
		{"description", i.Description},
		{"long_description", i.LongDescription},
	} {
		if f.val == "" {
			return &MissingKeyError{Key: f.key}
		}
	}
	return nil
}

// Parse decodes and validates manifest bytes.  Unknown keys are an
// error: a typoed key would otherwise silently leave a required value
// empty at packaging time.
func Parse(b []byte) (*Info, error) {
	info := &Info{}
	meta, err := toml.Decode(string(b), info)
	if err != nil {
		return nil, fmt.Errorf("about manifest: %w", err)
	}
	if und := meta.Undecoded(); len(und) > 0 {
		return nil, fmt.Errorf("about manifest: unknown key %q", und[0].String())
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// Load parses the manifest compiled into this binary.
func Load() (*Info, error) {
	return Parse(embedded)
}

// LoadFile parses a manifest from the source tree; this is the packaging
// side of the contract.  A missing file surfaces the underlying path
// error so build diagnostics stay precise.
func LoadFile(path string) (*Info, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read about manifest: %w", err)
	}
	return Parse(b)
}
