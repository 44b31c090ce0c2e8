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

// Package dist assembles distribution metadata and artifacts for
// procdog releases.  The dynamic fields (version and the two
// descriptions) come from the about manifest; everything else is a
// constant of the project.  The one derived field is the download URL,
// which is always the project homepage plus "/tarball/" plus the
// version, so a published tag and its tarball link can never disagree.
package dist

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/jlevy/procdog/about"
)

// Project constants.  These change only when the project itself does,
// never per release.
const (
	Name     = "procdog"
	Author   = "Joshua Levy"
	License  = "Apache 2"
	Homepage = "https://github.com/jlevy/procdog"
)

// Scripts lists the executables a distribution installs.  Procdog ships
// exactly one binary, named after the project.
var Scripts = []string{Name}

// Requires lists runtime dependencies.  Procdog is self-contained.
var Requires = []string{}

// Classifiers describe the project for package indexes.
var Classifiers = []string{
	"Development Status :: 4 - Beta",
	"Environment :: Console",
	"Intended Audience :: End Users/Desktop",
	"Intended Audience :: System Administrators",
	"Intended Audience :: Developers",
	"License :: OSI Approved :: Apache Software License",
	"Operating System :: MacOS :: MacOS X",
	"Operating System :: POSIX",
	"Operating System :: Unix",
	"Programming Language :: Go",
	"Topic :: Utilities",
	"Topic :: Software Development",
}

// Record is the complete package metadata for one release.  Field order
// is the serialization order; do not reorder.
type Record struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Author          string   `json:"author"`
	License         string   `json:"license"`
	URL             string   `json:"url"`
	DownloadURL     string   `json:"download_url"`
	Scripts         []string `json:"scripts"`
	Requires        []string `json:"install_requires"`
	Description     string   `json:"description"`
	LongDescription string   `json:"long_description"`
	Classifiers     []string `json:"classifiers"`
}

// Build assembles the metadata record for a release.  The manifest
// values pass through verbatim; no trimming, casing, or rewording.  An
// incomplete manifest fails here, before any artifact work starts.
func Build(info *about.Info) (*Record, error) {
	if err := info.Validate(); err != nil {
		return nil, errIncomplete("", err)
	}
	return &Record{
		Name:            Name,
		Version:         info.Version,
		Author:          Author,
		License:         License,
		URL:             Homepage,
		DownloadURL:     Homepage + "/tarball/" + info.Version,
		Scripts:         Scripts,
		Requires:        Requires,
		Description:     info.Description,
		LongDescription: info.LongDescription,
		Classifiers:     Classifiers,
	}, nil
}

// BuildFromFile loads the about manifest at path and builds the record
// from it.  An unreadable or malformed file is a manifest error; a
// well-formed file missing a required key is an incomplete one.
func BuildFromFile(path string) (*Record, error) {
	info, err := about.LoadFile(path)
	if err != nil {
		var missing *about.MissingKeyError
		if errors.As(err, &missing) {
			return nil, errIncomplete(path, err)
		}
		return nil, errManifest(path, err)
	}
	return Build(info)
}

// EncodeJSON renders the record as indented JSON with a trailing
// newline.  The encoding is deterministic: the same record always
// yields the same bytes.
func (r *Record) EncodeJSON() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteJSON writes the encoded record to path.
func (r *Record) WriteJSON(path string) error {
	b, err := r.EncodeJSON()
	if err != nil {
		return errArtifact(path, err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return errArtifact(path, err)
	}
	return nil
}
