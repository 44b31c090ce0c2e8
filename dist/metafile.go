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

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// EncodeMetadata renders the record as a control-style stanza, one
// "Key: value" line per field, in a fixed order.  Multi-line values use
// the Debian continuation convention: lines indented one space, blank
// lines written as a single dot.  The output is deterministic.
func (r *Record) EncodeMetadata() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Name: %s\n", r.Name)
	fmt.Fprintf(&buf, "Version: %s\n", r.Version)
	fmt.Fprintf(&buf, "Author: %s\n", r.Author)
	fmt.Fprintf(&buf, "License: %s\n", r.License)
	fmt.Fprintf(&buf, "Homepage: %s\n", r.URL)
	fmt.Fprintf(&buf, "Download-URL: %s\n", r.DownloadURL)
	fmt.Fprintf(&buf, "Scripts: %s\n", strings.Join(r.Scripts, ", "))

	if len(r.Requires) > 0 {
		fmt.Fprintf(&buf, "Requires: %s\n", strings.Join(r.Requires, ", "))
	}

	fmt.Fprintf(&buf, "Description: %s\n", r.Description)
	for _, line := range strings.Split(strings.TrimRight(r.LongDescription, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			buf.WriteString(" .\n")
		} else {
			fmt.Fprintf(&buf, " %s\n", line)
		}
	}

	buf.WriteString("Classifiers:\n")
	for _, c := range r.Classifiers {
		fmt.Fprintf(&buf, " %s\n", c)
	}

	return buf.Bytes()
}

// WriteMetadata writes the stanza rendering of the record to path.
func (r *Record) WriteMetadata(path string) error {
	if err := os.WriteFile(path, r.EncodeMetadata(), 0644); err != nil {
		return errArtifact(path, err)
	}
	return nil
}
