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
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Formula renders a Homebrew formula for the release.  The url is the
// derived download location; the sha256 comes from the built tarball.
func (r *Record) Formula(tarball *Artifact) string {
	var f strings.Builder

	fmt.Fprintf(&f, "class %s < Formula\n", toClassName(r.Name))
	fmt.Fprintf(&f, "  desc %q\n", r.Description)
	fmt.Fprintf(&f, "  homepage %q\n", r.URL)
	fmt.Fprintf(&f, "  url %q\n", r.DownloadURL)
	fmt.Fprintf(&f, "  sha256 %q\n", tarball.SHA256)
	// Homebrew wants an SPDX identifier here.
	f.WriteString("  license \"Apache-2.0\"\n")
	fmt.Fprintf(&f, "  version %q\n", r.Version)
	f.WriteString("\n")
	f.WriteString("  depends_on \"go\" => :build\n")
	f.WriteString("\n")
	f.WriteString("  def install\n")
	for _, script := range r.Scripts {
		fmt.Fprintf(&f, "    system \"go\", \"build\", *std_go_args(ldflags: \"-s -w\"), \"./%s\"\n", script)
	}
	f.WriteString("  end\n")
	f.WriteString("\n")
	f.WriteString("  test do\n")
	fmt.Fprintf(&f, "    assert_match version.to_s, shell_output(\"#{bin}/%s version\")\n", r.Name)
	f.WriteString("  end\n")
	f.WriteString("end\n")

	return f.String()
}

// WriteFormula writes the formula for the release tarball to path.
func (r *Record) WriteFormula(path string, tarball *Artifact) error {
	if err := os.WriteFile(path, []byte(r.Formula(tarball)), 0644); err != nil {
		return errArtifact(path, err)
	}
	return nil
}

// toClassName converts a package name to a Ruby class name.
func toClassName(name string) string {
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	words := strings.Fields(name)
	for i, word := range words {
		rs := []rune(strings.ToLower(word))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, "")
}
