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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormula(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)
	tarball := &Artifact{Path: "procdog-1.2.0.tar.gz", SHA256: "deadbeef"}

	out := rec.Formula(tarball)

	assert.Contains(t, out, "class Procdog < Formula\n")
	assert.Contains(t, out, `desc "A process supervisor"`)
	assert.Contains(t, out, `homepage "https://github.com/jlevy/procdog"`)
	assert.Contains(t, out, `url "https://github.com/jlevy/procdog/tarball/1.2.0"`)
	assert.Contains(t, out, `sha256 "deadbeef"`)
	assert.Contains(t, out, `license "Apache-2.0"`)
	assert.Contains(t, out, `version "1.2.0"`)
	assert.Contains(t, out, `depends_on "go" => :build`)
	assert.Contains(t, out, `"./procdog"`)
	assert.Contains(t, out, "#{bin}/procdog version")
}

func TestWriteFormula(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)
	tarball := &Artifact{SHA256: "cafe"}

	path := filepath.Join(t.TempDir(), "procdog.rb")
	require.NoError(t, rec.WriteFormula(path, tarball))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Formula(tarball), string(b))
}

func TestToClassName(t *testing.T) {
	assert.Equal(t, "Procdog", toClassName("procdog"))
	assert.Equal(t, "ProcDog", toClassName("proc-dog"))
	assert.Equal(t, "ProcDog", toClassName("proc_dog"))
}
