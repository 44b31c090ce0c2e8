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
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func makeSourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "procdog.go"), []byte("package main\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rest"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rest", "client.go"), []byte("package rest\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: x\n"), 0644))
	return dir
}

func readTarNames(t *testing.T, r io.Reader) (names []string, metadata string) {
	t.Helper()
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
		if filepath.Base(hdr.Name) == "METADATA" {
			b, err := io.ReadAll(tr)
			require.NoError(t, err)
			metadata = string(b)
		}
	}
	return names, metadata
}

func TestBuildArchiveGzip(t *testing.T) {
	src := makeSourceTree(t)
	rec, err := Build(testInfo())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), rec.TarballName(false))
	assert.Equal(t, "procdog-1.2.0.tar.gz", filepath.Base(out))
	require.NoError(t, rec.BuildArchive(src, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	names, metadata := readTarNames(t, gz)
	assert.Contains(t, names, "procdog-1.2.0/procdog.go")
	assert.Contains(t, names, "procdog-1.2.0/rest/client.go")
	assert.Contains(t, names, "procdog-1.2.0/METADATA")
	for _, name := range names {
		assert.True(t, filepath.IsLocal(name))
		assert.NotContains(t, name, ".git")
	}
	assert.Contains(t, metadata, "Name: procdog\n")
	assert.Contains(t, metadata, "Download-URL: https://github.com/jlevy/procdog/tarball/1.2.0\n")
}

func TestBuildArchiveXz(t *testing.T) {
	src := makeSourceTree(t)
	rec, err := Build(testInfo())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), rec.TarballName(true))
	assert.Equal(t, "procdog-1.2.0.tar.xz", filepath.Base(out))
	require.NoError(t, rec.BuildArchive(src, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)

	names, _ := readTarNames(t, xr)
	assert.Contains(t, names, "procdog-1.2.0/procdog.go")
	assert.Contains(t, names, "procdog-1.2.0/METADATA")
}

func TestBuildArchiveMissingSource(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), rec.TarballName(false))
	err = rec.BuildArchive(filepath.Join(t.TempDir(), "does-not-exist"), out)
	require.Error(t, err)

	// No partial archive left behind.
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestChecksumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.tar.gz")
	content := []byte("procdog release bytes\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	a, err := ChecksumFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, a.Path)
	assert.Equal(t, int64(len(content)), a.Size)
	assert.Len(t, a.MD5, 32)
	assert.Len(t, a.SHA1, 40)
	assert.Len(t, a.SHA256, 64)
	assert.Len(t, a.SHA512, 128)

	again, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestChecksumFileMissing(t *testing.T) {
	_, err := ChecksumFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestEncodeChecksums(t *testing.T) {
	arts := []*Artifact{
		{Path: "/tmp/b.tar.xz", Size: 2, MD5: "m2", SHA1: "s2", SHA256: "h2", SHA512: "x2"},
		{Path: "/tmp/a.tar.gz", Size: 1, MD5: "m1", SHA1: "s1", SHA256: "h1", SHA512: "x1"},
	}
	out := string(EncodeChecksums(arts))

	// Stanzas come out sorted by file name regardless of input order.
	assert.Contains(t, out, "File: a.tar.gz\nSize: 1\nMD5sum: m1\nSHA1: s1\nSHA256: h1\nSHA512: x1\n\n")
	assert.Contains(t, out, "File: b.tar.xz\n")
	assert.Less(t, strings.Index(out, "File: a.tar.gz"), strings.Index(out, "File: b.tar.xz"))
}
