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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlevy/procdog/about"
)

func testInfo() *about.Info {
	return &about.Info{
		Version:         "1.2.0",
		Description:     "A process supervisor",
		LongDescription: "Watches processes.\n\nRestarts them when they die.",
	}
}

func TestBuildRecord(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)

	assert.Equal(t, "procdog", rec.Name)
	assert.Equal(t, "1.2.0", rec.Version)
	assert.Equal(t, "Joshua Levy", rec.Author)
	assert.Equal(t, "Apache 2", rec.License)
	assert.Equal(t, "https://github.com/jlevy/procdog", rec.URL)
	assert.Equal(t, "https://github.com/jlevy/procdog/tarball/1.2.0", rec.DownloadURL)
	assert.Equal(t, []string{"procdog"}, rec.Scripts)
	assert.Empty(t, rec.Requires)
	assert.Contains(t, rec.Classifiers, "Programming Language :: Go")
}

func TestBuildPropagatesVerbatim(t *testing.T) {
	info := &about.Info{
		Version:         "0.0.1",
		Description:     "  spaced   description with ünicode  ",
		LongDescription: "line one\nline two\t(tabbed)",
	}
	rec, err := Build(info)
	require.NoError(t, err)

	// No trimming, casing, or rewording on the way through.
	assert.Equal(t, info.Description, rec.Description)
	assert.Equal(t, info.LongDescription, rec.LongDescription)
	assert.Equal(t, info.Version, rec.Version)
}

func TestBuildDownloadURL(t *testing.T) {
	for _, version := range []string{"0.1.9", "1.2.0", "2.0.0-rc1", "10.20.30"} {
		info := testInfo()
		info.Version = version
		rec, err := Build(info)
		require.NoError(t, err)
		assert.Equal(t, Homepage+"/tarball/"+version, rec.DownloadURL)
		assert.True(t, strings.HasSuffix(rec.DownloadURL, "/tarball/"+version))
	}
}

func TestBuildIncompleteManifest(t *testing.T) {
	for _, tc := range []struct {
		name string
		info *about.Info
	}{
		{"no version", &about.Info{Description: "d", LongDescription: "l"}},
		{"no description", &about.Info{Version: "1.0.0", LongDescription: "l"}},
		{"no long description", &about.Info{Version: "1.0.0", Description: "d"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.info)
			require.Error(t, err)
			var derr *Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, ErrIncomplete, derr.Kind)
		})
	}
}

func TestBuildFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "about.toml")
	content := `version = "1.2.0"
description = "A process supervisor"
long_description = """
Long form.
"""
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rec, err := BuildFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A process supervisor", rec.Description)
	assert.Equal(t, "https://github.com/jlevy/procdog/tarball/1.2.0", rec.DownloadURL)
}

func TestBuildFromFileMissing(t *testing.T) {
	_, err := BuildFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, ErrManifest, derr.Kind)
}

func TestBuildFromFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "about.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \n"), 0644))

	_, err := BuildFromFile(path)
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, ErrManifest, derr.Kind)
}

func TestBuildFromFileIncompleteKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "about.toml")
	content := `description = "A process supervisor"
long_description = "Long form."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := BuildFromFile(path)
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, ErrIncomplete, derr.Kind)
	assert.Contains(t, err.Error(), "version")
}

func TestBuildFromFileUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "about.toml")
	content := `version = "1.0.0"
description = "d"
long_description = "l"
verison = "typo"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := BuildFromFile(path)
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, ErrManifest, derr.Kind)
}

func TestEncodeJSONDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "about.toml")
	content := `version = "0.1.9"
description = "Lightweight command-line process control"
long_description = "Long form."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	first, err := BuildFromFile(path)
	require.NoError(t, err)
	second, err := BuildFromFile(path)
	require.NoError(t, err)

	b1, err := first.EncodeJSON()
	require.NoError(t, err)
	b2, err := second.EncodeJSON()
	require.NoError(t, err)

	// Same manifest in, same bytes out, run after run.
	assert.Equal(t, b1, b2)
	assert.True(t, strings.HasSuffix(string(b1), "\n"))
}

func TestEncodeJSONShape(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)
	b, err := rec.EncodeJSON()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{
		"name", "version", "author", "license", "url", "download_url",
		"scripts", "install_requires", "description", "long_description",
		"classifiers",
	} {
		assert.Contains(t, m, key)
	}

	// Empty requirements must encode as a list, not null.
	assert.Contains(t, string(b), `"install_requires": []`)
	assert.Less(t, strings.Index(string(b), `"name"`), strings.Index(string(b), `"version"`))
}

func TestWriteJSON(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, rec.WriteJSON(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	expect, err := rec.EncodeJSON()
	require.NoError(t, err)
	assert.Equal(t, expect, b)
}
