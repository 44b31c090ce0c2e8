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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMetadata(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)

	out := string(rec.EncodeMetadata())

	assert.True(t, strings.HasPrefix(out, "Name: procdog\n"))
	assert.Contains(t, out, "Version: 1.2.0\n")
	assert.Contains(t, out, "Author: Joshua Levy\n")
	assert.Contains(t, out, "License: Apache 2\n")
	assert.Contains(t, out, "Homepage: https://github.com/jlevy/procdog\n")
	assert.Contains(t, out, "Download-URL: https://github.com/jlevy/procdog/tarball/1.2.0\n")
	assert.Contains(t, out, "Scripts: procdog\n")
	assert.Contains(t, out, "Description: A process supervisor\n")

	// Empty requirements leave the field out entirely.
	assert.NotContains(t, out, "Requires:")
}

func TestEncodeMetadataContinuation(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)

	out := string(rec.EncodeMetadata())

	// Long description folds under Description with one-space
	// continuation lines; paragraph breaks become a lone dot.
	assert.Contains(t, out, "Description: A process supervisor\n Watches processes.\n .\n Restarts them when they die.\n")

	// Classifiers render one per continuation line.
	assert.Contains(t, out, "Classifiers:\n Development Status :: 4 - Beta\n")
	assert.Contains(t, out, "\n Programming Language :: Go\n")
}

func TestEncodeMetadataDeterministic(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)
	assert.Equal(t, rec.EncodeMetadata(), rec.EncodeMetadata())
}

func TestEncodeMetadataRequires(t *testing.T) {
	rec, err := Build(testInfo())
	require.NoError(t, err)
	rec.Requires = []string{"libc", "openssl"}

	out := string(rec.EncodeMetadata())
	assert.Contains(t, out, "Requires: libc, openssl\n")
}
