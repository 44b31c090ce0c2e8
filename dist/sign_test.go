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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKey(t *testing.T) (string, *openpgp.Entity) {
	t.Helper()
	entity, err := openpgp.NewEntity("Procdog Test", "", "test@example.com", nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.asc")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := armor.Encode(f, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(w, nil))
	require.NoError(t, w.Close())

	return path, entity
}

func TestSignDetached(t *testing.T) {
	keyPath, entity := writeTestKey(t)

	signer, err := NewSigner(keyPath, "")
	require.NoError(t, err)

	data := []byte("checksums to vouch for\n")
	sig, err := signer.SignDetached(data)
	require.NoError(t, err)
	assert.Contains(t, string(sig), "BEGIN PGP SIGNATURE")

	keyring := openpgp.EntityList{entity}
	_, err = openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(data), bytes.NewReader(sig), nil)
	assert.NoError(t, err)
}

func TestSignFile(t *testing.T) {
	keyPath, entity := writeTestKey(t)
	signer, err := NewSigner(keyPath, "")
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "CHECKSUMS")
	data := []byte("File: procdog-1.2.0.tar.gz\n")
	require.NoError(t, os.WriteFile(src, data, 0644))

	sigPath := src + ".asc"
	require.NoError(t, signer.SignFile(src, sigPath))

	sig, err := os.ReadFile(sigPath)
	require.NoError(t, err)

	keyring := openpgp.EntityList{entity}
	_, err = openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(data), bytes.NewReader(sig), nil)
	assert.NoError(t, err)
}

func TestNewSignerMissingKey(t *testing.T) {
	_, err := NewSigner(filepath.Join(t.TempDir(), "nope.asc"), "")
	require.Error(t, err)
	var derr *Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, ErrSigning, derr.Kind)
}

func TestNewSignerEmptyPath(t *testing.T) {
	_, err := NewSigner("", "")
	require.Error(t, err)
}
