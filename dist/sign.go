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
	"crypto"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Signer produces armored detached signatures for release artifacts.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner loads a GPG private key from keyPath.  Armored keys are
// tried first, then raw binary.  If the key material is encrypted the
// passphrase unlocks the primary key and every subkey.
func NewSigner(keyPath, passphrase string) (*Signer, error) {
	if keyPath == "" {
		return nil, errSigning("", fmt.Errorf("key path is empty"))
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, errSigning(keyPath, err)
	}
	defer keyFile.Close()

	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		keyFile.Seek(0, 0)
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, errSigning(keyPath, fmt.Errorf("failed to read key: %w", err))
		}
	}
	if len(entityList) == 0 {
		return nil, errSigning(keyPath, fmt.Errorf("no keys found in key file"))
	}
	entity := entityList[0]

	if passphrase != "" {
		if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, errSigning(keyPath, fmt.Errorf("failed to decrypt private key: %w", err))
			}
		}
		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, errSigning(keyPath, fmt.Errorf("failed to decrypt subkey: %w", err))
				}
			}
		}
	}

	return &Signer{entity: entity}, nil
}

// SignDetached creates an armored detached signature over data.
func (s *Signer) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, errSigning("", fmt.Errorf("failed to create detached signature: %w", err))
	}
	return buf.Bytes(), nil
}

// SignFile signs the file at srcPath and writes the armored signature
// to sigPath.
func (s *Signer) SignFile(srcPath, sigPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return errSigning(srcPath, err)
	}
	sig, err := s.SignDetached(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(sigPath, sig, 0644); err != nil {
		return errSigning(sigPath, err)
	}
	return nil
}
