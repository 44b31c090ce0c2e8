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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Artifact describes one produced release file.  Checksums live here
// and not in the metadata record: the record must not change byte for
// byte between runs, and checksums of a fresh tarball always would.
type Artifact struct {
	Path   string
	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
}

// ChecksumFile computes every digest for the file in a single pass.
func ChecksumFile(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errArtifact(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errArtifact(path, err)
	}

	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	multi := io.MultiWriter(md5Hash, sha1Hash, sha256Hash, sha512Hash)
	if _, err := io.Copy(multi, f); err != nil {
		return nil, errArtifact(path, err)
	}

	return &Artifact{
		Path:   path,
		Size:   info.Size(),
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
	}, nil
}

// EncodeChecksums renders artifacts as control-style stanzas, sorted by
// file name, one blank line between stanzas.
func EncodeChecksums(artifacts []*Artifact) []byte {
	sorted := make([]*Artifact, len(artifacts))
	copy(sorted, artifacts)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i].Path) < filepath.Base(sorted[j].Path)
	})

	var buf bytes.Buffer
	for _, a := range sorted {
		fmt.Fprintf(&buf, "File: %s\n", filepath.Base(a.Path))
		fmt.Fprintf(&buf, "Size: %d\n", a.Size)
		fmt.Fprintf(&buf, "MD5sum: %s\n", a.MD5)
		fmt.Fprintf(&buf, "SHA1: %s\n", a.SHA1)
		fmt.Fprintf(&buf, "SHA256: %s\n", a.SHA256)
		fmt.Fprintf(&buf, "SHA512: %s\n", a.SHA512)
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// WriteChecksums writes the stanza rendering of artifacts to path.
func WriteChecksums(path string, artifacts []*Artifact) error {
	if err := os.WriteFile(path, EncodeChecksums(artifacts), 0644); err != nil {
		return errArtifact(path, err)
	}
	return nil
}
