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
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// TarballName returns the canonical archive file name for this release.
func (r *Record) TarballName(useXz bool) string {
	if useXz {
		return fmt.Sprintf("%s-%s.tar.xz", r.Name, r.Version)
	}
	return fmt.Sprintf("%s-%s.tar.gz", r.Name, r.Version)
}

// BuildArchive packs srcDir into a source tarball at outPath.  Every
// member sits under a "<name>-<version>/" prefix, VCS directories are
// skipped, and a METADATA stanza is appended as the final member.  The
// compression is chosen by the outPath suffix (".xz" selects xz,
// anything else gzip).  A partial archive is removed on failure.
func (r *Record) BuildArchive(srcDir, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return errArtifact(outPath, err)
	}
	if err := r.writeArchive(f, srcDir, outPath); err != nil {
		f.Close()
		os.Remove(outPath)
		return errArtifact(outPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return errArtifact(outPath, err)
	}
	return nil
}

func (r *Record) writeArchive(w io.Writer, srcDir, outPath string) error {
	var cw io.WriteCloser
	if strings.HasSuffix(outPath, ".xz") {
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		cw = xw
	} else {
		cw = gzip.NewWriter(w)
	}

	tw := tar.NewWriter(cw)
	prefix := fmt.Sprintf("%s-%s/", r.Name, r.Version)

	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return err
	}

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", ".hg", ".svn":
				return filepath.SkipDir
			}
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// Never pack the archive into itself.
		if abs, err := filepath.Abs(path); err == nil && abs == absOut {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = prefix + filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			src, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, src)
			src.Close()
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	meta := r.EncodeMetadata()
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     prefix + "METADATA",
		Mode:     0644,
		Size:     int64(len(meta)),
		ModTime:  time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if _, err := tw.Write(meta); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}
