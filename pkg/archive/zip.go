// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
)

// PackFS writes the files under bfs to zw as a zip archive.
//
// Entries are written in walk order (lexicographic within each directory) and
// without modification times so identical trees produce identical archives.
// Directories whose base name matches one of excludeDirs are pruned entirely.
// Empty directories are not represented.
func PackFS(bfs billy.Filesystem, zw *zip.Writer, excludeDirs ...string) (*ContentSummary, error) {
	cs := ContentSummary{
		Files:      make([]string, 0),
		FileHashes: make([]string, 0),
	}
	err := util.Walk(bfs, "/", func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(filepath.ToSlash(path), "/")
		if name == "" {
			return nil
		}
		if info.IsDir() {
			if slices.Contains(excludeDirs, info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		h, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		// h.Name is initialized to info.Name() which only contains the base
		// filename. To fix this, use the slash-separated path from the root.
		h.Name = name
		h.Modified = time.Time{}
		h.Method = zip.Deflate
		w, err := zw.CreateHeader(h)
		if err != nil {
			return err
		}
		hash := sha256.New()
		if info.Mode()&fs.ModeSymlink != 0 {
			target, err := bfs.Readlink(path)
			if err != nil {
				return err
			}
			if _, err := io.MultiWriter(w, hash).Write([]byte(target)); err != nil {
				return err
			}
			cs.TotalSize += int64(len(target))
		} else {
			f, err := bfs.Open(path)
			if err != nil {
				return err
			}
			written, err := io.Copy(io.MultiWriter(w, hash), f)
			f.Close()
			if err != nil {
				return err
			}
			cs.TotalSize += written
		}
		cs.Files = append(cs.Files, name)
		cs.FileHashes = append(cs.FileHashes, hex.EncodeToString(hash.Sum(nil)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking source tree")
	}
	return &cs, nil
}

// NewContentSummaryFromZip returns a ContentSummary for a zip archive.
func NewContentSummaryFromZip(zr *zip.Reader) (*ContentSummary, error) {
	cs := ContentSummary{
		Files:      make([]string, 0),
		FileHashes: make([]string, 0),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		buf, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		cs.Files = append(cs.Files, f.Name)
		cs.TotalSize += int64(len(buf))
		h := sha256.Sum256(buf)
		cs.FileHashes = append(cs.FileHashes, hex.EncodeToString(h[:]))
	}
	return &cs, nil
}

// ZipEntry represents an entry in a zip archive.
type ZipEntry struct {
	*zip.FileHeader
	Body []byte
}

// WriteTo writes the ZipEntry to a zip writer.
func (e ZipEntry) WriteTo(zw *zip.Writer) error {
	fw, err := zw.CreateHeader(e.FileHeader)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, bytes.NewReader(e.Body)); err != nil {
		return err
	}
	return nil
}

// ToZipCompatibleReader coerces an io.Reader into an io.ReaderAt required to construct a zip.Reader.
func ToZipCompatibleReader(r io.Reader) (io.ReaderAt, int64, error) {
	seeker, seekerOK := r.(io.Seeker)
	readerAt, readerOK := r.(io.ReaderAt)
	if seekerOK && readerOK {
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, errors.Wrap(err, "locating reader position")
		}
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, errors.Wrap(err, "retrieving size")
		}
		if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
			return nil, 0, errors.Wrap(err, "restoring reader position")
		}
		return readerAt, size, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, errors.New("unsupported reader")
	}
	return bytes.NewReader(b), int64(len(b)), nil
}
