// Package archive walks markup files stored in zip archives.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/encoding"
)

// Entry is a file inside archive. Name is the entry path with non UTF-8
// names converted by the decoder given to Walk.
type Entry struct {
	Archive string
	Name    string
	File    *zip.File
	// NameErr is set when the decoder could not convert the name, Name is
	// left as stored then.
	NameErr error
}

// WalkFunc is called for each regular file under the walked prefix. If an
// error is returned, processing stops.
type WalkFunc func(e Entry) error

// Walk calls walkFn for every file in archive whose path starts with prefix,
// in the order they are stored. Entries with path traversal components
// ("..") or absolute paths fail the walk to prevent Zip Slip attacks. A nil
// dec leaves names as stored.
func Walk(archive, prefix string, dec *encoding.Decoder, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		e := Entry{Archive: archive, Name: name, File: f}
		if dec != nil && f.FileHeader.NonUTF8 {
			if n, err := dec.String(name); err == nil {
				e.Name = n
			} else {
				e.NameErr = err
			}
		}
		if err := walkFn(e); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
