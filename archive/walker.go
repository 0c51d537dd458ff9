// Package archive walks zip bundles without extracting them.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is called by Walk for every regular file entry whose name
// starts with the requested prefix. The archive argument is the path
// given to Walk, file is the matching entry. Returning an error stops
// the walk.
type WalkFunc func(archive string, file *zip.File) error

// Walk visits regular file entries of the zip archive in central
// directory order, calling walkFn for names starting with prefix. The
// empty prefix matches everything. An entry name that could escape an
// extraction root (absolute or with ".." components) aborts the walk.
func Walk(archive, prefix string, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !safeEntryName(name) {
			return fmt.Errorf("archive entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// safeEntryName rejects entry names able to climb out of an extraction
// root. Zip names use forward slashes, but hostile archives show up with
// backslashes too.
func safeEntryName(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	isSep := func(r rune) bool { return r == '/' || r == '\\' }
	for _, part := range strings.FieldsFunc(name, isSep) {
		if part == ".." {
			return false
		}
	}
	return true
}
