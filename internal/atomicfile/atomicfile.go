// Package atomicfile provides the write primitives shared by the collection
// and configuration stores: readers never observe a partially written file,
// and new files are published without clobbering existing ones.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// rename is swapped out by tests.
var rename = os.Rename

// WriteFile replaces path with data. The bytes are written to a temporary
// file in the same directory, fsynced, then renamed over path. On any
// failure the previous content of path is left untouched.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(tmp), err)
	}
	syncDir(filepath.Dir(path))
	return nil
}

// Publish creates path with data, failing with an error matching fs.ErrExist
// if path is already present. The file appears fully written or not at all.
func Publish(path string, data []byte, perm os.FileMode) error {
	tmp, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	linkErr := os.Link(tmp, path)
	if linkErr == nil {
		syncDir(filepath.Dir(path))
		return nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return linkErr
	}

	// Some filesystems refuse hard links; fall back to an exclusive create.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// syncDir flushes the directory entry after a rename; errors are ignored
// because not every platform supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
