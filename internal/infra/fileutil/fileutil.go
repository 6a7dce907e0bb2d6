// Package fileutil holds the file primitives shared by the file-backed stores:
// an advisory lock guarding a directory across processes and an atomic write.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock is an flock(2) lock held on a dedicated lock file.
// Readers share it; writers hold it exclusively.
type Lock struct {
	path string
}

// NewLock returns a lock backed by the file at path.
// The file and its directory are created on first use.
func NewLock(path string) *Lock {
	return &Lock{path: path}
}

// Shared runs fn while holding a shared lock.
func (l *Lock) Shared(fn func() error) error {
	return l.run(syscall.LOCK_SH, fn)
}

// Exclusive runs fn while holding an exclusive lock.
func (l *Lock) Exclusive(fn func() error) error {
	return l.run(syscall.LOCK_EX, fn)
}

func (l *Lock) run(how int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// WriteAtomic replaces path with data through a synced temp file in the same
// directory, so readers see either the old or the new content.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}
