package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/mwantia/gocatalog/pkg/dedup"
)

const (
	TempPrefix = ".gocatalog-"
	TempSuffix = ".tmp"
)

// IsTempFile reports whether name belongs to an in-flight write
func IsTempFile(name string) bool {
	name = filepath.Base(name)
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, TempSuffix)
}

// writeFile streams src into a temp file next to target, hashing it on the
// way, and moves it into place once the content is synced. An existing
// target is never replaced. The temp file is removed on every failure.
func writeFile(target string, src io.Reader) (string, int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, &FilesystemError{Op: "mkdir", Path: dir, Inner: err}
	}

	tmpPath := filepath.Join(dir, TempPrefix+uuid.NewString()+TempSuffix)
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, &FilesystemError{Op: "create", Path: tmpPath, Inner: err}
	}

	hash, size, err := dedup.CopyAndHash(tmp, src)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, &FilesystemError{Op: "write", Path: target, Inner: err}
	}

	if err := place(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, err
	}

	return hash, size, nil
}

// place moves tmpPath to target and fails if target already exists. A hard
// link gives the check and the move in one step; filesystems without hard
// links fall back to a check followed by a rename.
func place(tmpPath, target string) error {
	err := os.Link(tmpPath, target)
	if err == nil {
		_ = os.Remove(tmpPath)
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return &store.ConflictError{Conflict: fmt.Sprintf("%s already exists on disk", target)}
	}

	if _, statErr := os.Lstat(target); statErr == nil {
		return &store.ConflictError{Conflict: fmt.Sprintf("%s already exists on disk", target)}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return &FilesystemError{Op: "rename", Path: target, Inner: err}
	}
	return nil
}
