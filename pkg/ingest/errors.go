package ingest

import (
	"errors"
	"fmt"
)

// FilesystemError reports a failed disk operation or an unsafe entry path
type FilesystemError struct {
	Op    string
	Path  string
	Inner error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Inner)
}

func (e *FilesystemError) Unwrap() error {
	return e.Inner
}

func IsFilesystem(err error) bool {
	var target *FilesystemError
	return errors.As(err, &target)
}
