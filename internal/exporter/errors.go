package exporter

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every *ConfigError via errors.Is.
	ErrConfig = errors.New("invalid export configuration")
	// ErrIO is matched by every *IOError via errors.Is.
	ErrIO = errors.New("export i/o failure")
	// ErrFileClosed is returned when writing to a file that was already closed.
	ErrFileClosed = errors.New("file already closed")
)

// ConfigError reports a configuration problem detected before or while resolving columns.
// It aborts the export run.
type ConfigError struct {
	// Field names the offending setting, e.g. "columns[2]".
	Field string
	Err   error
}

func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// IOError reports a failed filesystem or upload operation. It is never retried.
type IOError struct {
	// Op is one of open, write, close, archive, copy, move, delete, upload.
	Op   string
	Path string
	Err  error
}

func newIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("unable to %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
