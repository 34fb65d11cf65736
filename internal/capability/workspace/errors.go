package workspace

import (
	"errors"
	"fmt"
)

// RootError is returned when the workspace root cannot be used.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid workspace root %s: %v", e.Root, e.Cause)
}
func (e *RootError) Unwrap() error { return e.Cause }

// IgnoreReadError is returned when .gitignore exists but cannot be read.
type IgnoreReadError struct {
	Path  string
	Cause error
}

func (e *IgnoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore at %s: %v", e.Path, e.Cause)
}
func (e *IgnoreReadError) Unwrap() error { return e.Cause }

// TooLargeError is returned when a file exceeds the read limit.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, limit is %d", e.Path, e.Size, e.Limit)
}

// -- Sentinels --

var (
	ErrOutsideWorkspace = errors.New("path is outside workspace root")
	ErrNotADirectory    = errors.New("not a directory")
	ErrIsDirectory      = errors.New("path is a directory")
	ErrBinaryFile       = errors.New("binary files cannot be read")
	ErrNotFound         = errors.New("path does not exist")
	ErrNegativeOffset   = errors.New("offset cannot be negative")
	ErrNegativeLimit    = errors.New("limit cannot be negative")
)
