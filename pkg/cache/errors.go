package cache

import (
	"errors"
	"fmt"
)

// ErrorType categorizes cache failures.
type ErrorType string

const (
	ErrorTypeInit  ErrorType = "init"
	ErrorTypeRead  ErrorType = "read"
	ErrorTypeWrite ErrorType = "write"
)

// ErrCorrupt marks a record that exists but cannot be decoded into the
// expected shape.
var ErrCorrupt = errors.New("corrupt cache record")

// ErrEmptyKey is returned for operations on the empty key, which has no
// record file.
var ErrEmptyKey = errors.New("empty cache key")

// InitError is returned when a store cannot prepare its root directory.
type InitError struct {
	Dir string
	Err error
}

// Error implements the error interface
func (e *InitError) Error() string {
	return fmt.Sprintf("initialize cache root %s: %v", e.Dir, e.Err)
}

// Unwrap returns the underlying error
func (e *InitError) Unwrap() error {
	return e.Err
}

// Type returns ErrorTypeInit.
func (e *InitError) Type() ErrorType {
	return ErrorTypeInit
}

// ReadError is returned when a record exists but cannot be retrieved.
type ReadError struct {
	Key  Key
	Path string
	Err  error
}

// Error implements the error interface
func (e *ReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("read cache record %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("read cache record %q (%s): %v", e.Key, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Type returns ErrorTypeRead.
func (e *ReadError) Type() ErrorType {
	return ErrorTypeRead
}

// Corrupt reports whether the record was present but undecodable.
func (e *ReadError) Corrupt() bool {
	return errors.Is(e.Err, ErrCorrupt)
}

// WriteError is returned when a record cannot be encoded or persisted.
type WriteError struct {
	Key  Key
	Path string
	Err  error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("write cache record %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("write cache record %q (%s): %v", e.Key, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Type returns ErrorTypeWrite.
func (e *WriteError) Type() ErrorType {
	return ErrorTypeWrite
}

// IsInitError reports whether err is, or wraps, an *InitError.
func IsInitError(err error) bool {
	var target *InitError
	return errors.As(err, &target)
}

// IsReadError reports whether err is, or wraps, a *ReadError.
func IsReadError(err error) bool {
	var target *ReadError
	return errors.As(err, &target)
}

// IsWriteError reports whether err is, or wraps, a *WriteError.
func IsWriteError(err error) bool {
	var target *WriteError
	return errors.As(err, &target)
}

// IsCorrupt reports whether err marks a record that could not be decoded.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
