package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrKeyNotFound is returned by a KVStore when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrMalformedRecord is returned by a strict store when a collection fails to decode.
	ErrMalformedRecord = errors.New("malformed record")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StorageError reports that the underlying store could not be read or written
// (disabled storage, quota exceeded, lost connection...).
type StorageError struct {
	Op         string // read | write
	Collection string
	Err        error
}

func (err *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", err.Op, err.Collection, err.Err)
}

func (err *StorageError) Unwrap() error { return err.Err }

// IsStorageUnavailable reports whether err (or any error it wraps) is a *StorageError.
func IsStorageUnavailable(err error) bool {
	for err != nil {
		if _, ok := err.(*StorageError); ok {
			return true
		}
		if u, ok := err.(interface{ Unwrap() error }); ok {
			err = u.Unwrap()
			continue
		}
		if c, ok := err.(interface{ Cause() error }); ok {
			err = c.Cause()
			continue
		}
		return false
	}
	return false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
