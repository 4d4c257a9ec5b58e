package ulog

import (
	"fmt"

	"github.com/pkg/errors"
)

type malformedInputError struct {
	msg string
}

func (e *malformedInputError) Error() string { return e.msg }

// NewMalformedInputError creates an error for input that cannot be
// parsed structurally: invalid XML or a legacy record too short to
// identify its event and job.
func NewMalformedInputError(msg string) error { return &malformedInputError{msg: msg} }

// NewMalformedInputErrorf creates a malformed input error with a
// formatted message.
func NewMalformedInputErrorf(msg string, args ...interface{}) error {
	return NewMalformedInputError(fmt.Sprintf(msg, args...))
}

// MakeMalformedInputError constructs a malformed input error from an
// existing error of any type.
func MakeMalformedInputError(err error) error {
	if err == nil {
		return nil
	}

	return NewMalformedInputError(err.Error())
}

// IsMalformedInputError tests an error object to see if it is a
// malformed input error, possibly wrapped.
func IsMalformedInputError(err error) bool {
	if err == nil {
		return false
	}

	switch e := errors.Cause(err).(type) {
	case *malformedInputError:
		return true
	case *FileError:
		return IsMalformedInputError(e.Err)
	default:
		return false
	}
}

// FileError associates a fatal error with the log file that caused
// it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Err) }

// Unwrap supports errors.Is and errors.As from the standard library.
func (e *FileError) Unwrap() error { return e.Err }

// MakeFileError attaches a path to an error. It returns nil if err is
// nil.
func MakeFileError(path string, err error) error {
	if err == nil {
		return nil
	}

	return &FileError{Path: path, Err: err}
}
