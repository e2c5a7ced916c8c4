// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package blunder provides error-handling wrappers
//
// These wrappers allow callers to provide additional information in Go errors
// while still conforming to the Go error interface.
//
// This package provides APIs to attach an errno-valued TreeError to regular Go errors.
//
// This package is currently implemented on top of the ansel1/merry package:
//   https://github.com/ansel1/merry
//
//   merry comes with built-in support for adding information to errors:
//    - stacktraces
//    - overriding the error message
//    - your own additional information
//
// Only construction and configuration paths of the RR-Tree return errors.
// The push-down decision functions are total and never do.
package blunder

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/rrtree/logger"
)

// TreeError values map onto linux/POSIX errnos where a clear mapping exists,
// so callers that report errors across a process boundary can use the errno.
//
type TreeError int

const (
	InvalidArgError TreeError = TreeError(int(unix.EINVAL))          // Bad config value, nil payload, unknown kind
	NotFoundError   TreeError = TreeError(int(unix.ENOENT))          // Missing config option or object
	NoSpaceError    TreeError = TreeError(int(unix.ENOSPC))          // Buffer overflow
	InvariantError  TreeError = TreeError(int(unix.ENOTRECOVERABLE)) // Broken grouping/partitioning invariant
)

// Errors that map to constants already defined above
const (
	UnknownStrategyError TreeError = InvalidArgError
	BadCapacityError     TreeError = InvalidArgError
	BufferOverflowError  TreeError = NoSpaceError
	SplitInsertionError  TreeError = InvariantError
)

// Success error
const SuccessError TreeError = 0

// Default errno values for success and failure
const successErrno = 0
const failureErrno = -1

// Value returns the int value for the specified TreeError constant
func (err TreeError) Value() int {
	return int(err)
}

func (err TreeError) String() string {
	switch err {
	case SuccessError:
		return "SuccessError"
	case InvalidArgError:
		return "InvalidArgError"
	case NotFoundError:
		return "NotFoundError"
	case NoSpaceError:
		return "NoSpaceError"
	case InvariantError:
		return "InvariantError"
	default:
		return fmt.Sprintf("TreeError(%d)", int(err))
	}
}

// NewError creates a new merry/blunder.TreeError-annotated error using the given
// format string and arguments.
func NewError(errValue TreeError, format string, a ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, a...), 1).WithValue("errno", int(errValue))
}

// AddError is used to add TreeError detail to a Go error.
//
// NOTE: merry replaces an already present value with the new one; a warning
//       is logged when that happens so unintended overrides are visible.
//
func AddError(e error, errValue TreeError) error {
	if e == nil {
		// The caller obviously intends a non-nil error, so make one
		return merry.New("regular error").WithValue("errno", int(errValue))
	}

	prevValue := Errno(e)
	if prevValue != successErrno && prevValue != failureErrno {
		logger.Warnf("replacing error value %v with value %v for error %v", prevValue, int(errValue), e)
	}

	return merry.WrapSkipping(e, 1).WithValue("errno", int(errValue))
}

func hasErrnoValue(e error) bool {
	return merry.Value(e, "errno") != nil
}

// Errno extracts errno from the error, if it was previously wrapped.
// Otherwise a default value is returned.
//
func Errno(e error) int {
	if e == nil {
		return successErrno
	}

	var errno = failureErrno
	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errno = tmp.(int)
	}

	return errno
}

// ErrorString returns the error string with the errno appended, if set.
func ErrorString(e error) string {
	if e == nil {
		return ""
	}

	errPlusVal := e.Error()

	tmp := merry.Value(e, "errno")
	if tmp != nil {
		errPlusVal = fmt.Sprintf("%s. Error Value: %v", errPlusVal, tmp.(int))
	}

	return errPlusVal
}

// Is checks if an error matches a particular TreeError
//
// NOTE: Because the value of the underlying errno is used to do this check, one cannot
//       use this API to distinguish between TreeErrors that share an errno value
//       (e.g. UnknownStrategyError and BadCapacityError are both InvalidArgError).
//
func Is(e error, theError TreeError) bool {
	return Errno(e) == theError.Value()
}

// IsNot checks if an error is NOT a particular TreeError
func IsNot(e error, theError TreeError) bool {
	return Errno(e) != theError.Value()
}

// IsSuccess checks if an error is the success TreeError
func IsSuccess(e error) bool {
	return Errno(e) == successErrno
}

// IsNotSuccess checks if an error is NOT the success TreeError
func IsNotSuccess(e error) bool {
	return Errno(e) != successErrno
}

// Location returns the file and line number of the code that generated the error.
// Returns zero values if e has no stacktrace.
func Location(e error) (file string, line int) {
	file, line = merry.Location(e)
	return
}

// Details wraps merry.Details, which returns all error details including stacktrace in a string.
func Details(e error) string {
	return merry.Details(e)
}
