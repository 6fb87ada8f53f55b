package httpvfs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrFileSystemExists is returned when creating a file system for an
	// authority that already has one.
	ErrFileSystemExists = errors.New("file system already exists")

	// ErrFileSystemNotFound is returned when looking up a file system that
	// was never created.
	ErrFileSystemNotFound = errors.New("file system not found")

	// ErrProviderMismatch is returned when a path or URL belonging to one
	// provider is presented to another.
	ErrProviderMismatch = errors.New("provider mismatch")

	// ErrNonWritable is returned by Write and Truncate on a byte channel.
	ErrNonWritable = errors.New("channel is not writable")
)

// UnexpectedResponseError reports an HTTP response code that is not otherwise
// specially handled.
type UnexpectedResponseError struct {
	// Code is the HTTP status code received.
	Code int
	// URL is the requested URL, in redacted form.
	URL string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected http response code %d when requesting %s", e.Code, e.URL)
}

// StatusCode returns the HTTP status code. The retry engine uses this to
// match configured retryable codes.
func (e *UnexpectedResponseError) StatusCode() int {
	return e.Code
}

// IncompatibleRangeError indicates that a partial response was returned when
// the whole resource was requested, or vice versa.
type IncompatibleRangeError struct {
	// Code is the HTTP status code received (200 or 206).
	Code int
	// URL is the requested URL, in redacted form.
	URL string
	// RangeRequest is true when the request carried a Range header.
	RangeRequest bool
}

func (e *IncompatibleRangeError) Error() string {
	if e.RangeRequest {
		return fmt.Sprintf("server returned the entire resource instead of a subrange for %s (http %d)", e.URL, e.Code)
	}

	return fmt.Sprintf("unexpected partial content response for a whole-resource request for %s (http %d)", e.URL, e.Code)
}

// StatusCode returns the HTTP status code.
func (e *IncompatibleRangeError) StatusCode() int {
	return e.Code
}

// invalidPathError marks path as malformed. Wraps fs.ErrInvalid.
func invalidPathError(path, reason string) error {
	return fmt.Errorf("invalid path %q: %s: %w", path, reason, fs.ErrInvalid)
}

// invalidArgError marks an argument as out of contract. Wraps fs.ErrInvalid.
func invalidArgError(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, fs.ErrInvalid)...)
}

// unsupportedError marks an operation this read-only module does not provide.
func unsupportedError(op string) error {
	return fmt.Errorf("%s: %w", op, errors.ErrUnsupported)
}
