package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure kinds a build can hit. Use errors.Is
// against these; the concrete error is a *DocumentError.
var (
	ErrNotFound    = errors.New("document not found")
	ErrParse       = errors.New("malformed document")
	ErrConsistency = errors.New("catalogue consistency error")
)

// DocumentError ties a failure kind to the document path it concerns.
type DocumentError struct {
	Kind error
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

// Is matches the sentinel for the error's kind.
func (e *DocumentError) Is(target error) bool {
	return target == e.Kind
}

func (e *DocumentError) Unwrap() error { return e.Err }

// NotFoundError reports a missing document at path.
func NotFoundError(path string, err error) error {
	return &DocumentError{Kind: ErrNotFound, Path: path, Err: err}
}

// ParseError reports a document at path that could not be decoded.
func ParseError(path string, err error) error {
	return &DocumentError{Kind: ErrParse, Path: path, Err: err}
}

// ConsistencyError reports source data that contradicts itself.
func ConsistencyError(path string, err error) error {
	return &DocumentError{Kind: ErrConsistency, Path: path, Err: err}
}
