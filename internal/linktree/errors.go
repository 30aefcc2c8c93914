package linktree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned for URLs without an http(s) scheme and
	// host, or with an invalid .onion host.
	ErrInvalidURL = errors.New("invalid url")

	// ErrRootUnreachable is returned by Build when the seed page could not
	// be fetched or parsed. It wraps the underlying branch error.
	ErrRootUnreachable = errors.New("root page unreachable")

	// ErrDuplicateIdentifier is returned when a node with an identifier
	// already in the tree is attached. During a build this indicates a
	// broken seen set and aborts the build.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrNotFound is returned for identifiers that are not in the tree.
	ErrNotFound = errors.New("node not found")

	// ErrDepthExceeded is returned when attaching a node deeper than the
	// tree's maximum depth.
	ErrDepthExceeded = errors.New("depth exceeded")

	// ErrRootExists is returned when a second root is attached.
	ErrRootExists = errors.New("root already attached")

	// ErrNegativeDepth is returned by Build for a negative depth.
	ErrNegativeDepth = errors.New("depth must not be negative")
)

// ClassificationError reports a classifier failure. It aborts the whole
// build because it points at a configuration problem rather than at a
// single bad page.
type ClassificationError struct {
	// URL is the page whose text could not be classified.
	URL string
	// Err is the classifier's error.
	Err error
}

// Error implements the error interface.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.URL, e.Err)
}

// Unwrap returns the classifier's error.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}
