package model

import "fmt"

// TransportError is returned when a page could not be fetched: connection
// refused, proxy failure, timeout, malformed response or TLS failure.
// A TransportError only ever abandons the branch it happened on.
type TransportError struct {
	// URL is the URL that was being fetched.
	URL string

	// Err is the underlying network error.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a fetched body could not be parsed.
// It is handled exactly like a TransportError.
type ParseError struct {
	// URL is the URL of the page that failed to parse.
	URL string

	// Err is the underlying parser error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
