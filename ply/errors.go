package ply

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderMalformed is returned when the header terminator or the vertex
	// element declaration is missing or unreadable.
	ErrHeaderMalformed = errors.New("ply: malformed header")

	// ErrBodyMalformed is returned when the vertex data is shorter than the
	// header declares (binary) or a line has too few numbers (ASCII).
	ErrBodyMalformed = errors.New("ply: malformed body")

	// ErrInvalidEncoding is returned when header or ASCII body text is not valid UTF-8.
	ErrInvalidEncoding = errors.New("ply: invalid text encoding")
)

// HeaderError describes a header problem.
//
// It matches ErrHeaderMalformed via errors.Is.
type HeaderError struct {
	// Line is the offending header line, empty when the line is missing.
	Line   string
	Reason string
}

func (e *HeaderError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("ply: malformed header: %s", e.Reason)
	}
	return fmt.Sprintf("ply: malformed header: %s (line %q)", e.Reason, e.Line)
}

func (e *HeaderError) Unwrap() error { return ErrHeaderMalformed }

// BodyError describes a vertex data problem.
//
// For binary bodies Expected and Actual are byte counts. For ASCII bodies Line
// is the 1-based line within the body and Expected/Actual count numbers.
//
// It matches ErrBodyMalformed via errors.Is.
type BodyError struct {
	Line     int
	Expected int
	Actual   int
}

func (e *BodyError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ply: malformed body: line %d: expected %d numbers, got %d", e.Line, e.Expected, e.Actual)
	}
	return fmt.Sprintf("ply: malformed body: expected %d bytes of vertex data, got %d", e.Expected, e.Actual)
}

func (e *BodyError) Unwrap() error { return ErrBodyMalformed }
