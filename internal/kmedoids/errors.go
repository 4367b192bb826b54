package kmedoids

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is zero or exceeds the number of entities.
	ErrInvalidK = errors.New("invalid k")

	// ErrDidNotConverge is returned when the sweep limit is reached before the
	// medoid set stabilises. The model is still valid, just not locally optimal.
	ErrDidNotConverge = errors.New("did not converge")

	// ErrInvalidMedoids is returned when an initializer yields a medoid set
	// of the wrong size, with repeats, or with out-of-range indices.
	ErrInvalidMedoids = errors.New("invalid medoid set")

	// ErrEmptyMatrix is returned when a table names no entities.
	ErrEmptyMatrix = errors.New("distance matrix has no entities")

	// ErrUninitialized is returned when sweeping a model that has no medoids yet.
	ErrUninitialized = errors.New("model not initialized")
)

// ParseError reports a distance cell that is not a real number.
type ParseError struct {
	Row   int
	Col   int
	Cell  string
	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse %q at row %d, column %d", e.Cell, e.Row, e.Col)
}

func (e *ParseError) Unwrap() error { return e.cause }

// UnknownEntityError reports a name that is missing from the name index.
type UnknownEntityError struct {
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Name)
}

// InvalidKError carries the offending k. It matches ErrInvalidK with errors.Is.
type InvalidKError struct {
	K int
	N int
}

func (e *InvalidKError) Error() string {
	return fmt.Sprintf("invalid k: %d (entities: %d)", e.K, e.N)
}

func (e *InvalidKError) Unwrap() error { return ErrInvalidK }

// ShapeError reports a table that cannot form a square matrix.
type ShapeError struct {
	Row  int
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("matrix is not square: %d names, %d rows", e.Want, e.Got)
	}
	return fmt.Sprintf("row %d has %d distances, expected %d", e.Row, e.Got, e.Want)
}

// DuplicateEntityError reports a name that appears more than once in the header.
type DuplicateEntityError struct {
	Name string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate entity %q", e.Name)
}
