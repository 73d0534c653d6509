package collection

import "github.com/pkg/errors"

var (
	// ErrOutOfRange is returned when an index is past the end of a list
	ErrOutOfRange = errors.New("index out of range")

	// ErrNotFound is returned when a map or item has no value for a key
	ErrNotFound = errors.New("not found")
)
