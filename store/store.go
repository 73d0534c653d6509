package store

import (
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key has no value
	ErrKeyNotFound = errors.New("key not found")

	// ErrClosed is returned when a context is used after Commit or Discard
	ErrClosed = errors.New("storage context already closed")
)

// KV is the byte-key to byte-value primitive the collections are built on.
// Implementations are synchronous and deterministic.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Remove(key []byte) error
}

// Change is a single buffered mutation. Delete removes the key and ignores Value.
type Change struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Backend is a persistent key-value database. Apply must persist every
// change or none of them.
type Backend interface {
	Get(key []byte) ([]byte, error)
	Apply(changes []Change) error
	Close() error
}
