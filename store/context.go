package store

import (
	"bytes"
	"sort"
)

var _ KV = (*Context)(nil)

type pendingValue struct {
	value   []byte
	deleted bool
}

// Context buffers the writes of a single call on top of a Backend.
// Reads observe the buffered writes first. Nothing reaches the backend
// until Commit, so a failed call is dropped with Discard.
type Context struct {
	backend Backend
	pending map[string]pendingValue
	closed  bool
}

func NewContext(backend Backend) *Context {
	return &Context{
		backend: backend,
		pending: make(map[string]pendingValue),
	}
}

func (c *Context) Get(key []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if p, ok := c.pending[string(key)]; ok {
		if p.deleted {
			return nil, ErrKeyNotFound
		}
		return bytes.Clone(p.value), nil
	}
	return c.backend.Get(key)
}

func (c *Context) Set(key, value []byte) error {
	if c.closed {
		return ErrClosed
	}
	c.pending[string(key)] = pendingValue{value: bytes.Clone(value)}
	return nil
}

func (c *Context) Remove(key []byte) error {
	if c.closed {
		return ErrClosed
	}
	c.pending[string(key)] = pendingValue{deleted: true}
	return nil
}

// Pending returns the number of keys written since the context was opened.
func (c *Context) Pending() int {
	return len(c.pending)
}

// Changes returns the buffered writes ordered by key.
func (c *Context) Changes() []Change {
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := make([]Change, 0, len(keys))
	for _, k := range keys {
		p := c.pending[k]
		changes = append(changes, Change{
			Key:    []byte(k),
			Value:  p.value,
			Delete: p.deleted,
		})
	}
	return changes
}

// Commit writes all buffered changes to the backend atomically and closes
// the context.
func (c *Context) Commit() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	if len(c.pending) == 0 {
		return nil
	}
	changes := c.Changes()
	c.pending = nil
	return c.backend.Apply(changes)
}

// Discard drops all buffered changes. It is safe to call after Commit.
func (c *Context) Discard() {
	c.closed = true
	c.pending = nil
}

// Update runs fn as one call: its writes are committed when fn returns nil
// and dropped otherwise.
func Update(backend Backend, fn func(kv KV) error) error {
	ctx := NewContext(backend)
	if err := fn(ctx); err != nil {
		ctx.Discard()
		return err
	}
	return ctx.Commit()
}

// View runs fn against the backend and drops anything it writes.
func View(backend Backend, fn func(kv KV) error) error {
	ctx := NewContext(backend)
	defer ctx.Discard()
	return fn(ctx)
}
