package collection

import (
	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// AppendList is an ordered, append-only sequence persisted under a
// namespace. Entries are stored at big-endian indexes next to a length
// record, so Push, Get and Set touch a constant number of keys.
type AppendList[T any] struct {
	ns    []byte
	codec Codec[T]
}

func NewAppendList[T any](namespace []byte, codec Codec[T]) *AppendList[T] {
	return &AppendList[T]{ns: namespace, codec: codec}
}

func (l *AppendList[T]) itemKey(index uint64) []byte {
	return regionKey(l.ns, itemRegion, uint64ToBytes(index))
}

func (l *AppendList[T]) Len(kv store.KV) (uint64, error) {
	return loadLen(kv, l.ns)
}

// Push appends v and returns its index.
func (l *AppendList[T]) Push(kv store.KV, v T) (uint64, error) {
	n, err := l.Len(kv)
	if err != nil {
		return 0, err
	}
	data, err := l.codec.Encode(v)
	if err != nil {
		return 0, err
	}
	if err := kv.Set(l.itemKey(n), data); err != nil {
		return 0, err
	}
	if err := saveLen(kv, l.ns, n+1); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *AppendList[T]) Get(kv store.KV, index uint64) (T, error) {
	var zero T
	n, err := l.Len(kv)
	if err != nil {
		return zero, err
	}
	if index >= n {
		return zero, errors.Wrapf(ErrOutOfRange, "index %d, length %d", index, n)
	}
	return l.get(kv, index)
}

func (l *AppendList[T]) get(kv store.KV, index uint64) (T, error) {
	var zero T
	data, err := kv.Get(l.itemKey(index))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return zero, errors.Errorf("missing list entry %d", index)
		}
		return zero, err
	}
	return l.codec.Decode(data)
}

// Set replaces the entry at index. The length never changes.
func (l *AppendList[T]) Set(kv store.KV, index uint64, v T) error {
	n, err := l.Len(kv)
	if err != nil {
		return err
	}
	if index >= n {
		return errors.Wrapf(ErrOutOfRange, "index %d, length %d", index, n)
	}
	data, err := l.codec.Encode(v)
	if err != nil {
		return err
	}
	return kv.Set(l.itemKey(index), data)
}

// Last returns the most recently pushed entry.
func (l *AppendList[T]) Last(kv store.KV) (T, error) {
	var zero T
	n, err := l.Len(kv)
	if err != nil {
		return zero, err
	}
	if n == 0 {
		return zero, errors.Wrap(ErrOutOfRange, "empty list")
	}
	return l.get(kv, n-1)
}

// Iterator walks the entries present when it was created, in insertion order.
func (l *AppendList[T]) Iterator(kv store.KV) *ListIterator[T] {
	it := &ListIterator[T]{list: l, kv: kv}
	it.Rewind()
	return it
}

type ListIterator[T any] struct {
	list  *AppendList[T]
	kv    store.KV
	n     uint64
	next  uint64
	index uint64
	value T
	err   error
}

// Rewind restarts the iteration from the first entry.
func (it *ListIterator[T]) Rewind() {
	var zero T
	it.next, it.index, it.value = 0, 0, zero
	it.n, it.err = it.list.Len(it.kv)
}

func (it *ListIterator[T]) Next() bool {
	if it.err != nil || it.next >= it.n {
		return false
	}
	v, err := it.list.get(it.kv, it.next)
	if err != nil {
		it.err = err
		return false
	}
	it.index, it.value = it.next, v
	it.next++
	return true
}

func (it *ListIterator[T]) Index() uint64 { return it.index }
func (it *ListIterator[T]) Value() T      { return it.value }
func (it *ListIterator[T]) Err() error    { return it.err }
