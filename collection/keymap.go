package collection

import (
	"encoding/binary"

	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

type keymapEntry struct {
	Pos   uint64
	Value []byte
}

// Keymap is a persistent map that remembers first-insertion order.
//
// Layout below the namespace:
//
//	0x00             number of keys
//	0x01 ‖ key       {position, value}
//	0x02 ‖ len ‖ tag namespace of a derived map
//	0x03 ‖ position  rlp(key)
type Keymap[K, V any] struct {
	ns     []byte
	keys   KeyCodec[K]
	values Codec[V]
}

func NewKeymap[K, V any](namespace []byte, keys KeyCodec[K], values Codec[V]) *Keymap[K, V] {
	return &Keymap[K, V]{ns: namespace, keys: keys, values: values}
}

// Derive returns a map sharing this map's codecs whose keys live in a
// separate namespace identified by tag. The tag is length-prefixed, so two
// different tags never produce overlapping namespaces.
func (m *Keymap[K, V]) Derive(tag []byte) *Keymap[K, V] {
	tagLen := make([]byte, 4)
	binary.BigEndian.PutUint32(tagLen, uint32(len(tag)))
	return &Keymap[K, V]{
		ns:     regionKey(m.ns, derivedRegion, tagLen, tag),
		keys:   m.keys,
		values: m.values,
	}
}

func (m *Keymap[K, V]) Namespace() []byte {
	return m.ns
}

func (m *Keymap[K, V]) entryKey(k K) []byte {
	return regionKey(m.ns, itemRegion, m.keys.EncodeKey(k))
}

func (m *Keymap[K, V]) indexKey(pos uint64) []byte {
	return regionKey(m.ns, indexRegion, uint64ToBytes(pos))
}

func (m *Keymap[K, V]) loadEntry(kv store.KV, key []byte) (*keymapEntry, error) {
	data, err := kv.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry, err := RLP[*keymapEntry]{}.Decode(data)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (m *Keymap[K, V]) Len(kv store.KV) (uint64, error) {
	return loadLen(kv, m.ns)
}

// Insert stores v under k, replacing any previous value. A replaced key
// keeps its original position.
func (m *Keymap[K, V]) Insert(kv store.KV, k K, v V) error {
	value, err := m.values.Encode(v)
	if err != nil {
		return err
	}

	entryKey := m.entryKey(k)
	entry, err := m.loadEntry(kv, entryKey)
	switch {
	case err == nil:
		entry.Value = value
	case errors.Is(err, ErrNotFound):
		n, err := m.Len(kv)
		if err != nil {
			return err
		}
		entry = &keymapEntry{Pos: n, Value: value}
		// wrapped so that an empty key is never stored as an empty value
		rawKey, err := RLP[[]byte]{}.Encode(m.keys.EncodeKey(k))
		if err != nil {
			return err
		}
		if err := kv.Set(m.indexKey(n), rawKey); err != nil {
			return err
		}
		if err := saveLen(kv, m.ns, n+1); err != nil {
			return err
		}
	default:
		return err
	}

	data, err := RLP[*keymapEntry]{}.Encode(entry)
	if err != nil {
		return err
	}
	return kv.Set(entryKey, data)
}

func (m *Keymap[K, V]) Get(kv store.KV, k K) (V, error) {
	var zero V
	entry, err := m.loadEntry(kv, m.entryKey(k))
	if err != nil {
		return zero, err
	}
	return m.values.Decode(entry.Value)
}

func (m *Keymap[K, V]) Has(kv store.KV, k K) (bool, error) {
	_, err := m.loadEntry(kv, m.entryKey(k))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Iterator walks the keys present when it was created in first-insertion order.
func (m *Keymap[K, V]) Iterator(kv store.KV) *MapIterator[K, V] {
	it := &MapIterator[K, V]{m: m, kv: kv}
	it.Rewind()
	return it
}

type MapIterator[K, V any] struct {
	m     *Keymap[K, V]
	kv    store.KV
	n     uint64
	next  uint64
	key   K
	value V
	err   error
}

// Rewind restarts the iteration from the first key.
func (it *MapIterator[K, V]) Rewind() {
	var (
		zeroK K
		zeroV V
	)
	it.next, it.key, it.value = 0, zeroK, zeroV
	it.n, it.err = it.m.Len(it.kv)
}

func (it *MapIterator[K, V]) Next() bool {
	if it.err != nil || it.next >= it.n {
		return false
	}
	data, err := it.kv.Get(it.m.indexKey(it.next))
	if err != nil {
		it.err = errors.Wrapf(err, "load key at position %d", it.next)
		return false
	}
	rawKey, err := RLP[[]byte]{}.Decode(data)
	if err != nil {
		it.err = err
		return false
	}
	key, err := it.m.keys.DecodeKey(rawKey)
	if err != nil {
		it.err = err
		return false
	}
	entry, err := it.m.loadEntry(it.kv, regionKey(it.m.ns, itemRegion, rawKey))
	if err != nil {
		it.err = errors.Wrapf(err, "load entry at position %d", it.next)
		return false
	}
	value, err := it.m.values.Decode(entry.Value)
	if err != nil {
		it.err = err
		return false
	}
	it.key, it.value = key, value
	it.next++
	return true
}

func (it *MapIterator[K, V]) Key() K     { return it.key }
func (it *MapIterator[K, V]) Value() V   { return it.value }
func (it *MapIterator[K, V]) Err() error { return it.err }
