package collection

import (
	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// Item is a single value stored under a fixed key.
type Item[T any] struct {
	key   []byte
	codec Codec[T]
}

func NewItem[T any](key []byte, codec Codec[T]) *Item[T] {
	return &Item[T]{key: key, codec: codec}
}

func (i *Item[T]) Load(kv store.KV) (T, error) {
	var zero T
	data, err := kv.Get(i.key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return i.codec.Decode(data)
}

func (i *Item[T]) Save(kv store.KV, v T) error {
	data, err := i.codec.Encode(v)
	if err != nil {
		return err
	}
	return kv.Set(i.key, data)
}

func (i *Item[T]) Exists(kv store.KV) (bool, error) {
	_, err := kv.Get(i.key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}
