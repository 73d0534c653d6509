package collection

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Codec converts stored values to and from bytes.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// KeyCodec converts map keys to and from bytes. Encodings must be
// injective so that distinct keys never share storage.
type KeyCodec[K any] interface {
	EncodeKey(k K) []byte
	DecodeKey(data []byte) (K, error)
}

// RLP encodes values with go-ethereum's recursive length prefix encoding.
type RLP[T any] struct{}

func (RLP[T]) Encode(v T) ([]byte, error) {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, errors.Wrap(err, "rlp encode")
	}
	return data, nil
}

func (RLP[T]) Decode(data []byte) (T, error) {
	var v T
	if err := rlp.DecodeBytes(data, &v); err != nil {
		return v, errors.Wrap(err, "rlp decode")
	}
	return v, nil
}

type StringKey struct{}

func (StringKey) EncodeKey(k string) []byte {
	return []byte(k)
}

func (StringKey) DecodeKey(data []byte) (string, error) {
	return string(data), nil
}
