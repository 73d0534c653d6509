package collection

import (
	"encoding/binary"
	"slices"

	"github.com/axiomesh/ballot/store"
	"github.com/pkg/errors"
)

// Every collection owns the keys starting with its namespace. The byte
// following the namespace selects the region.
const (
	lenRegion     byte = 0x00
	itemRegion    byte = 0x01
	derivedRegion byte = 0x02
	indexRegion   byte = 0x03
)

func uint64ToBytes(v uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, v)
	return ret
}

func regionKey(ns []byte, region byte, suffix ...[]byte) []byte {
	key := slices.Concat(ns, []byte{region})
	for _, s := range suffix {
		key = append(key, s...)
	}
	return key
}

func lenKey(ns []byte) []byte {
	return regionKey(ns, lenRegion)
}

func loadLen(kv store.KV, ns []byte) (uint64, error) {
	data, err := kv.Get(lenKey(ns))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Errorf("corrupt length record of %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func saveLen(kv store.KV, ns []byte, n uint64) error {
	return kv.Set(lenKey(ns), uint64ToBytes(n))
}
