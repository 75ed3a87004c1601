package orchestrator

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2_128Concat hashes key the way map keys are stored in state: the
// 16-byte blake2b digest followed by the key itself, so the key stays
// recoverable when iterating.
func Blake2_128Concat(key []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// Only returned for sizes outside 1..64 or oversized keys.
		panic(err)
	}
	h.Write(key)
	return append(h.Sum(nil), key...)
}

// MapStorageKey builds the full storage key of a map entry from the map's
// prefix and the encoded map key.
func MapStorageKey(prefix, mapKey []byte) []byte {
	key := make([]byte, 0, len(prefix)+16+len(mapKey))
	key = append(key, prefix...)
	return append(key, Blake2_128Concat(mapKey)...)
}
