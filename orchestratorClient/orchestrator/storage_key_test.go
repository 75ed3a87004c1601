package orchestrator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestBlake2_128Concat(t *testing.T) {
	testCases := []struct {
		name string
		key  []byte
		want string
	}{
		{name: "empty key", key: nil, want: "cae66941d9efbd404e4d88758ea67670"},
		{name: "short key", key: []byte{1, 2, 3, 4}, want: "50f21536142cf23a3e3e25f01ef8d5ea01020304"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, common.FromHex(tc.want), Blake2_128Concat(tc.key))
		})
	}
}

func TestMapStorageKey(t *testing.T) {
	prefix := []byte{0xaa, 0xbb}
	key := MapStorageKey(prefix, []byte{1, 2, 3, 4})
	assert.Equal(t, common.FromHex("aabb50f21536142cf23a3e3e25f01ef8d5ea01020304"), key)
	// prefix is not aliased
	assert.Equal(t, []byte{0xaa, 0xbb}, prefix)
}
