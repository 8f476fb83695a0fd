package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	msg := make([]byte, 100)
	_, err := rand.Read(msg)
	require.NoError(t, err)
	hash := Hash(msg)
	require.Len(t, hash, HashSize)
	require.Equal(t, hex.EncodeToString(hash), HashString(msg))
	// hashing in parts is the same as hashing the whole
	require.Equal(t, hash, HashConcat(msg[:30], msg[30:]))
}

func TestMerkleRoot(t *testing.T) {
	a, b, c, d, e := []byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")
	ab, cd, ee := HashConcat(Hash(a), Hash(b)), HashConcat(Hash(c), Hash(d)), HashConcat(Hash(e), Hash(e))
	tests := []struct {
		name     string
		detail   string
		leaves   [][]byte
		expected []byte
		err      bool
	}{
		{
			name:     "empty",
			detail:   "no leaves yields an empty root",
			leaves:   nil,
			expected: []byte{},
		},
		{
			name:     "single",
			detail:   "the root of one leaf is its hash",
			leaves:   [][]byte{a},
			expected: Hash(a),
		},
		{
			name:     "pair",
			detail:   "the root of two leaves is the hash of both",
			leaves:   [][]byte{a, b},
			expected: ab,
		},
		{
			name:     "odd",
			detail:   "an odd last node is paired with itself",
			leaves:   [][]byte{a, b, c},
			expected: HashConcat(ab, HashConcat(Hash(c), Hash(c))),
		},
		{
			name:     "odd on the second level",
			detail:   "the duplication applies on every level",
			leaves:   [][]byte{a, b, c, d, e},
			expected: HashConcat(HashConcat(ab, cd), HashConcat(ee, ee)),
		},
		{
			name:   "nil leaf",
			detail: "a nil leaf is rejected",
			leaves: [][]byte{a, nil},
			err:    true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root, err := MerkleRoot(test.leaves)
			if test.err {
				require.Error(t, err, test.detail)
				return
			}
			require.NoError(t, err, test.detail)
			require.Equal(t, test.expected, root, test.detail)
		})
	}
}
