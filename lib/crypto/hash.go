package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// HashSize is the length of every block, quorum and commitment hash
const HashSize = sha256.Size

// ZeroHash is the all zero hash, the merkle root of an empty masternode list
var ZeroHash = make([]byte, HashSize)

// Hash() is the sha256 of msg
func Hash(msg []byte) []byte {
	h := sha256.Sum256(msg)
	return h[:]
}

// HashConcat() hashes the parts as if they were a single message
func HashConcat(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// HashString() is the hex of Hash()
func HashString(msg []byte) string { return hex.EncodeToString(Hash(msg)) }

var errNilLeaf = errors.New("nil merkle leaf")

// MerkleRoot() reduces the hashed leaves pairwise, level by level, to a single root
// An odd node at the end of a level is paired with itself. No leaves yield an empty root
func MerkleRoot(leaves [][]byte) ([]byte, error) {
	if len(leaves) == 0 {
		return []byte{}, nil
	}
	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		if leaf == nil {
			return nil, errNilLeaf
		}
		level[i] = Hash(leaf)
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			next = append(next, HashConcat(level[i], level[i+1]))
		}
		level = next
	}
	return level[0], nil
}
