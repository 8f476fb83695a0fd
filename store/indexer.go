package store

import (
	"github.com/volkshash/volkshash/lib"
)

var (
	indexerPrefix     = lib.JoinLenPrefix([]byte("i/")) // namespace of the indexer inside the state store
	blockHashPrefix   = []byte{1}                       // block bytes by block hash
	blockHeightPrefix = []byte{2}                       // active chain block hash by height
)

// Indexer stores block bodies by hash and the active chain by height
// It reads and writes through any RWStoreI so it participates in overlay txns
type Indexer struct {
	db lib.RWStoreI
}

// NewIndexer() creates an indexer over a store or overlay
func NewIndexer(db lib.RWStoreI) *Indexer { return &Indexer{db: db} }

// IndexBlock() saves the block bytes under their hash
func (t *Indexer) IndexBlock(b *lib.Block) lib.ErrorI {
	if b == nil || b.Header == nil {
		return lib.ErrNilBlock()
	}
	return t.db.Set(t.blockHashKey(b.Hash()), b.Bytes())
}

// GetBlockByHash() returns the indexed block or nil if it was never indexed
func (t *Indexer) GetBlockByHash(hash []byte) (*lib.Block, lib.ErrorI) {
	bz, err := t.db.Get(t.blockHashKey(hash))
	if err != nil || bz == nil {
		return nil, err
	}
	return lib.NewBlockFromBytes(bz)
}

// SetActiveHash() records hash as the active block at height
func (t *Indexer) SetActiveHash(height uint64, hash []byte) lib.ErrorI {
	return t.db.Set(t.blockHeightKey(height), hash)
}

// DeleteActiveHash() removes the active block entry at height
func (t *Indexer) DeleteActiveHash(height uint64) lib.ErrorI {
	return t.db.Delete(t.blockHeightKey(height))
}

// GetActiveHash() returns the hash of the active block at height or nil
func (t *Indexer) GetActiveHash(height uint64) ([]byte, lib.ErrorI) {
	return t.db.Get(t.blockHeightKey(height))
}

// GetActiveChain() returns the active block hashes ordered by height starting at genesis
func (t *Indexer) GetActiveChain() (hashes [][]byte, err lib.ErrorI) {
	it, err := t.db.Iterator(lib.JoinLenPrefix(indexerPrefix, blockHeightPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for expected := uint64(0); it.Valid(); it.Next() {
		segments, e := lib.DecodeLengthPrefixed(it.Key())
		if e != nil {
			return nil, e
		}
		// the index must be contiguous from genesis
		if len(segments) != 3 || lib.BytesToUint64(segments[2]) != expected {
			return nil, ErrInvalidKey()
		}
		hashes = append(hashes, it.Value())
		expected++
	}
	return
}

func (t *Indexer) blockHashKey(hash []byte) []byte {
	return lib.JoinLenPrefix(indexerPrefix, blockHashPrefix, hash)
}

func (t *Indexer) blockHeightKey(height uint64) []byte {
	return lib.JoinLenPrefix(indexerPrefix, blockHeightPrefix, lib.Uint64ToBytes(height))
}
