package lib

import (
	"bytes"
	"errors"

	"github.com/volkshash/volkshash/lib/codec"
	"github.com/volkshash/volkshash/lib/crypto"
)

/* This file defines the block, transaction and block index model shared by the chain state modules */

var errMerkleRootMismatch = errors.New("header merkle root does not match the transactions")

const (
	// special transaction types carried in Transaction.Type
	TxTypeNormal           uint16 = 0
	TxTypeCoinbase         uint16 = 5
	TxTypeQuorumCommitment uint16 = 6

	// SpecialTxVersion is the minimum transaction version that carries a typed payload
	SpecialTxVersion uint16 = 3
)

// Transaction is a chain transaction with an optional typed payload
type Transaction struct {
	Version uint16   `json:"version"`
	Type    uint16   `json:"type"`
	Payload HexBytes `json:"payload,omitempty"` // the special transaction payload
	Data    HexBytes `json:"data,omitempty"`    // opaque transaction body
}

// IsSpecial() returns true if the transaction carries a typed payload
func (x *Transaction) IsSpecial() bool {
	return x != nil && x.Version >= SpecialTxVersion && x.Type != TxTypeNormal
}

// Hash() returns the sha256 of the encoded transaction
func (x *Transaction) Hash() []byte { return crypto.Hash(codec.Encode(x)) }

func (x *Transaction) EncodeWire(e *codec.Encoder) {
	e.Uint32(1, uint32(x.Version))
	e.Uint32(2, uint32(x.Type))
	e.RawBytes(3, x.Payload)
	e.RawBytes(4, x.Data)
}

func (x *Transaction) DecodeWire(d *codec.Decoder) {
	x.Version = uint16(d.Uint32(1))
	x.Type = uint16(d.Uint32(2))
	x.Payload = d.RawBytes(3)
	x.Data = d.RawBytes(4)
}

// BlockHeader is the hashed header of a block
type BlockHeader struct {
	Height     uint64   `json:"height"`
	PrevHash   HexBytes `json:"prevHash"`
	MerkleRoot HexBytes `json:"merkleRoot"`
	Time       uint64   `json:"time"`
	Nonce      uint64   `json:"nonce"`
}

// Hash() returns the sha256 of the encoded header
func (x *BlockHeader) Hash() []byte { return crypto.Hash(codec.Encode(x)) }

func (x *BlockHeader) EncodeWire(e *codec.Encoder) {
	e.Uint64(1, x.Height)
	e.RawBytes(2, x.PrevHash)
	e.RawBytes(3, x.MerkleRoot)
	e.Uint64(4, x.Time)
	e.Uint64(5, x.Nonce)
}

func (x *BlockHeader) DecodeWire(d *codec.Decoder) {
	x.Height = d.Uint64(1)
	x.PrevHash = d.RawBytes(2)
	x.MerkleRoot = d.RawBytes(3)
	x.Time = d.Uint64(4)
	x.Nonce = d.Uint64(5)
}

// Block is a header and its ordered transactions
type Block struct {
	Header       *BlockHeader   `json:"header"`
	Transactions []*Transaction `json:"transactions"`
}

// NewBlock() builds a block on top of prev, setting the merkle root of the transactions
func NewBlock(prev *BlockIndex, nonce uint64, txs ...*Transaction) *Block {
	header := &BlockHeader{Nonce: nonce}
	if prev != nil {
		header.Height, header.PrevHash = prev.Height+1, prev.Hash
	}
	b := &Block{Header: header, Transactions: txs}
	header.MerkleRoot, _ = b.TxRoot()
	return b
}

// Hash() returns the header hash
func (x *Block) Hash() []byte {
	if x == nil || x.Header == nil {
		return nil
	}
	return x.Header.Hash()
}

// Height() returns the height in the header
func (x *Block) Height() uint64 {
	if x == nil || x.Header == nil {
		return 0
	}
	return x.Header.Height
}

// TxRoot() computes the merkle root over the transaction hashes
func (x *Block) TxRoot() ([]byte, ErrorI) {
	hashes := make([][]byte, 0, len(x.Transactions))
	for _, tx := range x.Transactions {
		hashes = append(hashes, tx.Hash())
	}
	root, err := crypto.MerkleRoot(hashes)
	if err != nil {
		return nil, ErrMerkleTree(err)
	}
	return root, nil
}

// Check() validates the block shape and the transaction merkle root
func (x *Block) Check() ErrorI {
	if x == nil || x.Header == nil {
		return ErrNilBlock()
	}
	for _, tx := range x.Transactions {
		if tx == nil {
			return ErrNilBlock()
		}
	}
	root, err := x.TxRoot()
	if err != nil {
		return err
	}
	if !bytes.Equal(root, x.Header.MerkleRoot) {
		return ErrMerkleTree(errMerkleRootMismatch)
	}
	return nil
}

func (x *Block) EncodeWire(e *codec.Encoder) {
	e.Message(1, x.Header)
	for _, tx := range x.Transactions {
		e.Message(2, tx)
	}
}

func (x *Block) DecodeWire(d *codec.Decoder) {
	x.Header = new(BlockHeader)
	d.Message(1, x.Header)
	for d.Next(2) {
		tx := new(Transaction)
		d.Message(2, tx)
		x.Transactions = append(x.Transactions, tx)
	}
}

// Bytes() encodes the block
func (x *Block) Bytes() []byte { return codec.Encode(x) }

// NewBlockFromBytes() decodes a block
func NewBlockFromBytes(bz []byte) (*Block, ErrorI) {
	b := new(Block)
	if err := codec.Decode(bz, b); err != nil {
		return nil, ErrUnmarshal(err)
	}
	return b, nil
}

// BLOCK INDEX BELOW

// BlockIndex is the in-memory node of the block tree
// Skip pointers give GetAncestor() logarithmic cost
type BlockIndex struct {
	Hash   HexBytes    `json:"hash"`
	Height uint64      `json:"height"`
	Prev   *BlockIndex `json:"-"`
	skip   *BlockIndex
}

// NewBlockIndex() links a new index over prev; a nil prev makes a genesis index
func NewBlockIndex(hash []byte, prev *BlockIndex) *BlockIndex {
	idx := &BlockIndex{Hash: hash, Prev: prev}
	if prev != nil {
		idx.Height = prev.Height + 1
		idx.skip = prev.GetAncestor(skipHeight(idx.Height))
	}
	return idx
}

// GetAncestor() returns the ancestor at height, or nil if height is above this index
func (x *BlockIndex) GetAncestor(height uint64) *BlockIndex {
	if x == nil || height > x.Height {
		return nil
	}
	walk, heightWalk := x, x.Height
	for heightWalk > height {
		hSkip, hSkipPrev := skipHeight(heightWalk), skipHeight(heightWalk-1)
		// only follow the skip pointer if it does not overshoot and the previous one is not a better jump
		if walk.skip != nil && (hSkip == height || (hSkip > height && !(hSkipPrev+2 < hSkip && hSkipPrev >= height))) {
			walk, heightWalk = walk.skip, hSkip
		} else {
			walk, heightWalk = walk.Prev, heightWalk-1
		}
	}
	return walk
}

// Equals() compares two indexes by hash
func (x *BlockIndex) Equals(o *BlockIndex) bool {
	if x == nil || o == nil {
		return x == o
	}
	return x.Height == o.Height && bytes.Equal(x.Hash, o.Hash)
}

// skipHeight() selects the height the skip pointer of a height points at
func skipHeight(height uint64) uint64 {
	if height < 2 {
		return 0
	}
	if height&1 == 1 {
		return invertLowestOne(invertLowestOne(height-1)) + 1
	}
	return invertLowestOne(height)
}

func invertLowestOne(n uint64) uint64 { return n & (n - 1) }

// LastCommonAncestor() returns the fork point of two indexes
func LastCommonAncestor(a, b *BlockIndex) *BlockIndex {
	if a == nil || b == nil {
		return nil
	}
	if a.Height > b.Height {
		a = a.GetAncestor(b.Height)
	} else if b.Height > a.Height {
		b = b.GetAncestor(a.Height)
	}
	for a != nil && b != nil && !a.Equals(b) {
		a, b = a.Prev, b.Prev
	}
	return a
}

// CHAIN BELOW

// ChainViewI is the read view of the block tree the quorum rules need
type ChainViewI interface {
	Tip() *BlockIndex                         // the active chain tip
	Contains(idx *BlockIndex) bool            // is the index on the active chain
	LookupBlockIndex(hash []byte) *BlockIndex // any known index by hash
}

var _ ChainViewI = &BlockTree{}

// Chain is the active chain as a height ordered vector of indexes
type Chain struct {
	indexes []*BlockIndex
}

// Tip() returns the last index or nil if the chain is empty
func (c *Chain) Tip() *BlockIndex {
	if len(c.indexes) == 0 {
		return nil
	}
	return c.indexes[len(c.indexes)-1]
}

// At() returns the index at height or nil
func (c *Chain) At(height uint64) *BlockIndex {
	if height >= uint64(len(c.indexes)) {
		return nil
	}
	return c.indexes[height]
}

// Contains() returns true if idx is the active index at its height
func (c *Chain) Contains(idx *BlockIndex) bool {
	return idx != nil && c.At(idx.Height) == idx
}

// SetTip() makes idx the tip, rewriting only the part of the vector that differs
func (c *Chain) SetTip(idx *BlockIndex) {
	if idx == nil {
		c.indexes = nil
		return
	}
	// drop the entries above the new tip so a later extension never stops on a stale pointer
	if uint64(len(c.indexes)) > idx.Height+1 {
		clear(c.indexes[idx.Height+1:])
	}
	if uint64(cap(c.indexes)) > idx.Height {
		c.indexes = c.indexes[:idx.Height+1]
	} else {
		grown := make([]*BlockIndex, idx.Height+1)
		copy(grown, c.indexes)
		c.indexes = grown
	}
	for walk := idx; walk != nil && c.indexes[walk.Height] != walk; walk = walk.Prev {
		c.indexes[walk.Height] = walk
	}
}

// FindFork() returns the last index of the active chain that is an ancestor of idx
func (c *Chain) FindFork(idx *BlockIndex) *BlockIndex {
	if idx == nil {
		return nil
	}
	if tip := c.Tip(); tip != nil && idx.Height > tip.Height {
		idx = idx.GetAncestor(tip.Height)
	}
	for idx != nil && !c.Contains(idx) {
		idx = idx.Prev
	}
	return idx
}

// BlockTree is every known block index plus the active chain
// CONTRACT: not thread safe, callers hold the chain lock
type BlockTree struct {
	Chain
	index map[string]*BlockIndex
}

// NewBlockTree() creates an empty tree
func NewBlockTree() *BlockTree { return &BlockTree{index: make(map[string]*BlockIndex)} }

// LookupBlockIndex() returns the index for hash or nil
func (t *BlockTree) LookupBlockIndex(hash []byte) *BlockIndex { return t.index[string(hash)] }

// AddBlockIndex() inserts an index for a block whose parent is prevHash
func (t *BlockTree) AddBlockIndex(hash, prevHash []byte) (*BlockIndex, ErrorI) {
	if existing := t.LookupBlockIndex(hash); existing != nil {
		return existing, nil
	}
	var prev *BlockIndex
	if len(prevHash) != 0 {
		if prev = t.LookupBlockIndex(prevHash); prev == nil {
			return nil, ErrNilBlockIndex()
		}
	}
	idx := NewBlockIndex(hash, prev)
	t.index[string(hash)] = idx
	return idx, nil
}

// Len() returns the number of known indexes
func (t *BlockTree) Len() int { return len(t.index) }
