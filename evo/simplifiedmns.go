package evo

import (
	"bytes"
	"sort"
	"sync"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
	"github.com/volkshash/volkshash/lib/crypto"
)

// SimplifiedMNListEntry is the part of a masternode registration light clients need
type SimplifiedMNListEntry struct {
	ProRegTxHash   lib.HexBytes `json:"proRegTxHash"`
	ConfirmedHash  lib.HexBytes `json:"confirmedHash"`
	Service        string       `json:"service"`        // host:port
	PubKeyOperator lib.HexBytes `json:"pubKeyOperator"` // 48 byte BLS operator key, the key quorum members sign with
	KeyIDVoting    lib.HexBytes `json:"keyIDVoting"`
	IsValid        bool         `json:"isValid"`
}

func (x *SimplifiedMNListEntry) EncodeWire(e *codec.Encoder) {
	e.RawBytes(1, x.ProRegTxHash)
	e.RawBytes(2, x.ConfirmedHash)
	e.RawBytes(3, []byte(x.Service))
	e.RawBytes(4, x.PubKeyOperator)
	e.RawBytes(5, x.KeyIDVoting)
	e.Bool(6, x.IsValid)
}

func (x *SimplifiedMNListEntry) DecodeWire(d *codec.Decoder) {
	x.ProRegTxHash = d.RawBytes(1)
	x.ConfirmedHash = d.RawBytes(2)
	x.Service = string(d.RawBytes(3))
	x.PubKeyOperator = d.RawBytes(4)
	x.KeyIDVoting = d.RawBytes(5)
	x.IsValid = d.Bool(6)
}

// Hash() returns the leaf hash of the entry
func (x *SimplifiedMNListEntry) Hash() []byte { return crypto.Hash(codec.Encode(x)) }

// SortEntries() orders a list by registration hash, the canonical order of the merkle tree
func SortEntries(list []*SimplifiedMNListEntry) {
	sort.Slice(list, func(i, j int) bool { return bytes.Compare(list[i].ProRegTxHash, list[j].ProRegTxHash) < 0 })
}

// CalcMerkleRoot() returns the merkle root of the list in canonical order
// The root of an empty list is the zero hash
func CalcMerkleRoot(list []*SimplifiedMNListEntry) ([]byte, lib.ErrorI) {
	if len(list) == 0 {
		return make([]byte, crypto.HashSize), nil
	}
	sorted := append([]*SimplifiedMNListEntry(nil), list...)
	SortEntries(sorted)
	leaves := make([][]byte, 0, len(sorted))
	for _, entry := range sorted {
		leaves = append(leaves, codec.Encode(entry))
	}
	root, err := crypto.MerkleRoot(leaves)
	if err != nil {
		return nil, lib.ErrMerkleTree(err)
	}
	return root, nil
}

// MNListProvider supplies the deterministic masternode list
type MNListProvider interface {
	// BuildMNList() returns the list that results from applying block on top of prev
	BuildMNList(block *lib.Block, prev *lib.BlockIndex) ([]*SimplifiedMNListEntry, lib.ErrorI)
	// GetMNList() returns the list as of the block with the hash
	GetMNList(blockHash []byte) ([]*SimplifiedMNListEntry, lib.ErrorI)
}

var _ MNListProvider = &StaticMNList{}

// StaticMNList is a masternode list that no block changes, used on private networks and in tests
type StaticMNList struct {
	mu      sync.RWMutex
	entries []*SimplifiedMNListEntry
}

// NewStaticMNList() creates a fixed list
func NewStaticMNList(entries ...*SimplifiedMNListEntry) *StaticMNList {
	l := &StaticMNList{}
	l.Set(entries)
	return l
}

// NewStaticMNListFromFile() loads a JSON array of entries
func NewStaticMNListFromFile(dataDirPath, fileName string) (*StaticMNList, lib.ErrorI) {
	var entries []*SimplifiedMNListEntry
	if err := lib.LoadJSONFromFile(&entries, dataDirPath, fileName); err != nil {
		return nil, err
	}
	return NewStaticMNList(entries...), nil
}

// Set() replaces the list
func (l *StaticMNList) Set(entries []*SimplifiedMNListEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]*SimplifiedMNListEntry(nil), entries...)
	SortEntries(l.entries)
}

func (l *StaticMNList) BuildMNList(_ *lib.Block, _ *lib.BlockIndex) ([]*SimplifiedMNListEntry, lib.ErrorI) {
	return l.list(), nil
}

func (l *StaticMNList) GetMNList(_ []byte) ([]*SimplifiedMNListEntry, lib.ErrorI) { return l.list(), nil }

func (l *StaticMNList) list() []*SimplifiedMNListEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*SimplifiedMNListEntry(nil), l.entries...)
}
