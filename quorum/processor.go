package quorum

import (
	"bytes"
	"sort"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
)

/* This file implements the block processor: the consensus path that maintains the mined commitment index */

var (
	quorumSegment    = []byte("q/") // namespace of every processor key inside the chain state store
	minedPrefix      = []byte{1}    // store key prefix for the mined commitment index
	commitmentPrefix = []byte{2}    // store key prefix for the bytes of mined commitments
	bestBlockPrefix  = []byte{3}    // store key prefix for the hash of the last applied block
)

func MinedPrefix(t Type) []byte { return lib.JoinLenPrefix(quorumSegment, minedPrefix, []byte{byte(t)}) }
func KeyForMined(t Type, quorumHash []byte) []byte {
	return lib.JoinLenPrefix(quorumSegment, minedPrefix, []byte{byte(t)}, quorumHash)
}
func KeyForCommitment(hash []byte) []byte {
	return lib.JoinLenPrefix(quorumSegment, commitmentPrefix, hash)
}
func KeyForBestBlock() []byte { return lib.JoinLenPrefix(quorumSegment, bestBlockPrefix) }

// Changes are the memory side effects of a connect or disconnect, applied only once the store commits
type Changes struct {
	Connected    []*FinalCommitment `json:"connected"`    // accepted by a connected block
	Disconnected []*FinalCommitment `json:"disconnected"` // returned to advisory state by an undone block
}

// Empty() returns true if the changes carry no commitments
func (c *Changes) Empty() bool { return c == nil || len(c.Connected)+len(c.Disconnected) == 0 }

var _ MinedLookup = &Processor{}

// Processor owns the mined commitment index and the minable commitment cache
// CONTRACT: the block path (ProcessBlock, UndoBlock, ApplyPlan, Apply, SetStore) is single writer and
// must be called under the chain lock; the minable operations are safe to call from any goroutine
type Processor struct {
	network   *NetworkParams
	validator *Validator
	store     lib.RWStoreI
	minable   *MinableCache
	metrics   *lib.Metrics
	log       lib.LoggerI
}

// NewProcessor() creates a block processor over a chain state store
func NewProcessor(network *NetworkParams, verifier Verifier, store lib.RWStoreI, config lib.QuorumConfig, metrics *lib.Metrics, log lib.LoggerI) *Processor {
	return &Processor{
		network:   network,
		validator: NewValidator(network, verifier),
		store:     store,
		minable:   NewMinableCache(config.MaxMinableCommitments),
		metrics:   metrics,
		log:       log,
	}
}

// SetStore() replaces the store the block path reads and writes
func (p *Processor) SetStore(store lib.RWStoreI) { p.store = store }

// Store() returns the store the block path reads and writes
func (p *Processor) Store() lib.RWStoreI { return p.store }

// Network() returns the parameter table in use
func (p *Processor) Network() *NetworkParams { return p.network }

// Validator() returns the shared rule set
func (p *Processor) Validator() *Validator { return p.validator }

// ProcessBlock() validates and indexes every commitment of a block connected on top of prev
// The block is rejected as a whole on the first failing rule and nothing is written
func (p *Processor) ProcessBlock(block *lib.Block, prev *lib.BlockIndex) (*Changes, lib.ErrorI) {
	if block == nil || block.Header == nil {
		return nil, lib.ErrNilBlock()
	}
	height, blockHash := block.Height(), block.Hash()
	if prev == nil || prev.Height+1 != height || !bytes.Equal(prev.Hash, block.Header.PrevHash) {
		return nil, lib.ErrNonContiguousPrev(height)
	}
	// extract the commitments, one per quorum type at most
	qcs, types, err := CommitmentsFromBlock(block, height)
	if err != nil {
		return nil, p.reject(height, err)
	}
	changes := new(Changes)
	if !p.network.IsActive(height) {
		if len(qcs) != 0 {
			return nil, p.reject(height, ErrNotActive(height))
		}
		return changes, p.setBestBlock(blockHash)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		if _, err = p.validator.ValidateCommitment(qcs[t], prev, height, p); err != nil {
			return nil, p.reject(height, err)
		}
	}
	// every configured type whose window ends here must have been mined by now
	for _, t := range p.network.Types() {
		if _, found := qcs[t]; found {
			continue
		}
		params, _ := p.network.Get(t)
		required, e := IsCommitmentRequired(params, prev, height, func(quorumHash []byte) (bool, lib.ErrorI) {
			return p.HasMinedCommitment(t, quorumHash)
		})
		if e != nil {
			return nil, e
		}
		if required {
			return nil, p.reject(height, ErrMissingRequiredCommitment(t, GetQuorumBlockHash(params, prev, height), height))
		}
	}
	// index the accepted commitments
	for _, t := range types {
		qc := qcs[t]
		if err = p.indexCommitment(qc, blockHash, height); err != nil {
			return nil, err
		}
		p.log.Infof("Mined %s commitment for quorum %s at height %d (%d signers, %d valid members)",
			t, lib.BytesToTruncatedString(qc.QuorumHash), height, qc.CountSigners(), qc.CountValidMembers())
		changes.Connected = append(changes.Connected, qc)
	}
	return changes, p.setBestBlock(blockHash)
}

// UndoBlock() removes every index entry the block created, the exact inverse of ProcessBlock()
func (p *Processor) UndoBlock(block *lib.Block, pindex *lib.BlockIndex) (*Changes, lib.ErrorI) {
	if block == nil || block.Header == nil {
		return nil, lib.ErrNilBlock()
	}
	height, blockHash := block.Height(), block.Hash()
	if pindex != nil && (pindex.Height != height || !bytes.Equal(pindex.Hash, blockHash)) {
		return nil, lib.ErrNonContiguousPrev(height)
	}
	qcs, types, err := CommitmentsFromBlock(block, height)
	if err != nil {
		return nil, err
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	changes := new(Changes)
	for _, t := range types {
		qc := qcs[t]
		entry, e := p.GetMinedEntry(t, qc.QuorumHash)
		if e != nil {
			return nil, e
		}
		// only the block that mined the entry may erase it
		if entry == nil || !bytes.Equal(entry.BlockHash, blockHash) {
			continue
		}
		if e = p.store.Delete(KeyForMined(t, qc.QuorumHash)); e != nil {
			return nil, e
		}
		if e = p.store.Delete(KeyForCommitment(entry.CommitmentHash)); e != nil {
			return nil, e
		}
		p.log.Infof("Undid %s commitment for quorum %s at height %d", t, lib.BytesToTruncatedString(qc.QuorumHash), height)
		changes.Disconnected = append(changes.Disconnected, qc)
	}
	return changes, p.setBestBlock(block.Header.PrevHash)
}

// Apply() performs the memory side effects of committed changes in order
// Disconnected commitments return to the minable cache, connected ones leave it
func (p *Processor) Apply(changes ...*Changes) {
	for _, c := range changes {
		if c == nil {
			continue
		}
		for _, qc := range c.Disconnected {
			p.minable.Add(qc)
			p.metrics.CommitmentUndone(qc.Type.String())
		}
		for _, qc := range c.Connected {
			p.minable.Remove(qc.Type, qc.QuorumHash)
			p.metrics.CommitmentMined(qc.Type.String())
		}
	}
	p.metrics.SetMinableCommitments(p.minable.Len())
}

// MINED COMMITMENT INDEX BELOW

// HasMinedCommitment() returns true if the DKG instance has an accepted commitment on the active chain
func (p *Processor) HasMinedCommitment(t Type, quorumHash []byte) (bool, lib.ErrorI) {
	bz, err := p.store.Get(KeyForMined(t, quorumHash))
	if err != nil {
		return false, err
	}
	return bz != nil, nil
}

// GetMinedEntry() returns the index entry of a DKG instance or nil
func (p *Processor) GetMinedEntry(t Type, quorumHash []byte) (*MinedEntry, lib.ErrorI) {
	bz, err := p.store.Get(KeyForMined(t, quorumHash))
	if err != nil || bz == nil {
		return nil, err
	}
	entry := new(MinedEntry)
	if e := codec.Decode(bz, entry); e != nil {
		return nil, lib.ErrUnmarshal(e)
	}
	return entry, nil
}

// GetMinedCommitment() returns the accepted commitment of a DKG instance and the hash of the block that mined it
// Both are nil if nothing was mined
func (p *Processor) GetMinedCommitment(t Type, quorumHash []byte) (*FinalCommitment, []byte, lib.ErrorI) {
	entry, err := p.GetMinedEntry(t, quorumHash)
	if err != nil || entry == nil {
		return nil, nil, err
	}
	bz, err := p.store.Get(KeyForCommitment(entry.CommitmentHash))
	if err != nil {
		return nil, nil, err
	}
	if bz == nil {
		return nil, nil, lib.ErrCorruptKey(KeyForCommitment(entry.CommitmentHash))
	}
	qc, err := NewFinalCommitmentFromBytes(bz)
	if err != nil {
		return nil, nil, err
	}
	return qc, entry.BlockHash, nil
}

// GetMinedEntries() returns every index entry of a quorum type
func (p *Processor) GetMinedEntries(t Type) (entries []*MinedEntry, err lib.ErrorI) {
	it, err := p.store.Iterator(MinedPrefix(t))
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		entry := new(MinedEntry)
		if e := codec.Decode(it.Value(), entry); e != nil {
			return nil, lib.ErrUnmarshal(e)
		}
		entries = append(entries, entry)
	}
	return
}

// GetBestBlock() returns the hash of the last block the processor applied, nil before the first
func (p *Processor) GetBestBlock() ([]byte, lib.ErrorI) { return p.store.Get(KeyForBestBlock()) }

// indexCommitment() writes the index entry and the commitment bytes
func (p *Processor) indexCommitment(qc *FinalCommitment, blockHash []byte, height uint64) lib.ErrorI {
	hash := qc.Hash()
	entry := &MinedEntry{CommitmentHash: hash, BlockHash: blockHash, Height: height}
	if err := p.store.Set(KeyForMined(qc.Type, qc.QuorumHash), codec.Encode(entry)); err != nil {
		return err
	}
	return p.store.Set(KeyForCommitment(hash), qc.Bytes())
}

func (p *Processor) setBestBlock(hash []byte) lib.ErrorI {
	if len(hash) == 0 {
		return p.store.Delete(KeyForBestBlock())
	}
	return p.store.Set(KeyForBestBlock(), hash)
}

// reject() logs and counts a block failing the commitment rules
func (p *Processor) reject(height uint64, err lib.ErrorI) lib.ErrorI {
	class := ClassOf(err)
	p.log.Warnf("Rejected block %d (%s): %s", height, class, err.Error())
	p.metrics.BlockRejected(string(class))
	return err
}

// MINABLE COMMITMENTS BELOW

// AddMinableCommitment() offers a commitment to the advisory cache
func (p *Processor) AddMinableCommitment(qc *FinalCommitment) bool {
	added := p.minable.Add(qc)
	p.metrics.SetMinableCommitments(p.minable.Len())
	return added
}

// HasMinableCommitment() returns true if a commitment with the identity is cached
func (p *Processor) HasMinableCommitment(hash []byte) bool { return p.minable.Has(hash) }

// GetMinableCommitmentByHash() returns the cached commitment with the identity or nil
func (p *Processor) GetMinableCommitmentByHash(hash []byte) *FinalCommitment {
	return p.minable.GetByHash(hash)
}

// Minable() exposes the advisory cache
func (p *Processor) Minable() *MinableCache { return p.minable }

// GetMinableCommitment() returns the best cached commitment a block built on top of prev may carry
// The result is nil whenever no commitment is legal for the type at that height
func (p *Processor) GetMinableCommitment(t Type, prev *lib.BlockIndex) (*FinalCommitment, lib.ErrorI) {
	if prev == nil {
		return nil, lib.ErrNilBlockIndex()
	}
	params, ok := p.network.Get(t)
	height := prev.Height + 1
	if !ok || !p.network.IsActive(height) || !IsMiningPhase(params, height) {
		return nil, nil
	}
	quorumHash := GetQuorumBlockHash(params, prev, height)
	if quorumHash == nil {
		return nil, nil
	}
	mined, err := p.HasMinedCommitment(t, quorumHash)
	if err != nil || mined {
		return nil, err
	}
	qc := p.minable.GetBest(t, quorumHash)
	if qc == nil {
		return nil, nil
	}
	// the cache is advisory, the rules are checked again against this height
	if err = qc.CheckStructure(params); err != nil {
		return nil, nil
	}
	if err = p.validator.CheckPosition(params, qc, prev, height); err != nil {
		return nil, nil
	}
	return qc, nil
}

// GetMinableCommitmentTx() wraps the minable commitment in the special transaction for the next block
func (p *Processor) GetMinableCommitmentTx(t Type, prev *lib.BlockIndex) (*lib.Transaction, lib.ErrorI) {
	qc, err := p.GetMinableCommitment(t, prev)
	if err != nil || qc == nil {
		return nil, err
	}
	return NewCommitmentTx(prev.Height+1, qc), nil
}

// GetMinableCommitmentTxs() returns a commitment transaction for every type with a minable commitment
func (p *Processor) GetMinableCommitmentTxs(prev *lib.BlockIndex) (txs []*lib.Transaction, err lib.ErrorI) {
	for _, t := range p.network.Types() {
		tx, e := p.GetMinableCommitmentTx(t, prev)
		if e != nil {
			return nil, e
		}
		if tx != nil {
			txs = append(txs, tx)
		}
	}
	return
}

// PruneMinable() drops the cached commitments no block built on top of tip could ever carry:
// those of an unknown type, of an instance other than the current one, mined on the active chain,
// or whose window has closed at the next height
func (p *Processor) PruneMinable(tip *lib.BlockIndex) int {
	if tip == nil {
		return 0
	}
	height := tip.Height + 1
	removed := p.minable.Prune(func(qc *FinalCommitment) bool {
		params, ok := p.network.Get(qc.Type)
		if !ok {
			return false
		}
		if IsWindowClosed(params, QuorumHeight(params, height), height) {
			return false
		}
		expected := GetQuorumBlockHash(params, tip, height)
		if expected == nil || !bytes.Equal(expected, qc.QuorumHash) {
			return false
		}
		mined, err := p.HasMinedCommitment(qc.Type, qc.QuorumHash)
		return err == nil && !mined
	})
	if removed != 0 {
		p.log.Debugf("Pruned %d minable commitments at height %d", removed, height)
	}
	p.metrics.SetMinableCommitments(p.minable.Len())
	return removed
}
