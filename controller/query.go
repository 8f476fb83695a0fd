package controller

import (
	"github.com/volkshash/volkshash/evo"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
)

// MinedCommitment is a commitment of the mined index and the block that carries it
type MinedCommitment struct {
	Commitment *quorum.FinalCommitment `json:"commitment"`
	BlockHash  lib.HexBytes            `json:"blockHash"`
}

// NewBlockTemplate() builds the next block on top of the tip: the coinbase payload first, then a
// commitment for every type in its mining phase that has a minable commitment, then txs
func (c *Controller) NewBlockTemplate(nonce uint64, txs ...*lib.Transaction) (*lib.Block, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	tip := c.tree.Tip()
	var all []*lib.Transaction
	if c.mnList != nil {
		list, err := c.mnList.GetMNList(tip.Hash)
		if err != nil {
			return nil, err
		}
		root, err := evo.CalcMerkleRoot(list)
		if err != nil {
			return nil, err
		}
		all = append(all, evo.NewCbTx(tip.Height+1, root))
	}
	qcTxs, err := c.Processor.GetMinableCommitmentTxs(tip)
	if err != nil {
		return nil, err
	}
	all = append(append(all, qcTxs...), txs...)
	return lib.NewBlock(tip, nonce, all...), nil
}

// GetWindow() describes the DKG instance of a quorum type at a height no higher than the next one
func (c *Controller) GetWindow(t quorum.Type, height uint64) (*quorum.Window, lib.ErrorI) {
	params, ok := c.network.Get(t)
	if !ok {
		return nil, quorum.ErrUnknownQuorumType(t)
	}
	c.Lock()
	defer c.Unlock()
	prev, err := c.prevOf(height)
	if err != nil {
		return nil, err
	}
	return quorum.NewWindow(params, prev, height), nil
}

// GetMinedCommitment() returns the mined commitment of a DKG instance or nil
func (c *Controller) GetMinedCommitment(t quorum.Type, quorumHash []byte) (*MinedCommitment, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	qc, blockHash, err := c.Processor.GetMinedCommitment(t, quorumHash)
	if err != nil || qc == nil {
		return nil, err
	}
	return &MinedCommitment{Commitment: qc, BlockHash: blockHash}, nil
}

// GetMinableCommitment() returns the commitment a block at height would carry for the type, or nil
func (c *Controller) GetMinableCommitment(t quorum.Type, height uint64) (*quorum.FinalCommitment, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	prev, err := c.prevOf(height)
	if err != nil {
		return nil, err
	}
	return c.Processor.GetMinableCommitment(t, prev)
}

// prevOf() returns the active index below height
func (c *Controller) prevOf(height uint64) (*lib.BlockIndex, lib.ErrorI) {
	if height == 0 {
		return nil, lib.ErrNilBlockIndex()
	}
	prev := c.tree.At(height - 1)
	if prev == nil {
		return nil, lib.ErrNilBlockIndex()
	}
	return prev, nil
}
