package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/evo"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/crypto"
	"github.com/volkshash/volkshash/quorum"
)

// genesisCommitmentTxs() wraps the full genesis quorum commitments for a block at height
func genesisCommitmentTxs(c *Controller, height uint64) (txs []*lib.Transaction) {
	for _, qc := range genesisCommitments(c) {
		txs = append(txs, quorum.NewCommitmentTx(height, qc))
	}
	return
}

func TestSubmitBlockMinesGossipedCommitments(t *testing.T) {
	c := newTestController(t, nil)
	var notified []uint64
	c.AddHeightListener(HeightListenerFunc(func(tip *lib.BlockIndex) { notified = append(notified, tip.Height) }))
	mineTo(t, c, 7, 0)
	gossipGenesisCommitments(t, c, "peer")
	require.Equal(t, 2, c.Processor.Minable().Len())
	// nothing is minable before the mining phase
	template, err := c.NewBlockTemplate(0)
	require.NoError(t, err)
	require.Empty(t, template.Transactions)
	mineTo(t, c, 9, 0)
	tx := &lib.Transaction{Version: 1, Data: []byte("payment")}
	template, err = c.NewBlockTemplate(0, tx)
	require.NoError(t, err)
	require.Len(t, template.Transactions, 3)
	require.True(t, quorum.IsCommitmentTx(template.Transactions[0]))
	require.True(t, quorum.IsCommitmentTx(template.Transactions[1]))
	require.Equal(t, tx, template.Transactions[2])
	require.NoError(t, c.SubmitBlock(template))
	mineTo(t, c, 12, 0)
	for _, typ := range c.Network().Types() {
		mined, e := c.GetMinedCommitment(typ, testGenesis.Hash())
		require.NoError(t, e)
		require.NotNil(t, mined)
		require.Equal(t, template.Hash(), []byte(mined.BlockHash))
		// a mined instance has nothing left to mine
		minable, e := c.GetMinableCommitment(typ, 13)
		require.NoError(t, e)
		require.Nil(t, minable)
	}
	require.Zero(t, c.Processor.Minable().Len())
	require.Len(t, notified, 12)
	require.Equal(t, uint64(12), notified[11])
	best, err := c.Processor.GetBestBlock()
	require.NoError(t, err)
	require.Equal(t, []byte(c.Tip().Hash), best)
	hashes, err := c.db.GetActiveChain()
	require.NoError(t, err)
	require.Len(t, hashes, 13)
	require.Equal(t, template.Hash(), hashes[10])
}

func TestSubmitBlockRejects(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		build  func(c *Controller) *lib.Block
		code   lib.ErrorCode
	}{
		{
			name:   "orphan",
			detail: "the previous block is unknown",
			build: func(c *Controller) *lib.Block {
				return lib.NewBlock(lib.NewBlockIndex(crypto.Hash([]byte("unknown")), c.Tip()), 0)
			},
			code: lib.CodeOrphanBlock,
		},
		{
			name:   "merkle root",
			detail: "the header does not commit to the transactions",
			build: func(c *Controller) *lib.Block {
				b := lib.NewBlock(c.Tip(), 0)
				b.Header.MerkleRoot = crypto.Hash([]byte("other"))
				return b
			},
			code: lib.CodeMerkleTree,
		},
		{
			name:   "non contiguous",
			detail: "the header height does not follow the previous block",
			build: func(c *Controller) *lib.Block {
				b := lib.NewBlock(c.Tip(), 0)
				b.Header.Height += 2
				return b
			},
			code: lib.CodeNonContiguousPrev,
		},
		{
			name:   "commitment outside the mining phase",
			detail: "a full commitment for the genesis quorum is carried at offset 6",
			build: func(c *Controller) *lib.Block {
				return lib.NewBlock(c.Tip(), 0, genesisCommitmentTxs(c, 6)...)
			},
			code: lib.CodeWrongWindow,
		},
		{
			name:   "coinbase height",
			detail: "the coinbase payload commits to another height",
			build: func(c *Controller) *lib.Block {
				return lib.NewBlock(c.Tip(), 0, evo.NewCbTx(99, crypto.ZeroHash))
			},
			code: lib.CodeBadCbTxHeight,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := newTestController(t, nil)
			mineTo(t, c, 5, 0)
			tip, before := c.Tip(), c.tree.Len()
			block := test.build(c)
			err := c.SubmitBlock(block)
			require.Error(t, err, test.detail)
			require.Equal(t, test.code, err.Code(), test.detail)
			// nothing moved
			require.Equal(t, tip, c.Tip())
			require.Equal(t, before, c.tree.Len())
			best, e := c.Processor.GetBestBlock()
			require.NoError(t, e)
			require.Equal(t, []byte(tip.Hash), best)
			stored, e := c.db.GetBlockByHash(block.Hash())
			require.NoError(t, e)
			require.Nil(t, stored)
		})
	}
}

func TestSubmitBlockKnown(t *testing.T) {
	c := newTestController(t, nil)
	mineTo(t, c, 3, 0)
	block, err := c.db.GetBlockByHash(c.Tip().Hash)
	require.NoError(t, err)
	tip := c.Tip()
	// resubmitting an active block is a no-op
	require.NoError(t, c.SubmitBlock(block))
	require.Equal(t, tip, c.Tip())
}

func TestReorg(t *testing.T) {
	c := newTestController(t, nil)
	mineTo(t, c, 7, 0)
	gossipGenesisCommitments(t, c, "peer")
	mineTo(t, c, 12, 0)
	oldTip := c.Tip()
	oldMined, err := c.GetMinedCommitment(quorum.LLMQ10_60, testGenesis.Hash())
	require.NoError(t, err)
	// another miner forked at height 5 and mined the same instances one block later
	blocks, _ := branch(c, 5, 13, 1, func(height uint64) []*lib.Transaction {
		if height == 11 {
			return genesisCommitmentTxs(c, height)
		}
		return nil
	})
	for _, b := range blocks[:len(blocks)-1] {
		require.NoError(t, c.SubmitBlock(b))
		require.Equal(t, oldTip, c.Tip())
	}
	require.NoError(t, c.SubmitBlock(blocks[len(blocks)-1]))
	require.Equal(t, blocks[len(blocks)-1].Hash(), []byte(c.Tip().Hash))
	require.Equal(t, uint64(13), c.Height())
	for _, typ := range c.Network().Types() {
		mined, e := c.GetMinedCommitment(typ, testGenesis.Hash())
		require.NoError(t, e)
		require.NotNil(t, mined)
		require.Equal(t, blocks[5].Hash(), []byte(mined.BlockHash))
	}
	require.NotEqual(t, oldMined.BlockHash, c.tree.At(10).Hash)
	hashes, err := c.db.GetActiveChain()
	require.NoError(t, err)
	require.Len(t, hashes, 14)
	for i, b := range blocks {
		require.Equal(t, b.Hash(), hashes[6+i])
	}
	best, err := c.Processor.GetBestBlock()
	require.NoError(t, err)
	require.Equal(t, blocks[len(blocks)-1].Hash(), best)
	require.Zero(t, c.Processor.Minable().Len())
	// the abandoned branch stays known and can win back the tip
	require.NotNil(t, c.tree.LookupBlockIndex(oldTip.Hash))
}

func TestReorgFailure(t *testing.T) {
	c := newTestController(t, nil)
	mineTo(t, c, 7, 0)
	gossipGenesisCommitments(t, c, "peer")
	mineTo(t, c, 12, 0)
	tip := c.Tip()
	p, _ := c.Network().Get(quorum.LLMQ10_60)
	blocks, indexes := branch(c, 5, 13, 2, func(height uint64) []*lib.Transaction {
		if height == 8 {
			return []*lib.Transaction{quorum.NewCommitmentTx(height, dummyCommitment(p, testGenesis.Hash(), 1, int(p.Size)))}
		}
		return nil
	})
	for _, b := range blocks[:len(blocks)-1] {
		require.NoError(t, c.SubmitBlock(b))
	}
	err := c.SubmitBlock(blocks[len(blocks)-1])
	require.Error(t, err)
	require.Equal(t, lib.CodeInvalidStructure, err.Code())
	// the active chain and its quorum state are untouched
	require.Equal(t, tip, c.Tip())
	best, e := c.Processor.GetBestBlock()
	require.NoError(t, e)
	require.Equal(t, []byte(tip.Hash), best)
	hashes, e := c.db.GetActiveChain()
	require.NoError(t, e)
	require.Len(t, hashes, 13)
	require.Equal(t, []byte(tip.Hash), hashes[12])
	mined, e := c.GetMinedCommitment(quorum.LLMQ10_60, testGenesis.Hash())
	require.NoError(t, e)
	require.Equal(t, []byte(c.tree.At(10).Hash), []byte(mined.BlockHash))
	// descendants of the failed branch are refused without another attempt
	child := lib.NewBlock(indexes[len(indexes)-1], 2)
	err = c.SubmitBlock(child)
	require.Error(t, err)
	require.Equal(t, lib.CodeInvalidAncestor, err.Code())
	require.Equal(t, tip, c.Tip())
}

func TestDisconnectTip(t *testing.T) {
	c := newTestController(t, nil)
	mineTo(t, c, 7, 0)
	gossipGenesisCommitments(t, c, "peer")
	mineTo(t, c, 12, 0)
	mined, err := c.GetMinedCommitment(quorum.LLMQ10_60, testGenesis.Hash())
	require.NoError(t, err)
	block, err := c.db.GetBlockByHash(mined.BlockHash)
	require.NoError(t, err)
	var notified []uint64
	c.AddHeightListener(HeightListenerFunc(func(tip *lib.BlockIndex) { notified = append(notified, tip.Height) }))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.DisconnectTip())
	}
	require.Equal(t, uint64(9), c.Height())
	require.Equal(t, []uint64{11, 10, 9}, notified)
	// undone commitments are minable again
	require.Equal(t, 2, c.Processor.Minable().Len())
	undone, err := c.GetMinedCommitment(quorum.LLMQ10_60, testGenesis.Hash())
	require.NoError(t, err)
	require.Nil(t, undone)
	minable, err := c.GetMinableCommitment(quorum.LLMQ10_60, 10)
	require.NoError(t, err)
	require.NotNil(t, minable)
	best, err := c.Processor.GetBestBlock()
	require.NoError(t, err)
	require.Equal(t, []byte(c.Tip().Hash), best)
	// a disconnected block reconnects once submitted again
	require.NoError(t, c.SubmitBlock(block))
	require.Equal(t, uint64(10), c.Height())
	require.Equal(t, block.Hash(), []byte(c.Tip().Hash))
	require.Zero(t, c.Processor.Minable().Len())
	// the genesis block can't be undone
	fresh := newTestController(t, nil)
	err = fresh.DisconnectTip()
	require.Error(t, err)
	require.Equal(t, lib.CodeEmptyChain, err.Code())
}

func TestSubmitBlockMNListRoot(t *testing.T) {
	var entries []*evo.SimplifiedMNListEntry
	for i := 0; i < 3; i++ {
		pk, err := crypto.NewBLSPrivateKey()
		require.NoError(t, err)
		entries = append(entries, &evo.SimplifiedMNListEntry{
			ProRegTxHash:   crypto.Hash([]byte{byte(i)}),
			ConfirmedHash:  crypto.Hash([]byte{byte(i), 1}),
			Service:        "127.0.0.1:9999",
			PubKeyOperator: pk.PublicKey().Bytes(),
			KeyIDVoting:    crypto.Hash([]byte{byte(i), 2})[:20],
			IsValid:        true,
		})
	}
	c := newTestController(t, evo.NewStaticMNList(entries...))
	mineTo(t, c, 3, 0)
	block, err := c.db.GetBlockByHash(c.Tip().Hash)
	require.NoError(t, err)
	cb, err := evo.CbTxFromTx(block.Transactions[0])
	require.NoError(t, err)
	require.Equal(t, uint64(3), cb.Height)
	root, err := evo.CalcMerkleRoot(entries)
	require.NoError(t, err)
	require.Equal(t, root, []byte(cb.MerkleRootMNList))
	// a block committing to another masternode list
	tip := c.Tip()
	bad := lib.NewBlock(tip, 0, evo.NewCbTx(4, crypto.Hash([]byte("other list"))))
	err = c.SubmitBlock(bad)
	require.Error(t, err)
	require.Equal(t, lib.CodeBadCbTxMerkleRoot, err.Code())
	require.Equal(t, tip, c.Tip())
	best, err := c.Processor.GetBestBlock()
	require.NoError(t, err)
	require.Equal(t, []byte(tip.Hash), best)
}
