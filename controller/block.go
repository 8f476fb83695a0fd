package controller

import (
	"time"

	"github.com/volkshash/volkshash/evo"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
	"github.com/volkshash/volkshash/store"
)

/*
	Every tip change follows the same order:
	1. write the new chain state into the store batch (quorum index, best block marker, block index)
	2. commit the batch, or discard it on the first failure
	3. only then update memory: the block tree tip, the minable cache, metrics and height listeners
*/

// SubmitBlock() accepts a block from any source and moves the tip if it extends the best chain
func (c *Controller) SubmitBlock(block *lib.Block) lib.ErrorI {
	tip, err := c.submitBlock(block)
	c.notify(tip)
	return err
}

// DisconnectTip() undoes the active tip, leaving its block known but off the active chain
func (c *Controller) DisconnectTip() lib.ErrorI {
	tip, err := c.disconnectTip()
	c.notify(tip)
	return err
}

// submitBlock() returns the new active tip if the block changed it
func (c *Controller) submitBlock(block *lib.Block) (*lib.BlockIndex, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	if err := block.Check(); err != nil {
		return nil, err
	}
	hash, tip := block.Hash(), c.tree.Tip()
	if _, bad := c.invalid[string(block.Header.PrevHash)]; bad {
		c.invalid[string(hash)] = struct{}{}
		return nil, ErrInvalidAncestor(hash)
	}
	// a known block only matters if it is a better tip we are not on, such as a disconnected one
	if known := c.tree.LookupBlockIndex(hash); known != nil {
		if c.tree.Contains(known) || known.Height <= tip.Height {
			return nil, nil
		}
		return c.reorg(known)
	}
	prev := c.tree.LookupBlockIndex(block.Header.PrevHash)
	if prev == nil {
		return nil, ErrOrphanBlock(hash, block.Header.PrevHash)
	}
	if prev.Height+1 != block.Height() {
		return nil, lib.ErrNonContiguousPrev(block.Height())
	}
	if prev.Equals(tip) {
		return c.connectTip(block, prev)
	}
	// a side branch block is stored and only applied once its branch becomes the best
	if err := c.db.IndexBlock(block); err != nil {
		c.db.Discard()
		return nil, err
	}
	if err := c.db.Commit(); err != nil {
		return nil, err
	}
	idx, err := c.tree.AddBlockIndex(hash, prev.Hash)
	if err != nil {
		return nil, err
	}
	if idx.Height <= tip.Height {
		c.log.Debugf("Stored side branch block %d (%s)", idx.Height, lib.BytesToTruncatedString(hash))
		return nil, nil
	}
	return c.reorg(idx)
}

// connectTip() applies a block built on the active tip
func (c *Controller) connectTip(block *lib.Block, prev *lib.BlockIndex) (*lib.BlockIndex, lib.ErrorI) {
	start := time.Now()
	if err := evo.CheckBlockCbTx(block, prev); err != nil {
		return nil, err
	}
	changes, err := c.Processor.ProcessBlock(block, prev)
	if err != nil {
		c.db.Discard()
		return nil, err
	}
	hash := block.Hash()
	// the masternode list root can only be checked once the block was processed
	if err = evo.CheckCbTxMerkleRootMNList(block, lib.NewBlockIndex(hash, prev), c.mnList); err != nil {
		c.db.Discard()
		return nil, err
	}
	if err = c.db.IndexBlock(block); err != nil {
		c.db.Discard()
		return nil, err
	}
	if err = c.db.SetActiveHash(block.Height(), hash); err != nil {
		c.db.Discard()
		return nil, err
	}
	if err = c.db.Commit(); err != nil {
		return nil, err
	}
	idx, err := c.tree.AddBlockIndex(hash, prev.Hash)
	if err != nil {
		return nil, err
	}
	c.tree.SetTip(idx)
	c.afterTipChange(start, changes)
	return idx, nil
}

// disconnectTip() undoes the active tip and returns the new one
func (c *Controller) disconnectTip() (*lib.BlockIndex, lib.ErrorI) {
	c.Lock()
	defer c.Unlock()
	start, tip := time.Now(), c.tree.Tip()
	if tip.Prev == nil {
		return nil, ErrEmptyChain()
	}
	block, err := c.db.GetBlockByHash(tip.Hash)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, ErrMissingBlock(tip.Hash)
	}
	changes, err := c.Processor.UndoBlock(block, tip)
	if err != nil {
		c.db.Discard()
		return nil, err
	}
	if err = c.db.DeleteActiveHash(tip.Height); err != nil {
		c.db.Discard()
		return nil, err
	}
	if err = c.db.Commit(); err != nil {
		return nil, err
	}
	c.tree.SetTip(tip.Prev)
	c.afterTipChange(start, changes)
	return tip.Prev, nil
}

// reorg() moves the active chain to newTip as one atomic batch
func (c *Controller) reorg(newTip *lib.BlockIndex) (*lib.BlockIndex, lib.ErrorI) {
	start := time.Now()
	plan, err := quorum.NewReorgPlan(c.tree.Tip(), newTip, c.db)
	if err != nil {
		return nil, err
	}
	changes, err := c.Processor.ApplyPlan(plan, c.reorgStep)
	if err != nil {
		c.db.Discard()
		c.invalid[string(newTip.Hash)] = struct{}{}
		return nil, err
	}
	if err = c.db.Commit(); err != nil {
		return nil, err
	}
	c.tree.SetTip(newTip)
	c.afterTipChange(start, changes...)
	return newTip, nil
}

// reorgStep() runs the non quorum parts of a reorg step inside the reorg overlay
func (c *Controller) reorgStep(db lib.RWStoreI, step quorum.ReorgStep) lib.ErrorI {
	indexer := store.NewIndexer(db)
	if step.Kind == quorum.StepDisconnect {
		return indexer.DeleteActiveHash(step.Index.Height)
	}
	if err := evo.CheckBlockCbTx(step.Block, step.Index.Prev); err != nil {
		return err
	}
	if err := evo.CheckCbTxMerkleRootMNList(step.Block, step.Index, c.mnList); err != nil {
		return err
	}
	return indexer.SetActiveHash(step.Index.Height, step.Index.Hash)
}

// afterTipChange() performs the memory side effects of a committed tip change
func (c *Controller) afterTipChange(start time.Time, changes ...*quorum.Changes) {
	tip := c.tree.Tip()
	c.Processor.Apply(changes...)
	c.Processor.PruneMinable(tip)
	c.metrics.UpdateChainMetrics(tip.Height, time.Since(start))
	c.log.Infof("Updated tip to %d (%s) in %s", tip.Height, lib.BytesToTruncatedString(tip.Hash), time.Since(start))
}
