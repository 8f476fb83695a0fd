package quorum

import (
	"bytes"
	"fmt"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/store"
)

// StepKind is the direction of a reorg step
type StepKind uint8

const (
	StepDisconnect StepKind = iota // undo the block at the current tip
	StepConnect                    // process the block on top of the current tip
)

// String() returns the step name
func (k StepKind) String() string {
	switch k {
	case StepDisconnect:
		return "disconnect"
	case StepConnect:
		return "connect"
	}
	return fmt.Sprintf("step_%d", uint8(k))
}

// BlockSource supplies block bodies by hash
type BlockSource interface {
	GetBlockByHash(hash []byte) (*lib.Block, lib.ErrorI)
}

// ReorgStep is a single disconnect or connect of a reorganization
type ReorgStep struct {
	Kind  StepKind        `json:"kind"`
	Block *lib.Block      `json:"block"`
	Index *lib.BlockIndex `json:"index"`
}

// ReorgPlan moves the tip from OldTip to NewTip: every block above the fork is undone from the top
// down, then every block of the new branch is processed in height order
type ReorgPlan struct {
	OldTip *lib.BlockIndex `json:"oldTip"`
	NewTip *lib.BlockIndex `json:"newTip"`
	Fork   *lib.BlockIndex `json:"fork"`
	Steps  []ReorgStep     `json:"steps"`
}

// NewReorgPlan() builds the plan between two indexes of the same block tree
func NewReorgPlan(oldTip, newTip *lib.BlockIndex, source BlockSource) (*ReorgPlan, lib.ErrorI) {
	fork := lib.LastCommonAncestor(oldTip, newTip)
	if fork == nil {
		return nil, ErrInvalidReorgPlan("tips share no ancestor")
	}
	plan := &ReorgPlan{OldTip: oldTip, NewTip: newTip, Fork: fork}
	// disconnect from the old tip down to the fork
	for walk := oldTip; !walk.Equals(fork); walk = walk.Prev {
		step, err := newReorgStep(StepDisconnect, walk, source)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, step)
	}
	// collect the new branch top down, then connect it bottom up
	var branch []*lib.BlockIndex
	for walk := newTip; !walk.Equals(fork); walk = walk.Prev {
		branch = append(branch, walk)
	}
	for i := len(branch) - 1; i >= 0; i-- {
		step, err := newReorgStep(StepConnect, branch[i], source)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

func newReorgStep(kind StepKind, idx *lib.BlockIndex, source BlockSource) (ReorgStep, lib.ErrorI) {
	block, err := source.GetBlockByHash(idx.Hash)
	if err != nil {
		return ReorgStep{}, err
	}
	if block == nil {
		return ReorgStep{}, ErrInvalidReorgPlan(fmt.Sprintf("block %s at height %d is unavailable", lib.BytesToTruncatedString(idx.Hash), idx.Height))
	}
	return ReorgStep{Kind: kind, Block: block, Index: idx}, nil
}

// Disconnects() returns the number of disconnect steps
func (x *ReorgPlan) Disconnects() (n int) {
	for _, s := range x.Steps {
		if s.Kind == StepDisconnect {
			n++
		}
	}
	return
}

// Connects() returns the number of connect steps
func (x *ReorgPlan) Connects() int { return len(x.Steps) - x.Disconnects() }

// Validate() checks the steps form a strict LIFO undo to the fork followed by an ordered reconnect
func (x *ReorgPlan) Validate() lib.ErrorI {
	if x == nil || x.OldTip == nil || x.NewTip == nil || x.Fork == nil {
		return ErrInvalidReorgPlan("incomplete plan")
	}
	tip, connecting := x.OldTip, false
	for i, s := range x.Steps {
		if s.Index == nil || s.Block == nil || s.Block.Header == nil {
			return ErrInvalidReorgPlan(fmt.Sprintf("step %d is empty", i))
		}
		if !bytes.Equal(s.Block.Hash(), s.Index.Hash) {
			return ErrInvalidReorgPlan(fmt.Sprintf("step %d block does not match its index", i))
		}
		switch s.Kind {
		case StepDisconnect:
			if connecting {
				return ErrInvalidReorgPlan(fmt.Sprintf("step %d disconnects after a connect", i))
			}
			if !s.Index.Equals(tip) {
				return ErrInvalidReorgPlan(fmt.Sprintf("step %d does not disconnect the tip", i))
			}
			tip = tip.Prev
		case StepConnect:
			if !connecting && !tip.Equals(x.Fork) {
				return ErrInvalidReorgPlan(fmt.Sprintf("step %d connects above height %d before reaching the fork", i, tip.Height))
			}
			connecting = true
			if !s.Index.Prev.Equals(tip) {
				return ErrInvalidReorgPlan(fmt.Sprintf("step %d does not extend the tip", i))
			}
			tip = s.Index
		default:
			return ErrInvalidReorgPlan(fmt.Sprintf("step %d has unknown kind %d", i, s.Kind))
		}
	}
	if !tip.Equals(x.NewTip) {
		return ErrInvalidReorgPlan("steps do not end at the new tip")
	}
	return nil
}

// ReorgHook is called after every successful step with the overlay the step wrote to
type ReorgHook func(db lib.RWStoreI, step ReorgStep) lib.ErrorI

// ApplyPlan() runs every step of the plan inside one overlay over the processor store
// On the first failing step the overlay is dropped and the store is left exactly as it was
// The returned changes must be applied with Apply() once the parent store commits
func (p *Processor) ApplyPlan(plan *ReorgPlan, hook ReorgHook) ([]*Changes, lib.ErrorI) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	parent := p.store
	txn := store.NewTxn(parent)
	p.SetStore(txn)
	defer p.SetStore(parent)
	all := make([]*Changes, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		var (
			changes *Changes
			err     lib.ErrorI
		)
		switch step.Kind {
		case StepDisconnect:
			changes, err = p.UndoBlock(step.Block, step.Index)
		case StepConnect:
			changes, err = p.ProcessBlock(step.Block, step.Index.Prev)
		}
		if err == nil && hook != nil {
			err = hook(txn, step)
		}
		if err != nil {
			txn.Discard()
			p.log.Warnf("Reorg from %d to %d failed at step %d: %s", plan.OldTip.Height, plan.NewTip.Height, i, err.Error())
			return nil, ErrReorgStep(i, step.Kind, step.Index.Height, err)
		}
		all = append(all, changes)
	}
	if err := txn.Write(); err != nil {
		return nil, err
	}
	p.log.Infof("Reorganized from height %d to %d over fork %d (%d disconnected, %d connected)",
		plan.OldTip.Height, plan.NewTip.Height, plan.Fork.Height, plan.Disconnects(), plan.Connects())
	return all, nil
}
