package quorum

import (
	"github.com/volkshash/volkshash/lib"
)

/*
	Gossiped commitments are advisory: a failure here never affects consensus, it only decides whether
	the commitment is cached and how much the relaying peer is penalized.

	Handling is split in two stages so signature verification never runs under the chain lock:
	- CheckCommitmentMessage() reads the chain view and the mined index, the caller holds the chain lock
	- AcceptCommitmentMessage() verifies signatures and updates the cache, no chain lock needed
*/

const (
	// results of gossip handling, used as metric labels
	GossipAccepted = "accepted"
	GossipIgnored  = "ignored"
	GossipRejected = "rejected"
)

// CheckedCommitment is a gossiped commitment that passed every check needing chain state
type CheckedCommitment struct {
	Params     Params           `json:"params"`
	Commitment *FinalCommitment `json:"commitment"`
	Height     uint64           `json:"height"` // the height the commitment was checked against
}

// ProcessCommitmentMessage() runs both gossip stages; returns true if the commitment became the best
// of its DKG instance and should be relayed
func (p *Processor) ProcessCommitmentMessage(qc *FinalCommitment, chain lib.ChainViewI) (bool, lib.ErrorI) {
	checked, err := p.CheckCommitmentMessage(qc, chain)
	if err != nil {
		return false, err
	}
	return p.AcceptCommitmentMessage(checked)
}

// CheckCommitmentMessage() validates a gossiped commitment against the height after the current tip
func (p *Processor) CheckCommitmentMessage(qc *FinalCommitment, chain lib.ChainViewI) (c *CheckedCommitment, err lib.ErrorI) {
	defer func() {
		if err != nil {
			p.gossipResult(err)
		}
	}()
	if qc == nil {
		return nil, ErrInvalidStructure("nil commitment")
	}
	params, ok := p.network.Get(qc.Type)
	if !ok {
		return nil, ErrUnknownQuorumType(qc.Type)
	}
	// we may be the node that is behind, so an unknown or inactive block is never the sender's fault
	quorumBlock := chain.LookupBlockIndex(qc.QuorumHash)
	if quorumBlock == nil {
		return nil, ErrUnknownQuorumBlock(qc.QuorumHash)
	}
	if !chain.Contains(quorumBlock) {
		return nil, ErrQuorumBlockNotActive(qc.QuorumHash)
	}
	if IntervalOffset(params, quorumBlock.Height) != 0 {
		return nil, ErrNotIntervalStart(qc.QuorumHash, quorumBlock.Height)
	}
	// skip any further work if the cache already holds a commitment at least as broad
	if best := p.minable.GetBest(qc.Type, qc.QuorumHash); best != nil && best.CountValidMembers() >= qc.CountValidMembers() {
		return nil, ErrBetterCommitmentCached(qc.Type, qc.QuorumHash)
	}
	if err = qc.CheckStructure(params); err != nil {
		return nil, err
	}
	tip := chain.Tip()
	if tip == nil {
		return nil, ErrUnknownQuorumBlock(qc.QuorumHash)
	}
	height := tip.Height + 1
	if !p.network.IsActive(height) {
		return nil, withBanScore(ErrNotActive(height), BanScoreNone)
	}
	// a late commitment may have raced the tip; commitments are produced during the finalization
	// phase, so anything earlier than one phase before the window cannot come from an honest DKG
	if IsWindowClosed(params, quorumBlock.Height, height) {
		return nil, ErrStaleCommitment(qc.Type, qc.QuorumHash, height)
	}
	if !IsWindowOpen(params, quorumBlock.Height, height+params.DKGPhaseBlocks) {
		return nil, ErrEarlyCommitment(qc.Type, qc.QuorumHash, height)
	}
	mined, err := p.HasMinedCommitment(qc.Type, qc.QuorumHash)
	if err != nil {
		return nil, err
	}
	if mined {
		return nil, withBanScore(ErrDuplicateCommitment(qc.Type, qc.QuorumHash), BanScoreNone)
	}
	return &CheckedCommitment{Params: params, Commitment: qc, Height: height}, nil
}

// AcceptCommitmentMessage() verifies the signatures of a checked commitment and caches it
func (p *Processor) AcceptCommitmentMessage(c *CheckedCommitment) (added bool, err lib.ErrorI) {
	defer func() { p.gossipResult(err) }()
	qc := c.Commitment
	if err = p.validator.CheckSignatures(c.Params, qc); err != nil {
		return false, err
	}
	// a concurrent handler may have cached a broader commitment since the check
	if !p.AddMinableCommitment(qc) {
		if p.minable.GetBest(qc.Type, qc.QuorumHash) == nil {
			p.log.Warnf("Minable cache is full, dropped %s commitment for quorum %s", qc.Type, lib.BytesToTruncatedString(qc.QuorumHash))
		}
		return false, ErrBetterCommitmentCached(qc.Type, qc.QuorumHash)
	}
	p.log.Debugf("Cached %s commitment for quorum %s at height %d (%d valid members)",
		qc.Type, lib.BytesToTruncatedString(qc.QuorumHash), c.Height, qc.CountValidMembers())
	return true, nil
}

// gossipResult() counts the outcome of a gossip stage
func (p *Processor) gossipResult(err lib.ErrorI) {
	switch {
	case err == nil:
		p.metrics.GossipResult(GossipAccepted)
	case err.BanScore() == BanScoreNone:
		p.metrics.GossipResult(GossipIgnored)
	default:
		p.metrics.GossipResult(GossipRejected)
	}
}
