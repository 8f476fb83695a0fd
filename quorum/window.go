package quorum

import (
	"github.com/volkshash/volkshash/lib"
)

/*
	The window calculator derives everything about a DKG instance from a quorum type and a height.
	Every function here is a pure function of the chain history below the height, so all nodes that
	observe the same chain compute the same windows and the same quorum hashes.

	For an interval I, a window [S, E) and a height h:
	- offset         = h mod I
	- quorum height  = h - offset; the first block of the interval anchors the DKG instance
	- mining phase   = S <= offset < E
	- required       = offset == E-1 and nothing was mined for the instance yet
*/

// IntervalOffset() returns the position of height inside its DKG interval
func IntervalOffset(p Params, height uint64) uint64 { return height % p.DKGInterval }

// QuorumHeight() returns the height of the block that anchors the DKG instance containing height
func QuorumHeight(p Params, height uint64) uint64 { return height - IntervalOffset(p, height) }

// IsMiningPhase() returns true if a commitment may legally appear at height
func IsMiningPhase(p Params, height uint64) bool {
	offset := IntervalOffset(p, height)
	return offset >= p.DKGMiningWindowStart && offset < p.DKGMiningWindowEnd
}

// IsLastMiningBlock() returns true if height is the final block of the mining window
func IsLastMiningBlock(p Params, height uint64) bool {
	return IntervalOffset(p, height) == p.DKGMiningWindowEnd-1
}

// IsWindowClosed() returns true if the window of the DKG instance anchored at quorumHeight has closed at height
func IsWindowClosed(p Params, quorumHeight, height uint64) bool {
	return height >= quorumHeight+p.DKGMiningWindowEnd
}

// IsWindowOpen() returns true if the window of the DKG instance anchored at quorumHeight has opened at height
func IsWindowOpen(p Params, quorumHeight, height uint64) bool {
	return height >= quorumHeight+p.DKGMiningWindowStart
}

// GetQuorumBlockHash() returns the hash of the block that begins the DKG interval containing height
// prev must be the parent of the block at height; the result is nil when the anchoring block is
// the one at height itself, as its hash cannot be known while it is being built or processed
func GetQuorumBlockHash(p Params, prev *lib.BlockIndex, height uint64) []byte {
	quorumHeight := QuorumHeight(p, height)
	if prev == nil || quorumHeight > prev.Height {
		return nil
	}
	anchor := prev.GetAncestor(quorumHeight)
	if anchor == nil {
		return nil
	}
	return anchor.Hash
}

// IsCommitmentRequired() returns true if a block at height that carries no commitment for the
// current DKG instance is consensus invalid
// mined reports whether a commitment for the instance is already accepted on the chain ending at prev
func IsCommitmentRequired(p Params, prev *lib.BlockIndex, height uint64, mined func(quorumHash []byte) (bool, lib.ErrorI)) (bool, lib.ErrorI) {
	if !IsLastMiningBlock(p, height) {
		return false, nil
	}
	quorumHash := GetQuorumBlockHash(p, prev, height)
	if quorumHash == nil {
		return false, nil
	}
	found, err := mined(quorumHash)
	if err != nil {
		return false, err
	}
	return !found, nil
}

// Window describes the DKG instance around a height, for queries and logs
type Window struct {
	Type          Type         `json:"type"`
	Height        uint64       `json:"height"`
	Offset        uint64       `json:"offset"`
	QuorumHeight  uint64       `json:"quorumHeight"`
	QuorumHash    lib.HexBytes `json:"quorumHash,omitempty"`
	MiningStart   uint64       `json:"miningStart"` // first height of the mining window
	MiningEnd     uint64       `json:"miningEnd"`   // first height after the mining window
	IsMiningPhase bool         `json:"isMiningPhase"`
}

// NewWindow() describes the DKG instance containing height on the chain ending at prev
func NewWindow(p Params, prev *lib.BlockIndex, height uint64) *Window {
	quorumHeight := QuorumHeight(p, height)
	return &Window{
		Type:          p.Type,
		Height:        height,
		Offset:        IntervalOffset(p, height),
		QuorumHeight:  quorumHeight,
		QuorumHash:    GetQuorumBlockHash(p, prev, height),
		MiningStart:   quorumHeight + p.DKGMiningWindowStart,
		MiningEnd:     quorumHeight + p.DKGMiningWindowEnd,
		IsMiningPhase: IsMiningPhase(p, height),
	}
}
