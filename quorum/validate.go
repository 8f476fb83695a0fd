package quorum

import (
	"bytes"
	"fmt"

	"github.com/volkshash/volkshash/lib"
)

// MinedLookup answers whether a DKG instance already has an accepted commitment on the chain being extended
type MinedLookup interface {
	HasMinedCommitment(t Type, quorumHash []byte) (bool, lib.ErrorI)
}

// Validator applies the rules both the block path and the gossip path share
// It never mutates the commitment it validates
type Validator struct {
	network  *NetworkParams
	verifier Verifier // nil disables signature checks
}

// NewValidator() creates a validator for a network
func NewValidator(network *NetworkParams, verifier Verifier) *Validator {
	return &Validator{network: network, verifier: verifier}
}

// Network() returns the parameter table the validator enforces
func (v *Validator) Network() *NetworkParams { return v.network }

// CheckStructure() looks up the quorum parameters and checks the commitment shape
func (v *Validator) CheckStructure(qc *FinalCommitment) (Params, lib.ErrorI) {
	if qc == nil {
		return Params{}, ErrInvalidStructure("nil commitment")
	}
	p, ok := v.network.Get(qc.Type)
	if !ok {
		return Params{}, ErrUnknownQuorumType(qc.Type)
	}
	return p, qc.CheckStructure(p)
}

// CheckPosition() checks the commitment belongs to the DKG instance whose window contains height
func (v *Validator) CheckPosition(p Params, qc *FinalCommitment, prev *lib.BlockIndex, height uint64) lib.ErrorI {
	expected := GetQuorumBlockHash(p, prev, height)
	if expected == nil {
		return ErrWrongWindow(fmt.Sprintf("%s quorum hash unknown at height %d", p.Type, height))
	}
	if !bytes.Equal(expected, qc.QuorumHash) {
		return ErrWrongWindow(fmt.Sprintf("%s quorum hash %x does not match %x at height %d", p.Type, []byte(qc.QuorumHash), expected, height))
	}
	if !IsMiningPhase(p, height) {
		return ErrWrongWindow(fmt.Sprintf("%s height %d at offset %d is not in the mining phase", p.Type, height, IntervalOffset(p, height)))
	}
	return nil
}

// CheckSignatures() delegates cryptographic verification to the external verifier
func (v *Validator) CheckSignatures(p Params, qc *FinalCommitment) lib.ErrorI {
	if v.verifier == nil || (v.network.AllowDummyCommitments && qc.HasNullSignatures()) {
		return nil
	}
	return v.verifier.VerifyCommitment(p, qc)
}

// ValidateCommitment() runs every rule for a commitment proposed for the block at height on top of prev
func (v *Validator) ValidateCommitment(qc *FinalCommitment, prev *lib.BlockIndex, height uint64, mined MinedLookup) (*FinalCommitment, lib.ErrorI) {
	// shape first: unknown types and malformed bitsets
	p, err := v.CheckStructure(qc)
	if err != nil {
		return nil, err
	}
	// the quorum hash must be the one the window calculator expects
	expected := GetQuorumBlockHash(p, prev, height)
	if expected == nil || !bytes.Equal(expected, qc.QuorumHash) {
		return nil, v.CheckPosition(p, qc, prev, height)
	}
	// one commitment per DKG instance on a chain
	found, err := mined.HasMinedCommitment(qc.Type, qc.QuorumHash)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrDuplicateCommitment(qc.Type, qc.QuorumHash)
	}
	if err = v.CheckPosition(p, qc, prev, height); err != nil {
		return nil, err
	}
	if err = v.CheckSignatures(p, qc); err != nil {
		return nil, err
	}
	return qc, nil
}
