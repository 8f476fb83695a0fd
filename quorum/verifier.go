package quorum

import (
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/crypto"
)

// Verifier checks the cryptographic signatures of a structurally valid commitment
type Verifier interface {
	VerifyCommitment(p Params, qc *FinalCommitment) lib.ErrorI
}

// MemberProvider supplies the ordered members of a DKG instance, computed from the deterministic
// masternode list at the quorum block; each entry is a 48 byte BLS operator public key
type MemberProvider interface {
	GetQuorumMembers(t Type, quorumHash []byte) ([][]byte, lib.ErrorI)
}

var _ Verifier = &BLSVerifier{}

// BLSVerifier verifies the quorum threshold signature and the aggregate signature of the signers
type BLSVerifier struct {
	members MemberProvider
}

// NewBLSVerifier() creates a verifier over a member provider
func NewBLSVerifier(members MemberProvider) *BLSVerifier { return &BLSVerifier{members: members} }

// VerifyCommitment() verifies both signatures over the commitment hash
func (v *BLSVerifier) VerifyCommitment(p Params, qc *FinalCommitment) lib.ErrorI {
	members, err := v.members.GetQuorumMembers(qc.Type, qc.QuorumHash)
	if err != nil {
		return ErrUnknownMembers(qc.Type, qc.QuorumHash, err)
	}
	if len(members) == 0 || len(members) > int(p.Size) {
		return ErrInvalidCommitmentSig("member list does not fit the quorum size")
	}
	// no bit may reference a member that does not exist
	if qc.Signers.AnySetFrom(uint32(len(members))) || qc.ValidMembers.AnySetFrom(uint32(len(members))) {
		return ErrInvalidStructure("bit set for a member beyond the member list")
	}
	msg := qc.CommitmentHash()
	quorumKey, e := crypto.NewBLSPublicKeyFromBytes(qc.QuorumPublicKey)
	if e != nil {
		return ErrInvalidCommitmentSig(e.Error())
	}
	if !quorumKey.VerifyBytes(msg, qc.QuorumSig) {
		return ErrInvalidCommitmentSig("quorum signature")
	}
	// the signers bitmap selects the keys of the aggregate
	multiKey, e := crypto.NewAggregateKey(members, qc.Signers.Bits[:(len(members)+7)/8])
	if e != nil {
		return ErrInvalidCommitmentSig(e.Error())
	}
	if !multiKey.VerifyBytes(msg, qc.MembersSig) {
		return ErrInvalidCommitmentSig("members aggregate signature")
	}
	return nil
}
