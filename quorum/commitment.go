package quorum

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
	"github.com/volkshash/volkshash/lib/crypto"
)

// CurrentCommitmentVersion is the only final commitment version the rules accept
const CurrentCommitmentVersion uint16 = 1

// Bitset is a fixed length set of bits packed least significant bit first
// It shares the byte layout of a kyber sign.Mask so it can seed aggregate key masks directly
type Bitset struct {
	Len  uint32       `json:"len"`  // number of bits
	Bits lib.HexBytes `json:"bits"` // ceil(Len/8) bytes, padding bits are zero
}

// NewBitset() returns a cleared bitset of n bits
func NewBitset(n uint32) Bitset { return Bitset{Len: n, Bits: make([]byte, (n+7)/8)} }

// Set() sets or clears bit i, ignoring out of range indexes
func (b *Bitset) Set(i uint32, v bool) {
	if i >= b.Len || int(i/8) >= len(b.Bits) {
		return
	}
	if v {
		b.Bits[i/8] |= 1 << (i % 8)
	} else {
		b.Bits[i/8] &^= 1 << (i % 8)
	}
}

// Get() returns bit i; out of range bits are unset
func (b *Bitset) Get(i uint32) bool {
	if i >= b.Len || int(i/8) >= len(b.Bits) {
		return false
	}
	return b.Bits[i/8]&(1<<(i%8)) != 0
}

// Count() returns the number of set bits
func (b *Bitset) Count() (n uint32) {
	for _, x := range b.Bits {
		n += uint32(bits.OnesCount8(x))
	}
	return
}

// IsWellFormed() returns true if the byte length matches Len and no padding bit is set
func (b *Bitset) IsWellFormed() bool {
	if len(b.Bits) != int((b.Len+7)/8) {
		return false
	}
	if rem := b.Len % 8; rem != 0 {
		return b.Bits[len(b.Bits)-1]>>rem == 0
	}
	return true
}

// AnySetFrom() returns true if any bit at or above i is set
func (b *Bitset) AnySetFrom(i uint32) bool {
	for ; i < b.Len; i++ {
		if b.Get(i) {
			return true
		}
	}
	return false
}

func (b *Bitset) EncodeWire(e *codec.Encoder) {
	e.Uint32(1, b.Len)
	e.RawBytes(2, b.Bits)
}

func (b *Bitset) DecodeWire(d *codec.Decoder) {
	b.Len = d.Uint32(1)
	b.Bits = d.RawBytes(2)
}

// FinalCommitment is the on-chain proof that a DKG instance completed with enough participation
type FinalCommitment struct {
	Version         uint16       `json:"version"`
	Type            Type         `json:"type"`
	QuorumHash      lib.HexBytes `json:"quorumHash"`
	Signers         Bitset       `json:"signers"`
	ValidMembers    Bitset       `json:"validMembers"`
	QuorumPublicKey lib.HexBytes `json:"quorumPublicKey"`
	QuorumVvecHash  lib.HexBytes `json:"quorumVvecHash"`
	QuorumSig       lib.HexBytes `json:"quorumSig"`  // threshold signature of the commitment hash by the new quorum key
	MembersSig      lib.HexBytes `json:"membersSig"` // aggregate signature of the commitment hash by the signers
}

// NewFinalCommitment() returns an unsigned commitment with correctly sized bitsets
func NewFinalCommitment(p Params, quorumHash []byte) *FinalCommitment {
	return &FinalCommitment{
		Version:      CurrentCommitmentVersion,
		Type:         p.Type,
		QuorumHash:   quorumHash,
		Signers:      NewBitset(p.Size),
		ValidMembers: NewBitset(p.Size),
	}
}

// Hash() returns the identity of the commitment, the sha256 of its encoding
func (x *FinalCommitment) Hash() []byte { return crypto.Hash(x.Bytes()) }

// Bytes() returns the canonical encoding
func (x *FinalCommitment) Bytes() []byte { return codec.Encode(x) }

// CommitmentHash() returns the message both signatures commit to
func (x *FinalCommitment) CommitmentHash() []byte {
	return crypto.HashConcat([]byte{byte(x.Type)}, x.QuorumHash, codec.Encode(&x.ValidMembers), x.QuorumPublicKey, x.QuorumVvecHash)
}

// CountSigners() returns the number of members that signed
func (x *FinalCommitment) CountSigners() uint32 { return x.Signers.Count() }

// CountValidMembers() returns the number of members that completed the DKG correctly
func (x *FinalCommitment) CountValidMembers() uint32 { return x.ValidMembers.Count() }

// HasNullSignatures() returns true if both signatures are all zero, the shape of a dummy commitment
func (x *FinalCommitment) HasNullSignatures() bool {
	zero := make([]byte, crypto.BLS12381SignatureSize)
	return bytes.Equal(x.QuorumSig, zero) && bytes.Equal(x.MembersSig, zero)
}

// CheckStructure() validates the self consistency of the commitment against its quorum parameters
func (x *FinalCommitment) CheckStructure(p Params) lib.ErrorI {
	switch {
	case x.Version != CurrentCommitmentVersion:
		return ErrInvalidStructure(fmt.Sprintf("version %d", x.Version))
	case x.Type != p.Type:
		return ErrInvalidStructure(fmt.Sprintf("type %d checked against %s", x.Type, p.Type))
	case len(x.QuorumHash) != crypto.HashSize:
		return ErrInvalidStructure("quorum hash length")
	case x.Signers.Len != p.Size || !x.Signers.IsWellFormed():
		return ErrInvalidStructure(fmt.Sprintf("signers bitset of %d bits, want %d", x.Signers.Len, p.Size))
	case x.ValidMembers.Len != p.Size || !x.ValidMembers.IsWellFormed():
		return ErrInvalidStructure(fmt.Sprintf("valid members bitset of %d bits, want %d", x.ValidMembers.Len, p.Size))
	case x.CountSigners() < p.Threshold:
		return ErrInvalidStructure(fmt.Sprintf("%d signers below threshold %d", x.CountSigners(), p.Threshold))
	case x.CountValidMembers() < p.MinSize:
		return ErrInvalidStructure(fmt.Sprintf("%d valid members below minimum %d", x.CountValidMembers(), p.MinSize))
	case len(x.QuorumPublicKey) != crypto.BLS12381PubKeySize:
		return ErrInvalidStructure("quorum public key length")
	case len(x.QuorumVvecHash) != crypto.HashSize:
		return ErrInvalidStructure("verification vector hash length")
	case len(x.QuorumSig) != crypto.BLS12381SignatureSize || len(x.MembersSig) != crypto.BLS12381SignatureSize:
		return ErrInvalidStructure("signature length")
	}
	return nil
}

func (x *FinalCommitment) EncodeWire(e *codec.Encoder) {
	e.Uint32(1, uint32(x.Version))
	e.Uint32(2, uint32(x.Type))
	e.RawBytes(3, x.QuorumHash)
	e.Message(4, &x.Signers)
	e.Message(5, &x.ValidMembers)
	e.RawBytes(6, x.QuorumPublicKey)
	e.RawBytes(7, x.QuorumVvecHash)
	e.RawBytes(8, x.QuorumSig)
	e.RawBytes(9, x.MembersSig)
}

func (x *FinalCommitment) DecodeWire(d *codec.Decoder) {
	version, typ := d.Uint32(1), d.Uint32(2)
	if version > 1<<16-1 || typ > 1<<8-1 {
		d.Fail(fmt.Errorf("version %d or type %d out of range", version, typ))
	}
	x.Version, x.Type = uint16(version), Type(typ)
	x.QuorumHash = d.RawBytes(3)
	d.Message(4, &x.Signers)
	d.Message(5, &x.ValidMembers)
	x.QuorumPublicKey = d.RawBytes(6)
	x.QuorumVvecHash = d.RawBytes(7)
	x.QuorumSig = d.RawBytes(8)
	x.MembersSig = d.RawBytes(9)
}

// NewFinalCommitmentFromBytes() decodes a commitment; any decoding failure is a structural failure
func NewFinalCommitmentFromBytes(bz []byte) (*FinalCommitment, lib.ErrorI) {
	x := new(FinalCommitment)
	if err := codec.Decode(bz, x); err != nil {
		return nil, ErrMalformedPayload(err)
	}
	return x, nil
}

// MinedEntry is the value of the mined commitment index for one DKG instance
type MinedEntry struct {
	CommitmentHash lib.HexBytes `json:"commitmentHash"`
	BlockHash      lib.HexBytes `json:"blockHash"` // the block that mined it
	Height         uint64       `json:"height"`
}

func (x *MinedEntry) EncodeWire(e *codec.Encoder) {
	e.RawBytes(1, x.CommitmentHash)
	e.RawBytes(2, x.BlockHash)
	e.Uint64(3, x.Height)
}

func (x *MinedEntry) DecodeWire(d *codec.Decoder) {
	x.CommitmentHash = d.RawBytes(1)
	x.BlockHash = d.RawBytes(2)
	x.Height = d.Uint64(3)
}
