package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib/crypto"
)

func TestBitset(t *testing.T) {
	b := NewBitset(10)
	require.Len(t, b.Bits, 2)
	require.True(t, b.IsWellFormed())
	b.Set(0, true)
	b.Set(9, true)
	b.Set(10, true) // out of range is ignored
	require.Equal(t, uint32(2), b.Count())
	require.True(t, b.Get(9))
	require.False(t, b.Get(10))
	require.True(t, b.AnySetFrom(5))
	require.False(t, b.AnySetFrom(10))
	b.Set(9, false)
	require.False(t, b.AnySetFrom(1))
	// a padding bit makes the set malformed
	b.Bits[1] |= 0x80
	require.False(t, b.IsWellFormed())
	require.False(t, (&Bitset{Len: 10, Bits: []byte{1}}).IsWellFormed())
}

func TestFinalCommitmentCheckStructure(t *testing.T) {
	p := llmq50_60
	quorumHash := crypto.Hash([]byte("quorum"))
	tests := []struct {
		name     string
		detail   string
		mutate   func(qc *FinalCommitment)
		hasError bool
	}{
		{
			name:   "valid",
			detail: "full participation is valid",
			mutate: func(qc *FinalCommitment) {},
		},
		{
			name:     "below threshold",
			detail:   "25 signers fail the threshold of 30",
			mutate:   func(qc *FinalCommitment) { *qc = *newTestCommitment(p, quorumHash, 25, 50) },
			hasError: true,
		},
		{
			name:   "at threshold",
			detail: "exactly the threshold of signers and the minimum of valid members pass",
			mutate: func(qc *FinalCommitment) { *qc = *newTestCommitment(p, quorumHash, 30, 40) },
		},
		{
			name:     "below min size",
			detail:   "39 valid members fail the minimum of 40",
			mutate:   func(qc *FinalCommitment) { *qc = *newTestCommitment(p, quorumHash, 50, 39) },
			hasError: true,
		},
		{
			name:     "bitset length",
			detail:   "the bitsets must have exactly size bits",
			mutate:   func(qc *FinalCommitment) { qc.Signers = NewBitset(10) },
			hasError: true,
		},
		{
			name:     "version",
			detail:   "only the current version is accepted",
			mutate:   func(qc *FinalCommitment) { qc.Version = 2 },
			hasError: true,
		},
		{
			name:     "quorum hash",
			detail:   "the quorum hash is a block hash",
			mutate:   func(qc *FinalCommitment) { qc.QuorumHash = []byte("short") },
			hasError: true,
		},
		{
			name:     "public key",
			detail:   "the quorum public key is a 48 byte point",
			mutate:   func(qc *FinalCommitment) { qc.QuorumPublicKey = qc.QuorumPublicKey[1:] },
			hasError: true,
		},
		{
			name:     "signature",
			detail:   "both signatures are 96 bytes",
			mutate:   func(qc *FinalCommitment) { qc.MembersSig = nil },
			hasError: true,
		},
		{
			name:     "type",
			detail:   "the commitment must be checked against its own type",
			mutate:   func(qc *FinalCommitment) { qc.Type = LLMQ400_60 },
			hasError: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			qc := newTestCommitment(p, quorumHash, 50, 50)
			test.mutate(qc)
			err := qc.CheckStructure(p)
			require.Equal(t, test.hasError, err != nil, test.detail)
			if err != nil {
				require.True(t, IsClass(err, ClassInvalidStructure), test.detail)
			}
		})
	}
}

func TestFinalCommitmentEncoding(t *testing.T) {
	qc := newTestCommitment(llmq50_60, crypto.Hash([]byte("quorum")), 40, 45)
	got, err := NewFinalCommitmentFromBytes(qc.Bytes())
	require.NoError(t, err)
	require.Equal(t, qc, got)
	require.Equal(t, qc.Hash(), got.Hash())
	// truncated bytes are a structural failure
	_, err = NewFinalCommitmentFromBytes(qc.Bytes()[:20])
	require.Error(t, err)
	require.True(t, IsClass(err, ClassInvalidStructure))
}

func TestCommitmentHash(t *testing.T) {
	qc := newTestCommitment(llmq50_60, crypto.Hash([]byte("quorum")), 40, 45)
	hash := qc.CommitmentHash()
	// signatures and signers are not part of the signed message
	qc.QuorumSig, qc.Signers = make([]byte, crypto.BLS12381SignatureSize), NewBitset(50)
	require.Equal(t, hash, qc.CommitmentHash())
	// valid members are
	qc.ValidMembers.Set(49, true)
	require.NotEqual(t, hash, qc.CommitmentHash())
	// the identity covers everything
	other := newTestCommitment(llmq50_60, crypto.Hash([]byte("quorum")), 41, 45)
	require.NotEqual(t, other.Hash(), newTestCommitment(llmq50_60, crypto.Hash([]byte("quorum")), 40, 45).Hash())
}
