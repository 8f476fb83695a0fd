package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
	"github.com/volkshash/volkshash/lib/crypto"
)

func TestCommitmentsFromBlock(t *testing.T) {
	quorumHash := crypto.Hash([]byte("quorum"))
	small, big := newTestCommitment(llmq10_60, quorumHash, 10, 10), newTestCommitment(llmq50_60, quorumHash, 50, 50)
	badVersion := &lib.Transaction{
		Version: lib.SpecialTxVersion,
		Type:    lib.TxTypeQuorumCommitment,
		Payload: codec.Encode(&CommitmentTxPayload{Version: 2, Height: 10, Commitment: small}),
	}
	tests := []struct {
		name     string
		detail   string
		txs      []*lib.Transaction
		expected []Type
		class    Class
	}{
		{
			name:   "no commitments",
			detail: "ordinary transactions are skipped",
			txs:    []*lib.Transaction{{Version: 1, Data: []byte("payment")}},
		},
		{
			name:     "one per type",
			detail:   "commitments of different types may share a block",
			txs:      []*lib.Transaction{NewCommitmentTx(10, big), NewCommitmentTx(10, small)},
			expected: []Type{LLMQ50_60, LLMQ10_60},
		},
		{
			name:   "two of a type",
			detail: "two commitments of one type fail the block",
			txs:    []*lib.Transaction{NewCommitmentTx(10, small), NewCommitmentTx(10, newTestCommitment(llmq10_60, quorumHash, 9, 9))},
			class:  ClassTooManyCommitments,
		},
		{
			name:   "two of a type with a wrong height",
			detail: "the duplicate type wins over the positional failure",
			txs:    []*lib.Transaction{NewCommitmentTx(11, small), NewCommitmentTx(10, small)},
			class:  ClassTooManyCommitments,
		},
		{
			name:   "payload height",
			detail: "the payload must name the containing block",
			txs:    []*lib.Transaction{NewCommitmentTx(9, small)},
			class:  ClassWrongWindow,
		},
		{
			name:   "garbage payload",
			detail: "an undecodable payload is structural, never skipped",
			txs:    []*lib.Transaction{{Version: lib.SpecialTxVersion, Type: lib.TxTypeQuorumCommitment, Payload: []byte{0xff, 0xff}}},
			class:  ClassInvalidStructure,
		},
		{
			name:   "payload version",
			detail: "a newer payload version is structural",
			txs:    []*lib.Transaction{badVersion},
			class:  ClassInvalidStructure,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			block := &lib.Block{Header: &lib.BlockHeader{Height: 10}, Transactions: test.txs}
			qcs, types, err := CommitmentsFromBlock(block, 10)
			if test.class != "" {
				require.Error(t, err, test.detail)
				require.Equal(t, test.class, ClassOf(err), test.detail)
				require.Equal(t, BanScoreMax, err.BanScore(), test.detail)
				return
			}
			require.NoError(t, err, test.detail)
			require.Equal(t, len(test.expected), len(types), test.detail)
			for i, typ := range test.expected {
				require.Equal(t, typ, types[i])
				require.Equal(t, typ, qcs[typ].Type)
			}
		})
	}
}

func TestPayloadFromTx(t *testing.T) {
	qc := newTestCommitment(llmq10_60, crypto.Hash([]byte("quorum")), 10, 10)
	tx := NewCommitmentTx(33, qc)
	require.True(t, IsCommitmentTx(tx))
	payload, err := PayloadFromTx(tx)
	require.NoError(t, err)
	require.Equal(t, CurrentPayloadVersion, payload.Version)
	require.Equal(t, uint64(33), payload.Height)
	require.Equal(t, qc.Hash(), payload.Commitment.Hash())
	// an ordinary transaction is not a commitment
	_, err = PayloadFromTx(&lib.Transaction{Version: 1})
	require.Error(t, err)
}
