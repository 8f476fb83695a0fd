package quorum

import (
	"fmt"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
)

// CurrentPayloadVersion is the newest commitment transaction payload version
const CurrentPayloadVersion uint16 = 1

// CommitmentTxPayload is the special transaction envelope that carries a commitment inside a block
type CommitmentTxPayload struct {
	Version    uint16           `json:"version"`
	Height     uint64           `json:"height"` // must equal the height of the containing block
	Commitment *FinalCommitment `json:"commitment"`
}

func (x *CommitmentTxPayload) EncodeWire(e *codec.Encoder) {
	e.Uint32(1, uint32(x.Version))
	e.Uint64(2, x.Height)
	e.Message(3, x.Commitment)
}

func (x *CommitmentTxPayload) DecodeWire(d *codec.Decoder) {
	version := d.Uint32(1)
	if version > 1<<16-1 {
		d.Fail(fmt.Errorf("payload version %d out of range", version))
	}
	x.Version = uint16(version)
	x.Height = d.Uint64(2)
	x.Commitment = new(FinalCommitment)
	d.Message(3, x.Commitment)
}

// NewCommitmentTx() wraps a commitment in the special transaction for the block at height
func NewCommitmentTx(height uint64, qc *FinalCommitment) *lib.Transaction {
	payload := &CommitmentTxPayload{Version: CurrentPayloadVersion, Height: height, Commitment: qc}
	return &lib.Transaction{
		Version: lib.SpecialTxVersion,
		Type:    lib.TxTypeQuorumCommitment,
		Payload: codec.Encode(payload),
	}
}

// IsCommitmentTx() returns true if the transaction is typed as a commitment, whatever its payload
func IsCommitmentTx(tx *lib.Transaction) bool {
	return tx.IsSpecial() && tx.Type == lib.TxTypeQuorumCommitment
}

// PayloadFromTx() decodes and checks the payload envelope of a commitment transaction
// A malformed payload is a structural failure, never a silent skip
func PayloadFromTx(tx *lib.Transaction) (*CommitmentTxPayload, lib.ErrorI) {
	if !IsCommitmentTx(tx) {
		return nil, ErrInvalidStructure("not a commitment transaction")
	}
	payload := new(CommitmentTxPayload)
	if err := codec.Decode(tx.Payload, payload); err != nil {
		return nil, ErrMalformedPayload(err)
	}
	if payload.Version == 0 || payload.Version > CurrentPayloadVersion {
		return nil, ErrInvalidStructure(fmt.Sprintf("payload version %d", payload.Version))
	}
	return payload, nil
}

// CommitmentsFromBlock() extracts the commitments of a block at height keyed by quorum type
// Two commitments of the same type fail the whole block before any other positional check
func CommitmentsFromBlock(block *lib.Block, height uint64) (map[Type]*FinalCommitment, []Type, lib.ErrorI) {
	var payloads []*CommitmentTxPayload
	found, order := make(map[Type]*FinalCommitment), make([]Type, 0)
	for _, tx := range block.Transactions {
		if !IsCommitmentTx(tx) {
			continue
		}
		payload, err := PayloadFromTx(tx)
		if err != nil {
			return nil, nil, err
		}
		qc := payload.Commitment
		if _, exists := found[qc.Type]; exists {
			return nil, nil, ErrTooManyCommitments(qc.Type)
		}
		found[qc.Type] = qc
		order = append(order, qc.Type)
		payloads = append(payloads, payload)
	}
	// the envelope is bound to the block that carries it
	for _, payload := range payloads {
		if payload.Height != height {
			return nil, nil, ErrWrongWindow(fmt.Sprintf("payload height %d in block %d", payload.Height, height))
		}
	}
	return found, order, nil
}
