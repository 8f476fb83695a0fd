package evo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/codec"
	"github.com/volkshash/volkshash/lib/crypto"
)

// CurrentCbTxVersion is the newest coinbase payload version
const CurrentCbTxVersion uint16 = 1

// CbTx is the special payload of a coinbase transaction
// It commits the block to the masternode list produced by applying it
type CbTx struct {
	Version          uint16       `json:"version"`
	Height           uint64       `json:"height"`
	MerkleRootMNList lib.HexBytes `json:"merkleRootMNList"`
}

func (x *CbTx) EncodeWire(e *codec.Encoder) {
	e.Uint32(1, uint32(x.Version))
	e.Uint64(2, x.Height)
	e.RawBytes(3, x.MerkleRootMNList)
}

func (x *CbTx) DecodeWire(d *codec.Decoder) {
	version := d.Uint32(1)
	if version > 1<<16-1 {
		d.Fail(fmt.Errorf("cbtx version %d out of range", version))
	}
	x.Version = uint16(version)
	x.Height = d.Uint64(2)
	x.MerkleRootMNList = d.RawBytes(3)
}

// NewCbTx() builds the coinbase special transaction for the block at height
func NewCbTx(height uint64, merkleRootMNList []byte) *lib.Transaction {
	return &lib.Transaction{
		Version: lib.SpecialTxVersion,
		Type:    lib.TxTypeCoinbase,
		Payload: codec.Encode(&CbTx{Version: CurrentCbTxVersion, Height: height, MerkleRootMNList: merkleRootMNList}),
	}
}

// CbTxFromTx() decodes the coinbase payload
func CbTxFromTx(tx *lib.Transaction) (*CbTx, lib.ErrorI) {
	if !tx.IsSpecial() {
		return nil, ErrBadCbTxPayload(errors.New("not a special transaction"))
	}
	cbTx := new(CbTx)
	if err := codec.Decode(tx.Payload, cbTx); err != nil {
		return nil, ErrBadCbTxPayload(err)
	}
	if len(cbTx.MerkleRootMNList) != crypto.HashSize {
		return nil, ErrBadCbTxPayload(fmt.Errorf("merkle root of %d bytes", len(cbTx.MerkleRootMNList)))
	}
	return cbTx, nil
}

// CheckCbTx() validates a coinbase special transaction of the block built on top of prev
// isCoinbase is true only for the first transaction of a block
func CheckCbTx(tx *lib.Transaction, isCoinbase bool, prev *lib.BlockIndex) lib.ErrorI {
	if tx.Type != lib.TxTypeCoinbase {
		return ErrBadCbTxType()
	}
	if !isCoinbase {
		return ErrBadCbTxInvalid()
	}
	cbTx, err := CbTxFromTx(tx)
	if err != nil {
		return err
	}
	if cbTx.Version == 0 || cbTx.Version > CurrentCbTxVersion {
		return ErrBadCbTxVersion(cbTx.Version)
	}
	if prev != nil && prev.Height+1 != cbTx.Height {
		return ErrBadCbTxHeight(cbTx.Height, prev.Height+1)
	}
	return nil
}

// CheckBlockCbTx() runs CheckCbTx() on every coinbase typed transaction of a block
func CheckBlockCbTx(block *lib.Block, prev *lib.BlockIndex) lib.ErrorI {
	for i, tx := range block.Transactions {
		if !tx.IsSpecial() || tx.Type != lib.TxTypeCoinbase {
			continue
		}
		if err := CheckCbTx(tx, i == 0, prev); err != nil {
			return err
		}
	}
	return nil
}

// CheckCbTxMerkleRootMNList() compares the declared masternode list root with the list the block produces
// It can only run once the block is fully processed, as the list depends on the block itself
func CheckCbTxMerkleRootMNList(block *lib.Block, pindex *lib.BlockIndex, provider MNListProvider) lib.ErrorI {
	if len(block.Transactions) == 0 || block.Transactions[0].Type != lib.TxTypeCoinbase {
		return nil
	}
	cbTx, err := CbTxFromTx(block.Transactions[0])
	if err != nil {
		return err
	}
	if pindex == nil || provider == nil {
		return nil
	}
	list, err := provider.BuildMNList(block, pindex.Prev)
	if err != nil {
		return ErrBadCbTxMerkleRoot(err.Error())
	}
	root, err := CalcMerkleRoot(list)
	if err != nil {
		return ErrBadCbTxMerkleRoot(err.Error())
	}
	if !bytes.Equal(root, cbTx.MerkleRootMNList) {
		return ErrBadCbTxMerkleRoot(fmt.Sprintf("declared %x computed %x", []byte(cbTx.MerkleRootMNList), root))
	}
	return nil
}
