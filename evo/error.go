package evo

import (
	"fmt"

	"github.com/volkshash/volkshash/lib"
)

// banScore is the misbehavior score of every coinbase rule violation
const banScore int32 = 100

func ErrBadCbTxType() lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxType, lib.EvoModule, banScore, "bad-cbtx-type")
}

func ErrBadCbTxInvalid() lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxInvalid, lib.EvoModule, banScore, "bad-cbtx-invalid")
}

func ErrBadCbTxPayload(err error) lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxPayload, lib.EvoModule, banScore, fmt.Sprintf("bad-cbtx-payload: %s", err.Error()))
}

func ErrBadCbTxVersion(version uint16) lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxVersion, lib.EvoModule, banScore, fmt.Sprintf("bad-cbtx-version: %d", version))
}

func ErrBadCbTxHeight(got, want uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxHeight, lib.EvoModule, banScore, fmt.Sprintf("bad-cbtx-height: got %d want %d", got, want))
}

func ErrBadCbTxMerkleRoot(reason string) lib.ErrorI {
	return lib.NewBanError(lib.CodeBadCbTxMerkleRoot, lib.EvoModule, banScore, fmt.Sprintf("bad-cbtx-mnmerkleroot: %s", reason))
}

func ErrEmptyMNList(blockHash []byte) lib.ErrorI {
	return lib.NewError(lib.CodeEmptyMNList, lib.EvoModule, fmt.Sprintf("no valid masternode as of block %x", blockHash))
}
