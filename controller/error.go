package controller

import (
	"fmt"

	"github.com/volkshash/volkshash/lib"
)

func ErrOrphanBlock(hash, prevHash []byte) lib.ErrorI {
	return lib.NewError(lib.CodeOrphanBlock, lib.ControllerModule, fmt.Sprintf("block %x builds on unknown block %x", hash, prevHash))
}

func ErrBestBlockMarker(marker, tip []byte) lib.ErrorI {
	return lib.NewError(lib.CodeBestBlockMarker, lib.ControllerModule, fmt.Sprintf("quorum state was last applied at %x but the indexed tip is %x", marker, tip))
}

func ErrEmptyChain() lib.ErrorI {
	return lib.NewError(lib.CodeEmptyChain, lib.ControllerModule, "cannot disconnect the genesis block")
}

func ErrMissingBlock(hash []byte) lib.ErrorI {
	return lib.NewError(lib.CodeMissingBlock, lib.ControllerModule, fmt.Sprintf("block %x is not indexed", hash))
}

func ErrInvalidMessage(err error) lib.ErrorI {
	return lib.NewBanError(lib.CodeInvalidMessage, lib.ControllerModule, 100, fmt.Sprintf("undecodable commitment message: %s", err.Error()))
}

func ErrPeerBanned(peer string) lib.ErrorI {
	return lib.NewError(lib.CodePeerBanned, lib.ControllerModule, fmt.Sprintf("peer %s is banned", peer))
}

func ErrGenesisMismatch(indexed, expected []byte) lib.ErrorI {
	return lib.NewError(lib.CodeGenesisMismatch, lib.ControllerModule, fmt.Sprintf("indexed genesis %x does not match %x", indexed, expected))
}

func ErrInvalidAncestor(hash []byte) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAncestor, lib.ControllerModule, fmt.Sprintf("block %x builds on a branch that failed to connect", hash))
}
