package lib

import (
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	BanScore() int32     // Returns the misbehavior score a relaying peer earns for this error
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode     ErrorCode   `json:"code"`               // Error code
	EModule   ErrorModule `json:"module"`             // Error module
	Msg       string      `json:"msg"`                // Error message
	EBanScore int32       `json:"banScore,omitempty"` // Misbehavior score for the peer that relayed the offending data
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	// Constructs a new Error instance
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// NewBanError() constructs an Error that carries a misbehavior score
func NewBanError(code ErrorCode, module ErrorModule, banScore int32, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg, EBanScore: banScore}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// BanScore() returns the misbehavior score
func (p *Error) BanScore() int32 { return p.EBanScore }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

// WithBanScore() returns a copy of the error carrying a different misbehavior score
func (p *Error) WithBanScore(score int32) *Error {
	cp := *p
	cp.EBanScore = score
	return &cp
}

// ErrorIs() reports whether err is an ErrorI with the same module and code as target
func ErrorIs(err error, target ErrorI) bool {
	var e ErrorI
	if err == nil || target == nil || !errors.As(err, &e) {
		return false
	}
	return e.Module() == target.Module() && e.Code() == target.Code()
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal       ErrorCode = 1
	CodeJSONUnmarshal     ErrorCode = 2
	CodeUnmarshal         ErrorCode = 3
	CodeStringToBytes     ErrorCode = 5
	CodeNilBlock          ErrorCode = 6
	CodeNilBlockIndex     ErrorCode = 7
	CodeMerkleTree        ErrorCode = 9
	CodeReadFile          ErrorCode = 10
	CodeWriteFile         ErrorCode = 11
	CodeUnknownNetwork    ErrorCode = 12
	CodeInvalidPublicKey  ErrorCode = 13
	CodeNonContiguousPrev ErrorCode = 15
	CodeCorruptKey        ErrorCode = 16

	// Quorum Module
	QuorumModule ErrorModule = "quorum"

	// Quorum Module Error Codes
	CodeInvalidStructure          ErrorCode = 1
	CodeWrongWindow               ErrorCode = 2
	CodeDuplicateCommitment       ErrorCode = 3
	CodeTooManyCommitments        ErrorCode = 4
	CodeMissingRequiredCommitment ErrorCode = 5
	CodeStaleCommitment           ErrorCode = 6
	CodeUnknownQuorumType         ErrorCode = 7
	CodeUnknownQuorumBlock        ErrorCode = 8
	CodeInvalidCommitmentSig      ErrorCode = 9
	CodeMalformedPayload          ErrorCode = 10
	CodeNotActive                 ErrorCode = 11
	CodeInvalidParams             ErrorCode = 12
	CodeNotIntervalStart          ErrorCode = 13
	CodeQuorumBlockNotActive      ErrorCode = 14
	CodeBetterCommitmentCached    ErrorCode = 15
	CodeEarlyCommitment           ErrorCode = 16
	CodeInvalidReorgPlan          ErrorCode = 17
	CodeUnknownMembers            ErrorCode = 18

	// Evo Module
	EvoModule ErrorModule = "evo"

	// Evo Module Error Codes
	CodeBadCbTxType       ErrorCode = 1
	CodeBadCbTxInvalid    ErrorCode = 2
	CodeBadCbTxPayload    ErrorCode = 3
	CodeBadCbTxVersion    ErrorCode = 4
	CodeBadCbTxHeight     ErrorCode = 5
	CodeBadCbTxMerkleRoot ErrorCode = 6
	CodeEmptyMNList       ErrorCode = 7

	// Controller Module
	ControllerModule ErrorModule = "controller"

	// Controller Module Error Codes
	CodeOrphanBlock     ErrorCode = 1
	CodeBestBlockMarker ErrorCode = 2
	CodeEmptyChain      ErrorCode = 3
	CodeMissingBlock    ErrorCode = 4
	CodeInvalidMessage  ErrorCode = 5
	CodePeerBanned      ErrorCode = 6
	CodeGenesisMismatch ErrorCode = 7
	CodeInvalidAncestor ErrorCode = 8

	// Storage Module
	StorageModule   ErrorModule = "store"
	CodeOpenDB      ErrorCode   = 1
	CodeCloseDB     ErrorCode   = 2
	CodeStoreSet    ErrorCode   = 3
	CodeStoreGet    ErrorCode   = 4
	CodeStoreDelete ErrorCode   = 5
	CodeCommitDB    ErrorCode   = 6
	CodeInvalidKey  ErrorCode   = 7

	// RPC Module
	RPCModule         ErrorModule = "rpc"
	CodeRPCTimeout    ErrorCode   = 1
	CodeInvalidArgs   ErrorCode   = 2
	CodeRPCNotFound   ErrorCode   = 3
	CodeRPCServerStop ErrorCode   = 4
	CodePostRequest   ErrorCode   = 5
	CodeGetRequest    ErrorCode   = 6
	CodeHttpStatus    ErrorCode   = 7
	CodeReadBody      ErrorCode   = 8
	CodeResourceUsage ErrorCode   = 9
)

// error implementations below for the `lib` package
func newLogError(err error) ErrorI {
	return NewError(NoCode, MainModule, err.Error())
}

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrNilBlock() ErrorI {
	return NewError(CodeNilBlock, MainModule, "block is nil")
}

func ErrNilBlockIndex() ErrorI {
	return NewError(CodeNilBlockIndex, MainModule, "block index is nil")
}

func ErrMerkleTree(err error) ErrorI {
	return NewError(CodeMerkleTree, MainModule, fmt.Sprintf("merkle tree failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("read file failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("write file failed with err: %s", err.Error()))
}

func ErrUnknownNetwork(name string) ErrorI {
	return NewError(CodeUnknownNetwork, MainModule, fmt.Sprintf("unknown network %q", name))
}

func ErrInvalidPublicKey(err error) ErrorI {
	return NewError(CodeInvalidPublicKey, MainModule, fmt.Sprintf("invalid public key: %s", err.Error()))
}

func ErrNonContiguousPrev(height uint64) ErrorI {
	return NewError(CodeNonContiguousPrev, MainModule, fmt.Sprintf("block at height %d does not extend its previous index", height))
}

func ErrCorruptKey(key []byte) ErrorI {
	return NewError(CodeCorruptKey, MainModule, fmt.Sprintf("corrupt or incomplete length prefixed key: %x", key))
}
