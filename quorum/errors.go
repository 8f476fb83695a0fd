package quorum

import (
	"errors"
	"fmt"

	"github.com/volkshash/volkshash/lib"
)

const (
	// misbehavior scores earned by the peer that relays the offending data
	BanScoreMax   int32 = 100 // unambiguously invalid, penalized at once
	BanScoreStale int32 = 10  // possibly a race at a window boundary
	BanScoreNone  int32 = 0   // the sender could not have known
)

// Class is the taxonomy class of a commitment error, shared by many detail codes
type Class string

const (
	ClassInvalidStructure          Class = "InvalidStructure"
	ClassWrongWindow               Class = "WrongWindow"
	ClassDuplicate                 Class = "Duplicate"
	ClassTooManyCommitments        Class = "TooManyCommitments"
	ClassMissingRequiredCommitment Class = "MissingRequiredCommitment"
	ClassStale                     Class = "Stale"
	ClassIgnored                   Class = "Ignored" // gossip the node drops without judging the sender
	ClassUnknown                   Class = "Unknown"
)

var classes = map[lib.ErrorCode]Class{
	lib.CodeInvalidStructure:          ClassInvalidStructure,
	lib.CodeUnknownQuorumType:         ClassInvalidStructure,
	lib.CodeInvalidCommitmentSig:      ClassInvalidStructure,
	lib.CodeMalformedPayload:          ClassInvalidStructure,
	lib.CodeNotIntervalStart:          ClassInvalidStructure,
	lib.CodeUnknownMembers:            ClassInvalidStructure,
	lib.CodeWrongWindow:               ClassWrongWindow,
	lib.CodeNotActive:                 ClassWrongWindow,
	lib.CodeDuplicateCommitment:       ClassDuplicate,
	lib.CodeTooManyCommitments:        ClassTooManyCommitments,
	lib.CodeMissingRequiredCommitment: ClassMissingRequiredCommitment,
	lib.CodeStaleCommitment:           ClassStale,
	lib.CodeUnknownQuorumBlock:        ClassIgnored,
	lib.CodeQuorumBlockNotActive:      ClassIgnored,
	lib.CodeBetterCommitmentCached:    ClassIgnored,
	lib.CodeEarlyCommitment:           ClassIgnored,
}

// ClassOf() returns the taxonomy class of err
func ClassOf(err error) Class {
	var e lib.ErrorI
	if err == nil || !errors.As(err, &e) || e.Module() != lib.QuorumModule {
		return ClassUnknown
	}
	if c, ok := classes[e.Code()]; ok {
		return c
	}
	return ClassUnknown
}

// IsClass() reports whether err belongs to the taxonomy class regardless of its detail code
func IsClass(err error, class Class) bool { return ClassOf(err) == class }

func ErrInvalidStructure(reason string) lib.ErrorI {
	return lib.NewBanError(lib.CodeInvalidStructure, lib.QuorumModule, BanScoreMax, fmt.Sprintf("invalid commitment structure: %s", reason))
}

func ErrWrongWindow(reason string) lib.ErrorI {
	return lib.NewBanError(lib.CodeWrongWindow, lib.QuorumModule, BanScoreMax, fmt.Sprintf("commitment outside its window: %s", reason))
}

func ErrDuplicateCommitment(t Type, quorumHash []byte) lib.ErrorI {
	return lib.NewBanError(lib.CodeDuplicateCommitment, lib.QuorumModule, BanScoreMax, fmt.Sprintf("commitment for %s quorum %x already mined", t, quorumHash))
}

func ErrTooManyCommitments(t Type) lib.ErrorI {
	return lib.NewBanError(lib.CodeTooManyCommitments, lib.QuorumModule, BanScoreMax, fmt.Sprintf("more than one %s commitment in block", t))
}

func ErrMissingRequiredCommitment(t Type, quorumHash []byte, height uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeMissingRequiredCommitment, lib.QuorumModule, BanScoreMax, fmt.Sprintf("block %d misses the required %s commitment for quorum %x", height, t, quorumHash))
}

func ErrStaleCommitment(t Type, quorumHash []byte, height uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeStaleCommitment, lib.QuorumModule, BanScoreStale, fmt.Sprintf("%s commitment for quorum %x is stale at height %d", t, quorumHash, height))
}

func ErrUnknownQuorumType(t Type) lib.ErrorI {
	return lib.NewBanError(lib.CodeUnknownQuorumType, lib.QuorumModule, BanScoreMax, fmt.Sprintf("unknown quorum type %d", uint8(t)))
}

func ErrUnknownQuorumBlock(quorumHash []byte) lib.ErrorI {
	return lib.NewBanError(lib.CodeUnknownQuorumBlock, lib.QuorumModule, BanScoreNone, fmt.Sprintf("quorum block %x is unknown", quorumHash))
}

func ErrInvalidCommitmentSig(reason string) lib.ErrorI {
	return lib.NewBanError(lib.CodeInvalidCommitmentSig, lib.QuorumModule, BanScoreMax, fmt.Sprintf("invalid commitment signature: %s", reason))
}

func ErrMalformedPayload(err error) lib.ErrorI {
	return lib.NewBanError(lib.CodeMalformedPayload, lib.QuorumModule, BanScoreMax, fmt.Sprintf("malformed commitment payload: %s", err.Error()))
}

func ErrNotActive(height uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeNotActive, lib.QuorumModule, BanScoreMax, fmt.Sprintf("commitments are not active at height %d", height))
}

func ErrInvalidParams(t Type, reason string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidParams, lib.QuorumModule, fmt.Sprintf("invalid parameters for quorum %d: %s", uint8(t), reason))
}

func ErrNotIntervalStart(quorumHash []byte, height uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeNotIntervalStart, lib.QuorumModule, BanScoreMax, fmt.Sprintf("quorum block %x at height %d does not start an interval", quorumHash, height))
}

func ErrQuorumBlockNotActive(quorumHash []byte) lib.ErrorI {
	return lib.NewBanError(lib.CodeQuorumBlockNotActive, lib.QuorumModule, BanScoreNone, fmt.Sprintf("quorum block %x is not on the active chain", quorumHash))
}

func ErrBetterCommitmentCached(t Type, quorumHash []byte) lib.ErrorI {
	return lib.NewBanError(lib.CodeBetterCommitmentCached, lib.QuorumModule, BanScoreNone, fmt.Sprintf("a better %s commitment for quorum %x is cached", t, quorumHash))
}

func ErrEarlyCommitment(t Type, quorumHash []byte, height uint64) lib.ErrorI {
	return lib.NewBanError(lib.CodeEarlyCommitment, lib.QuorumModule, BanScoreNone, fmt.Sprintf("%s window for quorum %x is not open at height %d", t, quorumHash, height))
}

func ErrInvalidReorgPlan(reason string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidReorgPlan, lib.QuorumModule, fmt.Sprintf("invalid reorg plan: %s", reason))
}

func ErrReorgStep(index int, kind StepKind, height uint64, err lib.ErrorI) lib.ErrorI {
	return lib.NewBanError(err.Code(), err.Module(), err.BanScore(), fmt.Sprintf("reorg step %d (%s at height %d) failed: %s", index, kind, height, err.Error()))
}

func ErrUnknownMembers(t Type, quorumHash []byte, err error) lib.ErrorI {
	return lib.NewBanError(lib.CodeUnknownMembers, lib.QuorumModule, BanScoreNone, fmt.Sprintf("members of %s quorum %x unavailable: %s", t, quorumHash, err.Error()))
}

// withBanScore() returns a copy of a quorum error with another misbehavior score
func withBanScore(err lib.ErrorI, score int32) lib.ErrorI {
	if e, ok := err.(*lib.Error); ok {
		return e.WithBanScore(score)
	}
	return err
}
