package quorum

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/volkshash/volkshash/lib"
)

/* This file holds the static quorum parameter table of every network */

// Type identifies a quorum configuration
type Type uint8

const (
	LLMQ50_60  Type = 1   // 50 members, 60% threshold, one DKG per hour
	LLMQ400_60 Type = 2   // 400 members, 60% threshold, one DKG every 12 hours
	LLMQ400_85 Type = 3   // 400 members, 85% threshold, one DKG every 24 hours
	LLMQ10_60  Type = 100 // 10 members, private networks only
)

// Params is the immutable configuration of one quorum type, every length measured in blocks
type Params struct {
	Type                 Type   `json:"type"`
	Name                 string `json:"name"`
	Size                 uint32 `json:"size"`      // number of members
	MinSize              uint32 `json:"minSize"`   // minimum number of valid members
	Threshold            uint32 `json:"threshold"` // minimum number of signers
	DKGInterval          uint64 `json:"dkgInterval"`
	DKGPhaseBlocks       uint64 `json:"dkgPhaseBlocks"`
	DKGMiningWindowStart uint64 `json:"dkgMiningWindowStart"` // inclusive interval offset
	DKGMiningWindowEnd   uint64 `json:"dkgMiningWindowEnd"`   // exclusive interval offset
}

var (
	llmq10_60 = Params{
		Type:                 LLMQ10_60,
		Name:                 "llmq_10",
		Size:                 10,
		MinSize:              6,
		Threshold:            6,
		DKGInterval:          24,
		DKGPhaseBlocks:       2,
		DKGMiningWindowStart: 10, // phase blocks * 5, after finalization
		DKGMiningWindowEnd:   18,
	}
	llmq50_60 = Params{
		Type:                 LLMQ50_60,
		Name:                 "llmq_50_60",
		Size:                 50,
		MinSize:              40,
		Threshold:            30,
		DKGInterval:          24,
		DKGPhaseBlocks:       2,
		DKGMiningWindowStart: 10,
		DKGMiningWindowEnd:   18,
	}
	llmq400_60 = Params{
		Type:                 LLMQ400_60,
		Name:                 "llmq_400_51",
		Size:                 400,
		MinSize:              300,
		Threshold:            240,
		DKGInterval:          24 * 12,
		DKGPhaseBlocks:       4,
		DKGMiningWindowStart: 20,
		DKGMiningWindowEnd:   28,
	}
	llmq400_85 = Params{
		Type:                 LLMQ400_85,
		Name:                 "llmq_400_85",
		Size:                 400,
		MinSize:              350,
		Threshold:            340,
		DKGInterval:          24 * 24,
		DKGPhaseBlocks:       4,
		DKGMiningWindowStart: 20,
		DKGMiningWindowEnd:   48, // a larger window makes sure it gets mined
	}
)

// Validate() enforces the invariants of the parameter record
func (p Params) Validate() lib.ErrorI {
	switch {
	case p.Size == 0 || p.DKGInterval == 0:
		return ErrInvalidParams(p.Type, "size and interval must be positive")
	case p.Threshold > p.Size || p.MinSize > p.Size:
		return ErrInvalidParams(p.Type, "want threshold <= size and minSize <= size")
	case p.DKGMiningWindowStart >= p.DKGMiningWindowEnd:
		return ErrInvalidParams(p.Type, "mining window is empty")
	case p.DKGMiningWindowEnd > p.DKGInterval:
		return ErrInvalidParams(p.Type, "mining window ends outside the interval")
	}
	return nil
}

// String() returns the quorum name
func (t Type) String() string {
	for _, p := range []Params{llmq10_60, llmq50_60, llmq400_60, llmq400_85} {
		if p.Type == t {
			return p.Name
		}
	}
	return fmt.Sprintf("llmq_unknown_%d", uint8(t))
}

// ParseType() accepts a quorum name or its numeric id
func ParseType(s string) (Type, lib.ErrorI) {
	for _, p := range []Params{llmq10_60, llmq50_60, llmq400_60, llmq400_85} {
		if strings.EqualFold(p.Name, s) {
			return p.Type, nil
		}
	}
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, ErrUnknownQuorumType(0)
	}
	return Type(id), nil
}

// NETWORK PARAMETERS BELOW

// NetworkParams is the set of quorum types a network registers and the height the rules activate
type NetworkParams struct {
	Name                  string          `json:"name"`
	ActivationHeight      uint64          `json:"activationHeight"`
	AllowDummyCommitments bool            `json:"allowDummyCommitments"` // all zero signatures skip verification
	Quorums               map[Type]Params `json:"quorums"`
}

// NewNetworkParams() builds and validates a parameter set
func NewNetworkParams(name string, activation uint64, allowDummy bool, quorums ...Params) (*NetworkParams, lib.ErrorI) {
	n := &NetworkParams{Name: name, ActivationHeight: activation, AllowDummyCommitments: allowDummy, Quorums: make(map[Type]Params)}
	for _, q := range quorums {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		n.Quorums[q.Type] = q
	}
	return n, nil
}

// ParamsForNetwork() returns the registered quorum table of a named network
// An activation override is honored on private networks only
func ParamsForNetwork(name string, activationOverride *uint64) (*NetworkParams, lib.ErrorI) {
	var (
		n   *NetworkParams
		err lib.ErrorI
	)
	switch name {
	case lib.MainNet:
		n, err = NewNetworkParams(name, 1028160, false, llmq50_60, llmq400_60, llmq400_85)
	case lib.TestNet:
		n, err = NewNetworkParams(name, 7000, true, llmq50_60, llmq400_60, llmq400_85)
	case lib.DevNet:
		n, err = NewNetworkParams(name, 2, true, llmq50_60, llmq400_60, llmq400_85)
	case lib.RegTestNet:
		n, err = NewNetworkParams(name, 432, true, llmq10_60, llmq50_60)
	default:
		return nil, lib.ErrUnknownNetwork(name)
	}
	if err != nil {
		return nil, err
	}
	if activationOverride != nil && (name == lib.DevNet || name == lib.RegTestNet) {
		n.ActivationHeight = *activationOverride
	}
	return n, nil
}

// Get() returns the parameters of a registered quorum type
func (n *NetworkParams) Get(t Type) (Params, bool) {
	p, ok := n.Quorums[t]
	return p, ok
}

// Types() returns the registered quorum types in ascending order
func (n *NetworkParams) Types() (types []Type) {
	for t := range n.Quorums {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return
}

// IsActive() returns true if the commitment rules apply at height
func (n *NetworkParams) IsActive(height uint64) bool { return height >= n.ActivationHeight }
