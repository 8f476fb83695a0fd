package evo

import (
	"bytes"
	"sort"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/crypto"
	"github.com/volkshash/volkshash/quorum"
)

var _ quorum.MemberProvider = &MemberSelector{}

// MemberSelector derives the members of a DKG instance from the masternode list at its quorum block
type MemberSelector struct {
	network *quorum.NetworkParams
	mnList  MNListProvider
}

// NewMemberSelector() creates a selector over a masternode list provider
func NewMemberSelector(network *quorum.NetworkParams, mnList MNListProvider) *MemberSelector {
	return &MemberSelector{network: network, mnList: mnList}
}

// GetQuorumMembers() returns the operator keys of the members in selection order
func (s *MemberSelector) GetQuorumMembers(t quorum.Type, quorumHash []byte) ([][]byte, lib.ErrorI) {
	p, ok := s.network.Get(t)
	if !ok {
		return nil, quorum.ErrUnknownQuorumType(t)
	}
	list, err := s.mnList.GetMNList(quorumHash)
	if err != nil {
		return nil, err
	}
	selected := SelectMembers(list, p, quorumHash)
	if len(selected) == 0 {
		return nil, ErrEmptyMNList(quorumHash)
	}
	keys := make([][]byte, 0, len(selected))
	for _, entry := range selected {
		keys = append(keys, entry.PubKeyOperator)
	}
	return keys, nil
}

// SelectMembers() ranks the valid entries by their score against the instance modifier
// and keeps the first p.Size of them
func SelectMembers(list []*SimplifiedMNListEntry, p quorum.Params, quorumHash []byte) []*SimplifiedMNListEntry {
	modifier := crypto.HashConcat([]byte{byte(p.Type)}, quorumHash)
	type scored struct {
		entry *SimplifiedMNListEntry
		score []byte
	}
	var candidates []scored
	for _, entry := range list {
		if !entry.IsValid || len(entry.PubKeyOperator) != crypto.BLS12381PubKeySize {
			continue
		}
		candidates = append(candidates, scored{entry: entry, score: crypto.HashConcat(entry.ProRegTxHash, modifier)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if c := bytes.Compare(candidates[i].score, candidates[j].score); c != 0 {
			return c < 0
		}
		return bytes.Compare(candidates[i].entry.ProRegTxHash, candidates[j].entry.ProRegTxHash) < 0
	})
	if uint32(len(candidates)) > p.Size {
		candidates = candidates[:p.Size]
	}
	members := make([]*SimplifiedMNListEntry, 0, len(candidates))
	for _, c := range candidates {
		members = append(members, c.entry)
	}
	return members
}
