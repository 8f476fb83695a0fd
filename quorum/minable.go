package quorum

import (
	"sync"
)

// quorumKey identifies a DKG instance
type quorumKey struct {
	t    Type
	hash string
}

func newQuorumKey(t Type, quorumHash []byte) quorumKey { return quorumKey{t: t, hash: string(quorumHash)} }

// MinableCache holds the commitments a node heard about and may mine
// It is advisory process state, guarded by its own lock so readers never wait on the chain tip
type MinableCache struct {
	mu          sync.RWMutex
	byQuorum    map[quorumKey]string        // DKG instance -> identity of the best commitment seen
	commitments map[string]*FinalCommitment // identity -> commitment
	capacity    int                         // maximum number of DKG instances held; 0 is unbounded
}

// NewMinableCache() creates an empty cache bounded to capacity DKG instances
func NewMinableCache(capacity int) *MinableCache {
	return &MinableCache{
		byQuorum:    make(map[quorumKey]string),
		commitments: make(map[string]*FinalCommitment),
		capacity:    capacity,
	}
}

// Add() stores qc if its DKG instance is new or qc has strictly more valid members than the cached one
// Returns true if qc is now the best commitment of its instance
func (m *MinableCache) Add(qc *FinalCommitment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, hash := newQuorumKey(qc.Type, qc.QuorumHash), string(qc.Hash())
	if existing, found := m.byQuorum[key]; found {
		if existing == hash {
			return false
		}
		if current := m.commitments[existing]; current != nil && current.CountValidMembers() >= qc.CountValidMembers() {
			return false
		}
		delete(m.commitments, existing)
	} else if m.capacity > 0 && len(m.byQuorum) >= m.capacity {
		return false
	}
	m.byQuorum[key] = hash
	m.commitments[hash] = qc
	return true
}

// Has() returns true if a commitment with the identity is cached
func (m *MinableCache) Has(hash []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, found := m.commitments[string(hash)]
	return found
}

// GetByHash() returns the cached commitment with the identity or nil
func (m *MinableCache) GetByHash(hash []byte) *FinalCommitment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commitments[string(hash)]
}

// GetBest() returns the best cached commitment for a DKG instance or nil
func (m *MinableCache) GetBest(t Type, quorumHash []byte) *FinalCommitment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, found := m.byQuorum[newQuorumKey(t, quorumHash)]
	if !found {
		return nil
	}
	return m.commitments[hash]
}

// Remove() drops the commitment of a DKG instance
func (m *MinableCache) Remove(t Type, quorumHash []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := newQuorumKey(t, quorumHash)
	if hash, found := m.byQuorum[key]; found {
		delete(m.commitments, hash)
		delete(m.byQuorum, key)
	}
}

// Prune() drops every commitment keep rejects and returns how many were removed
// keep runs without the cache lock; a commitment replaced in the meantime survives
func (m *MinableCache) Prune(keep func(qc *FinalCommitment) bool) (removed int) {
	for _, qc := range m.Snapshot() {
		if !keep(qc) && m.remove(qc) {
			removed++
		}
	}
	return
}

// Snapshot() returns the best commitment of every cached DKG instance
func (m *MinableCache) Snapshot() []*FinalCommitment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*FinalCommitment, 0, len(m.byQuorum))
	for _, hash := range m.byQuorum {
		if qc := m.commitments[hash]; qc != nil {
			list = append(list, qc)
		}
	}
	return list
}

// remove() drops qc only if it is still the best commitment of its instance
func (m *MinableCache) remove(qc *FinalCommitment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, hash := newQuorumKey(qc.Type, qc.QuorumHash), string(qc.Hash())
	if m.byQuorum[key] != hash {
		return false
	}
	delete(m.commitments, hash)
	delete(m.byQuorum, key)
	return true
}

// Len() returns the number of DKG instances held
func (m *MinableCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byQuorum)
}
