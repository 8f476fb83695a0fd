package quorum

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib/crypto"
)

func TestMinableCacheReplacement(t *testing.T) {
	quorumHash := crypto.Hash([]byte("quorum"))
	c := NewMinableCache(0)
	first := newTestCommitment(llmq50_60, quorumHash, 40, 42)
	require.True(t, c.Add(first))
	require.False(t, c.Add(first), "the same commitment is not added twice")
	// equal participation does not replace
	tie := newTestCommitment(llmq50_60, quorumHash, 45, 42)
	require.False(t, c.Add(tie))
	require.Same(t, first, c.GetBest(LLMQ50_60, quorumHash))
	require.False(t, c.Has(tie.Hash()))
	// broader participation replaces and the old identity is forgotten
	better := newTestCommitment(llmq50_60, quorumHash, 40, 45)
	require.True(t, c.Add(better))
	require.Same(t, better, c.GetBest(LLMQ50_60, quorumHash))
	require.False(t, c.Has(first.Hash()))
	require.Same(t, better, c.GetByHash(better.Hash()))
	// another type of the same quorum block is another instance
	require.True(t, c.Add(newTestCommitment(llmq10_60, quorumHash, 10, 10)))
	require.Equal(t, 2, c.Len())
	c.Remove(LLMQ50_60, quorumHash)
	require.Nil(t, c.GetBest(LLMQ50_60, quorumHash))
	require.Equal(t, 1, c.Len())
}

func TestMinableCacheCapacity(t *testing.T) {
	c := NewMinableCache(2)
	require.True(t, c.Add(newTestCommitment(llmq10_60, crypto.Hash([]byte("a")), 10, 8)))
	require.True(t, c.Add(newTestCommitment(llmq10_60, crypto.Hash([]byte("b")), 10, 8)))
	require.False(t, c.Add(newTestCommitment(llmq10_60, crypto.Hash([]byte("c")), 10, 8)), "a full cache rejects new instances")
	require.True(t, c.Add(newTestCommitment(llmq10_60, crypto.Hash([]byte("a")), 10, 9)), "replacements are still accepted")
	require.Equal(t, 2, c.Len())
	removed := c.Prune(func(qc *FinalCommitment) bool { return qc.CountValidMembers() == 9 })
	require.Equal(t, 1, removed)
	require.Equal(t, 1, c.Len())
}

func TestMinableCacheConcurrent(t *testing.T) {
	quorumHash := crypto.Hash([]byte("quorum"))
	c := NewMinableCache(0)
	var wg sync.WaitGroup
	for valid := 40; valid <= 50; valid++ {
		wg.Add(1)
		go func(valid int) {
			defer wg.Done()
			c.Add(newTestCommitment(llmq50_60, quorumHash, 40, valid))
			c.GetBest(LLMQ50_60, quorumHash)
		}(valid)
	}
	wg.Wait()
	// whatever the interleaving the broadest commitment wins
	require.Equal(t, uint32(50), c.GetBest(LLMQ50_60, quorumHash).CountValidMembers())
	require.Equal(t, 1, c.Len())
}

func TestMinableCachePruneUnlocked(t *testing.T) {
	quorumHash := crypto.Hash([]byte("quorum"))
	c := NewMinableCache(0)
	narrow := newTestCommitment(llmq50_60, quorumHash, 40, 41)
	require.True(t, c.Add(narrow))
	require.True(t, c.Add(newTestCommitment(llmq10_60, quorumHash, 10, 10)))
	broader := newTestCommitment(llmq50_60, quorumHash, 40, 50)
	removed := c.Prune(func(qc *FinalCommitment) bool {
		// the cache stays usable while keep runs
		require.NotNil(t, c.GetBest(qc.Type, qc.QuorumHash))
		if qc.Type == LLMQ50_60 {
			require.True(t, c.Add(broader))
		}
		return false
	})
	// the replacement made while pruning survives
	require.Equal(t, 1, removed)
	require.Same(t, broader, c.GetBest(LLMQ50_60, quorumHash))
	require.Nil(t, c.GetBest(LLMQ10_60, quorumHash))
}
