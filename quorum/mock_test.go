package quorum

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/crypto"
	"github.com/volkshash/volkshash/store"
)

// testChain is a linear chain of real blocks and their indexes starting at genesis
type testChain struct {
	blocks  []*lib.Block
	indexes []*lib.BlockIndex
}

// newTestChain() creates a chain of n empty blocks above genesis
func newTestChain(n uint64) *testChain {
	genesis := lib.NewBlock(nil, 0)
	c := &testChain{blocks: []*lib.Block{genesis}, indexes: []*lib.BlockIndex{lib.NewBlockIndex(genesis.Hash(), nil)}}
	for i := uint64(0); i < n; i++ {
		c.add(lib.NewBlock(c.tip(), 0))
	}
	return c
}

func (c *testChain) tip() *lib.BlockIndex { return c.indexes[len(c.indexes)-1] }

func (c *testChain) add(block *lib.Block) *lib.BlockIndex {
	idx := lib.NewBlockIndex(block.Hash(), c.tip())
	c.blocks, c.indexes = append(c.blocks, block), append(c.indexes, idx)
	return idx
}

// fork() copies the chain up to and including height
func (c *testChain) fork(height uint64) *testChain {
	return &testChain{
		blocks:  append([]*lib.Block(nil), c.blocks[:height+1]...),
		indexes: append([]*lib.BlockIndex(nil), c.indexes[:height+1]...),
	}
}

// GetBlockByHash() lets a chain serve as the block source of a reorg plan
func (c *testChain) GetBlockByHash(hash []byte) (*lib.Block, lib.ErrorI) {
	for _, b := range c.blocks {
		if string(b.Hash()) == string(hash) {
			return b, nil
		}
	}
	return nil, nil
}

// testView is a chain view over one or more test chains, the first one active
type testView struct {
	active *testChain
	known  map[string]*lib.BlockIndex
}

func newTestView(active *testChain, others ...*testChain) *testView {
	v := &testView{active: active, known: make(map[string]*lib.BlockIndex)}
	for _, c := range append([]*testChain{active}, others...) {
		for _, idx := range c.indexes {
			v.known[string(idx.Hash)] = idx
		}
	}
	return v
}

func (v *testView) Tip() *lib.BlockIndex { return v.active.tip() }
func (v *testView) Contains(idx *lib.BlockIndex) bool {
	return idx != nil && idx.Height < uint64(len(v.active.indexes)) && v.active.indexes[idx.Height] == idx
}
func (v *testView) LookupBlockIndex(hash []byte) *lib.BlockIndex { return v.known[string(hash)] }

// testQuorum is the outcome of a DKG: member operator keys and the new quorum key
type testQuorum struct {
	members    []crypto.PrivateKeyI
	memberKeys [][]byte
	quorumKey  crypto.PrivateKeyI
}

func newTestQuorum(t *testing.T, size int) *testQuorum {
	q := &testQuorum{}
	for i := 0; i < size; i++ {
		k, err := crypto.NewBLSPrivateKey()
		require.NoError(t, err)
		q.members, q.memberKeys = append(q.members, k), append(q.memberKeys, k.PublicKey().Bytes())
	}
	k, err := crypto.NewBLSPrivateKey()
	require.NoError(t, err)
	q.quorumKey = k
	return q
}

// GetQuorumMembers() serves every DKG instance with the same members
func (q *testQuorum) GetQuorumMembers(_ Type, _ []byte) ([][]byte, lib.ErrorI) { return q.memberKeys, nil }

// commit() returns a commitment signed by the first signers members with the first valid members marked valid
func (q *testQuorum) commit(t *testing.T, p Params, quorumHash []byte, signers, valid int) *FinalCommitment {
	qc := newTestCommitment(p, quorumHash, signers, valid)
	qc.QuorumPublicKey = q.quorumKey.PublicKey().Bytes()
	msg := qc.CommitmentHash()
	qc.QuorumSig = q.quorumKey.Sign(msg)
	multi, err := crypto.NewAggregateKey(q.memberKeys, nil)
	require.NoError(t, err)
	for i := 0; i < signers && i < len(q.members); i++ {
		require.NoError(t, multi.AddSigner(i, q.members[i].Sign(msg)))
	}
	qc.MembersSig, err = multi.AggregateSignatures()
	require.NoError(t, err)
	return qc
}

// newTestCommitment() returns a structurally valid commitment with null signatures
func newTestCommitment(p Params, quorumHash []byte, signers, valid int) *FinalCommitment {
	qc := NewFinalCommitment(p, quorumHash)
	for i := 0; i < signers; i++ {
		qc.Signers.Set(uint32(i), true)
	}
	for i := 0; i < valid; i++ {
		qc.ValidMembers.Set(uint32(i), true)
	}
	qc.QuorumPublicKey = make([]byte, crypto.BLS12381PubKeySize)
	qc.QuorumVvecHash = crypto.Hash([]byte("verification vector"))
	qc.QuorumSig = make([]byte, crypto.BLS12381SignatureSize)
	qc.MembersSig = make([]byte, crypto.BLS12381SignatureSize)
	return qc
}

// testNetwork() registers llmq_10 and llmq_50_60 active from genesis
func testNetwork(t *testing.T, allowDummy bool) *NetworkParams {
	n, err := NewNetworkParams("test", 0, allowDummy, llmq10_60, llmq50_60)
	require.NoError(t, err)
	return n
}

// newTestProcessor() creates a processor over a fresh in memory store
func newTestProcessor(t *testing.T, network *NetworkParams, verifier Verifier) *Processor {
	db, err := store.NewStoreInMemory(lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewProcessor(network, verifier, db, lib.DefaultQuorumConfig(), nil, lib.NewNullLogger())
}

// connect() builds a block carrying txs on top of the chain and processes it
// The block joins the chain only if it is accepted
func connect(p *Processor, c *testChain, nonce uint64, txs ...*lib.Transaction) (*lib.Block, *Changes, lib.ErrorI) {
	block := lib.NewBlock(c.tip(), nonce, txs...)
	changes, err := p.ProcessBlock(block, c.tip())
	if err != nil {
		return block, nil, err
	}
	c.add(block)
	p.Apply(changes)
	return block, changes, nil
}

// connectUntil() connects empty blocks until the tip is at height, mining a commitment for every
// configured type on the last block of each window so no block is rejected
func connectUntil(t *testing.T, p *Processor, c *testChain, height, nonce uint64) {
	for c.tip().Height < height {
		_, _, err := connect(p, c, nonce, requiredTxs(t, p, c)...)
		require.NoError(t, err)
	}
}

// requiredTxs() returns a null signature commitment tx for every type required at the next height
func requiredTxs(t *testing.T, p *Processor, c *testChain) (txs []*lib.Transaction) {
	height := c.tip().Height + 1
	for _, typ := range p.network.Types() {
		params, _ := p.network.Get(typ)
		required, err := IsCommitmentRequired(params, c.tip(), height, func(qh []byte) (bool, lib.ErrorI) {
			return p.HasMinedCommitment(typ, qh)
		})
		require.NoError(t, err)
		if required {
			qc := newTestCommitment(params, GetQuorumBlockHash(params, c.tip(), height), int(params.Size), int(params.Size))
			txs = append(txs, NewCommitmentTx(height, qc))
		}
	}
	return
}

// dumpState() returns every processor key and value
func dumpState(t *testing.T, db lib.RWStoreI) map[string]string {
	it, err := db.Iterator(lib.JoinLenPrefix(quorumSegment))
	require.NoError(t, err)
	defer it.Close()
	state := make(map[string]string)
	for ; it.Valid(); it.Next() {
		state[string(it.Key())] = string(it.Value())
	}
	return state
}
