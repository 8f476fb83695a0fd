package controller

import (
	"sync"

	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/lib/crypto"
	"github.com/volkshash/volkshash/quorum"
)

// Relayer forwards an accepted commitment message to every peer but the one it came from
type Relayer interface {
	RelayCommitment(from string, msg []byte)
}

// HandleCommitmentMessage() processes a final commitment pushed by a peer
// Only the chain state reads run under the chain lock, signature verification runs outside of it
func (c *Controller) HandleCommitmentMessage(peer string, msg []byte) lib.ErrorI {
	if c.peers.IsBanned(peer) {
		return ErrPeerBanned(peer)
	}
	// a message that was accepted or proven invalid is only handled once, whoever sends it
	key := crypto.HashString(msg)
	if c.seen.Contains(key) {
		return nil
	}
	qc, err := quorum.NewFinalCommitmentFromBytes(msg)
	if err != nil {
		return c.penalize(peer, key, ErrInvalidMessage(err))
	}
	c.Lock()
	checked, err := c.Processor.CheckCommitmentMessage(qc, c.tree)
	relay := c.relay
	c.Unlock()
	if err != nil {
		return c.penalize(peer, key, err)
	}
	added, err := c.Processor.AcceptCommitmentMessage(checked)
	if err != nil {
		return c.penalize(peer, key, err)
	}
	c.seen.Add(key, struct{}{})
	if added && c.Config.RelayCommitments && relay != nil {
		relay.RelayCommitment(peer, msg)
	}
	return nil
}

// penalize() adds the ban score of a gossip failure to the sender
// A message ignored without penalty is not remembered, it may become valid once the local chain catches up
func (c *Controller) penalize(peer, key string, err lib.ErrorI) lib.ErrorI {
	score := err.BanScore()
	if score == quorum.BanScoreNone {
		c.log.Debugf("Ignored commitment from %s: %s", peer, err.Error())
		return err
	}
	c.seen.Add(key, struct{}{})
	c.log.Warnf("Peer %s misbehaved (+%d): %s", peer, score, err.Error())
	if c.peers.Misbehaving(peer, score) {
		c.log.Warnf("Banned peer %s", peer)
	}
	return err
}

// PeerBook accumulates the misbehavior score of gossip peers
type PeerBook struct {
	mu        sync.Mutex
	scores    map[string]int32
	threshold int32
}

// NewPeerBook() creates a book that bans a peer once its score reaches threshold
func NewPeerBook(threshold int32) *PeerBook {
	if threshold <= 0 {
		threshold = quorum.BanScoreMax
	}
	return &PeerBook{scores: make(map[string]int32), threshold: threshold}
}

// Misbehaving() adds score to the peer and returns true if this crossed the ban threshold
func (b *PeerBook) Misbehaving(peer string, score int32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.scores[peer]
	b.scores[peer] = before + score
	return before < b.threshold && before+score >= b.threshold
}

// IsBanned() returns true if the peer reached the ban threshold
func (b *PeerBook) IsBanned(peer string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[peer] >= b.threshold
}

// Score() returns the accumulated score of the peer
func (b *PeerBook) Score(peer string) int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[peer]
}

// Forgive() resets the score of the peer
func (b *PeerBook) Forgive(peer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scores, peer)
}
