package controller

import (
	"bytes"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/volkshash/volkshash/evo"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
	"github.com/volkshash/volkshash/store"
)

// HeightListener is notified with the new active tip after every committed tip change
type HeightListener interface {
	UpdatedBlockTip(tip *lib.BlockIndex)
}

// HeightListenerFunc adapts a function to a HeightListener
type HeightListenerFunc func(tip *lib.BlockIndex)

func (f HeightListenerFunc) UpdatedBlockTip(tip *lib.BlockIndex) { f(tip) }

// Controller acts as the 'manager' of the chain state modules: it owns the block tree, the chain
// state store and the quorum processor, and serializes every tip change under its lock
type Controller struct {
	Processor *quorum.Processor
	Config    lib.Config

	network   *quorum.NetworkParams
	genesis   *lib.Block
	tree      *lib.BlockTree
	db        *store.Store
	mnList    evo.MNListProvider
	relay     Relayer
	peers     *PeerBook
	seen      *lru.Cache[string, struct{}]
	invalid   map[string]struct{} // tips of branches that failed to connect
	listeners []HeightListener
	lMu       sync.RWMutex // guards listeners
	metrics   *lib.Metrics
	log       lib.LoggerI
	sync.Mutex
}

// New() creates the controller, rebuilding the active chain from the store
// A nil masternode list disables member signature verification and the coinbase merkle root check
func New(c lib.Config, network *quorum.NetworkParams, genesis *lib.Block, db *store.Store, mnList evo.MNListProvider, metrics *lib.Metrics, l lib.LoggerI) (*Controller, lib.ErrorI) {
	var verifier quorum.Verifier
	if mnList != nil {
		verifier = quorum.NewBLSVerifier(evo.NewMemberSelector(network, mnList))
	}
	seen, e := lru.New[string, struct{}](max(c.SeenMessageCacheSize, 1))
	if e != nil {
		return nil, lib.NewError(lib.NoCode, lib.ControllerModule, e.Error())
	}
	controller := &Controller{
		Processor: quorum.NewProcessor(network, verifier, db, c.QuorumConfig, metrics, l),
		Config:    c,
		network:   network,
		genesis:   genesis,
		tree:      lib.NewBlockTree(),
		db:        db,
		mnList:    mnList,
		peers:     NewPeerBook(c.BanScoreThreshold),
		seen:      seen,
		invalid:   make(map[string]struct{}),
		metrics:   metrics,
		log:       l,
	}
	if err := controller.loadChain(); err != nil {
		return nil, err
	}
	return controller, nil
}

// SetRelayer() sets where accepted gossip is forwarded
func (c *Controller) SetRelayer(r Relayer) {
	c.Lock()
	defer c.Unlock()
	c.relay = r
}

// AddHeightListener() registers a peer subsystem for tip notifications
func (c *Controller) AddHeightListener(l HeightListener) {
	c.lMu.Lock()
	defer c.lMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Stop() gracefully closes the chain state store
func (c *Controller) Stop() {
	c.Lock()
	defer c.Unlock()
	if err := c.db.Close(); err != nil {
		c.log.Error(err.Error())
	}
}

// Network() returns the quorum parameter table in use
func (c *Controller) Network() *quorum.NetworkParams { return c.network }

// Peers() returns the gossip peer reputation book
func (c *Controller) Peers() *PeerBook { return c.peers }

// Tip() returns the active chain tip
func (c *Controller) Tip() *lib.BlockIndex {
	c.Lock()
	defer c.Unlock()
	return c.tree.Tip()
}

// Height() returns the height of the active chain tip
func (c *Controller) Height() uint64 { return c.Tip().Height }

// loadChain() rebuilds the block tree from the indexed active chain, writing the genesis block into an
// empty store, and refuses a store whose quorum state was applied at another block than the tip
func (c *Controller) loadChain() lib.ErrorI {
	hashes, err := c.db.GetActiveChain()
	if err != nil {
		return err
	}
	genesisHash := c.genesis.Hash()
	if len(hashes) == 0 {
		c.log.Infof("Initializing chain state with genesis %s", lib.BytesToTruncatedString(genesisHash))
		if err = c.db.IndexBlock(c.genesis); err != nil {
			return err
		}
		if err = c.db.SetActiveHash(0, genesisHash); err != nil {
			return err
		}
		if err = c.db.Commit(); err != nil {
			return err
		}
		hashes = [][]byte{genesisHash}
	}
	if !bytes.Equal(hashes[0], genesisHash) {
		return ErrGenesisMismatch(hashes[0], genesisHash)
	}
	var idx *lib.BlockIndex
	for i, hash := range hashes {
		var prevHash []byte
		if i != 0 {
			prevHash = hashes[i-1]
		}
		if idx, err = c.tree.AddBlockIndex(hash, prevHash); err != nil {
			return err
		}
	}
	c.tree.SetTip(idx)
	best, err := c.Processor.GetBestBlock()
	if err != nil {
		return err
	}
	if (best == nil && idx.Height != 0) || (best != nil && !bytes.Equal(best, idx.Hash)) {
		return ErrBestBlockMarker(best, idx.Hash)
	}
	c.metrics.UpdateChainMetrics(idx.Height, 0)
	c.log.Infof("Loaded active chain at height %d (%s)", idx.Height, lib.BytesToTruncatedString(idx.Hash))
	return nil
}

// notify() calls every height listener; must be called without the chain lock
func (c *Controller) notify(tip *lib.BlockIndex) {
	if tip == nil {
		return
	}
	c.lMu.RLock()
	defer c.lMu.RUnlock()
	for _, l := range c.listeners {
		l.UpdatedBlockTip(tip)
	}
}
