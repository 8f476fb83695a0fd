package store

import (
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/volkshash/volkshash/lib"
)

var (
	statePrefix = lib.JoinLenPrefix([]byte("s/")) // prefix designated for every chain data key in the database

	_ lib.StoreI = &Store{} // enforce the Store interface
)

/*
The Store struct is a high-level abstraction layer built on top of a single BadgerDB instance,
providing two main components for managing chain data.

1. StateStore: the chain state the consensus modules write while a block is connected or
   disconnected, such as the mined commitment index and the best block marker. It must move
   atomically with the chain tip.

2. Indexer: block bodies by hash and the active chain by height, which lets the node rebuild its
   block tree on startup and lets a disconnect find the block it must undo. It lives in its own
   key namespace inside the state store, so an Indexer can be layered over any overlay txn.

Both components share a single badger write transaction that acts as the batch of the current tip
update. Commit() persists every write of that batch at once and opens the next one; Discard() throws
the batch away. Callers that need to apply several steps and keep all or none of them wrap the store
in a NewTxn() overlay first.
*/

type Store struct {
	db          *badger.DB  // underlying database
	writer      *badger.Txn // the shared batch writer that allows committing it all at once
	*TxnWrapper             // reference to the state store
	*Indexer                // reference to the indexer store
	log         lib.LoggerI // logger
	mu          *sync.Mutex // mutex for concurrent commits
}

// New() creates a new instance of a StoreI either in memory or an actual disk DB
func New(config lib.Config, l lib.LoggerI) (*Store, lib.ErrorI) {
	if config.StoreConfig.InMemory {
		return NewStoreInMemory(l)
	}
	return NewStore(config.StoreConfig, filepath.Join(config.DataDirPath, config.DBName), l)
}

// NewStore() creates a new instance of a disk DB
func NewStore(config lib.StoreConfig, path string, log lib.LoggerI) (*Store, lib.ErrorI) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log}).
		WithLoggingLevel(badger.WARNING)
	if config.ValueLogFileSize != 0 {
		opts = opts.WithValueLogFileSize(config.ValueLogFileSize)
	}
	if config.MemTableSize != 0 {
		opts = opts.WithMemTableSize(config.MemTableSize)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return NewStoreWithDB(db, log)
}

// NewStoreInMemory() creates a new instance of a mem DB
func NewStoreInMemory(log lib.LoggerI) (*Store, lib.ErrorI) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return NewStoreWithDB(db, log)
}

// NewStoreWithDB() returns a Store object given a DB and a logger
func NewStoreWithDB(db *badger.DB, log lib.LoggerI) (*Store, lib.ErrorI) {
	writer := db.NewTransaction(true)
	wrapper := NewTxnWrapper(writer, log, statePrefix)
	return &Store{
		db:         db,
		writer:     writer,
		TxnWrapper: wrapper,
		Indexer:    NewIndexer(wrapper),
		log:        log,
		mu:         &sync.Mutex{},
	}, nil
}

// NewTxn() wraps the store in a nested, discardable overlay
func (s *Store) NewTxn() lib.TxnI { return NewTxn(s) }

// Commit() atomically persists the current batch and opens the next one
func (s *Store) Commit() lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Commit(); err != nil {
		// a failed commit discards the batch; keep the store usable
		s.resetWriter()
		return ErrCommitDB(err)
	}
	s.resetWriter()
	return nil
}

// Discard() drops every pending write of the current batch
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Discard()
	s.resetWriter()
}

// Close() discards the pending batch and gracefully stops the database
func (s *Store) Close() lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Discard()
	if err := s.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

// resetWriter() opens a fresh batch and points both components at it
func (s *Store) resetWriter() {
	s.writer = s.db.NewTransaction(true)
	s.TxnWrapper.setDB(s.writer)
}

// badgerLogger routes badger's own messages through the node logger
type badgerLogger struct{ l lib.LoggerI }

func (b badgerLogger) Errorf(format string, args ...interface{})   { b.l.Errorf(format, args...) }
func (b badgerLogger) Warningf(format string, args ...interface{}) { b.l.Warnf(format, args...) }
func (b badgerLogger) Infof(format string, args ...interface{})    { b.l.Debugf(format, args...) }
func (b badgerLogger) Debugf(format string, args ...interface{})   { b.l.Debugf(format, args...) }
