package store

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/volkshash/volkshash/lib"
)

var (
	_ lib.RWStoreI  = &TxnWrapper{}
	_ lib.IteratorI = &Iterator{}
)

// TxnWrapper adapts a badger write transaction to RWStoreI, namespacing every key under prefix
type TxnWrapper struct {
	logger lib.LoggerI
	db     *badger.Txn
	prefix []byte
}

// NewTxnWrapper() wraps db with keys namespaced under prefix
func NewTxnWrapper(db *badger.Txn, logger lib.LoggerI, prefix []byte) *TxnWrapper {
	return &TxnWrapper{logger: logger, db: db, prefix: prefix}
}

// Get() returns a copy of the value, or nil if the key is absent
func (t *TxnWrapper) Get(k []byte) ([]byte, lib.ErrorI) {
	item, err := t.db.Get(prefixed(t.prefix, k))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, nil
	case err != nil:
		return nil, ErrStoreGet(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return val, nil
}

func (t *TxnWrapper) Set(k, v []byte) lib.ErrorI {
	if err := t.db.Set(prefixed(t.prefix, k), v); err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

func (t *TxnWrapper) Delete(k []byte) lib.ErrorI {
	if err := t.db.Delete(prefixed(t.prefix, k)); err != nil {
		return ErrStoreDelete(err)
	}
	return nil
}

// setDB() points the wrapper at the next batch after a commit or discard
func (t *TxnWrapper) setDB(p *badger.Txn) { t.db = p }

// Iterator() walks the keys under prefix in lexicographical order, pending writes of the batch included
func (t *TxnWrapper) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	it := t.db.NewIterator(badger.IteratorOptions{Prefix: prefixed(t.prefix, prefix)})
	it.Rewind()
	return &Iterator{logger: t.logger, parent: it, prefix: t.prefix}, nil
}

// Iterator adapts a badger iterator to IteratorI, keys are returned without the wrapper prefix
type Iterator struct {
	logger lib.LoggerI
	parent *badger.Iterator
	prefix []byte
}

func (i *Iterator) Valid() bool { return i.parent.Valid() }
func (i *Iterator) Next()       { i.parent.Next() }
func (i *Iterator) Close()      { i.parent.Close() }

func (i *Iterator) Key() []byte {
	return bytes.TrimPrefix(i.parent.Item().KeyCopy(nil), i.prefix)
}

func (i *Iterator) Value() []byte {
	value, err := i.parent.Item().ValueCopy(nil)
	if err != nil {
		i.logger.Errorf("Reading value of %s failed: %s", lib.BytesToTruncatedString(i.Key()), err.Error())
	}
	return value
}
