package store

import (
	"fmt"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"github.com/volkshash/volkshash/lib"
)

func TestStoreSetGetDelete(t *testing.T) {
	store, _, cleanup := testStore(t)
	defer cleanup()
	key, val := []byte("key"), []byte("val")
	require.NoError(t, store.Set(key, val))
	gotVal, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, val, gotVal, fmt.Sprintf("wanted %s got %s", string(val), string(gotVal)))
	require.NoError(t, store.Delete(key))
	gotVal, err = store.Get(key)
	require.NoError(t, err)
	require.Nil(t, gotVal, fmt.Sprintf("%s should be deleted", string(val)))
}

func TestStoreCommitDiscard(t *testing.T) {
	store, db, cleanup := testStore(t)
	defer cleanup()
	require.NoError(t, store.Set([]byte("a"), []byte("a")))
	// nothing reaches the database before commit
	require.NoError(t, db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(prefixed(statePrefix, []byte("a")))
		require.ErrorIs(t, err, badger.ErrKeyNotFound)
		return nil
	}))
	require.NoError(t, store.Commit())
	require.NoError(t, db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(prefixed(statePrefix, []byte("a")))
		return err
	}))
	// a discarded batch is gone, the committed one stays
	require.NoError(t, store.Set([]byte("b"), []byte("b")))
	store.Discard()
	got, err := store.Get([]byte("b"))
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = store.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)
}

func TestIteratorCommitBasic(t *testing.T) {
	parent, _, cleanup := testStore(t)
	defer cleanup()
	prefix := "a/"
	expectedVals := []string{prefix + "a", prefix + "b", prefix + "c", prefix + "d", prefix + "e", prefix + "f", prefix + "g", prefix + "i", prefix + "j"}
	bulkSetKV(t, parent, prefix, "a", "c", "e", "g")
	require.NoError(t, parent.Commit())
	bulkSetKV(t, parent, prefix, "b", "d", "f", "h", "i", "j")
	require.NoError(t, parent.Delete([]byte(prefix+"h")))
	// forward - pending and committed writes merge in order
	cIt, err := parent.Iterator([]byte(prefix))
	require.NoError(t, err)
	validateIterators(t, expectedVals, cIt)
	cIt.Close()
}

func TestIteratorPrefixed(t *testing.T) {
	store, _, cleanup := testStore(t)
	defer cleanup()
	prefix := "test/"
	prefix2 := "test2/"
	bulkSetKV(t, store, prefix, "a", "b", "c")
	bulkSetKV(t, store, prefix2, "c", "d", "e")
	// a key sharing the prefix bytes without the separator must not leak in
	bulkSetKV(t, store, "", "test0")
	it, err := store.Iterator([]byte(prefix))
	require.NoError(t, err)
	validateIterators(t, []string{"test/a", "test/b", "test/c"}, it)
	it.Close()
	it2, err := store.Iterator([]byte(prefix2))
	require.NoError(t, err)
	validateIterators(t, []string{"test2/c", "test2/d", "test2/e"}, it2)
	it2.Close()
	// committed keys iterate the same
	require.NoError(t, store.Commit())
	it3, err := store.Iterator([]byte(prefix))
	require.NoError(t, err)
	validateIterators(t, []string{"test/a", "test/b", "test/c"}, it3)
	it3.Close()
}

func TestStoreTxnOverlay(t *testing.T) {
	store, _, cleanup := testStore(t)
	defer cleanup()
	require.NoError(t, store.Set([]byte("a"), []byte("1")))
	txn := store.NewTxn()
	require.NoError(t, txn.Set([]byte("a"), []byte("2")))
	require.NoError(t, txn.Delete([]byte("b")))
	got, err := store.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	require.NoError(t, txn.Write())
	require.NoError(t, store.Commit())
	got, err = store.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
}

func testStore(t *testing.T) (*Store, *badger.DB, func()) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	store, err := NewStoreWithDB(db, lib.NewNullLogger())
	require.NoError(t, err)
	return store, db, func() { store.Close() }
}

func validateIterators(t *testing.T, expectedKeys []string, iterators ...lib.IteratorI) {
	for _, it := range iterators {
		i := 0
		for ; it.Valid(); func() { i++; it.Next() }() {
			require.Less(t, i, len(expectedKeys), "too many iterations")
			got, wanted := string(it.Key()), expectedKeys[i]
			require.Equal(t, wanted, got, fmt.Sprintf("wanted %s got %s", wanted, got))
		}
		require.Equal(t, len(expectedKeys), i)
	}
}

func bulkSetKV(t *testing.T, store lib.WStoreI, prefix string, keyValue ...string) {
	for _, kv := range keyValue {
		require.NoError(t, store.Set([]byte(prefix+kv), []byte(kv)))
	}
}
