package store

import (
	"sort"
	"strings"

	"github.com/volkshash/volkshash/lib"
)

var (
	_ lib.TxnI      = &Txn{}
	_ lib.IteratorI = &mergeIterator{}
)

/*
	Txn is an in-memory overlay on a parent store. Writes stay pending in the overlay until Write()
	flushes them to the parent in key order, or Discard() drops them. Reads and iteration see the
	pending writes merged over the parent as if they had already been flushed.

	Badger has no nested transactions, so a reorganization applies every disconnect and connect step
	to an overlay of the tip batch and drops the overlay if any step fails.

	An overlay is not safe for concurrent use, and Write() is only as atomic as its parent.
*/

type Txn struct {
	parent  lib.RWStoreI
	pending map[string]pendingWrite // string(key) -> latest write
	keys    []string                // pending keys in lexicographical order
}

// pendingWrite is the value of a set, or a tombstone
type pendingWrite struct {
	value   []byte
	deleted bool
}

// NewTxn() opens an empty overlay on parent
func NewTxn(parent lib.RWStoreI) *Txn {
	t := &Txn{parent: parent}
	t.reset()
	return t
}

// Get() prefers the pending write of the key, a tombstone reads as absent
func (t *Txn) Get(key []byte) ([]byte, lib.ErrorI) {
	if w, found := t.pending[string(key)]; found {
		return w.value, nil
	}
	return t.parent.Get(key)
}

func (t *Txn) Set(key, value []byte) lib.ErrorI {
	t.put(string(key), pendingWrite{value: value})
	return nil
}

func (t *Txn) Delete(key []byte) lib.ErrorI {
	t.put(string(key), pendingWrite{deleted: true})
	return nil
}

func (t *Txn) put(key string, w pendingWrite) {
	if _, found := t.pending[key]; !found {
		i := sort.SearchStrings(t.keys, key)
		t.keys = append(t.keys, "")
		copy(t.keys[i+1:], t.keys[i:])
		t.keys[i] = key
	}
	t.pending[key] = w
}

// Iterator() walks the keys under prefix of the parent and the overlay together, in order
func (t *Txn) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	parent, err := t.parent.Iterator(prefix)
	if err != nil {
		return nil, err
	}
	p := string(prefix)
	// pending keys are sorted, so the ones under prefix are contiguous
	start := sort.SearchStrings(t.keys, p)
	end := start
	for end < len(t.keys) && strings.HasPrefix(t.keys[end], p) {
		end++
	}
	it := &mergeIterator{parent: parent, keys: t.keys[start:end], pending: t.pending}
	it.Next()
	return it, nil
}

// Write() flushes the pending writes into the parent in key order and empties the overlay
func (t *Txn) Write() lib.ErrorI {
	for _, k := range t.keys {
		w, err := t.pending[k], lib.ErrorI(nil)
		if w.deleted {
			err = t.parent.Delete([]byte(k))
		} else {
			err = t.parent.Set([]byte(k), w.value)
		}
		if err != nil {
			return err
		}
	}
	t.reset()
	return nil
}

// Discard() drops every pending write
func (t *Txn) Discard() { t.reset() }

// Len() is the number of pending keys
func (t *Txn) Len() int { return len(t.keys) }

func (t *Txn) reset() {
	t.pending, t.keys = make(map[string]pendingWrite), nil
}

// mergeIterator yields the union of a parent iterator and a sorted run of pending keys
// On equal keys the pending write shadows the parent entry and tombstones hide both
type mergeIterator struct {
	parent  lib.IteratorI
	keys    []string
	pending map[string]pendingWrite

	key, value []byte
	valid      bool
}

func (m *mergeIterator) Valid() bool   { return m.valid }
func (m *mergeIterator) Key() []byte   { return m.key }
func (m *mergeIterator) Value() []byte { return m.value }
func (m *mergeIterator) Close()        { m.parent.Close() }

// Next() moves to the next visible entry of either source
func (m *mergeIterator) Next() {
	for {
		fromParent, fromOverlay := m.parent.Valid(), len(m.keys) != 0
		if !fromParent && !fromOverlay {
			m.key, m.value, m.valid = nil, nil, false
			return
		}
		if fromParent && fromOverlay {
			switch parentKey := string(m.parent.Key()); {
			case parentKey < m.keys[0]:
				fromOverlay = false
			case parentKey == m.keys[0]:
				// shadowed by the pending write
				m.parent.Next()
			}
		}
		if !fromOverlay {
			m.key, m.value, m.valid = m.parent.Key(), m.parent.Value(), true
			m.parent.Next()
			return
		}
		k := m.keys[0]
		m.keys = m.keys[1:]
		if w := m.pending[k]; !w.deleted {
			m.key, m.value, m.valid = []byte(k), w.value, true
			return
		}
	}
}
