package lib

/* This file contains persistence module interfaces that are used throughout the app */

// StoreI defines the interface for interacting with chain state storage
type StoreI interface {
	RWStoreI        // reading and writing
	NewTxn() TxnI   // wrap the store in a discardable nested store
	Commit() ErrorI // atomically persist every pending write
	Discard()       // drop every pending write
	Close() ErrorI  // gracefully stop the database
}

// TxnI is an in-memory overlay over a parent store
type TxnI interface {
	RWStoreI
	Write() ErrorI // flush the overlay into the parent
	Discard()      // drop the overlay
}

// RWStoreI defines the Read/Write interface for basic db CRUD operations
type RWStoreI interface {
	RStoreI
	WStoreI
}

// WStoreI defines an interface for basic write operations
type WStoreI interface {
	Set(key, value []byte) ErrorI // set value bytes referenced by key bytes
	Delete(key []byte) ErrorI     // remove the value referenced by key bytes
}

// RStoreI defines an interface for basic read operations
type RStoreI interface {
	Get(key []byte) ([]byte, ErrorI)            // access value bytes using key bytes; nil if absent
	Iterator(prefix []byte) (IteratorI, ErrorI) // iterate through the data one KV pair at a time in lexicographical order
}

// IteratorI defines an interface for iterating over key-value pairs in a data store
type IteratorI interface {
	Valid() bool           // if the item the iterator is pointing at is valid
	Next()                 // move to next item
	Key() (key []byte)     // retrieve key
	Value() (value []byte) // retrieve value
	Close()                // close the iterator when done, ensuring proper resource management
}
