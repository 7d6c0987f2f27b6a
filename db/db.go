// Package db defines the key-value database abstraction used by the node and
// the backend types that implement it.
package db

import (
	"errors"
)

const (
	TypePebble   = "pebble"
	TypeLevelDB  = "leveldb"
	TypeMongo    = "mongodb"
	TypeInMemory = "inmemory"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Commit when a backend detects that a key read
	// or written by the transaction changed after the transaction began.
	ErrConflict = errors.New("transaction conflict")
)

// Options holds the backend configuration. Path is a directory for the
// embedded backends and the database name for mongodb.
type Options struct {
	Path string
}

// Reader is the read-only view of a database or transaction.
type Reader interface {
	// Get returns the value of key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback for every key with the given prefix in
	// ascending key order, stopping when callback returns false. The slices
	// passed to callback are only valid during the call.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a batch of writes that becomes visible atomically on Commit.
type WriteTx interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
	// Apply copies every key-value pair of other into this transaction.
	Apply(other WriteTx) error
	Commit() error
	// Discard releases the transaction. It is safe to call after Commit.
	Discard()
}

// Database is a key-value store.
type Database interface {
	Reader
	WriteTx() WriteTx
	Close() error
	Compact() error
}
