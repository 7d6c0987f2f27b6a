// Package inmemory implements an ephemeral db.Database with optimistic
// conflict detection: a transaction whose reads or writes were overwritten
// by another commit fails with db.ErrConflict.
package inmemory

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/internal/batch"
)

type entry struct {
	value   []byte
	version uint64
}

// InMemoryDB implements db.Database on a map.
type InMemoryDB struct {
	mu      sync.RWMutex
	data    map[string]entry
	version uint64
}

var _ db.Database = (*InMemoryDB)(nil)

// New returns a new in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string]entry)}, nil
}

func (*InMemoryDB) Close() error   { return nil }
func (*InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.data[string(key)]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return (&snapshotReader{entries: d.snapshot(prefix)}).Iterate(prefix, callback)
}

func (d *InMemoryDB) snapshot(prefix []byte) map[string]entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]entry)
	for k, ent := range d.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			out[k] = entry{value: bytes.Clone(ent.value), version: ent.version}
		}
	}
	return out
}

func (d *InMemoryDB) versionOf(key string) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data[key].version
}

func (d *InMemoryDB) WriteTx() db.WriteTx {
	tx := &WriteTx{db: d, reads: make(map[string]uint64)}
	tx.Overlay = batch.New(&txReader{tx: tx})
	return tx
}

// WriteTx records the version of every key it touches and refuses to commit
// if any of them changed in the meantime.
type WriteTx struct {
	*batch.Overlay
	db    *InMemoryDB
	reads map[string]uint64
	done  bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) track(key string, version uint64) {
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = version
	}
}

func (tx *WriteTx) Set(key, value []byte) error {
	tx.track(string(key), tx.db.versionOf(string(key)))
	return tx.Overlay.Set(key, value)
}

func (tx *WriteTx) Delete(key []byte) error {
	tx.track(string(key), tx.db.versionOf(string(key)))
	return tx.Overlay.Delete(key)
}

func (tx *WriteTx) Commit() error {
	if tx.done {
		return fmt.Errorf("inmemory: transaction already closed")
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for key, version := range tx.reads {
		if tx.db.data[key].version != version {
			return db.ErrConflict
		}
	}
	err := tx.Each(func(key, value []byte, deleted bool) error {
		if deleted {
			delete(tx.db.data, string(key))
			return nil
		}
		tx.db.version++
		tx.db.data[string(key)] = entry{value: bytes.Clone(value), version: tx.db.version}
		return nil
	})
	tx.done = true
	return err
}

func (tx *WriteTx) Discard() {
	tx.done = true
	tx.Reset()
}

// txReader reads the committed state and records versions for the
// transaction.
type txReader struct {
	tx *WriteTx
}

func (r *txReader) Get(key []byte) ([]byte, error) {
	r.tx.db.mu.RLock()
	ent, ok := r.tx.db.data[string(key)]
	r.tx.db.mu.RUnlock()
	r.tx.track(string(key), ent.version)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (r *txReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries := r.tx.db.snapshot(prefix)
	for k, ent := range entries {
		r.tx.track(k, ent.version)
	}
	return (&snapshotReader{entries: entries}).Iterate(prefix, callback)
}

// snapshotReader serves a point-in-time copy of a key range.
type snapshotReader struct {
	entries map[string]entry
}

func (s *snapshotReader) Get(key []byte) ([]byte, error) {
	ent, ok := s.entries[string(key)]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return ent.value, nil
}

func (s *snapshotReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ov := batch.New(emptyReader{})
	for k, ent := range s.entries {
		if bytes.HasPrefix([]byte(k), prefix) {
			_ = ov.Set([]byte(k), ent.value)
		}
	}
	return ov.Iterate(prefix, callback)
}

type emptyReader struct{}

func (emptyReader) Get([]byte) ([]byte, error)                    { return nil, db.ErrKeyNotFound }
func (emptyReader) Iterate([]byte, func(k, v []byte) bool) error { return nil }
