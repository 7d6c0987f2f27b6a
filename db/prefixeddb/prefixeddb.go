// Package prefixeddb wraps a db.Database so that every key is transparently
// namespaced under a fixed prefix.
package prefixeddb

import (
	"github.com/vocdoni/anonvote-node/db"
)

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

// PrefixedReader is a db.Reader restricted to a prefix.
type PrefixedReader struct {
	prefix []byte
	reader db.Reader
}

var _ db.Reader = (*PrefixedReader)(nil)

// NewPrefixedReader returns a reader that sees only the keys under prefix,
// with the prefix removed.
func NewPrefixedReader(reader db.Reader, prefix []byte) *PrefixedReader {
	return &PrefixedReader{prefix: prefix, reader: reader}
}

func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.reader.Get(prefixed(r.prefix, key))
}

func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return r.reader.Iterate(prefixed(r.prefix, prefix), func(key, value []byte) bool {
		return callback(key[len(r.prefix):], value)
	})
}

// PrefixedWriteTx is a db.WriteTx restricted to a prefix.
type PrefixedWriteTx struct {
	prefix []byte
	tx     db.WriteTx
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx wraps tx so that all its keys live under prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{prefix: prefix, tx: tx}
}

func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(prefixed(t.prefix, key))
}

func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return t.tx.Iterate(prefixed(t.prefix, prefix), func(key, value []byte) bool {
		return callback(key[len(t.prefix):], value)
	})
}

func (t *PrefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(prefixed(t.prefix, key), value)
}

func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(prefixed(t.prefix, key))
}

func (t *PrefixedWriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return t.Set(k, v) == nil
	})
}

func (t *PrefixedWriteTx) Commit() error {
	return t.tx.Commit()
}

func (t *PrefixedWriteTx) Discard() {
	t.tx.Discard()
}

// Unwrap returns the underlying, unprefixed transaction.
func (t *PrefixedWriteTx) Unwrap() db.WriteTx {
	return t.tx
}

// PrefixedDatabase is a db.Database restricted to a prefix.
type PrefixedDatabase struct {
	prefix []byte
	db     db.Database
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a database view where every key lives under
// prefix.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{prefix: prefix, db: database}
}

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixed(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return NewPrefixedReader(d.db, d.prefix).Iterate(prefix, callback)
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close does nothing; the parent database owns the resources.
func (*PrefixedDatabase) Close() error {
	return nil
}

func (d *PrefixedDatabase) Compact() error {
	return d.db.Compact()
}
