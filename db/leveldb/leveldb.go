// Package leveldb implements db.Database over syndtr/goleveldb.
package leveldb

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/internal/batch"
)

// LevelDB is a db.Database backed by goleveldb.
type LevelDB struct {
	db     *leveldb.DB
	closed atomic.Bool
}

var _ db.Database = (*LevelDB)(nil)

// New opens (or creates) a leveldb database at opts.Path.
func New(opts db.Options) (*LevelDB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("leveldb: empty path")
	}
	if err := os.MkdirAll(opts.Path, os.ModePerm); err != nil {
		return nil, err
	}
	ldb, err := leveldb.OpenFile(opts.Path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", opts.Path, err)
	}
	return &LevelDB{db: ldb}, nil
}

func (d *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	return value, err
}

func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// WriteTx buffers writes and applies them as one leveldb batch on Commit.
func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{Overlay: batch.New(d), db: d.db}
}

func (d *LevelDB) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.db.Close()
}

func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

// WriteTx implements db.WriteTx.
type WriteTx struct {
	*batch.Overlay
	db *leveldb.DB
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Commit() error {
	b := new(leveldb.Batch)
	if err := tx.Each(func(key, value []byte, deleted bool) error {
		if deleted {
			b.Delete(key)
		} else {
			b.Put(key, value)
		}
		return nil
	}); err != nil {
		return err
	}
	return tx.db.Write(b, &opt.WriteOptions{Sync: true})
}

func (tx *WriteTx) Discard() {
	tx.Reset()
}
