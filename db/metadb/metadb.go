// Package metadb opens a db.Database by backend name.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/inmemory"
	"github.com/vocdoni/anonvote-node/db/leveldb"
	"github.com/vocdoni/anonvote-node/db/mongodb"
	"github.com/vocdoni/anonvote-node/db/pebbledb"
)

// New opens a database of type typ at dir.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeLevelDB:
		return leveldb.New(opts)
	case db.TypeMongo:
		return mongodb.New(opts)
	case db.TypeInMemory:
		return inmemory.New(opts)
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q %q",
			typ, db.TypePebble, db.TypeLevelDB, db.TypeMongo, db.TypeInMemory)
	}
}

// ForTest returns the backend used by tests, taken from $DB_TYPE.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("DB_TYPE"), db.TypePebble)
}

// NewTest opens a fresh database for a test and closes it on cleanup.
func NewTest(tb testing.TB) db.Database {
	dir := tb.TempDir()
	if ForTest() == db.TypeMongo {
		dir = fmt.Sprintf("anonvote_test_%d", os.Getpid())
	}
	database, err := New(ForTest(), dir)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { _ = database.Close() })
	return database
}
