package leveldb

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/internal/dbtest"
	"github.com/vocdoni/anonvote-node/db/prefixeddb"
)

func newTestDB(t *testing.T) db.Database {
	database, err := New(db.Options{Path: t.TempDir()})
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestWriteTx(t *testing.T) {
	dbtest.TestWriteTx(t, newTestDB(t))
}

func TestIterate(t *testing.T) {
	dbtest.TestIterate(t, newTestDB(t))
}

func TestWriteTxApply(t *testing.T) {
	dbtest.TestWriteTxApply(t, newTestDB(t))
}

func TestWriteTxApplyPrefixed(t *testing.T) {
	database := newTestDB(t)
	prefix := []byte("one")
	dbtest.TestWriteTxApplyPrefixed(t, database, prefixeddb.NewPrefixedDatabase(database, prefix), prefix)
}
