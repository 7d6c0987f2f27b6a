package inmemory

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

func TestConcurrentWriteTx(t *testing.T) {
	c := qt.New(t)
	database := newTestDB(t)

	tx1 := database.WriteTx()
	tx2 := database.WriteTx()
	_, err := tx1.Get([]byte("n"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	_, err = tx2.Get([]byte("n"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(tx1.Set([]byte("n"), []byte("1")), qt.IsNil)
	c.Assert(tx2.Set([]byte("n"), []byte("2")), qt.IsNil)

	c.Assert(tx1.Commit(), qt.IsNil)
	c.Assert(tx2.Commit(), qt.ErrorIs, db.ErrConflict)

	v, err := database.Get([]byte("n"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("1"))
}
