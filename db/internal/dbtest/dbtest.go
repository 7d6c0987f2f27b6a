// Package dbtest holds the conformance suite every db.Database backend runs.
package dbtest

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/db"
)

// TestWriteTx checks read-your-writes, commit visibility and discard.
func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	defer wTx.Discard()

	_, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound, qt.Commentf("uncommitted write must not be visible"))

	c.Assert(wTx.Commit(), qt.IsNil)

	v, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	dTx := database.WriteTx()
	c.Assert(dTx.Delete([]byte("a")), qt.IsNil)
	_, err = dTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	c.Assert(dTx.Commit(), qt.IsNil)
	dTx.Discard()

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	discarded := database.WriteTx()
	c.Assert(discarded.Set([]byte("z"), []byte("z")), qt.IsNil)
	discarded.Discard()
	_, err = database.Get([]byte("z"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestIterate checks prefix filtering and ascending order.
func TestIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	for _, k := range []string{"p/3", "p/1", "q/1", "p/2", "o/9"} {
		c.Assert(wTx.Set([]byte(k), []byte("v"+k)), qt.IsNil)
	}
	c.Assert(wTx.Commit(), qt.IsNil)
	wTx.Discard()

	var keys []string
	c.Assert(database.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		c.Assert(string(v), qt.Equals, "v"+string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"p/1", "p/2", "p/3"})

	keys = nil
	c.Assert(database.Iterate([]byte("p/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return false
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 1)

	// pending writes are merged into the iteration of a transaction
	tx := database.WriteTx()
	defer tx.Discard()
	c.Assert(tx.Set([]byte("p/0"), []byte("vp/0")), qt.IsNil)
	c.Assert(tx.Delete([]byte("p/2")), qt.IsNil)
	keys = nil
	c.Assert(tx.Iterate([]byte("p/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"p/0", "p/1", "p/3"})
}

// TestWriteTxApply checks that Apply copies the pending writes of another tx.
func TestWriteTxApply(t *testing.T, database db.Database) {
	c := qt.New(t)

	other := database.WriteTx()
	defer other.Discard()
	c.Assert(other.Set([]byte("k1"), []byte("v1")), qt.IsNil)
	c.Assert(other.Commit(), qt.IsNil)

	wTx := database.WriteTx()
	defer wTx.Discard()
	c.Assert(wTx.Apply(database.WriteTx()), qt.IsNil)
	c.Assert(wTx.Set([]byte("k2"), []byte("v2")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	v, err := database.Get([]byte("k1"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("v1"))
	v, err = database.Get([]byte("k2"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("v2"))
}

// TestWriteTxApplyPrefixed checks that writes through a prefixed view land
// under the prefix of the parent database.
func TestWriteTxApplyPrefixed(t *testing.T, database, prefixed db.Database, prefix []byte) {
	c := qt.New(t)

	wTx := prefixed.WriteTx()
	defer wTx.Discard()
	c.Assert(wTx.Set([]byte("key"), []byte("value")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	v, err := database.Get(append(append([]byte{}, prefix...), []byte("key")...))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("value"))

	v, err = prefixed.Get([]byte("key"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("value"))

	_, err = database.Get([]byte("key"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}
