package util

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/types"
)

func TestRandom(t *testing.T) {
	c := qt.New(t)
	c.Assert(RandomBytes(16), qt.HasLen, 16)
	c.Assert(RandomHex(8), qt.HasLen, 16)
	c.Assert(RandomHex(8), qt.Not(qt.Equals), RandomHex(8))

	for range 20 {
		v := RandomBigInt(big.NewInt(10), big.NewInt(20))
		c.Assert(v.Cmp(big.NewInt(10)) >= 0 && v.Cmp(big.NewInt(20)) < 0, qt.IsTrue)
		f := RandomFieldElement()
		c.Assert(f.Sign() > 0 && f.Cmp(types.FieldModulus) < 0, qt.IsTrue)
	}
}
