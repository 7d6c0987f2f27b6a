package roster

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/types"
)

func TestCanonicalize(t *testing.T) {
	c := qt.New(t)

	v, ok := Canonicalize("  a1345 ", " csie  3a\t")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v, qt.DeepEquals, types.CanonicalVoter{ID: "A1345", ClassTag: "CSIE_3A"})

	v, ok = Canonicalize("b2001", "im 2 b")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v.ClassTag, qt.Equals, "IM_2_B")

	_, ok = Canonicalize("   ", "x")
	c.Assert(ok, qt.IsFalse)
	_, ok = Canonicalize("x", " \t ")
	c.Assert(ok, qt.IsFalse)

	// pure and deterministic
	a, _ := Canonicalize("z9", "cls 1")
	b, _ := Canonicalize("z9", "cls 1")
	c.Assert(a, qt.Equals, b)
}

func TestParseExample(t *testing.T) {
	c := qt.New(t)
	res, err := Parse("id,class\nA1345,csie_3a\nB2001,IM_2B\n")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Voters, qt.DeepEquals, []types.CanonicalVoter{
		{ID: "A1345", ClassTag: "CSIE_3A"},
		{ID: "B2001", ClassTag: "IM_2B"},
	})
	c.Assert(res.Duplicates, qt.Equals, 0)
	c.Assert(res.Skipped, qt.Equals, 0)
}

func TestParseDedupeAndSkip(t *testing.T) {
	c := qt.New(t)
	text := "\ufeffclass, ID ,extra\r\n" +
		"csie 3a,a1345,x\r\n" +
		"CSIE_3A,A1345,y\r\n" +
		"\r\n" +
		",B2001,z\r\n" +
		"IM 2B,b2001\r\n" +
		"IM 2B\r\n"
	res, err := Parse(text)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Voters, qt.DeepEquals, []types.CanonicalVoter{
		{ID: "A1345", ClassTag: "CSIE_3A"},
		{ID: "B2001", ClassTag: "IM_2B"},
	})
	c.Assert(res.Duplicates, qt.Equals, 1)
	c.Assert(res.Skipped, qt.Equals, 2)
}

func TestParseErrors(t *testing.T) {
	c := qt.New(t)

	_, err := Parse("")
	c.Assert(err, qt.ErrorIs, types.ErrCSVEmpty)
	_, err = Parse(" \n\n")
	c.Assert(err, qt.ErrorIs, types.ErrCSVEmpty)

	_, err = Parse("studentId,class\nA1,B\n")
	c.Assert(err, qt.ErrorIs, types.ErrInvalidCSVHeaders)

	_, err = Parse("id\nA1\n")
	c.Assert(err, qt.ErrorIs, types.ErrInvalidCSVHeaders)

	_, err = Parse("id,class\n")
	c.Assert(err, qt.ErrorIs, types.ErrCSVNoRows)

	_, err = Parse("id,class\n ,x\ny, \n")
	c.Assert(err, qt.ErrorIs, types.ErrCSVNoValidRows)

	_, err = Parse("id,class\n\"A1,B\n")
	c.Assert(err, qt.ErrorIs, types.ErrCSVFormat)

	c.Assert(types.KindOf(err), qt.Equals, types.KindInput)
}
