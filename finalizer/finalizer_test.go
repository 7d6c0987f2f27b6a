package finalizer

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/ballotbox"
	"github.com/vocdoni/anonvote-node/internal/testutil"
	"github.com/vocdoni/anonvote-node/types"
)

// closedElection returns a ballot box with one closed election that has a
// single candidate and no votes.
func closedElection(c *qt.C) (*ballotbox.BallotBox, *types.Election, *types.Candidate) {
	ctx := context.Background()
	bb := ballotbox.New(testutil.NewStorage(c), testutil.Verifier(c), nil)
	e, err := bb.CreateElection(ctx, "finalizer")
	c.Assert(err, qt.IsNil)
	candidate, err := bb.AddCandidate(ctx, e.ID, "alice")
	c.Assert(err, qt.IsNil)
	_, err = bb.ImportRoster(ctx, e.ID, testutil.ExampleRosterCSV)
	c.Assert(err, qt.IsNil)
	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingOpen)
	c.Assert(err, qt.IsNil)
	e, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingClosed)
	c.Assert(err, qt.IsNil)
	return bb, e, candidate
}

func TestFinalizeOnDemand(t *testing.T) {
	c := qt.New(t)
	bb, e, candidate := closedElection(c)

	f := New(bb, time.Hour)
	f.Start(t.Context(), 0)
	defer f.Close()

	// closed too recently for the monitor
	f.finalizeByDate(time.Now())
	c.Assert(f.OndemandCh, qt.HasLen, 0)

	f.OndemandCh <- e.ID
	results, err := f.WaitUntilFinalized(t.Context(), e.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.DeepEquals, map[string]uint64{candidate.ID.String(): 0})

	// finalizing twice is a no-op
	c.Assert(f.finalize(e.ID), qt.IsNil)
}

func TestFinalizeByDate(t *testing.T) {
	c := qt.New(t)
	bb, e, _ := closedElection(c)

	// an election still open is left alone
	open, err := bb.CreateElection(t.Context(), "open")
	c.Assert(err, qt.IsNil)

	f := New(bb, 0)
	f.Start(t.Context(), 50*time.Millisecond)
	defer f.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	_, err = f.WaitUntilFinalized(ctx, e.ID)
	c.Assert(err, qt.IsNil)

	got, err := bb.Election(t.Context(), open.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, types.ElectionStatusDraft)
}

func TestWaitUntilFinalizedTimeout(t *testing.T) {
	c := qt.New(t)
	bb, e, _ := closedElection(c)

	f := New(bb, time.Hour)
	f.Start(t.Context(), 0)
	defer f.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	_, err := f.WaitUntilFinalized(ctx, e.ID)
	c.Assert(err, qt.ErrorMatches, "timeout waiting for election .*")
}
