package ballotbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/census"
	"github.com/vocdoni/anonvote-node/crypto/signatures/ethereum"
	"github.com/vocdoni/anonvote-node/internal/testutil"
	"github.com/vocdoni/anonvote-node/types"
	"github.com/vocdoni/anonvote-node/util"
)

type fixture struct {
	bb         *BallotBox
	election   *types.Election
	candidates []*types.Candidate
	voters     []testutil.Voter
}

// newFixture creates an election with two candidates and a roster of n
// voters, and opens it.
func newFixture(c *qt.C, n int) *fixture {
	ctx := context.Background()
	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)
	bb := New(testutil.NewStorage(c.TB), testutil.Verifier(c.TB), signer)

	e, err := bb.CreateElection(ctx, "student council")
	c.Assert(err, qt.IsNil)
	alice, err := bb.AddCandidate(ctx, e.ID, "alice")
	c.Assert(err, qt.IsNil)
	bob, err := bb.AddCandidate(ctx, e.ID, "bob")
	c.Assert(err, qt.IsNil)

	voters := testutil.Voters(n)
	_, err = bb.ImportRoster(ctx, e.ID, testutil.RosterCSV(voters))
	c.Assert(err, qt.IsNil)
	e, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingOpen)
	c.Assert(err, qt.IsNil)
	c.Assert(e.HasRoot(), qt.IsTrue)

	return &fixture{bb: bb, election: e, candidates: []*types.Candidate{alice, bob}, voters: voters}
}

func (f *fixture) prove(c *qt.C, voter testutil.Voter, candidate uuid.UUID) *testutil.Vote {
	return testutil.ProveVote(c.TB, voter, f.election.ID, candidate, f.election.MerkleRootHash)
}

func (f *fixture) submit(v *testutil.Vote) (*types.VoteRecord, *types.VoteReceipt, error) {
	return f.bb.SubmitVote(context.Background(), v.ElectionID, v.Vote, v.Proof, v.Signals)
}

func TestSubmitVoteAndTally(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	f := newFixture(c, 5)
	alice, bob := f.candidates[0].ID, f.candidates[1].ID

	choices := []uuid.UUID{alice, bob, alice, alice}
	for i, choice := range choices {
		v := f.prove(c, f.voters[i], choice)
		record, receipt, err := f.submit(v)
		c.Assert(err, qt.IsNil)
		c.Assert(record.Nullifier, qt.Equals, v.Signals[types.SignalNullifier])
		c.Assert(receipt.Root, qt.Equals, f.election.MerkleRootHash)
		c.Assert(ethereum.VerifyReceipt(receipt, f.bb.Signer().Address()), qt.IsTrue)
	}

	// results are hidden while voting is open
	_, err := f.bb.Tally(ctx, f.election.ID)
	c.Assert(err, qt.ErrorIs, types.ErrResultsNotAvailable)
	_, err = f.bb.AuditLog(ctx, f.election.ID)
	c.Assert(err, qt.ErrorIs, types.ErrResultsNotAvailable)

	_, err = f.bb.SetStatus(ctx, f.election.ID, types.ElectionStatusVotingClosed)
	c.Assert(err, qt.IsNil)

	tally, err := f.bb.Tally(ctx, f.election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, map[string]uint64{alice.String(): 3, bob.String(): 1})

	audit, err := f.bb.AuditLog(ctx, f.election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(audit, qt.HasLen, len(choices))
	var total uint64
	for _, n := range tally {
		total += n
	}
	c.Assert(total, qt.Equals, uint64(len(audit)))
	for i := 1; i < len(audit); i++ {
		c.Assert(audit[i].CreatedAt.Before(audit[i-1].CreatedAt), qt.IsFalse)
	}

	// voting is closed
	late := f.prove(c, f.voters[4], bob)
	_, _, err = f.submit(late)
	c.Assert(err, qt.ErrorIs, types.ErrVotingNotOpen)

	final, err := f.bb.FinalizeTally(ctx, f.election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(final.Status, qt.Equals, types.ElectionStatusTallied)
	c.Assert(final.Results, qt.DeepEquals, tally)

	_, err = f.bb.FinalizeTally(ctx, f.election.ID)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidStatusTransition)
	tally, err = f.bb.Tally(ctx, f.election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(tally[alice.String()], qt.Equals, uint64(3))
}

func TestDoubleVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, 2)

	v := f.prove(c, f.voters[0], f.candidates[0].ID)
	_, _, err := f.submit(v)
	c.Assert(err, qt.IsNil)

	_, _, err = f.submit(v)
	c.Assert(err, qt.ErrorIs, types.ErrDoubleVote)

	// a new proof for another candidate carries the same nullifier
	again := f.prove(c, f.voters[0], f.candidates[1].ID)
	c.Assert(again.Signals[types.SignalNullifier], qt.Equals, v.Signals[types.SignalNullifier])
	_, _, err = f.submit(again)
	c.Assert(err, qt.ErrorIs, types.ErrDoubleVote)
	c.Assert(types.IsIntegrity(err), qt.IsTrue)
}

func TestConcurrentDoubleVote(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, 2)
	v := f.prove(c, f.voters[1], f.candidates[1].ID)

	const submissions = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		doubles  int
		others   []error
	)
	for range submissions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.submit(v)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, types.ErrDoubleVote):
				doubles++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	c.Assert(others, qt.HasLen, 0)
	c.Assert(accepted, qt.Equals, 1)
	c.Assert(doubles, qt.Equals, submissions-1)

	ctx := context.Background()
	_, err := f.bb.SetStatus(ctx, f.election.ID, types.ElectionStatusVotingClosed)
	c.Assert(err, qt.IsNil)
	audit, err := f.bb.AuditLog(ctx, f.election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(audit, qt.HasLen, 1)
}

func TestRootBinding(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	f := newFixture(c, 3)

	// a valid proof against a root that is not the election root
	stale := testutil.ProveVote(c.TB, f.voters[0], f.election.ID, f.candidates[0].ID, util.RandomHex(32))
	_, _, err := f.submit(stale)
	c.Assert(err, qt.ErrorIs, types.ErrStaleRoot)

	// a proof made before the roster changed
	before := f.prove(c, f.voters[1], f.candidates[0].ID)
	res, err := f.bb.ImportRoster(ctx, f.election.ID, "id,class\nNEW001,CLASS_0\n")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Imported, qt.Equals, 1)
	c.Assert(res.MerkleRootHash, qt.Not(qt.Equals), f.election.MerkleRootHash)
	_, _, err = f.submit(before)
	c.Assert(err, qt.ErrorIs, types.ErrStaleRoot)

	// the same voter proving against the new root is accepted
	after := testutil.ProveVote(c.TB, f.voters[1], f.election.ID, f.candidates[0].ID, res.MerkleRootHash)
	_, _, err = f.submit(after)
	c.Assert(err, qt.IsNil)
}

func TestInvalidProof(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, 2)

	a := f.prove(c, f.voters[0], f.candidates[0].ID)
	b := f.prove(c, f.voters[1], f.candidates[0].ID)

	// proof of one voter with the signals of another
	mixed := *a
	mixed.Proof = b.Proof
	_, _, err := f.submit(&mixed)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidProof)

	// the rejected vote left no nullifier behind
	_, _, err = f.submit(a)
	c.Assert(err, qt.IsNil)
}

func TestSubmitVoteShape(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c, 2)
	v := f.prove(c, f.voters[0], f.candidates[0].ID)
	eid := f.election.ID
	ctx := context.Background()

	_, _, err := f.bb.SubmitVote(ctx, eid, v.Vote, nil, v.Signals)
	c.Assert(err, qt.ErrorIs, types.ErrEmptyProof)

	for _, empty := range []string{"null", " null ", "  "} {
		_, _, err = f.bb.SubmitVote(ctx, eid, v.Vote, json.RawMessage(empty), v.Signals)
		c.Assert(err, qt.ErrorIs, types.ErrEmptyProof, qt.Commentf("proof %q", empty))
	}

	for _, malformed := range []string{
		"{",
		"{}",
		`"x"`,
		"[1,2,3]",
		`{"pi_a":["1","2","1"],"pi_b":[["1","2"],["3","4"],["1","0"]]}`,
		`{"pi_a":["1","2"],"pi_b":[["1","2"],["3","4"],["1","0"]],"pi_c":["1","2","1"]}`,
		`{"pi_a":["1","2","1"],"pi_b":[["1","2"],["3"],["1","0"]],"pi_c":["1","2","1"]}`,
	} {
		_, _, err = f.bb.SubmitVote(ctx, eid, v.Vote, json.RawMessage(malformed), v.Signals)
		c.Assert(err, qt.ErrorIs, types.ErrMalformedProof, qt.Commentf("proof %s", malformed))
		c.Assert(types.IsIntegrity(err), qt.IsFalse)
	}

	_, _, err = f.bb.SubmitVote(ctx, eid, v.Vote, v.Proof, v.Signals[:4])
	c.Assert(err, qt.ErrorIs, types.ErrInvalidPublicSignals)

	bad := append([]string(nil), v.Signals...)
	bad[types.SignalRoot] = "0x12"
	_, _, err = f.bb.SubmitVote(ctx, eid, v.Vote, v.Proof, bad)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidPublicSignals)

	_, _, err = f.bb.SubmitVote(ctx, eid, "alice", v.Proof, v.Signals)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidVote)

	// the signals name another candidate than the request
	_, _, err = f.bb.SubmitVote(ctx, eid, f.candidates[1].ID.String(), v.Proof, v.Signals)
	c.Assert(err, qt.ErrorIs, types.ErrSignalMismatch)

	// a proof made for another election
	other, err := f.bb.CreateElection(ctx, "other")
	c.Assert(err, qt.IsNil)
	foreign := testutil.ProveVote(c.TB, f.voters[0], other.ID, f.candidates[0].ID, f.election.MerkleRootHash)
	_, _, err = f.submit(&testutil.Vote{ElectionID: eid, Vote: foreign.Vote, Proof: foreign.Proof, Signals: foreign.Signals})
	c.Assert(err, qt.ErrorIs, types.ErrSignalMismatch)

	// a well formed vote for someone who is not a candidate
	stranger := f.prove(c, f.voters[0], uuid.New())
	_, _, err = f.submit(stranger)
	c.Assert(err, qt.ErrorIs, types.ErrUnknownCandidate)

	_, _, err = f.bb.SubmitVote(ctx, uuid.New(), v.Vote, v.Proof, v.Signals)
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)

	// none of the above consumed the nullifier
	_, _, err = f.submit(v)
	c.Assert(err, qt.IsNil)
}

func TestStatusGates(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	bb := New(testutil.NewStorage(c), testutil.Verifier(c), nil)

	e, err := bb.CreateElection(ctx, "  gates ")
	c.Assert(err, qt.IsNil)
	c.Assert(e.Name, qt.Equals, "gates")
	c.Assert(e.Status, qt.Equals, types.ElectionStatusDraft)

	_, err = bb.CreateElection(ctx, " ")
	c.Assert(err, qt.ErrorIs, types.ErrInvalidElection)

	voters := testutil.Voters(1)
	_, err = bb.ImportRoster(ctx, e.ID, testutil.RosterCSV(voters))
	c.Assert(err, qt.IsNil)

	// voting in DRAFT is refused
	v := testutil.ProveVote(c, voters[0], e.ID, uuid.New(), mustElection(c, bb, e.ID).MerkleRootHash)
	_, _, err = bb.SubmitVote(ctx, e.ID, v.Vote, v.Proof, v.Signals)
	c.Assert(err, qt.ErrorIs, types.ErrVotingNotOpen)

	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingClosed)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidStatusTransition)
	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusTallied)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidStatusTransition)

	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingOpen)
	c.Assert(err, qt.IsNil)
	_, err = bb.AddCandidate(ctx, e.ID, "late")
	c.Assert(err, qt.ErrorIs, types.ErrCandidatesLocked)

	// without candidates any UUID is a valid vote, and no signer means no
	// signature
	_, receipt, err := bb.SubmitVote(ctx, e.ID, v.Vote, v.Proof, v.Signals)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Signature, qt.HasLen, 0)
	c.Assert(ethereum.VerifyReceipt(receipt, common.Address{}), qt.IsFalse)

	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusDraft)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidStatusTransition)
	_, err = bb.SetStatus(ctx, e.ID, types.ElectionStatusVotingClosed)
	c.Assert(err, qt.IsNil)

	_, err = bb.ImportRoster(ctx, e.ID, testutil.ExampleRosterCSV)
	c.Assert(err, qt.ErrorIs, types.ErrRosterLocked)

	// SetStatus to TALLIED computes the results
	tallied, err := bb.SetStatus(ctx, e.ID, types.ElectionStatusTallied)
	c.Assert(err, qt.IsNil)
	c.Assert(tallied.Status, qt.Equals, types.ElectionStatusTallied)
	c.Assert(tallied.Results, qt.DeepEquals, map[string]uint64{v.Vote: 1})

	_, err = bb.Election(ctx, uuid.New())
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)
	_, err = bb.SetStatus(ctx, uuid.New(), types.ElectionStatusVotingOpen)
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)
	_, err = bb.Candidates(ctx, uuid.New())
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)
	_, err = bb.Tally(ctx, uuid.New())
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)
}

func TestImportExampleRoster(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	bb := New(testutil.NewStorage(c), testutil.Verifier(c), nil)
	e, err := bb.CreateElection(ctx, "example")
	c.Assert(err, qt.IsNil)

	first, err := bb.ImportRoster(ctx, e.ID, testutil.ExampleRosterCSV)
	c.Assert(err, qt.IsNil)
	c.Assert(first.Imported, qt.Equals, 2)
	c.Assert(first.DuplicatesSkipped, qt.Equals, 0)
	c.Assert(first.RosterSize, qt.Equals, 2)

	expected, err := census.BuildFromVoters([]types.CanonicalVoter{
		{ID: "A1345", ClassTag: "CSIE_3A"},
		{ID: "B2001", ClassTag: "IM_2B"},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(first.MerkleRootHash, qt.Equals, expected.HexRoot())

	second, err := bb.ImportRoster(ctx, e.ID, testutil.ExampleRosterCSV)
	c.Assert(err, qt.IsNil)
	c.Assert(second.Imported, qt.Equals, 0)
	c.Assert(second.DuplicatesSkipped, qt.Equals, 2)
	c.Assert(second.RosterSize, qt.Equals, 2)
	c.Assert(second.MerkleRootHash, qt.Equals, first.MerkleRootHash)

	res, err := bb.CheckEligibility(ctx, e.ID, census.IdentityCommitment("A1345"), "csie 3a")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Eligible, qt.IsTrue)
	c.Assert(res.MerkleRootHash, qt.Equals, first.MerkleRootHash)

	_, err = bb.ImportRoster(ctx, e.ID, "name,group\nx,y\n")
	c.Assert(err, qt.ErrorIs, types.ErrInvalidCSVHeaders)
	_, err = bb.ImportRoster(ctx, uuid.New(), testutil.ExampleRosterCSV)
	c.Assert(err, qt.ErrorIs, types.ErrElectionNotFound)
}

func mustElection(c *qt.C, bb *BallotBox, id uuid.UUID) *types.Election {
	e, err := bb.Election(context.Background(), id)
	c.Assert(err, qt.IsNil)
	return e
}
