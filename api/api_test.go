package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/ballotbox"
	"github.com/vocdoni/anonvote-node/crypto/signatures/ethereum"
	"github.com/vocdoni/anonvote-node/internal/testutil"
	"github.com/vocdoni/anonvote-node/types"
)

type testAPI struct {
	c      *qt.C
	api    *API
	signer *ethereum.Signer
}

func newTestAPI(c *qt.C) *testAPI {
	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)
	bb := ballotbox.New(testutil.NewStorage(c), testutil.Verifier(c), signer)
	a, err := newAPI(&APIConfig{BallotBox: bb, VerificationKeyHash: "abcd"})
	c.Assert(err, qt.IsNil)
	return &testAPI{c: c, api: a, signer: signer}
}

// do sends a request to the router and decodes a successful response into
// out. It returns the recorder for status checks.
func (t *testAPI) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			t.c.Assert(json.NewEncoder(&buf).Encode(body), qt.IsNil)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	t.api.Router().ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		t.c.Assert(json.Unmarshal(rec.Body.Bytes(), out), qt.IsNil, qt.Commentf("body: %s", rec.Body.String()))
	}
	return rec
}

func (t *testAPI) assertError(rec *httptest.ResponseRecorder, status int, reason string) {
	t.c.Helper()
	t.c.Assert(rec.Code, qt.Equals, status, qt.Commentf("body: %s", rec.Body.String()))
	var body struct {
		Error  string `json:"error"`
		Code   int    `json:"code"`
		Reason string `json:"reason"`
	}
	t.c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	t.c.Assert(body.Reason, qt.Equals, reason)
	t.c.Assert(body.Code, qt.Not(qt.Equals), 0)
	t.c.Assert(body.Error, qt.Not(qt.Equals), "")
}

func electionPath(path string, id uuid.UUID) string {
	return EndpointWithParam(path, ElectionURLParam, id.String())
}

func TestPingAndInfo(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	rec := ta.do(http.MethodGet, PingEndpoint, nil, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	var info NodeInfo
	rec = ta.do(http.MethodGet, InfoEndpoint, nil, &info)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(info.VerificationKeyHash, qt.Equals, "abcd")
	c.Assert(info.ReceiptSigner, qt.DeepEquals, types.HexBytes(ta.signer.Address().Bytes()))
}

func TestElectionFlow(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	var e types.Election
	rec := ta.do(http.MethodPost, ElectionsEndpoint, CreateElectionRequest{Name: "board"}, &e)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	c.Assert(e.Status, qt.Equals, types.ElectionStatusDraft)

	var list ElectionsResponse
	ta.do(http.MethodGet, ElectionsEndpoint, nil, &list)
	c.Assert(list.Elections, qt.HasLen, 1)
	c.Assert(list.Elections[0].ID, qt.Equals, e.ID)

	var candidate types.Candidate
	rec = ta.do(http.MethodPost, electionPath(ElectionCandidatesEndpoint, e.ID), AddCandidateRequest{Name: "alice"}, &candidate)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	var candidates CandidatesResponse
	ta.do(http.MethodGet, electionPath(ElectionCandidatesEndpoint, e.ID), nil, &candidates)
	c.Assert(candidates.Candidates, qt.HasLen, 1)

	voters := testutil.Voters(3)
	var imported types.ImportResult
	rec = ta.do(http.MethodPost, electionPath(ElectionVotersEndpoint, e.ID), ImportRosterRequest{CSV: testutil.RosterCSV(voters)}, &imported)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(imported.Imported, qt.Equals, 3)

	var eligibility types.EligibilityResult
	ta.do(http.MethodPost, electionPath(ElectionEligibilityEndpoint, e.ID), EligibilityRequest{
		IdentityCommitment: voters[0].IdentityCommitment(),
		Class:              voters[0].Class,
	}, &eligibility)
	c.Assert(eligibility.Eligible, qt.IsTrue)
	c.Assert(eligibility.MerkleRootHash, qt.Equals, imported.MerkleRootHash)

	rec = ta.do(http.MethodPost, electionPath(ElectionStatusEndpoint, e.ID), SetStatusRequest{Status: types.ElectionStatusVotingOpenName}, &e)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(e.Status, qt.Equals, types.ElectionStatusVotingOpen)

	v := testutil.ProveVote(c, voters[0], e.ID, candidate.ID, imported.MerkleRootHash)
	body := Vote{ElectionID: e.ID.String(), Vote: v.Vote, Proof: v.Proof, PublicSignals: v.Signals}
	var accepted VoteResponse
	rec = ta.do(http.MethodPost, VotesEndpoint, body, &accepted)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated, qt.Commentf("body: %s", rec.Body.String()))
	c.Assert(accepted.Success, qt.IsTrue)
	c.Assert(accepted.Nullifier, qt.Equals, v.Signals[types.SignalNullifier])
	c.Assert(ethereum.VerifyReceipt(accepted.Receipt, ta.signer.Address()), qt.IsTrue)

	ta.assertError(ta.do(http.MethodPost, VotesEndpoint, body, nil), http.StatusConflict, "DOUBLE_VOTE")

	// tampered root signal
	other := testutil.ProveVote(c, voters[1], e.ID, candidate.ID, imported.MerkleRootHash)
	tampered := Vote{ElectionID: e.ID.String(), Vote: other.Vote, Proof: other.Proof, PublicSignals: other.Signals}
	tampered.PublicSignals[types.SignalRoot] = "1"
	ta.assertError(ta.do(http.MethodPost, VotesEndpoint, tampered, nil), http.StatusBadRequest, "INVALID_PROOF")

	// proofs without the snarkjs layout are input errors
	nullProof := Vote{ElectionID: e.ID.String(), Vote: other.Vote, Proof: json.RawMessage("null"), PublicSignals: other.Signals}
	ta.assertError(ta.do(http.MethodPost, VotesEndpoint, nullProof, nil), http.StatusBadRequest, "EMPTY_PROOF")
	nullProof.Proof = json.RawMessage(`{"pi_a":["1"]}`)
	ta.assertError(ta.do(http.MethodPost, VotesEndpoint, nullProof, nil), http.StatusBadRequest, "MALFORMED_PROOF")

	ta.assertError(ta.do(http.MethodGet, electionPath(ElectionTallyEndpoint, e.ID), nil, nil), http.StatusForbidden, "RESULTS_NOT_AVAILABLE")
	ta.assertError(ta.do(http.MethodGet, electionPath(ElectionAuditEndpoint, e.ID), nil, nil), http.StatusForbidden, "RESULTS_NOT_AVAILABLE")

	ta.do(http.MethodPost, electionPath(ElectionStatusEndpoint, e.ID), SetStatusRequest{Status: types.ElectionStatusVotingClosedName}, &e)
	c.Assert(e.Status, qt.Equals, types.ElectionStatusVotingClosed)

	var tally TallyResponse
	rec = ta.do(http.MethodGet, electionPath(ElectionTallyEndpoint, e.ID), nil, &tally)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(tally.TotalVotes, qt.Equals, uint64(1))
	c.Assert(tally.Results, qt.DeepEquals, map[string]uint64{candidate.ID.String(): 1})

	var audit AuditResponse
	ta.do(http.MethodGet, electionPath(ElectionAuditEndpoint, e.ID), nil, &audit)
	c.Assert(audit.Votes, qt.HasLen, 1)
	c.Assert(audit.Votes[0].Nullifier, qt.Equals, accepted.Nullifier)

	var final TallyResponse
	rec = ta.do(http.MethodPost, electionPath(ElectionTallyEndpoint, e.ID), nil, &final)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(final.Status, qt.Equals, types.ElectionStatusTalliedName)
	c.Assert(final.Results, qt.DeepEquals, tally.Results)

	ta.assertError(ta.do(http.MethodPost, electionPath(ElectionTallyEndpoint, e.ID), nil, nil), http.StatusConflict, "INVALID_STATUS_TRANSITION")
	ta.assertError(ta.do(http.MethodPost, electionPath(ElectionVotersEndpoint, e.ID), ImportRosterRequest{CSV: testutil.ExampleRosterCSV}, nil), http.StatusConflict, "ROSTER_LOCKED")
}

func TestRequestErrors(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(c)

	rec := ta.do(http.MethodGet, "/elections/not-a-uuid", nil, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")

	ta.assertError(ta.do(http.MethodGet, electionPath(ElectionEndpoint, uuid.New()), nil, nil), http.StatusNotFound, "ELECTION_NOT_FOUND")
	ta.assertError(ta.do(http.MethodPost, ElectionsEndpoint, CreateElectionRequest{}, nil), http.StatusBadRequest, "INVALID_ELECTION")

	rec = ta.do(http.MethodPost, ElectionsEndpoint, `{"name": "x", "unexpected": 1}`, nil)
	c.Assert(rec.Code, qt.Equals, ErrMalformedBody.HTTPstatus)

	var e types.Election
	ta.do(http.MethodPost, ElectionsEndpoint, CreateElectionRequest{Name: "errors"}, &e)

	rec = ta.do(http.MethodPost, electionPath(ElectionStatusEndpoint, e.ID), SetStatusRequest{Status: "OPEN"}, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	ta.assertError(ta.do(http.MethodPost, electionPath(ElectionStatusEndpoint, e.ID), SetStatusRequest{Status: types.ElectionStatusVotingClosedName}, nil),
		http.StatusConflict, "INVALID_STATUS_TRANSITION")

	ta.assertError(ta.do(http.MethodPost, electionPath(ElectionVotersEndpoint, e.ID), ImportRosterRequest{CSV: "name,group\na,b\n"}, nil),
		http.StatusBadRequest, "INVALID_CSV_HEADERS")
	ta.assertError(ta.do(http.MethodPost, electionPath(ElectionEligibilityEndpoint, e.ID), EligibilityRequest{IdentityCommitment: "zz", Class: "A"}, nil),
		http.StatusBadRequest, "INVALID_IDENTITY")

	// negative eligibility is a result, not an error
	var res types.EligibilityResult
	rec = ta.do(http.MethodPost, electionPath(ElectionEligibilityEndpoint, e.ID), EligibilityRequest{
		IdentityCommitment: testutil.Voters(1)[0].IdentityCommitment(),
		Class:              "A",
	}, &res)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(res.Eligible, qt.IsFalse)
	c.Assert(res.Reason, qt.Equals, types.ReasonNoVoters)

	ta.assertError(ta.do(http.MethodPost, VotesEndpoint, Vote{ElectionID: e.ID.String(), Vote: uuid.NewString()}, nil),
		http.StatusConflict, "VOTING_NOT_OPEN")
	rec = ta.do(http.MethodPost, VotesEndpoint, Vote{ElectionID: "nope"}, nil)
	c.Assert(rec.Code, qt.Equals, ErrMalformedElectionID.HTTPstatus)
}
