package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/types"
)

// newVote submits an anonymous vote
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	var vote Vote
	if err := decodeBody(r, &vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	electionID, err := uuid.Parse(vote.ElectionID)
	if err != nil {
		ErrMalformedElectionID.Withf("could not parse election ID: %v", err).Write(w)
		return
	}
	record, receipt, err := a.bb.SubmitVote(r.Context(), electionID, vote.Vote, vote.Proof, vote.PublicSignals)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSONStatus(w, http.StatusCreated, &VoteResponse{
		Success:   true,
		Nullifier: record.Nullifier,
		Receipt:   receipt,
	})
}

// tally returns the per candidate counts of a closed election
// GET /elections/{electionId}/tally
func (a *API) tally(w http.ResponseWriter, r *http.Request) {
	electionID := electionIDParam(r)
	results, err := a.bb.Tally(r.Context(), electionID)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	e, err := a.bb.Election(r.Context(), electionID)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, tallyResponse(e, results))
}

// finalizeTally moves a closed election to TALLIED
// POST /elections/{electionId}/tally
func (a *API) finalizeTally(w http.ResponseWriter, r *http.Request) {
	e, err := a.bb.FinalizeTally(r.Context(), electionIDParam(r))
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, tallyResponse(e, e.Results))
}

func tallyResponse(e *types.Election, results map[string]uint64) *TallyResponse {
	res := &TallyResponse{
		ElectionID: e.ID.String(),
		Status:     e.Status.String(),
		Results:    results,
	}
	if res.Results == nil {
		res.Results = map[string]uint64{}
	}
	for _, n := range results {
		res.TotalVotes += n
	}
	return res
}

// audit returns every accepted vote of a closed election
// GET /elections/{electionId}/audit
func (a *API) audit(w http.ResponseWriter, r *http.Request) {
	electionID := electionIDParam(r)
	entries, err := a.bb.AuditLog(r.Context(), electionID)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	if entries == nil {
		entries = []types.AuditEntry{}
	}
	httpWriteJSON(w, &AuditResponse{ElectionID: electionID.String(), Votes: entries})
}
