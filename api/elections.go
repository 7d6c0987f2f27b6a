package api

import (
	"net/http"

	"github.com/vocdoni/anonvote-node/types"
)

// newElection creates an election in DRAFT status
// POST /elections
func (a *API) newElection(w http.ResponseWriter, r *http.Request) {
	var req CreateElectionRequest
	if err := decodeBody(r, &req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	e, err := a.bb.CreateElection(r.Context(), req.Name)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSONStatus(w, http.StatusCreated, e)
}

// elections lists every election, most recent first
// GET /elections
func (a *API) elections(w http.ResponseWriter, r *http.Request) {
	list, err := a.bb.Elections(r.Context())
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	if list == nil {
		list = []*types.Election{}
	}
	httpWriteJSON(w, &ElectionsResponse{Elections: list})
}

// election returns an election
// GET /elections/{electionId}
func (a *API) election(w http.ResponseWriter, r *http.Request) {
	e, err := a.bb.Election(r.Context(), electionIDParam(r))
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, e)
}

// setElectionStatus moves an election to the next status
// POST /elections/{electionId}/status
func (a *API) setElectionStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := decodeBody(r, &req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	status, err := types.ParseElectionStatus(req.Status)
	if err != nil {
		ErrMalformedParam.WithErr(err).Write(w)
		return
	}
	e, err := a.bb.SetStatus(r.Context(), electionIDParam(r), status)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, e)
}

// addCandidate registers a candidate
// POST /elections/{electionId}/candidates
func (a *API) addCandidate(w http.ResponseWriter, r *http.Request) {
	var req AddCandidateRequest
	if err := decodeBody(r, &req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	c, err := a.bb.AddCandidate(r.Context(), electionIDParam(r), req.Name)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSONStatus(w, http.StatusCreated, c)
}

// candidates lists the candidates of an election
// GET /elections/{electionId}/candidates
func (a *API) candidates(w http.ResponseWriter, r *http.Request) {
	list, err := a.bb.Candidates(r.Context(), electionIDParam(r))
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	if list == nil {
		list = []*types.Candidate{}
	}
	httpWriteJSON(w, &CandidatesResponse{Candidates: list})
}

// importRoster adds the voters of a roster CSV to an election
// POST /elections/{electionId}/voters/import
func (a *API) importRoster(w http.ResponseWriter, r *http.Request) {
	var req ImportRosterRequest
	if err := decodeBody(r, &req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	res, err := a.bb.ImportRoster(r.Context(), electionIDParam(r), req.CSV)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// checkEligibility returns whether a voter is in the roster, with its
// Merkle proof
// POST /elections/{electionId}/eligibility
func (a *API) checkEligibility(w http.ResponseWriter, r *http.Request) {
	var req EligibilityRequest
	if err := decodeBody(r, &req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	res, err := a.bb.CheckEligibility(r.Context(), electionIDParam(r), req.IdentityCommitment, req.Class)
	if err != nil {
		ballotBoxError(err).Write(w)
		return
	}
	httpWriteJSON(w, res)
}
