package api

import (
	"encoding/json"

	"github.com/vocdoni/anonvote-node/types"
)

// CreateElectionRequest is the body of POST /elections.
type CreateElectionRequest struct {
	Name string `json:"name"`
}

// SetStatusRequest is the body of POST /elections/{electionId}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// AddCandidateRequest is the body of POST /elections/{electionId}/candidates.
type AddCandidateRequest struct {
	Name string `json:"name"`
}

// ImportRosterRequest is the body of POST /elections/{electionId}/voters/import.
type ImportRosterRequest struct {
	CSV string `json:"csv"`
}

// EligibilityRequest is the body of POST /elections/{electionId}/eligibility.
// The identity commitment is provided by the authentication layer.
type EligibilityRequest struct {
	IdentityCommitment string `json:"identityCommitment"`
	Class              string `json:"class"`
}

// Vote is the struct to represent a vote in the system. It will be provided by
// the voter to cast an anonymous vote in an election.
type Vote struct {
	ElectionID    string          `json:"electionId"`
	Vote          string          `json:"vote"`
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
}

// VoteResponse is the response returned by the vote submission endpoint.
type VoteResponse struct {
	Success   bool               `json:"success"`
	Nullifier string             `json:"nullifier"`
	Receipt   *types.VoteReceipt `json:"receipt"`
}

// ElectionsResponse lists the elections of the node.
type ElectionsResponse struct {
	Elections []*types.Election `json:"elections"`
}

// CandidatesResponse lists the candidates of an election.
type CandidatesResponse struct {
	Candidates []*types.Candidate `json:"candidates"`
}

// TallyResponse holds the per candidate vote counts of an election.
type TallyResponse struct {
	ElectionID string            `json:"electionId"`
	Status     string            `json:"status"`
	Results    map[string]uint64 `json:"results"`
	TotalVotes uint64            `json:"totalVotes"`
}

// AuditResponse lists every accepted vote of an election.
type AuditResponse struct {
	ElectionID string             `json:"electionId"`
	Votes      []types.AuditEntry `json:"votes"`
}

// NodeInfo describes the verification material of the node so clients can
// check they prove against the expected circuit.
type NodeInfo struct {
	VerificationKeyURL  string         `json:"verificationKeyUrl,omitempty"`
	VerificationKeyHash string         `json:"verificationKeyHash"`
	ReceiptSigner       types.HexBytes `json:"receiptSigner,omitempty"`
}
