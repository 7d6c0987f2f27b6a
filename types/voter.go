package types

import "time"

// CanonicalVoter is a normalized roster row: uppercased identifier and class
// tag with whitespace runs collapsed into underscores.
type CanonicalVoter struct {
	ID       string `json:"id" cbor:"0,keyasint"`
	ClassTag string `json:"class" cbor:"1,keyasint"`
}

// Key returns the deduplication key of the voter.
func (v CanonicalVoter) Key() string {
	return v.ID + ":" + v.ClassTag
}

// RosterEntry is the stored form of an eligible voter.
type RosterEntry struct {
	CanonicalVoter `cbor:"0,keyasint"`
	CreatedAt      time.Time `json:"createdAt" cbor:"1,keyasint"`
}

// EligibilityReason tells why a voter is not eligible.
type EligibilityReason string

const (
	ReasonNoVoters    EligibilityReason = "NO_VOTERS"
	ReasonNotEligible EligibilityReason = "NOT_ELIGIBLE"
)

// EligibilityResult is the outcome of an eligibility check. Negative
// outcomes are results, not errors.
type EligibilityResult struct {
	Eligible       bool              `json:"eligible"`
	ElectionID     string            `json:"electionId"`
	MerkleRootHash string            `json:"merkleRootHash"`
	MerkleProof    []HexBytes        `json:"merkleProof"`
	LeafIndex      *int              `json:"leafIndex,omitempty"`
	Leaf           HexBytes          `json:"leaf,omitempty"`
	Reason         EligibilityReason `json:"reason,omitempty"`
}

// ImportResult summarizes a roster import.
type ImportResult struct {
	Imported          int    `json:"imported"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
	InvalidSkipped    int    `json:"invalidSkipped"`
	MerkleRootHash    string `json:"merkleRootHash"`
	RosterSize        int    `json:"rosterSize"`
}
