package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ElectionStatus uint8

const (
	ElectionStatusDraft        = ElectionStatus(iota) // Roster and candidates are being prepared
	ElectionStatusVotingOpen                          // Votes are accepted
	ElectionStatusVotingClosed                        // No more votes, results can be read
	ElectionStatusTallied                             // Results have been finalized

	ElectionStatusDraftName        = "DRAFT"
	ElectionStatusVotingOpenName   = "VOTING_OPEN"
	ElectionStatusVotingClosedName = "VOTING_CLOSED"
	ElectionStatusTalliedName      = "TALLIED"
)

func (s ElectionStatus) String() string {
	switch s {
	case ElectionStatusDraft:
		return ElectionStatusDraftName
	case ElectionStatusVotingOpen:
		return ElectionStatusVotingOpenName
	case ElectionStatusVotingClosed:
		return ElectionStatusVotingClosedName
	case ElectionStatusTallied:
		return ElectionStatusTalliedName
	default:
		return "UNKNOWN"
	}
}

// ParseElectionStatus returns the status named by s.
func ParseElectionStatus(s string) (ElectionStatus, error) {
	switch s {
	case ElectionStatusDraftName:
		return ElectionStatusDraft, nil
	case ElectionStatusVotingOpenName:
		return ElectionStatusVotingOpen, nil
	case ElectionStatusVotingClosedName:
		return ElectionStatusVotingClosed, nil
	case ElectionStatusTalliedName:
		return ElectionStatusTallied, nil
	default:
		return 0, fmt.Errorf("unknown election status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler so the status travels by
// name in JSON.
func (s ElectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ElectionStatus) UnmarshalText(data []byte) error {
	parsed, err := ParseElectionStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanTransitionTo reports whether the status machine allows moving from s to
// next. Only single forward steps are allowed.
func (s ElectionStatus) CanTransitionTo(next ElectionStatus) bool {
	return next == s+1 && next <= ElectionStatusTallied
}

// AcceptsRoster reports whether the roster may still change.
func (s ElectionStatus) AcceptsRoster() bool {
	return s == ElectionStatusDraft || s == ElectionStatusVotingOpen
}

// ResultsAvailable reports whether tally and audit log can be read.
func (s ElectionStatus) ResultsAvailable() bool {
	return s == ElectionStatusVotingClosed || s == ElectionStatusTallied
}

// Election is the stored election record. MerkleRootHash is empty until the
// first roster import.
type Election struct {
	ID             uuid.UUID         `json:"id" cbor:"0,keyasint"`
	Name           string            `json:"name" cbor:"1,keyasint"`
	Status         ElectionStatus    `json:"status" cbor:"2,keyasint"`
	MerkleRootHash string            `json:"merkleRootHash" cbor:"3,keyasint"`
	RosterSize     int               `json:"rosterSize" cbor:"4,keyasint"`
	RosterVersion  uint64            `json:"rosterVersion" cbor:"5,keyasint"`
	CreatedAt      time.Time         `json:"createdAt" cbor:"6,keyasint"`
	StartTime      time.Time         `json:"startTime,omitempty" cbor:"7,keyasint,omitempty"`
	EndTime        time.Time         `json:"endTime,omitempty" cbor:"8,keyasint,omitempty"`
	Results        map[string]uint64 `json:"results,omitempty" cbor:"9,keyasint,omitempty"`
}

// HasRoot reports whether a roster has been imported for the election.
func (e *Election) HasRoot() bool {
	return e.MerkleRootHash != ""
}

// Candidate is a ballot option. Votes reference candidates by ID.
type Candidate struct {
	ID         uuid.UUID `json:"id" cbor:"0,keyasint"`
	ElectionID uuid.UUID `json:"electionId" cbor:"1,keyasint"`
	Name       string    `json:"name" cbor:"2,keyasint"`
}
