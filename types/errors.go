package types

import (
	"fmt"
)

// ErrorKind classifies a rejection so outer layers can decide how to surface
// it without matching on reasons one by one.
type ErrorKind uint8

const (
	KindInput ErrorKind = iota + 1
	KindIntegrity
	KindState
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindIntegrity:
		return "integrity"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a typed rejection. Two errors match with errors.Is when they share
// the same Reason, so a sentinel decorated with With or WithErr still matches
// the original sentinel.
type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is implements the errors.Is interface.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With returns a copy of the error with the message replaced.
func (e *Error) With(msg string) *Error {
	return &Error{Kind: e.Kind, Reason: e.Reason, Message: msg, Err: e.Err}
}

// Withf returns a copy of the error with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	return e.With(fmt.Sprintf(format, args...))
}

// WithErr returns a copy of the error wrapping err.
func (e *Error) WithErr(err error) *Error {
	return &Error{Kind: e.Kind, Reason: e.Reason, Message: e.Message, Err: err}
}

// IsIntegrity reports whether err is a security relevant rejection.
func IsIntegrity(err error) bool {
	return kindOf(err) == KindIntegrity
}

// KindOf returns the kind of a typed error, or zero if err is not one.
func KindOf(err error) ErrorKind {
	return kindOf(err)
}

func kindOf(err error) ErrorKind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = u.Unwrap()
	}
	return 0
}

var (
	ErrElectionNotFound  = &Error{Kind: KindNotFound, Reason: "ELECTION_NOT_FOUND"}
	ErrCandidateNotFound = &Error{Kind: KindNotFound, Reason: "CANDIDATE_NOT_FOUND"}

	ErrCSVEmpty             = &Error{Kind: KindInput, Reason: "CSV_FILE_EMPTY"}
	ErrCSVFormat            = &Error{Kind: KindInput, Reason: "INVALID_CSV_FORMAT"}
	ErrCSVNoRows            = &Error{Kind: KindInput, Reason: "CSV_NO_ROWS"}
	ErrInvalidCSVHeaders    = &Error{Kind: KindInput, Reason: "INVALID_CSV_HEADERS"}
	ErrCSVNoValidRows       = &Error{Kind: KindInput, Reason: "CSV_NO_VALID_ROWS"}
	ErrEmptyProof           = &Error{Kind: KindInput, Reason: "EMPTY_PROOF"}
	ErrMalformedProof       = &Error{Kind: KindInput, Reason: "MALFORMED_PROOF"}
	ErrInvalidVote          = &Error{Kind: KindInput, Reason: "INVALID_VOTE"}
	ErrInvalidCandidate     = &Error{Kind: KindInput, Reason: "INVALID_CANDIDATE"}
	ErrInvalidPublicSignals = &Error{Kind: KindInput, Reason: "INVALID_PUBLIC_SIGNALS"}
	ErrInvalidIdentity      = &Error{Kind: KindInput, Reason: "INVALID_IDENTITY"}
	ErrSignalMismatch       = &Error{Kind: KindInput, Reason: "SIGNAL_MISMATCH"}
	ErrUnknownCandidate     = &Error{Kind: KindInput, Reason: "UNKNOWN_CANDIDATE"}
	ErrInvalidElection      = &Error{Kind: KindInput, Reason: "INVALID_ELECTION"}

	ErrDoubleVote   = &Error{Kind: KindIntegrity, Reason: "DOUBLE_VOTE"}
	ErrInvalidProof = &Error{Kind: KindIntegrity, Reason: "INVALID_PROOF"}
	ErrStaleRoot    = &Error{Kind: KindIntegrity, Reason: "STALE_OR_INVALID_ROOT"}

	ErrResultsNotAvailable     = &Error{Kind: KindState, Reason: "RESULTS_NOT_AVAILABLE"}
	ErrVotingNotOpen           = &Error{Kind: KindState, Reason: "VOTING_NOT_OPEN"}
	ErrRosterLocked            = &Error{Kind: KindState, Reason: "ROSTER_LOCKED"}
	ErrCandidatesLocked        = &Error{Kind: KindState, Reason: "CANDIDATES_LOCKED"}
	ErrInvalidStatusTransition = &Error{Kind: KindState, Reason: "INVALID_STATUS_TRANSITION"}
)
