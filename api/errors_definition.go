//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/anonvote-node/types"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap, DON'T fill it in: that code was used in the past
// for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedElectionID = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed election ID")}
	ErrMalformedParam      = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}

	// Ballot box rejections. Reason mirrors the rejection reason of the
	// ballot box so clients can switch on it.
	ErrElectionNotFound        = reasonError(40007, http.StatusNotFound, types.ErrElectionNotFound)
	ErrCandidateNotFound       = reasonError(40030, http.StatusNotFound, types.ErrCandidateNotFound)
	ErrCSVEmpty                = reasonError(40031, http.StatusBadRequest, types.ErrCSVEmpty)
	ErrCSVFormat               = reasonError(40032, http.StatusBadRequest, types.ErrCSVFormat)
	ErrCSVNoRows               = reasonError(40033, http.StatusBadRequest, types.ErrCSVNoRows)
	ErrInvalidCSVHeaders       = reasonError(40034, http.StatusBadRequest, types.ErrInvalidCSVHeaders)
	ErrCSVNoValidRows          = reasonError(40035, http.StatusBadRequest, types.ErrCSVNoValidRows)
	ErrEmptyProof              = reasonError(40036, http.StatusBadRequest, types.ErrEmptyProof)
	ErrMalformedProof          = reasonError(40037, http.StatusBadRequest, types.ErrMalformedProof)
	ErrInvalidVote             = reasonError(40038, http.StatusBadRequest, types.ErrInvalidVote)
	ErrInvalidCandidate        = reasonError(40039, http.StatusBadRequest, types.ErrInvalidCandidate)
	ErrInvalidPublicSignals    = reasonError(40040, http.StatusBadRequest, types.ErrInvalidPublicSignals)
	ErrInvalidIdentity         = reasonError(40041, http.StatusBadRequest, types.ErrInvalidIdentity)
	ErrSignalMismatch          = reasonError(40042, http.StatusBadRequest, types.ErrSignalMismatch)
	ErrUnknownCandidate        = reasonError(40043, http.StatusBadRequest, types.ErrUnknownCandidate)
	ErrInvalidElection         = reasonError(40044, http.StatusBadRequest, types.ErrInvalidElection)
	ErrDoubleVote              = reasonError(40045, http.StatusConflict, types.ErrDoubleVote)
	ErrInvalidProof            = reasonError(40046, http.StatusBadRequest, types.ErrInvalidProof)
	ErrStaleRoot               = reasonError(40047, http.StatusBadRequest, types.ErrStaleRoot)
	ErrResultsNotAvailable     = reasonError(40048, http.StatusForbidden, types.ErrResultsNotAvailable)
	ErrVotingNotOpen           = reasonError(40049, http.StatusConflict, types.ErrVotingNotOpen)
	ErrRosterLocked            = reasonError(40050, http.StatusConflict, types.ErrRosterLocked)
	ErrCandidatesLocked        = reasonError(40051, http.StatusConflict, types.ErrCandidatesLocked)
	ErrInvalidStatusTransition = reasonError(40052, http.StatusConflict, types.ErrInvalidStatusTransition)

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)

func reasonError(code, status int, sentinel *types.Error) Error {
	return Error{Code: code, HTTPstatus: status, Err: errors.New(sentinel.Reason), Reason: sentinel.Reason}
}

// reasonErrors indexes the ballot box rejections by reason.
var reasonErrors = func() map[string]Error {
	m := make(map[string]Error)
	for _, e := range []Error{
		ErrElectionNotFound, ErrCandidateNotFound,
		ErrCSVEmpty, ErrCSVFormat, ErrCSVNoRows, ErrInvalidCSVHeaders, ErrCSVNoValidRows,
		ErrEmptyProof, ErrMalformedProof, ErrInvalidVote, ErrInvalidCandidate,
		ErrInvalidPublicSignals, ErrInvalidIdentity, ErrSignalMismatch, ErrUnknownCandidate,
		ErrInvalidElection, ErrDoubleVote, ErrInvalidProof, ErrStaleRoot,
		ErrResultsNotAvailable, ErrVotingNotOpen, ErrRosterLocked, ErrCandidatesLocked,
		ErrInvalidStatusTransition,
	} {
		m[e.Reason] = e
	}
	return m
}()

// ballotBoxError maps an error returned by the ballot box to its API error.
// Typed rejections keep their reason and message; anything else is an
// internal error.
func ballotBoxError(err error) Error {
	var te *types.Error
	if !errors.As(err, &te) {
		return ErrGenericInternalServerError.WithErr(err)
	}
	apiErr, ok := reasonErrors[te.Reason]
	if !ok {
		apiErr = kindError(te)
	}
	if te.Message == "" && te.Err == nil {
		return apiErr
	}
	return Error{
		Err:        fmt.Errorf("%w", te),
		Code:       apiErr.Code,
		HTTPstatus: apiErr.HTTPstatus,
		Reason:     apiErr.Reason,
	}
}

// kindError builds an API error for a reason with no dedicated code, from
// its kind.
func kindError(te *types.Error) Error {
	status := http.StatusInternalServerError
	code := ErrGenericInternalServerError.Code
	switch te.Kind {
	case types.KindInput, types.KindIntegrity:
		status, code = http.StatusBadRequest, ErrMalformedParam.Code
	case types.KindNotFound:
		status, code = http.StatusNotFound, ErrResourceNotFound.Code
	case types.KindState:
		status, code = http.StatusConflict, ErrInvalidStatusTransition.Code
	}
	return Error{Code: code, HTTPstatus: status, Err: errors.New(te.Reason), Reason: te.Reason}
}
