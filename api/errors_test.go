package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/anonvote-node/types"
)

func TestBallotBoxErrorMapping(t *testing.T) {
	c := qt.New(t)

	for _, tc := range []struct {
		err    error
		status int
	}{
		{types.ErrInvalidPublicSignals, http.StatusBadRequest},
		{types.ErrElectionNotFound.With("election x"), http.StatusNotFound},
		{types.ErrDoubleVote, http.StatusConflict},
		{types.ErrInvalidProof, http.StatusBadRequest},
		{types.ErrStaleRoot.With("old root"), http.StatusBadRequest},
		{types.ErrVotingNotOpen, http.StatusConflict},
		{types.ErrResultsNotAvailable, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", types.ErrRosterLocked), http.StatusConflict},
		{&types.Error{Kind: types.KindState, Reason: "SOMETHING_NEW"}, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	} {
		apiErr := ballotBoxError(tc.err)
		c.Assert(apiErr.HTTPstatus, qt.Equals, tc.status, qt.Commentf("%v", tc.err))
		var te *types.Error
		if errors.As(tc.err, &te) {
			c.Assert(apiErr.Reason, qt.Equals, te.Reason)
			c.Assert(errors.Is(apiErr, te), qt.Equals, te.Message != "")
		} else {
			c.Assert(apiErr.Code, qt.Equals, ErrGenericInternalServerError.Code)
		}
	}
}

func TestErrorWrite(t *testing.T) {
	c := qt.New(t)
	rec := httptest.NewRecorder()
	ErrDoubleVote.With("nullifier 123").Write(rec)

	c.Assert(rec.Code, qt.Equals, http.StatusConflict)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	var body map[string]any
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	c.Assert(body["error"], qt.Equals, "DOUBLE_VOTE: nullifier 123")
	c.Assert(body["code"], qt.Equals, float64(ErrDoubleVote.Code))
	c.Assert(body["reason"], qt.Equals, "DOUBLE_VOTE")
}
