package storage

import (
	"encoding/json"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/types"
)

func TestEncodeDecodeArtifact(t *testing.T) {
	c := qt.New(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	election := &types.Election{
		ID:             uuid.New(),
		Name:           "test",
		Status:         types.ElectionStatusVotingClosed,
		MerkleRootHash: "ab",
		RosterSize:     3,
		RosterVersion:  2,
		CreatedAt:      created,
		Results:        map[string]uint64{"x": 4},
	}

	c.Run("default encoding", func(c *qt.C) {
		encoded, err := EncodeArtifact(election)
		c.Assert(err, qt.IsNil)
		decoded := &types.Election{}
		c.Assert(DecodeArtifact(encoded, decoded), qt.IsNil)
		c.Assert(decoded.ID, qt.Equals, election.ID)
		c.Assert(decoded.Status, qt.Equals, election.Status)
		c.Assert(decoded.Results, qt.DeepEquals, election.Results)
		// nanoseconds survive, vote ordering depends on them
		c.Assert(decoded.CreatedAt.Equal(created), qt.IsTrue)
	})

	c.Run("deterministic", func(c *qt.C) {
		a, err := EncodeArtifact(election)
		c.Assert(err, qt.IsNil)
		b, err := EncodeArtifact(election)
		c.Assert(err, qt.IsNil)
		c.Assert(a, qt.DeepEquals, b)
	})

	c.Run("json encoding", func(c *qt.C) {
		vote := &types.VoteRecord{
			Nullifier:     "1",
			ElectionID:    election.ID,
			Proof:         json.RawMessage(`{"protocol":"groth16"}`),
			PublicSignals: types.PublicSignals{"1", "2", "3", "4", "5"},
			CreatedAt:     created,
		}
		encoded, err := EncodeArtifact(vote, ArtifactEncodingJSON)
		c.Assert(err, qt.IsNil)
		decoded := &types.VoteRecord{}
		c.Assert(DecodeArtifact(encoded, decoded, ArtifactEncodingJSON), qt.IsNil)
		c.Assert(string(decoded.Proof), qt.Equals, `{"protocol":"groth16"}`)
		c.Assert(decoded.PublicSignals, qt.Equals, vote.PublicSignals)
	})

	c.Run("unknown encoding", func(c *qt.C) {
		_, err := EncodeArtifact(election, ArtifactEncoding(9))
		c.Assert(err, qt.IsNotNil)
		c.Assert(DecodeArtifact(nil, election, ArtifactEncoding(9)), qt.IsNotNil)
	})
}
