package storage

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/prefixeddb"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

// InsertResult is the outcome of an atomic vote insert.
type InsertResult int

const (
	// Inserted means the vote record was stored.
	Inserted InsertResult = iota
	// AlreadyExists means a vote with the same nullifier was already stored
	// and nothing was written.
	AlreadyExists
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

func voteKey(electionID uuid.UUID, nullifier []byte) []byte {
	return electionScopedKey(electionID, nullifier)
}

// HasNullifier reports whether a vote with the nullifier of signals has been
// recorded.
func (s *Storage) HasNullifier(signals types.PublicSignals) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(s.db, nullifierPrefix).Get(signals.NullifierKey())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check nullifier: %w", err)
}

// InsertVote stores vote if no vote with the same nullifier exists. The
// existence check and both writes (the global nullifier marker and the vote
// record) happen in one transaction under the storage lock, so concurrent
// inserts of the same nullifier produce exactly one record.
//
// check is called with the current election before writing and can veto the
// insert, typically to re-check the status and root against the vote.
func (s *Storage) InsertVote(vote *types.VoteRecord, check func(*types.Election) error) (InsertResult, error) {
	if vote == nil {
		return 0, fmt.Errorf("nil vote")
	}
	nullifier := vote.PublicSignals.NullifierKey()

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	election := &types.Election{}
	if err := s.getArtifact(wTx, electionPrefix, electionKey(vote.ElectionID), election); err != nil {
		return 0, err
	}
	if check != nil {
		if err := check(election); err != nil {
			return 0, err
		}
	}

	nTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifierPrefix)
	if _, err := nTx.Get(nullifier); err == nil {
		return AlreadyExists, nil
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return 0, fmt.Errorf("failed to check nullifier: %w", err)
	}
	if err := nTx.Set(nullifier, vote.ElectionID[:]); err != nil {
		return 0, fmt.Errorf("failed to set nullifier: %w", err)
	}
	if err := putArtifact(wTx, votePrefix, voteKey(vote.ElectionID, nullifier), vote); err != nil {
		return 0, fmt.Errorf("failed to store vote: %w", err)
	}

	if err := wTx.Commit(); err != nil {
		if !errors.Is(err, db.ErrConflict) {
			return 0, fmt.Errorf("failed to commit vote: %w", err)
		}
		// Another writer got there first; report what it left behind.
		if exists, herr := s.HasNullifier(vote.PublicSignals); herr == nil && exists {
			log.Debugw("vote insert lost a commit race", "nullifier", vote.Nullifier)
			return AlreadyExists, nil
		}
		return 0, fmt.Errorf("failed to commit vote: %w", err)
	}
	return Inserted, nil
}

// Vote returns the vote of an election with the given nullifier, or
// ErrNotFound.
func (s *Storage) Vote(electionID uuid.UUID, signals types.PublicSignals) (*types.VoteRecord, error) {
	v := &types.VoteRecord{}
	if err := s.getArtifact(s.db, votePrefix, voteKey(electionID, signals.NullifierKey()), v); err != nil {
		return nil, err
	}
	return v, nil
}

// Votes returns every vote recorded for an election, ordered by creation
// time with the nullifier as tie-break.
func (s *Storage) Votes(electionID uuid.UUID) ([]*types.VoteRecord, error) {
	var out []*types.VoteRecord
	if err := iterateArtifacts(s.db, votePrefix, electionID[:], func(_ []byte, v *types.VoteRecord) {
		out = append(out, v)
	}); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	slices.SortStableFunc(out, func(a, b *types.VoteRecord) int {
		return cmp.Or(
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.Nullifier, b.Nullifier),
		)
	})
	return out, nil
}

// CountVotes returns the number of votes recorded for an election.
func (s *Storage) CountVotes(electionID uuid.UUID) (int, error) {
	count := 0
	err := prefixeddb.NewPrefixedReader(s.db, votePrefix).Iterate(electionID[:], func(_, _ []byte) bool {
		count++
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}
