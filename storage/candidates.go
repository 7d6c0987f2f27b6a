package storage

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/types"
)

// AddCandidate stores a new candidate for its election. check is called with
// the current election under the storage lock and can veto the insert.
func (s *Storage) AddCandidate(candidate *types.Candidate, check func(*types.Election) error) error {
	if candidate == nil {
		return fmt.Errorf("nil candidate")
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	election := &types.Election{}
	if err := s.getArtifact(wTx, electionPrefix, electionKey(candidate.ElectionID), election); err != nil {
		return err
	}
	if check != nil {
		if err := check(election); err != nil {
			return err
		}
	}
	key := electionScopedKey(candidate.ElectionID, candidate.ID[:])
	existing := &types.Candidate{}
	if err := s.getArtifact(wTx, candidatePrefix, key, existing); err == nil {
		return fmt.Errorf("%w: candidate %s", ErrKeyAlreadyExists, candidate.ID)
	}
	if err := putArtifact(wTx, candidatePrefix, key, candidate); err != nil {
		return err
	}
	return wTx.Commit()
}

// Candidates returns the candidates of an election sorted by name.
func (s *Storage) Candidates(electionID uuid.UUID) ([]*types.Candidate, error) {
	var out []*types.Candidate
	if err := iterateArtifacts(s.db, candidatePrefix, electionID[:], func(_ []byte, c *types.Candidate) {
		out = append(out, c)
	}); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	sortCandidates(out)
	return out, nil
}

func sortCandidates(cs []*types.Candidate) {
	slices.SortFunc(cs, func(a, b *types.Candidate) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			strings.Compare(a.ID.String(), b.ID.String()),
		)
	})
}
