package ballotbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/roster"
	"github.com/vocdoni/anonvote-node/storage"
	"github.com/vocdoni/anonvote-node/types"
)

// CreateElection stores a new election in DRAFT status.
func (b *BallotBox) CreateElection(ctx context.Context, name string) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidElection.With("election name is empty")
	}
	e := &types.Election{
		ID:        uuid.New(),
		Name:      name,
		Status:    types.ElectionStatusDraft,
		CreatedAt: time.Now(),
	}
	if err := b.stg.NewElection(e); err != nil {
		return nil, err
	}
	log.Infow("election created", "electionId", e.ID.String(), "name", e.Name)
	return e, nil
}

// Election returns an election by ID.
func (b *BallotBox) Election(ctx context.Context, electionID uuid.UUID) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.election(electionID)
}

// Elections returns every election, most recent first.
func (b *BallotBox) Elections(ctx context.Context) ([]*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.stg.ListElections()
}

// SetStatus moves an election one step forward in its life cycle.
func (b *BallotBox) SetStatus(ctx context.Context, electionID uuid.UUID, status types.ElectionStatus) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if status == types.ElectionStatusTallied {
		// results must be computed while moving to TALLIED
		return b.FinalizeTally(ctx, electionID)
	}
	e, err := b.stg.UpdateElection(electionID, storage.ElectionUpdateCallbackSetStatus(status))
	if err != nil {
		return nil, notFound(err, electionID)
	}
	log.Infow("election status changed", "electionId", electionID.String(), "status", e.Status.String())
	return e, nil
}

// AddCandidate registers a ballot option. Candidates can only be added while
// the election is a draft.
func (b *BallotBox) AddCandidate(ctx context.Context, electionID uuid.UUID, name string) (*types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, types.ErrInvalidCandidate.With("candidate name is empty")
	}
	c := &types.Candidate{ID: uuid.New(), ElectionID: electionID, Name: name}
	err := b.stg.AddCandidate(c, func(e *types.Election) error {
		if e.Status != types.ElectionStatusDraft {
			return types.ErrCandidatesLocked.Withf("election is %s", e.Status)
		}
		return nil
	})
	if err != nil {
		return nil, notFound(err, electionID)
	}
	return c, nil
}

// Candidates returns the candidates of an election.
func (b *BallotBox) Candidates(ctx context.Context, electionID uuid.UUID) ([]*types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := b.election(electionID); err != nil {
		return nil, err
	}
	return b.stg.Candidates(electionID)
}

// ImportRoster parses a roster CSV and adds its voters to the election,
// skipping voters already present. The roster tree is rebuilt from the whole
// stored roster and its root recorded on the election, so importing the same
// file twice leaves the roster and root unchanged.
func (b *BallotBox) ImportRoster(ctx context.Context, electionID uuid.UUID, csvText string) (*types.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := b.election(electionID)
	if err != nil {
		return nil, err
	}
	if !e.Status.AcceptsRoster() {
		return nil, types.ErrRosterLocked.Withf("election is %s", e.Status)
	}
	parsed, err := roster.Parse(csvText)
	if err != nil {
		return nil, err
	}
	res, err := b.stg.ImportRoster(electionID, parsed.Voters, func(e *types.Election) error {
		if !e.Status.AcceptsRoster() {
			return types.ErrRosterLocked.Withf("election is %s", e.Status)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(err, electionID)
		}
		return nil, err
	}
	log.Infow("roster imported",
		"electionId", electionID.String(),
		"imported", res.Imported,
		"duplicates", parsed.Duplicates+res.AlreadyStored,
		"invalid", parsed.Skipped,
		"root", res.Election.MerkleRootHash)
	return &types.ImportResult{
		Imported:          res.Imported,
		DuplicatesSkipped: parsed.Duplicates + res.AlreadyStored,
		InvalidSkipped:    parsed.Skipped,
		MerkleRootHash:    res.Election.MerkleRootHash,
		RosterSize:        res.Election.RosterSize,
	}, nil
}
