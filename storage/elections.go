package storage

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/types"
)

// Election retrieves an election from the storage. It returns ErrNotFound if
// the election does not exist. The returned value is a copy and can be
// modified freely.
func (s *Storage) Election(id uuid.UUID) (*types.Election, error) {
	if e, ok := s.cache.Get(id.String()); ok {
		return copyElection(e), nil
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	e, err := s.electionUnsafe(s.db, id)
	if err != nil {
		return nil, err
	}
	return copyElection(e), nil
}

// electionUnsafe reads an election through reader and refreshes the cache.
// The caller must hold globalLock, for reading at least.
func (s *Storage) electionUnsafe(reader db.Reader, id uuid.UUID) (*types.Election, error) {
	e := &types.Election{}
	if err := s.getArtifact(reader, electionPrefix, electionKey(id), e); err != nil {
		return nil, err
	}
	s.cache.Add(id.String(), e)
	return e, nil
}

// NewElection stores a new election. It returns ErrKeyAlreadyExists if an
// election with the same ID is already stored. Use UpdateElection to modify
// existing elections.
func (s *Storage) NewElection(election *types.Election) error {
	if election == nil {
		return fmt.Errorf("nil election")
	}
	if election.ID == uuid.Nil {
		return fmt.Errorf("nil election ID")
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	existing := &types.Election{}
	if err := s.getArtifact(s.db, electionPrefix, electionKey(election.ID), existing); err == nil {
		return fmt.Errorf("%w: election %s", ErrKeyAlreadyExists, election.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check election existence: %w", err)
	}

	if err := s.setArtifact(electionPrefix, electionKey(election.ID), election); err != nil {
		return err
	}
	s.cache.Remove(election.ID.String())
	return nil
}

// UpdateElection performs an atomic read-modify-write operation on an
// election. Every update function is applied in order to the current record;
// if any of them fails nothing is written.
func (s *Storage) UpdateElection(id uuid.UUID, updateFunc ...func(*types.Election) error) (*types.Election, error) {
	if len(updateFunc) == 0 {
		return nil, fmt.Errorf("no update function provided")
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	e := &types.Election{}
	if err := s.getArtifact(s.db, electionPrefix, electionKey(id), e); err != nil {
		return nil, err
	}
	for _, f := range updateFunc {
		if err := f(e); err != nil {
			return nil, err
		}
	}
	if err := s.setArtifact(electionPrefix, electionKey(id), e); err != nil {
		return nil, fmt.Errorf("failed to save updated election: %w", err)
	}
	s.cache.Add(id.String(), e)
	return copyElection(e), nil
}

// ListElections returns every stored election ordered by creation time, most
// recent first.
func (s *Storage) ListElections() ([]*types.Election, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var out []*types.Election
	if err := iterateArtifacts(s.db, electionPrefix, nil, func(_ []byte, e *types.Election) {
		out = append(out, e)
	}); err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b *types.Election) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func copyElection(e *types.Election) *types.Election {
	cp := *e
	if e.Results != nil {
		cp.Results = maps.Clone(e.Results)
	}
	return &cp
}
