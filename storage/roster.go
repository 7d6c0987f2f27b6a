package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/census"
	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/prefixeddb"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

// RosterImport is the outcome of a roster import at the storage level.
// AlreadyStored counts voters whose id was already in the roster, whatever
// their class.
type RosterImport struct {
	Imported      int
	AlreadyStored int
	Election      *types.Election
}

// rosterKey keys a roster row by voter id only, so an identity holds a single
// leaf no matter which class it is imported under.
func rosterKey(electionID uuid.UUID, v types.CanonicalVoter) []byte {
	return electionScopedKey(electionID, []byte(v.ID))
}

// ImportRoster inserts voters into the roster of an election, skipping the
// ones already stored, then rebuilds the tree over the whole stored roster and
// records its root, size and version on the election. Everything is committed
// in a single transaction while holding the storage lock, so the stored root
// always matches the stored roster.
//
// check is called with the current election before anything is written; an
// error returned by it aborts the import.
func (s *Storage) ImportRoster(electionID uuid.UUID, voters []types.CanonicalVoter, check func(*types.Election) error) (*RosterImport, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	election := &types.Election{}
	if err := s.getArtifact(wTx, electionPrefix, electionKey(electionID), election); err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(election); err != nil {
			return nil, err
		}
	}

	res := &RosterImport{}
	now := time.Now()
	rTx := prefixeddb.NewPrefixedWriteTx(wTx, rosterPrefix)
	for _, v := range voters {
		key := rosterKey(electionID, v)
		if _, err := rTx.Get(key); err == nil {
			res.AlreadyStored++
			continue
		} else if !errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("failed to check roster entry: %w", err)
		}
		if err := putArtifact(wTx, rosterPrefix, key, &types.RosterEntry{CanonicalVoter: v, CreatedAt: now}); err != nil {
			return nil, fmt.Errorf("failed to store roster entry: %w", err)
		}
		res.Imported++
	}

	roster, err := rosterFrom(wTx, electionID)
	if err != nil {
		return nil, err
	}
	if len(roster) > 0 {
		tree, err := census.BuildFromVoters(roster)
		if err != nil {
			return nil, fmt.Errorf("failed to build roster tree: %w", err)
		}
		root := tree.HexRoot()
		if root != election.MerkleRootHash {
			election.MerkleRootHash = root
			election.RosterVersion++
		}
		election.RosterSize = tree.Size()
	}
	if err := putArtifact(wTx, electionPrefix, electionKey(electionID), election); err != nil {
		return nil, fmt.Errorf("failed to store election: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit roster import: %w", err)
	}
	s.cache.Remove(electionID.String())

	log.Debugw("roster imported",
		"electionId", electionID.String(),
		"imported", res.Imported,
		"alreadyStored", res.AlreadyStored,
		"size", election.RosterSize,
		"root", election.MerkleRootHash)
	res.Election = copyElection(election)
	return res, nil
}

// Roster returns a point-in-time snapshot of the canonical voters of an
// election.
func (s *Storage) Roster(electionID uuid.UUID) ([]types.CanonicalVoter, error) {
	return rosterFrom(s.db, electionID)
}

// RosterSnapshot returns the election record and its roster read together
// under the storage read lock, so the roster is the one the stored root was
// computed from. Snapshots do not block each other.
func (s *Storage) RosterSnapshot(electionID uuid.UUID) (*types.Election, []types.CanonicalVoter, error) {
	s.globalLock.RLock()
	defer s.globalLock.RUnlock()

	election, err := s.electionUnsafe(s.db, electionID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := rosterFrom(s.db, electionID)
	if err != nil {
		return nil, nil, err
	}
	return copyElection(election), roster, nil
}

func rosterFrom(reader db.Reader, electionID uuid.UUID) ([]types.CanonicalVoter, error) {
	var out []types.CanonicalVoter
	if err := iterateArtifacts(reader, rosterPrefix, electionID[:], func(_ []byte, e *types.RosterEntry) {
		out = append(out, e.CanonicalVoter)
	}); err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return out, nil
}
