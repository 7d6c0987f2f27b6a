/*
Package storage provides the persistent storage layer of the voting node.

# Storage Organization

The storage uses a key-value database with prefixed namespaces:

## Elections
  - e/ : electionID → Election (status, merkle root, roster size and version, results)
  - c/ : electionID + candidateID → Candidate

## Roster
  - r/ : electionID + canonical voter id → RosterEntry (id, class tag, creation time).
    One row per id: importing a known id under another class is skipped.

## Votes
  - n/ : nullifier (32 bytes, big endian) → electionID. Global uniqueness marker.
  - v/ : electionID + nullifier → VoteRecord (proof, public signals, creation time)

Election IDs and candidate IDs are the 16 raw bytes of their UUIDs.

Every write that must stay consistent with another one (roster rows and the
election root, nullifier marker and vote record) is committed in a single
write transaction while holding the storage lock, so readers never observe a
root that does not match the stored roster, and a nullifier can be inserted
only once even on backends whose batches do not detect conflicts.
*/
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vocdoni/anonvote-node/db"
	"github.com/vocdoni/anonvote-node/db/prefixeddb"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrNotFound         = errors.New("not found")

	// Prefixes
	electionPrefix  = []byte("e/")
	candidatePrefix = []byte("c/")
	rosterPrefix    = []byte("r/")
	nullifierPrefix = []byte("n/")
	votePrefix      = []byte("v/")

	electionCacheSize = 1000
)

// Storage manages elections, rosters and votes.
type Storage struct {
	db         db.Database
	globalLock sync.RWMutex                        // Serializes every read-modify-write
	cache      *lru.Cache[string, *types.Election] // Election records by ID
}

// New creates a new Storage instance over database.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, *types.Election](electionCacheSize)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{
		db:    database,
		cache: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Errorw(err, "failed to close storage")
	}
}

// setArtifact encodes artifact and stores it under prefix+key in its own
// transaction.
func (s *Storage) setArtifact(prefix []byte, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves and decodes the artifact stored under prefix+key. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(reader db.Reader, prefix []byte, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(reader, prefix).Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// putArtifact encodes artifact and adds it to an open transaction.
func putArtifact(wTx db.WriteTx, prefix []byte, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, prefix).Set(key, data)
}

// iterateArtifacts decodes every artifact whose key starts with
// prefix+subprefix, in key order.
func iterateArtifacts[T any](reader db.Reader, prefix, subprefix []byte, fn func(key []byte, item *T)) error {
	var decodeErr error
	err := prefixeddb.NewPrefixedReader(reader, prefix).Iterate(subprefix, func(k, v []byte) bool {
		item := new(T)
		if decodeErr = DecodeArtifact(v, item); decodeErr != nil {
			decodeErr = fmt.Errorf("could not decode artifact %x: %w", k, decodeErr)
			return false
		}
		fn(k, item)
		return true
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func electionKey(id uuid.UUID) []byte {
	return id[:]
}

func electionScopedKey(electionID uuid.UUID, key []byte) []byte {
	out := make([]byte, 0, len(electionID)+len(key))
	out = append(out, electionID[:]...)
	return append(out, key...)
}
