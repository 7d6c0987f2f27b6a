// Package ballotbox is the vote ledger of the node. It drives the election
// life cycle, imports rosters, answers eligibility queries and accepts
// anonymous votes, guaranteeing that every nullifier is recorded at most
// once and that every accepted vote was proven against the current roster
// root.
package ballotbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/crypto/signatures/ethereum"
	"github.com/vocdoni/anonvote-node/eligibility"
	"github.com/vocdoni/anonvote-node/storage"
	"github.com/vocdoni/anonvote-node/types"
)

// ProofVerifier checks a vote proof against its public signals.
type ProofVerifier interface {
	Verify(proofJSON []byte, signals types.PublicSignals) bool
}

// BallotBox exposes the election, roster and vote operations over a storage.
type BallotBox struct {
	stg         *storage.Storage
	verifier    ProofVerifier
	signer      *ethereum.Signer
	eligibility *eligibility.Verifier
}

// New creates a BallotBox. signer may be nil, in which case receipts are
// returned unsigned.
func New(stg *storage.Storage, verifier ProofVerifier, signer *ethereum.Signer) *BallotBox {
	return &BallotBox{
		stg:         stg,
		verifier:    verifier,
		signer:      signer,
		eligibility: eligibility.New(stg),
	}
}

// Signer returns the receipt signer, or nil.
func (b *BallotBox) Signer() *ethereum.Signer {
	return b.signer
}

// CheckEligibility reports whether the voter with identityCommitment and
// class is in the roster of the election, with its Merkle proof.
func (b *BallotBox) CheckEligibility(ctx context.Context, electionID uuid.UUID, identityCommitment, class string) (*types.EligibilityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.eligibility.CheckEligibility(electionID, identityCommitment, class)
}

// election loads an election, mapping a missing record to
// ErrElectionNotFound.
func (b *BallotBox) election(electionID uuid.UUID) (*types.Election, error) {
	e, err := b.stg.Election(electionID)
	if err != nil {
		return nil, notFound(err, electionID)
	}
	return e, nil
}

func notFound(err error, electionID uuid.UUID) error {
	if errors.Is(err, storage.ErrNotFound) {
		return types.ErrElectionNotFound.Withf("election %s", electionID)
	}
	return err
}
