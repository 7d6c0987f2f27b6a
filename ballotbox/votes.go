package ballotbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/circuits/voteproof"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/storage"
	"github.com/vocdoni/anonvote-node/types"
)

// SubmitVote validates and records an anonymous vote. The checks run in a
// fixed order: election existence, voting status, request shape, signal
// consistency with the request, nullifier reuse, proof validity and root
// binding. The nullifier is finally inserted atomically, which is what
// guarantees uniqueness under concurrent submissions; the earlier nullifier
// check only avoids verifying proofs that would be rejected anyway.
func (b *BallotBox) SubmitVote(ctx context.Context, electionID uuid.UUID, vote string, proof json.RawMessage, signals []string) (*types.VoteRecord, *types.VoteReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	startTime := time.Now()

	election, err := b.election(electionID)
	if err != nil {
		return nil, nil, err
	}
	if election.Status != types.ElectionStatusVotingOpen {
		return nil, nil, types.ErrVotingNotOpen.Withf("election is %s", election.Status)
	}

	// Shape
	if trimmed := bytes.TrimSpace(proof); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, types.ErrEmptyProof
	}
	if _, err := voteproof.ParseCircomProofShape(proof); err != nil {
		return nil, nil, types.ErrMalformedProof.WithErr(err)
	}
	ps, err := types.ParsePublicSignals(signals)
	if err != nil {
		return nil, nil, err
	}
	voteID, err := uuid.Parse(vote)
	if err != nil {
		return nil, nil, types.ErrInvalidVote.Withf("vote %q is not a UUID", vote)
	}

	// The proof must speak about this election and this vote
	if ps.ElectionID() != types.UUIDToField(electionID).String() {
		return nil, nil, types.ErrSignalMismatch.With("election signal does not match the election")
	}
	if ps.Vote() != types.UUIDToField(voteID).String() {
		return nil, nil, types.ErrSignalMismatch.With("vote signal does not match the vote")
	}
	candidates, err := b.stg.Candidates(electionID)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) > 0 && !hasCandidate(candidates, voteID) {
		return nil, nil, types.ErrUnknownCandidate.Withf("vote %s", voteID)
	}

	used, err := b.stg.HasNullifier(ps)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, nil, b.reject(types.ErrDoubleVote, electionID, ps)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if !b.verifier.Verify(proof, ps) {
		return nil, nil, b.reject(types.ErrInvalidProof, electionID, ps)
	}
	if err := checkRoot(election, ps); err != nil {
		return nil, nil, b.reject(err, electionID, ps)
	}

	record := &types.VoteRecord{
		Nullifier:     ps.Nullifier(),
		ElectionID:    electionID,
		Proof:         proof,
		PublicSignals: ps,
		CreatedAt:     time.Now(),
	}
	// Status and roster may have changed while the proof was verified.
	res, err := b.stg.InsertVote(record, func(e *types.Election) error {
		if e.Status != types.ElectionStatusVotingOpen {
			return types.ErrVotingNotOpen.Withf("election is %s", e.Status)
		}
		return checkRoot(e, ps)
	})
	if err != nil {
		if types.IsIntegrity(err) {
			return nil, nil, b.reject(err, electionID, ps)
		}
		return nil, nil, notFound(err, electionID)
	}
	if res == storage.AlreadyExists {
		return nil, nil, b.reject(types.ErrDoubleVote, electionID, ps)
	}

	receipt := &types.VoteReceipt{
		ElectionID: electionID,
		Nullifier:  record.Nullifier,
		VoteHash:   ps.VoteHash(),
		Root:       election.MerkleRootHash,
		CreatedAt:  record.CreatedAt,
	}
	if b.signer != nil {
		if err := b.signer.SignReceipt(receipt); err != nil {
			// the vote is stored, an unsigned receipt is still useful
			log.Warnw("could not sign vote receipt", "electionId", electionID.String(), "error", err.Error())
		}
	}
	log.Timed("vote accepted", startTime, "electionId", electionID.String(), "nullifier", record.Nullifier)
	return record, receipt, nil
}

// reject logs an integrity failure and returns it.
func (b *BallotBox) reject(err error, electionID uuid.UUID, ps types.PublicSignals) error {
	log.Securityw("vote rejected",
		"reason", err.Error(),
		"electionId", electionID.String(),
		"nullifier", ps.Nullifier(),
		"root", ps.Root())
	return err
}

// checkRoot compares the root signal with the election root as field
// elements: the 32 byte SHA-256 root is reduced modulo the BN254 scalar
// field order, as the circuit does.
func checkRoot(e *types.Election, ps types.PublicSignals) error {
	if !e.HasRoot() {
		return types.ErrStaleRoot.With("election has no roster")
	}
	root, err := types.HexToFieldElement(e.MerkleRootHash)
	if err != nil {
		return fmt.Errorf("stored root is not valid hex: %w", err)
	}
	if root.String() != ps.Root() {
		return types.ErrStaleRoot.With("root signal does not match the current roster")
	}
	return nil
}

func hasCandidate(candidates []*types.Candidate, id uuid.UUID) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Tally counts the votes of a closed election per candidate. Registered
// candidates without votes are reported with zero.
func (b *BallotBox) Tally(ctx context.Context, electionID uuid.UUID) (map[string]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	election, err := b.election(electionID)
	if err != nil {
		return nil, err
	}
	if !election.Status.ResultsAvailable() {
		return nil, types.ErrResultsNotAvailable.Withf("election is %s", election.Status)
	}
	return b.count(electionID)
}

func (b *BallotBox) count(electionID uuid.UUID) (map[string]uint64, error) {
	candidates, err := b.stg.Candidates(electionID)
	if err != nil {
		return nil, err
	}
	results := make(map[string]uint64, len(candidates))
	for _, c := range candidates {
		results[c.ID.String()] = 0
	}
	votes, err := b.stg.Votes(electionID)
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		id, err := types.FieldStringToUUID(v.PublicSignals.Vote())
		if err != nil {
			return nil, fmt.Errorf("stored vote %s has an invalid vote signal: %w", v.Nullifier, err)
		}
		results[id.String()]++
	}
	return results, nil
}

// AuditLog returns every accepted vote of a closed election ordered by
// acceptance time, so anyone can re-verify the proofs and recount.
func (b *BallotBox) AuditLog(ctx context.Context, electionID uuid.UUID) ([]types.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	election, err := b.election(electionID)
	if err != nil {
		return nil, err
	}
	if !election.Status.ResultsAvailable() {
		return nil, types.ErrResultsNotAvailable.Withf("election is %s", election.Status)
	}
	votes, err := b.stg.Votes(electionID)
	if err != nil {
		return nil, err
	}
	entries := make([]types.AuditEntry, len(votes))
	for i, v := range votes {
		entries[i] = types.AuditEntry{
			Nullifier:     v.Nullifier,
			Proof:         v.Proof,
			PublicSignals: v.PublicSignals,
			CreatedAt:     v.CreatedAt,
		}
	}
	return entries, nil
}

// FinalizeTally counts the votes of a closed election and moves it to
// TALLIED with the results stored on the election.
func (b *BallotBox) FinalizeTally(ctx context.Context, electionID uuid.UUID) (*types.Election, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	election, err := b.election(electionID)
	if err != nil {
		return nil, err
	}
	if !election.Status.CanTransitionTo(types.ElectionStatusTallied) {
		return nil, types.ErrInvalidStatusTransition.Withf("%s -> %s", election.Status, types.ElectionStatusTallied)
	}
	// No vote can be inserted once the election is closed, so the count is
	// final.
	results, err := b.count(electionID)
	if err != nil {
		return nil, err
	}
	e, err := b.stg.UpdateElection(electionID, storage.ElectionUpdateCallbackFinalization(results))
	if err != nil {
		return nil, notFound(err, electionID)
	}
	log.Infow("election tallied", "electionId", electionID.String(), "options", len(results))
	return e, nil
}
