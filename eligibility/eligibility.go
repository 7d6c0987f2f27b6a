// Package eligibility answers whether a voter belongs to an election roster
// and, if so, returns the Merkle proof the voter feeds into the vote circuit.
// Voters are identified only by their identity commitment.
package eligibility

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/census"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/roster"
	"github.com/vocdoni/anonvote-node/storage"
	"github.com/vocdoni/anonvote-node/types"
)

// RosterSource provides a consistent view of an election and its roster.
type RosterSource interface {
	RosterSnapshot(electionID uuid.UUID) (*types.Election, []types.CanonicalVoter, error)
}

// Verifier builds eligibility proofs over the stored rosters.
type Verifier struct {
	source RosterSource
}

// New returns a Verifier reading rosters from source.
func New(source RosterSource) *Verifier {
	return &Verifier{source: source}
}

// CheckEligibility looks up the leaf of (identityCommitment, class) in the
// tree of the current roster. Not being eligible is a result, not an error;
// errors are returned only for malformed input or a missing election.
func (v *Verifier) CheckEligibility(electionID uuid.UUID, identityCommitment, class string) (*types.EligibilityResult, error) {
	identity := strings.ToLower(types.TrimHex(strings.TrimSpace(identityCommitment)))
	if !types.IsHash32Hex(identity) {
		return nil, types.ErrInvalidIdentity.With("identity commitment must be 64 hex characters")
	}
	classTag := roster.NormalizeClass(class)
	if classTag == "" {
		return nil, types.ErrInvalidIdentity.With("empty class")
	}

	election, voters, err := v.source.RosterSnapshot(electionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrElectionNotFound.Withf("election %s", electionID)
	}
	if err != nil {
		return nil, err
	}

	res := &types.EligibilityResult{
		ElectionID:  electionID.String(),
		MerkleProof: []types.HexBytes{},
	}
	if len(voters) == 0 {
		res.Reason = types.ReasonNoVoters
		res.MerkleRootHash = election.MerkleRootHash
		return res, nil
	}

	tree, err := census.BuildFromVoters(voters)
	if err != nil {
		return nil, err
	}
	res.MerkleRootHash = tree.HexRoot()
	if res.MerkleRootHash != election.MerkleRootHash {
		log.Warnw("roster tree does not match the stored root",
			"electionId", electionID.String(),
			"stored", election.MerkleRootHash,
			"computed", res.MerkleRootHash)
	}

	leaf := census.LeafHash(identity, classTag)
	index := tree.IndexOf(leaf)
	if index < 0 {
		res.Reason = types.ReasonNotEligible
		return res, nil
	}
	siblings, err := tree.Proof(index)
	if err != nil {
		return nil, err
	}
	for _, s := range siblings {
		res.MerkleProof = append(res.MerkleProof, s)
	}
	res.Eligible = true
	res.LeafIndex = &index
	res.Leaf = leaf
	return res, nil
}

// VerifyProof checks a hex encoded inclusion proof against a hex root, the
// way a voter or auditor would before trusting a published proof.
func VerifyProof(leafHex string, proofHex []string, rootHex string) bool {
	leaf, err := types.HexStringToHexBytes(leafHex)
	if err != nil {
		return false
	}
	root, err := types.HexStringToHexBytes(rootHex)
	if err != nil {
		return false
	}
	proof := make([][]byte, len(proofHex))
	for i, p := range proofHex {
		if proof[i], err = types.HexStringToHexBytes(p); err != nil {
			return false
		}
	}
	return census.Verify(leaf, proof, root)
}
