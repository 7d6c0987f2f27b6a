// Package census builds the eligibility tree of an election roster: the leaf
// commitment of every canonical voter and a sorted-pair SHA-256 Merkle tree
// over them.
package census

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/vocdoni/anonvote-node/types"
)

// HashLen is the size in bytes of leaves, nodes and roots.
const HashLen = sha256.Size

// IdentityCommitment returns the lowercase hex SHA-256 of a canonical
// identifier. The tree never sees plaintext identifiers.
func IdentityCommitment(id string) string {
	h := sha256.Sum256([]byte(id))
	return hex.EncodeToString(h[:])
}

// LeafHash returns SHA-256(identityCommitment || ":" || classTag).
func LeafHash(identityCommitment, classTag string) []byte {
	h := sha256.Sum256([]byte(identityCommitment + ":" + classTag))
	return h[:]
}

// VoterLeaf is a canonical voter reduced to its commitment form.
type VoterLeaf struct {
	IdentityCommitment string
	ClassTag           string
	Leaf               []byte
}

// VoterLeaves commits every voter and returns the leaves in tree order:
// sorted by identity commitment, then class tag. Records are sorted before
// hashing.
func VoterLeaves(voters []types.CanonicalVoter) []VoterLeaf {
	out := make([]VoterLeaf, len(voters))
	for i, v := range voters {
		out[i] = VoterLeaf{
			IdentityCommitment: IdentityCommitment(v.ID),
			ClassTag:           v.ClassTag,
		}
	}
	slices.SortFunc(out, func(a, b VoterLeaf) int {
		return cmp.Or(
			cmp.Compare(a.IdentityCommitment, b.IdentityCommitment),
			cmp.Compare(a.ClassTag, b.ClassTag),
		)
	})
	for i := range out {
		out[i].Leaf = LeafHash(out[i].IdentityCommitment, out[i].ClassTag)
	}
	return out
}
