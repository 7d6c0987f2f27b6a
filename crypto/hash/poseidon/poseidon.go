// Package poseidon computes the Poseidon commitments bound by the vote
// circuit: the nullifier that makes a vote unique per voter and election,
// and the vote hash that ties a ballot choice to its election.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/anonvote-node/types"
)

// Hash returns the BN254 Poseidon hash of inputs. Every input must be a
// field element.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	for i, in := range inputs {
		if in == nil || in.Sign() < 0 || in.Cmp(types.FieldModulus) >= 0 {
			return nil, fmt.Errorf("input %d is not a field element", i)
		}
	}
	return poseidon.Hash(inputs)
}

// Nullifier returns Poseidon(secret, electionID). The same secret produces a
// different nullifier in every election, and the nullifier reveals nothing
// about the secret.
func Nullifier(secret, electionID *big.Int) (*big.Int, error) {
	return Hash(secret, electionID)
}

// VoteHash returns Poseidon(electionID, vote).
func VoteHash(electionID, vote *big.Int) (*big.Int, error) {
	return Hash(electionID, vote)
}
