// Package voteproof verifies the Groth16 vote proofs produced by voters with
// snarkjs over BN254. The circuit proves, without revealing the voter, that
// the voter's leaf belongs to the roster tree with the given root, that the
// nullifier was derived from the voter secret and the election, and that the
// vote hash binds the chosen candidate to the election. The public signals
// are, in order: [nullifierHash, voteHash, root, electionId, vote].
package voteproof

import (
	"fmt"

	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/vocdoni/anonvote-node/log"
	"github.com/vocdoni/anonvote-node/types"
)

// Verifier checks vote proofs against a fixed verification key. It is safe
// for concurrent use.
type Verifier struct {
	vk *groth16_bn254.VerifyingKey
}

// NewVerifier parses a snarkjs verification key. The key must be a BN254
// Groth16 key with exactly types.NumPublicSignals public inputs.
func NewVerifier(vkJSON []byte) (*Verifier, error) {
	circomVk, err := UnmarshalCircomVerificationKeyJSON(vkJSON)
	if err != nil {
		return nil, err
	}
	if circomVk.Protocol != "groth16" {
		return nil, fmt.Errorf("unsupported protocol %q", circomVk.Protocol)
	}
	if circomVk.NPublic != types.NumPublicSignals || len(circomVk.IC) != types.NumPublicSignals+1 {
		return nil, fmt.Errorf("verification key has %d public inputs and %d IC points, expected %d and %d",
			circomVk.NPublic, len(circomVk.IC), types.NumPublicSignals, types.NumPublicSignals+1)
	}
	vk, err := ConvertVerificationKey(circomVk)
	if err != nil {
		return nil, err
	}
	return &Verifier{vk: vk}, nil
}

// Verify reports whether proofJSON is a valid proof for signals. Malformed
// proofs, points off the curve and failed pairings all return false.
func (v *Verifier) Verify(proofJSON []byte, signals types.PublicSignals) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnw("vote proof verification panicked", "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	if err := v.verify(proofJSON, signals); err != nil {
		log.Debugw("vote proof rejected", "error", err.Error())
		return false
	}
	return true
}

func (v *Verifier) verify(proofJSON []byte, signals types.PublicSignals) error {
	circomProof, err := UnmarshalCircomProofJSON(proofJSON)
	if err != nil {
		return err
	}
	proof, err := ConvertProof(circomProof)
	if err != nil {
		return err
	}
	inputs, err := ConvertPublicInputs(signals.Slice())
	if err != nil {
		return err
	}
	if err := groth16_bn254.Verify(proof, v.vk, inputs); err != nil {
		return fmt.Errorf("proof verification failed: %w", err)
	}
	return nil
}
