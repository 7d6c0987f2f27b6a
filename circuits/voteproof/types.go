package voteproof

import (
	"encoding/json"
	"fmt"
)

// CircomProof represents the proof structure output by SnarkJS.
type CircomProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve,omitempty"`
}

// CircomVerificationKey represents the verification key structure output by SnarkJS.
type CircomVerificationKey struct {
	Protocol      string       `json:"protocol"`
	Curve         string       `json:"curve"`
	NPublic       int          `json:"nPublic"`
	VkAlpha1      []string     `json:"vk_alpha_1"`
	VkBeta2       [][]string   `json:"vk_beta_2"`
	VkGamma2      [][]string   `json:"vk_gamma_2"`
	VkDelta2      [][]string   `json:"vk_delta_2"`
	IC            [][]string   `json:"IC"`
	VkAlphabeta12 [][][]string `json:"vk_alphabeta_12,omitempty"` // Not used in verification
}

// UnmarshalCircomProofJSON parses the JSON-encoded proof data into a CircomProof struct.
func UnmarshalCircomProofJSON(data []byte) (*CircomProof, error) {
	var proof CircomProof
	if err := json.Unmarshal(data, &proof); err != nil {
		return nil, fmt.Errorf("failed to parse proof JSON: %w", err)
	}
	return &proof, nil
}

// ParseCircomProofShape parses a snarkjs proof and checks its layout: pi_a
// and pi_c hold three coordinates and pi_b three pairs. It does not check
// that the points are on the curve.
func ParseCircomProofShape(data []byte) (*CircomProof, error) {
	proof, err := UnmarshalCircomProofJSON(data)
	if err != nil {
		return nil, err
	}
	if len(proof.PiA) != 3 {
		return nil, fmt.Errorf("pi_a needs 3 coordinates, got %d", len(proof.PiA))
	}
	if len(proof.PiC) != 3 {
		return nil, fmt.Errorf("pi_c needs 3 coordinates, got %d", len(proof.PiC))
	}
	if len(proof.PiB) != 3 {
		return nil, fmt.Errorf("pi_b needs 3 coordinates, got %d", len(proof.PiB))
	}
	for i, pair := range proof.PiB {
		if len(pair) != 2 {
			return nil, fmt.Errorf("pi_b[%d] needs 2 components, got %d", i, len(pair))
		}
	}
	return proof, nil
}

// UnmarshalCircomVerificationKeyJSON parses the JSON-encoded verification key
// data into a CircomVerificationKey struct.
func UnmarshalCircomVerificationKeyJSON(data []byte) (*CircomVerificationKey, error) {
	var vk CircomVerificationKey
	if err := json.Unmarshal(data, &vk); err != nil {
		return nil, fmt.Errorf("failed to parse verification key JSON: %w", err)
	}
	return &vk, nil
}

// MarshalCircomProofJSON marshals the given CircomProof into JSON.
func MarshalCircomProofJSON(proof *CircomProof) ([]byte, error) {
	return json.Marshal(proof)
}

// MarshalCircomVerificationKeyJSON marshals the given CircomVerificationKey into pretty‑printed JSON.
func MarshalCircomVerificationKeyJSON(vk *CircomVerificationKey) ([]byte, error) {
	return json.MarshalIndent(vk, "", "  ")
}
