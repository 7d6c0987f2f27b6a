package voteproof

import (
	"fmt"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ExportProof converts a gnark BN254 Groth16 proof into the snarkjs format
// clients send to the node.
func ExportProof(proof groth16.Proof) (*CircomProof, error) {
	p, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("expected a BN254 proof, got %T", proof)
	}
	if len(p.Commitments) > 0 {
		return nil, fmt.Errorf("proofs with commitments have no snarkjs form")
	}
	return &CircomProof{
		PiA:      g1ToStrings(&p.Ar),
		PiB:      g2ToStrings(&p.Bs),
		PiC:      g1ToStrings(&p.Krs),
		Protocol: "groth16",
		Curve:    "bn128",
	}, nil
}

// ExportVerifyingKey converts a gnark BN254 Groth16 verifying key into the
// snarkjs verification key format.
func ExportVerifyingKey(vk groth16.VerifyingKey) (*CircomVerificationKey, error) {
	v, ok := vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("expected a BN254 verifying key, got %T", vk)
	}
	if len(v.PublicAndCommitmentCommitted) > 0 {
		return nil, fmt.Errorf("verifying keys with commitments have no snarkjs form")
	}
	ic := make([][]string, len(v.G1.K))
	for i := range v.G1.K {
		ic[i] = g1ToStrings(&v.G1.K[i])
	}
	return &CircomVerificationKey{
		Protocol: "groth16",
		Curve:    "bn128",
		NPublic:  len(v.G1.K) - 1,
		VkAlpha1: g1ToStrings(&v.G1.Alpha),
		VkBeta2:  g2ToStrings(&v.G2.Beta),
		VkGamma2: g2ToStrings(&v.G2.Gamma),
		VkDelta2: g2ToStrings(&v.G2.Delta),
		IC:       ic,
	}, nil
}

func fpToString(e *fp.Element) string {
	return e.BigInt(new(big.Int)).String()
}

func g1ToStrings(p *curve.G1Affine) []string {
	return []string{fpToString(&p.X), fpToString(&p.Y), "1"}
}

func g2ToStrings(p *curve.G2Affine) [][]string {
	return [][]string{
		{fpToString(&p.X.A0), fpToString(&p.X.A1)},
		{fpToString(&p.Y.A0), fpToString(&p.Y.A1)},
		{"1", "0"},
	}
}
