package voteproof

import (
	"fmt"
	"math/big"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ConvertPublicInputs parses decimal public signals into BN254 scalar field
// elements. Values that are not canonical field elements are rejected.
func ConvertPublicInputs(publicSignals []string) ([]bn254fr.Element, error) {
	publicInputs := make([]bn254fr.Element, len(publicSignals))
	for i, s := range publicSignals {
		bi, ok := new(big.Int).SetString(s, 10)
		if !ok || bi.Sign() < 0 || bi.Cmp(bn254fr.Modulus()) >= 0 {
			return nil, fmt.Errorf("public input %d is not a field element", i)
		}
		publicInputs[i].SetBigInt(bi)
	}
	return publicInputs, nil
}

// ConvertProof converts a CircomProof into a Gnark-compatible Proof structure.
func ConvertProof(snarkProof *CircomProof) (*groth16_bn254.Proof, error) {
	if snarkProof == nil {
		return nil, fmt.Errorf("nil proof")
	}
	if snarkProof.Protocol != "" && snarkProof.Protocol != "groth16" {
		return nil, fmt.Errorf("unsupported protocol %q", snarkProof.Protocol)
	}
	ar, err := stringToG1(snarkProof.PiA)
	if err != nil {
		return nil, fmt.Errorf("failed to convert pi_a: %w", err)
	}
	krs, err := stringToG1(snarkProof.PiC)
	if err != nil {
		return nil, fmt.Errorf("failed to convert pi_c: %w", err)
	}
	bs, err := stringToG2(snarkProof.PiB)
	if err != nil {
		return nil, fmt.Errorf("failed to convert pi_b: %w", err)
	}
	return &groth16_bn254.Proof{Ar: *ar, Krs: *krs, Bs: *bs}, nil
}

// ConvertVerificationKey converts a CircomVerificationKey into a precomputed
// Gnark-compatible VerifyingKey.
func ConvertVerificationKey(snarkVk *CircomVerificationKey) (*groth16_bn254.VerifyingKey, error) {
	if snarkVk == nil {
		return nil, fmt.Errorf("nil verification key")
	}
	alpha, err := stringToG1(snarkVk.VkAlpha1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vk_alpha_1: %w", err)
	}
	beta, err := stringToG2(snarkVk.VkBeta2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vk_beta_2: %w", err)
	}
	gamma, err := stringToG2(snarkVk.VkGamma2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vk_gamma_2: %w", err)
	}
	delta, err := stringToG2(snarkVk.VkDelta2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vk_delta_2: %w", err)
	}
	k := make([]curve.G1Affine, len(snarkVk.IC))
	for i, ic := range snarkVk.IC {
		p, err := stringToG1(ic)
		if err != nil {
			return nil, fmt.Errorf("failed to convert IC[%d]: %w", i, err)
		}
		k[i] = *p
	}

	vk := &groth16_bn254.VerifyingKey{}
	vk.G1.Alpha = *alpha
	vk.G1.K = k
	vk.G2.Beta = *beta
	vk.G2.Gamma = *gamma
	vk.G2.Delta = *delta
	// Precompute the necessary values (e, gammaNeg, deltaNeg)
	if err := vk.Precompute(); err != nil {
		return nil, fmt.Errorf("failed to precompute verification key: %w", err)
	}
	return vk, nil
}

// stringToFp parses a decimal base field coordinate.
func stringToFp(s string) (fp.Element, error) {
	var e fp.Element
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok || bi.Sign() < 0 || bi.Cmp(fp.Modulus()) >= 0 {
		return e, fmt.Errorf("invalid coordinate %q", s)
	}
	e.SetBigInt(bi)
	return e, nil
}

// stringToG1 parses a snarkjs projective G1 point [x, y, "1"].
func stringToG1(h []string) (*curve.G1Affine, error) {
	if len(h) != 3 {
		return nil, fmt.Errorf("G1 point needs 3 coordinates, got %d", len(h))
	}
	if h[2] != "1" {
		return nil, fmt.Errorf("G1 point is not affine")
	}
	p := new(curve.G1Affine)
	var err error
	if p.X, err = stringToFp(h[0]); err != nil {
		return nil, err
	}
	if p.Y, err = stringToFp(h[1]); err != nil {
		return nil, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return nil, fmt.Errorf("G1 point is not in the curve subgroup")
	}
	return p, nil
}

// stringToG2 parses a snarkjs projective G2 point
// [[x.c0, x.c1], [y.c0, y.c1], ["1", "0"]].
func stringToG2(h [][]string) (*curve.G2Affine, error) {
	if len(h) != 3 {
		return nil, fmt.Errorf("G2 point needs 3 coordinates, got %d", len(h))
	}
	for _, c := range h {
		if len(c) != 2 {
			return nil, fmt.Errorf("G2 coordinate needs 2 components, got %d", len(c))
		}
	}
	if h[2][0] != "1" || h[2][1] != "0" {
		return nil, fmt.Errorf("G2 point is not affine")
	}
	p := new(curve.G2Affine)
	var err error
	if p.X.A0, err = stringToFp(h[0][0]); err != nil {
		return nil, err
	}
	if p.X.A1, err = stringToFp(h[0][1]); err != nil {
		return nil, err
	}
	if p.Y.A0, err = stringToFp(h[1][0]); err != nil {
		return nil, err
	}
	if p.Y.A1, err = stringToFp(h[1][1]); err != nil {
		return nil, err
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return nil, fmt.Errorf("G2 point is not in the curve subgroup")
	}
	return p, nil
}
