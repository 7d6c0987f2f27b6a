package voteproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/anonvote-node/crypto/hash/poseidon"
	"github.com/vocdoni/anonvote-node/types"
	gposeidon "github.com/vocdoni/gnark-crypto-primitives/hash/native/bn254/poseidon"
)

// MockVoteCircuit is a gnark circuit with the same public interface as the
// voter circuit. It enforces the nullifier and vote hash relations; roster
// membership is not proven, the root is only bound to the proof through the
// RootBinding witness. It is used to produce real proofs for tests and local
// deployments.
type MockVoteCircuit struct {
	NullifierHash frontend.Variable `gnark:",public"`
	VoteHash      frontend.Variable `gnark:",public"`
	Root          frontend.Variable `gnark:",public"`
	ElectionID    frontend.Variable `gnark:",public"`
	Vote          frontend.Variable `gnark:",public"`

	Secret      frontend.Variable
	RootBinding frontend.Variable
}

// Define implements frontend.Circuit.
func (c *MockVoteCircuit) Define(api frontend.API) error {
	nullifier, err := gposeidon.MultiHash(api, c.Secret, c.ElectionID)
	if err != nil {
		return fmt.Errorf("nullifier hash: %w", err)
	}
	api.AssertIsEqual(c.NullifierHash, nullifier)

	voteHash, err := gposeidon.MultiHash(api, c.ElectionID, c.Vote)
	if err != nil {
		return fmt.Errorf("vote hash: %w", err)
	}
	api.AssertIsEqual(c.VoteHash, voteHash)

	api.AssertIsEqual(c.RootBinding, api.Mul(c.Root, c.Secret))
	return nil
}

// MockProver compiles MockVoteCircuit and runs a fresh Groth16 setup, so it
// can emit proofs in snarkjs format together with the matching verification
// key.
type MockProver struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewMockProver compiles the mock circuit and generates its keys.
func NewMockProver() (*MockProver, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &MockVoteCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile mock vote circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("setup mock vote circuit: %w", err)
	}
	return &MockProver{ccs: ccs, pk: pk, vk: vk}, nil
}

// VerificationKeyJSON returns the verification key in snarkjs format.
func (p *MockProver) VerificationKeyJSON() ([]byte, error) {
	vk, err := ExportVerifyingKey(p.vk)
	if err != nil {
		return nil, err
	}
	return MarshalCircomVerificationKeyJSON(vk)
}

// Prove builds the witness of a vote and proves it. The root is given as the
// hex roster root and reduced into the field the same way the node does.
func (p *MockProver) Prove(secret *big.Int, electionID, vote [16]byte, rootHex string) ([]byte, types.PublicSignals, error) {
	var signals types.PublicSignals
	eid := new(big.Int).SetBytes(electionID[:])
	v := new(big.Int).SetBytes(vote[:])
	root, err := types.HexToFieldElement(rootHex)
	if err != nil {
		return nil, signals, fmt.Errorf("invalid root: %w", err)
	}
	nullifier, err := poseidon.Nullifier(secret, eid)
	if err != nil {
		return nil, signals, err
	}
	voteHash, err := poseidon.VoteHash(eid, v)
	if err != nil {
		return nil, signals, err
	}
	binding := new(big.Int).Mul(root, secret)
	binding.Mod(binding, types.FieldModulus)

	assignment := &MockVoteCircuit{
		NullifierHash: nullifier,
		VoteHash:      voteHash,
		Root:          root,
		ElectionID:    eid,
		Vote:          v,
		Secret:        secret,
		RootBinding:   binding,
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, signals, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, signals, fmt.Errorf("prove vote: %w", err)
	}
	circomProof, err := ExportProof(proof)
	if err != nil {
		return nil, signals, err
	}
	proofJSON, err := MarshalCircomProofJSON(circomProof)
	if err != nil {
		return nil, signals, err
	}
	signals = types.PublicSignals{
		nullifier.String(),
		voteHash.String(),
		root.String(),
		eid.String(),
		v.String(),
	}
	return proofJSON, signals, nil
}
