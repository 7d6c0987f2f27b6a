// Package testutil provides fixtures shared by the package tests: storages,
// rosters and a Groth16 prover for the mock vote circuit.
package testutil

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/vocdoni/anonvote-node/census"
	"github.com/vocdoni/anonvote-node/circuits/voteproof"
	"github.com/vocdoni/anonvote-node/db/metadb"
	"github.com/vocdoni/anonvote-node/storage"
	"github.com/vocdoni/anonvote-node/types"
	"github.com/vocdoni/anonvote-node/util"
)

// ExampleRosterCSV is a two voter roster with a class that needs
// normalization.
const ExampleRosterCSV = "id,class\nA1345,csie_3a\nB2001,IM_2B\n"

// NewStorage returns a storage over a fresh test database.
func NewStorage(tb testing.TB) *storage.Storage {
	tb.Helper()
	return storage.New(metadb.NewTest(tb))
}

// Voter is a roster member together with the secret it proves with.
type Voter struct {
	ID     string
	Class  string
	Secret *big.Int
}

// IdentityCommitment returns the commitment the auth layer hands out for the
// voter.
func (v Voter) IdentityCommitment() string {
	return census.IdentityCommitment(v.ID)
}

// Voters returns n voters with deterministic identifiers spread over three
// classes and random secrets.
func Voters(n int) []Voter {
	out := make([]Voter, n)
	for i := range out {
		out[i] = Voter{
			ID:     fmt.Sprintf("S%05d", i),
			Class:  fmt.Sprintf("CLASS_%d", i%3),
			Secret: util.RandomFieldElement(),
		}
	}
	return out
}

// RosterCSV renders voters as roster CSV text.
func RosterCSV(voters []Voter) string {
	var sb strings.Builder
	sb.WriteString("id,class\n")
	for _, v := range voters {
		fmt.Fprintf(&sb, "%s,%s\n", v.ID, v.Class)
	}
	return sb.String()
}

var (
	proverOnce sync.Once
	prover     *voteproof.MockProver
	proverErr  error
)

// Prover returns a process wide mock vote prover. Circuit compilation and
// setup run once.
func Prover(tb testing.TB) *voteproof.MockProver {
	tb.Helper()
	proverOnce.Do(func() {
		prover, proverErr = voteproof.NewMockProver()
	})
	if proverErr != nil {
		tb.Fatalf("mock prover: %v", proverErr)
	}
	return prover
}

// Verifier returns a verifier for the proofs of Prover.
func Verifier(tb testing.TB) *voteproof.Verifier {
	tb.Helper()
	vkJSON, err := Prover(tb).VerificationKeyJSON()
	if err != nil {
		tb.Fatal(err)
	}
	v, err := voteproof.NewVerifier(vkJSON)
	if err != nil {
		tb.Fatal(err)
	}
	return v
}

// Vote is a proven ballot ready to submit.
type Vote struct {
	ElectionID uuid.UUID
	Vote       string
	Proof      []byte
	Signals    []string
}

// ProveVote proves that voter casts vote in the election with the given
// roster root.
func ProveVote(tb testing.TB, voter Voter, electionID, vote uuid.UUID, rootHex string) *Vote {
	tb.Helper()
	proof, signals, err := Prover(tb).Prove(voter.Secret, electionID, vote, rootHex)
	if err != nil {
		tb.Fatal(err)
	}
	return &Vote{
		ElectionID: electionID,
		Vote:       vote.String(),
		Proof:      proof,
		Signals:    signals.Slice(),
	}
}

// Signals copies raw signals into the typed tuple.
func Signals(raw []string) types.PublicSignals {
	var ps types.PublicSignals
	copy(ps[:], raw)
	return ps
}
