// Package util holds small helpers shared by tests and commands.
package util

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/vocdoni/anonvote-node/types"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// RandomBigInt generates a random big integer in [min, max).
func RandomBigInt(min, max *big.Int) *big.Int {
	num, err := rand.Int(rand.Reader, new(big.Int).Sub(max, min))
	if err != nil {
		panic(err)
	}
	return new(big.Int).Add(num, min)
}

// RandomFieldElement returns a random non-zero BN254 scalar, suitable as a
// voter secret.
func RandomFieldElement() *big.Int {
	return RandomBigInt(big.NewInt(1), types.FieldModulus)
}
