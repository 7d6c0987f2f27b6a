package types

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/google/uuid"
)

// FieldModulus is the BN254 scalar field order. Every public signal of the
// vote circuit is an element of this field.
var FieldModulus = ecc.BN254.ScalarField()

// ParseFieldElement parses a decimal string into a field element. Values
// outside [0, FieldModulus) and non canonical forms (signs, leading zeros)
// are rejected.
func ParseFieldElement(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty field element")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("field element %q is not a decimal string", s)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return nil, fmt.Errorf("field element %q has leading zeros", s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field element %q is not a decimal string", s)
	}
	if v.Cmp(FieldModulus) >= 0 {
		return nil, fmt.Errorf("field element %q exceeds the field modulus", s)
	}
	return v, nil
}

// HexToFieldElement interprets a hex string as a big-endian integer and
// reduces it into the field. It is used to bind 32-byte SHA-256 roots to the
// root public signal.
func HexToFieldElement(h string) (*big.Int, error) {
	b, err := HexStringToHexBytes(h)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(b)
	return v.Mod(v, FieldModulus), nil
}

// UUIDToField encodes a UUID as the field element the client circuit uses:
// the 128-bit big-endian integer of its 16 bytes.
func UUIDToField(id uuid.UUID) *big.Int {
	return new(big.Int).SetBytes(id[:])
}

// FieldToUUID decodes a field element back into a UUID. The value must fit
// in 128 bits.
func FieldToUUID(v *big.Int) (uuid.UUID, error) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return uuid.Nil, fmt.Errorf("value %s does not fit in a UUID", v)
	}
	var id uuid.UUID
	v.FillBytes(id[:])
	return id, nil
}

// FieldStringToUUID is FieldToUUID over a decimal string.
func FieldStringToUUID(s string) (uuid.UUID, error) {
	v, err := ParseFieldElement(s)
	if err != nil {
		return uuid.Nil, err
	}
	return FieldToUUID(v)
}
