package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a []byte which encodes as lowercase hexadecimal (no prefix) in
// json, as opposed to the base64 default. Roots, leaves and sibling hashes
// travel in this form.
type HexBytes []byte

// Hex returns the lowercase hexadecimal string representation of the HexBytes.
func (b HexBytes) Hex() string {
	return hex.EncodeToString(b)
}

// String implements fmt.Stringer.
func (b HexBytes) String() string {
	return b.Hex()
}

// Equal reports whether b and other hold the same bytes.
func (b HexBytes) Equal(other HexBytes) bool {
	return bytes.Equal(b, other)
}

// MarshalJSON implements the json.Marshaler interface for HexBytes.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for HexBytes. It
// expects a JSON string containing a hexadecimal representation, optionally
// prefixed with "0x".
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	decoded, err := HexStringToHexBytes(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes converts a hex string to a HexBytes. A leading "0x" or
// "0X" is stripped.
func HexStringToHexBytes(hexString string) (HexBytes, error) {
	hexString = TrimHex(hexString)
	b, err := hex.DecodeString(hexString)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", hexString, err)
	}
	return b, nil
}

// TrimHex removes the "0x" prefix from a hex string, if present.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// IsHash32Hex reports whether s is exactly 64 hexadecimal characters. Both
// cases are accepted; callers lowercase before comparing.
func IsHash32Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(strings.ToLower(s))
	return err == nil
}
