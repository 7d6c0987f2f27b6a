// Package roster turns raw roster text into canonical voter records.
package roster

import (
	"strings"
	"unicode"

	"github.com/vocdoni/anonvote-node/types"
)

// NormalizeID trims and uppercases a raw identifier.
func NormalizeID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// NormalizeClass trims a raw class, collapses every internal whitespace run
// into a single underscore and uppercases the result.
func NormalizeClass(raw string) string {
	fields := strings.FieldsFunc(raw, unicode.IsSpace)
	return strings.ToUpper(strings.Join(fields, "_"))
}

// Canonicalize normalizes a raw row. It reports false when either field is
// empty after normalization; such rows are skipped, not rejected.
func Canonicalize(rawID, rawClass string) (types.CanonicalVoter, bool) {
	v := types.CanonicalVoter{
		ID:       NormalizeID(rawID),
		ClassTag: NormalizeClass(rawClass),
	}
	return v, v.ID != "" && v.ClassTag != ""
}
