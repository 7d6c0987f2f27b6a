package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/anonvote-node/log"
)

// ArtifactEncoding defines the encoding formats for artifacts. There are two
// supported formats: ArtifactEncodingCBOR and ArtifactEncodingJSON.
type ArtifactEncoding int

const (
	// ArtifactEncodingCBOR is the CBOR encoding format.
	ArtifactEncodingCBOR ArtifactEncoding = iota
	// ArtifactEncodingJSON is the JSON encoding format.
	ArtifactEncodingJSON
)

var (
	encModeOnce sync.Once
	encMode     cbor.EncMode
	encModeErr  error
)

// cborEncMode returns the deterministic encoding mode shared by every
// artifact. Times keep nanosecond precision so audit ordering survives a
// round trip.
func cborEncMode() (cbor.EncMode, error) {
	encModeOnce.Do(func() {
		opts := cbor.CoreDetEncOptions()
		opts.Time = cbor.TimeRFC3339Nano
		encMode, encModeErr = opts.EncMode()
	})
	return encMode, encModeErr
}

// EncodeArtifact encodes an artifact into the specified encoding format. If no
// format is specified, CBOR is used by default.
func EncodeArtifact(a any, encoding ...ArtifactEncoding) ([]byte, error) {
	if len(encoding) > 0 {
		switch encoding[0] {
		case ArtifactEncodingCBOR:
			return EncodeArtifactCBOR(a)
		case ArtifactEncodingJSON:
			res, err := json.Marshal(a)
			if err != nil {
				log.Warnw("falling back to CBOR encoding due to JSON encoding failure", "error", err)
				return EncodeArtifactCBOR(a)
			}
			return res, nil
		default:
			return nil, fmt.Errorf("unknown artifact encoding: %d", encoding[0])
		}
	}
	return EncodeArtifactCBOR(a)
}

// DecodeArtifact decodes an artifact from the specified format. If no format
// is specified, CBOR is used by default.
func DecodeArtifact(data []byte, out any, encoding ...ArtifactEncoding) error {
	if len(encoding) > 0 {
		switch encoding[0] {
		case ArtifactEncodingCBOR:
			return cbor.Unmarshal(data, out)
		case ArtifactEncodingJSON:
			if err := json.Unmarshal(data, out); err != nil {
				log.Warnw("falling back to CBOR decoding due to JSON decoding failure", "error", err)
				return cbor.Unmarshal(data, out)
			}
			return nil
		default:
			return fmt.Errorf("unknown artifact encoding: %d", encoding[0])
		}
	}
	return cbor.Unmarshal(data, out)
}

// EncodeArtifactCBOR encodes an artifact into deterministic CBOR.
func EncodeArtifactCBOR(a any) ([]byte, error) {
	em, err := cborEncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}
