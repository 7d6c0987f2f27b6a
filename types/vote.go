package types

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Positions of the vote circuit public signals.
const (
	SignalNullifier = iota
	SignalVoteHash
	SignalRoot
	SignalElectionID
	SignalVote

	NumPublicSignals
)

// PublicSignals is the fixed public input tuple of the vote circuit:
// [nullifierHash, voteHash, root, electionId, vote], as decimal strings.
type PublicSignals [NumPublicSignals]string

// ParsePublicSignals validates the shape of raw signals: exactly five
// decimal field elements.
func ParsePublicSignals(raw []string) (PublicSignals, error) {
	var ps PublicSignals
	if len(raw) != NumPublicSignals {
		return ps, ErrInvalidPublicSignals.Withf("expected %d signals, got %d", NumPublicSignals, len(raw))
	}
	for i, s := range raw {
		if _, err := ParseFieldElement(s); err != nil {
			return ps, ErrInvalidPublicSignals.Withf("signal %d", i).WithErr(err)
		}
		ps[i] = s
	}
	return ps, nil
}

func (ps PublicSignals) Nullifier() string  { return ps[SignalNullifier] }
func (ps PublicSignals) VoteHash() string   { return ps[SignalVoteHash] }
func (ps PublicSignals) Root() string       { return ps[SignalRoot] }
func (ps PublicSignals) ElectionID() string { return ps[SignalElectionID] }
func (ps PublicSignals) Vote() string       { return ps[SignalVote] }

// Slice returns the signals as a slice, in circuit order.
func (ps PublicSignals) Slice() []string {
	return ps[:]
}

// BigInts returns the signals as integers. Signals are assumed validated.
func (ps PublicSignals) BigInts() []*big.Int {
	out := make([]*big.Int, NumPublicSignals)
	for i, s := range ps {
		out[i], _ = new(big.Int).SetString(s, 10)
	}
	return out
}

// NullifierKey returns the 32-byte big-endian form of the nullifier signal,
// used as storage key.
func (ps PublicSignals) NullifierKey() []byte {
	v, _ := new(big.Int).SetString(ps.Nullifier(), 10)
	if v == nil {
		v = new(big.Int)
	}
	return v.FillBytes(make([]byte, 32))
}

// VoteRecord is an accepted vote. It is created once and never modified.
type VoteRecord struct {
	Nullifier     string          `json:"nullifier" cbor:"0,keyasint"`
	ElectionID    uuid.UUID       `json:"electionId" cbor:"1,keyasint"`
	Proof         json.RawMessage `json:"proof" cbor:"2,keyasint"`
	PublicSignals PublicSignals   `json:"publicSignals" cbor:"3,keyasint"`
	CreatedAt     time.Time       `json:"createdAt" cbor:"4,keyasint"`
}

// AuditEntry is the public view of an accepted vote.
type AuditEntry struct {
	Nullifier     string          `json:"nullifier"`
	Proof         json.RawMessage `json:"proof"`
	PublicSignals PublicSignals   `json:"publicSignals"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// VoteReceipt is handed back to the voter after acceptance, signed by the
// node so the voter can later prove the vote was recorded.
type VoteReceipt struct {
	ElectionID uuid.UUID `json:"electionId"`
	Nullifier  string    `json:"nullifier"`
	VoteHash   string    `json:"voteHash"`
	Root       string    `json:"root"`
	CreatedAt  time.Time `json:"createdAt"`
	Signer     HexBytes  `json:"signer,omitempty"`
	Signature  HexBytes  `json:"signature,omitempty"`
}

// SignedPayload returns the canonical bytes covered by the receipt signature.
func (r *VoteReceipt) SignedPayload() []byte {
	payload := struct {
		ElectionID string `json:"electionId"`
		Nullifier  string `json:"nullifier"`
		VoteHash   string `json:"voteHash"`
		Root       string `json:"root"`
		CreatedAt  int64  `json:"createdAt"`
	}{
		ElectionID: r.ElectionID.String(),
		Nullifier:  r.Nullifier,
		VoteHash:   r.VoteHash,
		Root:       r.Root,
		CreatedAt:  r.CreatedAt.UnixNano(),
	}
	b, _ := json.Marshal(payload)
	return b
}
