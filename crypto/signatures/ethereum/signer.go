// Package ethereum signs and verifies node statements with secp256k1 keys
// using the Ethereum signed-message convention, so any Ethereum tool can check
// who issued a vote receipt.
package ethereum

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/anonvote-node/types"
)

const (
	// SignatureLength is the size of an ECDSA signature in bytes [R || S || V].
	SignatureLength = ethcrypto.SignatureLength
	// SigningPrefix is the prefix added when hashing Ethereum messages
	SigningPrefix = "\u0019Ethereum Signed Message:\n"
)

// Signer represents an ECDSA private key for signing Ethereum messages. It is
// a wrapper around the go-ethereum ecdsa.PrivateKey type. The signature is
// performed by hashing (keccak256) the message with a prefix (Ethereum Signed
// Message) and then signing the hash with the private key.
type Signer ecdsa.PrivateKey

// Address returns the Ethereum address derived from the public key of the signer.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// HexPrivateKey returns the hex-encoded representation of the ECDSA private
// key.
func (s *Signer) HexPrivateKey() types.HexBytes {
	return types.HexBytes(ethcrypto.FromECDSA((*ecdsa.PrivateKey)(s)))
}

// Sign signs msg and returns the 65 byte signature, with V in 27-28 form.
func (s *Signer) Sign(msg []byte) (types.HexBytes, error) {
	sig, err := ethcrypto.Sign(HashMessage(msg), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return nil, fmt.Errorf("could not sign message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignReceipt stamps the signer address on receipt and signs its payload.
func (s *Signer) SignReceipt(receipt *types.VoteReceipt) error {
	if receipt == nil {
		return fmt.Errorf("nil receipt")
	}
	receipt.Signer = s.Address().Bytes()
	sig, err := s.Sign(receipt.SignedPayload())
	if err != nil {
		return err
	}
	receipt.Signature = sig
	return nil
}

// NewSigner creates a new ECDSA private key for signing.
func NewSigner() (*Signer, error) {
	s, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromHex creates a new ECDSA private key from a hex-encoded string.
// A leading 0x is accepted.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	s, err := ethcrypto.HexToECDSA(types.TrimHex(hexKey))
	if err != nil {
		return nil, fmt.Errorf("could not load key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromSeed creates a new ECDSA private key from a seed, no matter the
// length of the seed. It calculates the hash of the seed to use the right length.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	h := ethcrypto.Keccak256(seed)
	s, err := ethcrypto.ToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(s), nil
}

// AddrFromSignature recovers the Ethereum address that created the signature of a message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(signature))
	}
	sig := bytes.Clone(signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery byte %d", signature[64])
	}
	pubKey, err := ethcrypto.SigToPub(HashMessage(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("sigToPub %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// VerifyReceipt checks that receipt was signed by the address it carries. If
// expected is not the zero address, the signer must also match it.
func VerifyReceipt(receipt *types.VoteReceipt, expected common.Address) bool {
	if receipt == nil || len(receipt.Signer) != common.AddressLength {
		return false
	}
	addr, err := AddrFromSignature(receipt.SignedPayload(), receipt.Signature)
	if err != nil {
		return false
	}
	if !bytes.Equal(addr.Bytes(), receipt.Signer) {
		return false
	}
	return expected == (common.Address{}) || addr == expected
}

// HashMessage performs a keccak256 hash over the data adding Ethereum Message
// prefix.
func HashMessage(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%d%s", SigningPrefix, len(data), data)
	return HashRaw(buf.Bytes())
}

// HashRaw hashes data with no prefix using Keccak256.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}
