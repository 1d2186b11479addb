// Package signing signs and verifies oracle fulfillments with NATS nkeys. The
// oracle address is the nkey public key.
package signing

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nats-io/nkeys"
)

var (
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidPublicKey is returned for a malformed signer address.
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// Signer signs payloads on behalf of one address.
type Signer interface {
	PublicKey() string
	Sign(data []byte) (string, error)
}

type nkeySigner struct {
	kp  nkeys.KeyPair
	pub string
}

// NewSignerFromSeed restores a signer from an nkey seed.
func NewSignerFromSeed(seed string) (Signer, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to parse nkey seed: %w", err)
	}
	return newNkeySigner(kp)
}

// NewRandomSigner creates a signer with a fresh account key and returns its seed.
func NewRandomSigner() (Signer, string, error) {
	kp, err := nkeys.CreateAccount()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create nkey: %w", err)
	}
	seed, err := kp.Seed()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read nkey seed: %w", err)
	}
	s, err := newNkeySigner(kp)
	if err != nil {
		return nil, "", err
	}
	return s, string(seed), nil
}

func newNkeySigner(kp nkeys.KeyPair) (Signer, error) {
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to read nkey public key: %w", err)
	}
	return &nkeySigner{kp: kp, pub: pub}, nil
}

func (s *nkeySigner) PublicKey() string {
	return s.pub
}

func (s *nkeySigner) Sign(data []byte) (string, error) {
	sig, err := s.kp.Sign(data)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify checks that signature was produced over data by publicKey.
func Verify(publicKey string, data []byte, signature string) error {
	kp, err := nkeys.FromPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := kp.Verify(data, sig); err != nil {
		return ErrInvalidSignature
	}
	return nil
}
