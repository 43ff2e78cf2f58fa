package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/sha3"
)

// PublicKey identifies a participant (client, server, or aggregator) and
// verifies its message signatures. The implementation uses Ed25519.
type PublicKey []byte

// NewPublicKeyFromString creates a PublicKey from a hex-encoded string.
func NewPublicKeyFromString(data string) (PublicKey, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return PublicKey{}, err
	}
	pk := make([]byte, len(rawBytes))
	copy(pk, rawBytes)
	return PublicKey(pk), nil
}

// Bytes returns the public key as a byte slice.
func (pk PublicKey) Bytes() []byte {
	return pk
}

// String returns a hex-encoded representation, usable as a map key.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk)
}

// ClientID derives a stable client identifier from the public key.
func (pk PublicKey) ClientID() string {
	sum := sha3.Sum256(pk)
	return hex.EncodeToString(sum[:8])
}

// PrivateKey signs messages on behalf of a participant. Ed25519.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from raw key material.
func NewPrivateKeyFromBytes(data []byte) PrivateKey {
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk)
}

// Bytes returns the private key material. Handle with care.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// PublicKey derives the public key corresponding to this private key.
func (sk PrivateKey) PublicKey() (PublicKey, error) {
	if len(sk) < ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return PublicKey(sk[32:]), nil
}

// GenerateKeyPair generates a new Ed25519 key pair.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PublicKey(publicKey), PrivateKey(privateKey), nil
}

// Signature authenticates a message from a client, server, or aggregator.
type Signature []byte

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// Verify checks the signature over data against the given public key.
func (s Signature) Verify(publicKey PublicKey, data []byte) bool {
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, s)
}

// Sign signs data with the given private key using Ed25519.
func Sign(privateKey PrivateKey, data []byte) (Signature, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	signature := ed25519.Sign(ed25519.PrivateKey(privateKey), data)
	return Signature(signature), nil
}
