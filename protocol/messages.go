package protocol

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/privfl/fedshard/crypto"
)

// Signed wraps a message with an Ed25519 signature for authentication.
type Signed[T any] struct {
	PublicKey crypto.PublicKey `json:"public_key"`
	Signature crypto.Signature `json:"signature"`
	Object    *T               `json:"object"`
}

// NewSigned creates an authenticated message by signing the serialized
// object together with the signer's public key.
func NewSigned[T any](privkey crypto.PrivateKey, obj *T) (*Signed[T], error) {
	pubkey, err := privkey.PublicKey()
	if err != nil {
		return nil, err
	}

	serializedData, err := SerializeMessage(obj)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(privkey, append(serializedData, pubkey...))
	if err != nil {
		return nil, err
	}

	return &Signed[T]{
		PublicKey: pubkey,
		Signature: signature,
		Object:    obj,
	}, nil
}

// UnsafeObject returns the wrapped object without verifying the signature.
func (s *Signed[T]) UnsafeObject() *T {
	return s.Object
}

// Recover verifies the signature and returns the authenticated object with
// the signer's public key.
func (s *Signed[T]) Recover() (*T, crypto.PublicKey, error) {
	serializedData, err := SerializeMessage(s.Object)
	if err != nil {
		return nil, nil, err
	}

	ok := s.Signature.Verify(s.PublicKey, append(serializedData, s.PublicKey...))
	if !ok {
		return nil, nil, errors.New("signature not valid")
	}

	return s.Object, s.PublicKey, nil
}

// ShareMessage carries one server's share of a client's sharing event plus
// the commitment the sharing published. The same commitment is delivered to
// every server so each can verify its share independently.
type ShareMessage struct {
	RoundNumber int               `json:"round_number"`
	ClientID    string            `json:"client_id"`
	Share       crypto.Share      `json:"share"`
	Commitment  crypto.Commitment `json:"commitment"`
}

// RoundResult is the aggregator's output for one round: reconstructed,
// dequantized updates per client, plus the telemetry collaborators consume
// (personalized epsilons and the sigma each injection used).
type RoundResult struct {
	RoundNumber int                  `json:"round_number"`
	Updates     map[string][]float64 `json:"updates"`

	// Weights are optional per-client weights forwarded unchanged to the
	// external federated-averaging step; the pipeline never averages.
	Weights map[string]float64 `json:"weights,omitempty"`

	Epsilons map[string]float64 `json:"epsilons,omitempty"`
	Sigmas   map[string]float64 `json:"sigmas,omitempty"`
}

// UnmarshalMessage deserializes a message from JSON.
func UnmarshalMessage[T any](data []byte) (*T, error) {
	var msg T
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeMessage deserializes a message from a JSON reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}
