// Package identity holds the long-term signing keypair of a participant
// (server or peer) and the primitives built on top of it: loading a static
// key from a PKCS#8 file, and signing/verifying arbitrary wire values.
//
// SignedBlob[T] generalizes a hand-rolled MarshalBinary/UnmarshalBinary
// signing envelope to an arbitrary payload type using Go generics, instead
// of hand-writing one signed-wrapper type per payload.
package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"vpntun/internal/vpnerr"
)

// StaticIdentity is a long-term Ed25519 signing keypair for one participant.
// It is created once at process start from a file and is immutable after.
type StaticIdentity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Load reads a PKCS#8-encoded Ed25519 private key from path. The file may be
// raw DER or PEM-wrapped; both are accepted since the external genkey helper
// is not specified by this package.
func Load(path string) (*StaticIdentity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vpntun: read private key %s: %w", path, err)
	}

	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vpnerr.ErrInvalidPrivateKeyFormat, path, err)
	}

	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s: not an Ed25519 key", vpnerr.ErrInvalidPrivateKeyFormat, path)
	}

	return &StaticIdentity{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// NewStaticIdentity wraps an already-available Ed25519 keypair, bypassing
// Load's file/PKCS#8 handling. Used by tests that don't go through a key
// file.
func NewStaticIdentity(priv ed25519.PrivateKey, pub ed25519.PublicKey) *StaticIdentity {
	return &StaticIdentity{priv: priv, pub: pub}
}

// PublicKey returns the raw public verification bytes.
func (s *StaticIdentity) PublicKey() ed25519.PublicKey {
	return s.pub
}

// LoadPublicKey reads a peer's raw Ed25519 public key from disk: just the
// 32 raw public key bytes, as produced by an external keygen helper.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vpntun: read public key %s: %w", path, err)
	}
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %s: unexpected public key size %d", vpnerr.ErrInvalidPrivateKeyFormat, path, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Signer signs blobs with a StaticIdentity's private key.
type Signer struct {
	identity *StaticIdentity
}

// NewSigner builds a Signer bound to one StaticIdentity.
func NewSigner(id *StaticIdentity) *Signer {
	return &Signer{identity: id}
}

// binaryMarshaler is implemented by a pointer to the payload type, mirroring
// binaryUnmarshaler below — our payload types (e.g. seed.PubSeed) hang
// MarshalBinary/UnmarshalBinary off pointer receivers.
type binaryMarshaler[T any] interface {
	*T
	MarshalBinary() ([]byte, error)
}

// binaryUnmarshaler is implemented by a pointer to the payload type.
type binaryUnmarshaler[T any] interface {
	*T
	UnmarshalBinary([]byte) error
}

// SignedBlob is the (payload, signature) pair transmitted on the wire for a
// value of type T. It is immutable once constructed.
type SignedBlob[T any] struct {
	Payload   []byte
	Signature []byte
}

// Sign serializes value and produces an Ed25519 signature over the bytes.
func Sign[T any, PT binaryMarshaler[T]](s *Signer, value T) (SignedBlob[T], error) {
	payload, err := PT(&value).MarshalBinary()
	if err != nil {
		return SignedBlob[T]{}, fmt.Errorf("vpntun: marshal signed value: %w", err)
	}
	sig := ed25519.Sign(s.identity.priv, payload)
	return SignedBlob[T]{Payload: payload, Signature: sig}, nil
}

// Verify checks the blob's signature against pub. It does not touch the payload's content.
func Verify[T any](blob SignedBlob[T], pub ed25519.PublicKey) error {
	if !ed25519.Verify(pub, blob.Payload, blob.Signature) {
		return vpnerr.ErrInvalidSignature
	}
	return nil
}

// Open verifies blob against pub, then deserializes the payload into T.
// Deserialization is only attempted once verification succeeds.
func Open[T any, PT binaryUnmarshaler[T]](blob SignedBlob[T], pub ed25519.PublicKey) (T, error) {
	var zero T
	if err := Verify(blob, pub); err != nil {
		return zero, err
	}
	var v T
	if err := PT(&v).UnmarshalBinary(blob.Payload); err != nil {
		return zero, fmt.Errorf("%w: %v", vpnerr.ErrBrokenMessage, err)
	}
	return v, nil
}
