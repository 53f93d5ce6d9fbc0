// Package seed generates the ephemeral key-agreement material exchanged
// during the handshake (PrivSeed/PubSeed) and combines it with a peer's
// material into the two shared secrets session derivation needs.
//
// Agreement runs over NIST P-384 via the standard library's crypto/ecdh —
// see DESIGN.md for why no third-party P-384 implementation fits better.
package seed

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
)

// pubKeyLen is the length in bytes of an uncompressed P-384 public point
// (1 tag byte + 2*48 coordinate bytes).
const pubKeyLen = 97

// PubSeedByteLen is the wire size of a marshaled PubSeed.
const PubSeedByteLen = 2 * pubKeyLen

// PrivSeed holds two independent ephemeral P-384 private keys: one whose
// shared secret becomes the sealing key, one whose shared secret becomes the
// opening key. Each half is consumed exactly once by Agree.
type PrivSeed struct {
	priv1 *ecdh.PrivateKey
	priv2 *ecdh.PrivateKey
}

// PubSeed is the public half of a PrivSeed, transmitted inside a SignedBlob.
type PubSeed struct {
	Pub1 []byte
	Pub2 []byte
}

// Generate emits a fresh (PrivSeed, PubSeed) pair from the ephemeral P-384
// curve. A non-nil error means the RNG failed; callers must treat it as
// fatal rather than retry.
func Generate() (PrivSeed, PubSeed, error) {
	curve := ecdh.P384()

	priv1, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return PrivSeed{}, PubSeed{}, fmt.Errorf("vpntun: generate seed key 1: %w", err)
	}
	priv2, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return PrivSeed{}, PubSeed{}, fmt.Errorf("vpntun: generate seed key 2: %w", err)
	}

	pub := PubSeed{
		Pub1: priv1.PublicKey().Bytes(),
		Pub2: priv2.PublicKey().Bytes(),
	}
	return PrivSeed{priv1: priv1, priv2: priv2}, pub, nil
}

// Agree performs the two independent ECDH exchanges between the local
// PrivSeed and a remote PubSeed, returning the two shared secrets M1, M2
// in order.
func (p PrivSeed) Agree(their PubSeed) (m1, m2 []byte, err error) {
	curve := ecdh.P384()

	theirPub1, err := curve.NewPublicKey(their.Pub1)
	if err != nil {
		return nil, nil, fmt.Errorf("vpntun: parse remote seed pub 1: %w", err)
	}
	theirPub2, err := curve.NewPublicKey(their.Pub2)
	if err != nil {
		return nil, nil, fmt.Errorf("vpntun: parse remote seed pub 2: %w", err)
	}

	m1, err = p.priv1.ECDH(theirPub1)
	if err != nil {
		return nil, nil, fmt.Errorf("vpntun: ecdh agreement 1: %w", err)
	}
	m2, err = p.priv2.ECDH(theirPub2)
	if err != nil {
		return nil, nil, fmt.Errorf("vpntun: ecdh agreement 2: %w", err)
	}
	return m1, m2, nil
}

// MarshalBinary implements encoding.BinaryMarshaler so a PubSeed can be
// signed and carried inside a SignedBlob.
func (s *PubSeed) MarshalBinary() ([]byte, error) {
	if len(s.Pub1) != pubKeyLen || len(s.Pub2) != pubKeyLen {
		return nil, fmt.Errorf("vpntun: invalid seed public key length: %d/%d", len(s.Pub1), len(s.Pub2))
	}
	out := make([]byte, 0, PubSeedByteLen)
	out = append(out, s.Pub1...)
	out = append(out, s.Pub2...)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *PubSeed) UnmarshalBinary(data []byte) error {
	if len(data) != PubSeedByteLen {
		return fmt.Errorf("vpntun: invalid PubSeed length: %d", len(data))
	}
	s.Pub1 = append([]byte(nil), data[:pubKeyLen]...)
	s.Pub2 = append([]byte(nil), data[pubKeyLen:]...)
	return nil
}
