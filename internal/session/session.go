// Package session implements the AEAD sealing/opening half of the tunnel
// plane: SessionKey derivation from a seed exchange and the
// deterministic-nonce framing that goes with it.
package session

import (
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"vpntun/internal/seed"
	"vpntun/internal/vpnerr"
)

// Role distinguishes which side of the tunnel a SessionKey was derived for;
// it doubles as the NonceSeq role tag (client=1, server=2).
type Role byte

const (
	RoleClient Role = 1
	RoleServer Role = 2
)

const (
	pbkdf2Iterations = 100000
	derivedKeyLen    = chacha20poly1305.KeySize
)

// SessionKey holds the sealing/opening AEAD keys and the sealing nonce
// sequence for one handshake's session.
type SessionKey struct {
	opening cipher.AEAD
	sealing cipher.AEAD
	nonces  *NonceSeq
}

// deriveKey runs PBKDF2-HMAC-SHA256 over shared ECDH material with an empty
// salt and a fixed 100,000 iterations. Both sides must agree on this
// exactly; it is not configurable.
func deriveKey(material []byte) []byte {
	return pbkdf2.Key(material, nil, pbkdf2Iterations, derivedKeyLen, sha256.New)
}

// Derive builds a SessionKey from a local PrivSeed and a remote PubSeed,
// assigning the two derived keys to opening/sealing by role.
func Derive(priv seed.PrivSeed, their seed.PubSeed, role Role) (*SessionKey, error) {
	m1, m2, err := priv.Agree(their)
	if err != nil {
		return nil, err
	}

	k1 := deriveKey(m1)
	k2 := deriveKey(m2)

	var sealKeyBytes, openKeyBytes []byte
	switch role {
	case RoleClient:
		sealKeyBytes, openKeyBytes = k1, k2
	case RoleServer:
		openKeyBytes, sealKeyBytes = k1, k2
	default:
		return nil, fmt.Errorf("vpntun: invalid session role %d", role)
	}

	sealAEAD, err := chacha20poly1305.New(sealKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("vpntun: build sealing aead: %w", err)
	}
	openAEAD, err := chacha20poly1305.New(openKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("vpntun: build opening aead: %w", err)
	}

	return &SessionKey{
		sealing: sealAEAD,
		opening: openAEAD,
		nonces:  newNonceSeq(byte(role)),
	}, nil
}

// Seal advances the nonce sequence, then encrypts plaintext under
// aadPrefix||nonce as AAD, returning ciphertext||tag||nonce.
func (s *SessionKey) Seal(aadPrefix, plaintext []byte) ([]byte, error) {
	nonce, err := s.nonces.Next()
	if err != nil {
		return nil, err
	}

	aad := make([]byte, 0, len(aadPrefix)+len(nonce))
	aad = append(aad, aadPrefix...)
	aad = append(aad, nonce[:]...)

	sealed := s.sealing.Seal(nil, nonce[:], plaintext, aad)
	return append(sealed, nonce[:]...), nil
}

// Unseal splits the trailing nonce off ciphertext, reconstructs the AAD, and
// opens the sealed body into a new buffer. The inner plaintext is NOT further
// deserialized here; callers parse it as an IPv4 packet or Message payload
// as appropriate.
func (s *SessionKey) Unseal(aadPrefix, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, vpnerr.ErrBrokenMessage
	}

	split := len(ciphertext) - chacha20poly1305.NonceSize
	body, nonce := ciphertext[:split], ciphertext[split:]

	aad := make([]byte, 0, len(aadPrefix)+len(nonce))
	aad = append(aad, aadPrefix...)
	aad = append(aad, nonce...)

	plaintext, err := s.opening.Open(nil, nonce, body, aad)
	if err != nil {
		return nil, vpnerr.ErrBrokenMessage
	}
	return plaintext, nil
}
