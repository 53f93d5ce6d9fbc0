package identity

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"vpntun/internal/seed"
	"vpntun/internal/vpnerr"
)

func newTestIdentity(t *testing.T) (*StaticIdentity, *Signer) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	id := NewStaticIdentity(priv, pub)
	return id, NewSigner(id)
}

func testPubSeed(t *testing.T) seed.PubSeed {
	t.Helper()
	_, pub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate seed: %v", err)
	}
	return pub
}

func TestSignVerifyOpenRoundTrip(t *testing.T) {
	id, signer := newTestIdentity(t)
	value := testPubSeed(t)

	blob, err := Sign(signer, value)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := Verify(blob, id.PublicKey()); err != nil {
		t.Fatalf("verify: %v", err)
	}

	opened, err := Open[seed.PubSeed](blob, id.PublicKey())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(opened.Pub1) != string(value.Pub1) || string(opened.Pub2) != string(value.Pub2) {
		t.Fatalf("opened value does not match original")
	}
}

func TestVerifyWrongKeyFails(t *testing.T) {
	_, signer := newTestIdentity(t)
	other, _ := newTestIdentity(t)
	value := testPubSeed(t)

	blob, err := Sign(signer, value)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := Verify(blob, other.PublicKey()); !errors.Is(err, vpnerr.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestOpenDoesNotUnmarshalOnBadSignature(t *testing.T) {
	_, signer := newTestIdentity(t)
	other, _ := newTestIdentity(t)
	value := testPubSeed(t)

	blob, err := Sign(signer, value)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	blob.Payload[0] ^= 0xFF

	if _, err := Open[seed.PubSeed](blob, other.PublicKey()); !errors.Is(err, vpnerr.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature before any unmarshal attempt, got %v", err)
	}
}
