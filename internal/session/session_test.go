package session

import (
	"bytes"
	"errors"
	"testing"

	"vpntun/internal/seed"
	"vpntun/internal/vpnerr"
)

func establishedPair(t *testing.T) (client, server *SessionKey) {
	t.Helper()

	clientPriv, clientPub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate client seed: %v", err)
	}
	serverPriv, serverPub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate server seed: %v", err)
	}

	client, err = Derive(clientPriv, serverPub, RoleClient)
	if err != nil {
		t.Fatalf("client derive: %v", err)
	}
	server, err = Derive(serverPriv, clientPub, RoleServer)
	if err != nil {
		t.Fatalf("server derive: %v", err)
	}
	return client, server
}

func TestSessionKeyRoundTrip(t *testing.T) {
	client, server := establishedPair(t)

	aad := []byte{10, 20, 30, 1, 10, 20, 30, 2}
	plaintext := []byte("hello from the client")

	sealed, err := client.Seal(aad, plaintext)
	if err != nil {
		t.Fatalf("client seal: %v", err)
	}
	opened, err := server.Unseal(aad, sealed)
	if err != nil {
		t.Fatalf("server unseal: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestSessionKeyCrossDirection(t *testing.T) {
	client, server := establishedPair(t)

	aad := []byte{10, 20, 30, 2, 10, 20, 30, 1}
	plaintext := []byte("hello from the server")

	sealed, err := server.Seal(aad, plaintext)
	if err != nil {
		t.Fatalf("server seal: %v", err)
	}
	opened, err := client.Unseal(aad, sealed)
	if err != nil {
		t.Fatalf("client unseal: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestSessionKeyAADMismatchFails(t *testing.T) {
	client, server := establishedPair(t)

	sealed, err := client.Seal([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	_, err = server.Unseal([]byte{1, 2, 3, 4, 5, 6, 7, 9}, sealed)
	if !errors.Is(err, vpnerr.ErrBrokenMessage) {
		t.Fatalf("expected ErrBrokenMessage for mismatched AAD, got %v", err)
	}
}

func TestSessionKeyBitFlipFails(t *testing.T) {
	client, server := establishedPair(t)
	aad := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	sealed, err := client.Seal(aad, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[0] ^= 0xFF

	if _, err := server.Unseal(aad, sealed); !errors.Is(err, vpnerr.ErrBrokenMessage) {
		t.Fatalf("expected ErrBrokenMessage for tampered ciphertext, got %v", err)
	}
}

func TestSessionKeyWrongSessionFails(t *testing.T) {
	client, _ := establishedPair(t)
	_, otherServer := establishedPair(t)

	aad := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	sealed, err := client.Seal(aad, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := otherServer.Unseal(aad, sealed); !errors.Is(err, vpnerr.ErrBrokenMessage) {
		t.Fatalf("expected ErrBrokenMessage across unrelated sessions, got %v", err)
	}
}

func TestSessionKeyShortCiphertextFails(t *testing.T) {
	_, server := establishedPair(t)
	if _, err := server.Unseal([]byte{1}, []byte{1, 2, 3}); !errors.Is(err, vpnerr.ErrBrokenMessage) {
		t.Fatalf("expected ErrBrokenMessage for short ciphertext, got %v", err)
	}
}

func TestSessionKeyInvalidRole(t *testing.T) {
	priv, pub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Derive(priv, pub, Role(99)); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}
