package config

import (
	"crypto/ed25519"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
)

func TestNewPeerResolver(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "peer_pubkey.der")
	if err := os.WriteFile(path, pub, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	resolver, err := NewPeerResolver([]PeerSection{{Address: "10.20.30.2", PublicKey: path}})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	got, ok := resolver.PublicKeyFor(netip.MustParseAddr("10.20.30.2"))
	if !ok {
		t.Fatalf("expected a resolved public key")
	}
	if string(got) != string(pub) {
		t.Fatalf("public key mismatch")
	}

	if _, ok := resolver.PublicKeyFor(netip.MustParseAddr("10.20.30.9")); ok {
		t.Fatalf("expected no entry for an unconfigured peer")
	}
}

func TestNewPeerResolverRejectsMissingKeyFile(t *testing.T) {
	_, err := NewPeerResolver([]PeerSection{{Address: "10.20.30.2", PublicKey: "/nonexistent/path"}})
	if err == nil {
		t.Fatalf("expected error for missing key file")
	}
}
