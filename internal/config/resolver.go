package config

import (
	"crypto/ed25519"
	"fmt"
	"net/netip"

	"vpntun/internal/identity"
)

// PeerResolver loads and caches each configured peer's public key, keyed by
// its declared inner IPv4 address, implementing server.PeerResolver.
type PeerResolver struct {
	keys map[netip.Addr]ed25519.PublicKey
}

// NewPeerResolver reads every peer's public_key file up front so a Hello
// handler never touches disk on the hot path.
func NewPeerResolver(peers []PeerSection) (*PeerResolver, error) {
	keys := make(map[netip.Addr]ed25519.PublicKey, len(peers))
	for _, p := range peers {
		addr, err := netip.ParseAddr(p.Address)
		if err != nil {
			return nil, fmt.Errorf("vpntun: invalid peer address %q: %w", p.Address, err)
		}
		pub, err := identity.LoadPublicKey(p.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("vpntun: load public key for peer %s: %w", p.Address, err)
		}
		keys[addr] = pub
	}
	return &PeerResolver{keys: keys}, nil
}

// PublicKeyFor implements server.PeerResolver.
func (r *PeerResolver) PublicKeyFor(addr netip.Addr) (ed25519.PublicKey, bool) {
	pub, ok := r.keys[addr]
	return pub, ok
}
