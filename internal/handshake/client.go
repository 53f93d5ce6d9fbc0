// Package handshake implements the two-message Hello/HelloReply exchange
// for both sides of the tunnel: ClientHandshake runs as the initiator,
// ServerHandshake answers one inbound Hello.
package handshake

import (
	"crypto/ed25519"
	"fmt"
	"net/netip"

	"vpntun/internal/identity"
	"vpntun/internal/seed"
	"vpntun/internal/session"
	"vpntun/internal/transport"
	"vpntun/internal/wire"
)

// ClientHandshake sends a Hello over ch and blocks for the matching
// HelloReply, returning a client-role SessionKey on success.
func ClientHandshake(ch *transport.Channel, signer *identity.Signer, serverPub ed25519.PublicKey, innerAddr netip.Addr) (*session.SessionKey, error) {
	privSeed, pubSeed, err := seed.Generate()
	if err != nil {
		return nil, fmt.Errorf("vpntun: generate client seed: %w", err)
	}

	signedSeed, err := identity.Sign(signer, pubSeed)
	if err != nil {
		return nil, fmt.Errorf("vpntun: sign client seed: %w", err)
	}

	hello := wire.Hello{Addr: innerAddr, Seed: signedSeed}
	if err := ch.Send(hello); err != nil {
		return nil, fmt.Errorf("vpntun: send hello: %w", err)
	}

	msg, err := ch.Recv()
	if err != nil {
		return nil, fmt.Errorf("vpntun: recv hello reply: %w", err)
	}
	reply, ok := msg.(wire.HelloReply)
	if !ok {
		return nil, fmt.Errorf("vpntun: expected HelloReply, got %T", msg)
	}

	serverSeed, err := identity.Open[seed.PubSeed](reply.Seed, serverPub)
	if err != nil {
		return nil, fmt.Errorf("vpntun: open server seed: %w", err)
	}

	return session.Derive(privSeed, serverSeed, session.RoleClient)
}
