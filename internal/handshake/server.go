package handshake

import (
	"crypto/ed25519"
	"fmt"

	"vpntun/internal/identity"
	"vpntun/internal/seed"
	"vpntun/internal/session"
	"vpntun/internal/wire"
)

// ServerHandshake answers one inbound Hello: it verifies the client's signed
// seed against peerPub, generates a fresh server seed pair, derives a
// server-role SessionKey, and signs a reply. The caller is responsible for
// inserting the returned SessionKey into the peer table and sending reply
// back to the Hello's source address — this function has no knowledge of
// the table or the socket.
func ServerHandshake(hello wire.Hello, peerPub ed25519.PublicKey, signer *identity.Signer) (*session.SessionKey, wire.HelloReply, error) {
	clientSeed, err := identity.Open[seed.PubSeed](hello.Seed, peerPub)
	if err != nil {
		return nil, wire.HelloReply{}, fmt.Errorf("vpntun: open client seed: %w", err)
	}

	privSeed, pubSeed, err := seed.Generate()
	if err != nil {
		return nil, wire.HelloReply{}, fmt.Errorf("vpntun: generate server seed: %w", err)
	}

	sessionKey, err := session.Derive(privSeed, clientSeed, session.RoleServer)
	if err != nil {
		return nil, wire.HelloReply{}, fmt.Errorf("vpntun: derive session key: %w", err)
	}

	signedSeed, err := identity.Sign(signer, pubSeed)
	if err != nil {
		return nil, wire.HelloReply{}, fmt.Errorf("vpntun: sign server seed: %w", err)
	}

	return sessionKey, wire.HelloReply{Seed: signedSeed}, nil
}
