// Package server implements the Forwarder: the hub's two hot loops,
// UDP-inbound and TUN-outbound, sharing one Channel, one TUN device, and
// one PeerTable. Hello/HeartBeat/Packet frames are dispatched off
// Channel.RecvFrom; plaintext packets off the TUN device are forwarded by
// inner-address lookup, and those addressed to this host are dropped.
package server

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"log"
	"net/netip"

	"vpntun/internal/handshake"
	"vpntun/internal/identity"
	"vpntun/internal/ipheader"
	"vpntun/internal/peertable"
	"vpntun/internal/transport"
	"vpntun/internal/wire"
)

// TunDevice is the subset of *tunio.Device the forwarder needs; defined here
// so this package doesn't depend on a platform-specific implementation.
type TunDevice interface {
	io.Reader
	io.Writer
}

// PeerResolver maps a peer's declared inner address to its configured
// long-term public key.
type PeerResolver interface {
	PublicKeyFor(addr netip.Addr) (ed25519.PublicKey, bool)
}

// Forwarder is the server side of the tunnel: one shared UDP channel, one
// shared TUN device, one shared peer table.
type Forwarder struct {
	ch       *transport.Channel
	tun      TunDevice
	table    *peertable.Table
	peers    PeerResolver
	signer   *identity.Signer
	selfAddr netip.Addr
}

// New builds a Forwarder. selfAddr is the server's own inner IPv4 address;
// SealedPackets destined for it are delivered to tun rather than forwarded.
func New(ch *transport.Channel, tun TunDevice, table *peertable.Table, peers PeerResolver, signer *identity.Signer, selfAddr netip.Addr) *Forwarder {
	return &Forwarder{ch: ch, tun: tun, table: table, peers: peers, signer: signer, selfAddr: selfAddr}
}

// RunUDPLoop services inbound datagrams until ctx is done. Receive errors
// are logged and the loop continues.
func (f *Forwarder) RunUDPLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, src, err := f.ch.RecvFrom()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("broken message from %s: %v", src, err)
			continue
		}

		switch m := msg.(type) {
		case wire.Hello:
			f.handleHello(m, src)
		case wire.HeartBeat:
			log.Printf("heartbeat from %s", src)
			if err := f.ch.SendTo(wire.HeartBeat{}, src); err != nil {
				log.Printf("failed to send heartbeat reply to %s: %v", src, err)
			}
		case wire.SealedPacket:
			f.handleSealedPacket(m)
		default:
			log.Printf("unexpected message %T from %s", m, src)
		}
	}
}

func (f *Forwarder) handleHello(hello wire.Hello, src netip.AddrPort) {
	log.Printf("hello from %s (claims %s)", src, hello.Addr)

	pub, ok := f.peers.PublicKeyFor(hello.Addr)
	if !ok {
		log.Printf("unknown peer: %s", hello.Addr)
		return
	}

	sessionKey, reply, err := handshake.ServerHandshake(hello, pub, f.signer)
	if err != nil {
		log.Printf("handshake with %s failed: %v", hello.Addr, err)
		return
	}

	f.table.Insert(hello.Addr, &peertable.Entry{Addr: src, Session: sessionKey})

	if err := f.ch.SendTo(reply, src); err != nil {
		log.Printf("failed to send hello reply to %s: %v", src, err)
		return
	}
	log.Printf("new connection with %s (socket %s)", hello.Addr, src)
}

func (f *Forwarder) handleSealedPacket(sealed wire.SealedPacket) {
	entry, ok := f.table.Get(sealed.Source)
	if !ok {
		log.Printf("unknown peer: %s", sealed.Source)
		return
	}

	aad := sealed.AddressesAsBytes()
	packet, err := entry.Session.Unseal(aad[:], sealed.Ciphertext)
	if err != nil {
		log.Printf("failed to unseal packet from %s: %v", sealed.Source, err)
		return
	}

	source, destination, err := ipheader.Addresses(packet)
	if err != nil {
		log.Printf("ignored uninteresting packet from %s: %v", sealed.Source, err)
		return
	}

	if destination == f.selfAddr {
		if _, err := f.tun.Write(packet); err != nil {
			log.Printf("failed to write to tun: %v", err)
		}
		return
	}

	f.forward(source, destination, packet)
}

func (f *Forwarder) forward(source, destination netip.Addr, packet []byte) {
	dst, ok := f.table.Get(destination)
	if !ok {
		log.Printf("unknown peer: %s", destination)
		return
	}

	out := wire.SealedPacket{Source: source, Destination: destination}
	aad := out.AddressesAsBytes()
	ciphertext, err := dst.Session.Seal(aad[:], packet)
	if err != nil {
		log.Printf("failed to seal forwarded packet to %s: %v", destination, err)
		return
	}
	out.Ciphertext = ciphertext

	if err := f.ch.SendTo(out, dst.Addr); err != nil {
		log.Printf("failed to forward to %s (%s): %v", destination, dst.Addr, err)
	}
}

// RunTunLoop reads plaintext IPv4 packets off tun and seals/forwards each
// one to its destination peer, until ctx is done.
func (f *Forwarder) RunTunLoop(ctx context.Context) error {
	buf := make([]byte, transport.RecvBufferSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := f.tun.Read(buf)
		if err != nil {
			return fmt.Errorf("vpntun: read tun: %w", err)
		}
		packet := buf[:n]

		source, destination, err := ipheader.Addresses(packet)
		if err != nil {
			log.Printf("ignored uninteresting packet: %v", err)
			continue
		}

		if destination == f.selfAddr {
			continue
		}

		f.forward(source, destination, packet)
	}
}
