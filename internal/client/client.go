// Package client implements the spoke's three pumps: the TUN-to-UDP loop,
// the UDP-to-TUN loop, and a fixed 5s heartbeat ticker, all sharing one
// SessionKey behind a mutex so it can be swapped safely if a future rekey
// ever needs to.
package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"vpntun/internal/ipheader"
	"vpntun/internal/session"
	"vpntun/internal/transport"
	"vpntun/internal/wire"
)

// heartbeatInterval is fixed; it is not configurable.
const heartbeatInterval = 5 * time.Second

// TunDevice is the subset of *tunio.Device the client pump needs.
type TunDevice interface {
	io.Reader
	io.Writer
}

// Client runs the three pumps for one established tunnel.
type Client struct {
	ch  *transport.Channel
	tun TunDevice

	mu  sync.Mutex
	key *session.SessionKey
}

// New wraps an already-handshaked SessionKey for the three pumps to share.
func New(ch *transport.Channel, tun TunDevice, key *session.SessionKey) *Client {
	return &Client{ch: ch, tun: tun, key: key}
}

// RunHeartbeat sends a HeartBeat every heartbeatInterval until ctx is done.
func (c *Client) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ch.Send(wire.HeartBeat{}); err != nil {
				log.Printf("failed to send heartbeat: %v", err)
			}
		}
	}
}

// RunUDPLoop receives sealed packets and heartbeats from the server and
// writes decrypted payloads to tun, until ctx is done.
func (c *Client) RunUDPLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msg, err := c.ch.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("broken message: %v", err)
			continue
		}

		switch m := msg.(type) {
		case wire.SealedPacket:
			c.handleSealedPacket(m)
		case wire.HeartBeat:
			log.Printf("heartbeat from server")
		default:
			log.Printf("unexpected message %T", m)
		}
	}
}

func (c *Client) handleSealedPacket(sealed wire.SealedPacket) {
	aad := sealed.AddressesAsBytes()

	c.mu.Lock()
	packet, err := c.key.Unseal(aad[:], sealed.Ciphertext)
	c.mu.Unlock()
	if err != nil {
		log.Printf("failed to unseal packet: %v", err)
		return
	}

	if _, _, err := ipheader.Addresses(packet); err != nil {
		log.Printf("ignored uninteresting packet: %v", err)
		return
	}

	if _, err := c.tun.Write(packet); err != nil {
		log.Printf("failed to write to tun: %v", err)
	}
}

// RunTunLoop reads plaintext IPv4 packets off tun, seals each one under the
// shared SessionKey, and sends it to the server, until ctx is done.
func (c *Client) RunTunLoop(ctx context.Context) error {
	buf := make([]byte, transport.RecvBufferSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := c.tun.Read(buf)
		if err != nil {
			return fmt.Errorf("vpntun: read tun: %w", err)
		}
		packet := buf[:n]

		source, destination, err := ipheader.Addresses(packet)
		if err != nil {
			log.Printf("ignored uninteresting packet: %v", err)
			continue
		}

		out := wire.SealedPacket{Source: source, Destination: destination}
		aad := out.AddressesAsBytes()

		c.mu.Lock()
		ciphertext, err := c.key.Seal(aad[:], packet)
		c.mu.Unlock()
		if err != nil {
			log.Printf("failed to seal packet: %v", err)
			continue
		}
		out.Ciphertext = ciphertext

		if err := c.ch.Send(out); err != nil {
			log.Printf("failed to send packet: %v", err)
		}
	}
}
