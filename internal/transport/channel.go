// Package transport implements a thin, cloneable wrapper over an
// unreliable datagram socket so that multiple worker goroutines can share
// one UDP connection. net.UDPConn is already safe for concurrent
// Read/Write, so Clone just shares the pointer.
package transport

import (
	"net"
	"net/netip"

	"vpntun/internal/vpnerr"
	"vpntun/internal/wire"
)

// RecvBufferSize is the fixed receive buffer: any datagram larger than this
// cannot have arrived intact, and any message that would encode larger than
// this is refused before it is ever sent.
const RecvBufferSize = 4096

// Channel wraps a UDP socket for Message-level send/receive.
type Channel struct {
	conn *net.UDPConn
}

// NewChannel wraps an already-bound (and, on the client, already-connected)
// UDP socket.
func NewChannel(conn *net.UDPConn) *Channel {
	return &Channel{conn: conn}
}

// Clone returns a Channel sharing the same underlying socket, safe to hand
// to a second worker goroutine.
func (c *Channel) Clone() *Channel {
	return &Channel{conn: c.conn}
}

// Close closes the underlying socket.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// Recv reads one Message from a connect()-ed socket (client side).
func (c *Channel) Recv() (wire.Message, error) {
	buf := make([]byte, RecvBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return wire.Decode(buf[:n])
}

// RecvFrom reads one Message plus its outer source address (server side).
func (c *Channel) RecvFrom() (wire.Message, netip.AddrPort, error) {
	buf := make([]byte, RecvBufferSize)
	n, addr, err := c.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	msg, err := wire.Decode(buf[:n])
	if err != nil {
		return nil, addr, err
	}
	return msg, addr, nil
}

// Send writes a Message to the connected peer (client side).
func (c *Channel) Send(m wire.Message) error {
	data, err := c.encode(m)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// SendTo writes a Message to an explicit outer address (server side).
func (c *Channel) SendTo(m wire.Message, addr netip.AddrPort) error {
	data, err := c.encode(m)
	if err != nil {
		return err
	}
	_, err = c.conn.WriteToUDPAddrPort(data, addr)
	return err
}

func (c *Channel) encode(m wire.Message) ([]byte, error) {
	data, err := wire.Encode(m)
	if err != nil {
		return nil, err
	}
	if len(data) > RecvBufferSize {
		return nil, vpnerr.ErrBrokenMessage
	}
	return data, nil
}
