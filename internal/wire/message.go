// Package wire implements a length-less, tag-prefixed binary encoding for
// the four Message variants, identical on both sides of the tunnel: fixed
// field offsets and hand-rolled Encode/Decode functions, no reflection, no
// general-purpose serialization library.
package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"net/netip"

	"vpntun/internal/identity"
	"vpntun/internal/seed"
	"vpntun/internal/vpnerr"
)

type tag byte

const (
	tagHello tag = iota
	tagHelloReply
	tagHeartBeat
	tagPacket
)

// signedSeedLen is the fixed wire size of a SignedBlob[seed.PubSeed]: the
// marshaled PubSeed payload plus an Ed25519 signature.
const signedSeedLen = seed.PubSeedByteLen + ed25519.SignatureSize

// Message is the tagged union of protocol frames. Concrete types below are
// its only implementations.
type Message interface {
	isMessage()
}

// Hello is the client's first frame: its self-declared inner IPv4 address
// plus a signed ephemeral seed.
type Hello struct {
	Addr netip.Addr
	Seed identity.SignedBlob[seed.PubSeed]
}

func (Hello) isMessage() {}

// HelloReply is the server's response to a Hello.
type HelloReply struct {
	Seed identity.SignedBlob[seed.PubSeed]
}

func (HelloReply) isMessage() {}

// HeartBeat carries no payload; it exists only to keep NAT mappings alive.
type HeartBeat struct{}

func (HeartBeat) isMessage() {}

// SealedPacket wraps an AEAD-sealed inner IPv4 datagram. Source and
// Destination travel in the clear as AAD.
type SealedPacket struct {
	Source      netip.Addr
	Destination netip.Addr
	Ciphertext  []byte
}

func (SealedPacket) isMessage() {}

// AddressesAsBytes returns the 8-byte AAD prefix used by session.Seal/Unseal
// for a SealedPacket: source octets followed by destination octets.
func (p SealedPacket) AddressesAsBytes() [8]byte {
	var out [8]byte
	s := p.Source.As4()
	d := p.Destination.As4()
	copy(out[0:4], s[:])
	copy(out[4:8], d[:])
	return out
}

// Encode serializes a Message to its wire form.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Hello:
		return encodeHello(v)
	case HelloReply:
		return encodeHelloReply(v)
	case HeartBeat:
		return []byte{byte(tagHeartBeat)}, nil
	case SealedPacket:
		return encodePacket(v)
	default:
		return nil, fmt.Errorf("vpntun: unknown message type %T", m)
	}
}

// Decode parses a Message from its wire form. Any structural error is
// reported as vpnerr.ErrBrokenMessage.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty message", vpnerr.ErrBrokenMessage)
	}
	switch tag(data[0]) {
	case tagHello:
		return decodeHello(data[1:])
	case tagHelloReply:
		return decodeHelloReply(data[1:])
	case tagHeartBeat:
		if len(data) != 1 {
			return nil, fmt.Errorf("%w: heartbeat carries no payload", vpnerr.ErrBrokenMessage)
		}
		return HeartBeat{}, nil
	case tagPacket:
		return decodePacket(data[1:])
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", vpnerr.ErrBrokenMessage, data[0])
	}
}

func encodeSignedSeed(blob identity.SignedBlob[seed.PubSeed]) ([]byte, error) {
	if len(blob.Payload) != seed.PubSeedByteLen || len(blob.Signature) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: malformed signed seed", vpnerr.ErrBrokenMessage)
	}
	out := make([]byte, 0, signedSeedLen)
	out = append(out, blob.Payload...)
	out = append(out, blob.Signature...)
	return out, nil
}

func decodeSignedSeed(data []byte) (identity.SignedBlob[seed.PubSeed], error) {
	if len(data) != signedSeedLen {
		return identity.SignedBlob[seed.PubSeed]{}, fmt.Errorf("%w: bad signed seed length", vpnerr.ErrBrokenMessage)
	}
	return identity.SignedBlob[seed.PubSeed]{
		Payload:   append([]byte(nil), data[:seed.PubSeedByteLen]...),
		Signature: append([]byte(nil), data[seed.PubSeedByteLen:]...),
	}, nil
}

func encodeHello(h Hello) ([]byte, error) {
	if !h.Addr.Is4() {
		return nil, fmt.Errorf("%w: hello address must be IPv4", vpnerr.ErrBrokenMessage)
	}
	seedBytes, err := encodeSignedSeed(h.Seed)
	if err != nil {
		return nil, err
	}
	addr := h.Addr.As4()
	out := make([]byte, 0, 1+4+len(seedBytes))
	out = append(out, byte(tagHello))
	out = append(out, addr[:]...)
	out = append(out, seedBytes...)
	return out, nil
}

func decodeHello(body []byte) (Message, error) {
	if len(body) != 4+signedSeedLen {
		return nil, fmt.Errorf("%w: bad hello length", vpnerr.ErrBrokenMessage)
	}
	addr := netip.AddrFrom4([4]byte(body[:4]))
	seedBlob, err := decodeSignedSeed(body[4:])
	if err != nil {
		return nil, err
	}
	return Hello{Addr: addr, Seed: seedBlob}, nil
}

func encodeHelloReply(h HelloReply) ([]byte, error) {
	seedBytes, err := encodeSignedSeed(h.Seed)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(seedBytes))
	out = append(out, byte(tagHelloReply))
	out = append(out, seedBytes...)
	return out, nil
}

func decodeHelloReply(body []byte) (Message, error) {
	if len(body) != signedSeedLen {
		return nil, fmt.Errorf("%w: bad hello-reply length", vpnerr.ErrBrokenMessage)
	}
	seedBlob, err := decodeSignedSeed(body)
	if err != nil {
		return nil, err
	}
	return HelloReply{Seed: seedBlob}, nil
}

func encodePacket(p SealedPacket) ([]byte, error) {
	if !p.Source.Is4() || !p.Destination.Is4() {
		return nil, fmt.Errorf("%w: sealed packet addresses must be IPv4", vpnerr.ErrBrokenMessage)
	}
	if len(p.Ciphertext) > 0xFFFF {
		return nil, fmt.Errorf("%w: sealed packet too large", vpnerr.ErrBrokenMessage)
	}
	src := p.Source.As4()
	dst := p.Destination.As4()
	out := make([]byte, 0, 1+4+4+2+len(p.Ciphertext))
	out = append(out, byte(tagPacket))
	out = append(out, src[:]...)
	out = append(out, dst[:]...)
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(p.Ciphertext)))
	out = append(out, lenBuf...)
	out = append(out, p.Ciphertext...)
	return out, nil
}

func decodePacket(body []byte) (Message, error) {
	if len(body) < 4+4+2 {
		return nil, fmt.Errorf("%w: bad packet header", vpnerr.ErrBrokenMessage)
	}
	src := netip.AddrFrom4([4]byte(body[:4]))
	dst := netip.AddrFrom4([4]byte(body[4:8]))
	n := binary.BigEndian.Uint16(body[8:10])
	if len(body) != 10+int(n) {
		return nil, fmt.Errorf("%w: bad packet length", vpnerr.ErrBrokenMessage)
	}
	ciphertext := append([]byte(nil), body[10:]...)
	return SealedPacket{Source: src, Destination: dst, Ciphertext: ciphertext}, nil
}
