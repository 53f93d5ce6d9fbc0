package client

import (
	"context"
	"io"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"vpntun/internal/seed"
	"vpntun/internal/session"
	"vpntun/internal/transport"
	"vpntun/internal/wire"
)

type memTun struct {
	mu      sync.Mutex
	written [][]byte
}

func (m *memTun) Read(_ []byte) (int, error) { return 0, io.EOF }

func (m *memTun) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, append([]byte(nil), p...))
	return len(p), nil
}

func (m *memTun) lastWritten() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return nil
	}
	return m.written[len(m.written)-1]
}

func ipv4Packet(src, dst [4]byte) []byte {
	p := make([]byte, 20)
	p[0] = 0x45
	copy(p[12:16], src[:])
	copy(p[16:20], dst[:])
	return p
}

func derivedPair(t *testing.T) (client, server *session.SessionKey) {
	t.Helper()
	clientPriv, clientPub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate client seed: %v", err)
	}
	serverPriv, serverPub, err := seed.Generate()
	if err != nil {
		t.Fatalf("generate server seed: %v", err)
	}
	client, err = session.Derive(clientPriv, serverPub, session.RoleClient)
	if err != nil {
		t.Fatalf("client derive: %v", err)
	}
	server, err = session.Derive(serverPriv, clientPub, session.RoleServer)
	if err != nil {
		t.Fatalf("server derive: %v", err)
	}
	return client, server
}

func TestClientHandleSealedPacketWritesToTun(t *testing.T) {
	clientKey, serverKey := derivedPair(t)

	tun := &memTun{}
	c := New(nil, tun, clientKey)

	packet := ipv4Packet([4]byte{10, 20, 30, 1}, [4]byte{10, 20, 30, 2})
	sealed := wire.SealedPacket{Source: netip.MustParseAddr("10.20.30.1"), Destination: netip.MustParseAddr("10.20.30.2")}
	aad := sealed.AddressesAsBytes()
	ciphertext, err := serverKey.Seal(aad[:], packet)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed.Ciphertext = ciphertext

	c.handleSealedPacket(sealed)

	got := tun.lastWritten()
	if got == nil {
		t.Fatalf("expected packet written to tun")
	}
	if string(got) != string(packet) {
		t.Fatalf("tun write mismatch")
	}
}

func TestClientRunTunLoopSealsAndSends(t *testing.T) {
	clientKey, serverKey := derivedPair(t)

	serverConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = serverConn.Close() }()
	clientConn, err := net.DialUDP("udp4", nil, serverConn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = clientConn.Close() }()

	ch := transport.NewChannel(clientConn)
	serverCh := transport.NewChannel(serverConn)

	packet := ipv4Packet([4]byte{10, 20, 30, 2}, [4]byte{10, 20, 30, 1})
	tun := &singlePacketTun{packet: packet}
	c := New(ch, tun, clientKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.RunTunLoop(ctx) }()

	if err := serverConn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	msg, _, err := serverCh.RecvFrom()
	if err != nil {
		t.Fatalf("server recv: %v", err)
	}
	sealed, ok := msg.(wire.SealedPacket)
	if !ok {
		t.Fatalf("expected SealedPacket, got %T", msg)
	}

	aad := sealed.AddressesAsBytes()
	plain, err := serverKey.Unseal(aad[:], sealed.Ciphertext)
	if err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if string(plain) != string(packet) {
		t.Fatalf("payload mismatch")
	}
}

// singlePacketTun returns one fixed packet on the first Read, then io.EOF,
// so RunTunLoop returns a read error afterward.
type singlePacketTun struct {
	mu     sync.Mutex
	packet []byte
	sent   bool
}

func (s *singlePacketTun) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent {
		return 0, io.EOF
	}
	s.sent = true
	return copy(buf, s.packet), nil
}

func (s *singlePacketTun) Write(p []byte) (int, error) { return len(p), nil }
