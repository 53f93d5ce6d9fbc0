// Command vpntun-client runs the spoke side of the tunnel: one config file
// in the current directory, no flags.
package main

import (
	"context"
	"log"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"vpntun/internal/client"
	"vpntun/internal/config"
	"vpntun/internal/handshake"
	"vpntun/internal/identity"
	"vpntun/internal/transport"
	"vpntun/internal/tunio"
)

const configFile = "client-config.toml"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadClientConfig(configFile)
	if err != nil {
		return err
	}
	log.Printf("config: %+v", cfg)

	signingKey, err := identity.Load(cfg.Peer.PrivateKey)
	if err != nil {
		return err
	}
	signer := identity.NewSigner(signingKey)

	serverPub, err := identity.LoadPublicKey(cfg.Server.PublicKey)
	if err != nil {
		return err
	}

	innerAddr, err := netip.ParseAddr(cfg.Peer.Address)
	if err != nil {
		return err
	}

	tun, err := tunio.Open(cfg.Peer.Ifname, innerAddr, cfg.Peer.MTU)
	if err != nil {
		return err
	}
	defer func() { _ = tun.Close() }()

	localAddr := &net.UDPAddr{IP: net.ParseIP(cfg.Peer.BindAddress), Port: cfg.Peer.BindPort}
	remoteAddr := &net.UDPAddr{IP: net.ParseIP(cfg.Server.BindAddress), Port: cfg.Server.Port}
	conn, err := net.DialUDP("udp4", localAddr, remoteAddr)
	if err != nil {
		return err
	}
	ch := transport.NewChannel(conn)
	defer func() { _ = ch.Close() }()

	sessionKey, err := handshake.ClientHandshake(ch, signer, serverPub, innerAddr)
	if err != nil {
		return err
	}
	log.Println("connection established!")

	c := client.New(ch, tun, sessionKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("interrupt received, shutting down")
		cancel()
	}()

	go c.RunHeartbeat(ctx)

	errCh := make(chan error, 2)
	go func() { errCh <- c.RunUDPLoop(ctx) }()
	go func() { errCh <- c.RunTunLoop(ctx) }()

	err = <-errCh
	cancel()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
