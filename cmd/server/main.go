// Command vpntun-server runs the hub side of the tunnel: one config file
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

	"vpntun/internal/config"
	"vpntun/internal/identity"
	"vpntun/internal/peertable"
	"vpntun/internal/server"
	"vpntun/internal/transport"
	"vpntun/internal/tunio"
)

const configFile = "server-config.toml"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig(configFile)
	if err != nil {
		return err
	}
	log.Printf("config: %+v", cfg)

	signingKey, err := identity.Load(cfg.Server.PrivateKey)
	if err != nil {
		return err
	}
	signer := identity.NewSigner(signingKey)

	peers, err := config.NewPeerResolver(cfg.Peers)
	if err != nil {
		return err
	}

	selfAddr, err := netip.ParseAddr(cfg.Server.Address)
	if err != nil {
		return err
	}

	tun, err := tunio.Open(cfg.Server.Ifname, selfAddr, cfg.Server.MTU)
	if err != nil {
		return err
	}
	defer func() { _ = tun.Close() }()

	udpAddr := &net.UDPAddr{IP: net.ParseIP(cfg.Server.BindAddress), Port: cfg.Server.Port}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return err
	}
	ch := transport.NewChannel(conn)
	defer func() { _ = ch.Close() }()

	table := peertable.New()
	fwd := server.New(ch, tun, table, peers, signer, selfAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("interrupt received, shutting down")
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- fwd.RunUDPLoop(ctx) }()
	go func() { errCh <- fwd.RunTunLoop(ctx) }()

	log.Printf("server listening on %s:%d (tun %s, %s)", cfg.Server.BindAddress, cfg.Server.Port, cfg.Server.Ifname, selfAddr)

	err = <-errCh
	cancel()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
