// Package config loads the TOML configuration for both executables,
// applying code-level defaults after decoding: server port 31415, ifname
// "vpn0", mtu 1300, key paths under keys/.
package config

import (
	"fmt"
	"net/netip"

	"github.com/BurntSushi/toml"
)

const (
	defaultPort     = 31415
	defaultIfname   = "vpn0"
	defaultMTU      = 1300
	defaultPrivKey  = "keys/privkey.der"
	defaultServerIP = "10.20.30.1"
)

// ServerConfig is the top-level server-config.toml document.
type ServerConfig struct {
	Server ServerSection `toml:"server"`
	Peers  []PeerSection `toml:"peers"`
}

// ServerSection is the [server] table of server-config.toml.
type ServerSection struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Ifname      string `toml:"ifname"`
	Address     string `toml:"address"`
	MTU         int    `toml:"mtu"`
	PrivateKey  string `toml:"private_key"`
}

// PeerSection is one [[peers]] entry of server-config.toml: a client this
// server is willing to accept a Hello from.
type PeerSection struct {
	Address   string `toml:"address"`
	PublicKey string `toml:"public_key"`
}

// LoadServerConfig reads and decodes path, filling in defaults for any zero
// field left unset.
func LoadServerConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("vpntun: parse %s: %w", path, err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.Ifname == "" {
		cfg.Server.Ifname = defaultIfname
	}
	if cfg.Server.MTU == 0 {
		cfg.Server.MTU = defaultMTU
	}
	if cfg.Server.PrivateKey == "" {
		cfg.Server.PrivateKey = defaultPrivKey
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerIP
	}
	if cfg.Server.BindAddress == "" {
		cfg.Server.BindAddress = "0.0.0.0"
	}

	if _, err := netip.ParseAddr(cfg.Server.Address); err != nil {
		return nil, fmt.Errorf("vpntun: invalid server.address %q: %w", cfg.Server.Address, err)
	}
	for _, p := range cfg.Peers {
		if _, err := netip.ParseAddr(p.Address); err != nil {
			return nil, fmt.Errorf("vpntun: invalid peer address %q: %w", p.Address, err)
		}
	}

	return &cfg, nil
}

// ClientConfig is the top-level client-config.toml document.
type ClientConfig struct {
	Server ClientServerSection `toml:"server"`
	Peer   ClientPeerSection   `toml:"peer"`
}

// ClientServerSection is the [server] table of client-config.toml.
type ClientServerSection struct {
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	PublicKey   string `toml:"public_key"`
}

// ClientPeerSection is the [peer] table of client-config.toml: this
// client's own TUN and socket settings.
type ClientPeerSection struct {
	Ifname      string `toml:"ifname"`
	Address     string `toml:"address"`
	PrivateKey  string `toml:"private_key"`
	BindAddress string `toml:"bind_address"`
	BindPort    int    `toml:"bind_port"`
	MTU         int    `toml:"mtu"`
}

const defaultServerPubKey = "keys/server_pubkey.der"

// LoadClientConfig reads and decodes path, filling in defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("vpntun: parse %s: %w", path, err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.PublicKey == "" {
		cfg.Server.PublicKey = defaultServerPubKey
	}
	if cfg.Peer.Ifname == "" {
		cfg.Peer.Ifname = defaultIfname
	}
	if cfg.Peer.PrivateKey == "" {
		cfg.Peer.PrivateKey = defaultPrivKey
	}
	if cfg.Peer.MTU == 0 {
		cfg.Peer.MTU = defaultMTU
	}
	if cfg.Peer.BindAddress == "" {
		cfg.Peer.BindAddress = "0.0.0.0"
	}

	if _, err := netip.ParseAddr(cfg.Server.BindAddress); err != nil {
		return nil, fmt.Errorf("vpntun: invalid server.bind_address %q: %w", cfg.Server.BindAddress, err)
	}
	if _, err := netip.ParseAddr(cfg.Peer.Address); err != nil {
		return nil, fmt.Errorf("vpntun: invalid peer.address %q: %w", cfg.Peer.Address, err)
	}

	return &cfg, nil
}
