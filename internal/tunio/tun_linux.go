//go:build linux

// Package tunio opens and configures the TUN network device both
// executables read and write plaintext IPv4 packets from.
package tunio

import (
	"fmt"
	"net/netip"
	"os"
	"os/exec"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"vpntun/internal/vpnerr"
)

const (
	ifNameSize = 16
	tunSetIff  = 0x400454ca
	iffTun     = 0x0001
	iffNoPi    = 0x1000
)

type ifReq struct {
	Name  [ifNameSize]byte
	Flags uint16
	_     [22]byte
}

// Device is an open TUN file descriptor; Read/Write move whole IPv4 packets.
type Device struct {
	file *os.File
	name string
}

// Open creates (if absent) and opens the TUN interface ifName, assigns addr
// with a /24 mask, sets mtu, and brings the link up, in that order, before
// handing the descriptor back to the caller.
func Open(ifName string, addr netip.Addr, mtu int) (*Device, error) {
	file, err := os.OpenFile("/dev/net/tun", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("vpntun: open /dev/net/tun: %w", err)
	}

	var req ifReq
	copy(req.Name[:], ifName)
	req.Flags = iffTun | iffNoPi

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), uintptr(tunSetIff), uintptr(unsafe.Pointer(&req))); errno != 0 {
		_ = file.Close()
		return nil, fmt.Errorf("%w: TUNSETIFF %s: %w", vpnerr.ErrSetup, ifName, errno)
	}

	if err := runIP("addr", "add", fmt.Sprintf("%s/24", addr), "dev", ifName); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := runIP("link", "set", "dev", ifName, "mtu", fmt.Sprintf("%d", mtu)); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := runIP("link", "set", "dev", ifName, "up"); err != nil {
		_ = file.Close()
		return nil, err
	}

	return &Device{file: file, name: ifName}, nil
}

// Name returns the interface name the device was opened with.
func (d *Device) Name() string { return d.name }

// Read reads one IPv4 packet into buf.
func (d *Device) Read(buf []byte) (int, error) {
	return d.file.Read(buf)
}

// Write writes one IPv4 packet.
func (d *Device) Write(packet []byte) (int, error) {
	return d.file.Write(packet)
}

// Close closes the underlying file descriptor. It does not tear down the
// interface itself; the kernel removes a TUN device it created once its last
// file descriptor closes.
func (d *Device) Close() error {
	return d.file.Close()
}

func runIP(args ...string) error {
	cmd := exec.Command("ip", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: ip %s: %w (%s)", vpnerr.ErrSetup, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
