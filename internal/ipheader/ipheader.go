// Package ipheader extracts the source/destination addresses a sealed
// packet needs as AAD straight from the inner IPv4 packet, without fully
// parsing it.
package ipheader

import (
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"
)

// Addresses returns the source and destination of an IPv4 packet. Only
// version 4 is supported; this tunnel carries IPv4 traffic only.
func Addresses(packet []byte) (source, destination netip.Addr, err error) {
	if len(packet) < ipv4.HeaderLen {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("vpntun: short ipv4 header: %d bytes", len(packet))
	}
	if ver := packet[0] >> 4; ver != 4 {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("vpntun: unsupported ip version %d", ver)
	}
	ihl := int(packet[0]&0x0F) * 4
	if ihl < ipv4.HeaderLen || len(packet) < ihl {
		return netip.Addr{}, netip.Addr{}, fmt.Errorf("vpntun: invalid ipv4 IHL %d", ihl)
	}
	source = netip.AddrFrom4([4]byte{packet[12], packet[13], packet[14], packet[15]})
	destination = netip.AddrFrom4([4]byte{packet[16], packet[17], packet[18], packet[19]})
	return source, destination, nil
}
