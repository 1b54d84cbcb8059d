package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EthernetHeaderSize is the fixed Ethernet II header size: dst(6) + src(6)
// + ethertype(2). No 802.1Q tag handling (spec.md Non-goals).
const EthernetHeaderSize = 14

const (
	// EtherTypeIPv4 identifies an IPv4 payload.
	EtherTypeIPv4 uint16 = 0x0800

	// EtherTypeIPv6 identifies an IPv6 payload (not supported; used only
	// to recognize and drop IPv6 ingress per spec.md scenario 4).
	EtherTypeIPv6 uint16 = 0x86DD

	// EtherTypeNSH is the ethertype of the inner Ethernet header that
	// directly precedes the NSH header (draft-ietf-sfc-nsh-05).
	EtherTypeNSH uint16 = 0x894F
)

// ErrEthernetTooShort indicates a buffer shorter than EthernetHeaderSize.
var ErrEthernetTooShort = errors.New("ethernet: buffer shorter than 14 bytes")

// EthernetHeader is the parsed Ethernet II header.
type EthernetHeader struct {
	Dst       [6]byte
	Src       [6]byte
	EtherType uint16
}

// ParseEthernet parses the leading 14 bytes of buf as an Ethernet header
// and returns the header and the remainder of buf following it.
func ParseEthernet(buf []byte) (EthernetHeader, []byte, error) {
	if len(buf) < EthernetHeaderSize {
		return EthernetHeader{}, nil, fmt.Errorf("parse ethernet: %d bytes: %w", len(buf), ErrEthernetTooShort)
	}

	var h EthernetHeader
	copy(h.Dst[:], buf[0:6])
	copy(h.Src[:], buf[6:12])
	h.EtherType = binary.BigEndian.Uint16(buf[12:14])

	return h, buf[EthernetHeaderSize:], nil
}

// PackEthernet encodes h into a freshly allocated 14-byte buffer.
func PackEthernet(h EthernetHeader) []byte {
	buf := make([]byte, EthernetHeaderSize)
	copy(buf[0:6], h.Dst[:])
	copy(buf[6:12], h.Src[:])
	binary.BigEndian.PutUint16(buf[12:14], h.EtherType)
	return buf
}

// SwapEthernet returns a copy of h with Dst and Src exchanged.
func SwapEthernet(h EthernetHeader) EthernetHeader {
	return EthernetHeader{Dst: h.Src, Src: h.Dst, EtherType: h.EtherType}
}
