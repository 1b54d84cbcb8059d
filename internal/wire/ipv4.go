package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// IPv4MinHeaderSize is the smallest legal IPv4 header (IHL=5, no options).
const IPv4MinHeaderSize = 20

// ProtocolUDP and ProtocolTCP are the IPv4 protocol numbers this proxy
// recognizes on the outer (UDP/VXLAN-GPE) and inner (TCP) legs.
const (
	ProtocolUDP uint8 = 17
	ProtocolTCP uint8 = 6
)

// Sentinel errors for IPv4 parsing.
var (
	ErrIPv4TooShort   = errors.New("ipv4: buffer shorter than declared header length")
	ErrIPv4BadVersion = errors.New("ipv4: version field is not 4")
)

// IPv4Header is the parsed IPv4 header. Options (if any) are not modeled
// separately; HeaderLen records the on-wire header length so callers can
// locate the payload. The proxy never emits options itself.
type IPv4Header struct {
	VerIHLTOS    uint16 // high byte: version(4)|IHL(4); low byte: DSCP/ECN
	TotalLength  uint16
	ID           uint16
	FlagsFragOff uint16
	TTL          uint8
	Protocol     uint8
	Checksum     uint16
	Src          [4]byte
	Dst          [4]byte
	HeaderLen    int // derived from IHL, in bytes
}

// IHL returns the header length in bytes: (first byte & 0x0F) * 4, per
// spec.md's IPv4 codec description.
func IHL(firstByte byte) int {
	return int(firstByte&0x0F) * 4
}

// ParseIPv4 parses an IPv4 header from the front of buf, stripping
// exactly IHL*4 bytes regardless of the 20-byte fixed-field layout (any
// option bytes are skipped, not retained). Returns the header and the
// remainder of buf after the full (possibly option-bearing) header.
func ParseIPv4(buf []byte) (IPv4Header, []byte, error) {
	if len(buf) < 1 {
		return IPv4Header{}, nil, fmt.Errorf("parse ipv4: empty buffer: %w", ErrIPv4TooShort)
	}

	version := buf[0] >> 4
	if version != 4 {
		return IPv4Header{}, nil, fmt.Errorf("parse ipv4: version=%d: %w", version, ErrIPv4BadVersion)
	}

	hlen := IHL(buf[0])
	if hlen < IPv4MinHeaderSize || len(buf) < hlen {
		return IPv4Header{}, nil, fmt.Errorf("parse ipv4: header length %d, have %d: %w", hlen, len(buf), ErrIPv4TooShort)
	}

	var h IPv4Header
	h.VerIHLTOS = binary.BigEndian.Uint16(buf[0:2])
	h.TotalLength = binary.BigEndian.Uint16(buf[2:4])
	h.ID = binary.BigEndian.Uint16(buf[4:6])
	h.FlagsFragOff = binary.BigEndian.Uint16(buf[6:8])
	h.TTL = buf[8]
	h.Protocol = buf[9]
	h.Checksum = binary.BigEndian.Uint16(buf[10:12])
	copy(h.Src[:], buf[12:16])
	copy(h.Dst[:], buf[16:20])
	h.HeaderLen = hlen

	return h, buf[hlen:], nil
}

// PackIPv4 encodes h into a freshly allocated buffer of h.HeaderLen bytes
// (defaulting to IPv4MinHeaderSize when HeaderLen is unset). Any option
// bytes beyond the 20-byte fixed fields are left zeroed.
func PackIPv4(h IPv4Header) []byte {
	hlen := h.HeaderLen
	if hlen < IPv4MinHeaderSize {
		hlen = IPv4MinHeaderSize
	}

	buf := make([]byte, hlen)
	binary.BigEndian.PutUint16(buf[0:2], h.VerIHLTOS)
	binary.BigEndian.PutUint16(buf[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(buf[4:6], h.ID)
	binary.BigEndian.PutUint16(buf[6:8], h.FlagsFragOff)
	buf[8] = h.TTL
	buf[9] = h.Protocol
	binary.BigEndian.PutUint16(buf[10:12], h.Checksum)
	copy(buf[12:16], h.Src[:])
	copy(buf[16:20], h.Dst[:])

	return buf
}

// SwapIPv4 returns a copy of h with Src and Dst exchanged. The checksum
// field is left untouched: per spec.md's Open Question on outer-IP
// checksum replay, swapping src/dst preserves the 16-bit one's-
// complement sum, so the stored checksum remains valid without
// recomputation.
func SwapIPv4(h IPv4Header) IPv4Header {
	h.Src, h.Dst = h.Dst, h.Src
	return h
}

// RewriteTotalLength returns a copy of h with TotalLength set to n and
// the header checksum recomputed over the HeaderLen-byte header with the
// checksum field zeroed first, per RFC 1071.
func RewriteTotalLength(h IPv4Header, n uint16) IPv4Header {
	h.TotalLength = n
	h.Checksum = 0

	buf := PackIPv4(h)
	h.Checksum = Checksum(buf)

	return h
}
