package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TCPMinHeaderSize is the fixed TCP header size with no options.
const TCPMinHeaderSize = 20

// Sentinel errors for TCP parsing.
var (
	ErrTCPTooShort = errors.New("tcp: buffer shorter than declared header length")
)

// TCPHeader is the parsed TCP header. Options and padding (if any) are
// returned separately by ParseTCP rather than modeled as fields; the
// proxy passes them through verbatim.
type TCPHeader struct {
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffRsv uint8 // high nibble: data offset in 32-bit words
	Flags      uint8
	Window     uint16
	Checksum   uint16
	Urgent     uint16
	HeaderLen  int // derived from the data offset field, in bytes
}

// DataOffset returns the TCP header length in bytes:
// ((byte_12 >> 4) & 0x0F) * 4, per spec.md's TCP codec description.
func DataOffset(byte12 byte) int {
	return int((byte12>>4)&0x0F) * 4
}

// ParseTCP parses a TCP header from the front of buf. It returns the
// header, the options+padding slice (HeaderLen-20 bytes, possibly
// empty), and the payload following the full header.
func ParseTCP(buf []byte) (TCPHeader, []byte, []byte, error) {
	if len(buf) < TCPMinHeaderSize {
		return TCPHeader{}, nil, nil, fmt.Errorf("parse tcp: %d bytes: %w", len(buf), ErrTCPTooShort)
	}

	hlen := DataOffset(buf[12])
	if hlen < TCPMinHeaderSize || len(buf) < hlen {
		return TCPHeader{}, nil, nil, fmt.Errorf("parse tcp: header length %d, have %d: %w", hlen, len(buf), ErrTCPTooShort)
	}

	h := TCPHeader{
		SrcPort:    binary.BigEndian.Uint16(buf[0:2]),
		DstPort:    binary.BigEndian.Uint16(buf[2:4]),
		Seq:        binary.BigEndian.Uint32(buf[4:8]),
		Ack:        binary.BigEndian.Uint32(buf[8:12]),
		DataOffRsv: buf[12],
		Flags:      buf[13],
		Window:     binary.BigEndian.Uint16(buf[14:16]),
		Checksum:   binary.BigEndian.Uint16(buf[16:18]),
		Urgent:     binary.BigEndian.Uint16(buf[18:20]),
		HeaderLen:  hlen,
	}

	return h, buf[TCPMinHeaderSize:hlen], buf[hlen:], nil
}

// PackTCP encodes h, options, and payload into a single freshly allocated
// buffer. If h.HeaderLen is smaller than TCPMinHeaderSize+len(options),
// it is corrected to fit.
func PackTCP(h TCPHeader, options, payload []byte) []byte {
	hlen := TCPMinHeaderSize + len(options)
	if h.HeaderLen > hlen {
		hlen = h.HeaderLen
	}

	buf := make([]byte, hlen+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(buf[2:4], h.DstPort)
	binary.BigEndian.PutUint32(buf[4:8], h.Seq)
	binary.BigEndian.PutUint32(buf[8:12], h.Ack)
	buf[12] = h.DataOffRsv
	buf[13] = h.Flags
	binary.BigEndian.PutUint16(buf[14:16], h.Window)
	binary.BigEndian.PutUint16(buf[16:18], h.Checksum)
	binary.BigEndian.PutUint16(buf[18:20], h.Urgent)
	copy(buf[TCPMinHeaderSize:], options)
	copy(buf[hlen:], payload)

	return buf
}

// PseudoHeader builds the 12-byte IPv4 pseudo-header used by the TCP
// checksum (RFC 793): src(4) + dst(4) + zero(1) + protocol(1) + tcpLength(2).
func PseudoHeader(src, dst [4]byte, tcpLength uint16) []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], src[:])
	copy(buf[4:8], dst[:])
	buf[8] = 0
	buf[9] = ProtocolTCP
	binary.BigEndian.PutUint16(buf[10:12], tcpLength)
	return buf
}

// TCPChecksum computes the TCP checksum over the pseudo-header, the full
// TCP header (with the checksum field zeroed), options, and payload, per
// spec.md's RFC 793 rule: tcp_length = |header| + |options| + |payload|.
func TCPChecksum(h TCPHeader, options, payload []byte, src, dst [4]byte) uint16 {
	h.Checksum = 0

	tcpLength := uint16(TCPMinHeaderSize + len(options) + len(payload)) //nolint:gosec // G115: bounded by IPv4 total length.
	pseudo := PseudoHeader(src, dst, tcpLength)
	segment := PackTCP(h, options, payload)

	buf := make([]byte, 0, len(pseudo)+len(segment))
	buf = append(buf, pseudo...)
	buf = append(buf, segment...)

	return Checksum(buf)
}
