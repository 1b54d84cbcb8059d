package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// UDPHeaderSize is the fixed UDP header size: src(2) + dst(2) + len(2) +
// checksum(2).
const UDPHeaderSize = 8

// VXLANGPEPort is the UDP destination port identifying VXLAN-GPE traffic
// carrying NSH (spec.md §4.2 step 3).
const VXLANGPEPort uint16 = 4790

// ErrUDPTooShort indicates a buffer shorter than UDPHeaderSize.
var ErrUDPTooShort = errors.New("udp: buffer shorter than 8 bytes")

// UDPHeader is the parsed UDP header.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

// ParseUDP parses the leading 8 bytes of buf as a UDP header and returns
// the header and the remainder of buf following it.
func ParseUDP(buf []byte) (UDPHeader, []byte, error) {
	if len(buf) < UDPHeaderSize {
		return UDPHeader{}, nil, fmt.Errorf("parse udp: %d bytes: %w", len(buf), ErrUDPTooShort)
	}

	h := UDPHeader{
		SrcPort:  binary.BigEndian.Uint16(buf[0:2]),
		DstPort:  binary.BigEndian.Uint16(buf[2:4]),
		Length:   binary.BigEndian.Uint16(buf[4:6]),
		Checksum: binary.BigEndian.Uint16(buf[6:8]),
	}

	return h, buf[UDPHeaderSize:], nil
}

// PackUDP encodes h into a freshly allocated 8-byte buffer.
func PackUDP(h UDPHeader) []byte {
	buf := make([]byte, UDPHeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.SrcPort)
	binary.BigEndian.PutUint16(buf[2:4], h.DstPort)
	binary.BigEndian.PutUint16(buf[4:6], h.Length)
	binary.BigEndian.PutUint16(buf[6:8], h.Checksum)
	return buf
}
