package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// NSHHeaderSize is the fixed MD-Type 1 NSH size: 8-byte base header plus
// four 32-bit context words (draft-ietf-sfc-nsh-05, 24 bytes total).
const NSHHeaderSize = 24

// MDType1 is the only Base Header MD Type this proxy supports (spec.md
// Non-goals excludes MD-Type 2).
const MDType1 uint8 = 1

// ErrNSHTooShort indicates a buffer shorter than NSHHeaderSize.
var ErrNSHTooShort = errors.New("nsh: buffer shorter than 24 bytes")

// ErrNSHSIUnderflow indicates DecrementSI was asked to decrement a
// Service Index already at zero. spec.md §9 leaves this behavior an
// open question; this implementation's resolution (documented in
// DESIGN.md) is to return the error rather than wrap or silently clamp.
var ErrNSHSIUnderflow = errors.New("nsh: service index underflow at SI=0")

// NSHHeader is the parsed NSH MD-Type 1 header.
type NSHHeader struct {
	FlagsLength uint16
	MDType      uint8
	NextProto   uint8
	SPH         uint32 // Service Path Header: SPI in upper 24 bits, SI in lower 8
	Ctx         [4]uint32
}

// ParseNSH parses the leading 24 bytes of buf as an NSH MD-Type 1 header
// and returns the header and the remainder of buf following it.
func ParseNSH(buf []byte) (NSHHeader, []byte, error) {
	if len(buf) < NSHHeaderSize {
		return NSHHeader{}, nil, fmt.Errorf("parse nsh: %d bytes: %w", len(buf), ErrNSHTooShort)
	}

	h := NSHHeader{
		FlagsLength: binary.BigEndian.Uint16(buf[0:2]),
		MDType:      buf[2],
		NextProto:   buf[3],
		SPH:         binary.BigEndian.Uint32(buf[4:8]),
	}
	for i := range h.Ctx {
		off := 8 + i*4
		h.Ctx[i] = binary.BigEndian.Uint32(buf[off : off+4])
	}

	return h, buf[NSHHeaderSize:], nil
}

// PackNSH encodes h into a freshly allocated 24-byte buffer.
func PackNSH(h NSHHeader) []byte {
	buf := make([]byte, NSHHeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.FlagsLength)
	buf[2] = h.MDType
	buf[3] = h.NextProto
	binary.BigEndian.PutUint32(buf[4:8], h.SPH)
	for i, w := range h.Ctx {
		off := 8 + i*4
		binary.BigEndian.PutUint32(buf[off:off+4], w)
	}

	return buf
}

// SPI returns the 24-bit Service Path Identifier from the SPH field.
func (h NSHHeader) SPI() uint32 {
	return h.SPH >> 8
}

// SI returns the 8-bit Service Index from the SPH field.
func (h NSHHeader) SI() uint8 {
	return uint8(h.SPH & 0xFF) //nolint:gosec // G115: masked to one byte.
}

// WithSPH packs spi into the upper 24 bits and si into the lower 8 bits
// of a Service Path Header value.
func WithSPH(spi uint32, si uint8) uint32 {
	return (spi << 8) | uint32(si)
}

// DecrementSI returns a copy of h with its Service Index decremented by
// one. If SI is already zero, it returns ErrNSHSIUnderflow instead of
// wrapping to 255 or clamping — spec.md §9 explicitly forbids silent
// wraparound and leaves the choice of clamp/drop/error to the
// implementer; this proxy drops the frame (see internal/pipeline),
// which is driven by propagating this error to the caller.
func DecrementSI(h NSHHeader) (NSHHeader, error) {
	si := h.SI()
	if si == 0 {
		return NSHHeader{}, ErrNSHSIUnderflow
	}

	h.SPH = WithSPH(h.SPI(), si-1)
	return h, nil
}
