package wire

import "errors"

// VXLANGPEHeaderSize is the fixed VXLAN-GPE header size (RFC 7348 Section
// 5, extended by draft-ietf-sfc-nsh-05 with the next-protocol field).
const VXLANGPEHeaderSize = 8

// NextProtoEthernet is the VXLAN-GPE Next Protocol value identifying an
// Ethernet payload (draft-ietf-sfc-nsh-05 Section 7.4), used when the
// tunnel carries NSH-over-Ethernet as this proxy does.
const NextProtoEthernet uint8 = 0x03

// ErrVXLANGPETooShort indicates a buffer shorter than VXLANGPEHeaderSize.
var ErrVXLANGPETooShort = errors.New("vxlan-gpe: buffer shorter than 8 bytes")

// VXLANGPEHeader is treated as an opaque 8-byte passthrough per spec.md
// §4.1: the proxy does not interpret flags, VNI, or next-protocol beyond
// preserving the bytes verbatim in the header bundle.
type VXLANGPEHeader struct {
	Raw [VXLANGPEHeaderSize]byte
}

// ParseVXLANGPE copies the leading 8 bytes of buf into a VXLANGPEHeader
// and returns it with the remainder of buf.
func ParseVXLANGPE(buf []byte) (VXLANGPEHeader, []byte, error) {
	if len(buf) < VXLANGPEHeaderSize {
		return VXLANGPEHeader{}, nil, ErrVXLANGPETooShort
	}

	var h VXLANGPEHeader
	copy(h.Raw[:], buf[:VXLANGPEHeaderSize])

	return h, buf[VXLANGPEHeaderSize:], nil
}

// PackVXLANGPE returns the header's raw bytes as a freshly allocated slice.
func PackVXLANGPE(h VXLANGPEHeader) []byte {
	buf := make([]byte, VXLANGPEHeaderSize)
	copy(buf, h.Raw[:])
	return buf
}
