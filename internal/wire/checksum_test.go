package wire_test

import (
	"testing"

	"github.com/nshsfc/sfcproxy/internal/wire"
)

func TestChecksumKnownVector(t *testing.T) {
	t.Parallel()

	// RFC 1071 Section 3 worked example.
	buf := []byte{0x00, 0x01, 0xF2, 0x03, 0xF4, 0xF5, 0xF6, 0xF7}
	want := uint16(0x220D)

	if got := wire.Checksum(buf); got != want {
		t.Errorf("Checksum(%x) = 0x%04x, want 0x%04x", buf, got, want)
	}
}

func TestChecksumOddLength(t *testing.T) {
	t.Parallel()

	even := []byte{0x12, 0x34, 0x56, 0x78}
	odd := []byte{0x12, 0x34, 0x56, 0x78, 0x00}

	if wire.Checksum(even) != wire.Checksum(odd) {
		t.Error("Checksum of buffer with trailing zero byte should match the padded even-length checksum")
	}
}

func TestChecksumSelfValidates(t *testing.T) {
	t.Parallel()

	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x12, 0x34}
	sum := wire.Checksum(data)

	buf := make([]byte, len(data)+2)
	copy(buf, data)
	buf[len(data)] = byte(sum >> 8)
	buf[len(data)+1] = byte(sum)

	if got := wire.Checksum(buf); got != 0 {
		t.Errorf("Checksum with appended checksum field = 0x%04x, want 0", got)
	}
}
