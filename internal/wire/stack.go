package wire

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stacked frame parser (spec.md §4.2). Each
// corresponds to one precondition in the descent; callers drop the
// frame silently on any of these (spec.md §7: "parse-mismatch").
var (
	ErrNotIPv4        = errors.New("stack: outer ethertype is not IPv4")
	ErrNotUDP         = errors.New("stack: outer IP protocol is not UDP")
	ErrNotVXLANGPE    = errors.New("stack: UDP destination port is not 4790")
	ErrNotNSHEthernet = errors.New("stack: inner ethertype is not NSH (0x894F)")
	ErrInnerNotIPv4   = errors.New("stack: payload ethertype is not IPv4")
	ErrInnerNotTCP    = errors.New("stack: inner IP protocol is not TCP")
)

// EncapsulatedFrame holds every layer of the stacked header chain parsed
// from a single encapsulated frame received on the encap interface
// (spec.md §4.2), as slices referencing the original buffer — no copy is
// made until replay.
type EncapsulatedFrame struct {
	OuterEth EthernetHeader
	OuterIP  IPv4Header
	UDP      UDPHeader
	VXLAN    VXLANGPEHeader
	NSHEth   EthernetHeader
	NSH      NSHHeader
	InnerEth EthernetHeader
	InnerIP  IPv4Header
	TCP      TCPHeader

	// Raw byte ranges of the original frame, preserved verbatim for the
	// header bundle (spec.md §3) and for re-extracting the inner frame.
	OuterEthRaw []byte
	OuterIPRaw  []byte
	UDPRaw      []byte
	VXLANRaw    []byte
	NSHEthRaw   []byte
	NSHRaw      []byte

	// Inner is the de-encapsulated frame: inner Ethernet through the TCP
	// payload, i.e. everything from step 7 onward (spec.md §4.3 step 4).
	Inner []byte

	TCPOptions []byte
	Payload    []byte
}

// ParseStack descends an encapsulated frame through the full stacked
// header chain: Ethernet -> IPv4 -> UDP -> VXLAN-GPE -> inner Ethernet
// (NSH ethertype) -> NSH -> inner Ethernet -> inner IPv4 -> inner TCP,
// exactly as spec.md §4.2 enumerates. Any unmet precondition returns an
// error and no partial result; the caller drops the frame.
func ParseStack(frame []byte) (*EncapsulatedFrame, error) {
	rest := frame

	outerEth, rest, err := ParseEthernet(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: outer ethernet: %w", err)
	}
	if outerEth.EtherType != EtherTypeIPv4 {
		return nil, fmt.Errorf("parse stack: ethertype=0x%04x: %w", outerEth.EtherType, ErrNotIPv4)
	}

	outerIP, rest, err := ParseIPv4(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: outer ipv4: %w", err)
	}
	if outerIP.Protocol != ProtocolUDP {
		return nil, fmt.Errorf("parse stack: ip protocol=%d: %w", outerIP.Protocol, ErrNotUDP)
	}

	udp, rest, err := ParseUDP(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: udp: %w", err)
	}
	if udp.DstPort != VXLANGPEPort {
		return nil, fmt.Errorf("parse stack: udp dst port=%d: %w", udp.DstPort, ErrNotVXLANGPE)
	}

	vxlan, rest, err := ParseVXLANGPE(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: vxlan-gpe: %w", err)
	}

	nshEth, rest, err := ParseEthernet(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: nsh ethernet: %w", err)
	}
	if nshEth.EtherType != EtherTypeNSH {
		return nil, fmt.Errorf("parse stack: inner ethertype=0x%04x: %w", nshEth.EtherType, ErrNotNSHEthernet)
	}

	nsh, rest, err := ParseNSH(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: nsh: %w", err)
	}

	// rest now begins at the payload-carrying inner Ethernet (step 7).
	innerStart := len(frame) - len(rest)
	inner := frame[innerStart:]

	innerEth, rest, err := ParseEthernet(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: inner ethernet: %w", err)
	}
	if innerEth.EtherType != EtherTypeIPv4 {
		return nil, fmt.Errorf("parse stack: inner ethertype=0x%04x: %w", innerEth.EtherType, ErrInnerNotIPv4)
	}

	innerIP, rest, err := ParseIPv4(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: inner ipv4: %w", err)
	}
	if innerIP.Protocol != ProtocolTCP {
		return nil, fmt.Errorf("parse stack: inner ip protocol=%d: %w", innerIP.Protocol, ErrInnerNotTCP)
	}

	tcp, tcpOpts, payload, err := ParseTCP(rest)
	if err != nil {
		return nil, fmt.Errorf("parse stack: inner tcp: %w", err)
	}

	ef := &EncapsulatedFrame{
		OuterEth: outerEth,
		OuterIP:  outerIP,
		UDP:      udp,
		VXLAN:    vxlan,
		NSHEth:   nshEth,
		NSH:      nsh,
		InnerEth: innerEth,
		InnerIP:  innerIP,
		TCP:      tcp,

		OuterEthRaw: frame[0:EthernetHeaderSize],
		OuterIPRaw:  frame[EthernetHeaderSize : EthernetHeaderSize+outerIP.HeaderLen],
		Inner:       inner,
		TCPOptions:  tcpOpts,
		Payload:     payload,
	}

	udpOff := EthernetHeaderSize + outerIP.HeaderLen
	ef.UDPRaw = frame[udpOff : udpOff+UDPHeaderSize]

	vxlanOff := udpOff + UDPHeaderSize
	ef.VXLANRaw = frame[vxlanOff : vxlanOff+VXLANGPEHeaderSize]

	nshEthOff := vxlanOff + VXLANGPEHeaderSize
	ef.NSHEthRaw = frame[nshEthOff : nshEthOff+EthernetHeaderSize]

	nshOff := nshEthOff + EthernetHeaderSize
	ef.NSHRaw = frame[nshOff : nshOff+NSHHeaderSize]

	return ef, nil
}

// BareFrame holds the layers parsed from a bare (non-encapsulated) frame
// observed on unencap-in or unencap-out (spec.md §4.4 step 1).
type BareFrame struct {
	Eth EthernetHeader
	IP  IPv4Header
	TCP TCPHeader
}

// ErrBareNotIPv4 and ErrBareNotTCP mirror the stacked parser's errors for
// the bare (service-function-emitted) frame path.
var (
	ErrBareNotIPv4 = errors.New("bare frame: ethertype is not IPv4")
	ErrBareNotTCP  = errors.New("bare frame: ip protocol is not TCP")
)

// ParseBare parses Ethernet/IPv4/TCP only — the shape of a frame the
// service function emits with no outer encapsulation (spec.md §4.4
// step 1-2).
func ParseBare(frame []byte) (*BareFrame, error) {
	eth, rest, err := ParseEthernet(frame)
	if err != nil {
		return nil, fmt.Errorf("parse bare: ethernet: %w", err)
	}
	if eth.EtherType != EtherTypeIPv4 {
		return nil, fmt.Errorf("parse bare: ethertype=0x%04x: %w", eth.EtherType, ErrBareNotIPv4)
	}

	ip, rest, err := ParseIPv4(rest)
	if err != nil {
		return nil, fmt.Errorf("parse bare: ipv4: %w", err)
	}
	if ip.Protocol != ProtocolTCP {
		return nil, fmt.Errorf("parse bare: ip protocol=%d: %w", ip.Protocol, ErrBareNotTCP)
	}

	tcp, _, _, err := ParseTCP(rest)
	if err != nil {
		return nil, fmt.Errorf("parse bare: tcp: %w", err)
	}

	return &BareFrame{Eth: eth, IP: ip, TCP: tcp}, nil
}
