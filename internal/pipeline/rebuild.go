package pipeline

import (
	"fmt"

	"github.com/nshsfc/sfcproxy/internal/session"
	"github.com/nshsfc/sfcproxy/internal/wire"
)

// rebuildForward reassembles the outbound encapsulated frame for the
// Encap pipeline's forward replay (spec.md §4.4 step 5): outer Ethernet
// and outer IPv4 address-swapped (checksum left untouched per spec.md
// §9), UDP/VXLAN-GPE/NSH-ethernet verbatim, NSH Service Index
// decremented once, followed by the entire observed bare frame.
func rebuildForward(b session.Bundle, observed []byte) ([]byte, error) {
	outerEth, _, err := wire.ParseEthernet(b.OuterEth)
	if err != nil {
		return nil, fmt.Errorf("rebuild forward: outer ethernet: %w", err)
	}
	outerEth = wire.SwapEthernet(outerEth)

	outerIP, _, err := wire.ParseIPv4(b.OuterIP)
	if err != nil {
		return nil, fmt.Errorf("rebuild forward: outer ipv4: %w", err)
	}
	outerIP = wire.SwapIPv4(outerIP)

	nsh, _, err := wire.ParseNSH(b.NSH)
	if err != nil {
		return nil, fmt.Errorf("rebuild forward: nsh: %w", err)
	}
	nsh, err = wire.DecrementSI(nsh)
	if err != nil {
		return nil, fmt.Errorf("rebuild forward: %w", err)
	}

	out := make([]byte, 0, len(b.OuterEth)+len(b.OuterIP)+len(b.UDP)+len(b.VXLAN)+len(b.NSHEth)+wire.NSHHeaderSize+len(observed))
	out = append(out, wire.PackEthernet(outerEth)...)
	out = append(out, wire.PackIPv4(outerIP)...)
	out = append(out, b.UDP...)
	out = append(out, b.VXLAN...)
	out = append(out, b.NSHEth...)
	out = append(out, wire.PackNSH(nsh)...)
	out = append(out, observed...)

	return out, nil
}

// rebuildReverse reassembles the outbound encapsulated frame for the
// Reverse-encap pipeline's reply replay (spec.md §4.5): outer Ethernet
// and the inner NSH-carrying Ethernet are both address-swapped; outer
// IPv4, UDP, and VXLAN-GPE are replayed verbatim from the bundle. The
// NSH Service Index is decremented once.
func rebuildReverse(b session.Bundle, observed []byte) ([]byte, error) {
	outerEth, _, err := wire.ParseEthernet(b.OuterEth)
	if err != nil {
		return nil, fmt.Errorf("rebuild reverse: outer ethernet: %w", err)
	}
	outerEth = wire.SwapEthernet(outerEth)

	nshEth, _, err := wire.ParseEthernet(b.NSHEth)
	if err != nil {
		return nil, fmt.Errorf("rebuild reverse: nsh ethernet: %w", err)
	}
	nshEth = wire.SwapEthernet(nshEth)

	nsh, _, err := wire.ParseNSH(b.NSH)
	if err != nil {
		return nil, fmt.Errorf("rebuild reverse: nsh: %w", err)
	}
	nsh, err = wire.DecrementSI(nsh)
	if err != nil {
		return nil, fmt.Errorf("rebuild reverse: %w", err)
	}

	out := make([]byte, 0, len(b.OuterEth)+len(b.OuterIP)+len(b.UDP)+len(b.VXLAN)+len(b.NSHEth)+wire.NSHHeaderSize+len(observed))
	out = append(out, wire.PackEthernet(outerEth)...)
	out = append(out, b.OuterIP...)
	out = append(out, b.UDP...)
	out = append(out, b.VXLAN...)
	out = append(out, wire.PackEthernet(nshEth)...)
	out = append(out, wire.PackNSH(nsh)...)
	out = append(out, observed...)

	return out, nil
}
