// Package session implements the flow-keyed session tables that
// remember outer encapsulation state for the reverse (encap) path
// (spec.md §3, §4.6).
package session

import "github.com/nshsfc/sfcproxy/internal/wire"

// FlowKey is the inner 7-tuple identifying a single service-function
// session (spec.md §3): Ethernet dst/src/ethertype, IPv4 dst/src, TCP
// dst/src port. It is a plain comparable struct so it can be used
// directly as a map key; equality is exact byte/integer equality, never
// approximate.
type FlowKey struct {
	EthDst     [6]byte
	EthSrc     [6]byte
	EthType    uint16
	IPDst      [4]byte
	IPSrc      [4]byte
	TCPDstPort uint16
	TCPSrcPort uint16
}

// KeyFromInner derives the inner flow key from the parsed inner
// Ethernet/IPv4/TCP headers of a de-encapsulated packet.
func KeyFromInner(eth wire.EthernetHeader, ip wire.IPv4Header, tcp wire.TCPHeader) FlowKey {
	return FlowKey{
		EthDst:     eth.Dst,
		EthSrc:     eth.Src,
		EthType:    eth.EtherType,
		IPDst:      ip.Dst,
		IPSrc:      ip.Src,
		TCPDstPort: tcp.DstPort,
		TCPSrcPort: tcp.SrcPort,
	}
}

// Swap returns the swapped key used to identify the reply direction
// (spec.md §3): Ethernet and IP addresses and TCP ports are exchanged;
// EthType is unchanged.
func (k FlowKey) Swap() FlowKey {
	return FlowKey{
		EthDst:     k.EthSrc,
		EthSrc:     k.EthDst,
		EthType:    k.EthType,
		IPDst:      k.IPSrc,
		IPSrc:      k.IPDst,
		TCPDstPort: k.TCPSrcPort,
		TCPSrcPort: k.TCPDstPort,
	}
}
