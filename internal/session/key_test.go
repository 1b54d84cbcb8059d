package session_test

import (
	"testing"

	"github.com/nshsfc/sfcproxy/internal/session"
	"github.com/nshsfc/sfcproxy/internal/wire"
)

func TestKeyFromInner(t *testing.T) {
	t.Parallel()

	eth := wire.EthernetHeader{
		Dst:       [6]byte{1, 2, 3, 4, 5, 6},
		Src:       [6]byte{6, 5, 4, 3, 2, 1},
		EtherType: wire.EtherTypeIPv4,
	}
	ip := wire.IPv4Header{Src: [4]byte{10, 0, 0, 1}, Dst: [4]byte{10, 0, 0, 2}}
	tcp := wire.TCPHeader{SrcPort: 1234, DstPort: 80}

	k := session.KeyFromInner(eth, ip, tcp)

	if k.EthDst != eth.Dst || k.EthSrc != eth.Src {
		t.Errorf("key ethernet fields do not match source header")
	}
	if k.IPDst != ip.Dst || k.IPSrc != ip.Src {
		t.Errorf("key IP fields do not match source header")
	}
	if k.TCPDstPort != tcp.DstPort || k.TCPSrcPort != tcp.SrcPort {
		t.Errorf("key TCP fields do not match source header")
	}
}

func TestFlowKeySwapRoundTrip(t *testing.T) {
	t.Parallel()

	k := session.FlowKey{
		EthDst:     [6]byte{1, 1, 1, 1, 1, 1},
		EthSrc:     [6]byte{2, 2, 2, 2, 2, 2},
		EthType:    wire.EtherTypeIPv4,
		IPDst:      [4]byte{10, 0, 0, 1},
		IPSrc:      [4]byte{10, 0, 0, 2},
		TCPDstPort: 80,
		TCPSrcPort: 54321,
	}

	swapped := k.Swap()
	if swapped.EthDst != k.EthSrc || swapped.EthSrc != k.EthDst {
		t.Errorf("Swap did not exchange Ethernet addresses")
	}
	if swapped.IPDst != k.IPSrc || swapped.IPSrc != k.IPDst {
		t.Errorf("Swap did not exchange IP addresses")
	}
	if swapped.TCPDstPort != k.TCPSrcPort || swapped.TCPSrcPort != k.TCPDstPort {
		t.Errorf("Swap did not exchange TCP ports")
	}
	if swapped.EthType != k.EthType {
		t.Errorf("Swap changed EthType")
	}

	if back := swapped.Swap(); back != k {
		t.Errorf("double Swap = %+v, want %+v", back, k)
	}
}

func TestFlowKeyEquality(t *testing.T) {
	t.Parallel()

	a := session.FlowKey{TCPSrcPort: 1, TCPDstPort: 2}
	b := session.FlowKey{TCPSrcPort: 1, TCPDstPort: 2}
	c := session.FlowKey{TCPSrcPort: 1, TCPDstPort: 3}

	if a != b {
		t.Error("identical keys compared unequal")
	}
	if a == c {
		t.Error("distinct keys compared equal")
	}

	m := map[session.FlowKey]bool{a: true}
	if !m[b] {
		t.Error("FlowKey not usable as a map key across equal values")
	}
}
