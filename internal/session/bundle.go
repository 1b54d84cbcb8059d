package session

import "github.com/nshsfc/sfcproxy/internal/wire"

// Bundle is the header bundle stored in the session table (spec.md §3):
// the six preserved outer byte slices, held separately and declared in
// wire order; the rebuild path concatenates them. Each slice is an owned
// copy — the source buffer may be reused by the next
// receive before this bundle is replayed.
type Bundle struct {
	OuterEth []byte
	OuterIP  []byte
	UDP      []byte
	VXLAN    []byte
	NSHEth   []byte
	NSH      []byte
}

// NewBundle copies the six outer-header byte ranges out of a parsed
// encapsulated frame into an owned Bundle.
func NewBundle(ef *wire.EncapsulatedFrame) Bundle {
	return Bundle{
		OuterEth: cloneBytes(ef.OuterEthRaw),
		OuterIP:  cloneBytes(ef.OuterIPRaw),
		UDP:      cloneBytes(ef.UDPRaw),
		VXLAN:    cloneBytes(ef.VXLANRaw),
		NSHEth:   cloneBytes(ef.NSHEthRaw),
		NSH:      cloneBytes(ef.NSHRaw),
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
