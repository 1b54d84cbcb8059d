//go:build linux

package rawsock

import (
	"fmt"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// AttachFilter assembles prog and attaches it to s as a classic-BPF socket
// filter (SO_ATTACH_FILTER). spec.md §6 requires the socket receive every
// ethertype with "no filter at the socket level" by default; Open never
// calls this itself, so the receive set stays unfiltered unless a caller
// opts in. It exists so a future narrower deployment (e.g. filtering to a
// single VNI) has a ready attach point without touching ReadFrame/WriteFrame.
func AttachFilter(s *LinuxSocket, prog []bpf.Instruction) error {
	raw, err := bpf.Assemble(prog)
	if err != nil {
		return fmt.Errorf("rawsock: assemble bpf filter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	sockFilter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		sockFilter[i] = unix.SockFilter{
			Code: ins.Op,
			Jt:   ins.Jt,
			Jf:   ins.Jf,
			K:    ins.K,
		}
	}

	prog32 := unix.SockFprog{
		Len:    uint16(len(sockFilter)), //nolint:gosec // G115: bounded by a BPF program's own 4096-instruction limit.
		Filter: &sockFilter[0],
	}

	if err := unix.SetsockoptSockFprog(s.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog32); err != nil {
		return fmt.Errorf("rawsock: attach filter on %q: %w", s.ifName, err)
	}

	return nil
}
