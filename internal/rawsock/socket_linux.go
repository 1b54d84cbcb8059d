//go:build linux

package rawsock

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// minRecvBuf is the minimum SO_RCVBUF the proxy requests on every bound
// interface (spec.md §7: "SO_RCVBUF sized comfortably above one MTU's
// worth of frames").
const minRecvBuf = 1 << 16 // 65536

// htons swaps the two bytes of v unconditionally, which is the
// host-to-network conversion on a little-endian host. AF_PACKET's
// sll_protocol and the socket() protocol argument are both expected in
// network byte order.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// LinuxSocket is a Socket backed by an AF_PACKET/SOCK_RAW file descriptor
// bound to a single named interface, receiving every ethertype
// (ETH_P_ALL) with no kernel-side filtering (spec.md §4.1: "the proxy
// itself performs every classification step").
type LinuxSocket struct {
	fd     int
	ifName string

	mu     sync.Mutex
	closed bool
}

// Open binds a new raw socket to the named interface. The socket receives
// and may transmit every Ethernet frame observed on that interface.
func Open(ifName string) (*LinuxSocket, error) {
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("rawsock: resolve interface %q: %w", ifName, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("rawsock: socket(AF_PACKET, SOCK_RAW) on %q: %w", ifName, err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rawsock: bind to %q (ifindex %d): %w", ifName, iface.Index, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, minRecvBuf); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("rawsock: set SO_RCVBUF on %q: %w", ifName, err)
	}

	return &LinuxSocket{fd: fd, ifName: ifName}, nil
}

// ReadFrame reads a single frame off the socket.
func (s *LinuxSocket) ReadFrame(buf []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			if s.isClosed() || errors.Is(err, unix.EBADF) {
				return 0, ErrClosed
			}
			return 0, fmt.Errorf("rawsock: read on %q: %w", s.ifName, err)
		}
		return n, nil
	}
}

func (s *LinuxSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WriteFrame transmits frame in full on the bound interface, retrying
// with the unsent suffix until the whole frame is drained (spec.md §7).
// Safe for concurrent callers: writes are serialized under s.mu, since
// the encap interface's socket is shared between the Encap and
// Reverse-encap pipelines (spec.md §5).
func (s *LinuxSocket) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	remaining := frame
	for len(remaining) > 0 {
		n, err := unix.Write(s.fd, remaining)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("rawsock: write on %q: %w", s.ifName, err)
		}
		remaining = remaining[n:]
	}

	return nil
}

// Close closes the underlying file descriptor. Close is idempotent.
func (s *LinuxSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("rawsock: close %q: %w", s.ifName, err)
	}
	return nil
}
