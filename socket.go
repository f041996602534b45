package mud

// Socket is the external collaborator spec.md §1 and §6 describe: a
// non-connected UDP socket that reports the per-packet local destination
// address on receive and accepts a per-packet traffic-class byte and
// pinned source address on send. The core never dials, binds, or sets
// socket options itself — see internal/udpsocket for a concrete adapter
// built on golang.org/x/net/ipv4 and ipv6.
type Socket interface {
	// RecvMsg reads one datagram into buf, returning the byte count, the
	// local destination address it arrived on (from the pktinfo
	// ancillary message), and the normalized remote socket address.
	RecvMsg(buf []byte) (n int, local IPAddr, remote SockAddr, err error)

	// SendMsg writes buf to remote, pinning the packet's source address
	// to local and its traffic-class/DSCP byte to tc.
	SendMsg(buf []byte, local IPAddr, remote SockAddr, tc byte) error

	// Close releases the underlying file descriptor.
	Close() error

	// Fd exposes the raw descriptor solely so a caller can integrate the
	// engine with an external event loop (spec.md §5): the caller must
	// not read or write it directly.
	Fd() int
}
