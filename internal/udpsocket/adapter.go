package udpsocket

import (
	"net/netip"

	"mud"
)

// Adapter satisfies mud.Socket by translating mud's raw-byte IPAddr/
// SockAddr to and from net/netip, the representation Socket's
// golang.org/x/net plumbing speaks natively.
type Adapter struct {
	sock *Socket
}

// New opens a UDP listener per the given port and family flags and wraps
// it as a mud.Socket.
func New(port uint16, enableV4, enableV6 bool) (*Adapter, error) {
	sock, err := Listen(port, enableV4, enableV6)
	if err != nil {
		return nil, err
	}
	return &Adapter{sock: sock}, nil
}

func (a *Adapter) RecvMsg(buf []byte) (int, mud.IPAddr, mud.SockAddr, error) {
	n, local, remote, err := a.sock.RecvMsg(buf)
	if err != nil {
		return 0, mud.IPAddr{}, mud.SockAddr{}, err
	}
	var localAddr mud.IPAddr
	if local.IsValid() {
		localAddr = mud.IPAddrFromNetip(local)
	}
	return n, localAddr, mud.SockAddrFromNetip(remote), nil
}

func (a *Adapter) SendMsg(buf []byte, local mud.IPAddr, remote mud.SockAddr, tc byte) error {
	var localNetip netip.Addr
	if !local.IsZero() {
		localNetip = netipAddrOf(local)
	}
	return a.sock.SendMsg(buf, localNetip, remoteAddrPort(remote), tc)
}

func (a *Adapter) Close() error {
	return a.sock.Close()
}

func (a *Adapter) Fd() int {
	return a.sock.Fd()
}

func netipAddrOf(ip mud.IPAddr) netip.Addr {
	b := ip.Bytes()
	if len(b) == 4 {
		return netip.AddrFrom4([4]byte(b))
	}
	var b16 [16]byte
	copy(b16[:], b)
	return netip.AddrFrom16(b16)
}

func remoteAddrPort(s mud.SockAddr) netip.AddrPort {
	return netip.AddrPortFrom(netipAddrOf(s.IP), s.Port)
}
