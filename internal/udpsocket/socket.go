// Package udpsocket is the concrete Socket adapter of SPEC_FULL.md §6: a
// non-connected UDP listener that reports per-packet local destination
// address and accepts a per-packet traffic-class byte, built on
// golang.org/x/net/ipv4 and golang.org/x/net/ipv6's ancillary-data support
// rather than hand-rolled cmsg parsing.
package udpsocket

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"mud/internal/mudlog"
)

// Socket wraps one UDP listener as either an ipv4.PacketConn or an
// ipv6.PacketConn (dual-stack, serving v4 as v4-mapped-v6), depending on
// which families the caller enabled. Exactly one of pc4/pc6 is non-nil.
type Socket struct {
	conn *net.UDPConn
	pc4  *ipv4.PacketConn
	pc6  *ipv6.PacketConn
	fd   int
}

// Listen opens a UDP socket on port, serving v4, v6, or both per the
// flags, and applies the socket options spec.md §6 requires:
// SO_REUSEADDR, per-packet pktinfo, and (v6) IPV6_V6ONLY set to the
// negation of v4-enabled.
func Listen(port uint16, enableV4, enableV6 bool) (*Socket, error) {
	switch {
	case enableV6:
		return listenV6(port, enableV4)
	case enableV4:
		return listenV4(port)
	default:
		return nil, fmt.Errorf("udpsocket: at least one address family must be enabled")
	}
}

func listenV4(port uint16) (*Socket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("udpsocket: listen udp4: %w", err)
	}
	fd, err := setReuseAddr(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("udpsocket: set ipv4 control message: %w", err)
	}
	mudlog.Infof("listening on %s (IPv4)", conn.LocalAddr())
	return &Socket{conn: conn, pc4: pc, fd: fd}, nil
}

func listenV6(port uint16, enableV4 bool) (*Socket, error) {
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("udpsocket: listen udp6: %w", err)
	}
	fd, err := setReuseAddr(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := setV6Only(fd, !enableV4); err != nil {
		_ = conn.Close()
		return nil, err
	}
	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("udpsocket: set ipv6 control message: %w", err)
	}
	mudlog.Infof("listening on %s (IPv6, v4-mapped=%v)", conn.LocalAddr(), enableV4)
	return &Socket{conn: conn, pc6: pc, fd: fd}, nil
}

func setReuseAddr(conn *net.UDPConn) (fd int, err error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("udpsocket: syscall conn: %w", err)
	}
	var sockErr error
	ctrlErr := rc.Control(func(p uintptr) {
		fd = int(p)
		sockErr = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if ctrlErr != nil {
		return 0, fmt.Errorf("udpsocket: control: %w", ctrlErr)
	}
	if sockErr != nil {
		return 0, fmt.Errorf("udpsocket: SO_REUSEADDR: %w", sockErr)
	}
	return fd, nil
}

func setV6Only(fd int, v6only bool) error {
	val := 0
	if v6only {
		val = 1
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, val); err != nil {
		return fmt.Errorf("udpsocket: IPV6_V6ONLY: %w", err)
	}
	return nil
}

// RecvMsg satisfies mud.Socket: it reads one datagram and extracts the
// local destination address from the kernel-reported pktinfo ancillary
// message (spec.md §4.7 step 5). A zero IPAddr is returned when pktinfo is
// absent, matching spec.md's "drop if absent" contract — the caller is
// responsible for dropping on a zero local address.
func (s *Socket) RecvMsg(buf []byte) (n int, local netip.Addr, remote netip.AddrPort, err error) {
	if s.pc6 != nil {
		nn, cm, src, rerr := s.pc6.ReadFrom(buf)
		if rerr != nil {
			mudlog.Warnf("ipv6 read failed: %v", rerr)
			return 0, netip.Addr{}, netip.AddrPort{}, rerr
		}
		if cm != nil && len(cm.Dst) > 0 {
			if a, ok := netip.AddrFromSlice(cm.Dst); ok {
				local = a
			}
		}
		remote = udpAddrPort(src)
		return nn, local, remote, nil
	}

	nn, cm, src, rerr := s.pc4.ReadFrom(buf)
	if rerr != nil {
		return 0, netip.Addr{}, netip.AddrPort{}, rerr
	}
	if cm != nil && len(cm.Dst) > 0 {
		if a, ok := netip.AddrFromSlice(cm.Dst); ok {
			local = a
		}
	}
	remote = udpAddrPort(src)
	return nn, local, remote, nil
}

// SendMsg satisfies mud.Socket: it pins the packet's source address to
// local and writes tc into the traffic-class/DSCP ancillary field
// (spec.md §6's "outbound cmsg layout": pktinfo followed by IP_TOS /
// IPV6_TCLASS). Unlike the C reference's pre-built per-path cmsg buffer
// poked in place before each send, ipv4.ControlMessage/ipv6.ControlMessage
// are plain values here (spec.md §9's design note explicitly allows a
// "structured record" in place of a raw buffer). On IPv6 the traffic class
// travels in the control message; ipv4.ControlMessage has no TOS field, so
// on IPv4 tc is set on the socket with SetTOS immediately before the write.
func (s *Socket) SendMsg(buf []byte, local netip.Addr, remote netip.AddrPort, tc byte) error {
	if s.pc6 != nil {
		cm := &ipv6.ControlMessage{TrafficClass: int(tc)}
		if local.IsValid() {
			cm.Src = local.AsSlice()
		}
		_, err := s.pc6.WriteTo(buf, cm, net.UDPAddrFromAddrPort(remote))
		return err
	}
	if err := s.pc4.SetTOS(int(tc)); err != nil {
		return err
	}
	cm := &ipv4.ControlMessage{}
	if local.IsValid() {
		cm.Src = local.AsSlice()
	}
	_, err := s.pc4.WriteTo(buf, cm, net.UDPAddrFromAddrPort(remote))
	return err
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Fd returns the listener's raw descriptor, for external event-loop
// integration only (spec.md §5).
func (s *Socket) Fd() int {
	return s.fd
}

func udpAddrPort(addr net.Addr) netip.AddrPort {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	return ua.AddrPort()
}
