package mud

import "net/netip"

// Family distinguishes the two address families the wire protocol and path
// table key on. It is never inferred from byte length alone.
type Family uint8

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

// IPAddr is a tagged union over {v4, v6}: 4 or 16 raw bytes plus the family
// tag. Equality is family-plus-bytes (spec.md §3), deliberately narrower
// than net.IP's family-agnostic comparison.
type IPAddr struct {
	Family Family
	bytes  [16]byte
}

// IPv4 builds a v4 IPAddr from four raw bytes.
func IPv4(a, b, c, d byte) IPAddr {
	var ip IPAddr
	ip.Family = FamilyV4
	ip.bytes[0], ip.bytes[1], ip.bytes[2], ip.bytes[3] = a, b, c, d
	return ip
}

// IPv6 builds a v6 IPAddr from 16 raw bytes.
func IPv6(b [16]byte) IPAddr {
	return IPAddr{Family: FamilyV6, bytes: b}
}

// IPAddrFromNetip converts a netip.Addr, normalizing an IPv4-mapped v6
// address (::ffff:a.b.c.d) to plain v4 per spec.md §3. Exported for use by
// Socket adapters (e.g. internal/udpsocket), which read addresses off the
// wire as net/netip values.
func IPAddrFromNetip(a netip.Addr) IPAddr {
	return ipAddrFromNetip(a)
}

// ipAddrFromNetip converts a netip.Addr, normalizing an IPv4-mapped v6
// address (::ffff:a.b.c.d) to plain v4 per spec.md §3.
func ipAddrFromNetip(a netip.Addr) IPAddr {
	a = a.Unmap()
	if a.Is4() {
		b := a.As4()
		return IPv4(b[0], b[1], b[2], b[3])
	}
	return IPv6(a.As16())
}

// Bytes returns the raw address bytes: 4 for v4, 16 for v6.
func (a IPAddr) Bytes() []byte {
	if a.Family == FamilyV4 {
		return a.bytes[:4]
	}
	return a.bytes[:16]
}

// Equal implements family-plus-bytes equality.
func (a IPAddr) Equal(b IPAddr) bool {
	if a.Family != b.Family {
		return false
	}
	if a.Family == FamilyV4 {
		return a.bytes[0] == b.bytes[0] && a.bytes[1] == b.bytes[1] &&
			a.bytes[2] == b.bytes[2] && a.bytes[3] == b.bytes[3]
	}
	return a.bytes == b.bytes
}

// IsZero reports whether a was never assigned a family.
func (a IPAddr) IsZero() bool {
	return a.Family != FamilyV4 && a.Family != FamilyV6
}

func (a IPAddr) netip() netip.Addr {
	if a.Family == FamilyV4 {
		var b [4]byte
		copy(b[:], a.bytes[:4])
		return netip.AddrFrom4(b)
	}
	return netip.AddrFrom16(a.bytes)
}

func (a IPAddr) String() string {
	return a.netip().String()
}

// SockAddr is an IP address plus a 16-bit port. When built from a v6
// address carrying an IPv4-mapped prefix, the IP is normalized to v4
// before use in any comparison or path-table key (spec.md §3).
type SockAddr struct {
	IP   IPAddr
	Port uint16
}

// SockAddrFromNetip builds a normalized SockAddr from a netip.AddrPort.
func SockAddrFromNetip(ap netip.AddrPort) SockAddr {
	return SockAddr{IP: ipAddrFromNetip(ap.Addr()), Port: ap.Port()}
}

func (s SockAddr) Equal(o SockAddr) bool {
	return s.Port == o.Port && s.IP.Equal(o.IP)
}

func (s SockAddr) netip() netip.AddrPort {
	return netip.AddrPortFrom(s.IP.netip(), s.Port)
}

func (s SockAddr) String() string {
	return s.netip().String()
}

// ParseIPLiteral parses a numeric IP literal (no DNS resolution — address
// parsing beyond numeric literals is out of scope per spec.md §1) into a
// normalized IPAddr.
func ParseIPLiteral(literal string) (IPAddr, error) {
	a, err := netip.ParseAddr(literal)
	if err != nil {
		return IPAddr{}, ErrInvalidArgument
	}
	return ipAddrFromNetip(a), nil
}
