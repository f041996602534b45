package mud

import "testing"

func TestParseIPLiteralV4(t *testing.T) {
	a, err := ParseIPLiteral("10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Family != FamilyV4 {
		t.Fatalf("want FamilyV4, got %v", a.Family)
	}
	if a.String() != "10.0.0.1" {
		t.Errorf("want 10.0.0.1, got %s", a.String())
	}
}

func TestParseIPLiteralInvalid(t *testing.T) {
	if _, err := ParseIPLiteral("not-an-ip"); err != ErrInvalidArgument {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

// TestIPv4MappedNormalization covers spec.md §8 invariant 6: a remote
// address carrying an IPv4-mapped v6 prefix normalizes to plain v4.
func TestIPv4MappedNormalization(t *testing.T) {
	mapped, err := ParseIPLiteral("::ffff:10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plain, err := ParseIPLiteral("10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mapped.Equal(plain) {
		t.Fatalf("expected mapped address to normalize to plain v4")
	}
	if mapped.Family != FamilyV4 {
		t.Fatalf("want normalized Family v4, got %v", mapped.Family)
	}
}

func TestIPAddrEqualDistinguishesFamily(t *testing.T) {
	v4 := IPv4(10, 0, 0, 1)
	var b [16]byte
	b[15] = 1
	v6 := IPv6(b)
	if v4.Equal(v6) {
		t.Fatalf("addresses of different families must not compare equal")
	}
}

func TestSockAddrEqual(t *testing.T) {
	ip, _ := ParseIPLiteral("10.0.0.2")
	a := SockAddr{IP: ip, Port: 5000}
	b := SockAddr{IP: ip, Port: 5000}
	c := SockAddr{IP: ip, Port: 5001}
	if !a.Equal(b) {
		t.Fatalf("expected equal sockaddrs to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected different ports to compare unequal")
	}
}

func TestIPAddrIsZero(t *testing.T) {
	var zero IPAddr
	if !zero.IsZero() {
		t.Fatalf("zero-value IPAddr should report IsZero")
	}
	v4 := IPv4(0, 0, 0, 0)
	if v4.IsZero() {
		t.Fatalf("0.0.0.0 has a valid family and must not report IsZero")
	}
}
