package mud

import "testing"

func TestNewPathDefaults(t *testing.T) {
	local, _ := ParseIPLiteral("10.0.0.1")
	remoteIP, _ := ParseIPLiteral("10.0.0.2")
	remote := SockAddr{IP: remoteIP, Port: 5000}

	p := newPath(local, remote, true)
	if !p.LocalAddr().Equal(local) {
		t.Errorf("LocalAddr mismatch")
	}
	if !p.RemoteAddr().Equal(remote) {
		t.Errorf("RemoteAddr mismatch")
	}
	if !p.Active() {
		t.Errorf("expected active path")
	}
	if p.Backup() {
		t.Errorf("new path must not default to backup")
	}
}

func TestSetBackup(t *testing.T) {
	p := newPath(IPv4(10, 0, 0, 1), SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}, false)
	p.SetBackup(true)
	if !p.Backup() {
		t.Errorf("SetBackup(true) did not stick")
	}
	p.SetBackup(false)
	if p.Backup() {
		t.Errorf("SetBackup(false) did not stick")
	}
}

func TestUpdateRecvTimingFirstSample(t *testing.T) {
	p := newPath(IPv4(10, 0, 0, 1), SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}, false)
	// First call: recvTime and rdt are both zero, so neither branch of
	// updateRecvTiming fires and only rst is recorded.
	p.updateRecvTiming(1000, 500)
	if p.rdt != 0 || p.sdt != 0 {
		t.Errorf("first sample must not seed rdt/sdt, got rdt=%d sdt=%d", p.rdt, p.sdt)
	}
	if p.rst != 500 {
		t.Errorf("want rst=500, got %d", p.rst)
	}
}

func TestUpdateRecvTimingEWMA(t *testing.T) {
	p := newPath(IPv4(10, 0, 0, 1), SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}, false)
	p.recvTime = 1000
	p.rst = 500

	// Second sample: recvTime > 0 but rdt == 0, so rdt/sdt are seeded
	// directly from the raw deltas (no averaging yet).
	p.updateRecvTiming(1100, 600)
	if p.rdt != 100 {
		t.Errorf("want seeded rdt=100, got %d", p.rdt)
	}
	if p.sdt != 100 {
		t.Errorf("want seeded sdt=100, got %d", p.sdt)
	}

	p.recvTime = 1100
	// Third sample: rdt/sdt are both non-zero, so the 7/8-1/8 EWMA applies.
	p.updateRecvTiming(1300, 900)
	wantRdt := uint64(((1300 - 1100) + 7*100) / 8)
	wantSdt := uint64(((900 - 600) + 7*100) / 8)
	if p.rdt != wantRdt {
		t.Errorf("want rdt=%d, got %d", wantRdt, p.rdt)
	}
	if p.sdt != wantSdt {
		t.Errorf("want sdt=%d, got %d", wantSdt, p.sdt)
	}
}

func TestTimeoutElapsed(t *testing.T) {
	cases := []struct {
		name           string
		now, last, tmo uint64
		want           bool
	}{
		{"never happened", 1000, 0, 500, true},
		{"not yet due", 1000, 800, 500, false},
		{"exactly due", 1300, 800, 500, true},
		{"past due", 2000, 800, 500, true},
		{"now equals last", 800, 800, 500, false},
	}
	for _, c := range cases {
		got := timeoutElapsed(c.now, c.last, c.tmo)
		if got != c.want {
			t.Errorf("%s: timeoutElapsed(%d, %d, %d) = %v, want %v", c.name, c.now, c.last, c.tmo, got, c.want)
		}
	}
}
