package mud

import "testing"

func TestPathTableGetOrCreateReturnsSameInstance(t *testing.T) {
	tbl := newPathTable()
	local := IPv4(10, 0, 0, 1)
	remote := SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}

	p1 := tbl.getOrCreate(local, remote, false)
	p2 := tbl.getOrCreate(local, remote, true)
	if p1 != p2 {
		t.Fatalf("getOrCreate must return the same *Path for the same key")
	}
	// active is fixed at first creation; a later getOrCreate call must not
	// retroactively flip it.
	if p1.Active() {
		t.Errorf("second getOrCreate with active=true must not mutate an existing path")
	}
}

func TestPathTableLookupMiss(t *testing.T) {
	tbl := newPathTable()
	if p := tbl.lookup(IPv4(10, 0, 0, 1), SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}); p != nil {
		t.Fatalf("lookup on empty table must return nil")
	}
}

func TestPathTableDistinctKeys(t *testing.T) {
	tbl := newPathTable()
	local := IPv4(10, 0, 0, 1)
	a := tbl.getOrCreate(local, SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5000}, false)
	b := tbl.getOrCreate(local, SockAddr{IP: IPv4(10, 0, 0, 2), Port: 5001}, false)
	c := tbl.getOrCreate(local, SockAddr{IP: IPv4(10, 0, 0, 3), Port: 5000}, false)
	if a == b || a == c || b == c {
		t.Fatalf("distinct (local, remote) pairs must yield distinct paths")
	}
	if len(tbl.all()) != 3 {
		t.Fatalf("want 3 paths, got %d", len(tbl.all()))
	}
}

// TestPathTableIPv4MappedKeyCollision covers spec.md §8 invariant 6: a
// remote address arriving as an IPv4-mapped v6 literal must key to the
// same path as its plain-v4 form, since both normalize at construction.
func TestPathTableIPv4MappedKeyCollision(t *testing.T) {
	tbl := newPathTable()
	local := IPv4(10, 0, 0, 1)

	plainRemote, _ := ParseIPLiteral("10.0.0.2")
	mappedRemote, _ := ParseIPLiteral("::ffff:10.0.0.2")

	p1 := tbl.getOrCreate(local, SockAddr{IP: plainRemote, Port: 5000}, false)
	p2 := tbl.getOrCreate(local, SockAddr{IP: mappedRemote, Port: 5000}, false)
	if p1 != p2 {
		t.Fatalf("IPv4-mapped and plain-v4 remote addresses must key to the same path")
	}
}

func TestPathTableAllOrderIsInsertionOrder(t *testing.T) {
	tbl := newPathTable()
	local := IPv4(10, 0, 0, 1)
	first := tbl.getOrCreate(local, SockAddr{IP: IPv4(10, 0, 0, 2), Port: 1}, false)
	second := tbl.getOrCreate(local, SockAddr{IP: IPv4(10, 0, 0, 2), Port: 2}, false)
	all := tbl.all()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Fatalf("want insertion order [first, second], got %v", all)
	}
}
