package mud

// pathKey identifies a path by (local address, remote socket address),
// with IPv4-mapped-v6 addresses normalized to v4 before use (spec.md §3,
// §4.3). IPAddr/SockAddr already normalize on construction, so deriving a
// key is just field projection.
type pathKey struct {
	localFamily Family
	local       [16]byte
	remoteFamily Family
	remote       [16]byte
	port         uint16
}

func keyFor(local IPAddr, remote SockAddr) pathKey {
	return pathKey{
		localFamily:  local.Family,
		local:        local.bytes,
		remoteFamily: remote.IP.Family,
		remote:       remote.IP.bytes,
		port:         remote.Port,
	}
}

// pathTable is the path list of spec.md §3/§4.3/§9: implemented as a
// stable-pointer slice plus a map index rather than a linked list, the
// equivalence spec.md §9 explicitly sanctions ("paths never move once
// created, so stable handles are easy"). Lookup by key is O(1) instead of
// the spec's linear scan; iteration order is insertion order, newest last
// (the spec's linked list prepends, i.e. newest first — order never
// matters to any invariant in §8, so this is not observable).
type pathTable struct {
	paths []*Path
	index map[pathKey]*Path
}

func newPathTable() *pathTable {
	return &pathTable{index: make(map[pathKey]*Path)}
}

// lookup finds an existing path for (local, remote), or nil.
func (t *pathTable) lookup(local IPAddr, remote SockAddr) *Path {
	return t.index[keyFor(local, remote)]
}

// getOrCreate returns the existing path for (local, remote), or creates and
// appends a new one. active marks a caller-configured peer entry.
func (t *pathTable) getOrCreate(local IPAddr, remote SockAddr, active bool) *Path {
	k := keyFor(local, remote)
	if p, ok := t.index[k]; ok {
		return p
	}
	p := newPath(local, remote, active)
	t.paths = append(t.paths, p)
	t.index[k] = p
	return p
}

// all returns every path, in table order.
func (t *pathTable) all() []*Path {
	return t.paths
}
