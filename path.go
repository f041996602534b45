package mud

// backupState tracks the local/peer "this path is backup" declarations and
// when we last told the peer about ours (spec.md §3, §4.6).
type backupState struct {
	local    bool
	remote   bool
	sendTime uint64
}

// Path is a single (local-IP, remote-sockaddr) pair between the two
// endpoints — the unit of liveness and scheduling (spec.md §3, GLOSSARY).
// Paths are owned exclusively by the engine's path table and are never
// deleted by the core (spec.md §3 Lifecycle).
type Path struct {
	localAddr IPAddr
	addr      SockAddr

	// active is true iff this path was configured by the caller as a peer
	// entry (client side). Non-active paths are learned from inbound
	// control packets (server side).
	active bool

	bak backupState

	recvTime uint64
	sendTime uint64
	pongTime uint64

	rst uint64 // peer's send-time of the most recently received packet
	rdt uint64 // EWMA of local receive inter-arrival
	sdt uint64 // EWMA of peer send inter-arrival

	rSdt uint64
	rRdt uint64
	rRst uint64
	rDt  int64 // peer's reported send-to-local-send gap; signed, may be negative

	rtt   uint64
	limit int64
}

// newPath builds a path for (localAddr, addr). active distinguishes a
// caller-configured peer entry from one learned off the wire.
func newPath(localAddr IPAddr, addr SockAddr, active bool) *Path {
	return &Path{localAddr: localAddr, addr: addr, active: active}
}

// LocalAddr returns the path's local source address.
func (p *Path) LocalAddr() IPAddr { return p.localAddr }

// RemoteAddr returns the path's remote socket address.
func (p *Path) RemoteAddr() SockAddr { return p.addr }

// Active reports whether this path was configured by the caller as a peer.
func (p *Path) Active() bool { return p.active }

// Backup reports the local backup flag (spec.md §3 bak.local).
func (p *Path) Backup() bool { return p.bak.local }

// SetBackup sets the local backup flag, used by configuration entry points
// (Peer) when the caller marks the path as backup-only.
func (p *Path) SetBackup(backup bool) { p.bak.local = backup }

// RTT returns the last round-trip sample.
func (p *Path) RTT() uint64 { return p.rtt }

// updateRecvTiming applies the EWMA update of spec.md §4.7 step 7 and
// records rst (step 8). EWMA coefficient is 7/8 (new-sample weight 1/8),
// matching original_source/mud.c's integer arithmetic exactly.
func (p *Path) updateRecvTiming(now, sendTime uint64) {
	if p.rdt > 0 {
		p.rdt = ((now - p.recvTime) + 7*p.rdt) / 8
		p.sdt = ((sendTime - p.rst) + 7*p.sdt) / 8
	} else if p.recvTime > 0 {
		p.rdt = now - p.recvTime
		p.sdt = sendTime - p.rst
	}
	p.rst = sendTime
}

// timeoutElapsed reports whether timeout has elapsed since last, matching
// original_source/mud.c's mud_timeout: true when last is zero (never
// happened) or now has strictly advanced past last by at least timeout.
func timeoutElapsed(now, last, timeout uint64) bool {
	return last == 0 || (now > last && now-last >= timeout)
}
