package mud

// PathStatus is a read-only snapshot of one path, supplemented from
// original_source/mud.c's mud_get_paths/mud_status introspection API
// (dropped by the distilled spec but not excluded by any Non-goal — see
// SPEC_FULL.md §6). It copies out everything a monitoring caller would
// want without exposing the live *Path or risking a data race with the
// engine's single mutex.
type PathStatus struct {
	LocalAddr  IPAddr
	RemoteAddr SockAddr

	Active bool
	Backup bool

	RecvTime uint64
	SendTime uint64

	RTT  uint64
	RDT  uint64
	SDT  uint64
	RDt  int64
	Idle uint64 // now - RecvTime at snapshot time, 0 if never received
}

func snapshotPath(p *Path, now uint64) PathStatus {
	idle := uint64(0)
	if p.recvTime != 0 && now > p.recvTime {
		idle = now - p.recvTime
	}
	return PathStatus{
		LocalAddr:  p.localAddr,
		RemoteAddr: p.addr,
		Active:     p.active,
		Backup:     p.bak.local,
		RecvTime:   p.recvTime,
		SendTime:   p.sendTime,
		RTT:        p.rtt,
		RDT:        p.rdt,
		SDT:        p.sdt,
		RDt:        p.rDt,
		Idle:       idle,
	}
}
