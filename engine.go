package mud

import (
	"crypto/rand"
	"sync"
)

// maxPacketSize bounds the scratch buffer Recv reads into: large enough for
// the biggest control packet (94 bytes) or a data frame up to the maximum
// negotiable MTU plus AEAD overhead.
const maxPacketSize = 2048

// pongIntervalUs is the minimum gap between pongs on one path (spec.md
// §4.7 step 9), distinct from the caller-tunable send timeout.
const pongIntervalUs = 100_000

// keyxRecvTimeoutUs gates the active-path rekey branch of the control tick
// (spec.md §4.8: "now - crypto.recv_time >= 60min").
var keyxRecvTimeoutUs = secToUs(3600)

// Engine is the tunnel engine of spec.md §2: one instance talks to one
// peer over any number of concurrently maintained paths. It is
// single-threaded cooperative (spec.md §5) — the mutex exists purely as a
// guard against a caller invoking it from more than one goroutine. Recv
// waits for a datagram without holding it; the socket writes an entry
// point makes happen while it is held.
type Engine struct {
	mu     sync.Mutex
	closed bool

	sock      Socket
	enableV4  bool
	enableV6  bool
	preferAES bool

	sendTimeout   uint64 // microseconds
	timeTolerance uint64 // microseconds

	mtuLocal    uint64
	mtuRemote   uint64
	mtuSendTime uint64

	paths *pathTable
	ring  cryptoRing
	keyx  keyxState
}

// Create builds an engine from cfg: generates a random long-term key,
// resets the ephemeral X25519 keypair, and installs the default timeouts
// (spec.md §6's mud_create, minus the OS socket creation which the caller
// already performed via cfg.Socket).
func Create(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		sock:          cfg.Socket,
		enableV4:      cfg.EnableV4,
		enableV6:      cfg.EnableV6,
		preferAES:     cfg.PreferAES,
		sendTimeout:   msToUs(defaultSendTimeoutMsec),
		timeTolerance: secToUs(defaultTimeToleranceSec),
		mtuLocal:      cfg.MTU,
		paths:         newPathTable(),
	}

	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	if err := e.ring.setLongTermKey(key); err != nil {
		return nil, err
	}
	if err := e.keyx.resetEphemeral(e.preferAES); err != nil {
		return nil, err
	}
	return e, nil
}

// SetKey installs key into every slot of the crypto ring (spec.md §6
// mud_set_key).
func (e *Engine) SetKey(key [keySize]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return e.ring.setLongTermKey(key)
}

// GetKey copies the long-term key out.
func (e *Engine) GetKey() [keySize]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ring.private.encryptKey
}

// Peer creates (or returns the existing) active path for (local, remote)
// and marks it backup per the backup flag (spec.md §6 mud_peer).
func (e *Engine) Peer(local IPAddr, remote SockAddr, backup bool) (*Path, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if local.IsZero() || remote.IP.IsZero() || local.Family != remote.IP.Family {
		return nil, ErrInvalidArgument
	}
	p := e.paths.getOrCreate(local, remote, true)
	p.active = true
	p.bak.local = backup
	return p, nil
}

// SetSendTimeoutMsec sets the control-plane retransmit interval.
func (e *Engine) SetSendTimeoutMsec(msec uint64) error {
	if msec == 0 {
		return ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendTimeout = msToUs(msec)
	return nil
}

// SetTimeToleranceSec sets the replay/clock-skew window.
func (e *Engine) SetTimeToleranceSec(sec uint64) error {
	if sec == 0 {
		return ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeTolerance = secToUs(sec)
	return nil
}

// SetMTU sets the local MTU, 500..1450 inclusive. Changing it resets the
// mtux announcement timer so the new value is advertised promptly.
func (e *Engine) SetMTU(mtu uint64) error {
	if mtu < minMTU || mtu > maxMTU {
		return ErrInvalidArgument
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mtuLocal != mtu {
		e.mtuLocal = mtu
		e.mtuSendTime = 0
	}
	return nil
}

// GetMTU returns min(local, remote) once the peer's MTU is known, else
// local (spec.md §4.6).
func (e *Engine) GetMTU() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getMTULocked()
}

func (e *Engine) getMTULocked() uint64 {
	if e.mtuRemote == 0 || e.mtuLocal < e.mtuRemote {
		return e.mtuLocal
	}
	return e.mtuRemote
}

// GetFd exposes the underlying descriptor for external event-loop
// integration only (spec.md §5); the caller must not read or write it.
func (e *Engine) GetFd() int {
	return e.sock.Fd()
}

// Delete closes the underlying socket. The engine must not be used
// afterward.
func (e *Engine) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.sock.Close()
}

// Status returns a snapshot of every known path, supplemented from
// original_source/mud.c's mud_get_paths/mud_status (see SPEC_FULL.md §6).
func (e *Engine) Status() []PathStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := now()
	paths := e.paths.all()
	out := make([]PathStatus, len(paths))
	for i, p := range paths {
		out[i] = snapshotPath(p, now)
	}
	return out
}

// absDiff64 is the unsigned absolute difference, matching
// original_source/mud.c's mud_abs_diff used for the replay/tolerance check.
func absDiff64(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// transmit sends frame on p, writing tc into the path's traffic-class cell
// via the socket adapter, and always stamps send_time regardless of
// whether the underlying write succeeded (mirrors mud_send_path, which
// sets path->send_time = now unconditionally).
func (e *Engine) transmit(p *Path, now uint64, frame []byte, tc byte) error {
	err := e.sock.SendMsg(frame, p.localAddr, p.addr, tc)
	p.sendTime = now
	return err
}

// sendCtrlLocked is the control tick of spec.md §4.8: for each path, send
// at most one control message this round, in priority order. Caller must
// hold mu.
func (e *Engine) sendCtrlLocked(now uint64) {
	for _, p := range e.paths.all() {
		if !p.active {
			if e.ring.badKey && timeoutElapsed(now, e.ring.sendTime, e.sendTimeout) {
				e.transmit(p, now, encodeKeyxFrame(&e.ring.private, now, &e.keyx), 0)
				e.ring.sendTime = now
				e.ring.badKey = false
			}
			continue
		}

		if timeoutElapsed(now, e.ring.sendTime, e.sendTimeout) &&
			timeoutElapsed(now, e.ring.recvTime, keyxRecvTimeoutUs) {
			e.transmit(p, now, encodeKeyxFrame(&e.ring.private, now, &e.keyx), 0)
			e.ring.sendTime = now
			continue
		}

		if e.mtuRemote == 0 && timeoutElapsed(now, e.mtuSendTime, e.sendTimeout) {
			e.transmit(p, now, encodeMtuxFrame(&e.ring.private, now, e.mtuLocal), 0)
			e.mtuSendTime = now
			continue
		}

		if p.bak.local && !p.bak.remote && timeoutElapsed(now, p.bak.sendTime, e.sendTimeout) {
			e.transmit(p, now, encodeBakxFrame(&e.ring.private, now, p.bak.local), 0)
			p.bak.sendTime = now
			continue
		}

		if p.sendTime == 0 {
			e.transmit(p, now, encodePingFrame(&e.ring.private, now), 0)
		}
	}
}

// Tick runs the control tick (spec.md §4.8) without sending data. Send
// already runs this internally before encrypting; Tick exists so a caller
// with no outbound application traffic can still pace keyx/ping/mtux/bakx
// retransmission, per spec.md §1's "(3) pace control-plane transmission
// by periodically invoking the control tick".
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.sendCtrlLocked(now())
}

// Recv processes one inbound datagram into buf, returning the number of
// plaintext bytes written, per spec.md §4.7. A dropped, malformed, or
// control packet returns (0, nil). A non-nil error is a socket I/O error,
// ErrClosed after Delete, or ErrMessageTooBig when the decrypted plaintext
// does not fit in buf.
func (e *Engine) Recv(buf []byte) (int, error) {
	// Read before taking the lock so a Recv blocked on the socket does not
	// stall Send or Tick running in another goroutine.
	var packet [maxPacketSize]byte
	n, local, remote, err := e.sock.RecvMsg(packet[:])

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}
	if err != nil {
		return 0, err
	}
	if n <= uint48Size+frameOverhead {
		return 0, nil
	}

	now := now()
	header := getUint48(packet[:uint48Size])
	isCtrl := header == 0

	var sendTime uint64
	if isCtrl {
		if n < ctrlHeaderSize {
			return 0, nil
		}
		sendTime = getUint48(packet[uint48Size:ctrlHeaderSize])
	} else {
		sendTime = header
	}

	if absDiff64(now, sendTime) >= e.timeTolerance {
		return 0, nil
	}

	var kind ctrlKind
	var payload []byte
	if isCtrl {
		dc, err := decodeCtrlFrame(&e.ring.private, packet[:n])
		if err != nil {
			return 0, nil
		}
		kind, payload = dc.kind, dc.payload
	}

	if local.IsZero() {
		return 0, nil
	}

	path := e.paths.lookup(local, remote)
	if path == nil {
		if !isCtrl {
			return 0, nil
		}
		path = e.paths.getOrCreate(local, remote, false)
	}

	path.updateRecvTiming(now, sendTime)

	if !path.bak.local && path.recvTime != 0 && timeoutElapsed(now, path.pongTime, pongIntervalUs) {
		e.transmit(path, now, encodePongFrame(&e.ring.private, now, path.sdt, path.rdt, path.rst), 0)
		path.pongTime = now
	}

	path.recvTime = now

	if isCtrl {
		switch kind {
		case ctrlPing:
			// The solicited pong above is the only reply a ping needs.
		case ctrlPong:
			if sdt, rdt, rst, err := decodePongPayload(payload); err == nil {
				path.rSdt, path.rRdt, path.rRst = sdt, rdt, rst
				path.rDt = int64(sendTime) - int64(rst)
				path.rtt = now - rst
			}
		case ctrlKeyx:
			if syncSend, err := handleKeyxPayload(&e.ring, &e.keyx, payload, now); err == nil && syncSend {
				e.transmit(path, now, encodeKeyxFrame(&e.ring.private, now, &e.keyx), 0)
			}
		case ctrlMtux:
			if mtu, err := decodeMtuxPayload(payload); err == nil {
				e.mtuRemote = mtu
				if !path.active {
					e.transmit(path, now, encodeMtuxFrame(&e.ring.private, now, e.mtuLocal), 0)
				}
			}
		case ctrlBakx:
			// Only bak.remote is updated on receipt: spec.md §4.6 assigns
			// the sender's flag to our view of their side, leaving our own
			// bak.local under exclusively local/caller control (Peer/
			// SetBackup) rather than mirroring it from the peer.
			if backupLocal, err := decodeBakxPayload(payload); err == nil {
				path.bak.remote = backupLocal
				if !path.active {
					e.transmit(path, now, encodeBakxFrame(&e.ring.private, now, path.bak.local), 0)
				}
			}
		}
		return 0, nil
	}

	plaintext, err := e.ring.decryptData(packet[:n], func() {
		e.keyx.resetEphemeral(e.preferAES)
	})
	if err != nil {
		return 0, nil
	}
	if len(plaintext) > len(buf) {
		return 0, ErrMessageTooBig
	}
	return copy(buf, plaintext), nil
}

// Send runs the control tick, encrypts data, and dispatches it per the
// egress selector (spec.md §4.9). tc is the caller's requested DSCP byte.
func (e *Engine) Send(data []byte, tc byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosed
	}

	now := now()
	e.sendCtrlLocked(now)

	if len(data) == 0 {
		return 0, nil
	}
	if uint64(len(data)) > e.getMTULocked() {
		return 0, ErrMessageTooBig
	}

	slot := e.ring.dataEncryptSlot()
	frame, err := dataFrameEncrypt(slot, now, data)
	if err != nil {
		return 0, err
	}

	paths := e.paths.all()
	if len(paths) == 0 {
		// No path at all, ordinary or backup: drop (spec.md §4.9 step 8),
		// the same silent-drop convention used everywhere else in Recv/Send.
		return 0, nil
	}

	sel := selectEgress(paths, now, e.sendTimeout)

	sent := false
	for _, p := range sel.probing {
		if err := e.transmit(p, now, frame, tc); err == nil {
			sent = true
		}
	}
	if sel.chosen != nil {
		if err := e.transmit(sel.chosen, now, frame, tc); err == nil {
			sent = true
			sel.chosen.limit = sel.limit
		}
	}
	if !sent {
		return 0, nil
	}
	return len(data), nil
}
