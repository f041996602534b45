package mud

// Control packet wire sizes (spec.md §4.4): every control packet starts
// with a 12-byte header (6 zero bytes || 6-byte send-time) and ends with a
// 16-byte MAC; message kind is dispatched by TOTAL packet size, never a
// type byte.
const (
	ctrlHeaderSize = 12
	ctrlTagSize    = 16
	ctrlBaseSize   = ctrlHeaderSize + ctrlTagSize // 28: empty-payload ping

	pongPayloadSize = 3 * uint48Size // sdt || rdt || rst
	keyxPayloadSize = 2 * pubKeySize // public.send || public.recv
	mtuxPayloadSize = uint48Size     // mtu
	bakxPayloadSize = 1              // bak.local

	ctrlPingSize = ctrlBaseSize                   // 28
	ctrlPongSize = ctrlBaseSize + pongPayloadSize  // 46
	ctrlKeyxSize = ctrlBaseSize + keyxPayloadSize  // 94
	ctrlMtuxSize = ctrlBaseSize + mtuxPayloadSize  // 34
	ctrlBakxSize = ctrlBaseSize + bakxPayloadSize  // 29
)

// ctrlKind names the five control messages of spec.md §4.4.
type ctrlKind uint8

const (
	ctrlPing ctrlKind = iota
	ctrlPong
	ctrlKeyx
	ctrlMtux
	ctrlBakx
)

// ctrlKindForSize dispatches by total wire size, the protocol's only
// discriminator (spec.md §4.4's table and the "control framing by length"
// design note in §9). An unrecognized size is reported via ok=false; the
// caller treats it as a bad frame.
func ctrlKindForSize(n int) (kind ctrlKind, ok bool) {
	switch n {
	case ctrlPingSize:
		return ctrlPing, true
	case ctrlPongSize:
		return ctrlPong, true
	case ctrlKeyxSize:
		return ctrlKeyx, true
	case ctrlMtuxSize:
		return ctrlMtux, true
	case ctrlBakxSize:
		return ctrlBakx, true
	default:
		return 0, false
	}
}

// encodeCtrlFrame builds the wire frame for one control message: header
// (zeros || sendTime) authenticated and followed by payload, under the
// private slot (spec.md §4.4, §6 "Control frame").
func encodeCtrlFrame(slot *keySlot, sendTime uint64, payload []byte) []byte {
	var header [ctrlHeaderSize]byte
	putUint48(header[ctrlHeaderSize/2:], sendTime)
	return controlFrameEncrypt(slot, header, payload)
}

// encodePingFrame builds an empty-payload ping/implicit-solicitation frame.
func encodePingFrame(slot *keySlot, sendTime uint64) []byte {
	return encodeCtrlFrame(slot, sendTime, nil)
}

// encodePongFrame builds a pong carrying the three peer-observed timing
// samples (spec.md §4.4 table, §4.7 step 9).
func encodePongFrame(slot *keySlot, sendTime, sdt, rdt, rst uint64) []byte {
	payload := make([]byte, pongPayloadSize)
	putUint48(payload[0:uint48Size], sdt)
	putUint48(payload[uint48Size:2*uint48Size], rdt)
	putUint48(payload[2*uint48Size:3*uint48Size], rst)
	return encodeCtrlFrame(slot, sendTime, payload)
}

// encodeKeyxFrame builds a keyx frame carrying the local public-key pair
// (spec.md §4.4, §4.5).
func encodeKeyxFrame(slot *keySlot, sendTime uint64, k *keyxState) []byte {
	return encodeCtrlFrame(slot, sendTime, k.encodeKeyxPayload())
}

// encodeMtuxFrame builds an mtux frame carrying the local MTU (spec.md §4.6).
func encodeMtuxFrame(slot *keySlot, sendTime, mtu uint64) []byte {
	payload := make([]byte, mtuxPayloadSize)
	putUint48(payload, mtu)
	return encodeCtrlFrame(slot, sendTime, payload)
}

// encodeBakxFrame builds a bakx frame carrying the local backup flag
// (spec.md §4.6).
func encodeBakxFrame(slot *keySlot, sendTime uint64, local bool) []byte {
	payload := make([]byte, bakxPayloadSize)
	if local {
		payload[0] = 1
	}
	return encodeCtrlFrame(slot, sendTime, payload)
}

// decodedCtrl is the parsed result of a verified inbound control packet.
type decodedCtrl struct {
	kind     ctrlKind
	sendTime uint64
	payload  []byte
}

// decodeCtrlFrame verifies the MAC under the private slot and, on success,
// dispatches by total size and splits out the send-time header and payload
// (spec.md §4.4, §4.7 steps 2 and 4). Any failure is a bad frame: dropped
// silently per spec.md §7.
func decodeCtrlFrame(slot *keySlot, packet []byte) (decodedCtrl, error) {
	kind, ok := ctrlKindForSize(len(packet))
	if !ok {
		return decodedCtrl{}, errBadFrame
	}
	payload, err := controlFrameDecrypt(slot, packet)
	if err != nil {
		return decodedCtrl{}, err
	}
	sendTime := getUint48(packet[ctrlHeaderSize/2 : ctrlHeaderSize])
	return decodedCtrl{kind: kind, sendTime: sendTime, payload: payload}, nil
}

// decodePongPayload splits a verified pong payload into (sdt, rdt, rst).
func decodePongPayload(payload []byte) (sdt, rdt, rst uint64, err error) {
	if len(payload) != pongPayloadSize {
		return 0, 0, 0, errBadFrame
	}
	sdt = getUint48(payload[0:uint48Size])
	rdt = getUint48(payload[uint48Size : 2*uint48Size])
	rst = getUint48(payload[2*uint48Size : 3*uint48Size])
	return sdt, rdt, rst, nil
}

// decodeMtuxPayload extracts the peer's advertised MTU.
func decodeMtuxPayload(payload []byte) (mtu uint64, err error) {
	if len(payload) != mtuxPayloadSize {
		return 0, errBadFrame
	}
	return getUint48(payload), nil
}

// decodeBakxPayload extracts the peer's backup flag.
func decodeBakxPayload(payload []byte) (local bool, err error) {
	if len(payload) != bakxPayloadSize {
		return false, errBadFrame
	}
	return payload[0] == 1, nil
}
