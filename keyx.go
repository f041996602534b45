package mud

import (
	"crypto/rand"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"

	"mud/internal/memzero"
)

// pubKeySize is the wire size of a public-key blob: 32 raw X25519 bytes
// followed by a 1-byte AES-capability flag (spec.md §3, §4.5).
const pubKeySize = 33

// publicKeyPair is the {send, recv} pair exchanged in a keyx message.
type publicKeyPair struct {
	send [pubKeySize]byte
	recv [pubKeySize]byte
}

// keyxState is the local ephemeral key-exchange state of spec.md §3
// ("Public-key state"): the local scalar plus our public pair, where
// public.recv caches the peer's last-seen public point.
type keyxState struct {
	secret [32]byte
	public publicKeyPair
}

// resetEphemeral generates a fresh scalar and the corresponding public
// point, clears public.recv, and stamps the AES-capability flag — the
// equivalent of original_source/mud.c's mud_keyx_init(), invoked both at
// engine creation and after every successful promotion of next->current
// (spec.md §4.2).
func (k *keyxState) resetEphemeral(aesCapable bool) error {
	memzero.Bytes(k.secret[:])
	if _, err := rand.Read(k.secret[:]); err != nil {
		return err
	}
	pub, err := curve25519.X25519(k.secret[:], curve25519.Basepoint)
	if err != nil {
		return err
	}
	copy(k.public.send[:32], pub)
	if aesCapable {
		k.public.send[32] = 1
	} else {
		k.public.send[32] = 0
	}
	k.public.recv = [pubKeySize]byte{}
	return nil
}

// encodeKeyxPayload serializes (public.send, public.recv) as the 66-byte
// keyx payload (spec.md §4.4).
func (k *keyxState) encodeKeyxPayload() []byte {
	buf := make([]byte, 2*pubKeySize)
	copy(buf[:pubKeySize], k.public.send[:])
	copy(buf[pubKeySize:], k.public.recv[:])
	return buf
}

// handleKeyxPayload implements spec.md §4.5 steps 1-10: given an inbound
// keyx payload (peerSend, peerRecv — each 33 bytes), update our public.recv,
// decide use_next/sync_send, and derive the `next` key slot. It returns
// syncSend: true if we must immediately retransmit a keyx on this path.
//
// The two keying pairs in step 7 are composed from our own current
// public.send and the peer's public.send — not the payload's peer_recv
// field, which may be stale — following original_source/mud.c's
// mud_recv_keyx exactly (it overwrites a scratch copy of our current
// public.send into the "recv" slot of each pair, never reads peer_recv
// into the keying material).
func handleKeyxPayload(ring *cryptoRing, k *keyxState, payload []byte, now uint64) (syncSend bool, err error) {
	if len(payload) != 2*pubKeySize {
		return false, errBadFrame
	}
	var peerSend, peerRecv [pubKeySize]byte
	copy(peerSend[:], payload[:pubKeySize])
	copy(peerRecv[:], payload[pubKeySize:])

	ourSend := k.public.send

	// 1. sync_send: the peer has not yet observed our current public key.
	syncSend = peerRecv != ourSend
	// 2. sync_recv is tracked for parity with spec.md but does not gate
	// anything beyond what step 5 already does via syncSend.
	_ = k.public.recv != peerSend

	// 3. Update our cached view of the peer's public key.
	k.public.recv = peerSend

	// 4. Commit to next iff the peer has already acknowledged our current
	// public key.
	ring.useNext = !syncSend

	// 6. Shared secret; abort silently on zero output (X25519 low-order
	// point), leaving the ring's next slot untouched.
	shared, err := curve25519.X25519(k.secret[:], peerSend[:32])
	if err != nil {
		return syncSend, errBadFrame
	}

	// 7. Compose the two keying blobs with differently oriented pairs:
	// "as we see it" (our send, peer send) and its mirror.
	sharedSend := composeShared(shared, ourSend, peerSend)
	sharedRecv := composeShared(shared, peerSend, ourSend)

	// 8. Derive next.encrypt_key / next.decrypt_key via a 32-byte keyed
	// hash (BLAKE2b-256), salted with the private (long-term) key.
	encKey, err := keyedHash(ring.private.encryptKey[:], sharedSend)
	if err != nil {
		return syncSend, err
	}
	decKey, err := keyedHash(ring.private.encryptKey[:], sharedRecv)
	if err != nil {
		return syncSend, err
	}

	// 9. AES iff both sides advertised the AES flag. The local side of the
	// AND is our own current public.send flag, not the wire payload's
	// peer_recv field — peer_recv is the peer's stale cached view of us,
	// and following original_source/mud.c's mud_recv_keyx exactly (it ANDs
	// against its own scratch-copied public.send.aes), not spec.md §4.5
	// step 9's literal prose, which would read peer_recv here and, given
	// resetEphemeral always zeroes public.recv, would force ChaCha20-
	// Poly1305 on every cold start regardless of mutual AES support.
	aesCapable := peerSend[32] == 1 && ourSend[32] == 1

	var encArr, decArr [keySize]byte
	copy(encArr[:], encKey)
	copy(decArr[:], decKey)
	nextSlot, err := newKeySlot(encArr, decArr, aesCapable)
	if err != nil {
		return syncSend, err
	}
	ring.next = nextSlot

	// 10. Record when we last processed a keyx from the peer.
	ring.recvTime = now

	return syncSend, nil
}

// composeShared concatenates the 32-byte shared secret with a public pair,
// matching original_source/mud.c's struct{secret; public} layout used as
// keyed-hash input.
func composeShared(shared []byte, send, recv [pubKeySize]byte) []byte {
	buf := make([]byte, 0, 32+2*pubKeySize)
	buf = append(buf, shared...)
	buf = append(buf, send[:]...)
	buf = append(buf, recv[:]...)
	return buf
}

// keyedHash computes a 32-byte BLAKE2b-256 keyed hash: H(data, key=salt).
func keyedHash(salt []byte, data []byte) ([]byte, error) {
	h, err := blake2b.New256(salt)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

