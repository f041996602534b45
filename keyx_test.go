package mud

import "testing"

func TestResetEphemeralStampsAESFlag(t *testing.T) {
	var k keyxState
	if err := k.resetEphemeral(true); err != nil {
		t.Fatalf("resetEphemeral: %v", err)
	}
	if k.public.send[32] != 1 {
		t.Errorf("want AES flag 1, got %d", k.public.send[32])
	}
	if err := k.resetEphemeral(false); err != nil {
		t.Fatalf("resetEphemeral: %v", err)
	}
	if k.public.send[32] != 0 {
		t.Errorf("want AES flag 0, got %d", k.public.send[32])
	}
}

func TestResetEphemeralClearsPeerRecv(t *testing.T) {
	var k keyxState
	_ = k.resetEphemeral(false)
	k.public.recv[0] = 0xaa
	if err := k.resetEphemeral(false); err != nil {
		t.Fatalf("resetEphemeral: %v", err)
	}
	var zero [pubKeySize]byte
	if k.public.recv != zero {
		t.Errorf("public.recv must be cleared on reset")
	}
}

func TestEncodeKeyxPayloadLayout(t *testing.T) {
	var k keyxState
	_ = k.resetEphemeral(true)
	k.public.recv[0] = 0x42

	buf := k.encodeKeyxPayload()
	if len(buf) != 2*pubKeySize {
		t.Fatalf("want %d bytes, got %d", 2*pubKeySize, len(buf))
	}
	if buf[pubKeySize] != 0x42 {
		t.Errorf("second half must be public.recv, got %#02x", buf[pubKeySize])
	}
}

// TestHandshakeDerivesMatchingKeys exercises the full two-sided exchange of
// spec.md §4.5: each side processes the other's keyx payload and the
// resulting next.encrypt_key/decrypt_key pairs must cross-match (A's
// encrypt key equals B's decrypt key and vice versa), since each side
// composes the (send, recv) pair in mirrored order.
func TestHandshakeDerivesMatchingKeys(t *testing.T) {
	var ringA, ringB cryptoRing
	longTerm := testKey(20)
	if err := ringA.setLongTermKey(longTerm); err != nil {
		t.Fatalf("ringA.setLongTermKey: %v", err)
	}
	if err := ringB.setLongTermKey(longTerm); err != nil {
		t.Fatalf("ringB.setLongTermKey: %v", err)
	}

	var kxA, kxB keyxState
	if err := kxA.resetEphemeral(true); err != nil {
		t.Fatalf("kxA.resetEphemeral: %v", err)
	}
	if err := kxB.resetEphemeral(true); err != nil {
		t.Fatalf("kxB.resetEphemeral: %v", err)
	}

	// Round 1: both sides have an empty public.recv, so peerRecv == zero
	// != ourSend on both sides; syncSend is expected true both ways and
	// use_next must not commit yet.
	payloadAtoB := kxA.encodeKeyxPayload()
	payloadBtoA := kxB.encodeKeyxPayload()

	syncB, err := handleKeyxPayload(&ringB, &kxB, payloadAtoB, 1000)
	if err != nil {
		t.Fatalf("B handling A's payload: %v", err)
	}
	syncA, err := handleKeyxPayload(&ringA, &kxA, payloadBtoA, 1000)
	if err != nil {
		t.Fatalf("A handling B's payload: %v", err)
	}
	if !syncA || !syncB {
		t.Fatalf("first exchange must require sync_send on both sides, got syncA=%v syncB=%v", syncA, syncB)
	}
	if ringA.useNext || ringB.useNext {
		t.Fatalf("use_next must not commit before the peer has observed our current key")
	}

	// Cold-start AES decision: even on this very first exchange, with
	// public.recv freshly zeroed by resetEphemeral on both sides, the
	// derived next slot must still pick AES-256-GCM since both sides
	// advertised it on public.send — the bug this guards against forced
	// ChaCha20-Poly1305 here by reading the zeroed peer_recv field instead
	// of our own current public.send.
	if ringA.next.kind != cipherAES256GCM {
		t.Errorf("want A's next slot to select AES on cold start with mutual AES support, got %v", ringA.next.kind)
	}
	if ringB.next.kind != cipherAES256GCM {
		t.Errorf("want B's next slot to select AES on cold start with mutual AES support, got %v", ringB.next.kind)
	}

	// Round 2: now each side's public.recv holds the peer's send key from
	// round 1, so re-sending our (now acknowledged) keyx should clear
	// sync_send and commit use_next.
	payloadAtoB2 := kxA.encodeKeyxPayload()
	payloadBtoA2 := kxB.encodeKeyxPayload()

	syncB2, err := handleKeyxPayload(&ringB, &kxB, payloadAtoB2, 2000)
	if err != nil {
		t.Fatalf("B handling A's second payload: %v", err)
	}
	syncA2, err := handleKeyxPayload(&ringA, &kxA, payloadBtoA2, 2000)
	if err != nil {
		t.Fatalf("A handling B's second payload: %v", err)
	}
	if syncA2 || syncB2 {
		t.Fatalf("second exchange must clear sync_send once peer_recv matches our current send key")
	}
	if !ringA.useNext || !ringB.useNext {
		t.Fatalf("use_next must commit once sync_send clears")
	}

	if ringA.next.encryptKey != ringB.next.decryptKey {
		t.Errorf("A's next encrypt key must match B's next decrypt key")
	}
	if ringA.next.decryptKey != ringB.next.encryptKey {
		t.Errorf("A's next decrypt key must match B's next encrypt key")
	}
}

func TestHandleKeyxPayloadRejectsWrongSize(t *testing.T) {
	var ring cryptoRing
	_ = ring.setLongTermKey(testKey(21))
	var kx keyxState
	_ = kx.resetEphemeral(false)
	if _, err := handleKeyxPayload(&ring, &kx, make([]byte, 10), 1); err != errBadFrame {
		t.Fatalf("want errBadFrame for undersized payload, got %v", err)
	}
}

func TestComposeSharedOrderMatters(t *testing.T) {
	shared := []byte{1, 2, 3}
	var a, b [pubKeySize]byte
	a[0] = 0xaa
	b[0] = 0xbb
	ab := composeShared(shared, a, b)
	ba := composeShared(shared, b, a)
	if len(ab) != len(ba) {
		t.Fatalf("composed buffers must be equal length")
	}
	equal := true
	for i := range ab {
		if ab[i] != ba[i] {
			equal = false
			break
		}
	}
	if equal {
		t.Errorf("composeShared(shared, a, b) must differ from composeShared(shared, b, a)")
	}
}

func TestKeyedHashDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef0123456789abcdef")
	data := []byte("some shared secret material")
	h1, err := keyedHash(salt, data)
	if err != nil {
		t.Fatalf("keyedHash: %v", err)
	}
	h2, err := keyedHash(salt, data)
	if err != nil {
		t.Fatalf("keyedHash: %v", err)
	}
	if len(h1) != 32 {
		t.Fatalf("want 32-byte digest, got %d", len(h1))
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Fatalf("keyedHash must be deterministic for identical inputs")
		}
	}
}
