package mud

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	"mud/internal/memzero"
)

const keySize = 32

// cipherKind records which AEAD a key slot was built for, so Encrypt/Decrypt
// never have to branch on key length or re-derive the choice.
type cipherKind uint8

const (
	cipherChaCha20Poly1305 cipherKind = iota
	cipherAES256GCM
)

// keySlot holds the encrypt/decrypt AEAD pair for one crypto-ring entry
// (spec.md §3's "Crypto key slot"). For the private (long-term PSK) slot
// and for last/current/next before any keyx, encrypt and decrypt share the
// same key. After a keyx, next's encrypt and decrypt keys are derived
// asymmetrically (spec.md §4.5 steps 7-8: shared_send feeds encrypt_key,
// shared_recv feeds decrypt_key) mirroring original_source/mud.c's
// `struct crypto_key { encrypt; decrypt; aes }`.
type keySlot struct {
	encryptKey [keySize]byte
	decryptKey [keySize]byte
	encrypt    cipher.AEAD
	decrypt    cipher.AEAD
	kind       cipherKind
	filled     bool
}

// newSymmetricKeySlot builds a key slot where encrypt and decrypt share the
// same key, selecting AES-256-GCM when aesCapable is true (spec.md §4.2)
// and ChaCha20-Poly1305 otherwise.
func newSymmetricKeySlot(key [keySize]byte, aesCapable bool) (keySlot, error) {
	return newKeySlot(key, key, aesCapable)
}

// newKeySlot builds a key slot with independent encrypt/decrypt keys (used
// after a keyx derives asymmetric next.encrypt_key/next.decrypt_key).
func newKeySlot(encKey, decKey [keySize]byte, aesCapable bool) (keySlot, error) {
	s := keySlot{encryptKey: encKey, decryptKey: decKey, filled: true}

	enc, kind, err := buildAEAD(encKey, aesCapable)
	if err != nil {
		return keySlot{}, err
	}
	dec, _, err := buildAEAD(decKey, aesCapable)
	if err != nil {
		return keySlot{}, err
	}
	s.encrypt, s.decrypt, s.kind = enc, dec, kind
	return s, nil
}

func buildAEAD(key [keySize]byte, aesCapable bool) (cipher.AEAD, cipherKind, error) {
	if aesCapable {
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, 0, err
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, 0, err
		}
		return gcm, cipherAES256GCM, nil
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, 0, err
	}
	return aead, cipherChaCha20Poly1305, nil
}

func zeroKeySlot(s *keySlot) {
	memzero.Bytes(s.encryptKey[:])
	memzero.Bytes(s.decryptKey[:])
	s.encrypt, s.decrypt = nil, nil
	s.filled = false
}

// cryptoRing is the four-slot key ring of spec.md §3: private (long-term
// PSK), last, current, next.
type cryptoRing struct {
	private keySlot
	last    keySlot
	current keySlot
	next    keySlot

	useNext bool
	badKey  bool

	sendTime uint64 // crypto.send_time: last local keyx transmission
	recvTime uint64 // crypto.recv_time: last keyx processed from peer
}

// setLongTermKey installs the long-term key into the private slot and, for
// a fresh engine with no data traffic yet, seeds last/current/next with it
// too so encryption is always possible before the first keyx (mirrors
// original_source's mud_set_key(), which copies the key into every slot).
func (r *cryptoRing) setLongTermKey(key [keySize]byte) error {
	priv, err := newSymmetricKeySlot(key, false)
	if err != nil {
		return err
	}
	last, err := newSymmetricKeySlot(key, false)
	if err != nil {
		return err
	}
	cur, err := newSymmetricKeySlot(key, false)
	if err != nil {
		return err
	}
	nxt, err := newSymmetricKeySlot(key, false)
	if err != nil {
		return err
	}
	r.private, r.last, r.current, r.next = priv, last, cur, nxt
	return nil
}

// dataEncryptSlot returns the slot to encrypt outbound data frames under:
// next when use_next is set, else current (spec.md §4.2).
func (r *cryptoRing) dataEncryptSlot() *keySlot {
	if r.useNext {
		return &r.next
	}
	return &r.current
}

// frameOverhead is the AEAD tag length, identical for both supported
// ciphers (GCM and Poly1305 both produce a 16-byte tag).
const frameOverhead = 16

// dataFrameEncrypt builds a data-plane frame: nonce(6) || ciphertext || tag(16).
// The AD is the 6-byte nonce header. Fails when nonce is zero (spec.md §4.2).
func dataFrameEncrypt(slot *keySlot, nonce uint64, plaintext []byte) ([]byte, error) {
	if nonce == 0 {
		return nil, ErrInvalidArgument
	}
	header := make([]byte, uint48Size)
	putUint48(header, nonce)

	aeadNonce := make([]byte, slot.encrypt.NonceSize())
	copy(aeadNonce, header)

	out := slot.encrypt.Seal(header, aeadNonce, plaintext, header)
	return out, nil
}

// dataFrameDecrypt attempts to open a data-plane frame under a single slot.
func dataFrameDecrypt(slot *keySlot, frame []byte) ([]byte, error) {
	if !slot.filled || len(frame) < uint48Size+frameOverhead {
		return nil, errBadFrame
	}
	header := frame[:uint48Size]
	ciphertext := frame[uint48Size:]

	aeadNonce := make([]byte, slot.decrypt.NonceSize())
	copy(aeadNonce, header)

	plaintext, err := slot.decrypt.Open(nil, aeadNonce, ciphertext, header)
	if err != nil {
		return nil, errBadFrame
	}
	return plaintext, nil
}

// decryptData tries current, then next (promoting on success), then last,
// then private, per spec.md §4.2. onPromote is invoked only on a successful
// next-slot decrypt, so the caller can re-roll the local ephemeral keypair.
func (r *cryptoRing) decryptData(frame []byte, onPromote func()) ([]byte, error) {
	if pt, err := dataFrameDecrypt(&r.current, frame); err == nil {
		return pt, nil
	}
	if pt, err := dataFrameDecrypt(&r.next, frame); err == nil {
		r.last = r.current
		r.current = r.next
		zeroKeySlot(&r.next)
		r.useNext = false
		if onPromote != nil {
			onPromote()
		}
		return pt, nil
	}
	if pt, err := dataFrameDecrypt(&r.last, frame); err == nil {
		return pt, nil
	}
	if pt, err := dataFrameDecrypt(&r.private, frame); err == nil {
		return pt, nil
	}
	r.badKey = true
	return nil, errBadDataKey
}

// controlFrameEncrypt authenticates a control packet under the private
// slot (spec.md §4.2, §4.4). header is the 12-byte zeros||send_time prefix,
// used as the AEAD nonce (zero-padded); header||payload together are the
// associated data. The control plane stays in cleartext on the wire
// (matching original_source/mud.c's mud_send_ctrl/mud_recv, which leave
// the payload readable and authenticate it as AD rather than encrypt it):
// Seal is called with an empty plaintext, so the result is simply
// header||payload||tag.
func controlFrameEncrypt(slot *keySlot, header [12]byte, payload []byte) []byte {
	aeadNonce := make([]byte, slot.encrypt.NonceSize())
	copy(aeadNonce, header[:])

	ad := make([]byte, 0, len(header)+len(payload))
	ad = append(ad, header[:]...)
	ad = append(ad, payload...)

	return slot.encrypt.Seal(ad, aeadNonce, nil, ad)
}

// controlFrameDecrypt verifies a control packet authenticated under the
// private slot. packet is the entire wire frame: 12-byte header, cleartext
// payload, and a trailing 16-byte tag over header||payload as AD. Returns
// the cleartext payload once the tag checks out.
func controlFrameDecrypt(slot *keySlot, packet []byte) ([]byte, error) {
	if len(packet) < ctrlHeaderSize+frameOverhead {
		return nil, errBadFrame
	}
	header := packet[:ctrlHeaderSize]
	ad := packet[:len(packet)-frameOverhead]
	tag := packet[len(packet)-frameOverhead:]
	payload := packet[ctrlHeaderSize : len(packet)-frameOverhead]

	aeadNonce := make([]byte, slot.decrypt.NonceSize())
	copy(aeadNonce, header)

	if _, err := slot.decrypt.Open(nil, aeadNonce, tag, ad); err != nil {
		return nil, errBadFrame
	}
	return payload, nil
}
