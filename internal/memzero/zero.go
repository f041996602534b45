// Package memzero best-effort scrubs key material from memory once a
// crypto-ring slot or ephemeral scalar is retired (spec.md §3's key-ring
// slots, promoted/discarded on every keyx and rekey).
package memzero

import "runtime"

// Bytes overwrites b with zeros.
//
// SECURITY INVARIANT: this must not be optimized away by the compiler. We
// use runtime.KeepAlive to create a happens-before edge that prevents
// dead-store elimination. The slice is considered "live" until after
// zeroing.
//
// LIMITATION: the Go GC may already have copied b before this call. This
// is best-effort defense against memory forensics, not a guarantee.
func Bytes(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
