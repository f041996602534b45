package mud

import "errors"

// Exported error kinds, matching spec.md §7's caller-visible taxonomy.
// Internal-only kinds (BadFrame, BadDataKey) never surface: the receive
// path recovers them locally and the engine simply continues.
var (
	// ErrInvalidArgument is returned by configuration entry points on a
	// null/empty argument, an out-of-range MTU, or a malformed address
	// literal.
	ErrInvalidArgument = errors.New("mud: invalid argument")

	// ErrOutOfMemory is returned when path allocation fails.
	ErrOutOfMemory = errors.New("mud: out of memory")

	// ErrMessageTooBig is returned by Send when the plaintext exceeds the
	// negotiated MTU, and by Recv when the decrypted plaintext does not fit
	// in the caller's buffer.
	ErrMessageTooBig = errors.New("mud: message exceeds negotiated MTU")

	// ErrClosed is returned by entry points once the engine has been
	// destroyed via Delete.
	ErrClosed = errors.New("mud: engine closed")
)

// Internal-only sentinels (spec.md §7's BadFrame/BadDataKey): never
// returned from an exported entry point. Recv recovers both locally and
// reports success with zero bytes.
var (
	errBadFrame   = errors.New("mud: dropped malformed or unauthenticated frame")
	errBadDataKey = errors.New("mud: no key slot could decrypt data frame")
)
