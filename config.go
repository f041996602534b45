package mud

// Default tunables (spec.md §6).
const (
	defaultSendTimeoutMsec  = 1000
	defaultTimeToleranceSec = 600
	defaultMTU              = 1450

	minMTU = 500
	maxMTU = 1450
)

// Config is the caller-built configuration surface of spec.md §6. No
// env/file loader is in scope (spec.md §1 Non-goals exclude configuration
// loading) — the caller constructs this directly and passes it to Create.
type Config struct {
	// Port is the local UDP port to bind.
	Port uint16

	// EnableV4 / EnableV6 select which address families the socket
	// serves. At least one must be true.
	EnableV4 bool
	EnableV6 bool

	// PreferAES advertises AES-256-GCM capability during key exchange;
	// the cipher actually used is AES-256-GCM only when both peers
	// advertise it (spec.md §4.2).
	PreferAES bool

	// MTU is the initial local MTU, 500..1450 inclusive.
	MTU uint64

	// Socket is the datagram transport. Required; see the Socket
	// interface and internal/udpsocket for a concrete implementation.
	Socket Socket
}

func (c Config) validate() error {
	if c.Socket == nil {
		return ErrInvalidArgument
	}
	if !c.EnableV4 && !c.EnableV6 {
		return ErrInvalidArgument
	}
	if c.MTU < minMTU || c.MTU > maxMTU {
		return ErrInvalidArgument
	}
	return nil
}
