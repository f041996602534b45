package mud

import "time"

// now returns the current wall-clock time as a 48-bit microsecond counter,
// truncated to 48 bits as spec.md §2 requires for all protocol timestamps.
// Microsecond resolution matches original_source/mud.c's mud_now(), which
// favors microseconds over milliseconds so EWMA convergence (spec.md §8
// property 9) is not dominated by timer-tick coarseness.
func now() uint64 {
	return uint64(time.Now().UnixMicro()) & maxUint48
}

// msToUs converts a millisecond duration to the clock's microsecond unit.
func msToUs(ms uint64) uint64 {
	return ms * 1000
}

// secToUs converts a second duration to the clock's microsecond unit.
func secToUs(sec uint64) uint64 {
	return sec * 1_000_000
}
