// Package mudlog is a thin wrapper around the standard library log
// package, mirroring the teacher's direct log.Printf/log.Println calls
// rather than pulling in a structured-logging framework. The core engine
// never logs (its entry points are pure state machines returning
// errors/bytes); this package exists only for the ambient socket adapter
// and the cmd/mud driver.
package mudlog

import "log"

// Infof logs an informational line, e.g. socket setup or a learned path.
func Infof(format string, args ...any) {
	log.Printf("mud: "+format, args...)
}

// Warnf logs a recoverable condition, e.g. a dropped frame. The core
// itself never calls this directly (recv/send drop silently per spec.md
// §7); it is for callers that want visibility into the drop rate.
func Warnf(format string, args ...any) {
	log.Printf("mud: warning: "+format, args...)
}
