// Package monitoring carries the pipeline's diagnostic logging hook and the
// per-frame summary it emits.
package monitoring

import "log"

// logf is the active diagnostic sink; nil means muted.
var logf func(format string, v ...interface{}) = log.Printf

// Logf writes a diagnostic line through the active sink.
func Logf(format string, v ...interface{}) {
	if logf != nil {
		logf(format, v...)
	}
}

// SetLogger replaces the diagnostic sink. Passing nil mutes diagnostics
// entirely.
func SetLogger(f func(format string, v ...interface{})) {
	logf = f
}

// FrameSummary is the per-frame fusion outcome reported after processing:
// how many vehicle detections were produced, how many of those carry a
// reconstructed 3-D box, and how many fell back to the far estimate.
type FrameSummary struct {
	Frame       int
	CloudPoints int
	Vehicles    int
	Boxed       int
	Far         int
	Obstacles   int
}

// LogFrame emits a frame summary through the diagnostic sink.
func LogFrame(s FrameSummary) {
	Logf("frame %d: %d points, %d vehicles (%d boxed, %d far), %d obstacles",
		s.Frame, s.CloudPoints, s.Vehicles, s.Boxed, s.Far, s.Obstacles)
}
