// Package recorder gives every capture concern the same lifecycle so a
// session can drive screen, input and control recorders uniformly.
package recorder

import "codeberg.org/mutker/capturectl/internal/telemetry"

// Recorder is one recording concern. The lifecycle is strict:
// CheckAvailability before Start, Stop before Join. Stop is idempotent
// and never blocks; Join performs the blocking wait and artifact
// writes. Recorders without pipeline telemetry return a nil report.
type Recorder interface {
	Name() string
	CheckAvailability() error
	SetOutputDir(dir string)
	Start() error

	// ShouldStop reports whether this recorder wants the whole session
	// stopped, either because it finished or because it detected a
	// condition that makes continuing pointless.
	ShouldStop() bool

	Stop()
	Join() (*telemetry.Report, error)
}
