//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// ProgressReporter receives pipeline progress notifications.
// Implementations must not block the caller.
type ProgressReporter interface {
	// Report publishes a status message with a completion fraction in [0, 1]
	Report(message string, fraction float64)
}

// NoOpProgress discards all progress notifications
type NoOpProgress struct{}

// Report does nothing
func (NoOpProgress) Report(_ string, _ float64) {}

// ScaledProgress maps a child pipeline's [0, 1] range into [Start, End] of a parent
type ScaledProgress struct {
	Parent ProgressReporter
	Start  float64
	End    float64
}

// Report forwards the scaled fraction to the parent
func (s ScaledProgress) Report(message string, fraction float64) {
	if s.Parent == nil {
		return
	}
	s.Parent.Report(message, s.Start+(s.End-s.Start)*fraction)
}
