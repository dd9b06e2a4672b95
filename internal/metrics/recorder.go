// Package metrics records build and rebuild observations.
package metrics

import "time"

// Recorder receives build observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	// ObserveRebuild records one incremental rebuild of the given change kind.
	ObserveRebuild(kind string, d time.Duration, success bool)
	AddRendered(n int)
	AddCopied(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not served).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) ObserveRebuild(string, time.Duration, bool) {}
func (NoopRecorder) AddRendered(int)                            {}
func (NoopRecorder) AddCopied(int)                              {}
