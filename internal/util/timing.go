package util

import "time"

// DurationSink receives the measured duration of a named call. The monitor
// package's metrics aggregator implements this.
type DurationSink interface {
	ObserveDuration(name string, d time.Duration)
}

// Timed measures the wall-clock duration of fn and reports it to sink under
// the given name. The call's error is passed through unchanged. Call sites
// invoke this explicitly; there is no implicit interception.
func Timed(sink DurationSink, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if sink != nil {
		sink.ObserveDuration(name, time.Since(start))
	}
	return err
}
