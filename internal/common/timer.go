// Package common holds small measurement helpers shared by the pipeline and
// the benchmark tool.
package common

import (
	"fmt"
	"time"
)

// Timer measures one named span. A stopped timer keeps its duration.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
	stopped  bool
}

// NewTimer starts a timer.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop freezes the timer and returns the elapsed time. Later calls return the
// same value.
func (t *Timer) Stop() time.Duration {
	if !t.stopped {
		t.duration = time.Since(t.start)
		t.stopped = true
	}
	return t.duration
}

// Elapsed returns the running time, or the frozen duration once stopped.
func (t *Timer) Elapsed() time.Duration {
	if t.stopped {
		return t.duration
	}
	return time.Since(t.start)
}

// Name returns the span name.
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	if t.name == "" {
		return t.Elapsed().String()
	}
	return fmt.Sprintf("%s: %v", t.name, t.Elapsed())
}

// Measure runs fn and reports how long it took.
func Measure(fn func() error) (time.Duration, error) {
	t := NewTimer("")
	err := fn()
	return t.Stop(), err
}
