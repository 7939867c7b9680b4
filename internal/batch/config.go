package batch

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// Output naming: <dir>/<base><Suffix>.<ext>. An empty OutputDir writes
	// next to each input.
	OutputDir string
	Suffix    string
	Overwrite bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
}

// DefaultConfig returns four workers that stop on the first failure.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		ShowProgress:     true,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the worker count and glob patterns.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	var errs []error
	for _, p := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if err := validatePattern(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
