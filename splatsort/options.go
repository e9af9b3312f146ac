// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import "log/slog"

// Option configures a Sorter at construction time.
type Option func(*Sorter)

// WithBackend sets the backend passed to routeBackend on each Sort
// call. BackendCPU is always honored; for either GPU backend the
// splat count alone decides between BackendBitonicGPU and
// BackendRadixGPU. The default is BackendRadixGPU.
func WithBackend(b Backend) Option {
	return func(s *Sorter) { s.backend = b }
}

// WithBitonicThreshold sets the splat count at or below which
// routeBackend routes to BackendBitonicGPU instead of the
// full radix pipeline. The default is 65536, matching
// BitonicFallback's documented range.
func WithBitonicThreshold(n int) Option {
	return func(s *Sorter) { s.bitonicThreshold = n }
}

// WithMaxInFlight sets the recorder's in-flight command object
// cap. The default is recorder.DefaultMaxInFlight.
func WithMaxInFlight(n int) Option {
	return func(s *Sorter) { s.maxInFlight = n }
}

// WithLogger sets the structured logger the Sorter and its
// collaborators (Pool, Recorder) use. The default is a disabled
// logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sorter) { s.log = log }
}
