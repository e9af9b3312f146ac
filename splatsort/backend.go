// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"errors"
	"fmt"
	"strings"
)

// Backend selects which sort implementation a Sorter dispatches
// to. This is a closed enum dispatched by tagged selection at
// sort entry, not a type-switch or a global: a reviewer adding a
// fourth backend must extend this type, NormalizeBackend, and
// routeBackend together, in one place.
type Backend int

const (
	// BackendRadixGPU runs the full four-pass GPU radix sort.
	BackendRadixGPU Backend = iota
	// BackendBitonicGPU runs the GPU bitonic network, used for
	// small inputs where the fixed overhead of four radix
	// passes and their scratch buffers is not worth paying.
	BackendBitonicGPU
	// BackendCPU runs a pure Go reference sort with no GPU
	// involvement at all. It exists for headless testing and
	// as the last-resort path when no driver is available.
	BackendCPU
)

func (b Backend) String() string {
	switch b {
	case BackendRadixGPU:
		return "radix-gpu"
	case BackendBitonicGPU:
		return "bitonic-gpu"
	case BackendCPU:
		return "cpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// SupportedBackends returns every Backend value a Sorter can be
// configured with, in preference order.
func SupportedBackends() []Backend {
	return []Backend{BackendRadixGPU, BackendBitonicGPU, BackendCPU}
}

// ErrUnknownBackend is returned by NormalizeBackend when the given
// name does not match any supported backend.
var ErrUnknownBackend = errors.New("splatsort: unknown backend")

// NormalizeBackend maps a user-supplied backend name to a Backend
// value, for the CLI and for any future config-driven selection.
// Matching is case-insensitive and tolerant of the GPU-suffixed
// spellings the Backend.String() values use.
func NormalizeBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "radix", "radix-gpu":
		return BackendRadixGPU, nil
	case "bitonic", "bitonic-gpu":
		return BackendBitonicGPU, nil
	case "cpu":
		return BackendCPU, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// routeBackend resolves the backend a single Sort call should
// actually use. An explicit BackendCPU request is always honored,
// since the caller may be running without a driver at all.
// Otherwise, inputs at or below threshold are routed to the
// bitonic GPU path, which has none of the radix path's
// per-pass scratch and histogram overhead; larger inputs use the
// full radix pipeline.
func routeBackend(requested Backend, count, threshold int) Backend {
	if requested == BackendCPU {
		return BackendCPU
	}
	if count <= threshold {
		return BackendBitonicGPU
	}
	return BackendRadixGPU
}
