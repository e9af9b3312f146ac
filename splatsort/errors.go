// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"fmt"

	"github.com/gviegas/splatsort/recorder"
)

// CapacityExceeded means a scratch or input buffer would exceed
// the device's maximum buffer length. It is fatal to the sort
// invocation that triggered it; the caller typically splits the
// workload across multiple smaller sorts.
type CapacityExceeded struct {
	Requested int64
	Max       int64
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("splatsort: capacity exceeded: requested %d bytes, device maximum is %d", e.Requested, e.Max)
}

// ShaderFunctionMissing means a required kernel entry point is
// absent from the shader library. It can only occur during
// Sorter construction and is always fatal.
type ShaderFunctionMissing struct {
	Name string
}

func (e *ShaderFunctionMissing) Error() string {
	return fmt.Sprintf("splatsort: shader function missing: %q", e.Name)
}

// PipelineCreationFailed means the driver rejected a compute
// pipeline at construction time. It is always fatal.
type PipelineCreationFailed struct {
	Name  string
	Cause error
}

func (e *PipelineCreationFailed) Error() string {
	return fmt.Sprintf("splatsort: pipeline creation failed: %q: %v", e.Name, e.Cause)
}

func (e *PipelineCreationFailed) Unwrap() error { return e.Cause }

// InvalidArgument means the caller violated a documented
// precondition of Sort, such as an undersized output buffer or a
// zero count where the contract demands one. This is always a
// caller bug, never a transient condition.
type InvalidArgument struct {
	Which string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("splatsort: invalid argument: %s", e.Which)
}

// CommandObjectUnavailable matches (under errors.Is) the error
// returned when the recorder is at its in-flight cap, which is
// Busy. It is transient: the caller should retry on a subsequent
// frame or drop the current one. The recorder also returns it
// when a command buffer cannot be created or a command object is
// submitted twice.
//
// This re-exports recorder.CommandObjectUnavailable rather than
// defining a distinct sentinel, so that errors.Is against either
// name succeeds regardless of which package a caller imports.
var CommandObjectUnavailable = recorder.CommandObjectUnavailable

// Busy is returned by a non-blocking acquire of a command object
// when every object is already in flight.
var Busy = recorder.Busy
