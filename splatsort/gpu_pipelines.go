// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"github.com/gviegas/splatsort/driver"
)

// stagePipeline bundles a compute pipeline with the descriptor
// heap/table that feeds it. Every kernel gets its own heap: the
// set of buffers it binds changes shape between passes (keys_A
// vs keys_B, for instance), so there is nothing to gain from
// sharing a single heap across kernels the way a renderer might
// share material descriptors across draws.
type stagePipeline struct {
	name  string
	descs []driver.Descriptor
	heap  driver.DescHeap
	table driver.DescTable
	pipe  driver.Pipeline
}

// stageDescriptors returns the binding layout for each kernel.
// It mirrors the @group(0) bindings declared in wgslSource for
// that entry point.
func stageDescriptors(name string) []driver.Descriptor {
	buf := func(n int) driver.Descriptor {
		return driver.Descriptor{Type: driver.DBuffer, Stages: driver.SCompute, Nr: n, Len: 1}
	}
	cst := func(n int) driver.Descriptor {
		return driver.Descriptor{Type: driver.DConstant, Stages: driver.SCompute, Nr: n, Len: 1}
	}
	switch name {
	case "key_build":
		return []driver.Descriptor{cst(0), buf(1), buf(2)}
	case "histogram_reset":
		return []driver.Descriptor{buf(0)}
	case "histogram_accumulate":
		return []driver.Descriptor{cst(0), buf(1), buf(2)}
	case "prefix_sum":
		return []driver.Descriptor{buf(0)}
	case "scatter_count":
		return []driver.Descriptor{cst(0), buf(1), buf(2)}
	case "scatter_offsets":
		return []driver.Descriptor{cst(0), buf(1), buf(2), buf(3)}
	case "scatter_write":
		return []driver.Descriptor{cst(0), buf(1), buf(2), buf(3)}
	case "extract_indices":
		return []driver.Descriptor{cst(0), buf(1), buf(2)}
	case "bitonic_pass":
		return []driver.Descriptor{cst(0), buf(1)}
	default:
		return nil
	}
}

// buildPipelines compiles wgslSource once and creates one
// compute pipeline per entry point in kernelNames.
// ShaderFunctionMissing and PipelineCreationFailed are
// construction-time-only errors, per the sort core's error
// taxonomy: a missing kernel or a rejected pipeline can never
// occur mid-sort, since every pipeline this Sorter will use is
// built here, before the first Sort call.
func buildPipelines(gpu driver.GPU) (map[string]*stagePipeline, driver.ShaderCode, error) {
	code, err := gpu.NewShaderCode([]byte(wgslSource))
	if err != nil {
		return nil, nil, &PipelineCreationFailed{Name: "wgslSource", Cause: err}
	}
	stages := make(map[string]*stagePipeline, len(kernelNames))
	for _, name := range kernelNames {
		descs := stageDescriptors(name)
		if descs == nil {
			code.Destroy()
			return nil, nil, &ShaderFunctionMissing{Name: name}
		}
		heap, err := gpu.NewDescHeap(descs)
		if err != nil {
			code.Destroy()
			return nil, nil, &PipelineCreationFailed{Name: name, Cause: err}
		}
		if err := heap.New(1); err != nil {
			code.Destroy()
			return nil, nil, &PipelineCreationFailed{Name: name, Cause: err}
		}
		table, err := gpu.NewDescTable([]driver.DescHeap{heap})
		if err != nil {
			code.Destroy()
			return nil, nil, &PipelineCreationFailed{Name: name, Cause: err}
		}
		pipe, err := gpu.NewPipeline(&driver.CompState{
			Func: driver.ShaderFunc{Code: code, Name: name},
			Desc: table,
		})
		if err != nil {
			code.Destroy()
			return nil, nil, &PipelineCreationFailed{Name: name, Cause: err}
		}
		stages[name] = &stagePipeline{name: name, descs: descs, heap: heap, table: table, pipe: pipe}
	}
	return stages, code, nil
}
