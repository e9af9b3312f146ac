// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gviegas/splatsort/driver"
)

// gpuImpl implements driver.GPU on top of a single wgpu.Device.
type gpuImpl struct {
	drv    *Driver
	dev    *wgpu.Device
	queue  *wgpu.Queue
	limits driver.Limits
}

// Driver implements driver.GPU.
func (g *gpuImpl) Driver() driver.Driver { return g.drv }

// Commit implements driver.GPU.
// The batch is all-or-nothing: if any command buffer is foreign
// or has not been ended, nothing is submitted and the first such
// error is reported; otherwise all of them go to the queue, in
// order, in a single Submit call.
func (g *gpuImpl) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	go func() {
		var firstErr error
		bufs := make([]*wgpu.CommandBuffer, 0, len(cb))
		for _, c := range cb {
			impl, ok := c.(*cmdBuffer)
			if !ok || impl.cmd == nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("webgpu: %w: command buffer not ended", driver.ErrFatal)
				}
				continue
			}
			bufs = append(bufs, impl.cmd)
		}
		if firstErr == nil && len(bufs) > 0 {
			g.queue.Submit(bufs...)
		}
		if ch != nil {
			ch <- firstErr
		}
	}()
}

// NewCmdBuffer implements driver.GPU.
func (g *gpuImpl) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &cmdBuffer{gpu: g}, nil
}

// NewShaderCode implements driver.GPU.
func (g *gpuImpl) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	mod, err := g.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "splatsort.shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(data)},
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	return &shaderCode{mod: mod}, nil
}

// NewDescHeap implements driver.GPU.
func (g *gpuImpl) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(ds))
	for i, d := range ds {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(i)}
		if d.Stages&driver.SCompute != 0 {
			e.Visibility = wgpu.ShaderStageCompute
		}
		switch d.Type {
		case driver.DConstant:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		default:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		}
		entries[i] = e
	}
	layout, err := g.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "splatsort.heap",
		Entries: entries,
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	return &descHeap{gpu: g, layout: layout, descs: ds}, nil
}

// NewDescTable implements driver.GPU.
func (g *gpuImpl) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	heaps := make([]*descHeap, len(dh))
	for i, h := range dh {
		impl, ok := h.(*descHeap)
		if !ok {
			return nil, fmt.Errorf("webgpu: %w: foreign DescHeap", driver.ErrFatal)
		}
		heaps[i] = impl
	}
	return &descTable{gpu: g, heaps: heaps}, nil
}

// NewPipeline implements driver.GPU.
func (g *gpuImpl) NewPipeline(state any) (driver.Pipeline, error) {
	cs, ok := state.(*driver.CompState)
	if !ok {
		return nil, fmt.Errorf("webgpu: %w: state is not a *driver.CompState", driver.ErrFatal)
	}
	sc, ok := cs.Func.Code.(*shaderCode)
	if !ok {
		return nil, fmt.Errorf("webgpu: %w: foreign ShaderCode", driver.ErrFatal)
	}
	dt, ok := cs.Desc.(*descTable)
	if !ok {
		return nil, fmt.Errorf("webgpu: %w: foreign DescTable", driver.ErrFatal)
	}
	layouts := make([]*wgpu.BindGroupLayout, len(dt.heaps))
	for i, h := range dt.heaps {
		layouts[i] = h.layout
	}
	pl, err := g.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "splatsort.pipeline-layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	cp, err := g.dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "splatsort.pipeline",
		Layout: pl,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sc.mod,
			EntryPoint: cs.Func.Name,
		},
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	return &pipeline{pipeline: cp, layout: pl, table: dt}, nil
}

// NewBuffer implements driver.GPU.
func (g *gpuImpl) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size > g.limits.MaxBufferLength {
		return nil, fmt.Errorf("webgpu: buffer size %d exceeds device maximum %d", size, g.limits.MaxBufferLength)
	}
	var u wgpu.BufferUsage
	if usg&driver.UShaderRead != 0 || usg&driver.UShaderWrite != 0 {
		u |= wgpu.BufferUsageStorage
	}
	if usg&driver.UShaderConst != 0 {
		u |= wgpu.BufferUsageUniform
	}
	if usg&driver.UCopySrc != 0 {
		u |= wgpu.BufferUsageCopySrc
	}
	if usg&driver.UCopyDst != 0 {
		u |= wgpu.BufferUsageCopyDst
	}
	if visible {
		u |= wgpu.BufferUsageMapRead | wgpu.BufferUsageMapWrite
	}
	buf, err := g.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "splatsort.buffer",
		Size:             uint64(size),
		Usage:            u,
		MappedAtCreation: visible,
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	return &buffer{dev: g.dev, buf: buf, size: size, visible: visible}, nil
}

// Limits implements driver.GPU.
func (g *gpuImpl) Limits() driver.Limits { return g.limits }
