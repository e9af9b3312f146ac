// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gviegas/splatsort/driver"
)

// cmdBuffer implements driver.CmdBuffer.
//
// wgpu records all commands through a single CommandEncoder and
// only produces an immutable CommandBuffer on Finish, so Begin
// creates the encoder and End calls Finish; there is no
// persistent native command buffer to reuse across recordings,
// which is why Reset simply discards the encoder and starts a
// new one.
type cmdBuffer struct {
	gpu *gpuImpl
	enc *wgpu.CommandEncoder
	cmd *wgpu.CommandBuffer

	pass    *wgpu.ComputePassEncoder
	pl      *pipeline
	pending []driver.Barrier
}

// Begin implements driver.CmdBuffer.
func (c *cmdBuffer) Begin() error {
	enc, err := c.gpu.dev.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{
		Label: "splatsort.cmd",
	})
	if err != nil {
		return fatalErr(err)
	}
	c.enc = enc
	c.cmd = nil
	c.pl = nil
	return nil
}

// BeginWork implements driver.CmdBuffer.
// The wait parameter has no wgpu equivalent: ordering within a
// single encoder is already total, so any previously recorded
// work in the same command buffer is always visible to the
// compute pass that follows.
func (c *cmdBuffer) BeginWork(wait bool) {
	c.pass = c.enc.BeginComputePass(&wgpu.ComputePassDescriptor{Label: "splatsort.pass"})
}

// EndWork implements driver.CmdBuffer.
func (c *cmdBuffer) EndWork() {
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
	}
}

// BeginBlit implements driver.CmdBuffer.
func (c *cmdBuffer) BeginBlit(wait bool) {}

// EndBlit implements driver.CmdBuffer.
func (c *cmdBuffer) EndBlit() {}

// SetPipeline implements driver.CmdBuffer.
func (c *cmdBuffer) SetPipeline(pl driver.Pipeline) {
	impl, ok := pl.(*pipeline)
	if !ok || c.pass == nil {
		return
	}
	c.pl = impl
	c.pass.SetPipeline(impl.pipeline)
}

// SetDescTableComp implements driver.CmdBuffer.
func (c *cmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	if c.pass == nil {
		return
	}
	dt, ok := table.(*descTable)
	if !ok {
		return
	}
	groups, err := dt.bindGroups(heapCopy)
	if err != nil {
		return
	}
	for i, g := range groups {
		c.pass.SetBindGroup(uint32(start+i), g, nil)
	}
}

// Dispatch implements driver.CmdBuffer.
func (c *cmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	if c.pass == nil {
		return
	}
	c.pass.DispatchWorkgroups(uint32(grpCountX), uint32(grpCountY), uint32(grpCountZ))
}

// CopyBuffer implements driver.CmdBuffer.
func (c *cmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	from, ok1 := param.From.(*buffer)
	to, ok2 := param.To.(*buffer)
	if !ok1 || !ok2 {
		return
	}
	c.enc.CopyBufferToBuffer(from.buf, uint64(param.FromOff), to.buf, uint64(param.ToOff), uint64(param.Size))
}

// Fill implements driver.CmdBuffer.
// wgpu only exposes zero-fill via ClearBuffer, which is recorded
// into the encoder. Non-zero values are written immediately
// through the queue with WriteBuffer, so they are not ordered
// with the recorded commands: the write lands ahead of any
// command buffer submitted after this call.
func (c *cmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	impl, ok := buf.(*buffer)
	if !ok {
		return
	}
	if value == 0 {
		c.enc.ClearBuffer(impl.buf, uint64(off), uint64(size))
		return
	}
	pattern := make([]byte, size)
	for i := range pattern {
		pattern[i] = value
	}
	c.gpu.queue.WriteBuffer(impl.buf, uint64(off), pattern)
}

// Barrier implements driver.CmdBuffer.
// wgpu serializes all passes within an encoder and performs
// resource synchronization automatically, so explicit barriers
// are recorded for bookkeeping only and never reach the native
// API.
func (c *cmdBuffer) Barrier(b []driver.Barrier) {
	c.pending = append(c.pending, b...)
}

// End implements driver.CmdBuffer.
func (c *cmdBuffer) End() error {
	if c.enc == nil {
		return fmt.Errorf("webgpu: %w: End called without Begin", driver.ErrFatal)
	}
	cmd, err := c.enc.Finish(&wgpu.CommandBufferDescriptor{Label: "splatsort.cmd"})
	if err != nil {
		return fatalErr(err)
	}
	c.cmd = cmd
	c.enc = nil
	return nil
}

// Reset implements driver.CmdBuffer.
func (c *cmdBuffer) Reset() error {
	if c.cmd != nil {
		c.cmd.Release()
		c.cmd = nil
	}
	c.pending = c.pending[:0]
	return c.Begin()
}

// Destroy implements driver.Destroyer.
func (c *cmdBuffer) Destroy() {
	if c.pass != nil {
		c.pass.End()
		c.pass = nil
	}
	if c.cmd != nil {
		c.cmd.Release()
		c.cmd = nil
	}
	if c.enc != nil {
		c.enc.Release()
		c.enc = nil
	}
}
