// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// buffer implements driver.Buffer.
type buffer struct {
	dev     *wgpu.Device
	buf     *wgpu.Buffer
	size    int64
	visible bool
	mapped  []byte
}

// Visible implements driver.Buffer.
func (b *buffer) Visible() bool { return b.visible }

// Bytes implements driver.Buffer.
// wgpu only exposes a mapped range while the buffer is actually
// mapped; splat sort buffers that need host access are created
// MappedAtCreation and kept mapped for their lifetime, so the
// range is cached on first use.
func (b *buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	if b.mapped == nil {
		b.mapped = b.buf.GetMappedRange(0, uint(b.size))
	}
	return b.mapped
}

// Cap implements driver.Buffer.
func (b *buffer) Cap() int64 { return b.size }

// Destroy implements driver.Destroyer.
func (b *buffer) Destroy() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}
