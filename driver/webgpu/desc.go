// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gviegas/splatsort/driver"
)

// descHeap implements driver.DescHeap.
//
// A wgpu.BindGroup is immutable once created: there is no
// equivalent of updating a descriptor in place. SetBuffer is
// therefore implemented by recording the requested binding into
// a per-copy template and lazily rebuilding the bind group the
// next time it is consulted by descTable, rather than by
// mutating a live object.
type descHeap struct {
	gpu    *gpuImpl
	layout *wgpu.BindGroupLayout
	descs  []driver.Descriptor
	copies []heapCopy
}

type heapCopy struct {
	entries []wgpu.BindGroupEntry
	group   *wgpu.BindGroup
	dirty   bool
}

// New implements driver.DescHeap.
func (h *descHeap) New(n int) error {
	if n == len(h.copies) {
		return nil
	}
	h.release()
	if n == 0 {
		h.copies = nil
		return nil
	}
	nEntries := 0
	for _, d := range h.descs {
		c := d.Len
		if c == 0 {
			c = 1
		}
		nEntries += c
	}
	h.copies = make([]heapCopy, n)
	for i := range h.copies {
		h.copies[i] = heapCopy{
			entries: make([]wgpu.BindGroupEntry, nEntries),
			dirty:   true,
		}
	}
	return nil
}

// SetBuffer implements driver.DescHeap.
func (h *descHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	c := &h.copies[cpy]
	base := 0
	for i := 0; i < nr; i++ {
		l := h.descs[i].Len
		if l == 0 {
			l = 1
		}
		base += l
	}
	for i, b := range buf {
		impl, ok := b.(*buffer)
		if !ok {
			continue
		}
		c.entries[base+start+i] = wgpu.BindGroupEntry{
			Binding: uint32(base + start + i),
			Buffer:  impl.buf,
			Offset:  uint64(off[i]),
			Size:    uint64(size[i]),
		}
	}
	c.dirty = true
}

// Count implements driver.DescHeap.
func (h *descHeap) Count() int { return len(h.copies) }

// Destroy implements driver.Destroyer.
func (h *descHeap) Destroy() { h.release() }

func (h *descHeap) release() {
	for i := range h.copies {
		if h.copies[i].group != nil {
			h.copies[i].group.Release()
		}
	}
	h.copies = nil
	if h.layout != nil {
		h.layout.Release()
		h.layout = nil
	}
}

// bindGroup rebuilds the copy's bind group if its entries have
// changed since the last call.
func (h *descHeap) bindGroup(cpy int) (*wgpu.BindGroup, error) {
	c := &h.copies[cpy]
	if !c.dirty && c.group != nil {
		return c.group, nil
	}
	if c.group != nil {
		c.group.Release()
	}
	g, err := h.gpu.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "splatsort.bindgroup",
		Layout:  h.layout,
		Entries: c.entries,
	})
	if err != nil {
		return nil, fatalErr(err)
	}
	c.group = g
	c.dirty = false
	return g, nil
}

// descTable implements driver.DescTable.
type descTable struct {
	gpu   *gpuImpl
	heaps []*descHeap
}

// Destroy implements driver.Destroyer.
func (t *descTable) Destroy() {}

// bindGroups resolves the bind group for each heap, starting at
// heapCopy[i] for heap i.
func (t *descTable) bindGroups(heapCopy []int) ([]*wgpu.BindGroup, error) {
	if len(heapCopy) != len(t.heaps) {
		return nil, fmt.Errorf("webgpu: %w: heapCopy length mismatch", driver.ErrFatal)
	}
	groups := make([]*wgpu.BindGroup, len(t.heaps))
	for i, h := range t.heaps {
		g, err := h.bindGroup(heapCopy[i])
		if err != nil {
			return nil, err
		}
		groups[i] = g
	}
	return groups, nil
}
