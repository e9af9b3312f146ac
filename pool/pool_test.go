// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package pool_test

import (
	"errors"
	"testing"

	"github.com/gviegas/splatsort/driver"
	"github.com/gviegas/splatsort/pool"
)

type fakeBuffer struct {
	data []byte
}

func (b *fakeBuffer) Visible() bool  { return true }
func (b *fakeBuffer) Bytes() []byte  { return b.data }
func (b *fakeBuffer) Cap() int64     { return int64(len(b.data)) }
func (b *fakeBuffer) Destroy()       {}

type fakeGPU struct {
	maxLen  int64
	created []int64
}

func (g *fakeGPU) Driver() driver.Driver                       { return nil }
func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {}
func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error)      { return nil, nil }
func (g *fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) { return nil, nil }
func (g *fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) { return nil, nil }
func (g *fakeGPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) { return nil, nil }
func (g *fakeGPU) NewPipeline(state any) (driver.Pipeline, error)              { return nil, nil }

func (g *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size > g.maxLen {
		return nil, errors.New("fakeGPU: too large")
	}
	g.created = append(g.created, size)
	return &fakeBuffer{data: make([]byte, size)}, nil
}

func (g *fakeGPU) Limits() driver.Limits {
	return driver.Limits{MaxBufferLength: g.maxLen}
}

func TestAcquireGrowsByDoubling(t *testing.T) {
	gpu := &fakeGPU{maxLen: 1 << 20}
	p := pool.New(gpu, nil)

	buf, err := p.Acquire("keys", 4, 100, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if buf.Cap() < 400 {
		t.Fatalf("Acquire: capacity %d too small for 100 elements", buf.Cap())
	}
	first := buf.Cap()

	// A request within the existing capacity must not reallocate.
	buf2, err := p.Acquire("keys", 4, 50, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if buf2.Cap() != first {
		t.Fatalf("Acquire: unexpected reallocation for smaller request")
	}
	if len(gpu.created) != 1 {
		t.Fatalf("Acquire: want 1 allocation, got %d", len(gpu.created))
	}

	// A request beyond capacity must grow, and must never shrink.
	buf3, err := p.Acquire("keys", 4, 1000, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if buf3.Cap() <= first {
		t.Fatalf("Acquire: capacity did not grow: %d -> %d", first, buf3.Cap())
	}
	if len(gpu.created) != 2 {
		t.Fatalf("Acquire: want 2 allocations after growth, got %d", len(gpu.created))
	}
}

func TestAcquireCapacityExceeded(t *testing.T) {
	gpu := &fakeGPU{maxLen: 100}
	p := pool.New(gpu, nil)

	_, err := p.Acquire("keys", 4, 1000, driver.UShaderRead)
	var ce *pool.CapacityExceeded
	if !errors.As(err, &ce) {
		t.Fatalf("Acquire: want *pool.CapacityExceeded, got %v", err)
	}
	if ce.Max != 100 {
		t.Fatalf("CapacityExceeded.Max: want 100, got %d", ce.Max)
	}
}

func TestReset(t *testing.T) {
	gpu := &fakeGPU{maxLen: 1 << 20}
	p := pool.New(gpu, nil)

	if _, err := p.Acquire("keys", 4, 100, driver.UShaderRead); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	live, peak := p.Stats()
	if live == 0 || peak == 0 {
		t.Fatalf("Stats: want nonzero live/peak after Acquire, got %d/%d", live, peak)
	}

	p.Reset()
	live, _ = p.Stats()
	if live != 0 {
		t.Fatalf("Stats: want live == 0 after Reset, got %d", live)
	}

	// Growth restarts from scratch after Reset.
	gpu.created = nil
	if _, err := p.Acquire("keys", 4, 10, driver.UShaderRead); err != nil {
		t.Fatalf("Acquire after Reset: %v", err)
	}
	if len(gpu.created) != 1 {
		t.Fatalf("Acquire after Reset: want fresh allocation, got %d calls", len(gpu.created))
	}
}
