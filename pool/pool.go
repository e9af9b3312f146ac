// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package pool implements a growable cache of GPU buffers shared
// across sort invocations, the way the original engine's
// meshBuffer grows its backing driver.Buffer on demand instead of
// allocating a new one for every mesh (see engine.meshBuffer.store
// for the model this generalizes).
//
// A sort pass needs several distinct scratch buffers — keys,
// indices, per-threadgroup histograms, prefix sums — each with
// its own element size and its own usage pattern across calls.
// Pool keeps one growable slab per named kind so that repeated
// invocations at a similar splat count reuse the same
// allocation instead of round-tripping through the driver.
package pool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gviegas/splatsort/driver"
)

// CapacityExceeded is returned when a requested buffer would
// exceed the device's maximum buffer length.
type CapacityExceeded struct {
	Kind      string
	Requested int64
	Max       int64
}

func (e *CapacityExceeded) Error() string {
	return fmt.Sprintf("pool: %s: requested %d bytes exceeds device maximum %d", e.Kind, e.Requested, e.Max)
}

// slab is a single growable buffer for one resource kind.
type slab struct {
	buf      driver.Buffer
	elemSize int64
	count    int64 // element capacity currently backing buf
}

func (s *slab) bytes() int64 {
	if s.buf == nil {
		return 0
	}
	return s.buf.Cap()
}

// Pool caches growable scratch buffers by kind. It never shrinks
// a slab on its own: capacity only grows, by doubling, until an
// explicit Reset. The zero value is not usable; construct with
// New.
type Pool struct {
	gpu  driver.GPU
	log  *slog.Logger
	mu   sync.Mutex
	slab map[string]*slab

	liveBytes int64
	peakBytes int64
}

// New creates a Pool that allocates its buffers from gpu.
// If log is nil, a disabled logger is used.
func New(gpu driver.GPU, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	return &Pool{gpu: gpu, log: log, slab: make(map[string]*slab)}
}

// Acquire returns a buffer for the given kind with capacity for
// at least minCount elements of elemSize bytes each, growing or
// creating the backing slab as needed. The returned buffer may
// be larger than requested and may contain stale data from a
// previous use; callers must not assume it is zeroed.
func (p *Pool) Acquire(kind string, elemSize int64, minCount int64, usg driver.Usage) (driver.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.slab[kind]
	if !ok {
		s = &slab{elemSize: elemSize}
		p.slab[kind] = s
	}
	if s.count >= minCount && s.buf != nil {
		return s.buf, nil
	}

	newCount := s.count
	if newCount == 0 {
		newCount = minCount
	}
	for newCount < minCount {
		newCount *= 2
	}
	size := newCount * elemSize
	max := p.gpu.Limits().MaxBufferLength
	if size > max {
		return nil, &CapacityExceeded{Kind: kind, Requested: size, Max: max}
	}

	buf, err := p.gpu.NewBuffer(size, true, usg)
	if err != nil {
		return nil, fmt.Errorf("pool: acquire %s: %w", kind, err)
	}
	if s.buf != nil {
		p.liveBytes -= s.bytes()
		s.buf.Destroy()
	}
	s.buf = buf
	s.count = newCount
	p.liveBytes += s.bytes()
	if p.liveBytes > p.peakBytes {
		p.peakBytes = p.liveBytes
	}
	p.log.Debug("pool: grew slab", "kind", kind, "count", newCount, "bytes", size)
	return buf, nil
}

// Reset releases every slab back to the driver. A subsequent
// Acquire for any kind starts growth from scratch.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for kind, s := range p.slab {
		if s.buf != nil {
			s.buf.Destroy()
		}
		delete(p.slab, kind)
	}
	p.liveBytes = 0
	p.log.Debug("pool: reset")
}

// Stats reports the pool's current and historical-maximum byte
// footprint across all kinds.
func (p *Pool) Stats() (liveBytes, peakBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveBytes, p.peakBytes
}

type discard struct{}

func (discard) Write(b []byte) (int, error) { return len(b), nil }
