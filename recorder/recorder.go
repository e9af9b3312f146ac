// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package recorder manages a bounded pool of reusable command
// buffers, the way the original engine's Renderer hands out a
// fixed-size ring of driver.CmdBuffer/WorkItem pairs over a
// channel (see engine.Renderer.init) instead of creating a new
// command buffer for every frame.
//
// Unlike the renderer's ring, which only ever needs NFrame
// buffers in flight, a sort invocation's caller decides how many
// independent sorts may overlap, so the pool here is sized by a
// configurable cap rather than a compile-time constant, and is
// backed by a dense bitm slab of reusable slots instead of an
// identity-keyed map: a map would let two live command objects
// collide on GC-driven pointer identity, and would not bound the
// slab to the cap the way a fixed-length slice does.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/gviegas/splatsort/driver"
	"github.com/gviegas/splatsort/internal/bitm"
)

// DefaultMaxInFlight is the in-flight command object cap used
// when a Recorder is not given an explicit one.
const DefaultMaxInFlight = 6

// Busy is returned by TryAcquire when every command object is
// already in flight. It wraps CommandObjectUnavailable, so
// errors.Is(Busy, CommandObjectUnavailable) is true.
var Busy = fmt.Errorf("%w: all command objects are busy", CommandObjectUnavailable)

// CommandObjectUnavailable is returned when a command object
// could not be created or is used after it has already been
// submitted.
var CommandObjectUnavailable = errors.New("recorder: command object unavailable")

// Recorder hands out a bounded number of reusable CommandObjects
// backed by driver.CmdBuffer instances.
type Recorder struct {
	dev driver.GPU
	log *slog.Logger
	sem *semaphore.Weighted
	max int64

	mu    sync.Mutex
	slots []*slot
	free  bitm.Bitm[uint64]
}

type slot struct {
	cmd   driver.CmdBuffer
	inUse bool
}

// New creates a Recorder that draws command buffers from gpu,
// allowing at most maxInFlight to be outstanding simultaneously.
// A maxInFlight <= 0 selects DefaultMaxInFlight. If log is nil, a
// disabled logger is used.
func New(gpu driver.GPU, maxInFlight int, log *slog.Logger) *Recorder {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	r := &Recorder{
		dev: gpu,
		log: log,
		sem: semaphore.NewWeighted(int64(maxInFlight)),
		max: int64(maxInFlight),
	}
	for r.free.Len() < maxInFlight {
		r.free.Grow(1)
	}
	r.slots = make([]*slot, maxInFlight)
	return r
}

// CommandObject is a single in-flight recording unit obtained
// from a Recorder.
type CommandObject struct {
	rec  *Recorder
	idx  int
	cmd  driver.CmdBuffer
	done bool
}

// Acquire blocks until a command object is available or ctx is
// done.
func (r *Recorder) Acquire(ctx context.Context) (*CommandObject, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	return r.take()
}

// TryAcquire returns a command object immediately, or Busy if
// every slot is already in flight.
func (r *Recorder) TryAcquire() (*CommandObject, error) {
	if !r.sem.TryAcquire(1) {
		return nil, Busy
	}
	return r.take()
}

func (r *Recorder) take() (*CommandObject, error) {
	r.mu.Lock()
	idx, ok := r.free.Search()
	if ok {
		r.free.Set(idx)
	}
	r.mu.Unlock()
	if !ok {
		r.sem.Release(1)
		return nil, CommandObjectUnavailable
	}

	r.mu.Lock()
	s := r.slots[idx]
	if s == nil {
		cmd, err := r.dev.NewCmdBuffer()
		if err != nil {
			r.mu.Unlock()
			r.freeSlot(idx)
			r.sem.Release(1)
			return nil, fmt.Errorf("recorder: %w: %v", CommandObjectUnavailable, err)
		}
		s = &slot{cmd: cmd}
		r.slots[idx] = s
	}
	s.inUse = true
	r.mu.Unlock()

	if err := s.cmd.Reset(); err != nil {
		r.freeSlot(idx)
		r.sem.Release(1)
		return nil, fmt.Errorf("recorder: %w: %v", CommandObjectUnavailable, err)
	}
	r.log.Debug("recorder: acquired", "slot", idx)
	return &CommandObject{rec: r, idx: idx, cmd: s.cmd}, nil
}

func (r *Recorder) freeSlot(idx int) {
	r.mu.Lock()
	r.free.Unset(idx)
	if s := r.slots[idx]; s != nil {
		s.inUse = false
	}
	r.mu.Unlock()
}

// Record exposes the underlying driver.CmdBuffer for the caller
// to begin recording compute work into.
func (c *CommandObject) Record() (driver.CmdBuffer, error) {
	if c.done {
		return nil, CommandObjectUnavailable
	}
	if err := c.cmd.Begin(); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	return c.cmd, nil
}

// Submit ends recording and commits the command buffer to the
// GPU, invoking done with the completion error once execution
// finishes. The command object's slot and semaphore permit stay
// held until execution completes, since the pool exists to bound
// how many command buffers the GPU may be executing at once, not
// merely how many are being recorded.
func (c *CommandObject) Submit(done func(error)) {
	if c.done {
		if done != nil {
			done(CommandObjectUnavailable)
		}
		return
	}
	c.done = true
	if err := c.cmd.End(); err != nil {
		c.rec.freeSlot(c.idx)
		c.rec.sem.Release(1)
		if done != nil {
			done(err)
		}
		return
	}
	ch := make(chan error, 1)
	c.rec.dev.Commit([]driver.CmdBuffer{c.cmd}, ch)
	go func() {
		err := <-ch
		c.rec.freeSlot(c.idx)
		c.rec.sem.Release(1)
		if done != nil {
			done(err)
		}
	}()
}

type discard struct{}

func (discard) Write(b []byte) (int, error) { return len(b), nil }
