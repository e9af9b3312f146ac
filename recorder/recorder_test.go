// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package recorder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gviegas/splatsort/driver"
	"github.com/gviegas/splatsort/recorder"
)

type fakeCmdBuffer struct {
	mu      sync.Mutex
	begun   bool
	ended   bool
}

func (c *fakeCmdBuffer) Begin() error { c.mu.Lock(); defer c.mu.Unlock(); c.begun = true; c.ended = false; return nil }
func (c *fakeCmdBuffer) BeginWork(wait bool)                                        {}
func (c *fakeCmdBuffer) EndWork()                                                   {}
func (c *fakeCmdBuffer) BeginBlit(wait bool)                                        {}
func (c *fakeCmdBuffer) EndBlit()                                                   {}
func (c *fakeCmdBuffer) SetPipeline(pl driver.Pipeline)                             {}
func (c *fakeCmdBuffer) SetDescTableComp(t driver.DescTable, start int, hc []int)   {}
func (c *fakeCmdBuffer) Dispatch(x, y, z int)                                       {}
func (c *fakeCmdBuffer) CopyBuffer(p *driver.BufferCopy)                            {}
func (c *fakeCmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64)  {}
func (c *fakeCmdBuffer) Barrier(b []driver.Barrier)                                 {}
func (c *fakeCmdBuffer) End() error                                                 { c.mu.Lock(); defer c.mu.Unlock(); c.ended = true; return nil }
func (c *fakeCmdBuffer) Reset() error                                               { c.mu.Lock(); defer c.mu.Unlock(); c.begun, c.ended = false, false; return nil }
func (c *fakeCmdBuffer) Destroy()                                                   {}

type fakeGPU struct {
	mu       sync.Mutex
	commits  int
	commitCh chan error // if set, Commit sends from this channel instead of nil
}

func (g *fakeGPU) Driver() driver.Driver { return nil }

func (g *fakeGPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	g.mu.Lock()
	g.commits++
	g.mu.Unlock()
	go func() {
		var err error
		if g.commitCh != nil {
			err = <-g.commitCh
		}
		if ch != nil {
			ch <- err
		}
	}()
}

func (g *fakeGPU) NewCmdBuffer() (driver.CmdBuffer, error) { return &fakeCmdBuffer{}, nil }
func (g *fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error)        { return nil, nil }
func (g *fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) { return nil, nil }
func (g *fakeGPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) { return nil, nil }
func (g *fakeGPU) NewPipeline(state any) (driver.Pipeline, error)              { return nil, nil }
func (g *fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return nil, nil
}
func (g *fakeGPU) Limits() driver.Limits { return driver.Limits{} }

func TestAcquireSubmitRoundTrip(t *testing.T) {
	gpu := &fakeGPU{}
	r := recorder.New(gpu, 2, nil)

	co, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	cmd, err := co.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if cmd == nil {
		t.Fatal("Record: nil command buffer")
	}

	done := make(chan error, 1)
	co.Submit(func(err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit: callback never invoked")
	}
}

func TestTryAcquireBusyAtCap(t *testing.T) {
	gpu := &fakeGPU{commitCh: make(chan error)}
	r := recorder.New(gpu, 1, nil)

	co, err := r.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	if _, err := co.Record(); err != nil {
		t.Fatalf("Record: %v", err)
	}

	done := make(chan error, 1)
	co.Submit(func(err error) { done <- err })

	if _, err := r.TryAcquire(); !errors.Is(err, recorder.Busy) {
		t.Fatalf("TryAcquire: want Busy while the only slot is in flight, got %v", err)
	}

	gpu.commitCh <- nil
	<-done

	if _, err := r.TryAcquire(); err != nil {
		t.Fatalf("TryAcquire after completion: %v", err)
	}
}

func TestSubmitTwiceIsUnavailable(t *testing.T) {
	gpu := &fakeGPU{}
	r := recorder.New(gpu, 1, nil)

	co, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := co.Record(); err != nil {
		t.Fatalf("Record: %v", err)
	}
	done := make(chan error, 1)
	co.Submit(func(err error) { done <- err })
	<-done

	done2 := make(chan error, 1)
	co.Submit(func(err error) { done2 <- err })
	if err := <-done2; !errors.Is(err, recorder.CommandObjectUnavailable) {
		t.Fatalf("second Submit: want CommandObjectUnavailable, got %v", err)
	}
}
