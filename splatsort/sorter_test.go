// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gviegas/splatsort"
)

// memBuffer is a minimal host-visible driver.Buffer backed by a
// plain Go slice, enough to exercise BackendCPU without any
// driver at all.
type memBuffer struct{ data []byte }

func newMemBuffer(n int64) *memBuffer { return &memBuffer{data: make([]byte, n)} }
func (b *memBuffer) Visible() bool    { return true }
func (b *memBuffer) Bytes() []byte    { return b.data }
func (b *memBuffer) Cap() int64       { return int64(len(b.data)) }
func (b *memBuffer) Destroy()         {}

const stride = 12 // position only, x/y/z float32

func splatBuffer(positions [][3]float32) *memBuffer {
	buf := newMemBuffer(int64(len(positions)) * stride)
	for i, p := range positions {
		off := i * stride
		binary.LittleEndian.PutUint32(buf.data[off:off+4], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf.data[off+4:off+8], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf.data[off+8:off+12], math.Float32bits(p[2]))
	}
	return buf
}

func readIndices(buf *memBuffer, count int) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf.data[i*4 : i*4+4])
	}
	return out
}

func newCPUSorter(t *testing.T) *splatsort.Sorter {
	t.Helper()
	s, err := splatsort.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func sortIndices(t *testing.T, positions [][3]float32, camPos, camFwd [3]float32, byDistance bool) []uint32 {
	t.Helper()
	s := newCPUSorter(t)
	splats := splatBuffer(positions)
	out := newMemBuffer(int64(len(positions)) * 4)
	if err := s.Sort(splats, out, stride, len(positions), camPos, camFwd, byDistance, nil); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	return readIndices(out, len(positions))
}

func assertEqual(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got, want)
		}
	}
}

func TestSortEmptyIsNoOp(t *testing.T) {
	s := newCPUSorter(t)
	splats := newMemBuffer(0)
	out := newMemBuffer(0)
	if err := s.Sort(splats, out, stride, 0, [3]float32{}, [3]float32{}, true, nil); err != nil {
		t.Fatalf("Sort: %v", err)
	}
}

func TestSortSingleSplat(t *testing.T) {
	got := sortIndices(t, [][3]float32{{1, 2, 3}}, [3]float32{}, [3]float32{0, 0, 1}, true)
	assertEqual(t, got, []uint32{0})
}

// Scenario 1: three splats, by-distance from origin.
func TestByDistanceThreeSplats(t *testing.T) {
	positions := [][3]float32{{0, 0, 1}, {0, 0, 3}, {0, 0, 2}}
	got := sortIndices(t, positions, [3]float32{}, [3]float32{0, 0, 1}, true)
	assertEqual(t, got, []uint32{1, 2, 0})
}

// Scenario 2: stability across duplicates.
func TestStabilityAcrossDuplicates(t *testing.T) {
	positions := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 2}}
	got := sortIndices(t, positions, [3]float32{}, [3]float32{0, 0, 1}, true)
	assertEqual(t, got, []uint32{3, 0, 1, 2})
}

// Scenario 3: negative forward projection.
func TestNegativeForwardProjection(t *testing.T) {
	positions := [][3]float32{{0, 0, -1}, {0, 0, 1}}
	got := sortIndices(t, positions, [3]float32{}, [3]float32{0, 0, 1}, false)
	assertEqual(t, got, []uint32{1, 0})
}

// Scenario 4: exactly 256 splats, descending-by-x positions.
func TestExactly256Splats(t *testing.T) {
	positions := make([][3]float32, 256)
	for i := range positions {
		positions[i] = [3]float32{float32(255 - i), 0, 0}
	}
	got := sortIndices(t, positions, [3]float32{-1000, 0, 0}, [3]float32{1, 0, 0}, true)
	want := make([]uint32, 256)
	for i := range want {
		want[i] = uint32(i)
	}
	assertEqual(t, got, want)
}

// Scenario 5: 257 splats, exercising Phase 2 across two
// threadgroups (in the GPU path; BackendCPU has no threadgroup
// structure and runs the same input through its counting sort).
func Test257Splats(t *testing.T) {
	positions := make([][3]float32, 257)
	for i := 0; i < 256; i++ {
		positions[i] = [3]float32{float32(255 - i), 0, 0}
	}
	positions[256] = [3]float32{-1, 0, 0}
	got := sortIndices(t, positions, [3]float32{-1000, 0, 0}, [3]float32{1, 0, 0}, true)
	if got[len(got)-1] != 256 {
		t.Fatalf("Test257Splats: want index 256 last (smallest distance), got %v", got)
	}
	seen := make(map[uint32]bool, len(got))
	for _, idx := range got {
		seen[idx] = true
	}
	if len(seen) != len(positions) {
		t.Fatalf("Test257Splats: output is not a permutation: %v", got)
	}
}

func TestInvalidArgumentRejectsUndersizedOutput(t *testing.T) {
	s := newCPUSorter(t)
	splats := splatBuffer([][3]float32{{0, 0, 1}, {0, 0, 2}})
	out := newMemBuffer(4) // too small for 2 indices
	err := s.Sort(splats, out, stride, 2, [3]float32{}, [3]float32{0, 0, 1}, true, nil)
	var ia *splatsort.InvalidArgument
	if err == nil {
		t.Fatal("Sort: want InvalidArgument, got nil")
	}
	if !errors.As(err, &ia) {
		t.Fatalf("Sort: want *splatsort.InvalidArgument, got %v", err)
	}
}
