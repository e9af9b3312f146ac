// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"math/rand"
	"testing"
)

func randomRecords(r *rand.Rand, n int) []SortRecord {
	recs := make([]SortRecord, n)
	for i := range recs {
		recs[i] = SortRecord{
			DepthBits:     r.Uint32(),
			OriginalIndex: uint32(i),
		}
	}
	return recs
}

func isPermutation(t *testing.T, sorted []SortRecord, n int) {
	t.Helper()
	seen := make([]bool, n)
	for _, r := range sorted {
		if r.OriginalIndex >= uint32(n) || seen[r.OriginalIndex] {
			t.Fatalf("not a permutation: repeated or out-of-range index %d", r.OriginalIndex)
		}
		seen[r.OriginalIndex] = true
	}
}

func isAscendingByDepth(t *testing.T, sorted []SortRecord) {
	t.Helper()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].DepthBits > sorted[i].DepthBits {
			t.Fatalf("not ascending at %d: %x > %x", i, sorted[i-1].DepthBits, sorted[i].DepthBits)
		}
	}
}

func TestRadixSortCPUPermutationAndOrder(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 255, 256, 257, 1000, 4096} {
		recs := randomRecords(r, n)
		sorted := radixSortCPU(recs)
		if len(sorted) != n {
			t.Fatalf("n=%d: want %d records, got %d", n, n, len(sorted))
		}
		isPermutation(t, sorted, n)
		isAscendingByDepth(t, sorted)
	}
}

func TestRadixSortCPUStability(t *testing.T) {
	recs := []SortRecord{
		{DepthBits: 5, OriginalIndex: 0},
		{DepthBits: 5, OriginalIndex: 1},
		{DepthBits: 3, OriginalIndex: 2},
		{DepthBits: 5, OriginalIndex: 3},
	}
	sorted := radixSortCPU(recs)
	want := []uint32{2, 0, 1, 3}
	for i, r := range sorted {
		if r.OriginalIndex != want[i] {
			t.Fatalf("stability violated: got %v, want %v", extractIndices(sorted), want)
		}
	}
}

func TestRadixSortCPUIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	recs := randomRecords(r, 500)
	once := radixSortCPU(recs)
	twice := radixSortCPU(once)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("sorting an already-sorted input changed order at %d", i)
		}
	}
}
