// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"math/rand"
	"sort"
	"testing"
)

// depths returns the sorted DepthBits multiset, since a bitonic
// network gives no ordering guarantee among equal keys.
func depths(recs []SortRecord) []uint32 {
	out := make([]uint32, len(recs))
	for i, r := range recs {
		out[i] = r.DepthBits
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Scenario 6: bitonic fallback vs radix agreement.
func TestBitonicAgreesWithRadix(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for _, n := range []int{0, 1, 2, 3, 17, 256, 257, 1000, 65536} {
		recs := randomRecords(r, n)
		bit := bitonicSortCPU(recs)
		rad := radixSortCPU(recs)

		if len(bit) != n {
			t.Fatalf("n=%d: bitonic result length %d", n, len(bit))
		}
		isPermutation(t, bit, n)
		isAscendingByDepth(t, bit)

		bd, rd := depths(bit), depths(rad)
		if len(bd) != len(rd) {
			t.Fatalf("n=%d: depth multiset length mismatch", n)
		}
		for i := range bd {
			if bd[i] != rd[i] {
				t.Fatalf("n=%d: depth multiset mismatch at %d: bitonic=%x radix=%x", n, i, bd[i], rd[i])
			}
		}
	}
}

func TestBitonicSortCPUPadding(t *testing.T) {
	recs := []SortRecord{
		{DepthBits: 10, OriginalIndex: 0},
		{DepthBits: 2, OriginalIndex: 1},
		{DepthBits: 7, OriginalIndex: 2},
	}
	sorted := bitonicSortCPU(recs)
	if len(sorted) != 3 {
		t.Fatalf("padding leaked into result: got %d records, want 3", len(sorted))
	}
	isAscendingByDepth(t, sorted)
}
