// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"math"
	"math/rand"
	"testing"
)

func TestSortableUintRoundTrip(t *testing.T) {
	values := []float32{0, -0, 1, -1, 0.5, -0.5, 3.14159, -3.14159,
		math.MaxFloat32, -math.MaxFloat32, math.SmallestNonzeroFloat32, -math.SmallestNonzeroFloat32}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		values = append(values, math.Float32frombits(r.Uint32()&0x7FFF_FFFF)) // non-negative bit patterns: finite, +Inf or NaN; NaN is filtered below
	}

	for _, d := range values {
		if math.IsNaN(float64(d)) {
			continue
		}
		u := toSortableUint(d)
		got := fromSortableUint(u)
		if got != d && !(d == 0 && got == 0) { // +0/-0 compare equal in Go already
			t.Fatalf("round trip failed: d=%v u=%x got=%v", d, u, got)
		}
	}
}

func TestSortableUintOrderPreserving(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		var d1, d2 float32
		for {
			d1 = math.Float32frombits(r.Uint32())
			d2 = math.Float32frombits(r.Uint32())
			if !math.IsNaN(float64(d1)) && !math.IsNaN(float64(d2)) && d1 != d2 {
				break
			}
		}
		if d1 > d2 {
			d1, d2 = d2, d1
		}
		u1, u2 := toSortableUint(d1), toSortableUint(d2)
		if u1 >= u2 {
			t.Fatalf("ascending order violated: d1=%v d2=%v u1=%x u2=%x", d1, d2, u1, u2)
		}
		// depthKey applies a final one's-complement flip for
		// descending output, so ascending d implies descending
		// depthKey.
		k1, k2 := depthKey(d1), depthKey(d2)
		if k1 <= k2 {
			t.Fatalf("descending depthKey order violated: d1=%v d2=%v k1=%x k2=%x", d1, d2, k1, k2)
		}
	}
}

func TestNaNSortsFirst(t *testing.T) {
	nan := float32(math.NaN())
	k := depthKey(nan)
	if k != 0 {
		t.Fatalf("depthKey(NaN): want 0 (sorts first under ascending DepthBits order), got %x", k)
	}
}
