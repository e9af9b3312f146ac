// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package vecmath implements the small amount of 3D vector math
// the sort core needs to turn a splat position and a camera
// frame into a depth key. It is a trimmed copy of the original
// engine's linear package: V3 only, no matrices or quaternions,
// since nothing here rotates or projects anything.
package vecmath

import "math"

// V3 is a 3-component vector of float32.
type V3 [3]float32

// Add sets v to contain l + r.
func (v *V3) Add(l, r *V3) {
	for i := range v {
		v[i] = l[i] + r[i]
	}
}

// Sub sets v to contain l - r.
func (v *V3) Sub(l, r *V3) {
	for i := range v {
		v[i] = l[i] - r[i]
	}
}

// Scale sets v to contain s ⋅ w.
func (v *V3) Scale(s float32, w *V3) {
	for i := range v {
		v[i] = s * w[i]
	}
}

// Dot returns v ⋅ w.
func (v *V3) Dot(w *V3) (d float32) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V3) Len() float32 { return float32(math.Sqrt(float64(v.Dot(v)))) }

// Norm sets v to contain w normalized.
// If w is the zero vector, v is set to the zero vector too
// rather than producing NaNs, since a degenerate view direction
// must not poison every key derived from it.
func (v *V3) Norm(w *V3) {
	l := w.Len()
	if l == 0 {
		*v = V3{}
		return
	}
	v.Scale(1/l, w)
}
