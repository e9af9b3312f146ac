// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"encoding/binary"
	"math"

	"github.com/gviegas/splatsort/internal/vecmath"
)

// buildKeysCPU is the host-side equivalent of the KeyBuilder
// compute kernel: one key per splat, computed from the splat's
// position (the first 12 bytes of each stride-sized record) and
// the current camera frame.
//
// It is used directly by BackendCPU; the key_build kernel in
// wgslSource computes the same keys on the GPU.
func buildKeysCPU(splats []byte, stride, count int, camPos, camFwd [3]float32, byDistance bool) []SortRecord {
	out := make([]SortRecord, count)
	cp := vecmath.V3(camPos)
	cf := vecmath.V3(camFwd)
	for i := 0; i < count; i++ {
		off := i * stride
		pos := vecmath.V3{
			math.Float32frombits(binary.LittleEndian.Uint32(splats[off : off+4])),
			math.Float32frombits(binary.LittleEndian.Uint32(splats[off+4 : off+8])),
			math.Float32frombits(binary.LittleEndian.Uint32(splats[off+8 : off+12])),
		}
		var rel vecmath.V3
		rel.Sub(&pos, &cp)

		var depth float32
		if byDistance {
			depth = rel.Dot(&rel)
		} else {
			depth = rel.Dot(&cf)
		}
		out[i] = SortRecord{
			DepthBits:     depthKey(depth),
			OriginalIndex: uint32(i),
		}
	}
	return out
}
