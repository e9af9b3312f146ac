// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import "math"

func float32bits(f float32) uint32 { return math.Float32bits(f) }
