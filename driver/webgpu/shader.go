// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// shaderCode implements driver.ShaderCode.
// Unlike the SPIR-V/DXIL binaries the original engine dealt with,
// a wgpu shader module is compiled from WGSL source text, but it
// plays the exact same role: an opaque, destroyable handle that
// ShaderFunc refers to by entry point name.
type shaderCode struct {
	mod *wgpu.ShaderModule
}

// Destroy implements driver.Destroyer.
func (s *shaderCode) Destroy() {
	if s.mod != nil {
		s.mod.Release()
		s.mod = nil
	}
}
