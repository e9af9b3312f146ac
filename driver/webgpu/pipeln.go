// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package webgpu

import "github.com/cogentcore/webgpu/wgpu"

// pipeline implements driver.Pipeline.
type pipeline struct {
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.PipelineLayout
	table    *descTable
}

// Destroy implements driver.Destroyer.
func (p *pipeline) Destroy() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}
