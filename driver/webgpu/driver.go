// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package webgpu implements the driver package's interfaces
// on top of github.com/cogentcore/webgpu, the way the
// original engine's driver/vk package implements them on
// top of raw Vulkan.
//
// Only the compute-relevant subset of WebGPU is exercised:
// buffers, shader modules, bind groups, compute pipelines
// and command encoders. There is no swapchain/surface code
// here because the sort core never presents anything.
package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gviegas/splatsort/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Driver using wgpu-native.
type Driver struct {
	inst *wgpu.Instance
	gpu  *gpuImpl
}

// Name implements driver.Driver.
func (d *Driver) Name() string { return "webgpu" }

// Open implements driver.Driver.
func (d *Driver) Open() (driver.GPU, error) {
	if d.gpu != nil {
		return d.gpu, nil
	}
	inst := wgpu.CreateInstance(nil)
	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w: %v", driver.ErrNoDevice, err)
	}
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "splatsort",
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w: %v", driver.ErrNoDevice, err)
	}
	lim := adapter.GetLimits()
	d.inst = inst
	d.gpu = &gpuImpl{
		drv:   d,
		dev:   dev,
		queue: dev.GetQueue(),
		limits: driver.Limits{
			MaxBufferLength:    int64(lim.Limits.MaxBufferSize),
			MaxDescHeaps:       int(lim.Limits.MaxBindGroups),
			MaxDBuffer:         int(lim.Limits.MaxStorageBuffersPerShaderStage),
			MaxDConstant:       int(lim.Limits.MaxUniformBuffersPerShaderStage),
			MaxDBufferRange:    int64(lim.Limits.MaxStorageBufferBindingSize),
			MaxDConstantRange:  int64(lim.Limits.MaxUniformBufferBindingSize),
			MaxThreadsPerGroup: int(lim.Limits.MaxComputeInvocationsPerWorkgroup),
			MaxDispatch: [3]int{
				int(lim.Limits.MaxComputeWorkgroupsPerDimension),
				int(lim.Limits.MaxComputeWorkgroupsPerDimension),
				int(lim.Limits.MaxComputeWorkgroupsPerDimension),
			},
		},
	}
	return d.gpu, nil
}

// Close implements driver.Driver.
func (d *Driver) Close() {
	if d.gpu == nil {
		return
	}
	d.gpu.dev.Release()
	d.inst.Release()
	d.gpu = nil
	d.inst = nil
}

// fatalErr wraps a wgpu-native error under driver.ErrFatal, the
// policy any CmdBuffer recording failure must follow once a
// device is lost.
func fatalErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("webgpu: %w: %v", driver.ErrFatal, err)
}
