// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"encoding/binary"
	"errors"

	"github.com/gviegas/splatsort/driver"
	"github.com/gviegas/splatsort/pool"
)

const tgSize = 256

// recordRadix records the full RadixSortDriver orchestration
// sequence into cmd: key build, four LSD passes each running
// histogram/prefix-sum/scatter, then index extraction. It only
// records; the caller submits the command object.
func (s *Sorter) recordRadix(cmd driver.CmdBuffer, splats, outIndices driver.Buffer, stride, count int, camPos, camFwd [3]float32, byDistance bool) error {
	numTG := (count + tgSize - 1) / tgSize

	keysA, err := s.pool.Acquire("keys_a", 8, int64(count), driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return s.capacityErr(err)
	}
	keysB, err := s.pool.Acquire("keys_b", 8, int64(count), driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return s.capacityErr(err)
	}
	histogram, err := s.pool.Acquire("histogram", 4, 256, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return s.capacityErr(err)
	}
	tgCounts, err := s.pool.Acquire("tg_counts", 4, int64(numTG)*256, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return s.capacityErr(err)
	}
	tgOffsets, err := s.pool.Acquire("tg_offsets", 4, int64(numTG)*256, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return s.capacityErr(err)
	}

	cmd.BeginWork(false)
	defer cmd.EndWork()

	if err := s.dispatchKeyBuild(cmd, splats, keysA, stride, count, camPos, camFwd, byDistance); err != nil {
		return err
	}

	in, out := keysA, keysB
	for pass := 0; pass < 4; pass++ {
		byteIndex := uint32(pass)

		if err := s.dispatchHistogramReset(cmd, histogram); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		if err := s.dispatchHistogramAccumulate(cmd, in, histogram, byteIndex, count); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		if err := s.dispatchPrefixSum(cmd, histogram); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		if err := s.dispatchScatterCount(cmd, in, tgCounts, byteIndex, count, numTG); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		if err := s.dispatchScatterOffsets(cmd, tgCounts, tgOffsets, histogram, numTG); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		if err := s.dispatchScatterWrite(cmd, in, out, tgOffsets, byteIndex, count); err != nil {
			return err
		}
		cmd.Barrier([]driver.Barrier{computeBarrier()})

		in, out = out, in
	}

	// Four passes is even, so the fully sorted keys are back in
	// keysA; this is the ping-pong invariant §4.6 documents.
	return s.dispatchExtractIndices(cmd, in, outIndices, count)
}

func computeBarrier() driver.Barrier {
	return driver.Barrier{
		SyncBefore:   driver.SComputeShading,
		SyncAfter:    driver.SComputeShading,
		AccessBefore: driver.AShaderWrite,
		AccessAfter:  driver.AAnyRead | driver.AAnyWrite,
	}
}

func (s *Sorter) capacityErr(err error) error {
	var ce *pool.CapacityExceeded
	if errors.As(err, &ce) {
		return &CapacityExceeded{Requested: ce.Requested, Max: ce.Max}
	}
	return &CapacityExceeded{Max: s.gpu.Limits().MaxBufferLength}
}

func groupCount(count int) int {
	return (count + tgSize - 1) / tgSize
}

// writeUniform writes a little-endian uint32 parameter block
// into a small host-visible scratch buffer so a compute pass can
// read it as a uniform. The sort core has no async upload queue
// of its own: every scratch buffer pool hands out is already
// host-visible, so writing params is a plain memory copy.
func writeUniform(buf driver.Buffer, words ...uint32) {
	b := buf.Bytes()
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:i*4+4], w)
	}
}

func (s *Sorter) dispatchKeyBuild(cmd driver.CmdBuffer, splats, keys driver.Buffer, stride, count int, camPos, camFwd [3]float32, byDistance bool) error {
	st := s.stages["key_build"]
	params, err := s.pool.Acquire("params_keybuild", 1, 48, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	by := uint32(0)
	if byDistance {
		by = 1
	}
	writeUniform(params,
		uint32(count), uint32(stride), by,
		0,
		float32bits(camPos[0]), float32bits(camPos[1]), float32bits(camPos[2]), 0,
		float32bits(camFwd[0]), float32bits(camFwd[1]), float32bits(camFwd[2]), 0,
	)
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{splats}, []int64{0}, []int64{splats.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{keys}, []int64{0}, []int64{keys.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(groupCount(count), 1, 1)
	return nil
}

func (s *Sorter) dispatchHistogramReset(cmd driver.CmdBuffer, histogram driver.Buffer) error {
	st := s.stages["histogram_reset"]
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{histogram}, []int64{0}, []int64{histogram.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(1, 1, 1)
	return nil
}

func (s *Sorter) dispatchHistogramAccumulate(cmd driver.CmdBuffer, keys, histogram driver.Buffer, byteIndex uint32, count int) error {
	st := s.stages["histogram_accumulate"]
	params, err := s.pool.Acquire("params_histogram", 1, 8, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	writeUniform(params, uint32(count), byteIndex)
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{histogram}, []int64{0}, []int64{histogram.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{keys}, []int64{0}, []int64{keys.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(groupCount(count), 1, 1)
	return nil
}

func (s *Sorter) dispatchPrefixSum(cmd driver.CmdBuffer, histogram driver.Buffer) error {
	st := s.stages["prefix_sum"]
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{histogram}, []int64{0}, []int64{histogram.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(1, 1, 1)
	return nil
}

func (s *Sorter) dispatchScatterCount(cmd driver.CmdBuffer, keysIn, tgCounts driver.Buffer, byteIndex uint32, count, numTG int) error {
	st := s.stages["scatter_count"]
	params, err := s.pool.Acquire("params_scatter", 1, 12, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	writeUniform(params, uint32(count), byteIndex, uint32(numTG))
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{keysIn}, []int64{0}, []int64{keysIn.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{tgCounts}, []int64{0}, []int64{tgCounts.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(numTG, 1, 1)
	return nil
}

func (s *Sorter) dispatchScatterOffsets(cmd driver.CmdBuffer, tgCounts, tgOffsets, baseHistogram driver.Buffer, numTG int) error {
	st := s.stages["scatter_offsets"]
	params, err := s.pool.Acquire("params_scatter_off", 1, 12, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	// ScatterParams layout: count, byte_index, num_tg; scatter_offsets reads only num_tg.
	writeUniform(params, 0, 0, uint32(numTG))
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{tgCounts}, []int64{0}, []int64{tgCounts.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{tgOffsets}, []int64{0}, []int64{tgOffsets.Cap()})
	st.heap.SetBuffer(0, 3, 0, []driver.Buffer{baseHistogram}, []int64{0}, []int64{baseHistogram.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(1, 1, 1)
	return nil
}

func (s *Sorter) dispatchScatterWrite(cmd driver.CmdBuffer, keysIn, keysOut, tgOffsets driver.Buffer, byteIndex uint32, count int) error {
	st := s.stages["scatter_write"]
	params, err := s.pool.Acquire("params_scatter_write", 1, 12, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	writeUniform(params, uint32(count), byteIndex)
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{keysIn}, []int64{0}, []int64{keysIn.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{keysOut}, []int64{0}, []int64{keysOut.Cap()})
	st.heap.SetBuffer(0, 3, 0, []driver.Buffer{tgOffsets}, []int64{0}, []int64{tgOffsets.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(groupCount(count), 1, 1)
	return nil
}

func (s *Sorter) dispatchExtractIndices(cmd driver.CmdBuffer, keys, outIndices driver.Buffer, count int) error {
	st := s.stages["extract_indices"]
	params, err := s.pool.Acquire("params_extract", 1, 4, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	writeUniform(params, uint32(count))
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{keys}, []int64{0}, []int64{keys.Cap()})
	st.heap.SetBuffer(0, 2, 0, []driver.Buffer{outIndices}, []int64{0}, []int64{outIndices.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(groupCount(count), 1, 1)
	return nil
}
