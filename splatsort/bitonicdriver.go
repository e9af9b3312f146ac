// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"math/bits"

	"github.com/gviegas/splatsort/driver"
)

// recordBitonic records BitonicFallback's dispatch sequence:
// key build into a padded logical size, log2(N)*(log2(N)+1)/2
// compare-and-swap passes, then index extraction. Padding
// records carry the maximal key so they settle at the high end
// and are never read back by extract_indices, which is bounded
// by the caller's original count, not the padded one.
func (s *Sorter) recordBitonic(cmd driver.CmdBuffer, splats, outIndices driver.Buffer, stride, count int, camPos, camFwd [3]float32, byDistance bool) error {
	padded := 1
	if count > 1 {
		padded = 1 << bits.Len(uint(count-1))
	}

	keys, err := s.pool.Acquire("bitonic_keys", 8, int64(padded), driver.UShaderRead|driver.UShaderWrite|driver.UCopyDst)
	if err != nil {
		return s.capacityErr(err)
	}

	cmd.BeginWork(false)
	defer cmd.EndWork()

	if err := s.dispatchKeyBuild(cmd, splats, keys, stride, count, camPos, camFwd, byDistance); err != nil {
		return err
	}
	if padded > count {
		cmd.EndWork()
		cmd.BeginBlit(true)
		cmd.Fill(keys, int64(count)*8, 0xFF, int64(padded-count)*8)
		cmd.EndBlit()
		cmd.BeginWork(true)
	}
	cmd.Barrier([]driver.Barrier{computeBarrier()})

	for k := 2; k <= padded; k <<= 1 {
		for j := k >> 1; j > 0; j >>= 1 {
			if err := s.dispatchBitonicPass(cmd, keys, padded, k, j); err != nil {
				return err
			}
			cmd.Barrier([]driver.Barrier{computeBarrier()})
		}
	}

	return s.dispatchExtractIndices(cmd, keys, outIndices, count)
}

func (s *Sorter) dispatchBitonicPass(cmd driver.CmdBuffer, keys driver.Buffer, padded, k, j int) error {
	st := s.stages["bitonic_pass"]
	params, err := s.pool.Acquire("params_bitonic", 1, 12, driver.UShaderConst)
	if err != nil {
		return s.capacityErr(err)
	}
	writeUniform(params, uint32(padded), uint32(k), uint32(j))
	st.heap.SetBuffer(0, 0, 0, []driver.Buffer{params}, []int64{0}, []int64{params.Cap()})
	st.heap.SetBuffer(0, 1, 0, []driver.Buffer{keys}, []int64{0}, []int64{keys.Cap()})
	cmd.SetPipeline(st.pipe)
	cmd.SetDescTableComp(st.table, 0, []int{0})
	cmd.Dispatch(groupCount(padded), 1, 1)
	return nil
}
