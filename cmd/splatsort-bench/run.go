// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gviegas/splatsort"
	"github.com/gviegas/splatsort/driver"
	_ "github.com/gviegas/splatsort/driver/webgpu"
	"github.com/gviegas/splatsort/recorder"
)

var (
	count      int
	seed       int64
	backendStr string
	byDistance bool
	camX       float32
	camY       float32
	camZ       float32
	fwdX       float32
	fwdY       float32
	fwdZ       float32
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate synthetic splats and time a single sort",
	RunE:  runBench,
}

func init() {
	runCmd.Flags().IntVar(&count, "count", 1_000_000, "Number of synthetic splats")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed for splat generation")
	runCmd.Flags().StringVar(&backendStr, "backend", "radix", "Backend: radix, bitonic, cpu")
	runCmd.Flags().BoolVar(&byDistance, "by-distance", true, "Sort by squared distance instead of forward projection")
	runCmd.Flags().Float32Var(&camX, "cam-x", 0, "Camera position x")
	runCmd.Flags().Float32Var(&camY, "cam-y", 0, "Camera position y")
	runCmd.Flags().Float32Var(&camZ, "cam-z", 0, "Camera position z")
	runCmd.Flags().Float32Var(&fwdX, "fwd-x", 0, "Camera forward x")
	runCmd.Flags().Float32Var(&fwdY, "fwd-y", 0, "Camera forward y")
	runCmd.Flags().Float32Var(&fwdZ, "fwd-z", 1, "Camera forward z")
	rootCmd.AddCommand(runCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	backend, err := splatsort.NormalizeBackend(backendStr)
	if err != nil {
		return err
	}
	invocation := uuid.New()
	log := logger.With("invocation", invocation, "count", count, "backend", backend)

	const stride = 12
	splatBytes := make([]byte, count*stride)
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < count; i++ {
		off := i * stride
		binary.LittleEndian.PutUint32(splatBytes[off:off+4], math.Float32bits(r.Float32()*1000-500))
		binary.LittleEndian.PutUint32(splatBytes[off+4:off+8], math.Float32bits(r.Float32()*1000-500))
		binary.LittleEndian.PutUint32(splatBytes[off+8:off+12], math.Float32bits(r.Float32()*1000-500))
	}

	var gpu driver.GPU
	if backend != splatsort.BackendCPU {
		gpu, err = openGPU()
		if err != nil {
			log.Warn("no GPU driver available, falling back to CPU backend", "error", err)
			backend = splatsort.BackendCPU
			gpu = nil
		}
	}
	sorter, err := splatsort.New(gpu, splatsort.WithBackend(backend), splatsort.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating sorter: %w", err)
	}
	defer sorter.Close()

	splats := &hostBuffer{data: splatBytes}
	outIndices := &hostBuffer{data: make([]byte, count*4)}

	camPos := [3]float32{camX, camY, camZ}
	camFwd := [3]float32{fwdX, fwdY, fwdZ}

	var co *recorder.CommandObject
	if gpu != nil {
		co, err = sorter.Recorder().Acquire(context.Background())
		if err != nil {
			return fmt.Errorf("acquiring command object: %w", err)
		}
	}

	start := time.Now()
	if err := sorter.Sort(splats, outIndices, stride, count, camPos, camFwd, byDistance, co); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	if co != nil {
		done := make(chan error, 1)
		co.Submit(func(err error) { done <- err })
		if err := <-done; err != nil {
			return fmt.Errorf("GPU execution failed: %w", err)
		}
	}
	elapsed := time.Since(start)

	if !permutationOK(outIndices.data, count) {
		return fmt.Errorf("sanity check failed: output is not a permutation of 0..%d", count)
	}

	log.Info("sort complete", "elapsed", elapsed)
	fmt.Printf("sorted %d splats in %s using backend %s\n", count, elapsed, backend)
	return nil
}

func permutationOK(indices []byte, count int) bool {
	seen := make([]bool, count)
	for i := 0; i < count; i++ {
		idx := binary.LittleEndian.Uint32(indices[i*4 : i*4+4])
		if int(idx) >= count || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func openGPU() (driver.GPU, error) {
	drvs := driver.Drivers()
	if len(drvs) == 0 {
		return nil, driver.ErrNotInstalled
	}
	return drvs[0].Open()
}

type hostBuffer struct{ data []byte }

func (b *hostBuffer) Visible() bool { return true }
func (b *hostBuffer) Bytes() []byte { return b.data }
func (b *hostBuffer) Cap() int64    { return int64(len(b.data)) }
func (b *hostBuffer) Destroy()      {}
