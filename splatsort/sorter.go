// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

import (
	"encoding/binary"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gviegas/splatsort/driver"
	"github.com/gviegas/splatsort/pool"
	"github.com/gviegas/splatsort/recorder"
)

// Sorter sorts splats back-to-front from a camera viewpoint. A
// Sorter is safe for concurrent Sort calls only to the extent its
// Pool and Recorder are: scratch is sort-private for the duration
// of one invocation, so concurrent sorts sharing a Sorter will
// correctly serialize on Pool's internal lock but will contend
// for the same scratch slabs; independent pipelines should use
// independent Sorters.
type Sorter struct {
	gpu  driver.GPU // nil selects a CPU-only Sorter
	pool *pool.Pool
	rec  *recorder.Recorder
	log  *slog.Logger

	stages map[string]*stagePipeline
	code   driver.ShaderCode

	backend          Backend
	bitonicThreshold int
	maxInFlight      int
}

// New creates a Sorter. gpu may be nil, in which case only
// BackendCPU may be used: the backend is set to BackendCPU
// regardless of what the caller passes to WithBackend, so
// routeBackend always resolves to BackendCPU.
func New(gpu driver.GPU, opts ...Option) (*Sorter, error) {
	s := &Sorter{
		gpu:              gpu,
		backend:          BackendRadixGPU,
		bitonicThreshold: maxBitonicN,
		maxInFlight:      recorder.DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	if gpu == nil {
		s.backend = BackendCPU
		return s, nil
	}

	s.pool = pool.New(gpu, s.log.With("component", "pool"))
	s.rec = recorder.New(gpu, s.maxInFlight, s.log.With("component", "recorder"))

	stages, code, err := buildPipelines(gpu)
	if err != nil {
		return nil, err
	}
	s.stages = stages
	s.code = code
	return s, nil
}

// Recorder exposes the Sorter's command object pool so callers
// can acquire a CommandObject to pass to Sort.
func (s *Sorter) Recorder() *recorder.Recorder { return s.rec }

// Sort records the sort of count splats, read from splats at the
// given stride, into outIndices. The contract mirrors the
// external sort() interface: splats.Cap() must be at least
// count*stride, outIndices.Cap() must be at least count*4,
// camFwd must already be unit length when byDistance is false,
// and cmd must be a CommandObject acquired from s.Recorder()
// (BackendCPU ignores cmd entirely and runs synchronously).
//
// Sort only records work; it never waits for GPU completion. The
// caller submits cmd and, if it needs the result synchronously,
// awaits the completion callback itself.
func (s *Sorter) Sort(splats, outIndices driver.Buffer, stride, count int, camPos, camFwd [3]float32, byDistance bool, cmd *recorder.CommandObject) error {
	if count == 0 {
		return nil
	}
	if count < 0 {
		return &InvalidArgument{Which: "count must be non-negative"}
	}
	if stride < 12 {
		return &InvalidArgument{Which: "stride must be at least 12 bytes (a position)"}
	}
	if splats.Cap() < int64(count)*int64(stride) {
		return &InvalidArgument{Which: "splats buffer smaller than count*stride"}
	}
	if outIndices.Cap() < int64(count)*4 {
		return &InvalidArgument{Which: "out_indices buffer smaller than count*4"}
	}

	backend := routeBackend(s.backend, count, s.bitonicThreshold)
	invocation := uuid.New()
	log := s.log.With("invocation", invocation, "count", count, "backend", backend)

	if backend == BackendCPU {
		log.Debug("splatsort: running CPU backend")
		return s.sortCPU(splats, outIndices, stride, count, camPos, camFwd, byDistance)
	}

	if cmd == nil {
		return &InvalidArgument{Which: "cmd must not be nil for a GPU backend"}
	}
	record, err := cmd.Record()
	if err != nil {
		return err
	}

	log.Debug("splatsort: recording GPU passes")
	switch backend {
	case BackendBitonicGPU:
		return s.recordBitonic(record, splats, outIndices, stride, count, camPos, camFwd, byDistance)
	default:
		return s.recordRadix(record, splats, outIndices, stride, count, camPos, camFwd, byDistance)
	}
}

// sortCPU implements BackendCPU entirely on the host: it reads
// splats and writes outIndices directly, with no GPU involvement
// and no command object.
func (s *Sorter) sortCPU(splats, outIndices driver.Buffer, stride, count int, camPos, camFwd [3]float32, byDistance bool) error {
	if !splats.Visible() {
		return &InvalidArgument{Which: "BackendCPU requires a host-visible splats buffer"}
	}
	if !outIndices.Visible() {
		return &InvalidArgument{Which: "BackendCPU requires a host-visible out_indices buffer"}
	}

	keys := buildKeysCPU(splats.Bytes(), stride, count, camPos, camFwd, byDistance)
	sorted := radixSortCPU(keys)
	indices := extractIndices(sorted)

	dst := outIndices.Bytes()
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], idx)
	}
	return nil
}

// Close releases the Sorter's GPU resources: compiled pipelines,
// the shader module they came from, and cached scratch buffers.
// It is a no-op for a CPU-only Sorter.
func (s *Sorter) Close() {
	if s.gpu == nil {
		return
	}
	for _, st := range s.stages {
		if st.pipe != nil {
			st.pipe.Destroy()
		}
		if st.table != nil {
			st.table.Destroy()
		}
		if st.heap != nil {
			st.heap.Destroy()
		}
	}
	if s.code != nil {
		s.code.Destroy()
	}
	if s.pool != nil {
		s.pool.Reset()
	}
}

type discardWriter struct{}

func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
