package rng

import (
	"fmt"
	"math/rand"

	"github.com/iti/rngstream"
)

// Source is the uniform-sampling capability the simulator consumes.
// Float64 returns a value in [0, 1). *rand.Rand satisfies it directly.
type Source interface {
	Float64() float64
}

// NewMathSource returns a math/rand generator seeded with seed.
func NewMathSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// streamSource adapts an RngStream (L'Ecuyer MRG32k3a) to Source.
type streamSource struct {
	stream *rngstream.RngStream
}

// NewStreamSource creates a named RngStream. Streams are carved from a
// process-wide package seed in creation order, so a process that creates its
// streams in the same order replays the same draws.
func NewStreamSource(name string) Source {
	return &streamSource{stream: rngstream.New(name)}
}

func (s *streamSource) Float64() float64 {
	return s.stream.RandU01()
}

// Kind names accepted by NewSource.
const (
	KindMath   = "math"
	KindStream = "stream"
)

// NewSource builds a Source by kind. For KindMath the stream is derived from
// key through a PartitionedRNG; KindStream ignores the key.
func NewSource(kind string, key SimulationKey) (Source, error) {
	switch kind {
	case KindMath, "":
		return NewPartitionedRNG(key).ForSubsystem(SubsystemEpidemic), nil
	case KindStream:
		return NewStreamSource(fmt.Sprintf("outbreak-%d", int64(key))), nil
	default:
		return nil, fmt.Errorf("unknown random source %q; valid: %s, %s", kind, KindMath, KindStream)
	}
}

// NewPathSources builds one Source per independent path. Path 0 is the
// source NewSource returns for the same kind and key; path i > 0 draws from
// the SubsystemPath(i) stream, so adding paths never changes earlier ones.
func NewPathSources(kind string, key SimulationKey, n int) ([]Source, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one path, got %d", n)
	}
	first, err := NewSource(kind, key)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, n)
	sources[0] = first
	var parts *PartitionedRNG
	if kind != KindStream {
		parts = NewPartitionedRNG(key)
	}
	for i := 1; i < n; i++ {
		if parts != nil {
			sources[i] = parts.ForSubsystem(SubsystemPath(i))
		} else {
			sources[i] = NewStreamSource(fmt.Sprintf("outbreak-%d-%s", int64(key), SubsystemPath(i)))
		}
	}
	return sources, nil
}
