package stats

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/snappy"
	"github.com/janusql/planner/kv"
	"github.com/janusql/planner/perrors"
)

// DivideRangeConfig bounds LiveStatisticsProvider.DivideRangeForParallelScan.
type DivideRangeConfig struct {
	ChunkSizeBytes int64
	MaxConcurrency int
}

// LiveStatisticsProvider is the only suspending component in the
// planning path (spec §5): it wraps read-only kv.Store transactions for
// server-side range-size estimation and split-point queries, converting
// byte estimates to row estimates using AvgRowSizeBytes. All of its
// methods take a context and may be cancelled by the caller, who must
// see the underlying storage transaction abort cleanly (kv.BadgerStore
// does this by discarding its read transaction on Close/ctx
// cancellation).
//
// On any error, callers are expected to fall back to DefaultProvider —
// LiveStatisticsProvider itself just surfaces ErrStatisticsUnavailable
// (spec §7) rather than silently returning zero estimates.
type LiveStatisticsProvider struct {
	store          kv.Store
	AvgRowSizeBytes int64
	fallback       *DefaultProvider
}

// NewLiveStatisticsProvider wraps store. A non-positive avgRowSizeBytes
// is replaced by 256.
func NewLiveStatisticsProvider(store kv.Store, avgRowSizeBytes int64) *LiveStatisticsProvider {
	if avgRowSizeBytes <= 0 {
		avgRowSizeBytes = 256
	}
	return &LiveStatisticsProvider{store: store, AvgRowSizeBytes: avgRowSizeBytes, fallback: NewDefaultProvider()}
}

// EstimateRangeRows converts a byte-size estimate for [begin,end) into
// a row-count estimate.
func (l *LiveStatisticsProvider) EstimateRangeRows(ctx context.Context, begin, end []byte) (int64, error) {
	sizeBytes, err := l.store.EstimatedRangeSizeBytes(ctx, begin, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", perrors.ErrStatisticsUnavailable, err)
	}
	if l.AvgRowSizeBytes <= 0 {
		return 0, nil
	}
	return sizeBytes / l.AvgRowSizeBytes, nil
}

// DivideRangeForParallelScan produces equal-sized chunk boundaries for
// [begin,end), bounded by cfg.MaxConcurrency (spec §4.4). The split
// points returned by the store are snapped into at most MaxConcurrency-1
// interior boundaries by taking an even stride through the candidate
// list, so the number of resulting chunks never exceeds MaxConcurrency
// regardless of how fine-grained the store's own split points are.
func (l *LiveStatisticsProvider) DivideRangeForParallelScan(ctx context.Context, begin, end []byte, cfg DivideRangeConfig) ([][2][]byte, error) {
	if cfg.ChunkSizeBytes <= 0 {
		cfg.ChunkSizeBytes = 1 << 20
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}

	candidates, err := l.store.RangeSplitPoints(ctx, begin, end, cfg.ChunkSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", perrors.ErrStatisticsUnavailable, err)
	}

	if len(candidates) == 0 {
		return [][2][]byte{{begin, end}}, nil
	}

	maxInterior := cfg.MaxConcurrency - 1
	var boundaries [][]byte
	if maxInterior <= 0 {
		boundaries = nil
	} else if len(candidates) <= maxInterior {
		boundaries = candidates
	} else {
		stride := float64(len(candidates)) / float64(maxInterior)
		for i := 0; i < maxInterior; i++ {
			idx := int(float64(i+1) * stride)
			if idx >= len(candidates) {
				idx = len(candidates) - 1
			}
			boundaries = append(boundaries, candidates[idx])
		}
	}

	chunks := make([][2][]byte, 0, len(boundaries)+1)
	prev := begin
	for _, b := range boundaries {
		if bytes.Equal(b, prev) {
			continue
		}
		chunks = append(chunks, [2][]byte{prev, b})
		prev = b
	}
	chunks = append(chunks, [2][]byte{prev, end})
	return chunks, nil
}

// compressedSample snappy-compresses a sampled value payload before
// sizing, exercising golang/snappy the way badger itself offers as a
// value-log compression option (SPEC_FULL.md's domain-stack wiring).
func compressedSample(payload []byte) []byte {
	return snappy.Encode(nil, payload)
}

// SampledSizeBytes estimates the on-disk size of payload by
// snappy-compressing it first, approximating how the underlying value
// log would store it.
func SampledSizeBytes(payload []byte) int64 {
	return int64(len(compressedSample(payload)))
}
