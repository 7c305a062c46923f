// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package distquantile

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantilecluster/distquantile/cluster"
	"github.com/quantilecluster/distquantile/transport"
)

// runQuantile drives a size-rank cluster, handing shards[r] to rank r,
// and returns the result every rank agreed on.
func runQuantile(t *testing.T, shards [][]float64, totalSize int64, q float64, opts ...Option) float64 {
	t.Helper()
	results := make([]float64, len(shards))
	err := cluster.Run(context.Background(), len(shards), func(ctx context.Context, comm transport.Communicator) error {
		v, err := Quantile(ctx, comm, shards[comm.Rank()], totalSize, q, opts...)
		results[comm.Rank()] = v
		return err
	})
	require.NoError(t, err)
	for r, v := range results {
		require.Equal(t, results[0], v, "rank %d disagreed with rank 0", r)
	}
	return results[0]
}

func TestQuantileSingleProcessSorted(t *testing.T) {
	shards := [][]float64{{3.0, 1.0, 4.0, 1.0, 5.0, 9.0, 2.0, 6.0}}
	got := runQuantile(t, shards, 8, 0.5)
	assert.Equal(t, 4.0, got)
}

func TestQuantileMultiProcessQZero(t *testing.T) {
	shards := [][]float64{{1.0}, {2.0}, {3.0}, {4.0}}
	got := runQuantile(t, shards, 4, 0.0)
	assert.Equal(t, 1.0, got)
}

func TestQuantileMultiProcessQNearOne(t *testing.T) {
	shards := [][]float64{{1.0}, {2.0}, {3.0}, {4.0}}
	got := runQuantile(t, shards, 4, 0.99)
	assert.Equal(t, 4.0, got)
}

func TestQuantileMultiProcessQOne(t *testing.T) {
	shards := [][]float64{{1.0}, {2.0}, {3.0}, {4.0}}
	got := runQuantile(t, shards, 4, 1.0)
	assert.Equal(t, 4.0, got)
}

func TestQuantileAllDuplicatesRecursivePath(t *testing.T) {
	const perRank = 200_000
	shards := make([][]float64, 2)
	for r := range shards {
		local := make([]float64, perRank)
		for i := range local {
			local[i] = 7.5
		}
		shards[r] = local
	}
	got := runQuantile(t, shards, int64(2*perRank), 0.5, WithThreshold(100_000))
	assert.Equal(t, 7.5, got)
}

func TestQuantileContiguousRanges(t *testing.T) {
	const perRank = 100_000
	shards := make([][]float64, 4)
	for p := range shards {
		local := make([]float64, perRank)
		for i := range local {
			local[i] = float64(p*perRank + i)
		}
		shards[p] = local
	}
	got := runQuantile(t, shards, int64(4*perRank), 0.25, WithThreshold(50_000))
	assert.Equal(t, float64(perRank), got)
}

func TestQuantileSkewedZeroHoldingRanks(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const n = 50_000
	data := make([]float64, n)
	for i := range data {
		data[i] = rng.Float64() * 1000
	}
	sorted := append([]float64(nil), data...)
	slices.Sort(sorted)

	shards := [][]float64{data, nil, nil}
	got := runQuantile(t, shards, n, 0.5, WithThreshold(10_000))
	assert.Equal(t, sorted[n/2], got)
}

func TestQuantileEmptySliceRanks(t *testing.T) {
	shards := [][]float64{{1, 2, 3}, nil, {4, 5}}
	got := runQuantile(t, shards, 5, 0.5)
	assert.Equal(t, 3.0, got)
}

func TestQuantileRejectsBadQuantile(t *testing.T) {
	shards := [][]float64{{1, 2, 3}}
	err := cluster.Run(context.Background(), 1, func(ctx context.Context, comm transport.Communicator) error {
		_, err := Quantile(ctx, comm, shards[0], 3, 1.5)
		if err == nil {
			t.Error("expected an error for q > 1")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestQuantileRejectsSizeMismatch(t *testing.T) {
	shards := [][]float64{{1, 2, 3}}
	err := cluster.Run(context.Background(), 1, func(ctx context.Context, comm transport.Communicator) error {
		_, err := Quantile(ctx, comm, shards[0], 99, 0.5)
		assert.ErrorIs(t, err, ErrSizeMismatch)
		return nil
	})
	require.NoError(t, err)
}

func TestQuantileRejectsNaN(t *testing.T) {
	shards := [][]float64{{1, math.NaN(), 3}}
	err := cluster.Run(context.Background(), 1, func(ctx context.Context, comm transport.Communicator) error {
		_, err := Quantile(ctx, comm, shards[0], 3, 0.5)
		assert.ErrorIs(t, err, ErrNaNInput)
		return nil
	})
	require.NoError(t, err)
}

func TestQuantilePivotRetryFallback(t *testing.T) {
	const perRank = 60_000
	shards := make([][]float64, 2)
	for r := range shards {
		local := make([]float64, perRank)
		for i := range local {
			local[i] = 42.0
		}
		shards[r] = local
	}
	// Every element equals 42, so every sample does too: the bracket
	// always collapses to lo=hi=42 regardless of which elements are
	// drawn. At q=0 (k=0) that makes c0=0 >= k=0, violating the step 6
	// invariant deterministically, on every attempt — no dependence on
	// the seed. With retries disabled this falls straight back to the
	// Local Selector on the first violation.
	var stats Stats
	err := cluster.Run(context.Background(), 2, func(ctx context.Context, comm transport.Communicator) error {
		v, s, err := QuantileStats(ctx, comm, shards[comm.Rank()], int64(2*perRank), 0.0,
			WithThreshold(10_000), WithMaxPivotRetries(0), WithSeed(1))
		if comm.Rank() == transport.RootRank {
			stats = s
		}
		if v != 42.0 {
			t.Errorf("rank %d: got %v, want 42.0", comm.Rank(), v)
		}
		return err
	})
	require.NoError(t, err)
	assert.True(t, stats.FellBackToLocalSelector)
}

