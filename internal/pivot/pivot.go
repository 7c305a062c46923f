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

// Package pivot implements the sample-based pivot selection the
// distributed selector uses to bracket the target rank: every rank draws
// a bounded random subsample of its local data, the samples are gathered
// to the root, and the root derives a (lo, hi) pair expected to bracket
// rank k with high probability, which it broadcasts back out.
package pivot

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/quantilecluster/distquantile/internal/localselect"
	"github.com/quantilecluster/distquantile/transport"
)

// SampleTotal is the global sample budget shared across all ranks.
const SampleTotal = 100_000

// Bracket is the (lo, hi) pivot pair the Three-Way Partitioner buckets
// around, satisfying lo <= hi on a successful Compute.
type Bracket struct {
	Lo float64
	Hi float64
}

// Compute draws a bounded local sample from local, gathers every rank's
// sample to the root, and derives the pivot bracket for target rank k out
// of a globally-known total size n. rng should be seeded per rank (e.g.
// by rank number) so the sampling step is reproducible given a fixed seed
// policy; every rank must call Compute with the same k and n.
func Compute(ctx context.Context, comm transport.Communicator, local []float64, k int64, n int64, rng *rand.Rand) (Bracket, error) {
	perRank := int64(math.Ceil(float64(SampleTotal) / float64(comm.Size())))
	sampleSize := perRank
	if sampleSize > int64(len(local)) {
		sampleSize = int64(len(local))
	}

	sample := drawSample(local, int(sampleSize), rng)

	gathered, err := comm.GatherVFloat64(ctx, sample)
	if err != nil {
		return Bracket{}, fmt.Errorf("pivot: gather samples: %w", err)
	}

	var lo, hi float64
	if comm.Rank() == transport.RootRank {
		lo, hi = computeBracket(gathered, k, n)
	}

	lo, err = comm.BroadcastFloat64(ctx, lo)
	if err != nil {
		return Bracket{}, fmt.Errorf("pivot: broadcast lo: %w", err)
	}
	hi, err = comm.BroadcastFloat64(ctx, hi)
	if err != nil {
		return Bracket{}, fmt.Errorf("pivot: broadcast hi: %w", err)
	}

	return Bracket{Lo: lo, Hi: hi}, nil
}

// drawSample picks n values uniformly at random (without replacement,
// via partial Fisher-Yates) from local, without disturbing local's order.
func drawSample(local []float64, n int, rng *rand.Rand) []float64 {
	if n <= 0 || len(local) == 0 {
		return nil
	}
	scratch := append([]float64(nil), local...)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:n:n]
}

// computeBracket runs only on the root: it derives (lo, hi) from the
// gathered sample buffer per the scaled-rank/margin formula. It only
// needs the total sample count, not the per-rank breakdown: GatherVFloat64
// already concatenates every rank's contribution in rank order.
func computeBracket(gathered []float64, k, n int64) (lo, hi float64) {
	s := int64(len(gathered))
	if s == 0 {
		return 0, 0
	}

	kPrime := (k * s) / n
	margin := int64(math.Ceil(math.Sqrt(float64(s) * math.Log(float64(n)))))

	k1 := kPrime - margin
	if k1 < 0 {
		k1 = 0
	}
	k2 := kPrime + margin
	if k2 > s-1 {
		k2 = s - 1
	}

	lo = localselect.NthElement(gathered, int(k1))
	hi = localselect.NthElement(gathered, int(k2))
	return lo, hi
}
