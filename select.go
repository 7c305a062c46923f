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
	"fmt"
	"math/rand"

	"github.com/quantilecluster/distquantile/internal/localselect"
	"github.com/quantilecluster/distquantile/internal/partition"
	"github.com/quantilecluster/distquantile/internal/pivot"
	"github.com/quantilecluster/distquantile/transport"
)

// Stats reports how much work a Quantile call actually did, for callers
// that want to observe the recursive path's behavior (the CLI's bench
// subcommand surfaces these).
type Stats struct {
	// Depth is the number of pivot/partition recursion levels taken
	// before a result was produced (0 if the small-case Local Selector
	// answered directly).
	Depth int
	// Retries is the total number of degenerate pivots seen across every
	// recursion level, including one that triggered the fallback to the
	// Local Selector.
	Retries int
	// FellBackToLocalSelector is true if the computation ended by
	// gathering the (possibly still large) remaining data to the root
	// instead of continuing to partition, either because N dropped below
	// the threshold or because retries were exhausted.
	FellBackToLocalSelector bool
}

// selectNth is the iterative Recursive Selector (§4.2): it tail-recurses
// by looping, rebuilding the local buffer each iteration instead of
// growing the call stack, exactly as the design notes prescribe.
func selectNth(ctx context.Context, comm transport.Communicator, local []float64, k int64, cfg *config, rng *rand.Rand) (float64, Stats, error) {
	var stats Stats
	levelRetries := 0

	for {
		n, err := comm.AllReduceSumInt64(ctx, int64(len(local)))
		if err != nil {
			return 0, stats, fmt.Errorf("distquantile: all-reduce N: %w", err)
		}

		if n < cfg.threshold {
			v, err := localSelect(ctx, comm, local, k)
			stats.FellBackToLocalSelector = true
			return v, stats, err
		}

		bracket, err := pivot.Compute(ctx, comm, local, k, n, rng)
		if err != nil {
			return 0, stats, fmt.Errorf("distquantile: pivot computation: %w", err)
		}

		counts, localCounts, err := partition.Count(ctx, comm, local, bracket.Lo, bracket.Hi)
		if err != nil {
			return 0, stats, fmt.Errorf("distquantile: bucket count: %w", err)
		}
		if counts.Total() != n {
			return 0, stats, fatalf("select_nth", "bucket counts sum to %d, want N=%d", counts.Total(), n)
		}

		// Step 5 tie-break: the [>=hi] bucket alone covers every index
		// from k onward, so hi itself is the answer.
		if counts.C2 > n-k {
			return bracket.Hi, stats, nil
		}

		// Step 6 invariant: the [<lo] bucket must not reach as far as k.
		if counts.C0 >= k {
			levelRetries++
			stats.Retries++
			if levelRetries > cfg.maxPivotRetries {
				v, err := localSelect(ctx, comm, local, k)
				stats.FellBackToLocalSelector = true
				return v, stats, err
			}
			continue // Re-enter step 3 with a fresh sample at the same level.
		}

		levelRetries = 0
		stats.Depth++

		switch {
		case k < counts.C0:
			local = partition.Rebuild(local, bracket.Lo, bracket.Hi, partition.BucketLow, localCounts)
		case k < counts.C0+counts.C1:
			local = partition.Rebuild(local, bracket.Lo, bracket.Hi, partition.BucketMid, localCounts)
			k -= counts.C0
		default:
			local = partition.Rebuild(local, bracket.Lo, bracket.Hi, partition.BucketHigh, localCounts)
			k -= counts.C0 + counts.C1
		}
	}
}

// localSelect is the Local Selector (§4.5): gather everything to the
// root, run single-process introselect there, and broadcast the answer.
func localSelect(ctx context.Context, comm transport.Communicator, local []float64, k int64) (float64, error) {
	gathered, err := comm.GatherVFloat64(ctx, local)
	if err != nil {
		return 0, fmt.Errorf("distquantile: gather-all: %w", err)
	}

	var result float64
	if comm.Rank() == transport.RootRank {
		if k < 0 || k >= int64(len(gathered)) {
			return 0, fatalf("local_selector", "k=%d out of range for gathered N=%d", k, len(gathered))
		}
		result = localselect.NthElement(gathered, int(k))
	}

	result, err = comm.BroadcastFloat64(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("distquantile: broadcast result: %w", err)
	}
	return result, nil
}
