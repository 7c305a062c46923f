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

// Package distquantile computes order statistics (quantiles) over a
// large double-precision dataset distributed across the ranks of a
// message-passing cluster, without ever gathering the full dataset onto
// one process unless the remaining data has shrunk below a threshold or
// the pivot retries at one recursion level are exhausted.
//
// Quantile is the package's single entry point (the Boundary Adapter):
// it validates preconditions, then drives the recursive sample-pivot /
// three-way-partition loop implemented in select.go down to the Local
// Selector fallback, all on top of the transport.Communicator collective
// seam so the same code runs against the in-memory cluster package or
// any other Communicator implementation.
package distquantile

import (
	"context"
	"math"

	"github.com/quantilecluster/distquantile/transport"
)

// Quantile returns the value v such that the number of elements in the
// dataset distributed across every rank's local slice that are strictly
// less than v is at most k = ⌊q·N⌋, where N is totalSize. It must be
// called collectively, once per rank sharing comm, with identical q and
// totalSize on every rank; local may differ in length and content per
// rank but Σ len(local) across ranks must equal totalSize.
//
// At q = 1.0, k is clamped to N-1 (returning the maximum element)
// rather than treated as out of range; see the design notes for why.
//
// Quantile does not mutate local; it operates on an internal copy.
func Quantile(ctx context.Context, comm transport.Communicator, local []float64, totalSize int64, q float64, opts ...Option) (float64, error) {
	v, _, err := QuantileStats(ctx, comm, local, totalSize, q, opts...)
	return v, err
}

// QuantileStats is Quantile plus Stats describing how much recursive
// work the call actually performed, for callers (notably the CLI's
// bench subcommand) that want that telemetry.
func QuantileStats(ctx context.Context, comm transport.Communicator, local []float64, totalSize int64, q float64, opts ...Option) (float64, Stats, error) {
	if q < 0 || q > 1 {
		return 0, Stats{}, ErrInvalidQuantile
	}
	if totalSize < 1 {
		return 0, Stats{}, ErrEmptyInput
	}
	for _, v := range local {
		if math.IsNaN(v) {
			return 0, Stats{}, ErrNaNInput
		}
	}

	localCopy := append([]float64(nil), local...)

	reportedSize, err := comm.AllReduceSumInt64(ctx, int64(len(localCopy)))
	if err != nil {
		return 0, Stats{}, err
	}
	if reportedSize != totalSize {
		return 0, Stats{}, ErrSizeMismatch
	}

	k := int64(math.Floor(q * float64(totalSize)))
	if k >= totalSize {
		k = totalSize - 1
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	seed := int64(comm.Rank())
	if cfg.haveSeed {
		seed = cfg.seed*31 + int64(comm.Rank())
	}
	rng := newRand(seed)

	return selectNth(ctx, comm, localCopy, k, cfg, rng)
}
