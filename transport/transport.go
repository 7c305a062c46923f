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

// Package transport defines the thin collective-communication surface the
// distributed selector is built on, plus the constants every
// implementation must agree on (the root rank).
//
// Every method is a synchronizing collective: all ranks sharing a
// Communicator must call the same method, in the same order, the same
// number of times, or the call blocks forever (or returns an error, for
// implementations that detect the mismatch). This mirrors a real
// message-passing runtime's collective semantics; see NewInMemory in
// this package (driven by the cluster package) for the concrete backend
// used by tests and the CLI.
package transport

import "context"

// RootRank is the distinguished rank that performs pivot computation and
// the small-path local selection.
const RootRank = 0

// Communicator is the collective-transport seam the selector is built
// against. Implementations are expected to be safe to call concurrently
// only in the sense that every rank's goroutine calls it independently;
// a single call is itself a barrier across all ranks.
type Communicator interface {
	// Rank returns this participant's 0-based rank.
	Rank() int

	// Size returns the total number of ranks, P.
	Size() int

	// AllReduceSumInt64 sums a single int64 contributed by every rank and
	// returns the total on every rank.
	AllReduceSumInt64(ctx context.Context, v int64) (int64, error)

	// AllReduceSumInt64Vec sums a fixed-length vector of int64 elementwise
	// across all ranks and returns the totals on every rank. Every rank
	// must contribute a vector of the same length.
	AllReduceSumInt64Vec(ctx context.Context, v []int64) ([]int64, error)

	// GatherInt32 collects one int32 per rank onto the root. On the root
	// the returned slice has length Size(), ordered by rank; on
	// non-root ranks it is nil.
	GatherInt32(ctx context.Context, v int32) ([]int32, error)

	// GatherVFloat64 collects a variable-length slice of float64 from
	// every rank onto the root, in rank order. On the root the returned
	// slice has length equal to the sum of every rank's contribution; on
	// non-root ranks it is nil.
	GatherVFloat64(ctx context.Context, v []float64) ([]float64, error)

	// BroadcastFloat64 distributes the root's value to every rank. Only
	// the value passed by the root is observed; non-root callers may
	// pass any value.
	BroadcastFloat64(ctx context.Context, v float64) (float64, error)
}
