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

// Package partition implements the collective three-way bucketing step
// of the distributed selector: every rank classifies its local slice
// against a (lo, hi) pivot pair into three buckets, the bucket sizes are
// summed across all ranks, and (after the caller picks a bucket) the
// local slice is rebuilt to hold only that bucket's elements.
package partition

import (
	"context"
	"fmt"

	"github.com/quantilecluster/distquantile/internal/vecops"
	"github.com/quantilecluster/distquantile/transport"
)

// Bucket identifies one of the three partitions produced around (lo, hi).
type Bucket int

const (
	// BucketLow holds values strictly less than lo.
	BucketLow Bucket = iota
	// BucketMid holds values in [lo, hi).
	BucketMid
	// BucketHigh holds values greater than or equal to hi.
	BucketHigh
)

// Counts holds the three global bucket sizes after the collective
// all-reduce, in BucketLow/BucketMid/BucketHigh order.
type Counts struct {
	C0 int64
	C1 int64
	C2 int64
}

// Total returns c0+c1+c2, the total element count reflected in Counts.
func (c Counts) Total() int64 { return c.C0 + c.C1 + c.C2 }

// masks builds the three vecops masks classifying local against (lo, hi):
// low (< lo), mid ([lo, hi)), and high (>= hi).
func masks(local []float64, lo, hi float64) (v, loVec, hiVec vecops.Vec[float64], low, mid, high vecops.Mask[float64]) {
	n := len(local)
	v = vecops.Of(local)
	loVec = vecops.Set(lo, n)
	hiVec = vecops.Set(hi, n)
	low = vecops.LessThan(v, loVec)
	mid = vecops.InRange(v, loVec, hiVec)
	high = vecops.GreaterEqual(v, hiVec)
	return
}

// Count performs the collective counting pass: each rank classifies its
// local slice against (lo, hi) via vecops masks, and the three local
// tallies are summed across every rank via a single fused all-reduce. It
// returns both the global Counts and this rank's local tallies (needed
// by Rebuild without a second scan).
func Count(ctx context.Context, comm transport.Communicator, local []float64, lo, hi float64) (Counts, [3]int64, error) {
	_, _, _, low, mid, high := masks(local, lo, hi)
	localCounts := [3]int64{
		BucketLow:  int64(low.CountTrue()),
		BucketMid:  int64(mid.CountTrue()),
		BucketHigh: int64(high.CountTrue()),
	}

	totals, err := comm.AllReduceSumInt64Vec(ctx, localCounts[:])
	if err != nil {
		return Counts{}, localCounts, fmt.Errorf("partition: all-reduce bucket counts: %w", err)
	}
	if len(totals) != 3 {
		return Counts{}, localCounts, fmt.Errorf("partition: expected 3 reduced counts, got %d", len(totals))
	}

	return Counts{C0: totals[BucketLow], C1: totals[BucketMid], C2: totals[BucketHigh]}, localCounts, nil
}

// Rebuild does the second pass: it compresses every element of local
// belonging to bucket into a freshly allocated slice sized from
// localCounts (as returned by Count), releasing the old buffer's
// contents to the garbage collector once the caller drops its
// reference. lo and hi must be the same values passed to Count.
func Rebuild(local []float64, lo, hi float64, bucket Bucket, localCounts [3]int64) []float64 {
	v, _, _, low, mid, high := masks(local, lo, hi)

	var mask vecops.Mask[float64]
	switch bucket {
	case BucketLow:
		mask = low
	case BucketMid:
		mask = mid
	default:
		mask = high
	}

	dst := make([]float64, localCounts[bucket])
	vecops.CompressStore(v, mask, dst)
	return dst
}
