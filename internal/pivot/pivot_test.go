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

package pivot

import (
	"context"
	"math/rand"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/quantilecluster/distquantile/transport"
)

func TestComputeBracketOrdering(t *testing.T) {
	const numRanks = 4
	const perRank = 5000
	comms := transport.NewInMemory(numRanks)

	data := make([][]float64, numRanks)
	total := int64(0)
	for r := 0; r < numRanks; r++ {
		rng := rand.New(rand.NewSource(int64(r)))
		local := make([]float64, perRank)
		for i := range local {
			local[i] = rng.Float64() * 1000
		}
		data[r] = local
		total += int64(len(local))
	}

	k := total / 2
	brackets := make([]Bracket, numRanks)
	var g errgroup.Group
	for r := 0; r < numRanks; r++ {
		r := r
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(r)))
			b, err := Compute(context.Background(), comms[r], data[r], k, total, rng)
			brackets[r] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	want := brackets[0]
	for r, b := range brackets {
		if b != want {
			t.Errorf("rank %d bracket = %+v, want %+v (all ranks must agree)", r, b, want)
		}
	}
	if want.Lo > want.Hi {
		t.Errorf("bracket invariant violated: lo=%v > hi=%v", want.Lo, want.Hi)
	}
}

func TestDrawSampleBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	local := make([]float64, 10)
	for i := range local {
		local[i] = float64(i)
	}
	sample := drawSample(local, 4, rng)
	if len(sample) != 4 {
		t.Fatalf("len(sample) = %d, want 4", len(sample))
	}
	seen := map[float64]bool{}
	for _, v := range sample {
		if seen[v] {
			t.Errorf("duplicate sampled value %v (sampling should be without replacement)", v)
		}
		seen[v] = true
	}
	// local must be unmodified.
	for i, v := range local {
		if v != float64(i) {
			t.Errorf("drawSample mutated its input at index %d", i)
		}
	}
}

func TestDrawSampleEmptyLocal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if sample := drawSample(nil, 4, rng); sample != nil {
		t.Errorf("drawSample(nil, ...) = %v, want nil", sample)
	}
}
