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

package main

import (
	"fmt"
	"math/rand"
)

// distribution picks how synthesize fills the synthetic dataset.
type distribution string

const (
	distUniform   distribution = "uniform"
	distDuplicate distribution = "duplicate"
	distSkewed    distribution = "skewed"
)

func parseDistribution(s string) (distribution, error) {
	switch distribution(s) {
	case distUniform, distDuplicate, distSkewed:
		return distribution(s), nil
	default:
		return "", fmt.Errorf("unknown distribution %q (want uniform, duplicate, or skewed)", s)
	}
}

// synthesize builds totalSize values under dist and splits them evenly
// (as evenly as integer division allows) across ranks shards.
func synthesize(dist distribution, totalSize int64, ranks int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	shards := make([][]float64, ranks)
	base := totalSize / int64(ranks)
	remainder := totalSize % int64(ranks)

	switch dist {
	case distDuplicate:
		for r := range shards {
			n := base
			if int64(r) < remainder {
				n++
			}
			local := make([]float64, n)
			for i := range local {
				local[i] = 42.0
			}
			shards[r] = local
		}
	case distSkewed:
		// All of the entropy lives on rank 0; every other rank is empty,
		// matching the spec's skewed end-to-end scenario.
		local := make([]float64, totalSize)
		for i := range local {
			local[i] = rng.Float64() * 1_000_000
		}
		shards[0] = local
		for r := 1; r < ranks; r++ {
			shards[r] = nil
		}
	default: // distUniform
		for r := range shards {
			n := base
			if int64(r) < remainder {
				n++
			}
			local := make([]float64, n)
			for i := range local {
				local[i] = rng.Float64() * 1_000_000
			}
			shards[r] = local
		}
	}
	return shards
}
