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

import "math/rand"

// newRand builds the per-rank sampling generator from a seed. Isolated
// behind this one call so tests can fix the seed policy to drive
// pivot-degeneracy and retry logic deterministically.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// defaultThreshold is the N below which Quantile always uses the
// gather-all Local Selector, regardless of recursion depth.
const defaultThreshold = 10_000_000

// defaultMaxPivotRetries is how many consecutive degenerate pivots at
// the same recursion level are tolerated before falling back
// unconditionally to the Local Selector.
const defaultMaxPivotRetries = 3

// config holds the tunables every Option mutates. The zero value is
// never used directly; newConfig seeds it with the documented defaults.
type config struct {
	threshold       int64
	maxPivotRetries int
	seed            int64
	haveSeed        bool
}

func newConfig() *config {
	return &config{
		threshold:       defaultThreshold,
		maxPivotRetries: defaultMaxPivotRetries,
	}
}

// Option configures a single Quantile call. Options are applied in the
// order given; a later option overrides an earlier one on the same
// field.
type Option func(*config)

// WithThreshold overrides the gather-all switchover point (THRESHOLD in
// the design notes). Exposed for tests that need to exercise both the
// small-case and recursive paths without allocating 10^7 elements.
func WithThreshold(n int64) Option {
	return func(c *config) { c.threshold = n }
}

// WithMaxPivotRetries overrides how many consecutive degenerate pivots
// at one recursion level are tolerated before the unconditional
// fallback to the Local Selector.
func WithMaxPivotRetries(n int) Option {
	return func(c *config) { c.maxPivotRetries = n }
}

// WithSeed fixes the per-rank sampling seed base (each rank still derives
// its own generator by combining this with its rank, so ranks never
// draw identical sample streams). Exposed so tests can force a
// pathological sample and drive the pivot-retry fallback deterministically.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
		c.haveSeed = true
	}
}
