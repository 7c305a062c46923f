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

// Package vecops provides a portable, scalar, lane-oriented vector
// abstraction restricted to the two element types the distributed
// quantile selector needs: float64 payloads and int64 counters.
//
// It is a deliberately narrowed descendant of a general-purpose SIMD
// wrapper: no architecture-specific backend is compiled in, only the
// always-available scalar path. The Vec/Mask shapes and the
// CompressStore operation are kept because the Three-Way Partitioner is
// naturally expressed as a masked compress-store, not because any lane
// width is ever exploited.
package vecops

// Lanes is the constraint for element types vecops operates on.
type Lanes interface {
	~float64 | ~int64
}

// Vec is a portable vector handle. In the scalar backend used here it
// simply wraps a slice; the type exists so call sites read the same way
// they would against a real SIMD backend.
type Vec[T Lanes] struct {
	data []T
}

// Of wraps data as a Vec without copying.
func Of[T Lanes](data []T) Vec[T] {
	return Vec[T]{data: data}
}

// NumLanes returns the number of elements in the vector.
func (v Vec[T]) NumLanes() int {
	return len(v.data)
}

// Data returns the underlying slice. Intended for tests and glue code,
// not performance-critical call sites.
func (v Vec[T]) Data() []T {
	return v.data
}

// Mask is the result of a lanewise comparison.
type Mask[T Lanes] struct {
	bits []bool
}

// NumLanes returns the number of lanes in the mask.
func (m Mask[T]) NumLanes() int {
	return len(m.bits)
}

// AllTrue reports whether every lane is active.
func (m Mask[T]) AllTrue() bool {
	for _, b := range m.bits {
		if !b {
			return false
		}
	}
	return true
}

// AllFalse reports whether no lane is active.
func (m Mask[T]) AllFalse() bool {
	for _, b := range m.bits {
		if b {
			return false
		}
	}
	return true
}

// CountTrue returns the number of active lanes.
func (m Mask[T]) CountTrue() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}
