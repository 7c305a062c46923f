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

// Package localselect provides single-process, in-memory order-statistic
// selection over float64 slices. It plays two roles in the distributed
// selector: the small-path "gather everything to one rank" fallback
// (NthElement on the fully materialized global buffer), and the sample
// selection performed by the pivoter (NthElement twice on the gathered
// sample buffer).
//
// The algorithm is an introselect variant: vectorized-style three-way
// partitioning around a sampled pivot, with a depth limit that falls back
// to heapsort so that pathological inputs still terminate in O(n log n).
package localselect

import "github.com/quantilecluster/distquantile/internal/vecops"

const (
	insertionThreshold = 64
)

// NthElement rearranges data in place so that data[k] holds the value
// that would occupy index k if data were sorted, every element before k
// is <= data[k], and every element after is >= data[k]. It returns
// data[k]. If k is out of range, data is left unchanged and 0 is returned.
func NthElement(data []float64, k int) float64 {
	n := len(data)
	if k < 0 || k >= n {
		return 0
	}

	depthLimit := 0
	for tmp := n; tmp > 0; tmp >>= 1 {
		depthLimit++
	}
	depthLimit *= 2

	nthElementImpl(data, k, depthLimit)
	return data[k]
}

// Sort sorts data in place using the same introselect strategy as
// NthElement, so the pivoter's two selection passes and the local
// selector's gather-all path share one tested code path.
func Sort(data []float64) {
	n := len(data)
	if n <= 1 {
		return
	}
	depthLimit := 0
	for tmp := n; tmp > 0; tmp >>= 1 {
		depthLimit++
	}
	depthLimit *= 2
	sortImpl(data, depthLimit)
}

func nthElementImpl(data []float64, k, depthLimit int) {
	n := len(data)
	if n <= 1 {
		return
	}

	if depthLimit == 0 || n <= insertionThreshold {
		sortImpl(data, 0)
		return
	}

	pivot := pivotSampled(data)
	lt, gt := partition3Way(data, pivot)

	if k < lt {
		nthElementImpl(data[:lt], k, depthLimit-1)
	} else if k >= gt {
		nthElementImpl(data[gt:], k-gt, depthLimit-1)
	}
	// lt <= k < gt: k already sits in the equal-to-pivot run.
}

func sortImpl(data []float64, depthLimit int) {
	n := len(data)
	if n <= 1 {
		return
	}
	if n <= insertionThreshold {
		insertionSort(data)
		return
	}
	if depthLimit == 0 {
		heapSort(data)
		return
	}

	pivot := pivotSampled(data)
	lt, gt := partition3Way(data, pivot)

	if lt > 0 {
		sortImpl(data[:lt], depthLimit-1)
	}
	if gt < n {
		sortImpl(data[gt:], depthLimit-1)
	}
}

func insertionSort(data []float64) {
	for i := 1; i < len(data); i++ {
		key := data[i]
		j := i - 1
		for j >= 0 && data[j] > key {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = key
	}
}

func heapSort(data []float64) {
	n := len(data)
	if n <= 1 {
		return
	}
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(data, i, n)
	}
	for i := n - 1; i > 0; i-- {
		data[0], data[i] = data[i], data[0]
		siftDown(data, 0, i)
	}
}

func siftDown(data []float64, i, n int) {
	for {
		largest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && data[left] > data[largest] {
			largest = left
		}
		if right < n && data[right] > data[largest] {
			largest = right
		}
		if largest == i {
			return
		}
		data[i], data[largest] = data[largest], data[i]
		i = largest
	}
}

// pivotMedianOf3 picks the median of the first, middle, and last elements.
func pivotMedianOf3(data []float64) float64 {
	n := len(data)
	if n <= 2 {
		return data[0]
	}
	a, b, c := data[0], data[n/2], data[n-1]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
		if a > b {
			b = a
		}
	}
	return b
}

// pivotSampled picks a pivot from five regularly spaced samples, which
// tracks the true median better than median-of-3 once n grows past a
// handful of elements.
func pivotSampled(data []float64) float64 {
	n := len(data)
	if n <= 8 {
		return pivotMedianOf3(data)
	}
	samples := []float64{data[0], data[n/4], data[n/2], data[3*n/4], data[n-1]}
	insertionSort(samples)
	return samples[2]
}

// partition3Way partitions data around pivot so that on return
// data[:lt] < pivot, data[lt:gt] == pivot, data[gt:] > pivot.
//
// For arrays large enough to fill several lane-groups it classifies
// whole groups at once via vecops masks (a group that is entirely below,
// entirely at-or-above, or entirely equal to the pivot is moved with one
// decision instead of one per element), only dropping to an
// element-at-a-time Dutch-national-flag loop for a lane-group with a
// mixed mask or for the ragged tail once fewer than a lane-group remains.
// This mirrors a vectorized quickselect partition even though the
// vecops backend here is scalar underneath: the lane-group bookkeeping
// is the part that would port directly onto a real SIMD backend.
func partition3Way(data []float64, pivot float64) (lt, gt int) {
	n := len(data)
	lanes := vecops.MaxLanes[float64]()
	if n < lanes*4 {
		return scalarPartition3Way(data, pivot)
	}

	pivotVec := vecops.Set(pivot, lanes)
	lt, gt = 0, n
	i := 0

	for i+lanes <= gt {
		if gt-lanes < i+lanes {
			break // Too close to the gt boundary; finish with the scalar loop.
		}

		v := vecops.LoadFull(data[i : i+lanes])
		maskLess := vecops.LessThan(v, pivotVec)
		maskGreater := vecops.GreaterThan(v, pivotVec)

		mixed := true
		switch {
		case maskLess.AllTrue() && lt == i:
			lt += lanes
			i += lanes
			mixed = false
		case maskLess.AllTrue() && lt+lanes <= i:
			vLt := vecops.LoadFull(append([]float64(nil), data[lt:lt+lanes]...))
			vecops.StoreFull(v, data[lt:lt+lanes])
			vecops.StoreFull(vLt, data[i:i+lanes])
			lt += lanes
			i += lanes
			mixed = false
		case maskGreater.AllTrue():
			gt -= lanes
			vGt := vecops.LoadFull(append([]float64(nil), data[gt:gt+lanes]...))
			vecops.StoreFull(v, data[gt:gt+lanes])
			vecops.StoreFull(vGt, data[i:i+lanes])
			mixed = false
		case maskLess.AllFalse() && maskGreater.AllFalse():
			// Neither strictly less nor strictly greater: every lane equals pivot.
			i += lanes
			mixed = false
		}
		if !mixed {
			continue
		}

		// Mixed lane-group (or maskLess.AllTrue() overlapping the lt
		// region): resolve element-at-a-time, then resume lane-grouping.
		end := min(i+lanes, gt)
		for i < end {
			if data[i] < pivot {
				data[lt], data[i] = data[i], data[lt]
				lt++
				i++
			} else if data[i] > pivot {
				gt--
				data[i], data[gt] = data[gt], data[i]
				if gt < end {
					end = gt
				}
			} else {
				i++
			}
		}
	}

	for i < gt {
		if data[i] < pivot {
			data[lt], data[i] = data[i], data[lt]
			lt++
			i++
		} else if data[i] > pivot {
			gt--
			data[i], data[gt] = data[gt], data[i]
		} else {
			i++
		}
	}

	return lt, gt
}

// scalarPartition3Way is the plain Dutch-national-flag partition, used
// directly for arrays too small to benefit from lane-group bookkeeping.
func scalarPartition3Way(data []float64, pivot float64) (lt, gt int) {
	lt = 0
	gt = len(data)
	i := 0
	for i < gt {
		if data[i] < pivot {
			data[lt], data[i] = data[i], data[lt]
			lt++
			i++
		} else if data[i] > pivot {
			gt--
			data[i], data[gt] = data[gt], data[i]
		} else {
			i++
		}
	}
	return lt, gt
}
