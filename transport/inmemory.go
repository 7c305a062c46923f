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

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// ErrAborted is returned by every rank's in-flight or future collective
// call once any rank has aborted the communicator, simulating a
// collective-transport failure (see spec error kind 2): no partial
// result is ever handed back, every rank observes the same failure.
var ErrAborted = errors.New("transport: communicator aborted")

// barrier is a reusable, sense-reversing rendezvous point: every one of
// size participants calls arrive with its own contribution; the last
// arrival runs combine once over every contribution and that single
// result (or error) is handed back to all size callers. It is the
// synchronization primitive every Communicator method in this file is
// built from — one barrier episode per collective call, exactly as the
// spec requires ("every collective ... is a synchronization point; all P
// processes must reach the same collective in the same order").
type barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	size       int
	arrived    int
	generation uint64
	payloads   []any
	result     any
	err        error
	aborted    bool
	abortErr   error
}

func newBarrier(size int) *barrier {
	b := &barrier{size: size}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// abort marks the barrier permanently failed; every blocked and future
// caller receives err. Abort calls it for explicit rank-reported
// failures; rendezvous makes the same state change inline when it sees
// a canceled context.
func (b *barrier) abort(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.aborted {
		return
	}
	b.aborted = true
	b.abortErr = err
	b.cond.Broadcast()
}

func rendezvous[T any, R any](ctx context.Context, b *barrier, rank int, value T, combine func([]T) (R, error)) (R, error) {
	var zero R

	b.mu.Lock()
	if b.aborted {
		err := b.abortErr
		b.mu.Unlock()
		return zero, err
	}
	if ctx.Err() != nil {
		b.aborted = true
		b.abortErr = fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
		err := b.abortErr
		b.cond.Broadcast()
		b.mu.Unlock()
		return zero, err
	}

	if b.payloads == nil {
		b.payloads = make([]any, b.size)
	}
	b.payloads[rank] = value
	b.arrived++
	myGen := b.generation

	if b.arrived == b.size {
		vals := make([]T, b.size)
		for i, p := range b.payloads {
			vals[i] = p.(T)
		}
		res, err := combine(vals)
		b.result = res
		b.err = err
		b.arrived = 0
		b.payloads = nil
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		if err != nil {
			return zero, err
		}
		return res, nil
	}

	for b.generation == myGen && !b.aborted {
		b.cond.Wait()
	}
	if b.aborted {
		err := b.abortErr
		b.mu.Unlock()
		return zero, err
	}
	res, _ := b.result.(R)
	err := b.err
	b.mu.Unlock()
	return res, err
}

// inMemoryComm is a Communicator backed by in-process barriers: every
// rank is expected to run on its own goroutine, as the cluster package
// arranges.
type inMemoryComm struct {
	rank int
	size int

	sumI64    *barrier
	sumI64Vec *barrier
	gatherI32 *barrier
	gatherVF  *barrier
	bcastF64  *barrier
}

// NewInMemory builds size Communicators, one per simulated rank, all
// wired to the same set of barriers so that a collective call on one
// only returns once every rank has made the matching call. Callers
// invoke each Communicator from a distinct goroutine, one per rank.
func NewInMemory(size int) []Communicator {
	if size <= 0 {
		panic("transport: NewInMemory requires size > 0")
	}
	sumI64 := newBarrier(size)
	sumI64Vec := newBarrier(size)
	gatherI32 := newBarrier(size)
	gatherVF := newBarrier(size)
	bcastF64 := newBarrier(size)

	comms := make([]Communicator, size)
	for r := 0; r < size; r++ {
		comms[r] = &inMemoryComm{
			rank:      r,
			size:      size,
			sumI64:    sumI64,
			sumI64Vec: sumI64Vec,
			gatherI32: gatherI32,
			gatherVF:  gatherVF,
			bcastF64:  bcastF64,
		}
	}
	return comms
}

// Abort fails every future and currently-blocked collective on comm's
// communicator (and therefore every peer rank's, since they share the
// same barriers) with an error wrapping ErrAborted and carrying err's
// message, simulating a transport failure.
func Abort(comm Communicator, err error) {
	c := comm.(*inMemoryComm)
	err = fmt.Errorf("%w: %v", ErrAborted, err)
	c.sumI64.abort(err)
	c.sumI64Vec.abort(err)
	c.gatherI32.abort(err)
	c.gatherVF.abort(err)
	c.bcastF64.abort(err)
}

func (c *inMemoryComm) Rank() int { return c.rank }
func (c *inMemoryComm) Size() int { return c.size }

func (c *inMemoryComm) AllReduceSumInt64(ctx context.Context, v int64) (int64, error) {
	return rendezvous(ctx, c.sumI64, c.rank, v, func(vals []int64) (int64, error) {
		return lo.Sum(vals), nil
	})
}

func (c *inMemoryComm) AllReduceSumInt64Vec(ctx context.Context, v []int64) ([]int64, error) {
	return rendezvous(ctx, c.sumI64Vec, c.rank, v, func(vecs [][]int64) ([]int64, error) {
		if len(vecs) == 0 {
			return nil, nil
		}
		width := len(vecs[0])
		for _, vec := range vecs {
			if len(vec) != width {
				return nil, fmt.Errorf("transport: AllReduceSumInt64Vec width mismatch: %d vs %d", len(vec), width)
			}
		}
		totals := make([]int64, width)
		for _, vec := range vecs {
			for i, x := range vec {
				totals[i] += x
			}
		}
		return totals, nil
	})
}

func (c *inMemoryComm) GatherInt32(ctx context.Context, v int32) ([]int32, error) {
	result, err := rendezvous(ctx, c.gatherI32, c.rank, v, func(vals []int32) ([]int32, error) {
		return append([]int32(nil), vals...), nil
	})
	if err != nil {
		return nil, err
	}
	if c.rank != RootRank {
		return nil, nil
	}
	return result, nil
}

func (c *inMemoryComm) GatherVFloat64(ctx context.Context, v []float64) ([]float64, error) {
	result, err := rendezvous(ctx, c.gatherVF, c.rank, v, func(vals [][]float64) ([]float64, error) {
		total := 0
		for _, vec := range vals {
			total += len(vec)
		}
		flat := make([]float64, 0, total)
		for _, vec := range vals {
			flat = append(flat, vec...)
		}
		return flat, nil
	})
	if err != nil {
		return nil, err
	}
	if c.rank != RootRank {
		return nil, nil
	}
	return result, nil
}

func (c *inMemoryComm) BroadcastFloat64(ctx context.Context, v float64) (float64, error) {
	return rendezvous(ctx, c.bcastF64, c.rank, v, func(vals []float64) (float64, error) {
		return vals[RootRank], nil
	})
}
