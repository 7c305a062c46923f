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

// Package cluster simulates a P-process message-passing cluster in a
// single OS process: one persistent goroutine per rank, all wired to the
// same set of in-memory collectives. It is the harness both the test
// suite and the CLI use to drive the distributed selector without a real
// MPI deployment.
//
// Unlike a plain per-call goroutine fan-out, Run ties every rank's
// goroutine to a shared errgroup.Group: a single rank's error (an
// analogue of one participant losing its network connection) cancels
// every other rank's context and aborts every in-flight collective,
// rather than leaving the survivors blocked on a barrier forever.
package cluster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/quantilecluster/distquantile/transport"
)

// RankFunc is the per-rank body Run invokes once per simulated process.
// comm is this rank's view of the shared collective transport; ctx is
// canceled the moment any rank's RankFunc returns a non-nil error.
type RankFunc func(ctx context.Context, comm transport.Communicator) error

// Run builds a size-process in-memory cluster and runs fn once per rank
// on its own goroutine, blocking until every rank returns. If any rank
// returns a non-nil error, Run aborts the shared transport (unblocking
// every rank still waiting inside a collective), cancels every other
// rank's context, and returns that error (the first one observed).
func Run(ctx context.Context, size int, fn RankFunc) error {
	if size <= 0 {
		return fmt.Errorf("cluster: size must be > 0, got %d", size)
	}

	comms := transport.NewInMemory(size)
	g, gctx := errgroup.WithContext(ctx)

	for r := 0; r < size; r++ {
		comm := comms[r]
		g.Go(func() error {
			if err := fn(gctx, comm); err != nil {
				transport.Abort(comm, err)
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
