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

package cluster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/quantilecluster/distquantile/transport"
)

func TestRunAllRanksSucceed(t *testing.T) {
	const size = 5
	var mu sync.Mutex
	seen := make(map[int]bool)

	err := Run(context.Background(), size, func(ctx context.Context, comm transport.Communicator) error {
		mu.Lock()
		seen[comm.Rank()] = true
		mu.Unlock()
		_, err := comm.AllReduceSumInt64(ctx, int64(comm.Rank()))
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(seen) != size {
		t.Errorf("saw %d distinct ranks, want %d", len(seen), size)
	}
}

func TestRunOneRankErrorsAbortsAll(t *testing.T) {
	const size = 4
	wantErr := errors.New("rank 1 lost its connection")

	err := Run(context.Background(), size, func(ctx context.Context, comm transport.Communicator) error {
		if comm.Rank() == 1 {
			return wantErr
		}
		// Every other rank blocks on a collective that rank 1 never joins;
		// Run must still return promptly once rank 1 fails.
		_, err := comm.AllReduceSumInt64(ctx, int64(comm.Rank()))
		return err
	})
	if err == nil {
		t.Fatal("Run should have returned an error")
	}
}

func TestRunRejectsNonPositiveSize(t *testing.T) {
	if err := Run(context.Background(), 0, func(context.Context, transport.Communicator) error { return nil }); err == nil {
		t.Error("Run(size=0) should error")
	}
	if err := Run(context.Background(), -1, func(context.Context, transport.Communicator) error { return nil }); err == nil {
		t.Error("Run(size=-1) should error")
	}
}
