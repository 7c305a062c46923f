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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	distquantile "github.com/quantilecluster/distquantile"
	"github.com/quantilecluster/distquantile/cluster"
	"github.com/quantilecluster/distquantile/transport"
)

type benchOptions struct {
	runOptions
	repeat int
}

func newBenchCommand() *cobra.Command {
	var o benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Report wall-clock time and recursion depth/retry stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, o)
		},
	}

	cmd.Flags().IntVar(&o.ranks, "ranks", 4, "number of simulated processes")
	cmd.Flags().Int64Var(&o.totalSize, "size", 1_000_000, "total number of elements across all ranks")
	cmd.Flags().Float64VarP(&o.quantile, "quantile", "q", 0.5, "quantile to compute, in [0,1]")
	cmd.Flags().StringVar(&o.distribution, "dist", "uniform", "data distribution: uniform, duplicate, or skewed")
	cmd.Flags().Int64Var(&o.seed, "seed", 1, "synthetic data generator seed")
	cmd.Flags().Int64Var(&o.threshold, "threshold", 0, "override the gather-all switchover point (0 = default)")
	cmd.Flags().IntVar(&o.repeat, "repeat", 1, "number of timed repetitions")

	return cmd
}

func runBench(cmd *cobra.Command, o benchOptions) error {
	dist, err := parseDistribution(o.distribution)
	if err != nil {
		return err
	}
	if o.repeat < 1 {
		return fmt.Errorf("repeat must be >= 1")
	}

	var opts []distquantile.Option
	if o.threshold > 0 {
		opts = append(opts, distquantile.WithThreshold(o.threshold))
	}

	for i := 0; i < o.repeat; i++ {
		shards := synthesize(dist, o.totalSize, o.ranks, o.seed+int64(i))

		var result float64
		var stats distquantile.Stats
		start := time.Now()
		err := cluster.Run(cmd.Context(), o.ranks, func(ctx context.Context, comm transport.Communicator) error {
			v, s, err := distquantile.QuantileStats(ctx, comm, shards[comm.Rank()], o.totalSize, o.quantile, opts...)
			if comm.Rank() == transport.RootRank {
				result = v
				stats = s
			}
			return err
		})
		elapsed := time.Since(start)
		if err != nil {
			return fmt.Errorf("compute quantile: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(),
			"run %d/%d: result=%v elapsed=%s depth=%d retries=%d fellBackToLocalSelector=%t\n",
			i+1, o.repeat, result, elapsed, stats.Depth, stats.Retries, stats.FellBackToLocalSelector)
	}
	return nil
}
