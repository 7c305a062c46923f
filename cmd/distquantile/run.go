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

	"github.com/spf13/cobra"

	distquantile "github.com/quantilecluster/distquantile"
	"github.com/quantilecluster/distquantile/cluster"
	"github.com/quantilecluster/distquantile/transport"
)

type runOptions struct {
	ranks        int
	totalSize    int64
	quantile     float64
	distribution string
	seed         int64
	threshold    int64
}

func newRunCommand() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute a single quantile over a synthetic distributed dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, o)
		},
	}

	cmd.Flags().IntVar(&o.ranks, "ranks", 4, "number of simulated processes")
	cmd.Flags().Int64Var(&o.totalSize, "size", 1_000_000, "total number of elements across all ranks")
	cmd.Flags().Float64VarP(&o.quantile, "quantile", "q", 0.5, "quantile to compute, in [0,1]")
	cmd.Flags().StringVar(&o.distribution, "dist", "uniform", "data distribution: uniform, duplicate, or skewed")
	cmd.Flags().Int64Var(&o.seed, "seed", 1, "synthetic data generator seed")
	cmd.Flags().Int64Var(&o.threshold, "threshold", 0, "override the gather-all switchover point (0 = default)")

	return cmd
}

func runRun(cmd *cobra.Command, o runOptions) error {
	dist, err := parseDistribution(o.distribution)
	if err != nil {
		return err
	}

	shards := synthesize(dist, o.totalSize, o.ranks, o.seed)

	var opts []distquantile.Option
	if o.threshold > 0 {
		opts = append(opts, distquantile.WithThreshold(o.threshold))
	}

	var result float64
	err = cluster.Run(cmd.Context(), o.ranks, func(ctx context.Context, comm transport.Communicator) error {
		v, err := distquantile.Quantile(ctx, comm, shards[comm.Rank()], o.totalSize, o.quantile, opts...)
		if comm.Rank() == transport.RootRank {
			result = v
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("compute quantile: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "quantile(q=%.4f, N=%d, ranks=%d, dist=%s) = %v\n",
		o.quantile, o.totalSize, o.ranks, dist, result)
	return nil
}
