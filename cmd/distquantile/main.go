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

// Command distquantile demonstrates the distributed quantile selector
// over a synthetic dataset split across a simulated in-memory cluster.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "distquantile",
		Short: "Compute order statistics over a simulated distributed dataset",
		Long: `distquantile drives the sample-pivot / three-way-partition quantile
selector against a synthetic dataset split across an in-memory simulated
cluster of P ranks, to demonstrate and benchmark the algorithm without a
real message-passing deployment.`,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newBenchCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
