// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
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

package cmd

import (
	"fmt"
	"time"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/recommend"
	"github.com/KLOSYX/quant-compass/simulation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	recommendCodes    []string
	recommendWeights  []string
	recommendHoldings []string
	recommendCash     float64
	recommendBudget   float64
)

func init() {
	recommendCmd.Flags().StringSliceVar(&recommendCodes, "codes", nil, "Fund codes to include")
	recommendCmd.Flags().StringSliceVar(&recommendWeights, "weights", nil, "Target weights as code=weight pairs")
	recommendCmd.Flags().StringSliceVar(&recommendHoldings, "holdings", nil, "Current holdings as code=value pairs")
	recommendCmd.Flags().Float64Var(&recommendCash, "cash", 0, "Current idle cash")
	recommendCmd.Flags().Float64Var(&recommendBudget, "budget", 1000, "Monthly budget")

	rootCmd.AddCommand(recommendCmd)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Print a one-shot next-period recommendation",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()

		weights, err := parseWeightPairs(recommendWeights)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse weights")
		}
		holdings, err := parseWeightPairs(recommendHoldings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse holdings")
		}

		manager, err := newDataManager(cmd)
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize data manager")
		}

		ctx := cmd.Context()
		snapshot, err := manager.GetSnapshot(ctx, recommendCodes, time.Time{}, time.Time{}, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load NAV snapshot")
		}

		result, err := recommend.Evaluate(ctx, recommend.Input{
			Snapshot: snapshot,
			Weights:  weights,
			Holdings: holdings,
			Cash:     recommendCash,
			Budget:   recommendBudget,
			Params:   simulation.DefaultParameters(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("recommendation failed")
		}

		fmt.Printf("signal=%s bias=%.4f targetRatio=%.2f gap=%.2f recommended=%.2f\n\n",
			result.MarketSignal, result.Bias, result.TargetEquityRatio, result.Gap,
			result.RecommendedMonthlyInvestment)
		for _, advice := range result.FundAdvice {
			fmt.Printf("%-10s %-6s %10.2f  %s\n", advice.Code, advice.Action, advice.Amount, advice.Reason)
		}
	},
}
