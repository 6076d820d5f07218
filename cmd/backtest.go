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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/simulation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	backtestCodes     []string
	backtestWeights   []string
	backtestStart     string
	backtestEnd       string
	backtestMonthly   float64
	backtestRiskFree  float64
	backtestHasRate   bool
	backtestMAWindow  int
	backtestSellThr   float64
	backtestMinWeight float64
	backtestMaxWeight float64
	backtestMaxBuy    float64
)

func init() {
	backtestCmd.Flags().StringSliceVar(&backtestCodes, "codes", nil, "Fund codes to include")
	backtestCmd.Flags().StringSliceVar(&backtestWeights, "weights", nil, "Target weights as code=weight pairs")
	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "Start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "End date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&backtestMonthly, "monthly", 1000, "Monthly contribution")
	backtestCmd.Flags().Float64Var(&backtestRiskFree, "risk-free-rate", 0, "Annual risk-free rate")
	backtestCmd.Flags().IntVar(&backtestMAWindow, "ma-window", 12, "Moving average window, months")
	backtestCmd.Flags().Float64Var(&backtestSellThr, "sell-threshold", 0.05, "Sell threshold")
	backtestCmd.Flags().Float64Var(&backtestMinWeight, "min-weight", 0.3, "Minimum equity weight")
	backtestCmd.Flags().Float64Var(&backtestMaxWeight, "max-weight", 0.8, "Maximum equity weight")
	backtestCmd.Flags().Float64Var(&backtestMaxBuy, "max-buy-multiplier", 3.0, "Max buy multiplier")

	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the three strategy backtests from the terminal",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()

		backtestHasRate = cmd.Flags().Changed("risk-free-rate")

		weights, err := parseWeightPairs(backtestWeights)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse weights")
		}

		manager, err := newDataManager(cmd)
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize data manager")
		}

		begin, end, err := parseRange(backtestStart, backtestEnd)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse date range")
		}

		var rate *float64
		if backtestHasRate {
			rate = &backtestRiskFree
		}

		ctx := cmd.Context()
		snapshot, err := manager.GetSnapshot(ctx, backtestCodes, begin, end, rate)
		if err != nil {
			log.Fatal().Err(err).Msg("could not load NAV snapshot")
		}

		sim := &simulation.Simulator{
			NAV:          simulation.FeeAdjustedNAV(snapshot.NAV, nil, data.RiskFreeCode),
			Weights:      weights,
			RiskFreeRate: rate,
		}
		params := simulation.Parameters{
			MaxBuyMultiplier: backtestMaxBuy,
			SellThreshold:    backtestSellThr,
			MinWeight:        backtestMinWeight,
			MaxWeight:        backtestMaxWeight,
			MAWindow:         backtestMAWindow,
		}

		total := backtestMonthly * float64(snapshot.NAV.Len())
		lump, err := sim.RunLumpSum(ctx, total, nil, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("lump sum run failed")
		}
		dca, err := sim.RunDCA(ctx, backtestMonthly, nil, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("dca run failed")
		}
		kelly, err := sim.RunKellyDCA(ctx, backtestMonthly, nil, 0, params)
		if err != nil {
			log.Fatal().Err(err).Msg("kelly dca run failed")
		}

		fmt.Printf("Backtest %s — %s (%d months)\n\n",
			snapshot.NAV.Start().Format("2006-01-02"),
			snapshot.NAV.End().Format("2006-01-02"),
			snapshot.NAV.Len())
		printResult("Lump Sum", lump)
		printResult("DCA", dca)
		printResult("Kelly DCA", kelly)
	},
}

func printResult(name string, res *simulation.Result) {
	fmt.Printf("%-10s invested=%.2f final=%.2f annualized=%.2f%% maxDD(value)=%.2f%% maxDD(nav)=%.2f%% fees=%.2f\n",
		name, res.TotalInvested, res.FinalValue, res.AnnualizedReturn*100,
		res.MaxDrawdownValue*100, res.MaxDrawdownNAV*100, res.FeesPaid)
}

func parseWeightPairs(pairs []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed weight %q, expected code=weight", pair)
		}
		w, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed weight %q: %w", pair, err)
		}
		weights[parts[0]] = w
	}

	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, simulation.ErrInvalidWeights
		}
		total += w
	}
	if len(weights) > 0 && math.Abs(total-1) > 1e-6 {
		return nil, simulation.ErrInvalidWeights
	}
	return weights, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	var begin, until time.Time
	var err error
	if start != "" {
		if begin, err = time.Parse("2006-01-02", start); err != nil {
			return begin, until, err
		}
	}
	if end != "" {
		if until, err = time.Parse("2006-01-02", end); err != nil {
			return begin, until, err
		}
	}
	return begin, until, nil
}
