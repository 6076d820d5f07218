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

package frontier

import (
	"context"
	"errors"
	"math"

	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/KLOSYX/quant-compass/stats"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

var ErrOptimizeFailed = errors.New("the allocation search did not converge")

// DCAOptimum is the allocation that maximizes the final value of a monthly
// DCA over the sample period. Risk and Return are the analytic annualized
// moments of the winning weights; Backtest is the DCA run that scored them.
type DCAOptimum struct {
	Weights     WeightVector       `json:"weights"`
	Risk        float64            `json:"risk"`
	Return      float64            `json:"return"`
	MaxDrawdown float64            `json:"max_drawdown"`
	Backtest    *simulation.Result `json:"backtest"`
}

// OptimizeDCA searches the capped weight simplex for the allocation whose
// monthly DCA ends with the highest final value. The objective is a full
// simulator run per candidate, so the search is derivative-free: Nelder-Mead
// from the uniform allocation, with every candidate projected back onto the
// feasible simplex before scoring.
func OptimizeDCA(ctx context.Context, moments *stats.Moments, nav *dataframe.DataFrame, fees simulation.FeeSchedule, riskFreeRate *float64, monthlyInvestment float64) (*DCAOptimum, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "frontier.OptimizeDCA")
	defer span.End()

	n := len(moments.Codes)
	if n == 0 {
		return nil, ErrNoAssets
	}

	score := func(x []float64) float64 {
		weights := projectWeights(moments.Codes, x)
		if weights == nil {
			return math.Inf(1)
		}
		sim := &simulation.Simulator{
			NAV:          nav,
			Weights:      weights,
			Fees:         fees,
			RiskFreeRate: riskFreeRate,
		}
		res, err := sim.RunDCA(ctx, monthlyInvestment, nil, 0)
		if err != nil {
			return math.Inf(1)
		}
		return -res.FinalValue
	}

	init := make([]float64, n)
	for idx := range init {
		init[idx] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(optimize.Problem{Func: score}, init, nil, &optimize.NelderMead{})
	if err != nil || result == nil || math.IsInf(result.F, 1) {
		log.Warn().Stack().Err(err).Msg("DCA allocation search failed to converge")
		return nil, ErrOptimizeFailed
	}

	weights := projectWeights(moments.Codes, result.X)
	if weights == nil {
		return nil, ErrOptimizeFailed
	}

	sim := &simulation.Simulator{
		NAV:          nav,
		Weights:      weights,
		Fees:         fees,
		RiskFreeRate: riskFreeRate,
	}
	backtest, err := sim.RunDCA(ctx, monthlyInvestment, nil, 0)
	if err != nil {
		return nil, err
	}

	annualReturn := 0.0
	for idx, code := range moments.Codes {
		annualReturn += weights[code] * moments.AnnualMean[idx]
	}

	return &DCAOptimum{
		Weights:     weights,
		Risk:        portfolioRisk(moments.AnnualCov, moments.Codes, weights),
		Return:      annualReturn,
		MaxDrawdown: backtest.MaxDrawdownNAV,
		Backtest:    backtest,
	}, nil
}

// projectWeights maps an unconstrained candidate onto the feasible simplex:
// clip to [0, MaxSingleWeight], renormalize, and drop dust weights the same
// way the frontier does. A candidate with no positive mass projects to nil.
func projectWeights(codes []string, x []float64) WeightVector {
	clipped := make([]float64, len(x))
	for idx, v := range x {
		clipped[idx] = math.Min(math.Max(v, 0), MaxSingleWeight)
	}
	total := floats.Sum(clipped)
	if total <= 0 {
		return nil
	}
	floats.Scale(1/total, clipped)
	return cleanWeights(codes, clipped)
}
