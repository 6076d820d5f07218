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

	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/KLOSYX/quant-compass/simulation"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// StrategyPoint is a frontier point re-evaluated through the DCA simulator:
// Risk becomes the realized annualized volatility of the simulated unit
// index, OriginalRisk keeps the analytic value, and MaxDrawdown is the
// realized flow-normalized drawdown.
type StrategyPoint struct {
	Risk         float64      `json:"risk"`
	Return       float64      `json:"return"`
	Weights      WeightVector `json:"weights"`
	MaxDrawdown  float64      `json:"max_drawdown"`
	OriginalRisk float64      `json:"original_risk"`
}

// StrategyFrontier replays every frontier point as a monthly DCA over the
// fee-adjusted NAV table. Points are independent, so they run concurrently;
// the first failure cancels the rest.
func StrategyFrontier(ctx context.Context, front *Frontier, nav *dataframe.DataFrame, fees simulation.FeeSchedule, riskFreeRate *float64, monthlyInvestment float64) ([]StrategyPoint, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "frontier.StrategyFrontier")
	defer span.End()

	points := make([]StrategyPoint, len(front.Points))
	g, ctx := errgroup.WithContext(ctx)

	for idx := range front.Points {
		idx := idx
		p := front.Points[idx]
		g.Go(func() error {
			sim := &simulation.Simulator{
				NAV:          nav,
				Weights:      p.Weights,
				Fees:         fees,
				RiskFreeRate: riskFreeRate,
			}
			res, err := sim.RunDCA(ctx, monthlyInvestment, nil, 0)
			if err != nil {
				return err
			}
			points[idx] = StrategyPoint{
				Risk:         res.RealizedVolatility,
				Return:       p.Return,
				Weights:      p.Weights,
				MaxDrawdown:  res.MaxDrawdownNAV,
				OriginalRisk: p.Risk,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
