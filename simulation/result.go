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

package simulation

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// monthKey is the calendar-month key the history and attribution tables use
const monthKey = "2006-01"

// Result is the outcome of one strategy run.
//
// MaxDrawdownValue is measured on total account market value and is
// sensitive to contribution timing; MaxDrawdownNAV is measured on the
// flow-normalized unit index and compares cleanly against buy-and-hold.
// Attribution partitions each period's value into per-asset legs, with cash
// reported under the risk-free code.
type Result struct {
	TotalInvested      float64 `json:"total_invested"`
	FinalValue         float64 `json:"final_value"`
	AnnualizedReturn   float64 `json:"annualized_return"`
	RealizedVolatility float64 `json:"realized_volatility"`
	MaxDrawdownValue   float64 `json:"max_drawdown_value"`
	MaxDrawdownNAV     float64 `json:"max_drawdown_nav"`
	FeesPaid           float64 `json:"fees_paid"`

	History     map[string]float64            `json:"history"`
	Attribution map[string]map[string]float64 `json:"attribution"`
}

// realizedVolatility annualizes the standard deviation of the unit index's
// monthly returns
func realizedVolatility(unitSeries []float64) float64 {
	if len(unitSeries) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(unitSeries)-1)
	for idx := 1; idx < len(unitSeries); idx++ {
		if unitSeries[idx-1] > 0 {
			rets = append(rets, unitSeries[idx]/unitSeries[idx-1]-1)
		}
	}
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil) * math.Sqrt(periodsPerYear)
}
