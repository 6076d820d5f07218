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
	"github.com/KLOSYX/quant-compass/dataframe"
)

const periodsPerYear = 12.0

// FeeSchedule carries the per-asset fee fractions. Annual management fees
// drag the NAV path analytically; buy and sell fees apply per trade.
type FeeSchedule struct {
	Annual map[string]float64 `json:"annual"`
	Buy    map[string]float64 `json:"buy"`
	Sell   map[string]float64 `json:"sell"`
}

func (f FeeSchedule) buyFee(code string) float64 {
	return f.Buy[code]
}

func (f FeeSchedule) sellFee(code string) float64 {
	return f.Sell[code]
}

// FeeAdjustedNAV rebuilds every NAV path net of its annual management fee:
// monthly returns are computed, dragged by fee/12, and compounded back into
// a unit-based index. The first period's return is zero, so every column
// starts at 1.0. The input table is not modified; the risk-free column is
// never dragged.
func FeeAdjustedNAV(nav *dataframe.DataFrame, annualFees map[string]float64, riskFreeCode string) *dataframe.DataFrame {
	n := nav.Len()
	adjusted := nav.Copy()
	if n == 0 {
		return adjusted
	}
	for colIdx, name := range adjusted.ColNames {
		fee := 0.0
		if name != riskFreeCode {
			fee = annualFees[name] / periodsPerYear
		}
		col := adjusted.Vals[colIdx]
		level := 1.0
		prev := col[0]
		col[0] = level
		for rowIdx := 1; rowIdx < n; rowIdx++ {
			r := col[rowIdx]/prev - 1.0 - fee
			prev = col[rowIdx]
			level *= 1.0 + r
			col[rowIdx] = level
		}
	}
	return adjusted
}
