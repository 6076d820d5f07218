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

// The valuation band the bias maps down from. A benchmark 20% above its
// moving average pins the equity target at MinWeight; 20% below pins it at
// MaxWeight; in between the target interpolates linearly.
const (
	lowBias  = 0.8
	highBias = 1.2
)

// Signal classifies the market valuation relative to the moving average
type Signal string

const (
	Undervalued Signal = "undervalued"
	Neutral     Signal = "neutral"
	Overvalued  Signal = "overvalued"
)

// Action is the trade direction a decision resolves to
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// PeriodContext is the market and account state one decision sees
type PeriodContext struct {
	// Bias is benchmark level / its moving average
	Bias float64

	// Wealth is total projected wealth: equity + cash (+ fresh budget)
	Wealth float64

	// Equity is the current market value of the non-cash holdings
	Equity float64

	// BaseContribution is the per-period budget the max-buy multiplier
	// scales from
	BaseContribution float64
}

// Decision is the outcome of one evaluation of the value-averaging rule.
// Amount is the desired gross trade size before availability caps: the
// caller still clips buys to available cash and sells to inventory.
type Decision struct {
	Signal       Signal
	TargetRatio  float64
	TargetEquity float64
	Gap          float64
	Action       Action
	Amount       float64
}

// Decide evaluates the shared value-averaging rule. The historical replay
// and the single-period recommendation both call it, so a recommendation is
// always consistent with what the backtest would have done in the same spot.
//
// Sequencing when both a sell-threshold breach and a weight-bound breach
// apply: the sell-threshold gate is evaluated first, then the trade is sized
// against the bound-clamped target.
func Decide(pctx PeriodContext, params Parameters) Decision {
	d := Decision{Signal: Neutral, Action: ActionHold}

	bias := pctx.Bias
	switch {
	case bias >= 1+params.SellThreshold:
		d.Signal = Overvalued
	case bias <= 1-params.SellThreshold:
		d.Signal = Undervalued
	}

	// linear map of bias from [lowBias, highBias] onto [MaxWeight, MinWeight]
	switch {
	case bias <= lowBias:
		d.TargetRatio = params.MaxWeight
	case bias >= highBias:
		d.TargetRatio = params.MinWeight
	default:
		frac := (bias - lowBias) / (highBias - lowBias)
		d.TargetRatio = params.MaxWeight + frac*(params.MinWeight-params.MaxWeight)
	}

	d.TargetEquity = pctx.Wealth * d.TargetRatio
	d.Gap = d.TargetEquity - pctx.Equity

	switch {
	case d.Gap > 0:
		d.Action = ActionBuy
		d.Amount = d.Gap
		if cap := params.MaxBuyMultiplier * pctx.BaseContribution; d.Amount > cap {
			d.Amount = cap
		}
	case d.Gap < 0 && pctx.Wealth > 0 && -d.Gap/pctx.Wealth > params.SellThreshold:
		d.Action = ActionSell
		d.Amount = -d.Gap
	}

	return d
}
