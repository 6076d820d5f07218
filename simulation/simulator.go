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

// Package simulation replays investing disciplines month by month over a
// NAV table. Each run owns its account: there is no state shared between
// strategies or between concurrent runs, so ideal/actual pairs can simply
// be launched in parallel.
package simulation

import (
	"context"
	"time"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"go.opentelemetry.io/otel"
)

// Simulator holds the read-only inputs every strategy run shares: a clean
// month-end NAV table (usually fee-adjusted through FeeAdjustedNAV), the
// target weights, trade fees, and an optional annual risk-free rate for
// interest on idle cash.
type Simulator struct {
	NAV          *dataframe.DataFrame
	Weights      map[string]float64
	Fees         FeeSchedule
	RiskFreeRate *float64
}

func (s *Simulator) monthlyRate() float64 {
	if s.RiskFreeRate == nil {
		return 0
	}
	return data.MonthlyRate(*s.RiskFreeRate)
}

// tradeWeights returns the target weights restricted to the columns the NAV
// table actually carries, unknown codes dropped
func (s *Simulator) tradeWeights() map[string]float64 {
	w := make(map[string]float64, len(s.Weights))
	for _, code := range s.NAV.ColNames {
		if v, ok := s.Weights[code]; ok && v > 0 {
			w[code] = v
		}
	}
	return w
}

// equityWeights renormalizes the target weights over the non-cash assets,
// since the value-averaging rule steers the equity/cash split itself
func (s *Simulator) equityWeights() map[string]float64 {
	w := make(map[string]float64)
	total := 0.0
	for code, v := range s.tradeWeights() {
		if code == data.RiskFreeCode {
			continue
		}
		w[code] = v
		total += v
	}
	if total > 0 {
		for code := range w {
			w[code] /= total
		}
	}
	return w
}

// run drives the per-period loop shared by all strategies. step is called
// once per period after interest accrual, with the period's prices; it
// returns the external contribution it deposited so the unit index can
// account for the flow.
func (s *Simulator) run(acct *Account, step func(rowIdx int, prices map[string]float64) float64) *Result {
	idx := &unitIndex{}
	history := make(map[string]float64, s.NAV.Len())
	attribution := make(map[string]map[string]float64, s.NAV.Len())
	values := make([]float64, 0, s.NAV.Len())

	rate := s.monthlyRate()
	for rowIdx := 0; rowIdx < s.NAV.Len(); rowIdx++ {
		date := s.NAV.Dates[rowIdx]
		prices := s.NAV.Row(rowIdx)

		acct.AccrueInterest(date, rate)

		preValue := acct.MarketValue(prices)
		contribution := step(rowIdx, prices)
		idx.flow(preValue, contribution)

		value := acct.MarketValue(prices)
		values = append(values, value)
		idx.mark(value)

		key := date.Format(monthKey)
		history[key] = value
		attribution[key] = s.attribution(acct, prices)
	}

	return &Result{
		TotalInvested:      acct.Contributed,
		FinalValue:         lastOf(values),
		AnnualizedReturn:   idx.annualized(s.NAV.Len()),
		RealizedVolatility: realizedVolatility(idx.series),
		MaxDrawdownValue:   MaxDrawdown(values),
		MaxDrawdownNAV:     MaxDrawdown(idx.series),
		FeesPaid:           acct.FeesPaid,
		History:            history,
		Attribution:        attribution,
	}
}

// attribution partitions the account value into per-asset legs; cash rides
// under the risk-free code on top of any risk-free units held outright
func (s *Simulator) attribution(acct *Account, prices map[string]float64) map[string]float64 {
	row := make(map[string]float64, len(s.NAV.ColNames)+1)
	for _, code := range s.NAV.ColNames {
		row[code] = acct.Units[code] * prices[code]
	}
	row[data.RiskFreeCode] += acct.Cash
	return row
}

// RunLumpSum invests all capital at the first period's prices split by the
// target weights, then holds. Seed holdings convert to units at the first
// price; seeded risk-free value rides as cash.
func (s *Simulator) RunLumpSum(ctx context.Context, totalInvestment float64, holdings map[string]float64, cash float64) (*Result, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "simulation.RunLumpSum")
	defer span.End()

	if s.NAV.Len() == 0 {
		return nil, ErrNoPeriods
	}

	weights := s.tradeWeights()
	acct := NewAccount(holdings, cash, s.NAV.Row(0), data.RiskFreeCode)

	res := s.run(acct, func(rowIdx int, prices map[string]float64) float64 {
		if rowIdx != 0 {
			return 0
		}
		date := s.NAV.Dates[rowIdx]
		acct.Deposit(date, totalInvestment)
		for code, w := range weights {
			acct.Buy(date, code, totalInvestment*w, prices[code], s.Fees.buyFee(code))
		}
		return totalInvestment
	})
	return res, nil
}

// RunDCA deposits and invests the fixed contribution every period, split by
// the target weights; no sells ever occur.
func (s *Simulator) RunDCA(ctx context.Context, monthlyInvestment float64, holdings map[string]float64, cash float64) (*Result, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "simulation.RunDCA")
	defer span.End()

	if s.NAV.Len() == 0 {
		return nil, ErrNoPeriods
	}

	weights := s.tradeWeights()
	acct := NewAccount(holdings, cash, s.NAV.Row(0), data.RiskFreeCode)

	res := s.run(acct, func(rowIdx int, prices map[string]float64) float64 {
		date := s.NAV.Dates[rowIdx]
		acct.Deposit(date, monthlyInvestment)
		for code, w := range weights {
			acct.Buy(date, code, monthlyInvestment*w, prices[code], s.Fees.buyFee(code))
		}
		return monthlyInvestment
	})
	return res, nil
}

// RunKellyDCA replays the value-averaging discipline: each period the
// benchmark bias sets a target equity fraction of wealth, and the account
// buys into a positive gap (capped by the max-buy multiplier and by cash) or
// sells an overweight beyond the sell threshold back toward target.
func (s *Simulator) RunKellyDCA(ctx context.Context, monthlyInvestment float64, holdings map[string]float64, cash float64, params Parameters) (*Result, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "simulation.RunKellyDCA")
	defer span.End()

	if s.NAV.Len() == 0 {
		return nil, ErrNoPeriods
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	weights := s.equityWeights()
	levels, ma := BenchmarkSeries(s.NAV, s.tradeWeights(), params.MAWindow)
	acct := NewAccount(holdings, cash, s.NAV.Row(0), data.RiskFreeCode)

	res := s.run(acct, func(rowIdx int, prices map[string]float64) float64 {
		date := s.NAV.Dates[rowIdx]
		acct.Deposit(date, monthlyInvestment)

		equity := acct.EquityValue(prices)
		d := Decide(PeriodContext{
			Bias:             bias(levels[rowIdx], ma[rowIdx]),
			Wealth:           equity + acct.Cash,
			Equity:           equity,
			BaseContribution: monthlyInvestment,
		}, params)

		switch d.Action {
		case ActionBuy:
			outlay := d.Amount
			if outlay > acct.Cash {
				outlay = acct.Cash
			}
			s.distributeBuys(acct, date, prices, weights, d.TargetEquity, outlay)
		case ActionSell:
			amount := d.Amount
			if amount > equity {
				amount = equity
			}
			s.distributeSells(acct, date, prices, weights, d.TargetEquity, amount)
		}
		return monthlyInvestment
	})
	return res, nil
}

// distributeBuys splits a gross outlay across assets in proportion to target
// weight times per-asset shortfall; with no shortfalls the split falls back
// to the weights alone.
func (s *Simulator) distributeBuys(acct *Account, date time.Time, prices map[string]float64, weights map[string]float64, targetEquity, outlay float64) {
	if outlay <= 0 || len(weights) == 0 {
		return
	}

	scores := make(map[string]float64, len(weights))
	total := 0.0
	for code, w := range weights {
		shortfall := targetEquity*w - acct.Units[code]*prices[code]
		if shortfall > 0 {
			scores[code] = w * shortfall
			total += w * shortfall
		}
	}
	if total <= 0 {
		scores = make(map[string]float64, len(weights))
		for code, w := range weights {
			scores[code] = w
			total += w
		}
	}

	for code, score := range scores {
		acct.Buy(date, code, outlay*score/total, prices[code], s.Fees.buyFee(code))
	}
}

// distributeSells trims assets in proportion to how far each sits above its
// own target value, clipped per asset to the current holding
func (s *Simulator) distributeSells(acct *Account, date time.Time, prices map[string]float64, weights map[string]float64, targetEquity, amount float64) {
	if amount <= 0 {
		return
	}

	scores := make(map[string]float64)
	total := 0.0
	for code := range acct.Units {
		held := acct.Units[code] * prices[code]
		excess := held - targetEquity*weights[code]
		if excess > 0 {
			scores[code] = excess
			total += excess
		}
	}
	if total <= 0 {
		for code := range acct.Units {
			held := acct.Units[code] * prices[code]
			if held > 0 {
				scores[code] = held
				total += held
			}
		}
	}
	if total <= 0 {
		return
	}

	for code, score := range scores {
		acct.Sell(date, code, amount*score/total, prices[code], s.Fees.sellFee(code))
	}
}

func lastOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
