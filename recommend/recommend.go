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

// Package recommend turns the value-averaging decision rule into a concrete
// next-period action plan. It runs the same Decide function the backtest
// simulator replays, evaluated once against the investor's real holdings,
// so the advice is always consistent with what the backtest would have done
// in the same situation.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/KLOSYX/quant-compass/simulation"
	"go.opentelemetry.io/otel"
)

var ErrNoBenchmark = errors.New("no benchmark history to evaluate")

// holdAmountTol treats net flows below a cent as no-ops
const holdAmountTol = 0.01

// Risk-free advice actions: deposit surplus cash, withdraw cash to fund
// purchases, or leave it alone.
const (
	RiskFreeDeposit  = "存入"
	RiskFreeWithdraw = "取出"
	RiskFreeHold     = "持有"
)

// Input is one recommendation evaluation. Holdings are in value terms at
// current prices; a holding under the RiskFree code counts toward available
// cash alongside Cash itself and the fresh Budget.
type Input struct {
	Snapshot *data.Snapshot
	Weights  map[string]float64
	Holdings map[string]float64
	Cash     float64
	Budget   float64
	Fees     simulation.FeeSchedule
	Params   simulation.Parameters
}

// Advice is one row of the action plan
type Advice struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Action         string  `json:"action"`
	Amount         float64 `json:"amount"`
	CurrentHolding float64 `json:"current_holding"`
	IdealHolding   float64 `json:"ideal_holding"`
	TargetHolding  float64 `json:"target_holding"`
	Gap            float64 `json:"gap"`
	Reason         string  `json:"reason"`
}

// Result is the full recommendation
type Result struct {
	MarketSignal                 simulation.Signal `json:"market_signal"`
	CurrentPrice                 float64           `json:"current_price"`
	MAPrice                      float64           `json:"ma_price"`
	Bias                         float64           `json:"bias"`
	TargetEquityRatio            float64           `json:"target_equity_ratio"`
	TargetEquityValue            float64           `json:"target_equity_value"`
	CurrentEquityValue           float64           `json:"current_equity_value"`
	Gap                          float64           `json:"gap"`
	RecommendedMonthlyInvestment float64           `json:"recommended_monthly_investment"`
	MonthlyBudget                float64           `json:"monthly_budget"`
	FundAdvice                   []Advice          `json:"fund_advice"`
	Warnings                     []string          `json:"warnings,omitempty"`
}

// Evaluate produces the next-period action plan.
//
// The recommended investment is the gross cash payment: buy fees come out of
// the recommended amount, so the plan can never ask for more cash than the
// investor has (current cash + risk-free holding + this period's budget).
func Evaluate(ctx context.Context, input Input) (*Result, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "recommend.Evaluate")
	defer span.End()

	nav := input.Snapshot.NAV
	if nav.Len() == 0 {
		return nil, ErrNoBenchmark
	}

	weights := equityWeights(input.Weights)
	levels, ma := simulation.BenchmarkSeries(nav, tradeWeights(nav.ColNames, input.Weights), input.Params.MAWindow)
	last := nav.Len() - 1

	equity := 0.0
	for code := range weights {
		equity += input.Holdings[code]
	}
	riskFreePool := input.Cash + input.Holdings[data.RiskFreeCode]
	wealth := equity + riskFreePool + input.Budget
	availableCash := riskFreePool + input.Budget

	currentPrice := levels[last]
	maPrice := ma[last]
	b := currentPrice / math.Max(maPrice, 1e-12)
	if maPrice <= 0 {
		b = 1.0
	}

	d := simulation.Decide(simulation.PeriodContext{
		Bias:             b,
		Wealth:           wealth,
		Equity:           equity,
		BaseContribution: input.Budget,
	}, input.Params)

	res := &Result{
		MarketSignal:       d.Signal,
		CurrentPrice:       currentPrice,
		MAPrice:            maPrice,
		Bias:               b,
		TargetEquityRatio:  d.TargetRatio,
		TargetEquityValue:  d.TargetEquity,
		CurrentEquityValue: equity,
		Gap:                d.Gap,
		MonthlyBudget:      input.Budget,
		Warnings:           input.Snapshot.Warnings,
	}

	buys := make(map[string]float64)
	sells := make(map[string]float64)
	netProceeds := 0.0

	switch d.Action {
	case simulation.ActionBuy:
		total := math.Min(d.Amount, availableCash)
		res.RecommendedMonthlyInvestment = total
		buys = splitBuys(weights, input.Holdings, d.TargetEquity, total)
	case simulation.ActionSell:
		total := math.Min(-d.Gap, equity)
		sells = splitSells(weights, input.Holdings, d.TargetEquity, total)
		for code, amount := range sells {
			netProceeds += amount * (1 - input.Fees.Sell[code])
		}
	}

	grossBuys := 0.0
	for _, amount := range buys {
		grossBuys += amount
	}

	for _, code := range fundCodes(nav.ColNames) {
		advice := Advice{
			Code:           code,
			Name:           input.Snapshot.Names[code],
			CurrentHolding: input.Holdings[code],
			IdealHolding:   d.TargetEquity * weights[code],
		}
		advice.Gap = advice.IdealHolding - advice.CurrentHolding

		switch {
		case buys[code] > holdAmountTol:
			amount := buys[code]
			fee := input.Fees.Buy[code]
			advice.Action = string(simulation.ActionBuy)
			advice.Amount = amount
			advice.TargetHolding = advice.CurrentHolding + amount/(1+fee)
			advice.Reason = fmt.Sprintf("市场%s，建议申购 ¥%.2f（申购费率 %.2f%%，预计确认 ¥%.2f）。",
				signalText(d.Signal), amount, fee*100, amount/(1+fee))
		case sells[code] > holdAmountTol:
			amount := sells[code]
			fee := input.Fees.Sell[code]
			advice.Action = string(simulation.ActionSell)
			advice.Amount = amount
			advice.TargetHolding = math.Max(advice.CurrentHolding-amount, 0)
			advice.Reason = fmt.Sprintf("持仓超出目标配置，建议赎回 ¥%.2f（赎回费率 %.2f%%，预计到账 ¥%.2f）。",
				amount, fee*100, amount*(1-fee))
		default:
			advice.Action = string(simulation.ActionHold)
			advice.TargetHolding = advice.CurrentHolding
			advice.Reason = "当前持仓接近目标配置，建议持有。"
		}

		res.FundAdvice = append(res.FundAdvice, advice)
	}

	// the risk-free row reports the period's net cash movement, with sell
	// proceeds counted net of fees and exactly once. TargetHolding is the
	// post-trade projection, not the ideal: when the buy cap binds the pool
	// keeps whatever the capped trade could not deploy.
	netFlow := input.Budget - grossBuys + netProceeds
	rfAdvice := Advice{
		Code:           data.RiskFreeCode,
		Name:           data.RiskFreeName,
		CurrentHolding: riskFreePool,
		IdealHolding:   wealth - d.TargetEquity,
		TargetHolding:  riskFreePool + netFlow,
	}
	rfAdvice.Gap = rfAdvice.IdealHolding - rfAdvice.CurrentHolding
	switch {
	case netFlow > holdAmountTol:
		rfAdvice.Action = RiskFreeDeposit
		rfAdvice.Amount = netFlow
		rfAdvice.Reason = fmt.Sprintf("将本期结余 ¥%.2f 存入无风险资产。", netFlow)
	case netFlow < -holdAmountTol:
		rfAdvice.Action = RiskFreeWithdraw
		rfAdvice.Amount = -netFlow
		rfAdvice.Reason = fmt.Sprintf("从无风险资产取出 ¥%.2f 用于本期申购。", -netFlow)
	default:
		rfAdvice.Action = RiskFreeHold
		rfAdvice.Reason = "无需调整无风险资产。"
	}
	res.FundAdvice = append(res.FundAdvice, rfAdvice)

	return res, nil
}

func signalText(s simulation.Signal) string {
	switch s {
	case simulation.Undervalued:
		return "低估"
	case simulation.Overvalued:
		return "高估"
	default:
		return "中性"
	}
}

// fundCodes filters the risk-free column out of the universe
func fundCodes(colNames []string) []string {
	codes := make([]string, 0, len(colNames))
	for _, code := range colNames {
		if code != data.RiskFreeCode {
			codes = append(codes, code)
		}
	}
	return codes
}

func tradeWeights(colNames []string, weights map[string]float64) map[string]float64 {
	w := make(map[string]float64, len(weights))
	for _, code := range colNames {
		if v, ok := weights[code]; ok && v > 0 {
			w[code] = v
		}
	}
	return w
}

// equityWeights renormalizes the target weights over the funds alone; the
// decision rule steers the overall equity/cash split
func equityWeights(weights map[string]float64) map[string]float64 {
	w := make(map[string]float64)
	total := 0.0
	for code, v := range weights {
		if code == data.RiskFreeCode || v <= 0 {
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

// splitBuys distributes the gross recommended amount in proportion to
// target weight times per-asset shortfall, falling back to the weights when
// nothing is short of target
func splitBuys(weights, holdings map[string]float64, targetEquity, total float64) map[string]float64 {
	buys := make(map[string]float64)
	if total <= 0 || len(weights) == 0 {
		return buys
	}

	scores := make(map[string]float64, len(weights))
	scoreSum := 0.0
	for code, w := range weights {
		shortfall := targetEquity*w - holdings[code]
		if shortfall > 0 {
			scores[code] = w * shortfall
			scoreSum += w * shortfall
		}
	}
	if scoreSum <= 0 {
		scores = make(map[string]float64, len(weights))
		for code, w := range weights {
			scores[code] = w
			scoreSum += w
		}
	}

	for code, score := range scores {
		buys[code] = total * score / scoreSum
	}
	return buys
}

// splitSells distributes the sell amount in proportion to each asset's
// excess over its own target value, clipped to the current holding
func splitSells(weights, holdings map[string]float64, targetEquity, total float64) map[string]float64 {
	sells := make(map[string]float64)
	if total <= 0 {
		return sells
	}

	scores := make(map[string]float64)
	scoreSum := 0.0
	for code := range weights {
		excess := holdings[code] - targetEquity*weights[code]
		if excess > 0 {
			scores[code] = excess
			scoreSum += excess
		}
	}
	if scoreSum <= 0 {
		for code := range weights {
			if holdings[code] > 0 {
				scores[code] = holdings[code]
				scoreSum += holdings[code]
			}
		}
	}
	if scoreSum <= 0 {
		return sells
	}

	for code, score := range scores {
		amount := total * score / scoreSum
		if amount > holdings[code] {
			amount = holdings[code]
		}
		sells[code] = amount
	}
	return sells
}
