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

package handler

import (
	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/frontier"
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/KLOSYX/quant-compass/stats"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
)

type AnalyzeRequest struct {
	FundCodes    []string           `json:"fund_codes"`
	FundFees     map[string]float64 `json:"fund_fees"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	RiskFreeRate *float64           `json:"risk_free_rate"`

	// IncludeStrategyFrontier re-evaluates every frontier point through the
	// DCA simulator; MonthlyInvestment sizes those runs
	IncludeStrategyFrontier bool    `json:"include_strategy_frontier"`
	MonthlyInvestment       float64 `json:"monthly_investment"`
}

type backtestPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type AnalyzeResponse struct {
	EfficientFrontier []frontier.Point         `json:"efficient_frontier"`
	MaxSharpe         *frontier.Point          `json:"max_sharpe,omitempty"`
	StrategyFrontier  []frontier.StrategyPoint `json:"strategy_frontier,omitempty"`
	FundNames         map[string]string        `json:"fund_names"`
	BacktestPeriod    backtestPeriod           `json:"backtest_period"`
	Warnings          []string                 `json:"warnings"`
}

// Analyze builds the efficient frontier for the requested universe
func Analyze(manager *data.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.Analyze")
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		var req AnalyzeRequest
		if err := c.BodyParser(&req); err != nil {
			return detailError(fiber.StatusBadRequest, "请求体格式错误。")
		}
		if len(req.FundCodes) == 0 && req.RiskFreeRate == nil {
			return detailError(fiber.StatusBadRequest, "请至少选择一只基金或添加无风险资产。")
		}

		begin, err := parseDate(req.StartDate)
		if err != nil {
			return detailError(fiber.StatusBadRequest, "开始日期格式错误。")
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			return detailError(fiber.StatusBadRequest, "结束日期格式错误。")
		}

		snapshot, err := manager.GetSnapshot(ctx, req.FundCodes, begin, end, req.RiskFreeRate)
		if err != nil {
			return mapEngineError(err)
		}

		moments, err := stats.Compute(snapshot, req.FundFees, req.RiskFreeRate)
		if err != nil {
			return mapEngineError(err)
		}

		front, err := frontier.Compute(moments, req.RiskFreeRate)
		if err != nil {
			log.Warn().Stack().Err(err).Msg("frontier computation failed")
			return mapEngineError(err)
		}

		resp := AnalyzeResponse{
			EfficientFrontier: front.Points,
			MaxSharpe:         front.MaxSharpe,
			FundNames:         snapshot.Names,
			BacktestPeriod: backtestPeriod{
				StartDate: snapshot.NAV.Start().Format("2006-01-02"),
				EndDate:   snapshot.NAV.End().Format("2006-01-02"),
			},
			Warnings: append(snapshot.Warnings, front.Warnings...),
		}
		if resp.Warnings == nil {
			resp.Warnings = []string{}
		}

		if req.IncludeStrategyFrontier {
			monthly := req.MonthlyInvestment
			if monthly <= 0 {
				monthly = 1000
			}
			nav := simulation.FeeAdjustedNAV(snapshot.NAV, req.FundFees, data.RiskFreeCode)
			points, err := frontier.StrategyFrontier(ctx, front, nav, simulation.FeeSchedule{Annual: req.FundFees}, req.RiskFreeRate, monthly)
			if err != nil {
				return mapEngineError(err)
			}
			resp.StrategyFrontier = points
		}

		return c.JSON(resp)
	}
}
