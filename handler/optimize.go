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
	"errors"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/frontier"
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/KLOSYX/quant-compass/stats"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
)

type DCAOptimizeRequest struct {
	FundCodes         []string           `json:"fund_codes"`
	FundFees          map[string]float64 `json:"fund_fees"`
	StartDate         string             `json:"start_date"`
	EndDate           string             `json:"end_date"`
	MonthlyInvestment float64            `json:"monthly_investment"`
	RiskFreeRate      *float64           `json:"risk_free_rate"`
}

type DCAOptimizeResponse struct {
	Weights        frontier.WeightVector `json:"weights"`
	Risk           float64               `json:"risk"`
	Return         float64               `json:"return"`
	MaxDrawdown    float64               `json:"max_drawdown"`
	Backtest       *simulation.Result    `json:"backtest"`
	BacktestPeriod backtestPeriod        `json:"backtest_period"`
}

// OptimizeDCA searches for the allocation that maximizes the final value of
// a monthly DCA over the requested window
func OptimizeDCA(manager *data.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.OptimizeDCA")
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		var req DCAOptimizeRequest
		if err := c.BodyParser(&req); err != nil {
			return detailError(fiber.StatusBadRequest, "请求体格式错误。")
		}
		if len(req.FundCodes) == 0 && req.RiskFreeRate == nil {
			return detailError(fiber.StatusBadRequest, "请至少选择一只基金或添加无风险资产。")
		}
		if req.MonthlyInvestment <= 0 {
			return detailError(fiber.StatusBadRequest, "定投金额需要大于 0。")
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

		nav := simulation.FeeAdjustedNAV(snapshot.NAV, req.FundFees, data.RiskFreeCode)
		optimum, err := frontier.OptimizeDCA(ctx, moments, nav, simulation.FeeSchedule{Annual: req.FundFees}, req.RiskFreeRate, req.MonthlyInvestment)
		if err != nil {
			if errors.Is(err, frontier.ErrOptimizeFailed) {
				log.Warn().Stack().Err(err).Msg("DCA optimization did not converge")
				return detailError(fiber.StatusInternalServerError, "定投优化未能收敛，请调整参数或稍后重试。")
			}
			return mapEngineError(err)
		}

		return c.JSON(DCAOptimizeResponse{
			Weights:     optimum.Weights,
			Risk:        optimum.Risk,
			Return:      optimum.Return,
			MaxDrawdown: optimum.MaxDrawdown,
			Backtest:    optimum.Backtest,
			BacktestPeriod: backtestPeriod{
				StartDate: snapshot.NAV.Start().Format("2006-01-02"),
				EndDate:   snapshot.NAV.End().Format("2006-01-02"),
			},
		})
	}
}
