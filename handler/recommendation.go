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
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/KLOSYX/quant-compass/recommend"
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
)

type RecommendationRequest struct {
	FundCodes       []string           `json:"fund_codes"`
	FundFees        map[string]float64 `json:"fund_fees"`
	Weights         map[string]float64 `json:"weights"`
	CurrentHoldings map[string]float64 `json:"current_holdings"`
	CurrentCash     float64            `json:"current_cash"`
	MonthlyBudget   float64            `json:"monthly_budget"`
	BuyFee          map[string]float64 `json:"buy_fee"`
	SellFee         map[string]float64 `json:"sell_fee"`
	StartDate       string             `json:"start_date"`
	EndDate         string             `json:"end_date"`
	RiskFreeRate    *float64           `json:"risk_free_rate"`

	strategyParams
}

// CurrentRecommendation produces the next-period action plan from the
// investor's real holdings, cash, and budget
func CurrentRecommendation(manager *data.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.CurrentRecommendation")
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		var req RecommendationRequest
		if err := c.BodyParser(&req); err != nil {
			return detailError(fiber.StatusBadRequest, "请求体格式错误。")
		}
		if len(req.FundCodes) == 0 {
			return detailError(fiber.StatusBadRequest, "请至少选择一只基金。")
		}
		if req.MonthlyBudget < 0 || req.CurrentCash < 0 {
			return detailError(fiber.StatusBadRequest, "预算与现金不能为负数。")
		}

		begin, err := parseDate(req.StartDate)
		if err != nil {
			return detailError(fiber.StatusBadRequest, "开始日期格式错误。")
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			return detailError(fiber.StatusBadRequest, "结束日期格式错误。")
		}

		params := req.parameters()
		if err := params.Validate(); err != nil {
			return mapEngineError(err)
		}

		snapshot, err := manager.GetSnapshot(ctx, req.FundCodes, begin, end, req.RiskFreeRate)
		if err != nil {
			return mapEngineError(err)
		}

		result, err := recommend.Evaluate(ctx, recommend.Input{
			Snapshot: snapshot,
			Weights:  req.Weights,
			Holdings: req.CurrentHoldings,
			Cash:     req.CurrentCash,
			Budget:   req.MonthlyBudget,
			Fees:     simulation.FeeSchedule{Annual: req.FundFees, Buy: req.BuyFee, Sell: req.SellFee},
			Params:   params,
		})
		if err != nil {
			return mapEngineError(err)
		}

		return c.JSON(result)
	}
}
