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
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

type BacktestRequest struct {
	FundCodes         []string           `json:"fund_codes"`
	Weights           map[string]float64 `json:"weights"`
	FundFees          map[string]float64 `json:"fund_fees"`
	BuyFee            map[string]float64 `json:"buy_fee"`
	SellFee           map[string]float64 `json:"sell_fee"`
	StartDate         string             `json:"start_date"`
	EndDate           string             `json:"end_date"`
	MonthlyInvestment float64            `json:"monthly_investment"`
	RiskFreeRate      *float64           `json:"risk_free_rate"`

	// InitialHoldings seeds the actual run, in value terms; idle cash rides
	// as the risk-free leg
	InitialHoldings map[string]float64 `json:"initial_holdings"`
	CurrentCash     float64            `json:"current_cash"`

	strategyParams
}

type BacktestResponse struct {
	LumpSum        *simulation.Result `json:"lump_sum"`
	DCA            *simulation.Result `json:"dca"`
	KellyDCA       *simulation.Result `json:"kelly_dca"`
	ActualKellyDCA *simulation.Result `json:"actual_kelly_dca,omitempty"`
	Warnings       []string           `json:"warnings"`
}

// BacktestStrategies replays the three investing disciplines over the
// requested window. The runs share nothing but the read-only NAV snapshot,
// so they execute concurrently.
func BacktestStrategies(manager *data.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.BacktestStrategies")
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		var req BacktestRequest
		if err := c.BodyParser(&req); err != nil {
			return detailError(fiber.StatusBadRequest, "请求体格式错误。")
		}
		if len(req.FundCodes) == 0 && req.RiskFreeRate == nil {
			return detailError(fiber.StatusBadRequest, "请至少选择一只基金或添加无风险资产。")
		}
		if req.MonthlyInvestment <= 0 {
			return detailError(fiber.StatusBadRequest, "定投金额需要大于 0。")
		}
		if !validWeights(req.Weights) {
			return detailError(fiber.StatusBadRequest, "目标权重必须非负且合计为 1。")
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

		sim := &simulation.Simulator{
			NAV:          simulation.FeeAdjustedNAV(snapshot.NAV, req.FundFees, data.RiskFreeCode),
			Weights:      req.Weights,
			Fees:         simulation.FeeSchedule{Annual: req.FundFees, Buy: req.BuyFee, Sell: req.SellFee},
			RiskFreeRate: req.RiskFreeRate,
		}

		resp := BacktestResponse{Warnings: snapshot.Warnings}
		if resp.Warnings == nil {
			resp.Warnings = []string{}
		}

		totalLumpSum := req.MonthlyInvestment * float64(snapshot.NAV.Len())
		seeded := len(req.InitialHoldings) > 0 || req.CurrentCash > 0

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := sim.RunLumpSum(gctx, totalLumpSum, req.InitialHoldings, req.CurrentCash)
			resp.LumpSum = res
			return err
		})
		g.Go(func() error {
			res, err := sim.RunDCA(gctx, req.MonthlyInvestment, req.InitialHoldings, req.CurrentCash)
			resp.DCA = res
			return err
		})
		g.Go(func() error {
			// the ideal run starts from a clean slate: seed capital enters
			// as cash and the strategy allocates it by its own rule
			seedCash := req.CurrentCash
			for _, v := range req.InitialHoldings {
				seedCash += v
			}
			res, err := sim.RunKellyDCA(gctx, req.MonthlyInvestment, nil, seedCash, params)
			resp.KellyDCA = res
			return err
		})
		if seeded {
			g.Go(func() error {
				res, err := sim.RunKellyDCA(gctx, req.MonthlyInvestment, req.InitialHoldings, req.CurrentCash, params)
				resp.ActualKellyDCA = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return mapEngineError(err)
		}

		return c.JSON(resp)
	}
}
