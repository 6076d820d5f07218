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

package handler_test

import (
	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BacktestStrategies", func() {
	var app *fiber.App

	BeforeEach(func() {
		app = newApp()
	})

	It("replays the three disciplines over the window", func() {
		status, body := postJSON(app, "/api/backtest_strategies", `{
			"fund_codes": ["000001", "000002"],
			"weights": {"000001": 0.5, "000002": 0.5},
			"monthly_investment": 1000,
			"risk_free_rate": 0.02
		}`)
		Expect(status).To(Equal(fiber.StatusOK))

		for _, key := range []string{"lump_sum", "dca", "kelly_dca"} {
			result := body[key].(map[string]interface{})
			Expect(result["final_value"].(float64)).To(BeNumerically(">", 0))
			Expect(result["history"]).ToNot(BeEmpty())
		}
		Expect(body).ToNot(HaveKey("actual_kelly_dca"))

		dca := body["dca"].(map[string]interface{})
		Expect(dca["total_invested"].(float64)).To(BeNumerically("==", 24000))
	})

	It("adds the actual run when holdings seed the account", func() {
		status, body := postJSON(app, "/api/backtest_strategies", `{
			"fund_codes": ["000001", "000002"],
			"weights": {"000001": 0.5, "000002": 0.5},
			"monthly_investment": 1000,
			"initial_holdings": {"000001": 5000},
			"current_cash": 2000
		}`)
		Expect(status).To(Equal(fiber.StatusOK))

		actual := body["actual_kelly_dca"].(map[string]interface{})
		ideal := body["kelly_dca"].(map[string]interface{})
		Expect(actual["final_value"].(float64)).To(BeNumerically(">", 0))
		// both runs absorb the same seed capital
		Expect(actual["total_invested"]).To(Equal(ideal["total_invested"]))
	})

	It("rejects a non-positive contribution", func() {
		status, body := postJSON(app, "/api/backtest_strategies", `{
			"fund_codes": ["000001"],
			"weights": {"000001": 1.0},
			"monthly_investment": 0
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("定投金额需要大于 0。"))
	})

	It("rejects weights that do not sum to one", func() {
		status, body := postJSON(app, "/api/backtest_strategies", `{
			"fund_codes": ["000001", "000002"],
			"weights": {"000001": 0.7, "000002": 0.5},
			"monthly_investment": 1000
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("目标权重必须非负且合计为 1。"))
	})

	It("rejects out-of-range strategy parameters", func() {
		status, body := postJSON(app, "/api/backtest_strategies", `{
			"fund_codes": ["000001"],
			"weights": {"000001": 1.0},
			"monthly_investment": 1000,
			"min_weight": 0.9,
			"max_weight": 0.2
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body).To(HaveKey("detail"))
	})
})
