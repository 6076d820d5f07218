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

var _ = Describe("Analyze", func() {
	var app *fiber.App

	BeforeEach(func() {
		app = newApp()
	})

	It("computes the efficient frontier for a fund universe", func() {
		status, body := postJSON(app, "/api/analyze", `{
			"fund_codes": ["000001", "000002"],
			"start_date": "2021-01-31",
			"end_date": "2022-12-31",
			"risk_free_rate": 0.02
		}`)
		Expect(status).To(Equal(fiber.StatusOK))

		points := body["efficient_frontier"].([]interface{})
		Expect(points).ToNot(BeEmpty())
		first := points[0].(map[string]interface{})
		Expect(first).To(HaveKey("risk"))
		Expect(first).To(HaveKey("return"))
		Expect(first).To(HaveKey("weights"))

		names := body["fund_names"].(map[string]interface{})
		Expect(names["000001"]).To(Equal("稳健债券"))
		Expect(names).To(HaveKey("RiskFree"))

		period := body["backtest_period"].(map[string]interface{})
		Expect(period["start_date"]).To(Equal("2021-01-31"))
		Expect(period["end_date"]).To(Equal("2022-12-31"))
		Expect(body).To(HaveKey("warnings"))
	})

	It("appends the strategy frontier on request", func() {
		status, body := postJSON(app, "/api/analyze", `{
			"fund_codes": ["000001", "000002"],
			"include_strategy_frontier": true,
			"monthly_investment": 1000
		}`)
		Expect(status).To(Equal(fiber.StatusOK))

		strategy := body["strategy_frontier"].([]interface{})
		analytic := body["efficient_frontier"].([]interface{})
		Expect(strategy).To(HaveLen(len(analytic)))
		first := strategy[0].(map[string]interface{})
		Expect(first).To(HaveKey("max_drawdown"))
		Expect(first).To(HaveKey("original_risk"))
	})

	It("rejects a malformed body", func() {
		status, body := postJSON(app, "/api/analyze", `{"fund_codes": [`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(ContainSubstring("请求体"))
	})

	It("requires a fund or a risk-free rate", func() {
		status, body := postJSON(app, "/api/analyze", `{"fund_codes": []}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("请至少选择一只基金或添加无风险资产。"))
	})

	It("rejects a malformed start date", func() {
		status, body := postJSON(app, "/api/analyze", `{
			"fund_codes": ["000001"],
			"start_date": "31/01/2021"
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("开始日期格式错误。"))
	})

	It("maps an unknown fund to 404", func() {
		status, body := postJSON(app, "/api/analyze", `{"fund_codes": ["999999"]}`)
		Expect(status).To(Equal(fiber.StatusNotFound))
		Expect(body["detail"]).To(ContainSubstring("999999"))
	})
})
