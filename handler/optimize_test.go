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

var _ = Describe("OptimizeDCA", func() {
	It("returns the best DCA allocation with its backtest", func() {
		status, body := postJSON(newApp(), "/api/optimize_dca", `{
			"fund_codes": ["000001", "000002"],
			"start_date": "2021-01-31",
			"end_date": "2022-12-31",
			"monthly_investment": 1000
		}`)
		Expect(status).To(Equal(fiber.StatusOK))

		weights, ok := body["weights"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(weights).ToNot(BeEmpty())
		total := 0.0
		for _, w := range weights {
			total += w.(float64)
		}
		Expect(total).To(BeNumerically("~", 1.0, 1e-6))

		Expect(body).To(HaveKey("risk"))
		Expect(body).To(HaveKey("return"))
		Expect(body).To(HaveKey("max_drawdown"))

		backtest, ok := body["backtest"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(backtest["total_invested"]).To(BeNumerically("==", 24000))
		Expect(backtest["final_value"]).To(BeNumerically(">", 0))

		period, ok := body["backtest_period"].(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(period["start_date"]).To(Equal("2021-01-31"))
		Expect(period["end_date"]).To(Equal("2022-12-31"))
	})

	It("requires a positive monthly investment", func() {
		status, body := postJSON(newApp(), "/api/optimize_dca", `{
			"fund_codes": ["000001"],
			"monthly_investment": 0
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("定投金额需要大于 0。"))
	})

	It("requires at least one asset", func() {
		status, body := postJSON(newApp(), "/api/optimize_dca", `{
			"monthly_investment": 1000
		}`)
		Expect(status).To(Equal(fiber.StatusBadRequest))
		Expect(body["detail"]).To(Equal("请至少选择一只基金或添加无风险资产。"))
	})

	It("returns 404 for an unknown fund", func() {
		status, body := postJSON(newApp(), "/api/optimize_dca", `{
			"fund_codes": ["999999"],
			"monthly_investment": 1000
		}`)
		Expect(status).To(Equal(fiber.StatusNotFound))
		Expect(body["detail"].(string)).To(ContainSubstring("999999"))
	})
})
