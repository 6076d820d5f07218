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

package router

import (
	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/handler"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers the api surface
func SetupRoutes(app *fiber.App, manager *data.Manager) {
	api := app.Group("/api")
	api.Get("/ping", handler.Ping)

	api.Post("/analyze", handler.Analyze(manager))
	api.Post("/backtest_strategies", handler.BacktestStrategies(manager))
	api.Post("/current_recommendation", handler.CurrentRecommendation(manager))
	api.Post("/optimize_dca", handler.OptimizeDCA(manager))

	api.Get("/funds/:code", handler.GetFund(manager))
}
