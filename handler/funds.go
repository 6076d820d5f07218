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
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
)

// GetFund looks the fund catalog entry up by code
func GetFund(manager *data.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "handler.GetFund")
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		code := c.Params("code")
		if code == "" {
			return detailError(fiber.StatusBadRequest, "缺少基金代码。")
		}

		name, err := manager.Provider().FundName(ctx, code)
		if err != nil {
			return mapEngineError(err)
		}

		return c.JSON(data.Fund{Code: code, Name: name})
	}
}
