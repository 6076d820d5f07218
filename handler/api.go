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

// Package handler exposes the engine over HTTP. Every failure body is a
// JSON object with a human-readable detail field; input validation runs
// before any computation starts.
package handler

import (
	"errors"
	"math"
	"time"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/frontier"
	"github.com/KLOSYX/quant-compass/simulation"
	"github.com/KLOSYX/quant-compass/stats"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const weightSumTol = 1e-6

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2025-06-19T08:09:10.115924+08:00"`
}

func Ping(c *fiber.Ctx) error {
	var response PingResponse
	now, err := time.Now().MarshalText()
	if err != nil {
		log.Error().Stack().Err(err).Msg("error while getting time in ping")
		response = PingResponse{
			Status:  "error",
			Message: err.Error(),
			Time:    string(now),
		}
	} else {
		response = PingResponse{
			Status:  "success",
			Message: "API is alive",
			Time:    string(now),
		}
	}
	return c.JSON(response)
}

// detailError carries the status and user-facing message of a failed request
func detailError(status int, detail string) error {
	return fiber.NewError(status, detail)
}

// ErrorHandler renders every fiber error as a {detail} JSON body
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}

// mapEngineError translates sentinel errors from the engine layers into
// user-facing fiber errors
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return detailError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, data.ErrBeginAfterEnd),
		errors.Is(err, data.ErrDateRangeEmpty),
		errors.Is(err, data.ErrNoAssets),
		errors.Is(err, data.ErrInsufficientHistory),
		errors.Is(err, data.ErrStaleDataExceeded),
		errors.Is(err, stats.ErrDateRangeEmpty),
		errors.Is(err, stats.ErrInsufficientHistory),
		errors.Is(err, simulation.ErrInvalidParameters),
		errors.Is(err, simulation.ErrNoPeriods),
		errors.Is(err, frontier.ErrNoAssets):
		return detailError(fiber.StatusBadRequest, err.Error())
	default:
		return detailError(fiber.StatusInternalServerError, err.Error())
	}
}

// parseDate reads a calendar date; empty means open-ended
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}

// validWeights checks non-negativity and the sum-to-one invariant
func validWeights(weights map[string]float64) bool {
	if len(weights) == 0 {
		return false
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return false
		}
		total += w
	}
	return math.Abs(total-1) < weightSumTol
}

// strategyParams fills the value-averaging parameters from optional request
// fields, shipping defaults for anything absent
type strategyParams struct {
	MaxBuyMultiplier *float64 `json:"max_buy_multiplier"`
	SellThreshold    *float64 `json:"sell_threshold"`
	MinWeight        *float64 `json:"min_weight"`
	MaxWeight        *float64 `json:"max_weight"`
	MAWindow         *int     `json:"ma_window"`
}

func (p strategyParams) parameters() simulation.Parameters {
	params := simulation.DefaultParameters()
	if p.MaxBuyMultiplier != nil {
		params.MaxBuyMultiplier = *p.MaxBuyMultiplier
	}
	if p.SellThreshold != nil {
		params.SellThreshold = *p.SellThreshold
	}
	if p.MinWeight != nil {
		params.MinWeight = *p.MinWeight
	}
	if p.MaxWeight != nil {
		params.MaxWeight = *p.MaxWeight
	}
	if p.MAWindow != nil {
		params.MAWindow = *p.MAWindow
	}
	return params
}
