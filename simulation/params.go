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

package simulation

import "errors"

var (
	ErrInvalidParameters = errors.New("invalid strategy parameters")
	ErrNoPeriods         = errors.New("no periods to simulate")
	ErrInvalidWeights    = errors.New("weights must be non-negative and sum to 1")
)

// Parameters tunes the value-averaging decision rule. The same values drive
// both the historical replay and the single-period recommendation.
type Parameters struct {
	// MaxBuyMultiplier caps a single period's buy at this multiple of the
	// base contribution
	MaxBuyMultiplier float64 `json:"max_buy_multiplier"`

	// SellThreshold is the valuation band half-width; it both classifies the
	// market signal and gates how large an overweight must be before a sell
	// triggers
	SellThreshold float64 `json:"sell_threshold"`

	// MinWeight and MaxWeight bound the target equity fraction of wealth
	MinWeight float64 `json:"min_weight"`
	MaxWeight float64 `json:"max_weight"`

	// MAWindow is the moving-average length, in months
	MAWindow int `json:"ma_window"`
}

// DefaultParameters returns the conventions the product ships with
func DefaultParameters() Parameters {
	return Parameters{
		MaxBuyMultiplier: 3.0,
		SellThreshold:    0.05,
		MinWeight:        0.3,
		MaxWeight:        0.8,
		MAWindow:         12,
	}
}

// Validate checks the parameter ranges
func (p Parameters) Validate() error {
	switch {
	case p.MaxBuyMultiplier < 0:
		return ErrInvalidParameters
	case p.SellThreshold < 0 || p.SellThreshold >= 1:
		return ErrInvalidParameters
	case p.MinWeight < 0 || p.MaxWeight > 1 || p.MinWeight > p.MaxWeight:
		return ErrInvalidParameters
	case p.MAWindow < 1:
		return ErrInvalidParameters
	}
	return nil
}
