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

package data

import (
	"context"
	"time"
)

const (
	// RiskFreeCode is the reserved pseudo-asset whose value path is defined
	// analytically from a constant annual rate; it has no provider series.
	RiskFreeCode = "RiskFree"

	// RiskFreeName is the display name of the risk free pseudo-asset
	RiskFreeName = "无风险资产"
)

// AssetSeries is an ordered sequence of (date, NAV) observations for one
// fund. Dates are strictly increasing; gaps are never filled here.
type AssetSeries struct {
	Code  string      `json:"code"`
	Name  string      `json:"name"`
	Dates []time.Time `json:"dates"`
	NAV   []float64   `json:"nav"`
}

// Fund is a catalog entry for an open-end fund
type Fund struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Provider supplies per-fund adjusted NAV time series over a date range
type Provider interface {
	Name() string
	FundName(ctx context.Context, code string) (string, error)
	NAVSeries(ctx context.Context, code string, begin, end time.Time) (*AssetSeries, error)
}

// CatalogRefresher is implemented by providers that hold a fund-catalog
// cache that should be refreshed periodically
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) error
}
