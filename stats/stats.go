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

// Package stats converts month-end NAV tables into the annualized moment
// estimates the optimizer consumes. The monthly sampling frequency is fixed;
// annualization multiplies both the mean vector and the covariance matrix
// by 12. Management fees are applied as an analytic drag on the mean, never
// by rewriting the return series.
package stats

import (
	"errors"
	"math"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/dataframe"
	"gonum.org/v1/gonum/mat"
)

const periodsPerYear = 12.0

var (
	ErrDateRangeEmpty      = errors.New("no return periods fall inside the requested range")
	ErrInsufficientHistory = errors.New("not enough return observations to estimate moments")
)

// Moments holds the annualized return statistics of an asset universe.
// Columns follow the order of Codes for both AnnualMean and AnnualCov.
type Moments struct {
	Codes      []string
	AnnualMean []float64
	AnnualCov  *mat.SymDense

	// Returns keeps the monthly net return table the moments were estimated
	// from, useful for realized-volatility checks downstream.
	Returns *dataframe.DataFrame
}

// MeanOf returns the annualized mean of the coded asset
func (m *Moments) MeanOf(code string) (float64, bool) {
	for idx, c := range m.Codes {
		if c == code {
			return m.AnnualMean[idx], true
		}
	}
	return 0, false
}

// MaxMean returns the largest annualized mean across the universe
func (m *Moments) MaxMean() float64 {
	best := math.Inf(-1)
	for _, v := range m.AnnualMean {
		if v > best {
			best = v
		}
	}
	return best
}

// Compute estimates annualized moments from a month-end NAV snapshot.
// annualFees maps asset code to its annual management fee; the fee drags the
// mean by fee/12 per month. When the snapshot carries the synthetic RiskFree
// column its variance and every covariance with it are forced to zero and its
// mean is pinned to the given rate.
func Compute(snapshot *data.Snapshot, annualFees map[string]float64, riskFreeRate *float64) (*Moments, error) {
	nav := snapshot.NAV
	if nav.Len() == 0 {
		return nil, ErrDateRangeEmpty
	}

	returns := nav.PctChange()
	if returns.Len() == 0 {
		return nil, ErrDateRangeEmpty
	}
	if returns.Len() < 2 {
		return nil, ErrInsufficientHistory
	}

	// fee drag on the monthly return table; the snapshot itself stays intact
	for _, code := range returns.ColNames {
		if fee, ok := annualFees[code]; ok && fee != 0 {
			returns.AddScalarToCol(code, -fee/periodsPerYear)
		}
	}

	mean := returns.MeanVector()
	cov := returns.CovarianceMatrix()

	n := len(returns.ColNames)
	annualMean := make([]float64, n)
	annualCov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		annualMean[i] = mean[i] * periodsPerYear
		for j := i; j < n; j++ {
			annualCov.SetSym(i, j, cov.At(i, j)*periodsPerYear)
		}
	}

	// the risk-free leg is riskless by construction
	if rfIdx := returns.ColIndex(data.RiskFreeCode); rfIdx != -1 {
		if riskFreeRate != nil {
			annualMean[rfIdx] = *riskFreeRate
		}
		for j := 0; j < n; j++ {
			annualCov.SetSym(rfIdx, j, 0)
		}
	}

	codes := make([]string, n)
	copy(codes, returns.ColNames)

	return &Moments{
		Codes:      codes,
		AnnualMean: annualMean,
		AnnualCov:  annualCov,
		Returns:    returns,
	}, nil
}
