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
	"math"
	"time"
)

// MonthlyRate converts an annual rate to its monthly-compounded equivalent
func MonthlyRate(annualRate float64) float64 {
	return math.Pow(1.0+annualRate, 1.0/12.0) - 1.0
}

// RiskFreeNAV builds the analytic value path of the risk free pseudo-asset on
// the given date grid: a unit compounding at the monthly equivalent of the
// annual rate, starting one period in.
func RiskFreeNAV(dates []time.Time, annualRate float64) []float64 {
	monthly := MonthlyRate(annualRate)
	nav := make([]float64, len(dates))
	acc := 1.0
	for idx := range dates {
		acc *= 1.0 + monthly
		nav[idx] = acc
	}
	return nav
}

// MonthEnds returns the last calendar day of every month in [begin, end]
func MonthEnds(begin, end time.Time) []time.Time {
	dates := []time.Time{}
	// first day of begin's month
	cursor := time.Date(begin.Year(), begin.Month(), 1, 0, 0, 0, 0, time.UTC)
	for {
		// last day of cursor's month
		monthEnd := cursor.AddDate(0, 1, -1)
		if monthEnd.After(end) {
			break
		}
		if !monthEnd.Before(begin) {
			dates = append(dates, monthEnd)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return dates
}
