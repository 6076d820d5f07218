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

import "math"

// MaxDrawdown returns the worst peak-to-trough decline of the series as a
// non-positive fraction (-0.25 for a 25% decline), or 0 for an empty series.
func MaxDrawdown(series []float64) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// unitIndex tracks a flow-normalized unit value through a run: external
// contributions buy index units at the pre-flow unit price, so the resulting
// unit series measures strategy skill independent of contribution timing.
type unitIndex struct {
	units  float64
	series []float64
}

// flow registers an external contribution (or seeded value) against the
// pre-flow account value
func (u *unitIndex) flow(preValue, amount float64) {
	unit := 1.0
	if u.units == 0 {
		if preValue > 0 {
			// seeded holdings become the initial unit base at unit price 1
			u.units = preValue
		}
	} else if preValue > 0 {
		unit = preValue / u.units
	}
	if amount > 0 {
		u.units += amount / unit
	}
}

// mark records the post-trade unit value for the period
func (u *unitIndex) mark(value float64) {
	if u.units > 0 {
		u.series = append(u.series, value/u.units)
	}
}

// annualized converts the terminal unit value into an annualized return over
// the given number of monthly periods
func (u *unitIndex) annualized(periods int) float64 {
	if periods == 0 || len(u.series) == 0 {
		return 0
	}
	last := u.series[len(u.series)-1]
	if last <= 0 {
		return -1
	}
	return math.Pow(last, periodsPerYear/float64(periods)) - 1
}
