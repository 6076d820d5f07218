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

import (
	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/markcheno/go-talib"
)

// BenchmarkSeries computes the target-weighted NAV level per period and its
// moving-average reference. During the warmup, before a full window exists,
// the expanding mean of the available history stands in for the SMA so early
// periods still get a usable reference.
func BenchmarkSeries(nav *dataframe.DataFrame, weights map[string]float64, window int) (levels, ma []float64) {
	levels = nav.Dot(weights)
	ma = make([]float64, len(levels))

	if window <= 1 {
		copy(ma, levels)
		return levels, ma
	}

	if len(levels) >= window {
		copy(ma, talib.Sma(levels, window))
	}

	// expanding mean over the warmup region (and everywhere when the series
	// is shorter than the window)
	sum := 0.0
	for idx, v := range levels {
		sum += v
		if idx < window-1 || len(levels) < window {
			ma[idx] = sum / float64(idx+1)
		}
	}

	return levels, ma
}

// bias relates the current level to its reference; a degenerate reference
// reads as neutral
func bias(level, ref float64) float64 {
	if ref <= 0 {
		return 1.0
	}
	return level / ref
}
