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

package dataframe

import (
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PctChange computes the simple per-period return of every column and returns
// a new dataframe. The first row is dropped since it has no predecessor.
func (df *DataFrame) PctChange() *DataFrame {
	n := df.Len()
	if n < 2 {
		return &DataFrame{
			Dates:    []time.Time{},
			ColNames: df.ColNames,
			Vals:     make([][]float64, len(df.Vals)),
		}
	}

	res := &DataFrame{
		Dates:    make([]time.Time, n-1),
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}
	copy(res.Dates, df.Dates[1:])

	for colIdx := range df.Vals {
		col := make([]float64, n-1)
		for rowIdx := 1; rowIdx < n; rowIdx++ {
			col[rowIdx-1] = df.Vals[colIdx][rowIdx]/df.Vals[colIdx][rowIdx-1] - 1.0
		}
		res.Vals[colIdx] = col
	}
	return res
}

// AddScalarToCol adds the scalar to every value of the named column, in place
func (df *DataFrame) AddScalarToCol(name string, scalar float64) *DataFrame {
	colIdx := df.ColIndex(name)
	if colIdx == -1 {
		return df
	}
	for rowIdx := range df.Vals[colIdx] {
		df.Vals[colIdx][rowIdx] += scalar
	}
	return df
}

// MeanVector computes the per-column mean
func (df *DataFrame) MeanVector() []float64 {
	means := make([]float64, len(df.Vals))
	for idx, col := range df.Vals {
		means[idx] = stat.Mean(col, nil)
	}
	return means
}

// CovarianceMatrix computes the sample covariance matrix of the columns
func (df *DataFrame) CovarianceMatrix() *mat.SymDense {
	cols := len(df.Vals)
	rows := df.Len()

	x := mat.NewDense(rows, cols, nil)
	for colIdx, col := range df.Vals {
		for rowIdx, v := range col {
			x.Set(rowIdx, colIdx, v)
		}
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, x, nil)
	return cov
}

// Dot computes the weighted sum of all columns per row where weights is a map
// of column name to weight. Unknown columns contribute zero.
func (df *DataFrame) Dot(weights map[string]float64) []float64 {
	res := make([]float64, df.Len())
	for colIdx, name := range df.ColNames {
		w, ok := weights[name]
		if !ok || w == 0 {
			continue
		}
		for rowIdx, v := range df.Vals[colIdx] {
			res[rowIdx] += w * v
		}
	}
	return res
}
