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
	"math"
	"time"
)

// New creates an empty dataframe with the given column names
func New(colNames ...string) *DataFrame {
	vals := make([][]float64, len(colNames))
	for idx := range vals {
		vals[idx] = []float64{}
	}
	return &DataFrame{
		Dates:    []time.Time{},
		ColNames: colNames,
		Vals:     vals,
	}
}

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// Copy creates a deep copy of the dataframe
func (df *DataFrame) Copy() *DataFrame {
	df2 := &DataFrame{
		Dates:    make([]time.Time, len(df.Dates)),
		ColNames: make([]string, len(df.ColNames)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.Dates, df.Dates)
	copy(df2.ColNames, df.ColNames)
	for idx := range df.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// ColIndex returns the index of the named column, or -1 when it does not exist
func (df *DataFrame) ColIndex(name string) int {
	for idx, col := range df.ColNames {
		if col == name {
			return idx
		}
	}
	return -1
}

// Col returns the values of the named column; nil if the column does not exist
func (df *DataFrame) Col(name string) []float64 {
	idx := df.ColIndex(name)
	if idx == -1 {
		return nil
	}
	return df.Vals[idx]
}

// Append adds a row to the end of the dataframe. Panics if the number of
// values does not match the number of columns.
func (df *DataFrame) Append(date time.Time, vals ...float64) *DataFrame {
	if len(vals) != len(df.ColNames) {
		panic("number of values does not match number of columns")
	}
	df.Dates = append(df.Dates, date)
	for idx, v := range vals {
		df.Vals[idx] = append(df.Vals[idx], v)
	}
	return df
}

// Row returns the values at rowIdx as a map of column name to value
func (df *DataFrame) Row(rowIdx int) map[string]float64 {
	row := make(map[string]float64, len(df.ColNames))
	for colIdx, name := range df.ColNames {
		row[name] = df.Vals[colIdx][rowIdx]
	}
	return row
}

// Start returns the first date of the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// End returns the last date of the dataframe
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}

// Trim removes all rows that fall outside of [begin, end]
func (df *DataFrame) Trim(begin, end time.Time) *DataFrame {
	// special case 0: requested range is invalid
	if end.Before(begin) {
		df.Dates = []time.Time{}
		for idx := range df.Vals {
			df.Vals[idx] = []float64{}
		}
		return df
	}

	beginIdx := len(df.Dates)
	endIdx := -1
	for idx, dt := range df.Dates {
		if !dt.Before(begin) {
			beginIdx = idx
			break
		}
	}
	for idx := len(df.Dates) - 1; idx >= 0; idx-- {
		if !df.Dates[idx].After(end) {
			endIdx = idx
			break
		}
	}

	if beginIdx > endIdx {
		df.Dates = []time.Time{}
		for idx := range df.Vals {
			df.Vals[idx] = []float64{}
		}
		return df
	}

	df.Dates = df.Dates[beginIdx : endIdx+1]
	for idx := range df.Vals {
		df.Vals[idx] = df.Vals[idx][beginIdx : endIdx+1]
	}
	return df
}

// Frequency returns a new dataframe with rows at the specified frequency;
// for MonthEnd the last available row of each calendar month is kept and
// labeled at the calendar month end. Labeling on the calendar grid keeps
// series alignable even when their final trading days inside a month differ.
func (df *DataFrame) Frequency(frequency Frequency) *DataFrame {
	keep := make([]int, 0, len(df.Dates))

	switch frequency {
	case Daily:
		for idx := range df.Dates {
			keep = append(keep, idx)
		}
	case MonthEnd:
		for idx := range df.Dates {
			last := idx == len(df.Dates)-1
			if !last {
				next := df.Dates[idx+1]
				curr := df.Dates[idx]
				if next.Month() != curr.Month() || next.Year() != curr.Year() {
					last = true
				}
			}
			if last {
				keep = append(keep, idx)
			}
		}
	case YearEnd:
		for idx := range df.Dates {
			last := idx == len(df.Dates)-1
			if !last && df.Dates[idx+1].Year() != df.Dates[idx].Year() {
				last = true
			}
			if last {
				keep = append(keep, idx)
			}
		}
	}

	res := &DataFrame{
		Dates:    make([]time.Time, len(keep)),
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}
	for colIdx := range df.Vals {
		res.Vals[colIdx] = make([]float64, len(keep))
	}
	for outIdx, rowIdx := range keep {
		dt := df.Dates[rowIdx]
		switch frequency {
		case MonthEnd:
			dt = monthEndOf(dt)
		case YearEnd:
			dt = yearEndOf(dt)
		}
		res.Dates[outIdx] = dt
		for colIdx := range df.Vals {
			res.Vals[colIdx][outIdx] = df.Vals[colIdx][rowIdx]
		}
	}
	return res
}

// monthEndOf returns the last calendar day of dt's month
func monthEndOf(dt time.Time) time.Time {
	return time.Date(dt.Year(), dt.Month()+1, 0, 0, 0, 0, 0, dt.Location())
}

// yearEndOf returns the last calendar day of dt's year
func yearEndOf(dt time.Time) time.Time {
	return time.Date(dt.Year(), 12, 31, 0, 0, 0, 0, dt.Location())
}

// ForwardFill replaces NaN values with the last observed value of the column.
// Leading NaNs are left in place; DropNA removes them.
func (df *DataFrame) ForwardFill() *DataFrame {
	for colIdx := range df.Vals {
		lastVal := math.NaN()
		for rowIdx, v := range df.Vals[colIdx] {
			if math.IsNaN(v) {
				df.Vals[colIdx][rowIdx] = lastVal
			} else {
				lastVal = v
			}
		}
	}
	return df
}

// CountFilled returns the number of rows where the named column holds a real value
func (df *DataFrame) CountFilled(name string) int {
	col := df.Col(name)
	cnt := 0
	for _, v := range col {
		if !math.IsNaN(v) {
			cnt++
		}
	}
	return cnt
}

// DropNA removes all rows where any column is NaN
func (df *DataFrame) DropNA() *DataFrame {
	keep := make([]int, 0, len(df.Dates))
	for rowIdx := range df.Dates {
		hasNaN := false
		for colIdx := range df.Vals {
			if math.IsNaN(df.Vals[colIdx][rowIdx]) {
				hasNaN = true
				break
			}
		}
		if !hasNaN {
			keep = append(keep, rowIdx)
		}
	}

	dates := make([]time.Time, len(keep))
	vals := make([][]float64, len(df.Vals))
	for colIdx := range df.Vals {
		vals[colIdx] = make([]float64, len(keep))
	}
	for outIdx, rowIdx := range keep {
		dates[outIdx] = df.Dates[rowIdx]
		for colIdx := range df.Vals {
			vals[colIdx][outIdx] = df.Vals[colIdx][rowIdx]
		}
	}

	df.Dates = dates
	df.Vals = vals
	return df
}

// AddColumn appends a new column to the dataframe. Panics if the number of
// values does not match the number of rows.
func (df *DataFrame) AddColumn(name string, vals []float64) *DataFrame {
	if len(vals) != df.Len() {
		panic("number of values does not match number of rows")
	}
	df.ColNames = append(df.ColNames, name)
	df.Vals = append(df.Vals, vals)
	return df
}

// Merge outer-joins two dataframes on their date index. Missing cells are NaN.
func Merge(dfs ...*DataFrame) *DataFrame {
	dateSet := make(map[time.Time]struct{})
	for _, df := range dfs {
		for _, dt := range df.Dates {
			dateSet[dt] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for dt := range dateSet {
		dates = append(dates, dt)
	}
	sortDates(dates)

	res := &DataFrame{
		Dates:    dates,
		ColNames: []string{},
		Vals:     [][]float64{},
	}

	for _, df := range dfs {
		idxByDate := make(map[time.Time]int, len(df.Dates))
		for idx, dt := range df.Dates {
			idxByDate[dt] = idx
		}
		for colIdx, name := range df.ColNames {
			col := make([]float64, len(dates))
			for rowIdx, dt := range dates {
				if srcIdx, ok := idxByDate[dt]; ok {
					col[rowIdx] = df.Vals[colIdx][srcIdx]
				} else {
					col[rowIdx] = math.NaN()
				}
			}
			res.ColNames = append(res.ColNames, name)
			res.Vals = append(res.Vals, col)
		}
	}

	return res
}

func sortDates(dates []time.Time) {
	// insertion sort; date lists are small and mostly ordered
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j].Before(dates[j-1]); j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
}
