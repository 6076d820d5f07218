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

package dataframe_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KLOSYX/quant-compass/dataframe"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ = Describe("DataFrame", func() {
	Context("with no values", func() {
		var df *dataframe.DataFrame

		BeforeEach(func() {
			df = dataframe.New("Col1")
		})

		It("has zero length", func() {
			Expect(df.Len()).To(Equal(0))
		})

		It("has a zero start and end", func() {
			Expect(df.Start().IsZero()).To(BeTrue())
			Expect(df.End().IsZero()).To(BeTrue())
		})

		It("does not error on trim", func() {
			df = df.Trim(date(2021, 1, 1), date(2022, 1, 1))
			Expect(df.Len()).To(Equal(0))
		})

		It("does not error on frequency", func() {
			df = df.Frequency(dataframe.MonthEnd)
			Expect(df.Len()).To(Equal(0))
		})
	})

	Context("with a year of daily values and a single column", func() {
		var df *dataframe.DataFrame

		BeforeEach(func() {
			df = dataframe.New("Col1")
			dt := date(2021, 1, 1)
			for idx := 0; idx < 365; idx++ {
				df.Append(dt, float64(idx))
				dt = dt.AddDate(0, 0, 1)
			}
		})

		It("has length", func() {
			Expect(df.Len()).To(Equal(365))
		})

		It("resolves columns by name", func() {
			Expect(df.ColIndex("Col1")).To(Equal(0))
			Expect(df.ColIndex("Col2")).To(Equal(-1))
			Expect(df.Col("Col2")).To(BeNil())
			Expect(df.Col("Col1")).To(HaveLen(365))
		})

		It("keeps the last row of every month at MonthEnd frequency", func() {
			monthly := df.Frequency(dataframe.MonthEnd)
			Expect(monthly.Len()).To(Equal(12))
			Expect(monthly.Dates[0]).To(Equal(date(2021, 1, 31)))
			Expect(monthly.Dates[1]).To(Equal(date(2021, 2, 28)))
			Expect(monthly.Dates[11]).To(Equal(date(2021, 12, 31)))
		})

		It("labels month-end rows on the calendar grid even when trading stops early", func() {
			sparse := dataframe.New("Col1")
			sparse.Append(date(2021, 1, 15), 1.0)
			sparse.Append(date(2021, 1, 29), 2.0)
			sparse.Append(date(2021, 2, 26), 3.0)

			monthly := sparse.Frequency(dataframe.MonthEnd)
			Expect(monthly.Len()).To(Equal(2))
			Expect(monthly.Dates[0]).To(Equal(date(2021, 1, 31)))
			Expect(monthly.Dates[1]).To(Equal(date(2021, 2, 28)))
			Expect(monthly.Col("Col1")).To(Equal([]float64{2, 3}))
		})

		It("aligns series whose final trading days differ on merge", func() {
			a := dataframe.New("A")
			a.Append(date(2024, 1, 30), 1.0)
			a.Append(date(2024, 2, 29), 1.1)
			b := dataframe.New("B")
			b.Append(date(2024, 1, 31), 2.0)
			b.Append(date(2024, 2, 28), 2.2)

			merged := dataframe.Merge(a.Frequency(dataframe.MonthEnd), b.Frequency(dataframe.MonthEnd))
			Expect(merged.Len()).To(Equal(2))
			Expect(merged.Dates[0]).To(Equal(date(2024, 1, 31)))
			Expect(merged.Dates[1]).To(Equal(date(2024, 2, 29)))
			Expect(merged.Col("A")).To(Equal([]float64{1.0, 1.1}))
			Expect(merged.Col("B")).To(Equal([]float64{2.0, 2.2}))
		})

		It("keeps the last row of the year at YearEnd frequency", func() {
			yearly := df.Frequency(dataframe.YearEnd)
			Expect(yearly.Len()).To(Equal(1))
			Expect(yearly.Dates[0]).To(Equal(date(2021, 12, 31)))
		})

		DescribeTable("trims values by date range",
			func(a, b time.Time, expectedLen int) {
				df = df.Trim(a, b)
				Expect(df.Len()).To(Equal(expectedLen))
			},
			Entry("full range", date(2021, 1, 1), date(2021, 12, 31), 365),
			Entry("partial range", date(2021, 2, 1), date(2021, 2, 28), 28),
			Entry("range before values", date(2020, 1, 1), date(2020, 12, 31), 0),
			Entry("range after values", date(2022, 1, 1), date(2022, 12, 31), 0),
			Entry("inverted range", date(2021, 6, 1), date(2021, 1, 1), 0),
		)

		It("deep copies values", func() {
			df2 := df.Copy()
			df2.Vals[0][0] = -1
			Expect(df.Vals[0][0]).To(BeNumerically("==", 0))
		})
	})

	Context("with missing values", func() {
		var df *dataframe.DataFrame

		BeforeEach(func() {
			df = dataframe.New("A", "B")
			df.Append(date(2021, 1, 31), math.NaN(), 1.0)
			df.Append(date(2021, 2, 28), 2.0, math.NaN())
			df.Append(date(2021, 3, 31), math.NaN(), 3.0)
			df.Append(date(2021, 4, 30), 4.0, 4.0)
		})

		It("counts filled values per column", func() {
			Expect(df.CountFilled("A")).To(Equal(2))
			Expect(df.CountFilled("B")).To(Equal(3))
		})

		It("forward fills interior gaps but not leading gaps", func() {
			df.ForwardFill()
			Expect(math.IsNaN(df.Col("A")[0])).To(BeTrue())
			Expect(df.Col("A")[2]).To(BeNumerically("==", 2.0))
			Expect(df.Col("B")[1]).To(BeNumerically("==", 1.0))
		})

		It("drops rows with any NaN", func() {
			df.ForwardFill().DropNA()
			Expect(df.Len()).To(Equal(3))
			Expect(df.Dates[0]).To(Equal(date(2021, 2, 28)))
			Expect(df.Col("A")).To(Equal([]float64{2.0, 2.0, 4.0}))
			Expect(df.Col("B")).To(Equal([]float64{1.0, 3.0, 4.0}))
		})
	})

	Describe("Merge", func() {
		It("outer joins on the date index", func() {
			a := dataframe.New("A")
			a.Append(date(2021, 1, 31), 1.0)
			a.Append(date(2021, 2, 28), 2.0)

			b := dataframe.New("B")
			b.Append(date(2021, 2, 28), 20.0)
			b.Append(date(2021, 3, 31), 30.0)

			merged := dataframe.Merge(a, b)
			Expect(merged.Len()).To(Equal(3))
			Expect(merged.ColNames).To(Equal([]string{"A", "B"}))
			Expect(merged.Dates).To(Equal([]time.Time{
				date(2021, 1, 31), date(2021, 2, 28), date(2021, 3, 31),
			}))
			Expect(merged.Col("A")[1]).To(BeNumerically("==", 2.0))
			Expect(math.IsNaN(merged.Col("A")[2])).To(BeTrue())
			Expect(math.IsNaN(merged.Col("B")[0])).To(BeTrue())
			Expect(merged.Col("B")[2]).To(BeNumerically("==", 30.0))
		})
	})

	Describe("AddColumn", func() {
		It("appends a column of matching length", func() {
			df := dataframe.New("A")
			df.Append(date(2021, 1, 31), 1.0)
			df.AddColumn("B", []float64{10.0})
			Expect(df.ColNames).To(Equal([]string{"A", "B"}))
			Expect(df.Col("B")[0]).To(BeNumerically("==", 10.0))
		})

		It("panics on a length mismatch", func() {
			df := dataframe.New("A")
			df.Append(date(2021, 1, 31), 1.0)
			Expect(func() {
				df.AddColumn("B", []float64{1.0, 2.0})
			}).To(Panic())
		})
	})
})
