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

package stats_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/stats"
)

// growthNAV builds a NAV path compounding at the given monthly rate from 1.0
func growthNAV(monthly float64, n int) []float64 {
	vals := make([]float64, n)
	level := 1.0
	for idx := range vals {
		vals[idx] = level
		level *= 1 + monthly
	}
	return vals
}

func snapshotOf(cols map[string][]float64, n int) *data.Snapshot {
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}

	df := dataframe.New(names...)
	for rowIdx := 0; rowIdx < n; rowIdx++ {
		dt := time.Date(2021, time.Month(rowIdx+2), 0, 0, 0, 0, 0, time.UTC)
		vals := make([]float64, len(names))
		for colIdx, name := range names {
			vals[colIdx] = cols[name][rowIdx]
		}
		df.Append(dt, vals...)
	}
	return &data.Snapshot{NAV: df}
}

var _ = Describe("Compute", func() {
	It("annualizes a steady 1% monthly gain to a 12% mean", func() {
		moments, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001": growthNAV(0.01, 13),
		}, 13), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(moments.Codes).To(Equal([]string{"000001"}))
		Expect(moments.AnnualMean[0]).To(BeNumerically("~", 0.12, 1e-9))
		// a constant return has zero variance
		Expect(moments.AnnualCov.At(0, 0)).To(BeNumerically("~", 0, 1e-12))
	})

	It("drags the mean by the annual management fee", func() {
		cols := map[string][]float64{"000001": growthNAV(0.01, 13)}
		bare, err := stats.Compute(snapshotOf(cols, 13), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		dragged, err := stats.Compute(snapshotOf(cols, 13), map[string]float64{"000001": 0.012}, nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(dragged.AnnualMean[0]).To(BeNumerically("~", bare.AnnualMean[0]-0.012, 1e-9))
		// the drag shifts every return equally, so the covariance is unchanged
		Expect(dragged.AnnualCov.At(0, 0)).To(BeNumerically("~", bare.AnnualCov.At(0, 0), 1e-12))
	})

	It("annualizes the covariance matrix by 12", func() {
		alternating := make([]float64, 13)
		level := 1.0
		for idx := range alternating {
			alternating[idx] = level
			if idx%2 == 0 {
				level *= 1.02
			} else {
				level *= 0.99
			}
		}
		moments, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001": alternating,
		}, 13), nil, nil)
		Expect(err).ToNot(HaveOccurred())

		// sample variance of the 12 alternating returns, times 12
		rets := make([]float64, 12)
		for idx := range rets {
			if idx%2 == 0 {
				rets[idx] = 0.02
			} else {
				rets[idx] = -0.01
			}
		}
		mean := 0.0
		for _, r := range rets {
			mean += r
		}
		mean /= 12
		variance := 0.0
		for _, r := range rets {
			variance += (r - mean) * (r - mean)
		}
		variance /= 11
		Expect(moments.AnnualCov.At(0, 0)).To(BeNumerically("~", variance*12, 1e-12))
	})

	It("pins the risk-free leg to zero variance and the given rate", func() {
		dates13 := 13
		riskFree := make([]float64, dates13)
		level := 1.0
		for idx := range riskFree {
			level *= 1 + data.MonthlyRate(0.02)
			riskFree[idx] = level
		}
		rate := 0.02
		moments, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001":          growthNAV(0.01, dates13),
			data.RiskFreeCode: riskFree,
		}, dates13), nil, &rate)
		Expect(err).ToNot(HaveOccurred())

		rf, ok := moments.MeanOf(data.RiskFreeCode)
		Expect(ok).To(BeTrue())
		Expect(rf).To(BeNumerically("==", 0.02))

		rfIdx := -1
		for idx, code := range moments.Codes {
			if code == data.RiskFreeCode {
				rfIdx = idx
			}
		}
		for j := range moments.Codes {
			Expect(moments.AnnualCov.At(rfIdx, j)).To(BeNumerically("==", 0))
			Expect(moments.AnnualCov.At(j, rfIdx)).To(BeNumerically("==", 0))
		}
	})

	It("rejects an empty snapshot", func() {
		_, err := stats.Compute(&data.Snapshot{NAV: dataframe.New("000001")}, nil, nil)
		Expect(err).To(MatchError(stats.ErrDateRangeEmpty))
	})

	It("rejects a snapshot with a single return period", func() {
		_, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001": {1.0, 1.01},
		}, 2), nil, nil)
		Expect(err).To(MatchError(stats.ErrInsufficientHistory))
	})
})

var _ = Describe("Moments", func() {
	It("finds the largest annualized mean", func() {
		moments, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001": growthNAV(0.01, 13),
			"000002": growthNAV(0.02, 13),
		}, 13), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(moments.MaxMean()).To(BeNumerically("~", 0.24, 1e-9))
	})

	It("reports a missing code", func() {
		moments, err := stats.Compute(snapshotOf(map[string][]float64{
			"000001": growthNAV(0.01, 13),
		}, 13), nil, nil)
		Expect(err).ToNot(HaveOccurred())
		_, ok := moments.MeanOf("999999")
		Expect(ok).To(BeFalse())
		Expect(math.IsInf(moments.MaxMean(), -1)).To(BeFalse())
	})
})
