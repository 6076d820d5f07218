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

package data_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/data"
)

// fakeProvider serves canned monthly series straight from memory
type fakeProvider struct {
	series map[string]*data.AssetSeries
	names  map[string]string
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) FundName(_ context.Context, code string) (string, error) {
	if name, ok := f.names[code]; ok {
		return name, nil
	}
	return "", data.ErrNotFound
}

func (f *fakeProvider) NAVSeries(_ context.Context, code string, _, _ time.Time) (*data.AssetSeries, error) {
	if series, ok := f.series[code]; ok {
		return series, nil
	}
	return nil, data.ErrNotFound
}

// monthlySeries builds n month-end observations starting at the given month
func monthlySeries(code string, year int, month, n int, startNAV float64) *data.AssetSeries {
	series := &data.AssetSeries{Code: code}
	nav := startNAV
	for idx := 0; idx < n; idx++ {
		series.Dates = append(series.Dates,
			time.Date(year, time.Month(month+idx+1), 0, 0, 0, 0, 0, time.UTC))
		series.NAV = append(series.NAV, nav)
		nav *= 1.01
	}
	return series
}

var _ = Describe("Manager", func() {
	var (
		ctx      context.Context
		provider *fakeProvider
		manager  *data.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = &fakeProvider{
			series: map[string]*data.AssetSeries{
				"000001": monthlySeries("000001", 2021, 1, 12, 1.0),
				"000002": monthlySeries("000002", 2021, 7, 6, 2.0),
			},
			names: map[string]string{
				"000001": "华夏成长混合",
			},
		}
		manager = data.NewManager(provider)
	})

	It("exposes its provider", func() {
		Expect(manager.Provider().Name()).To(Equal("fake"))
	})

	It("requires at least one fund or a risk-free rate", func() {
		_, err := manager.GetSnapshot(ctx, nil, time.Time{}, time.Time{}, nil)
		Expect(err).To(MatchError(data.ErrNoAssets))
	})

	It("rejects an inverted range", func() {
		_, err := manager.GetSnapshot(ctx, []string{"000001"},
			time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).To(MatchError(data.ErrBeginAfterEnd))
	})

	It("builds a month-end snapshot with catalog names", func() {
		snapshot, err := manager.GetSnapshot(ctx, []string{"000001"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(snapshot.NAV.Len()).To(Equal(12))
		Expect(snapshot.NAV.ColNames).To(Equal([]string{"000001"}))
		Expect(snapshot.Names["000001"]).To(Equal("华夏成长混合"))
		Expect(snapshot.Warnings).To(BeEmpty())
	})

	It("falls back to a placeholder when the catalog has no name", func() {
		snapshot, err := manager.GetSnapshot(ctx, []string{"000002"},
			time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(snapshot.Names["000002"]).To(Equal("000002 (名称未找到)"))
	})

	It("cuts the window to the latest inception and warns", func() {
		snapshot, err := manager.GetSnapshot(ctx, []string{"000001", "000002"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).ToNot(HaveOccurred())

		// 000002 incepts at the end of July; the common window starts there
		Expect(snapshot.NAV.Len()).To(Equal(6))
		Expect(snapshot.NAV.Start()).To(Equal(time.Date(2021, 7, 31, 0, 0, 0, 0, time.UTC)))
		Expect(snapshot.Warnings).To(HaveLen(1))
		Expect(snapshot.Warnings[0]).To(ContainSubstring("尚未成立"))
		Expect(snapshot.Warnings[0]).To(ContainSubstring("2021-07-31"))
	})

	It("appends the synthetic risk-free column", func() {
		rate := 0.02
		snapshot, err := manager.GetSnapshot(ctx, []string{"000001"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), &rate)
		Expect(err).ToNot(HaveOccurred())

		col := snapshot.NAV.Col(data.RiskFreeCode)
		Expect(col).To(HaveLen(12))
		monthly := data.MonthlyRate(0.02)
		Expect(col[0]).To(BeNumerically("~", 1+monthly, 1e-12))
		Expect(col[11]).To(BeNumerically("~", 1.02, 1e-9))
		Expect(snapshot.Names[data.RiskFreeCode]).To(Equal(data.RiskFreeName))
	})

	Context("with only the risk-free asset", func() {
		It("builds an analytic grid over the explicit range", func() {
			rate := 0.02
			snapshot, err := manager.GetSnapshot(ctx, nil,
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), &rate)
			Expect(err).ToNot(HaveOccurred())

			Expect(snapshot.NAV.ColNames).To(Equal([]string{data.RiskFreeCode}))
			Expect(snapshot.NAV.Len()).To(Equal(12))
		})

		It("requires both dates", func() {
			rate := 0.02
			_, err := manager.GetSnapshot(ctx, nil,
				time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, &rate)
			Expect(err).To(MatchError(data.ErrDateRangeEmpty))
		})
	})

	It("wraps provider failures with the fund code", func() {
		_, err := manager.GetSnapshot(ctx, []string{"999999"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).To(MatchError(data.ErrNotFound))
		Expect(err.Error()).To(ContainSubstring("999999"))
		Expect(err.Error()).To(ContainSubstring("净值数据"))
	})

	It("rejects a fund whose prices would mostly be carried forward", func() {
		provider.series["000003"] = monthlySeries("000003", 2021, 1, 4, 1.0)
		_, err := manager.GetSnapshot(ctx, []string{"000001", "000003"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).To(MatchError(data.ErrStaleDataExceeded))
	})

	It("aligns funds whose final trading days inside a month differ", func() {
		// 000005 last prints one trading day before 000006 every month; the
		// calendar month-end labels still line the two series up
		early := &data.AssetSeries{Code: "000005"}
		late := &data.AssetSeries{Code: "000006"}
		for idx := 0; idx < 12; idx++ {
			monthEnd := time.Date(2023, time.Month(2+idx+1), 0, 0, 0, 0, 0, time.UTC)
			early.Dates = append(early.Dates, monthEnd.AddDate(0, 0, -1))
			early.NAV = append(early.NAV, 1.0+0.01*float64(idx))
			late.Dates = append(late.Dates, monthEnd)
			late.NAV = append(late.NAV, 2.0+0.02*float64(idx))
		}
		provider.series["000005"] = early
		provider.series["000006"] = late

		snapshot, err := manager.GetSnapshot(ctx, []string{"000005", "000006"},
			time.Date(2023, 2, 27, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(snapshot.NAV.Len()).To(Equal(12))
		Expect(snapshot.NAV.End()).To(Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
		Expect(snapshot.NAV.Col("000005")[11]).To(BeNumerically("~", 1.11, 1e-12))
		Expect(snapshot.NAV.Col("000006")[11]).To(BeNumerically("~", 2.22, 1e-12))
	})

	It("serves repeated requests from the snapshot cache", func() {
		common.SetupCache()

		begin := time.Date(2021, 2, 28, 0, 0, 0, 0, time.UTC)
		end := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
		first, err := manager.GetSnapshot(ctx, []string{"000001"}, begin, end, nil)
		Expect(err).ToNot(HaveOccurred())

		// the provider losing the fund no longer matters
		delete(provider.series, "000001")
		second, err := manager.GetSnapshot(ctx, []string{"000001"}, begin, end, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(second.NAV.Len()).To(Equal(first.NAV.Len()))
		Expect(second.NAV.Col("000001")).To(Equal(first.NAV.Col("000001")))
	})

	It("rejects a fund with too little overlapping history", func() {
		provider.series["000004"] = monthlySeries("000004", 2021, 11, 2, 1.0)
		_, err := manager.GetSnapshot(ctx, []string{"000001", "000004"},
			time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), nil)
		Expect(err).To(MatchError(data.ErrInsufficientHistory))
	})
})
