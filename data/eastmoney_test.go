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

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KLOSYX/quant-compass/data"
)

const mirrorURL = "http://mirror.test"

var _ = Describe("Eastmoney provider", func() {
	var (
		ctx      context.Context
		provider data.Provider
		begin    time.Time
		end      time.Time
	)

	BeforeEach(func() {
		httpmock.Activate()
		ctx = context.Background()
		provider = data.NewEastmoney(mirrorURL)
		begin = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Describe("NAVSeries", func() {
		It("parses the mirror payload", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/000001/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(200, `{
					"code": "000001",
					"name": "华夏成长混合",
					"items": [
						{"date": "2021-01-29", "nav": 1.10},
						{"date": "2021-02-26", "nav": 1.15},
						{"date": "2021-03-31", "nav": 1.08}
					]
				}`))

			series, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).ToNot(HaveOccurred())
			Expect(series.Code).To(Equal("000001"))
			Expect(series.Name).To(Equal("华夏成长混合"))
			Expect(series.Dates).To(HaveLen(3))
			Expect(series.Dates[0]).To(Equal(time.Date(2021, 1, 29, 0, 0, 0, 0, time.UTC)))
			Expect(series.NAV).To(Equal([]float64{1.10, 1.15, 1.08}))
		})

		It("drops repeated and unparsable dates", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/000001/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(200, `{
					"code": "000001",
					"items": [
						{"date": "2021-01-29", "nav": 1.10},
						{"date": "2021-01-29", "nav": 1.10},
						{"date": "not-a-date", "nav": 1.11},
						{"date": "2021-02-26", "nav": 1.15}
					]
				}`))

			series, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).ToNot(HaveOccurred())
			Expect(series.Dates).To(HaveLen(2))
			Expect(series.NAV).To(Equal([]float64{1.10, 1.15}))
		})

		It("caches a series for identical requests", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/000001/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(200, `{
					"code": "000001",
					"items": [{"date": "2021-01-29", "nav": 1.10}]
				}`))

			first, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).ToNot(HaveOccurred())
			second, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})

		It("maps a 404 to ErrNotFound", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/999999/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(404, `{"detail": "not found"}`))

			_, err := provider.NAVSeries(ctx, "999999", begin, end)
			Expect(err).To(MatchError(data.ErrNotFound))
		})

		It("maps a server failure to ErrProviderStatus", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/000001/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(500, "boom"))

			_, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).To(MatchError(data.ErrProviderStatus))
		})

		It("treats an empty series as not found", func() {
			httpmock.RegisterResponder("GET",
				mirrorURL+"/api/fund/000001/nav?start=2021-01-01&end=2021-03-31",
				httpmock.NewStringResponder(200, `{"code": "000001", "items": []}`))

			_, err := provider.NAVSeries(ctx, "000001", begin, end)
			Expect(err).To(MatchError(data.ErrNotFound))
		})

		It("rejects an inverted range without calling the mirror", func() {
			_, err := provider.NAVSeries(ctx, "000001", end, begin)
			Expect(err).To(MatchError(data.ErrBeginAfterEnd))
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})
	})

	Describe("FundName", func() {
		It("resolves and caches the catalog name", func() {
			httpmock.RegisterResponder("GET", mirrorURL+"/api/fund/000001",
				httpmock.NewStringResponder(200, `{"code": "000001", "name": "华夏成长混合"}`))

			name, err := provider.FundName(ctx, "000001")
			Expect(err).ToNot(HaveOccurred())
			Expect(name).To(Equal("华夏成长混合"))

			name, err = provider.FundName(ctx, "000001")
			Expect(err).ToNot(HaveOccurred())
			Expect(name).To(Equal("华夏成长混合"))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})

		It("treats a blank catalog entry as not found", func() {
			httpmock.RegisterResponder("GET", mirrorURL+"/api/fund/000001",
				httpmock.NewStringResponder(200, `{"code": "000001", "name": ""}`))

			_, err := provider.FundName(ctx, "000001")
			Expect(err).To(MatchError(data.ErrNotFound))
		})
	})

	Describe("RefreshCatalog", func() {
		It("drops cached names so renames propagate", func() {
			httpmock.RegisterResponder("GET", mirrorURL+"/api/fund/000001",
				httpmock.NewStringResponder(200, `{"code": "000001", "name": "华夏成长混合"}`))

			_, err := provider.FundName(ctx, "000001")
			Expect(err).ToNot(HaveOccurred())

			refresher, ok := provider.(data.CatalogRefresher)
			Expect(ok).To(BeTrue())
			Expect(refresher.RefreshCatalog(ctx)).To(Succeed())

			_, err = provider.FundName(ctx, "000001")
			Expect(err).ToNot(HaveOccurred())
			Expect(httpmock.GetTotalCallCount()).To(Equal(2))
		})
	})
})
