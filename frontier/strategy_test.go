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

package frontier_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/frontier"
	"github.com/KLOSYX/quant-compass/simulation"
)

var _ = Describe("StrategyFrontier", func() {
	var (
		front *frontier.Frontier
		nav   *dataframe.DataFrame
	)

	BeforeEach(func() {
		var err error
		front, err = frontier.Compute(threeFundUniverse(), nil)
		Expect(err).ToNot(HaveOccurred())

		nav = dataframe.New("000001", "000002", "000003")
		levels := []float64{1.0, 1.0, 1.0}
		for idx := 0; idx < 24; idx++ {
			dt := time.Date(2021, time.Month(idx+2), 0, 0, 0, 0, 0, time.UTC)
			nav.Append(dt, levels[0], levels[1], levels[2])
			levels[0] *= 1.002
			if idx%2 == 0 {
				levels[1] *= 1.03
				levels[2] *= 1.08
			} else {
				levels[1] *= 0.98
				levels[2] *= 0.95
			}
		}
	})

	It("replays every frontier point through the DCA simulator", func() {
		points, err := frontier.StrategyFrontier(
			context.Background(), front, nav, simulation.FeeSchedule{}, nil, 1000)
		Expect(err).ToNot(HaveOccurred())
		Expect(points).To(HaveLen(len(front.Points)))

		for idx, sp := range points {
			Expect(sp.Return).To(BeNumerically("==", front.Points[idx].Return))
			Expect(sp.Weights).To(Equal(front.Points[idx].Weights))
			Expect(sp.OriginalRisk).To(BeNumerically("==", front.Points[idx].Risk))
			Expect(sp.Risk).To(BeNumerically(">=", 0))
			Expect(sp.MaxDrawdown).To(BeNumerically("<=", 0))
		}
	})

	It("propagates a simulation failure", func() {
		_, err := frontier.StrategyFrontier(
			context.Background(), front, dataframe.New("000001"), simulation.FeeSchedule{}, nil, 1000)
		Expect(err).To(MatchError(simulation.ErrNoPeriods))
	})
})
