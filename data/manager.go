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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/dataframe"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
)

// Snapshot is an immutable month-end NAV table for one analysis request.
// It is safe to share across concurrent simulation runs; runs never mutate it.
type Snapshot struct {
	NAV      *dataframe.DataFrame `json:"nav"`
	Names    map[string]string    `json:"names"`
	Warnings []string             `json:"warnings"`
}

// Manager resolves fund codes to clean monthly snapshots
type Manager struct {
	// MinObservations is the smallest acceptable number of NAV observations
	// per fund within the requested range
	MinObservations int

	// StaleLimit is the largest acceptable fraction of carried-forward
	// periods per fund; above it the request fails with ErrStaleDataExceeded
	StaleLimit float64

	provider Provider
}

// NewManager creates a data manager on top of the given provider
func NewManager(provider Provider) *Manager {
	return &Manager{
		MinObservations: 3,
		StaleLimit:      1.0 / 3.0,
		provider:        provider,
	}
}

// Provider returns the underlying NAV provider
func (m *Manager) Provider() Provider {
	return m.provider
}

type snapshotKey struct {
	Codes        []string `json:"codes"`
	Begin        string   `json:"begin"`
	End          string   `json:"end"`
	RiskFreeRate *float64 `json:"risk_free_rate"`
}

// GetSnapshot builds (or loads from cache) the month-end NAV snapshot for the
// requested codes and range. When riskFreeRate is non-nil a synthetic
// RiskFree column is appended. Non-overlapping history is cut to the common
// window and reported through Snapshot.Warnings.
func (m *Manager) GetSnapshot(ctx context.Context, codes []string, begin, end time.Time, riskFreeRate *float64) (*Snapshot, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "data.GetSnapshot")
	defer span.End()

	if len(codes) == 0 && riskFreeRate == nil {
		return nil, ErrNoAssets
	}
	if !end.IsZero() && !begin.IsZero() && end.Before(begin) {
		return nil, ErrBeginAfterEnd
	}

	key := common.HashKey("navsnap", snapshotKey{
		Codes:        codes,
		Begin:        begin.Format("2006-01-02"),
		End:          end.Format("2006-01-02"),
		RiskFreeRate: riskFreeRate,
	})
	if raw, err := common.CacheGet(key); err == nil && len(raw) > 0 {
		snapshot := &Snapshot{}
		if err := json.Unmarshal(raw, snapshot); err == nil {
			return snapshot, nil
		}
		log.Warn().Str("Key", key).Msg("discarding unreadable cached snapshot")
	}

	snapshot, err := m.buildSnapshot(ctx, codes, begin, end, riskFreeRate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "could not build snapshot")
		return nil, err
	}

	if raw, err := json.Marshal(snapshot); err == nil {
		if err := common.CacheSet(key, raw); err != nil {
			log.Warn().Stack().Err(err).Msg("could not store snapshot in cache")
		}
	}

	return snapshot, nil
}

func (m *Manager) buildSnapshot(ctx context.Context, codes []string, begin, end time.Time, riskFreeRate *float64) (*Snapshot, error) {
	subLog := log.With().Strs("Codes", codes).Time("Begin", begin).Time("End", end).Logger()

	names := make(map[string]string, len(codes)+1)
	warnings := []string{}
	frames := make([]*dataframe.DataFrame, 0, len(codes))

	for _, code := range codes {
		series, err := m.provider.NAVSeries(ctx, code, begin, end)
		if err != nil {
			subLog.Error().Stack().Err(err).Str("Code", code).Msg("could not load nav series")
			return nil, fmt.Errorf("获取基金 %s 的净值数据时发生错误: %w", code, err)
		}

		if series.Name != "" {
			names[code] = series.Name
		} else if name, err := m.provider.FundName(ctx, code); err == nil {
			names[code] = name
		} else {
			names[code] = fmt.Sprintf("%s (名称未找到)", code)
		}

		df := dataframe.New(code)
		for idx := range series.Dates {
			df.Append(series.Dates[idx], series.NAV[idx])
		}
		frames = append(frames, df.Frequency(dataframe.MonthEnd))
	}

	var nav *dataframe.DataFrame
	if len(frames) > 0 {
		nav = dataframe.Merge(frames...)
	}

	// establish the effective window. Funds that incept after the requested
	// start shrink the window; that is reported as a warning, not an error.
	userStart := begin
	userEnd := end
	actualStart := userStart
	actualEnd := userEnd

	if nav != nil && nav.Len() > 0 {
		latestInception := time.Time{}
		for _, code := range codes {
			col := nav.Col(code)
			for rowIdx, v := range col {
				if !math.IsNaN(v) {
					if nav.Dates[rowIdx].After(latestInception) {
						latestInception = nav.Dates[rowIdx]
					}
					break
				}
			}
		}

		if userStart.IsZero() {
			userStart = latestInception
		}
		if userEnd.IsZero() {
			userEnd = nav.End()
		}
		actualStart = userStart
		if latestInception.After(actualStart) {
			actualStart = latestInception
		}
		actualEnd = userEnd
		if nav.End().Before(actualEnd) {
			actualEnd = nav.End()
		}

		if actualStart.After(userStart) {
			warnings = append(warnings, fmt.Sprintf(
				"注意：部分基金在您选择的开始日期 %s 尚未成立，实际回测已从 %s 开始。",
				userStart.Format("2006-01-02"), actualStart.Format("2006-01-02")))
		}
	} else {
		if begin.IsZero() || end.IsZero() {
			return nil, ErrDateRangeEmpty
		}
		nav = &dataframe.DataFrame{
			Dates:    MonthEnds(begin, end),
			ColNames: []string{},
			Vals:     [][]float64{},
		}
	}

	if !actualStart.Before(actualEnd) {
		return nil, ErrDateRangeEmpty
	}

	nav.Trim(actualStart, actualEnd)
	if nav.Len() == 0 {
		return nil, ErrDateRangeEmpty
	}

	// stale guard: count the cells that forward fill would fabricate
	for _, code := range codes {
		filled := nav.CountFilled(code)
		stale := float64(nav.Len()-filled) / float64(nav.Len())
		if stale > m.StaleLimit {
			subLog.Error().Str("Code", code).Float64("StaleFraction", stale).Msg("stale data limit exceeded")
			return nil, fmt.Errorf("%w: %s", ErrStaleDataExceeded, code)
		}
		if filled < m.MinObservations {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientHistory, code)
		}
	}

	nav.ForwardFill().DropNA()
	if nav.Len() == 0 {
		return nil, ErrDateRangeEmpty
	}

	if riskFreeRate != nil {
		nav.AddColumn(RiskFreeCode, RiskFreeNAV(nav.Dates, *riskFreeRate))
		names[RiskFreeCode] = RiskFreeName
	}

	return &Snapshot{
		NAV:      nav,
		Names:    names,
		Warnings: warnings,
	}, nil
}
