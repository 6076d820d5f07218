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
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// eastmoney retrieves open-end fund NAV series from an eastmoney-compatible
// NAV mirror. Responses are cached per (code, range) for the process lifetime
// because published NAV history is immutable.
type eastmoney struct {
	baseURL string
	client  *http.Client
	cache   map[string]*AssetSeries
	names   map[string]string
	lock    sync.RWMutex
}

type eastmoneyNAVItem struct {
	Date string  `json:"date"`
	NAV  float64 `json:"nav"`
}

type eastmoneyNAVResponse struct {
	Code  string             `json:"code"`
	Name  string             `json:"name"`
	Items []eastmoneyNAVItem `json:"items"`
}

// NewEastmoney creates a new eastmoney NAV provider. The base URL is read
// from the data.base_url configuration key when url is empty.
func NewEastmoney(url string) Provider {
	if url == "" {
		url = viper.GetString("data.base_url")
	}
	return &eastmoney{
		baseURL: url,
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   make(map[string]*AssetSeries),
		names:   make(map[string]string),
	}
}

func (e *eastmoney) Name() string {
	return "eastmoney"
}

// RefreshCatalog drops the cached fund names so renames propagate; NAV
// history is immutable and stays cached.
func (e *eastmoney) RefreshCatalog(_ context.Context) error {
	e.lock.Lock()
	e.names = make(map[string]string)
	e.lock.Unlock()
	return nil
}

func (e *eastmoney) FundName(ctx context.Context, code string) (string, error) {
	e.lock.RLock()
	if name, ok := e.names[code]; ok {
		e.lock.RUnlock()
		return name, nil
	}
	e.lock.RUnlock()

	url := fmt.Sprintf("%s/api/fund/%s", e.baseURL, code)
	var fund Fund
	if err := e.getJSON(ctx, url, &fund); err != nil {
		return "", err
	}
	if fund.Name == "" {
		return "", ErrNotFound
	}

	e.lock.Lock()
	e.names[code] = fund.Name
	e.lock.Unlock()
	return fund.Name, nil
}

func (e *eastmoney) NAVSeries(ctx context.Context, code string, begin, end time.Time) (*AssetSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "eastmoney.NAVSeries")
	defer span.End()

	span.SetAttributes(
		attribute.KeyValue{
			Key:   "Code",
			Value: attribute.StringValue(code),
		},
	)

	if end.Before(begin) {
		return nil, ErrBeginAfterEnd
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", code, begin.Format("2006-01-02"), end.Format("2006-01-02"))
	e.lock.RLock()
	if series, ok := e.cache[cacheKey]; ok {
		e.lock.RUnlock()
		return series, nil
	}
	e.lock.RUnlock()

	subLog := log.With().Str("Code", code).Time("Begin", begin).Time("End", end).Logger()
	url := fmt.Sprintf("%s/api/fund/%s/nav?start=%s&end=%s", e.baseURL, code,
		begin.Format("2006-01-02"), end.Format("2006-01-02"))

	var payload eastmoneyNAVResponse
	if err := e.getJSON(ctx, url, &payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nav request failed")
		subLog.Error().Stack().Err(err).Msg("could not retrieve nav series")
		return nil, err
	}

	series := &AssetSeries{
		Code:  code,
		Name:  payload.Name,
		Dates: make([]time.Time, 0, len(payload.Items)),
		NAV:   make([]float64, 0, len(payload.Items)),
	}

	for _, item := range payload.Items {
		dt, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			subLog.Warn().Stack().Err(err).Str("Date", item.Date).Msg("skipping nav item with unparsable date")
			continue
		}
		// dates must be strictly increasing; the mirror occasionally repeats
		// the latest observation
		if n := len(series.Dates); n > 0 && !series.Dates[n-1].Before(dt) {
			continue
		}
		series.Dates = append(series.Dates, dt)
		series.NAV = append(series.NAV, item.NAV)
	}

	if len(series.Dates) == 0 {
		return nil, ErrNotFound
	}

	e.lock.Lock()
	e.cache[cacheKey] = series
	if payload.Name != "" {
		e.names[code] = payload.Name
	}
	e.lock.Unlock()

	return series, nil
}

func (e *eastmoney) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Str("Url", url).Msg("nav provider returned invalid response code")
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return ErrProviderStatus
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}
