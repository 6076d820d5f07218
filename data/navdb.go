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
	"time"

	"github.com/KLOSYX/quant-compass/database"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// NavDB reads fund NAV series from the local Postgres mirror. Table layout:
//
//	funds(fund_code text primary key, fund_name text)
//	nav(fund_code text, event_date date, nav double precision)
type NavDB struct{}

// NewNavDB creates a new database-backed NAV provider
func NewNavDB() *NavDB {
	return &NavDB{}
}

func (p *NavDB) Name() string {
	return "navdb"
}

func (p *NavDB) FundName(ctx context.Context, code string) (string, error) {
	var name string
	row := database.Pool().QueryRow(ctx, "SELECT fund_name FROM funds WHERE fund_code=$1", code)
	if err := row.Scan(&name); err != nil {
		log.Warn().Stack().Err(err).Str("Code", code).Msg("fund not present in catalog")
		return "", ErrNotFound
	}
	return name, nil
}

func (p *NavDB) NAVSeries(ctx context.Context, code string, begin, end time.Time) (*AssetSeries, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "navdb.NAVSeries")
	defer span.End()

	subLog := log.With().Str("Code", code).Time("Begin", begin).Time("End", end).Logger()

	if end.Before(begin) {
		return nil, ErrBeginAfterEnd
	}

	name, err := p.FundName(ctx, code)
	if err != nil {
		return nil, err
	}

	rows, err := database.Pool().Query(ctx,
		"SELECT event_date, nav FROM nav WHERE fund_code=$1 AND event_date BETWEEN $2 AND $3 ORDER BY event_date",
		code, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query nav series")
		return nil, err
	}
	defer rows.Close()

	series := &AssetSeries{
		Code:  code,
		Name:  name,
		Dates: []time.Time{},
		NAV:   []float64{},
	}

	for rows.Next() {
		var dt time.Time
		var nav float64
		if err := rows.Scan(&dt, &nav); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not scan nav row")
			return nil, err
		}
		dt = time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
		series.Dates = append(series.Dates, dt)
		series.NAV = append(series.NAV, nav)
	}

	if len(series.Dates) == 0 {
		span.SetStatus(codes.Error, "no nav rows found")
		return nil, ErrNotFound
	}

	return series, nil
}
