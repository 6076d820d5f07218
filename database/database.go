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

package database

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxConn is the subset of the pgxpool API the data layer relies on; it
// enables swapping the pool for a mock in tests.
type PgxConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

var pool PgxConn

// Connect opens a pgx connection pool using the database.url configuration key
func Connect(ctx context.Context) error {
	url := viper.GetString("database.url")
	subLog := log.With().Str("Url", url).Logger()

	p, err := pgxpool.Connect(ctx, url)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not connect to database")
		return err
	}

	pool = p
	subLog.Info().Msg("connected to database")
	return nil
}

// SetPool overrides the connection pool; used by tests
func SetPool(p PgxConn) {
	pool = p
}

// Pool returns the active connection pool
func Pool() PgxConn {
	return pool
}
