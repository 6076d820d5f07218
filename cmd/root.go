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

package cmd

import (
	"fmt"
	"os"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/database"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Cache
	viper.BindEnv("cache.redis_url", "REDIS_URL")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis connection string for the shared cache tier")
	viper.BindPFlag("cache.redis_url", rootCmd.PersistentFlags().Lookup("redis-url"))

	// Data provider
	viper.BindEnv("data.provider", "QC_DATA_PROVIDER")
	rootCmd.PersistentFlags().String("data-provider", "eastmoney", "NAV provider, one of: eastmoney, navdb")
	viper.BindPFlag("data.provider", rootCmd.PersistentFlags().Lookup("data-provider"))

	viper.BindEnv("data.base_url", "QC_DATA_BASE_URL")
	rootCmd.PersistentFlags().String("data-base-url", "", "Base URL of the eastmoney NAV mirror")
	viper.BindPFlag("data.base_url", rootCmd.PersistentFlags().Lookup("data-base-url"))

	// Logging configuration
	viper.BindEnv("log.level", "QC_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "QC_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "QC_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))
}

var rootCmd = &cobra.Command{
	Use:     "quant-compass",
	Version: common.CurrentVersion.String(),
	Short:   "Quant Compass is a fund portfolio analysis engine",
	Long: `A fund portfolio analysis and strategy backtest engine: efficient
frontier optimization, multi-strategy historical replay with fee semantics,
and next-period rebalancing recommendations.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newDataManager builds the data manager for the configured provider
func newDataManager(cmd *cobra.Command) (*data.Manager, error) {
	switch viper.GetString("data.provider") {
	case "navdb":
		if err := database.Connect(cmd.Context()); err != nil {
			return nil, err
		}
		return data.NewManager(data.NewNavDB()), nil
	default:
		return data.NewManager(data.NewEastmoney("")), nil
	}
}
