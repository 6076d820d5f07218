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
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/KLOSYX/quant-compass/common"
	"github.com/KLOSYX/quant-compass/data"
	"github.com/KLOSYX/quant-compass/handler"
	"github.com/KLOSYX/quant-compass/middleware"
	"github.com/KLOSYX/quant-compass/observability/opentelemetry"
	"github.com/KLOSYX/quant-compass/router"

	"github.com/go-co-op/gocron"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.SetDefault("server.cors_origins", "*")

	viper.BindEnv("otlp.endpoint", "OTLP_ENDPOINT")
	serveCmd.Flags().String("otlp-endpoint", "", "OTLP trace collector endpoint; empty disables tracing export")
	viper.BindPFlag("otlp.endpoint", serveCmd.Flags().Lookup("otlp-endpoint"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the quant-compass API server",
	Long:  `Run the HTTP server that implements the portfolio analysis API`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		if viper.GetString("otlp.endpoint") != "" {
			shutdown, err := opentelemetry.Setup()
			if err != nil {
				log.Fatal().Err(err).Msg("could not initialize tracing")
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Error().Err(err).Msg("tracer shutdown failed")
				}
			}()
		}

		manager, err := newDataManager(cmd)
		if err != nil {
			log.Fatal().Err(err).Msg("could not initialize data manager")
		}
		log.Info().Str("Provider", manager.Provider().Name()).Msg("initialized data framework")

		app := fiber.New(fiber.Config{
			ErrorHandler: handler.ErrorHandler,
			JSONEncoder:  json.Marshal,
			JSONDecoder:  json.Unmarshal,
		})

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c
			log.Info().Str("Signal", sig.String()).Msg("shutting down")
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("server shutdown failed")
			}
		}()

		app.Use(cors.New(cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}))
		app.Use(middleware.NewLogger())

		router.SetupRoutes(app, manager)

		// keep the fund catalog fresh while the server runs
		if refresher, ok := manager.Provider().(data.CatalogRefresher); ok {
			scheduler := gocron.NewScheduler(time.Local)
			scheduler.Every(1).Hours().Do(func() {
				if err := refresher.RefreshCatalog(context.Background()); err != nil {
					log.Warn().Stack().Err(err).Msg("fund catalog refresh failed")
				}
			})
			scheduler.StartAsync()
		}

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	},
}
