/* Copyright 2025 OliWorks Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/oliworks/oliworks/pkg/clock"
	"github.com/oliworks/oliworks/pkg/server/app"
	"github.com/oliworks/oliworks/pkg/server/buildinfo"
	"github.com/oliworks/oliworks/pkg/server/config"
	"github.com/oliworks/oliworks/pkg/server/controllers"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

func initApp(cfg config.Config) app.App {
	db := database.Open(cfg.DatabaseURL)
	database.InitSchema(db)

	return app.App{
		DB:                  db,
		Clock:               clock.New(),
		DisableRegistration: cfg.DisableRegistration,
	}
}

// startSessionPurge deletes expired sessions on a schedule
func startSessionPurge(a *app.App) *cron.Cron {
	c := cron.New()
	c.AddFunc("@hourly", func() {
		count, err := a.PurgeExpiredSessions()
		if err != nil {
			log.ErrorWrap(err, "purging expired sessions")
			return
		}

		if count > 0 {
			log.WithFields(log.Fields{
				"count": count,
			}).Info("purged expired sessions")
		}
	})
	c.Start()

	return c
}

func startCmd(args []string) {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	startFlags.Usage = func() {
		fmt.Printf(`Usage:
  oliworks-server start [flags]

Flags:
`)
		startFlags.PrintDefaults()
	}

	appEnv := startFlags.String("appEnv", "", "Application environment (env: APP_ENV, default: PRODUCTION)")
	port := startFlags.String("port", "", "Server port (env: PORT, default: 3001)")
	databaseURL := startFlags.String("databaseUrl", "", "Postgres connection string (env: DATABASE_URL)")
	disableRegistration := startFlags.Bool("disableRegistration", false, "Disable user registration (env: DISABLE_REGISTRATION, default: false)")
	logLevel := startFlags.String("logLevel", "", "Log level: debug, info, warn, or error (env: LOG_LEVEL, default: info)")

	startFlags.Parse(args)

	cfg, err := config.New(config.Params{
		AppEnv:              *appEnv,
		Port:                *port,
		DatabaseURL:         *databaseURL,
		DisableRegistration: *disableRegistration,
		LogLevel:            *logLevel,
	})
	if err != nil {
		fmt.Printf("Error: %s\n\n", err)
		startFlags.Usage()
		os.Exit(1)
	}

	log.SetLevel(cfg.LogLevel)

	app := initApp(cfg)
	defer func() {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}()

	sessionPurge := startSessionPurge(&app)
	defer sessionPurge.Stop()

	ctl := controllers.New(&app)
	rc := controllers.RouteConfig{
		APIRoutes:   controllers.NewAPIRoutes(&app, ctl),
		Controllers: ctl,
	}

	r, err := controllers.NewRouter(&app, rc)
	if err != nil {
		panic(errors.Wrap(err, "initializing router"))
	}

	log.WithFields(log.Fields{
		"version": buildinfo.Version,
		"port":    cfg.Port,
	}).Info("OliWorks server starting")

	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.ErrorWrap(err, "server failed")
		os.Exit(1)
	}
}

func versionCmd() {
	fmt.Printf("oliworks-server-%s\n", buildinfo.Version)
}

func rootCmd() {
	fmt.Printf(`OliWorks server - sync backend for the production tracker

Usage:
  oliworks-server [command] [flags]

Available commands:
  start: Start the server (use 'oliworks-server start --help' for flags)
  version: Print the version
`)
}

func main() {
	// Missing .env is fine; configuration falls back to the environment
	godotenv.Load()

	if len(os.Args) < 2 {
		rootCmd()
		return
	}

	cmd := os.Args[1]

	switch cmd {
	case "start":
		startCmd(os.Args[2:])
	case "version":
		versionCmd()
	default:
		fmt.Printf("Unknown command %s\n", cmd)
		rootCmd()
		os.Exit(1)
	}
}
