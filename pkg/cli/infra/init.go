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

// Package infra provides operations and definitions for the
// local infrastructure for OliWorks
package infra

import (
	"database/sql"
	"fmt"

	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/config"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/log"
	"github.com/oliworks/oliworks/pkg/cli/utils"
	"github.com/oliworks/oliworks/pkg/clock"
	"github.com/oliworks/oliworks/pkg/dirs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	// DefaultAPIEndpoint is the default API endpoint used when none is configured
	DefaultAPIEndpoint = "http://localhost:3001/api"

	// currentSchemaVersion is the version of the local database schema
	currentSchemaVersion = 1
)

// RunEFunc is a function type of oliworks commands
type RunEFunc func(*cobra.Command, []string) error

func getDBPath(paths context.Paths, customPath string) string {
	if customPath != "" {
		return customPath
	}

	return fmt.Sprintf("%s/%s/%s", paths.Data, consts.OliworksDirName, consts.OliworksDBFileName)
}

// newBaseCtx creates a minimal context with paths and database connection.
// This base context is used for file and database initialization before
// being enriched with config values by setupCtx.
func newBaseCtx(versionTag, customDBPath string) (context.OliCtx, error) {
	paths := context.Paths{
		Home:   dirs.Home,
		Config: dirs.ConfigHome,
		Data:   dirs.DataHome,
		Cache:  dirs.CacheHome,
	}

	if err := context.InitDirs(paths); err != nil {
		return context.OliCtx{}, errors.Wrap(err, "creating directories")
	}

	dbPath := getDBPath(paths, customDBPath)

	db, err := database.Open(dbPath)
	if err != nil {
		return context.OliCtx{}, errors.Wrap(err, "connecting to db")
	}

	ctx := context.OliCtx{
		Paths:   paths,
		Version: versionTag,
		DB:      db,
	}

	return ctx, nil
}

// Init initializes the OliWorks environment and returns a new context.
// apiEndpoint is used when creating a new config file.
func Init(versionTag, apiEndpoint, dbPath string) (*context.OliCtx, error) {
	ctx, err := newBaseCtx(versionTag, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	if err := initConfigFile(ctx, apiEndpoint); err != nil {
		return nil, errors.Wrap(err, "initializing config file")
	}

	if err := database.InitSchema(ctx.DB); err != nil {
		return nil, errors.Wrap(err, "initializing database")
	}
	if err := InitSystem(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing system data")
	}

	ctx, err = setupCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setting up the context")
	}

	log.Debug("context: %+v\n", context.Redact(ctx))

	return &ctx, nil
}

// initConfigFile populates a config file if it does not exist
func initConfigFile(ctx context.OliCtx, apiEndpoint string) error {
	path := config.GetPath(ctx)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking config file")
	}
	if ok {
		return nil
	}

	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}

	cf := config.Config{
		APIEndpoint: apiEndpoint,
	}

	if err := config.Write(ctx, cf); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// setupCtx enriches the base context with values from config file and database.
// This is called after files and database have been initialized.
func setupCtx(ctx context.OliCtx) (context.OliCtx, error) {
	db := ctx.DB

	var sessionKey string
	var sessionKeyExpiry int64
	var userID string

	err := db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKey).Scan(&sessionKey)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key")
	}
	err = db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKeyExpiry).Scan(&sessionKeyExpiry)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key expiry")
	}
	err = db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemUserID).Scan(&userID)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding user id")
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	ret := context.OliCtx{
		Paths:            ctx.Paths,
		Version:          ctx.Version,
		DB:               ctx.DB,
		SessionKey:       sessionKey,
		SessionKeyExpiry: sessionKeyExpiry,
		UserID:           userID,
		APIEndpoint:      cf.APIEndpoint,
		Clock:            clock.New(),
		HTTPClient:       client.NewRateLimitedHTTPClient(),
	}

	return ret, nil
}

func initSystemKV(db *database.DB, key string, val string) error {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM system WHERE key = ?", key).Scan(&count); err != nil {
		return errors.Wrapf(err, "counting %s", key)
	}

	if count > 0 {
		return nil
	}

	if _, err := db.Exec("INSERT INTO system (key, value) VALUES (?, ?)", key, val); err != nil {
		db.Rollback()
		return errors.Wrapf(err, "inserting %s %s", key, val)
	}

	return nil
}

// InitSystem inserts system data if missing. Pull watermarks start at
// the epoch so the first sync fetches everything.
func InitSystem(ctx context.OliCtx) error {
	log.Debug("initializing the system\n")

	db := ctx.DB

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	for _, key := range consts.WatermarkKeys {
		if err := initSystemKV(tx, key, ""); err != nil {
			return errors.Wrapf(err, "initializing system config for %s", key)
		}
	}

	if err := checkSchemaVersion(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "checking schema version")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// checkSchemaVersion records the schema version on a fresh database and
// refuses to run against a database written by a newer version.
func checkSchemaVersion(tx *database.DB) error {
	var version int
	err := database.GetSystem(tx, consts.SystemSchema, &version)
	if errors.Cause(err) == sql.ErrNoRows {
		return database.UpsertSystem(tx, consts.SystemSchema, currentSchemaVersion)
	} else if err != nil {
		return errors.Wrap(err, "getting schema version")
	}

	if version > currentSchemaVersion {
		return errors.Errorf("database schema %d is newer than the supported schema %d", version, currentSchemaVersion)
	}

	return nil
}
