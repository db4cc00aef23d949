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

package login

import (
	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/infra"
	"github.com/oliworks/oliworks/pkg/cli/log"
	"github.com/oliworks/oliworks/pkg/cli/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
  oliworks login`

var apiEndpointFlag string

// NewCmd returns a new login command
func NewCmd(ctx context.OliCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Login to the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do authenticates against the server and saves the session locally
func Do(ctx context.OliCtx, email, password string) error {
	resp, err := client.Signin(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "requesting login")
	}

	ctx.SessionKey = resp.Key

	me, err := client.GetMe(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching user")
	}

	db := ctx.DB
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if err := database.UpsertSystem(tx, consts.SystemSessionKey, resp.Key); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "saving session key")
	}
	if err := database.UpsertSystem(tx, consts.SystemSessionKeyExpiry, resp.ExpiresAt); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "saving session key expiry")
	}
	if err := database.UpsertSystem(tx, consts.SystemUserID, me.User.UUID); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "saving user id")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

func newRun(ctx context.OliCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		var email, password string
		if err := ui.PromptInput("email", &email); err != nil {
			return errors.Wrap(err, "getting email input")
		}
		if email == "" {
			return errors.New("email is empty")
		}

		if err := ui.PromptPassword("password", &password); err != nil {
			return errors.Wrap(err, "getting password input")
		}
		if password == "" {
			return errors.New("password is empty")
		}

		err := Do(ctx, email, password)
		if err == client.ErrInvalidLogin {
			log.Error("wrong credentials\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "logging in")
		}

		log.Success("logged in\n")

		return nil
	}
}
