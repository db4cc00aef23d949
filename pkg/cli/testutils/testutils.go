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

// Package testutils provides utilities used in tests
package testutils

import (
	"testing"
	"time"

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
)

// Login simulates a logged in user by inserting credentials in the local database
func Login(t *testing.T, ctx *context.OliCtx) {
	db := ctx.DB

	expiry := time.Now().Add(24 * time.Hour).Unix()

	database.MustExec(t, "inserting sessionKey", db, "INSERT INTO system (key, value) VALUES (?, ?)", consts.SystemSessionKey, "someSessionKey")
	database.MustExec(t, "inserting sessionKeyExpiry", db, "INSERT INTO system (key, value) VALUES (?, ?)", consts.SystemSessionKeyExpiry, expiry)
	database.MustExec(t, "inserting userID", db, "INSERT INTO system (key, value) VALUES (?, ?)", consts.SystemUserID, "test-user-uuid")

	ctx.SessionKey = "someSessionKey"
	ctx.SessionKeyExpiry = expiry
	ctx.UserID = "test-user-uuid"
}
