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

// Package context defines oliworks context
package context

import (
	"net/http"
	"path/filepath"

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/utils"
	"github.com/oliworks/oliworks/pkg/clock"
	"github.com/pkg/errors"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
	Cache  string
}

// OliCtx is a context holding the information of the current runtime
type OliCtx struct {
	Paths            Paths
	APIEndpoint      string
	Version          string
	DB               *database.DB
	SessionKey       string
	SessionKeyExpiry int64
	UserID           string
	Clock            clock.Clock
	HTTPClient       *http.Client
}

// Redact replaces private information from the context with a set of
// placeholder values.
func Redact(ctx OliCtx) OliCtx {
	var sessionKey string
	if ctx.SessionKey != "" {
		sessionKey = "1"
	} else {
		sessionKey = "0"
	}
	ctx.SessionKey = sessionKey

	return ctx
}

// InitDirs creates, if missing, the oliworks directories under the
// config and data homes.
func InitDirs(paths Paths) error {
	for _, base := range []string{paths.Config, paths.Data} {
		dir := filepath.Join(base, consts.OliworksDirName)
		if err := utils.EnsureDir(dir); err != nil {
			return errors.Wrapf(err, "creating directory at %s", dir)
		}
	}

	return nil
}
