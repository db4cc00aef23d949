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

// Package sync pushes dirty local records to the backend and pulls
// remote changes since the per-collection watermark. Loss of
// connectivity degrades every operation to the local collection.
package sync

import (
	"database/sql"
	stdsync "sync"

	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/log"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

// ErrNotLoggedIn is an error for trying to sync without login
var ErrNotLoggedIn = errors.New("not logged in")

// watermarkEpoch is the watermark before the first successful pull
const watermarkEpoch = "1970-01-01T00:00:00.000Z"

// clockSkewBackoffMs widens the pull window to absorb clock skew
// between the client and the backend
const clockSkewBackoffMs = 2000

var inFlightMu stdsync.Mutex
var inFlight = map[string]bool{}

// acquire reports whether a sync for the collection may start. A sync
// already in flight makes the new attempt a no-op.
func acquire(collection string) bool {
	inFlightMu.Lock()
	defer inFlightMu.Unlock()

	if inFlight[collection] {
		return false
	}
	inFlight[collection] = true
	return true
}

func release(collection string) {
	inFlightMu.Lock()
	defer inFlightMu.Unlock()

	delete(inFlight, collection)
}

func checkLogin(ctx context.OliCtx) error {
	if ctx.SessionKey == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// readWatermark returns the last pull watermark of a collection. A
// missing or blank value means the collection was never pulled.
func readWatermark(ctx context.OliCtx, collection string) (string, error) {
	var raw string
	err := database.GetSystem(ctx.DB, consts.WatermarkKeys[collection], &raw)
	if errors.Cause(err) == sql.ErrNoRows {
		return watermarkEpoch, nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading watermark for %s", collection)
	}
	if raw == "" {
		return watermarkEpoch, nil
	}

	return raw, nil
}

// pullWindowStart widens the watermark backwards to absorb clock skew
func pullWindowStart(watermark string) string {
	ms := records.ToMs(watermark) - clockSkewBackoffMs
	if ms < 0 {
		ms = 0
	}
	return records.ToISO(ms)
}

// maxISO returns the later of the two timestamps. Blank candidates
// never win.
func maxISO(cur, candidate string) string {
	if candidate == "" {
		return cur
	}
	if records.ToMs(candidate) > records.ToMs(cur) {
		return candidate
	}
	return cur
}

func writeWatermark(ctx context.OliCtx, collection, value string) error {
	if err := database.UpsertSystem(ctx.DB, consts.WatermarkKeys[collection], value); err != nil {
		return errors.Wrapf(err, "writing watermark for %s", collection)
	}
	return nil
}

// handlePullErr absorbs connectivity failures so a pull degrades to the
// local collection. Anything else propagates.
func handlePullErr(collection string, err error) error {
	if err == nil {
		return nil
	}
	if client.IsOffline(err) {
		log.Debug("offline, skipping pull for %s: %v\n", collection, err)
		return nil
	}
	return errors.Wrapf(err, "pulling %s", collection)
}

func nowMs(ctx context.OliCtx) int64 {
	return ctx.Clock.Now().UnixMilli()
}

func nowISO(ctx context.OliCtx) string {
	return records.ToISO(nowMs(ctx))
}
