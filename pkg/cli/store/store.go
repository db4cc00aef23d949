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

// Package store is the caller-facing local persistence layer. Every
// load normalizes the stored collection and persists the normalized
// form back when it differs (self-healing on read). Mutations flag the
// record dirty; only the sync engine clears the flag.
package store

import (
	"encoding/json"

	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/log"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

func nowMs(ctx context.OliCtx) int64 {
	return ctx.Clock.Now().UnixMilli()
}

func nowISO(ctx context.OliCtx) string {
	return records.ToISO(nowMs(ctx))
}

// loadRaw reads the stored form of a collection. A corrupted value is
// treated as an empty collection rather than an error.
func loadRaw(ctx context.OliCtx, key string) json.RawMessage {
	var raw json.RawMessage
	if err := database.GetJSON(ctx.DB, key, &raw); err != nil {
		log.Debug("resetting corrupted collection %s: %v\n", key, err)
		return nil
	}

	return raw
}

// selfHeal persists the normalized collection back when it differs from
// what was stored. Write failures here are logged, not propagated, since
// the caller already got a usable collection.
func selfHeal(ctx context.OliCtx, key string, raw json.RawMessage, normalized interface{}) {
	b, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	if string(raw) == string(b) {
		return
	}

	if err := database.SetJSON(ctx.DB, key, normalized); err != nil {
		log.Debug("persisting normalized collection %s: %v\n", key, err)
	}
}

func saveCollection(ctx context.OliCtx, key string, items interface{}) error {
	if err := database.SetJSON(ctx.DB, key, items); err != nil {
		return errors.Wrapf(err, "saving collection %s", key)
	}

	return nil
}
