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

package store

import (
	"encoding/json"
	"sort"

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

// LoadAgenda returns the agenda collection, normalized
func LoadAgenda(ctx context.OliCtx) ([]records.AgendaEntry, error) {
	raw := loadRaw(ctx, consts.CollectionAgenda)

	var stored []records.AgendaEntry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.AgendaEntry, 0, len(stored))
	for _, e := range stored {
		items = append(items, records.NormalizeAgendaEntry(e, now))
	}

	selfHeal(ctx, consts.CollectionAgenda, raw, items)

	return items, nil
}

// SaveAgenda persists the agenda collection, normalizing every item
func SaveAgenda(ctx context.OliCtx, items []records.AgendaEntry) error {
	now := nowMs(ctx)
	norm := make([]records.AgendaEntry, 0, len(items))
	for _, e := range items {
		norm = append(norm, records.NormalizeAgendaEntry(e, now))
	}

	return saveCollection(ctx, consts.CollectionAgenda, norm)
}

// LoadAgendaAlive returns the non-deleted agenda entries ordered by date
func LoadAgendaAlive(ctx context.OliCtx) ([]records.AgendaEntry, error) {
	items, err := LoadAgenda(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading agenda")
	}

	var out []records.AgendaEntry
	for _, e := range items {
		if !e.Deleted() {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateLabel < out[j].DateLabel
	})

	return out, nil
}

// UpsertAgendaEntry inserts or updates an agenda entry, marking it dirty
func UpsertAgendaEntry(ctx context.OliCtx, entry records.AgendaEntry) ([]records.AgendaEntry, error) {
	items, err := LoadAgenda(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading agenda")
	}

	now := nowMs(ctx)
	norm := records.NormalizeAgendaEntry(entry, now)
	norm.MarkDirty(now)
	norm.RemoteUpdatedAt = ""

	idx := -1
	for i := range items {
		if items[i].ID == norm.ID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		items[idx] = norm
	} else {
		items = append([]records.AgendaEntry{norm}, items...)
	}

	if err := SaveAgenda(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving agenda")
	}

	return items, nil
}

// SoftDeleteAgendaEntry tombstones an agenda entry
func SoftDeleteAgendaEntry(ctx context.OliCtx, id string) ([]records.AgendaEntry, error) {
	items, err := LoadAgenda(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading agenda")
	}

	now := nowMs(ctx)
	iso := nowISO(ctx)

	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].DeletedAt = iso
		items[i].MarkDirty(now)
	}

	if err := SaveAgenda(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving agenda")
	}

	return items, nil
}
