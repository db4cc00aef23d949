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

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

// LoadPendings returns the full pending task collection, tombstones
// included. Callers that render tasks should use LoadPendingsAlive.
func LoadPendings(ctx context.OliCtx) ([]records.PendingTask, error) {
	raw := loadRaw(ctx, consts.CollectionPendings)

	var stored []records.PendingTask
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.PendingTask, 0, len(stored))
	for _, p := range stored {
		items = append(items, records.NormalizePendingTask(p, now))
	}

	selfHeal(ctx, consts.CollectionPendings, raw, items)

	return items, nil
}

// LoadPendingsAlive returns the non-deleted pending tasks
func LoadPendingsAlive(ctx context.OliCtx) ([]records.PendingTask, error) {
	items, err := LoadPendings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading pendings")
	}

	var out []records.PendingTask
	for _, p := range items {
		if !p.Deleted() {
			out = append(out, p)
		}
	}

	return out, nil
}

// SavePendings persists the pending task collection
func SavePendings(ctx context.OliCtx, items []records.PendingTask) error {
	now := nowMs(ctx)
	norm := make([]records.PendingTask, 0, len(items))
	for _, p := range items {
		norm = append(norm, records.NormalizePendingTask(p, now))
	}

	return saveCollection(ctx, consts.CollectionPendings, norm)
}

// AddPendingTask creates a new pending task
func AddPendingTask(ctx context.OliCtx, text string) (*records.PendingTask, error) {
	items, err := LoadPendings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading pendings")
	}

	now := nowMs(ctx)
	task := records.NormalizePendingTask(records.PendingTask{
		ID:        records.NewLocalID(),
		CreatedAt: now,
		Text:      text,
	}, now)
	task.MarkDirty(now)

	items = append([]records.PendingTask{task}, items...)

	if err := SavePendings(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving pendings")
	}

	return &task, nil
}

// TogglePendingTask flips the done state of a pending task
func TogglePendingTask(ctx context.OliCtx, id string) ([]records.PendingTask, error) {
	items, err := LoadPendings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading pendings")
	}

	now := nowMs(ctx)

	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].Done = !items[i].Done
		items[i].MarkDirty(now)
	}

	if err := SavePendings(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving pendings")
	}

	return items, nil
}

// SoftDeletePendingTask tombstones a pending task
func SoftDeletePendingTask(ctx context.OliCtx, id string) ([]records.PendingTask, error) {
	items, err := LoadPendings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading pendings")
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

	if err := SavePendings(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving pendings")
	}

	return items, nil
}
