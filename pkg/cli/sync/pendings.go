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

package sync

import (
	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// SyncPendings pushes dirty pending tasks and pulls remote changes.
// A sync already in flight makes the call a no-op.
func SyncPendings(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionPendings) {
		return nil
	}
	defer release(consts.CollectionPendings)

	if err := pushPendings(ctx); err != nil {
		return errors.Wrap(err, "pushing pendings")
	}
	if err := pullPendings(ctx); err != nil {
		return err
	}

	return nil
}

func pushPendings(ctx context.OliCtx) error {
	items, err := store.LoadPendings(ctx)
	if err != nil {
		return errors.Wrap(err, "loading pendings")
	}

	var dirty []int
	for i := range items {
		if items[i].Dirty() {
			dirty = append(dirty, i)
		}
	}
	if len(dirty) == 0 {
		return nil
	}

	rows := make([]client.PendingRow, 0, len(dirty))
	for _, i := range dirty {
		p := items[i]
		rows = append(rows, client.PendingRow{
			LocalID:   p.ID,
			Text:      p.Text,
			Done:      p.Done,
			UpdatedAt: records.ToISO(p.LocalUpdatedAt),
			DeletedAt: p.DeletedAt,
		})
	}

	if err := client.UpsertPendings(ctx, rows); err != nil {
		return errors.Wrap(err, "upserting pendings")
	}

	iso := nowISO(ctx)
	for _, i := range dirty {
		items[i].ClearDirty(iso)
	}

	if err := store.SavePendings(ctx, items); err != nil {
		return errors.Wrap(err, "saving pendings")
	}

	return nil
}

func pullPendings(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionPendings)
	if err != nil {
		return err
	}

	resp, err := client.GetPendings(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionPendings, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	items, err := store.LoadPendings(ctx)
	if err != nil {
		return errors.Wrap(err, "loading pendings")
	}

	idx := map[string]int{}
	for i := range items {
		idx[items[i].ID] = i
	}

	maxSeen := last
	for _, row := range resp.Rows {
		maxSeen = maxISO(maxSeen, row.UpdatedAt)

		i, ok := idx[row.LocalID]
		if ok && items[i].Dirty() {
			// local edits win until they are pushed
			continue
		}

		merged := records.PendingTask{
			ID:   row.LocalID,
			Text: row.Text,
			Done: row.Done,
			SyncMeta: records.SyncMeta{
				LocalUpdatedAt:  records.ToMs(row.UpdatedAt),
				RemoteUpdatedAt: row.UpdatedAt,
				DeletedAt:       row.DeletedAt,
			},
		}
		if ok {
			merged.CreatedAt = items[i].CreatedAt
		}

		if ok {
			items[i] = merged
		} else {
			items = append(items, merged)
			idx[merged.ID] = len(items) - 1
		}
	}

	if err := store.SavePendings(ctx, items); err != nil {
		return errors.Wrap(err, "saving pendings")
	}

	return writeWatermark(ctx, consts.CollectionPendings, maxSeen)
}
