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
	"fmt"

	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// SyncAgenda pushes dirty agenda entries and pulls remote changes.
// A sync already in flight makes the call a no-op.
func SyncAgenda(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionAgenda) {
		return nil
	}
	defer release(consts.CollectionAgenda)

	if err := pushAgenda(ctx); err != nil {
		return errors.Wrap(err, "pushing agenda")
	}
	if err := pullAgenda(ctx); err != nil {
		return err
	}

	return nil
}

// dateLabelToStartsAt anchors a calendar date at UTC noon so the date
// survives timezone conversion on every device
func dateLabelToStartsAt(dateLabel string) string {
	return fmt.Sprintf("%sT12:00:00.000Z", dateLabel)
}

// startsAtToDateLabel recovers the calendar date from the event
// timestamp
func startsAtToDateLabel(startsAt string) string {
	if len(startsAt) < 10 {
		return startsAt
	}
	return startsAt[:10]
}

func pushAgenda(ctx context.OliCtx) error {
	items, err := store.LoadAgenda(ctx)
	if err != nil {
		return errors.Wrap(err, "loading agenda")
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

	rows := make([]client.EventRow, 0, len(dirty))
	for _, i := range dirty {
		e := items[i]
		rows = append(rows, client.EventRow{
			LocalID:   e.ID,
			Title:     e.Artist,
			StartsAt:  dateLabelToStartsAt(e.DateLabel),
			Notes:     e.Note,
			UpdatedAt: records.ToISO(e.LocalUpdatedAt),
			DeletedAt: e.DeletedAt,
		})
	}

	if err := client.UpsertEvents(ctx, rows); err != nil {
		return errors.Wrap(err, "upserting events")
	}

	iso := nowISO(ctx)
	for _, i := range dirty {
		items[i].ClearDirty(iso)
	}

	if err := store.SaveAgenda(ctx, items); err != nil {
		return errors.Wrap(err, "saving agenda")
	}

	return nil
}

func pullAgenda(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionAgenda)
	if err != nil {
		return err
	}

	resp, err := client.GetEvents(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionAgenda, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	items, err := store.LoadAgenda(ctx)
	if err != nil {
		return errors.Wrap(err, "loading agenda")
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

		merged := records.AgendaEntry{
			ID:        row.LocalID,
			DateLabel: startsAtToDateLabel(row.StartsAt),
			Artist:    row.Title,
			Note:      row.Notes,
			SyncMeta: records.SyncMeta{
				LocalUpdatedAt:  records.ToMs(row.UpdatedAt),
				RemoteUpdatedAt: row.UpdatedAt,
				DeletedAt:       row.DeletedAt,
			},
		}

		if ok {
			items[i] = merged
		} else {
			items = append(items, merged)
			idx[merged.ID] = len(items) - 1
		}
	}

	if err := store.SaveAgenda(ctx, items); err != nil {
		return errors.Wrap(err, "saving agenda")
	}

	return writeWatermark(ctx, consts.CollectionAgenda, maxSeen)
}
