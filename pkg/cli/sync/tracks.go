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
	"encoding/json"

	"github.com/oliworks/oliworks/pkg/cli/client"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// SyncTracks pushes dirty tracks and pulls remote changes.
// A sync already in flight makes the call a no-op.
func SyncTracks(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionTracks) {
		return nil
	}
	defer release(consts.CollectionTracks)

	if err := pushTracks(ctx); err != nil {
		return errors.Wrap(err, "pushing tracks")
	}
	if err := pullTracks(ctx); err != nil {
		return err
	}

	return nil
}

func marshalSection(items []records.TrackChecklistItem) (json.RawMessage, error) {
	if items == nil {
		items = []records.TrackChecklistItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling track section")
	}
	return b, nil
}

func unmarshalSection(raw json.RawMessage) []records.TrackChecklistItem {
	var items []records.TrackChecklistItem
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			items = nil
		}
	}
	if items == nil {
		items = []records.TrackChecklistItem{}
	}
	return items
}

func trackToRow(t records.Track) (client.TrackRow, error) {
	row := client.TrackRow{
		LocalID:   t.ID,
		ProjectID: t.ProjectID,
		Title:     t.Title,
		Status:    t.Status,
		Progress:  t.Progress,
		UpdatedAt: records.ToISO(t.LocalUpdatedAt),
		DeletedAt: t.DeletedAt,
	}

	var err error
	if row.General, err = marshalSection(t.General); err != nil {
		return row, err
	}
	if row.Musicians, err = marshalSection(t.Musicians); err != nil {
		return row, err
	}
	if row.Tuning, err = marshalSection(t.Tuning); err != nil {
		return row, err
	}
	if row.Editing, err = marshalSection(t.Editing); err != nil {
		return row, err
	}

	return row, nil
}

func trackFromRow(row client.TrackRow) records.Track {
	return records.Track{
		ID:        row.LocalID,
		ProjectID: row.ProjectID,
		Title:     row.Title,
		Status:    row.Status,
		Progress:  row.Progress,
		General:   unmarshalSection(row.General),
		Musicians: unmarshalSection(row.Musicians),
		Tuning:    unmarshalSection(row.Tuning),
		Editing:   unmarshalSection(row.Editing),
		SyncMeta: records.SyncMeta{
			LocalUpdatedAt:  records.ToMs(row.UpdatedAt),
			RemoteUpdatedAt: row.UpdatedAt,
			DeletedAt:       row.DeletedAt,
		},
	}
}

func pushTracks(ctx context.OliCtx) error {
	items, err := store.LoadTracks(ctx)
	if err != nil {
		return errors.Wrap(err, "loading tracks")
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

	rows := make([]client.TrackRow, 0, len(dirty))
	for _, i := range dirty {
		row, err := trackToRow(items[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if err := client.UpsertTracks(ctx, rows); err != nil {
		return errors.Wrap(err, "upserting tracks")
	}

	iso := nowISO(ctx)
	for _, i := range dirty {
		items[i].ClearDirty(iso)
	}

	if err := store.SaveTracks(ctx, items); err != nil {
		return errors.Wrap(err, "saving tracks")
	}

	return nil
}

func pullTracks(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionTracks)
	if err != nil {
		return err
	}

	resp, err := client.GetTracks(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionTracks, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	items, err := store.LoadTracks(ctx)
	if err != nil {
		return errors.Wrap(err, "loading tracks")
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

		merged := trackFromRow(row)
		if ok {
			items[i] = merged
		} else {
			items = append(items, merged)
			idx[merged.ID] = len(items) - 1
		}
	}

	if err := store.SaveTracks(ctx, items); err != nil {
		return errors.Wrap(err, "saving tracks")
	}

	return writeWatermark(ctx, consts.CollectionTracks, maxSeen)
}
