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

// SyncProjects pushes dirty projects and pulls remote changes.
// A sync already in flight makes the call a no-op.
func SyncProjects(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionProjects) {
		return nil
	}
	defer release(consts.CollectionProjects)

	if err := pushProjects(ctx); err != nil {
		return errors.Wrap(err, "pushing projects")
	}
	if err := pullProjects(ctx); err != nil {
		return err
	}

	return nil
}

func projectToRow(p records.Project) (client.ProjectRow, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return client.ProjectRow{}, errors.Wrap(err, "marshalling project data")
	}

	return client.ProjectRow{
		LocalID:       p.ID,
		Title:         p.Title,
		Status:        p.Status,
		Progress:      p.Progress,
		ArtistLocalID: p.ArtistLocalID,
		TotalCost:     p.TotalCost,
		Data:          data,
		CreatedAt:     records.ToISO(p.CreatedAt),
		UpdatedAt:     records.ToISO(p.LocalUpdatedAt),
		DeletedAt:     p.DeletedAt,
	}, nil
}

func projectFromRow(row client.ProjectRow) records.Project {
	var p records.Project
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &p); err != nil {
			p = records.Project{}
		}
	}

	// columns are authoritative over the data document
	p.ID = row.LocalID
	p.Title = row.Title
	p.Status = row.Status
	p.Progress = row.Progress
	p.ArtistLocalID = row.ArtistLocalID
	p.TotalCost = row.TotalCost
	if p.CreatedAt == 0 {
		p.CreatedAt = records.ToMs(row.CreatedAt)
	}
	p.UpdatedAt = records.ToMs(row.UpdatedAt)

	p.SyncMeta = records.SyncMeta{
		LocalUpdatedAt:  records.ToMs(row.UpdatedAt),
		RemoteUpdatedAt: row.UpdatedAt,
		DeletedAt:       row.DeletedAt,
	}

	return p
}

func pushProjects(ctx context.OliCtx) error {
	items, err := store.LoadProjects(ctx)
	if err != nil {
		return errors.Wrap(err, "loading projects")
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

	keys := make([]string, 0, len(dirty))
	rows := make([]client.ProjectRow, 0, len(dirty))
	for _, i := range dirty {
		keys = append(keys, items[i].ArtistLocalID)

		row, err := projectToRow(items[i])
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	// referenced artists must exist before the project upsert
	if err := ensureArtists(ctx, keys); err != nil {
		return err
	}

	if err := client.UpsertProjects(ctx, rows); err != nil {
		return errors.Wrap(err, "upserting projects")
	}

	iso := nowISO(ctx)
	for _, i := range dirty {
		items[i].ClearDirty(iso)
	}

	if err := store.SaveProjects(ctx, items); err != nil {
		return errors.Wrap(err, "saving projects")
	}

	return nil
}

func pullProjects(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionProjects)
	if err != nil {
		return err
	}

	resp, err := client.GetProjects(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionProjects, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	items, err := store.LoadProjects(ctx)
	if err != nil {
		return errors.Wrap(err, "loading projects")
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

		merged := projectFromRow(row)
		if ok {
			items[i] = merged
		} else {
			items = append(items, merged)
			idx[merged.ID] = len(items) - 1
		}
	}

	if err := store.SaveProjects(ctx, items); err != nil {
		return errors.Wrap(err, "saving projects")
	}

	return writeWatermark(ctx, consts.CollectionProjects, maxSeen)
}

// ForceResyncProjects drops the local project collection and its
// watermark, then pulls everything from scratch. Dirty records are
// pushed first by the regular sync.
func ForceResyncProjects(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}

	if err := store.SaveProjects(ctx, nil); err != nil {
		return errors.Wrap(err, "clearing projects")
	}
	if err := writeWatermark(ctx, consts.CollectionProjects, watermarkEpoch); err != nil {
		return err
	}

	return SyncProjects(ctx)
}
