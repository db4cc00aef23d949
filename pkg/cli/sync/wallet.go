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
	"github.com/oliworks/oliworks/pkg/cli/resolver"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// SyncWallet pushes dirty wallet movements and pulls remote changes.
// The backend table has no tombstone column, so local tombstones are
// pushed as hard deletes. A sync already in flight makes the call a
// no-op.
func SyncWallet(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionWallet) {
		return nil
	}
	defer release(consts.CollectionWallet)

	if err := pushWallet(ctx); err != nil {
		return errors.Wrap(err, "pushing wallet movements")
	}
	if err := pullWallet(ctx); err != nil {
		return err
	}

	return nil
}

func mappingByLocalID(mappings []client.IDMapping) map[string]string {
	out := map[string]string{}
	for _, m := range mappings {
		out[m.LocalID] = m.ID
	}
	return out
}

func mappingByID(mappings []client.IDMapping) map[string]string {
	out := map[string]string{}
	for _, m := range mappings {
		out[m.ID] = m.LocalID
	}
	return out
}

func pushWallet(ctx context.OliCtx) error {
	items, err := store.LoadWallet(ctx)
	if err != nil {
		return errors.Wrap(err, "loading wallet")
	}

	var deletes []string
	var upserts []int
	for i := range items {
		if !items[i].Dirty() {
			continue
		}
		if items[i].Deleted() {
			deletes = append(deletes, items[i].ID)
		} else {
			upserts = append(upserts, i)
		}
	}

	if len(deletes) > 0 {
		if err := client.DeleteWalletMovements(ctx, deletes); err != nil {
			return errors.Wrap(err, "deleting wallet movements")
		}
		if _, err := store.HardDeleteWalletMovements(ctx, deletes); err != nil {
			return errors.Wrap(err, "dropping deleted wallet movements")
		}

		// reload so upsert indexes stay valid
		items, err = store.LoadWallet(ctx)
		if err != nil {
			return errors.Wrap(err, "reloading wallet")
		}
		upserts = upserts[:0]
		for i := range items {
			if items[i].Dirty() && !items[i].Deleted() {
				upserts = append(upserts, i)
			}
		}
	}

	if len(upserts) == 0 {
		return nil
	}

	var artistKeys []string
	var projectIDs []string
	for _, i := range upserts {
		key := items[i].Artist
		if key == "" {
			key = resolver.DefaultArtistKey
		}
		artistKeys = append(artistKeys, key)
		if items[i].ProjectID != "" {
			projectIDs = append(projectIDs, items[i].ProjectID)
		}
	}

	// the artist_id column is not nullable, so every referenced artist
	// must exist before the upsert
	if err := ensureArtists(ctx, artistKeys); err != nil {
		return err
	}

	artistMappings, err := client.LookupArtistsByLocalID(ctx, append(artistKeys, resolver.DefaultArtistKey))
	if err != nil {
		return errors.Wrap(err, "looking up artists")
	}
	artistUUIDs := mappingByLocalID(artistMappings)

	projectUUIDs := map[string]string{}
	if len(projectIDs) > 0 {
		projectMappings, err := client.LookupProjectsByLocalID(ctx, projectIDs)
		if err != nil {
			return errors.Wrap(err, "looking up projects")
		}
		projectUUIDs = mappingByLocalID(projectMappings)
	}

	rows := make([]client.WalletMovementRow, 0, len(upserts))
	for _, i := range upserts {
		m := items[i]

		artistID := artistUUIDs[m.Artist]
		if artistID == "" {
			artistID = artistUUIDs[resolver.DefaultArtistKey]
		}

		rows = append(rows, client.WalletMovementRow{
			LocalID:   m.ID,
			ProjectID: projectUUIDs[m.ProjectID],
			ArtistID:  artistID,
			Amount:    m.Amount,
			Kind:      m.Kind,
			Note:      m.Note,
			CreatedAt: records.ToISO(m.CreatedAt),
			UpdatedAt: records.ToISO(m.LocalUpdatedAt),
		})
	}

	if err := client.UpsertWalletMovements(ctx, rows); err != nil {
		return errors.Wrap(err, "upserting wallet movements")
	}

	iso := nowISO(ctx)
	for _, i := range upserts {
		items[i].ClearDirty(iso)
	}

	if err := store.SaveWallet(ctx, items); err != nil {
		return errors.Wrap(err, "saving wallet")
	}

	return nil
}

func pullWallet(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionWallet)
	if err != nil {
		return err
	}

	resp, err := client.GetWalletMovements(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionWallet, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	var artistIDs []string
	var projectIDs []string
	seenArtist := map[string]bool{}
	seenProject := map[string]bool{}
	for _, row := range resp.Rows {
		if row.ArtistID != "" && !seenArtist[row.ArtistID] {
			seenArtist[row.ArtistID] = true
			artistIDs = append(artistIDs, row.ArtistID)
		}
		if row.ProjectID != "" && !seenProject[row.ProjectID] {
			seenProject[row.ProjectID] = true
			projectIDs = append(projectIDs, row.ProjectID)
		}
	}

	artistKeys := map[string]string{}
	if len(artistIDs) > 0 {
		mappings, err := client.LookupArtistsByID(ctx, artistIDs)
		if err != nil {
			return errors.Wrap(err, "looking up artists")
		}
		artistKeys = mappingByID(mappings)
	}

	projectLocalIDs := map[string]string{}
	if len(projectIDs) > 0 {
		mappings, err := client.LookupProjectsByID(ctx, projectIDs)
		if err != nil {
			return errors.Wrap(err, "looking up projects")
		}
		projectLocalIDs = mappingByID(mappings)
	}

	items, err := store.LoadWallet(ctx)
	if err != nil {
		return errors.Wrap(err, "loading wallet")
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

		merged := records.WalletMovement{
			ID:        row.LocalID,
			CreatedAt: records.ToMs(row.CreatedAt),
			Kind:      row.Kind,
			Amount:    row.Amount,
			ProjectID: projectLocalIDs[row.ProjectID],
			Artist:    artistKeys[row.ArtistID],
			Note:      row.Note,
			SyncMeta: records.SyncMeta{
				LocalUpdatedAt:  records.ToMs(row.UpdatedAt),
				RemoteUpdatedAt: row.UpdatedAt,
			},
		}
		if ok {
			// currency, category and date label live only locally
			merged.Currency = items[i].Currency
			merged.Category = items[i].Category
			merged.DateLabel = items[i].DateLabel
		}

		if ok {
			items[i] = merged
		} else {
			items = append(items, merged)
			idx[merged.ID] = len(items) - 1
		}
	}

	if err := store.SaveWallet(ctx, items); err != nil {
		return errors.Wrap(err, "saving wallet")
	}

	return writeWatermark(ctx, consts.CollectionWallet, maxSeen)
}
