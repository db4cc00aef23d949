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

// SyncArtistProfiles pushes dirty profiles and pulls remote changes.
// A sync already in flight makes the call a no-op.
func SyncArtistProfiles(ctx context.OliCtx) error {
	if err := checkLogin(ctx); err != nil {
		return err
	}
	if !acquire(consts.CollectionArtists) {
		return nil
	}
	defer release(consts.CollectionArtists)

	if err := pushArtistProfiles(ctx); err != nil {
		return errors.Wrap(err, "pushing artist profiles")
	}
	if err := pullArtistProfiles(ctx); err != nil {
		return err
	}

	return nil
}

// ensureArtists creates the parent artist rows for the given keys,
// ignoring rows that already exist so backfills never clobber display
// names curated on another device. The fallback artist is always
// included since wallet movements require a non-null artist.
func ensureArtists(ctx context.OliCtx, keys []string) error {
	names, err := store.ArtistNameMap(ctx)
	if err != nil {
		return errors.Wrap(err, "loading artist names")
	}

	seen := map[string]bool{}
	var artistRows []client.ArtistRow
	var profileRows []client.ArtistProfileRow

	add := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true

		name := names[key]
		if name == "" {
			name = resolver.PrettyFromKey(key)
		}
		if key == resolver.DefaultArtistKey {
			name = resolver.DefaultArtistName
		}

		artistRows = append(artistRows, client.ArtistRow{LocalID: key, Name: name})
		profileRows = append(profileRows, client.ArtistProfileRow{ArtistKey: key, DisplayName: name})
	}

	add(resolver.DefaultArtistKey)
	for _, key := range keys {
		add(key)
	}

	if err := client.UpsertArtists(ctx, artistRows, true); err != nil {
		return errors.Wrap(err, "upserting artists")
	}
	if err := client.UpsertArtistProfiles(ctx, profileRows, true); err != nil {
		return errors.Wrap(err, "upserting artist profiles")
	}

	return nil
}

func pushArtistProfiles(ctx context.OliCtx) error {
	items, err := store.LoadArtistProfiles(ctx)
	if err != nil {
		return errors.Wrap(err, "loading artist profiles")
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
	rows := make([]client.ArtistProfileRow, 0, len(dirty))
	for _, i := range dirty {
		p := items[i]
		keys = append(keys, p.ArtistKey)
		rows = append(rows, client.ArtistProfileRow{
			ArtistKey:    p.ArtistKey,
			DisplayName:  p.DisplayName,
			Note:         p.Note,
			AdvanceTotal: p.AdvanceTotal,
			UpdatedAt:    records.ToISO(p.LocalUpdatedAt),
			DeletedAt:    p.DeletedAt,
		})
	}

	// parent rows first so the profile upsert has something to
	// reference
	if err := ensureArtists(ctx, keys); err != nil {
		return err
	}

	if err := client.UpsertArtistProfiles(ctx, rows, false); err != nil {
		return errors.Wrap(err, "upserting artist profiles")
	}

	iso := nowISO(ctx)
	for _, i := range dirty {
		items[i].ClearDirty(iso)
	}

	if err := store.SaveArtistProfiles(ctx, items); err != nil {
		return errors.Wrap(err, "saving artist profiles")
	}

	return nil
}

func pullArtistProfiles(ctx context.OliCtx) error {
	last, err := readWatermark(ctx, consts.CollectionArtists)
	if err != nil {
		return err
	}

	resp, err := client.GetArtistProfiles(ctx, pullWindowStart(last))
	if err := handlePullErr(consts.CollectionArtists, err); err != nil {
		return err
	}
	if err != nil || len(resp.Rows) == 0 {
		return nil
	}

	items, err := store.LoadArtistProfiles(ctx)
	if err != nil {
		return errors.Wrap(err, "loading artist profiles")
	}

	idx := map[string]int{}
	for i := range items {
		idx[items[i].ArtistKey] = i
	}

	maxSeen := last
	for _, row := range resp.Rows {
		maxSeen = maxISO(maxSeen, row.UpdatedAt)

		i, ok := idx[row.ArtistKey]
		if ok && items[i].Dirty() {
			// local edits win until they are pushed
			continue
		}

		merged := records.ArtistProfile{
			ArtistKey:    row.ArtistKey,
			DisplayName:  row.DisplayName,
			Note:         row.Note,
			AdvanceTotal: row.AdvanceTotal,
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
			idx[merged.ArtistKey] = len(items) - 1
		}
	}

	if err := store.SaveArtistProfiles(ctx, items); err != nil {
		return errors.Wrap(err, "saving artist profiles")
	}

	return writeWatermark(ctx, consts.CollectionArtists, maxSeen)
}
