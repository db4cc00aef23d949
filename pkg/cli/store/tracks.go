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

// LoadTracks returns the track collection, normalized
func LoadTracks(ctx context.OliCtx) ([]records.Track, error) {
	raw := loadRaw(ctx, consts.CollectionTracks)

	var stored []records.Track
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.Track, 0, len(stored))
	for _, t := range stored {
		items = append(items, records.NormalizeTrack(t, now))
	}

	selfHeal(ctx, consts.CollectionTracks, raw, items)

	return items, nil
}

// SaveTracks persists the track collection, normalizing every item
func SaveTracks(ctx context.OliCtx, items []records.Track) error {
	now := nowMs(ctx)
	norm := make([]records.Track, 0, len(items))
	for _, t := range items {
		norm = append(norm, records.NormalizeTrack(t, now))
	}

	return saveCollection(ctx, consts.CollectionTracks, norm)
}

// GetTrack finds a track by local id
func GetTrack(ctx context.OliCtx, id string) (*records.Track, error) {
	items, err := LoadTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading tracks")
	}

	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}

	return nil, nil
}

// LoadTracksByProject returns the alive tracks of a project, most
// recently touched first
func LoadTracksByProject(ctx context.OliCtx, projectID string) ([]records.Track, error) {
	items, err := LoadTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading tracks")
	}

	var out []records.Track
	for _, t := range items {
		if t.ProjectID == projectID && !t.Deleted() {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LocalUpdatedAt > out[j].LocalUpdatedAt
	})

	return out, nil
}

// AddTrack creates a new track under a project
func AddTrack(ctx context.OliCtx, projectID, title string) (*records.Track, error) {
	now := nowMs(ctx)
	track := records.NormalizeTrack(records.Track{
		ID:        records.NewLocalID(),
		ProjectID: projectID,
		Title:     title,
	}, now)
	track.MarkDirty(now)

	if _, err := UpsertTrack(ctx, track); err != nil {
		return nil, errors.Wrap(err, "upserting track")
	}

	return &track, nil
}

// UpsertTrack inserts or updates a track, marking it dirty
func UpsertTrack(ctx context.OliCtx, track records.Track) ([]records.Track, error) {
	items, err := LoadTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading tracks")
	}

	now := nowMs(ctx)
	norm := records.NormalizeTrack(track, now)
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
		items = append([]records.Track{norm}, items...)
	}

	if err := SaveTracks(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving tracks")
	}

	return items, nil
}

// SoftDeleteTrack tombstones a track
func SoftDeleteTrack(ctx context.OliCtx, id string) ([]records.Track, error) {
	items, err := LoadTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading tracks")
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

	if err := SaveTracks(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving tracks")
	}

	return items, nil
}

func mutateTrackSection(ctx context.OliCtx, trackID, section string, mutate func([]records.TrackChecklistItem) []records.TrackChecklistItem) (*records.Track, error) {
	t, err := GetTrack(ctx, trackID)
	if err != nil {
		return nil, errors.Wrap(err, "finding track")
	}
	if t == nil {
		return nil, nil
	}

	next := *t
	next.SetSection(section, mutate(next.Section(section)))

	items, err := UpsertTrack(ctx, next)
	if err != nil {
		return nil, errors.Wrap(err, "upserting track")
	}

	for i := range items {
		if items[i].ID == trackID {
			return &items[i], nil
		}
	}

	return nil, nil
}

// AddTrackItem appends a checklist item to a track section
func AddTrackItem(ctx context.OliCtx, trackID, section, text string) (*records.Track, error) {
	return mutateTrackSection(ctx, trackID, section, func(items []records.TrackChecklistItem) []records.TrackChecklistItem {
		return append(items, records.TrackChecklistItem{
			ID:   records.NewLocalID(),
			Text: text,
		})
	})
}

// ToggleTrackItem flips the done state of a checklist item
func ToggleTrackItem(ctx context.OliCtx, trackID, section, itemID string) (*records.Track, error) {
	return mutateTrackSection(ctx, trackID, section, func(items []records.TrackChecklistItem) []records.TrackChecklistItem {
		for i := range items {
			if items[i].ID == itemID {
				items[i].Done = !items[i].Done
			}
		}
		return items
	})
}

// DeleteTrackItem tombstones a checklist item inside a track section
func DeleteTrackItem(ctx context.OliCtx, trackID, section, itemID string) (*records.Track, error) {
	iso := nowISO(ctx)
	return mutateTrackSection(ctx, trackID, section, func(items []records.TrackChecklistItem) []records.TrackChecklistItem {
		for i := range items {
			if items[i].ID == itemID {
				items[i].DeletedAt = iso
			}
		}
		return items
	})
}
