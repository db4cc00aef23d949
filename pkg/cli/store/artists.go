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
	"github.com/oliworks/oliworks/pkg/cli/resolver"
	"github.com/pkg/errors"
)

// LoadArtistProfiles returns the artist profile collection, normalized
func LoadArtistProfiles(ctx context.OliCtx) ([]records.ArtistProfile, error) {
	raw := loadRaw(ctx, consts.CollectionArtists)

	var stored []records.ArtistProfile
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.ArtistProfile, 0, len(stored))
	for _, a := range stored {
		items = append(items, records.NormalizeArtistProfile(a, now))
	}

	selfHeal(ctx, consts.CollectionArtists, raw, items)

	return items, nil
}

// SaveArtistProfiles persists the artist profile collection
func SaveArtistProfiles(ctx context.OliCtx, items []records.ArtistProfile) error {
	now := nowMs(ctx)
	norm := make([]records.ArtistProfile, 0, len(items))
	for _, a := range items {
		norm = append(norm, records.NormalizeArtistProfile(a, now))
	}

	return saveCollection(ctx, consts.CollectionArtists, norm)
}

// GetArtistProfile finds a profile by its stable key
func GetArtistProfile(ctx context.OliCtx, key string) (*records.ArtistProfile, error) {
	items, err := LoadArtistProfiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading artist profiles")
	}

	for i := range items {
		if items[i].ArtistKey == key {
			return &items[i], nil
		}
	}

	return nil, nil
}

// ResolveArtistKey maps a free-form artist spelling onto the stable key
// of an existing profile, or mints a fresh slug when nothing matches.
func ResolveArtistKey(ctx context.OliCtx, input string) (string, error) {
	items, err := LoadArtistProfiles(ctx)
	if err != nil {
		return "", errors.Wrap(err, "loading artist profiles")
	}

	candidates := make([]resolver.Candidate, 0, len(items))
	for _, a := range items {
		if a.Deleted() {
			continue
		}
		candidates = append(candidates, resolver.Candidate{
			Key:         a.ArtistKey,
			DisplayName: a.DisplayName,
		})
	}

	return resolver.ResolveKey(input, candidates), nil
}

// EnsureArtistProfile resolves the input to a key and creates the
// profile if it does not exist yet. Existing display names are never
// overwritten by later spellings.
func EnsureArtistProfile(ctx context.OliCtx, input string) (*records.ArtistProfile, error) {
	key, err := ResolveArtistKey(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "resolving artist key")
	}
	if key == "" {
		key = resolver.DefaultArtistKey
	}

	existing, err := GetArtistProfile(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "finding artist profile")
	}
	if existing != nil && !existing.Deleted() {
		return existing, nil
	}

	name := input
	if key == resolver.DefaultArtistKey {
		name = resolver.DefaultArtistName
	}

	profile, err := UpsertArtistProfile(ctx, records.ArtistProfile{
		ArtistKey:   key,
		DisplayName: name,
	})
	if err != nil {
		return nil, errors.Wrap(err, "upserting artist profile")
	}

	return profile, nil
}

// UpsertArtistProfile inserts or updates a profile keyed by its slug,
// marking it dirty
func UpsertArtistProfile(ctx context.OliCtx, profile records.ArtistProfile) (*records.ArtistProfile, error) {
	items, err := LoadArtistProfiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading artist profiles")
	}

	now := nowMs(ctx)
	norm := records.NormalizeArtistProfile(profile, now)
	norm.MarkDirty(now)
	norm.RemoteUpdatedAt = ""

	idx := -1
	for i := range items {
		if items[i].ArtistKey == norm.ArtistKey {
			idx = i
			break
		}
	}

	if idx >= 0 {
		items[idx] = norm
	} else {
		items = append(items, norm)
	}

	if err := SaveArtistProfiles(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving artist profiles")
	}

	return &norm, nil
}

// SetArtistNote updates the free-form note on a profile, creating the
// profile when needed
func SetArtistNote(ctx context.OliCtx, input, note string) (*records.ArtistProfile, error) {
	profile, err := EnsureArtistProfile(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "ensuring artist profile")
	}

	next := *profile
	next.Note = note

	return UpsertArtistProfile(ctx, next)
}

// RenameArtist changes the display name of a profile. The key stays
// stable so existing references keep resolving.
func RenameArtist(ctx context.OliCtx, key, displayName string) (*records.ArtistProfile, error) {
	profile, err := GetArtistProfile(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "finding artist profile")
	}
	if profile == nil {
		return nil, errors.Errorf("artist profile %s not found", key)
	}

	next := *profile
	next.DisplayName = displayName

	return UpsertArtistProfile(ctx, next)
}

// ArtistNameMap returns key to display name for the alive profiles
func ArtistNameMap(ctx context.OliCtx) (map[string]string, error) {
	items, err := LoadArtistProfiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading artist profiles")
	}

	out := map[string]string{}
	for _, a := range items {
		if a.Deleted() {
			continue
		}
		out[a.ArtistKey] = a.DisplayName
	}

	return out, nil
}
