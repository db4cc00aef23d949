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
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/log"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// allGCRetentionDays is the wider tombstone retention used by the full
// sync, leaving slower devices more time to observe deletions
const allGCRetentionDays = 21

// Result reports the outcome of a full sync. Errors maps collection
// keys to the failure that stopped that collection; other collections
// proceed regardless.
type Result struct {
	Cleaned GCResult
	Errors  map[string]string
}

// Ok reports whether every collection synced
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

// SyncAll garbage collects old tombstones and syncs every collection.
// Artist profiles go first so that later pushes can reference them.
func SyncAll(ctx context.OliCtx) (Result, error) {
	if err := checkLogin(ctx); err != nil {
		return Result{}, err
	}

	result := Result{Errors: map[string]string{}}

	cleaned, err := GC(ctx, allGCRetentionDays)
	if err != nil {
		// a failed GC never blocks the sync
		log.Debug("garbage collecting tombstones: %v\n", err)
	} else {
		result.Cleaned = cleaned
	}

	steps := []struct {
		collection string
		run        func(context.OliCtx) error
	}{
		{consts.CollectionArtists, SyncArtistProfiles},
		{consts.CollectionProjects, SyncProjects},
		{consts.CollectionTracks, SyncTracks},
		{consts.CollectionAgenda, SyncAgenda},
		{consts.CollectionPendings, SyncPendings},
		{consts.CollectionWallet, SyncWallet},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Debug("syncing %s: %v\n", step.collection, err)
			result.Errors[step.collection] = err.Error()
		}
	}

	return result, nil
}

// CascadeDeleteArtist tombstones an artist profile together with its
// projects, their tracks and its wallet movements, then runs a full
// sync to propagate the deletions.
func CascadeDeleteArtist(ctx context.OliCtx, artistKey string) (Result, error) {
	if err := checkLogin(ctx); err != nil {
		return Result{}, err
	}

	projects, err := store.LoadProjects(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading projects")
	}

	projectIDs := map[string]bool{}
	for _, p := range projects {
		if p.ArtistLocalID != artistKey || p.Deleted() {
			continue
		}
		projectIDs[p.ID] = true
		if _, err := store.SoftDeleteProject(ctx, p.ID); err != nil {
			return Result{}, errors.Wrap(err, "deleting project")
		}
	}

	tracks, err := store.LoadTracks(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading tracks")
	}
	for _, t := range tracks {
		if !projectIDs[t.ProjectID] || t.Deleted() {
			continue
		}
		if _, err := store.SoftDeleteTrack(ctx, t.ID); err != nil {
			return Result{}, errors.Wrap(err, "deleting track")
		}
	}

	wallet, err := store.LoadWallet(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading wallet")
	}
	for _, m := range wallet {
		if m.Deleted() {
			continue
		}
		if m.Artist != artistKey && !projectIDs[m.ProjectID] {
			continue
		}
		if _, err := store.SoftDeleteWalletMovement(ctx, m.ID); err != nil {
			return Result{}, errors.Wrap(err, "deleting wallet movement")
		}
	}

	profile, err := store.GetArtistProfile(ctx, artistKey)
	if err != nil {
		return Result{}, errors.Wrap(err, "finding artist profile")
	}
	if profile != nil && !profile.Deleted() {
		next := *profile
		next.DeletedAt = nowISO(ctx)
		if _, err := store.UpsertArtistProfile(ctx, next); err != nil {
			return Result{}, errors.Wrap(err, "deleting artist profile")
		}
	}

	return SyncAll(ctx)
}
