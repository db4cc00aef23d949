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
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/pkg/errors"
)

// DefaultGCRetentionDays is the tombstone retention for a direct GC run
const DefaultGCRetentionDays = 14

const msPerDay = int64(24 * 60 * 60 * 1000)

// GCResult counts purged tombstones per collection
type GCResult map[string]int

// purgeable reports whether a tombstone can be dropped. Dirty records
// are never purged since their deletion has not reached the backend.
func purgeable(meta records.SyncMeta, cutoffMs int64) bool {
	if meta.Dirty() || !meta.Deleted() {
		return false
	}
	return records.ToMs(meta.DeletedAt) <= cutoffMs
}

// GC purges tombstones that were synced and are older than the
// retention window
func GC(ctx context.OliCtx, retentionDays int) (GCResult, error) {
	cutoff := nowMs(ctx) - int64(retentionDays)*msPerDay
	result := GCResult{}

	projects, err := store.LoadProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading projects")
	}
	keptProjects := projects[:0]
	for _, p := range projects {
		if purgeable(p.SyncMeta, cutoff) {
			result[consts.CollectionProjects]++
			continue
		}
		keptProjects = append(keptProjects, p)
	}
	if result[consts.CollectionProjects] > 0 {
		if err := store.SaveProjects(ctx, keptProjects); err != nil {
			return nil, errors.Wrap(err, "saving projects")
		}
	}

	tracks, err := store.LoadTracks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading tracks")
	}
	keptTracks := tracks[:0]
	for _, t := range tracks {
		if purgeable(t.SyncMeta, cutoff) {
			result[consts.CollectionTracks]++
			continue
		}
		keptTracks = append(keptTracks, t)
	}
	if result[consts.CollectionTracks] > 0 {
		if err := store.SaveTracks(ctx, keptTracks); err != nil {
			return nil, errors.Wrap(err, "saving tracks")
		}
	}

	agenda, err := store.LoadAgenda(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading agenda")
	}
	keptAgenda := agenda[:0]
	for _, e := range agenda {
		if purgeable(e.SyncMeta, cutoff) {
			result[consts.CollectionAgenda]++
			continue
		}
		keptAgenda = append(keptAgenda, e)
	}
	if result[consts.CollectionAgenda] > 0 {
		if err := store.SaveAgenda(ctx, keptAgenda); err != nil {
			return nil, errors.Wrap(err, "saving agenda")
		}
	}

	pendings, err := store.LoadPendings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading pendings")
	}
	keptPendings := pendings[:0]
	for _, p := range pendings {
		if purgeable(p.SyncMeta, cutoff) {
			result[consts.CollectionPendings]++
			continue
		}
		keptPendings = append(keptPendings, p)
	}
	if result[consts.CollectionPendings] > 0 {
		if err := store.SavePendings(ctx, keptPendings); err != nil {
			return nil, errors.Wrap(err, "saving pendings")
		}
	}

	profiles, err := store.LoadArtistProfiles(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading artist profiles")
	}
	keptProfiles := profiles[:0]
	for _, a := range profiles {
		if purgeable(a.SyncMeta, cutoff) {
			result[consts.CollectionArtists]++
			continue
		}
		keptProfiles = append(keptProfiles, a)
	}
	if result[consts.CollectionArtists] > 0 {
		if err := store.SaveArtistProfiles(ctx, keptProfiles); err != nil {
			return nil, errors.Wrap(err, "saving artist profiles")
		}
	}

	wallet, err := store.LoadWallet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading wallet")
	}
	keptWallet := wallet[:0]
	for _, m := range wallet {
		if purgeable(m.SyncMeta, cutoff) {
			result[consts.CollectionWallet]++
			continue
		}
		keptWallet = append(keptWallet, m)
	}
	if result[consts.CollectionWallet] > 0 {
		if err := store.SaveWallet(ctx, keptWallet); err != nil {
			return nil, errors.Wrap(err, "saving wallet")
		}
	}

	return result, nil
}
