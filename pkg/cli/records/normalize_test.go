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

package records

import (
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
)

const testNow = int64(1678752000000)

func TestNormalizeProjectDefaults(t *testing.T) {
	got := NormalizeProject(Project{Title: "  Mi Tema  ", Artist: "José Ángel"}, testNow)

	if got.ID == "" {
		t.Fatal("expected an id to be generated")
	}
	assert.Equal(t, got.Title, "Mi Tema", "title mismatch")
	assert.Equal(t, got.Status, ProjectStatusInProcess, "status mismatch")
	assert.Equal(t, got.InstrumentationType, "OTROS", "instrumentation mismatch")
	assert.Equal(t, got.ArtistLocalID, "jose_angel", "artist key backfill mismatch")
	assert.Equal(t, got.CreatedAt, testNow, "createdAt mismatch")
	assert.Equal(t, got.LocalUpdatedAt, testNow, "localUpdatedAt mismatch")
	assert.Equal(t, len(got.Checklist), len(ChecklistKeys), "checklist should carry every stage")
	if got.MusiciansDone == nil || got.EditionDone == nil || got.TuningDone == nil {
		t.Fatal("expected instrument maps to be populated")
	}
}

func TestNormalizeProjectIdempotent(t *testing.T) {
	first := NormalizeProject(Project{Title: "Tema", Artist: "La Rusa", Payment: Payment{Cost: 5000}}, testNow)
	second := NormalizeProject(first, testNow+10000)

	assert.DeepEqual(t, second, first, "normalizing twice should not change the record")
}

func TestNormalizeProjectTotalCostBackfill(t *testing.T) {
	got := NormalizeProject(Project{Title: "Tema", Payment: Payment{Cost: 7500}}, testNow)
	assert.Equal(t, got.TotalCost, 7500.0, "total cost should backfill from the agreed cost")

	kept := NormalizeProject(Project{Title: "Tema", TotalCost: 1200, Payment: Payment{Cost: 7500}}, testNow)
	assert.Equal(t, kept.TotalCost, 1200.0, "a stored total must not be overwritten")
}

func TestComputeProgress(t *testing.T) {
	p := Project{
		Checklist:     EmptyChecklist(),
		MusiciansDone: map[string]bool{"tuba": true, "bajo": false},
		EditionDone:   map[string]bool{"tuba": true, "bajo": true},
		TuningDone:    map[string]bool{},
	}
	for _, k := range ChecklistKeys {
		p.Checklist[k] = true
	}

	// checklist 100, musicians 50, edition 100, tuning 0 -> avg 62.5 -> 63
	assert.Equal(t, ComputeProgress(p), 63, "progress mismatch")
}

func TestComputeProgressEmpty(t *testing.T) {
	assert.Equal(t, ComputeProgress(Project{Checklist: EmptyChecklist()}), 0, "empty project should be at zero")
}

func TestNormalizeTrackRecomputesProgress(t *testing.T) {
	track := Track{
		Title: "Voz principal",
		General: []TrackChecklistItem{
			{ID: "a", Text: "grabar", Done: true},
			{ID: "b", Text: "revisar", Done: false},
		},
		Musicians: []TrackChecklistItem{
			{ID: "c", Text: "tuba", Done: true, DeletedAt: "2023-03-01T00:00:00Z"},
		},
		Progress: 99,
	}

	got := NormalizeTrack(track, testNow)

	// one of two alive items done; the deleted item must not count
	assert.Equal(t, got.Progress, 50, "progress mismatch")
	assert.Equal(t, got.Status, TrackStatusActive, "status mismatch")
}

func TestNormalizeTrackDoneAtFull(t *testing.T) {
	track := Track{
		Title:   "Coros",
		General: []TrackChecklistItem{{ID: "a", Text: "grabar", Done: true}},
	}

	got := NormalizeTrack(track, testNow)
	assert.Equal(t, got.Progress, 100, "progress mismatch")
	assert.Equal(t, got.Status, TrackStatusDone, "a track at 100 should be done")
}

func TestNormalizeArtistProfileKey(t *testing.T) {
	got := NormalizeArtistProfile(ArtistProfile{DisplayName: "José Ángel"}, testNow)
	assert.Equal(t, got.ArtistKey, "jose_angel", "key mismatch")
	assert.Equal(t, got.DisplayName, "José Ángel", "display name mismatch")

	// a free-form legacy key converges on the canonical slug
	legacy := NormalizeArtistProfile(ArtistProfile{ArtistKey: "José Ángel"}, testNow)
	assert.Equal(t, legacy.ArtistKey, "jose_angel", "legacy key mismatch")
	assert.Equal(t, legacy.DisplayName, "jose_angel", "display name should fall back to the key")
}

func TestNormalizeWalletMovementDefaults(t *testing.T) {
	got := NormalizeWalletMovement(WalletMovement{Amount: 1500, Artist: "La Rusa"}, testNow)

	if got.ID == "" {
		t.Fatal("expected an id to be generated")
	}
	assert.Equal(t, got.Kind, WalletKindIn, "kind mismatch")
	assert.Equal(t, got.Currency, "MXN", "currency mismatch")
	assert.Equal(t, got.Artist, "la_rusa", "artist key mismatch")
	assert.Equal(t, got.DateLabel, "2023-03-14", "date label mismatch")
}

func TestSyncMetaLifecycle(t *testing.T) {
	var m SyncMeta

	m.MarkDirty(testNow)
	assert.Equal(t, m.Dirty(), true, "record should be dirty after a mutation")
	assert.Equal(t, m.LocalUpdatedAt, testNow, "localUpdatedAt mismatch")

	m.ClearDirty("2023-03-14T00:00:00Z")
	assert.Equal(t, m.Dirty(), false, "record should be clean after a push")
	assert.Equal(t, m.RemoteUpdatedAt, "2023-03-14T00:00:00Z", "remoteUpdatedAt mismatch")
}

func TestToMs(t *testing.T) {
	assert.Equal(t, ToMs(""), int64(0), "empty timestamp should map to zero")
	assert.Equal(t, ToMs("2023-03-14T00:00:00Z"), int64(1678752000000), "timestamp mismatch")
	assert.Equal(t, ToMs("garbage"), int64(0), "unparsable timestamp should map to zero")
}
