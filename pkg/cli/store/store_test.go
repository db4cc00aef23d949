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
	"path/filepath"
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/database"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/resolver"
)

func TestUpsertProjectMarksDirty(t *testing.T) {
	ctx := context.InitTestCtx(t)

	_, err := UpsertProject(ctx, records.Project{Title: "Rancho Humilde", Artist: "La Rusa"})
	if err != nil {
		t.Fatal(err)
	}

	items, err := LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(items), 1, "project count mismatch")
	assert.Equal(t, items[0].Title, "Rancho Humilde", "title mismatch")
	assert.Equal(t, items[0].ArtistLocalID, "la_rusa", "artist key mismatch")
	assert.Equal(t, items[0].PendingSync, true, "project should be dirty")
	assert.NotEqual(t, items[0].ID, "", "id should be minted")
}

func TestSoftDeleteProject(t *testing.T) {
	ctx := context.InitTestCtx(t)

	items, err := UpsertProject(ctx, records.Project{ID: "p1", Title: "Corridos Vol 2"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 1, "project count mismatch")

	if _, err := SoftDeleteProject(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	p, err := GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("tombstoned project should still be loadable")
	}
	assert.Equal(t, p.Deleted(), true, "project should be tombstoned")
	assert.Equal(t, p.PendingSync, true, "tombstone should be dirty")
}

func TestTrackItemLifecycle(t *testing.T) {
	ctx := context.InitTestCtx(t)

	track, err := AddTrack(ctx, "p1", "El Comienzo")
	if err != nil {
		t.Fatal(err)
	}

	track, err = AddTrackItem(ctx, track.ID, records.TrackSectionMusicians, "grabar bajo")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(track.Musicians), 1, "item count mismatch")
	assert.Equal(t, track.Progress, 0, "progress mismatch after add")

	itemID := track.Musicians[0].ID

	track, err = ToggleTrackItem(ctx, track.ID, records.TrackSectionMusicians, itemID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, track.Musicians[0].Done, true, "item should be done")
	assert.Equal(t, track.Progress, 100, "progress mismatch after toggle")
	assert.Equal(t, track.Status, records.TrackStatusDone, "status mismatch at full progress")

	track, err = DeleteTrackItem(ctx, track.ID, records.TrackSectionMusicians, itemID)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, track.Musicians[0].DeletedAt, "", "item should be tombstoned")
	assert.Equal(t, track.Progress, 0, "deleted items should not count toward progress")
}

func TestLoadTracksByProjectFiltersTombstones(t *testing.T) {
	ctx := context.InitTestCtx(t)

	t1, err := AddTrack(ctx, "p1", "one")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := AddTrack(ctx, "p1", "two"); err != nil {
		t.Fatal(err)
	}
	if _, err := AddTrack(ctx, "p2", "other"); err != nil {
		t.Fatal(err)
	}

	if _, err := SoftDeleteTrack(ctx, t1.ID); err != nil {
		t.Fatal(err)
	}

	got, err := LoadTracksByProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(got), 1, "track count mismatch")
	assert.Equal(t, got[0].Title, "two", "title mismatch")
}

func TestPendingTaskLifecycle(t *testing.T) {
	ctx := context.InitTestCtx(t)

	task, err := AddPendingTask(ctx, "mandar stems")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := TogglePendingTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	alive, err := LoadPendingsAlive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(alive), 1, "alive count mismatch")
	assert.Equal(t, alive[0].Done, true, "task should be done")

	if _, err := SoftDeletePendingTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}

	alive, err = LoadPendingsAlive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(alive), 0, "tombstoned task should not be listed")

	all, err := LoadPendings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(all), 1, "tombstone should survive until sync")
}

func TestEnsureArtistProfileResolvesSpellings(t *testing.T) {
	ctx := context.InitTestCtx(t)

	first, err := EnsureArtistProfile(ctx, "La Rusa")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, first.ArtistKey, "la_rusa", "key mismatch")
	assert.Equal(t, first.DisplayName, "La Rusa", "display name mismatch")

	second, err := EnsureArtistProfile(ctx, "la  rusa ")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, second.ArtistKey, "la_rusa", "respelled input should resolve to same key")
	assert.Equal(t, second.DisplayName, "La Rusa", "display name should not be clobbered")

	items, err := LoadArtistProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 1, "profile count mismatch")
}

func TestEnsureArtistProfileDefault(t *testing.T) {
	ctx := context.InitTestCtx(t)

	profile, err := EnsureArtistProfile(ctx, "   ")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, profile.ArtistKey, resolver.DefaultArtistKey, "key mismatch")
	assert.Equal(t, profile.DisplayName, resolver.DefaultArtistName, "display name mismatch")
}

func TestSetArtistNote(t *testing.T) {
	ctx := context.InitTestCtx(t)

	if _, err := SetArtistNote(ctx, "Peso Doble", "paga por adelantado"); err != nil {
		t.Fatal(err)
	}

	profile, err := GetArtistProfile(ctx, "peso_doble")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil {
		t.Fatal("profile should have been created")
	}
	assert.Equal(t, profile.Note, "paga por adelantado", "note mismatch")
}

func TestSummarizeWallet(t *testing.T) {
	ctx := context.InitTestCtx(t)

	if _, err := AddWalletMovement(ctx, records.WalletMovement{Kind: records.WalletKindIn, Amount: 1000}); err != nil {
		t.Fatal(err)
	}
	if _, err := AddWalletMovement(ctx, records.WalletMovement{Kind: records.WalletKindOut, Amount: 300}); err != nil {
		t.Fatal(err)
	}
	m, err := AddWalletMovement(ctx, records.WalletMovement{Kind: records.WalletKindOut, Amount: 50})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := SoftDeleteWalletMovement(ctx, m.ID); err != nil {
		t.Fatal(err)
	}

	s, err := SummarizeWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, s.Income, 1000.0, "income mismatch")
	assert.Equal(t, s.Expense, 300.0, "expense mismatch")
	assert.Equal(t, s.Net, 700.0, "net mismatch")
	assert.Equal(t, s.Count, 2, "count mismatch")
}

func TestReplaceProjectAdvances(t *testing.T) {
	ctx := context.InitTestCtx(t)

	project := records.Project{
		ID:            "p1",
		ArtistLocalID: "la_rusa",
		Payment: records.Payment{
			Advances: []records.PaymentAdvance{
				{ID: "a1", Amount: 500},
				{ID: "a2", Amount: 250},
			},
		},
	}

	items, err := ReplaceProjectAdvances(ctx, project)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 2, "movement count mismatch")

	byID := map[string]records.WalletMovement{}
	for _, m := range items {
		byID[m.ID] = m
	}

	m1 := byID["adv_p1_a1"]
	assert.Equal(t, m1.Amount, 500.0, "amount mismatch")
	assert.Equal(t, m1.Kind, records.WalletKindAdvance, "kind mismatch")
	assert.Equal(t, m1.Category, WalletCategoryAdvance, "category mismatch")
	assert.Equal(t, m1.Artist, "la_rusa", "artist mismatch")

	// drop a2, bump a1
	project.Payment.Advances = []records.PaymentAdvance{{ID: "a1", Amount: 600}}

	items, err = ReplaceProjectAdvances(ctx, project)
	if err != nil {
		t.Fatal(err)
	}

	byID = map[string]records.WalletMovement{}
	for _, m := range items {
		byID[m.ID] = m
	}

	assert.Equal(t, byID["adv_p1_a1"].Amount, 600.0, "amount should be updated")
	a2 := byID["adv_p1_a2"]
	assert.Equal(t, a2.Deleted(), true, "stale advance should be tombstoned")
}

func TestBackupRoundtrip(t *testing.T) {
	ctx := context.InitTestCtx(t)

	if _, err := UpsertProject(ctx, records.Project{ID: "p1", Title: "Sesiones", Artist: "La Rusa"}); err != nil {
		t.Fatal(err)
	}
	if _, err := AddPendingTask(ctx, "cobrar saldo"); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureArtistProfile(ctx, "La Rusa"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "backup.json")
	if err := ExportBackup(ctx, path); err != nil {
		t.Fatal(err)
	}

	ctx2 := context.InitTestCtx(t)
	if err := ImportBackup(ctx2, path); err != nil {
		t.Fatal(err)
	}

	projects, err := LoadProjects(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(projects), 1, "project count mismatch")
	assert.Equal(t, projects[0].Title, "Sesiones", "title mismatch")
	assert.Equal(t, projects[0].PendingSync, true, "imported records should be dirty")

	pendings, err := LoadPendings(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(pendings), 1, "pending count mismatch")

	profiles, err := LoadArtistProfiles(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(profiles), 1, "profile count mismatch")
}

func TestSelfHealRewritesLegacyShape(t *testing.T) {
	ctx := context.InitTestCtx(t)

	// legacy payload missing normalized fields
	raw := json.RawMessage(`[{"id":"p1","title":" Padded ","artist":"José Ángel"}]`)
	if err := database.SetJSON(ctx.DB, consts.CollectionProjects, raw); err != nil {
		t.Fatal(err)
	}

	items, err := LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 1, "project count mismatch")
	assert.Equal(t, items[0].Title, "Padded", "title should be trimmed")
	assert.Equal(t, items[0].Status, records.ProjectStatusInProcess, "status should be defaulted")
	assert.Equal(t, items[0].ArtistLocalID, "jose_angel", "artist key should be backfilled")
}
