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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	stdsync "sync"
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/store"
	"github.com/oliworks/oliworks/pkg/cli/testutils"
)

type upsertCall struct {
	Rows             []json.RawMessage `json:"rows"`
	IgnoreDuplicates bool              `json:"ignore_duplicates"`
}

// fakeBackend is an in-memory stand-in for the sync API. Lookups mint
// deterministic uuids by prefixing the local id.
type fakeBackend struct {
	mu         stdsync.Mutex
	upserts    map[string][]upsertCall
	pulls      map[string]string
	failPush   map[string]bool
	walletDels [][]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		upserts:  map[string][]upsertCall{},
		pulls:    map[string]string{},
		failPush: map[string]bool{},
	}
}

func fakeUUID(localID string) string {
	return "uuid-" + localID
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/v1/sync/")

		if path == "wallet-movements/delete" {
			var payload struct {
				LocalIDs []string `json:"local_ids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.walletDels = append(f.walletDels, payload.LocalIDs)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if strings.HasSuffix(path, "/lookup") {
			var payload struct {
				LocalIDs []string `json:"local_ids"`
				IDs      []string `json:"ids"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}

			var mappings []map[string]string
			for _, localID := range payload.LocalIDs {
				mappings = append(mappings, map[string]string{"id": fakeUUID(localID), "local_id": localID})
			}
			for _, id := range payload.IDs {
				mappings = append(mappings, map[string]string{"id": id, "local_id": strings.TrimPrefix(id, "uuid-")})
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(map[string]interface{}{"mappings": mappings}); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
			}
			return
		}

		if r.Method == "GET" {
			body, ok := f.pulls[path]
			if !ok {
				body = `{"rows":[]}`
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
			return
		}

		if f.failPush[path] {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}

		var call upsertCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.upserts[path] = append(f.upserts[path], call)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (f *fakeBackend) upsertedRows(table string) []json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var rows []json.RawMessage
	for _, call := range f.upserts[table] {
		rows = append(rows, call.Rows...)
	}
	return rows
}

func newTestEnv(t *testing.T) (context.OliCtx, *fakeBackend) {
	ctx := context.InitTestCtx(t)
	testutils.Login(t, &ctx)

	backend := newFakeBackend()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	ctx.APIEndpoint = server.URL

	return ctx, backend
}

func TestSyncProjectsPush(t *testing.T) {
	ctx, backend := newTestEnv(t)

	if _, err := store.UpsertProject(ctx, records.Project{Title: "Vol 1", Artist: "La Rusa"}); err != nil {
		t.Fatal(err)
	}

	if err := SyncProjects(ctx); err != nil {
		t.Fatal(err)
	}

	rows := backend.upsertedRows("projects")
	assert.Equal(t, len(rows), 1, "pushed row count mismatch")

	var row struct {
		LocalID       string `json:"local_id"`
		Title         string `json:"title"`
		ArtistLocalID string `json:"artist_local_id"`
	}
	if err := json.Unmarshal(rows[0], &row); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, row.Title, "Vol 1", "title mismatch")
	assert.Equal(t, row.ArtistLocalID, "la_rusa", "artist key mismatch")

	items, err := store.LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, items[0].PendingSync, false, "pushed project should be clean")
	assert.NotEqual(t, items[0].RemoteUpdatedAt, "", "remote timestamp should be set")
}

func TestSyncProjectsPushEnsuresArtists(t *testing.T) {
	ctx, backend := newTestEnv(t)

	if _, err := store.UpsertProject(ctx, records.Project{Title: "Vol 1", Artist: "La Rusa"}); err != nil {
		t.Fatal(err)
	}

	if err := SyncProjects(ctx); err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	calls := backend.upserts["artists"]
	backend.mu.Unlock()

	assert.Equal(t, len(calls), 1, "artist upsert call count mismatch")
	assert.Equal(t, calls[0].IgnoreDuplicates, true, "artist backfill should not clobber existing rows")

	keys := map[string]bool{}
	for _, raw := range calls[0].Rows {
		var row struct {
			LocalID string `json:"local_id"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			t.Fatal(err)
		}
		keys[row.LocalID] = true
	}
	assert.Equal(t, keys["la_rusa"], true, "referenced artist should be ensured")
	assert.Equal(t, keys["sin_artista"], true, "fallback artist should always be ensured")
}

func TestSyncProjectsPushFailureLeavesDirty(t *testing.T) {
	ctx, backend := newTestEnv(t)
	backend.failPush["projects"] = true

	if _, err := store.UpsertProject(ctx, records.Project{Title: "Vol 1"}); err != nil {
		t.Fatal(err)
	}

	if err := SyncProjects(ctx); err == nil {
		t.Fatal("expected push to fail")
	}

	items, err := store.LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, items[0].PendingSync, true, "failed batch should stay dirty")
}

func TestPullProjectsLocalWins(t *testing.T) {
	ctx, backend := newTestEnv(t)

	if _, err := store.UpsertProject(ctx, records.Project{ID: "p1", Title: "local edit"}); err != nil {
		t.Fatal(err)
	}

	backend.pulls["projects"] = `{"rows":[
		{"local_id":"p1","title":"remote edit","status":"EN_PROCESO","updated_at":"2023-03-14T01:00:00.000Z"},
		{"local_id":"p2","title":"brand new","status":"EN_PROCESO","updated_at":"2023-03-14T02:00:00.000Z"}
	]}`

	if err := pullProjects(ctx); err != nil {
		t.Fatal(err)
	}

	p1, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, p1.Title, "local edit", "dirty record should never be overwritten")
	assert.Equal(t, p1.PendingSync, true, "dirty record should stay dirty")

	p2, err := store.GetProject(ctx, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if p2 == nil {
		t.Fatal("pulled project should exist")
	}
	assert.Equal(t, p2.Title, "brand new", "title mismatch")
	assert.Equal(t, p2.PendingSync, false, "pulled record should be clean")

	mark, err := readWatermark(ctx, consts.CollectionProjects)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, mark, "2023-03-14T02:00:00.000Z", "watermark should advance to max updated_at")
}

func TestPullProjectsEmptyPageKeepsWatermark(t *testing.T) {
	ctx, _ := newTestEnv(t)

	if err := pullProjects(ctx); err != nil {
		t.Fatal(err)
	}

	mark, err := readWatermark(ctx, consts.CollectionProjects)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, mark, watermarkEpoch, "empty page should not advance the watermark")
}

func TestPullProjectsOfflineDegrades(t *testing.T) {
	ctx, _ := newTestEnv(t)

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	ctx.APIEndpoint = server.URL

	if err := pullProjects(ctx); err != nil {
		t.Fatal("offline pull should degrade to the local collection")
	}
}

func TestSyncNotLoggedIn(t *testing.T) {
	ctx := context.InitTestCtx(t)

	err := SyncProjects(ctx)
	assert.Equal(t, err, ErrNotLoggedIn, "error mismatch")

	_, err = SyncAll(ctx)
	assert.Equal(t, err, ErrNotLoggedIn, "error mismatch")
}

func TestPullWindowStart(t *testing.T) {
	got := pullWindowStart("2023-03-14T00:00:00.000Z")
	assert.Equal(t, records.ToMs(got), records.ToMs("2023-03-14T00:00:00.000Z")-2000, "window should back off for clock skew")

	got = pullWindowStart(watermarkEpoch)
	assert.Equal(t, records.ToMs(got), int64(0), "window start should not go below the epoch")
}

func TestAcquireGuard(t *testing.T) {
	if !acquire("guard_test") {
		t.Fatal("first acquire should succeed")
	}
	if acquire("guard_test") {
		t.Fatal("second acquire should be a no-op")
	}
	release("guard_test")
	if !acquire("guard_test") {
		t.Fatal("acquire after release should succeed")
	}
	release("guard_test")
}

func TestGCPurgesOldCleanTombstones(t *testing.T) {
	ctx, _ := newTestEnv(t)

	now := nowMs(ctx)
	oldISO := records.ToISO(now - 15*msPerDay)
	recentISO := records.ToISO(now - 1*msPerDay)

	projects := []records.Project{
		{ID: "old-clean", Title: "a", SyncMeta: records.SyncMeta{DeletedAt: oldISO, RemoteUpdatedAt: oldISO, LocalUpdatedAt: now}},
		{ID: "recent-clean", Title: "b", SyncMeta: records.SyncMeta{DeletedAt: recentISO, RemoteUpdatedAt: recentISO, LocalUpdatedAt: now}},
		{ID: "old-dirty", Title: "c", SyncMeta: records.SyncMeta{PendingSync: true, DeletedAt: oldISO, LocalUpdatedAt: now}},
		{ID: "alive", Title: "d", SyncMeta: records.SyncMeta{LocalUpdatedAt: now}},
	}
	if err := store.SaveProjects(ctx, projects); err != nil {
		t.Fatal(err)
	}

	cleaned, err := GC(ctx, DefaultGCRetentionDays)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, cleaned[consts.CollectionProjects], 1, "cleaned count mismatch")

	items, err := store.LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 3, "remaining count mismatch")
	for _, p := range items {
		assert.NotEqual(t, p.ID, "old-clean", "synced old tombstone should be purged")
	}
}

func TestSyncWalletPushesDeletes(t *testing.T) {
	ctx, backend := newTestEnv(t)

	m, err := store.AddWalletMovement(ctx, records.WalletMovement{Kind: records.WalletKindIn, Amount: 100})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SoftDeleteWalletMovement(ctx, m.ID); err != nil {
		t.Fatal(err)
	}

	if err := SyncWallet(ctx); err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	dels := backend.walletDels
	backend.mu.Unlock()

	assert.Equal(t, len(dels), 1, "delete call count mismatch")
	assert.DeepEqual(t, dels[0], []string{m.ID}, "deleted ids mismatch")

	items, err := store.LoadWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 0, "confirmed delete should drop the local record")
}

func TestSyncWalletResolvesRelations(t *testing.T) {
	ctx, backend := newTestEnv(t)

	if _, err := store.AddWalletMovement(ctx, records.WalletMovement{
		Kind:      records.WalletKindAdvance,
		Amount:    500,
		Artist:    "la_rusa",
		ProjectID: "p1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddWalletMovement(ctx, records.WalletMovement{
		Kind:   records.WalletKindOut,
		Amount: 75,
	}); err != nil {
		t.Fatal(err)
	}

	if err := SyncWallet(ctx); err != nil {
		t.Fatal(err)
	}

	rows := backend.upsertedRows("wallet-movements")
	assert.Equal(t, len(rows), 2, "pushed row count mismatch")

	byKind := map[string]struct {
		ArtistID  string `json:"artist_id"`
		ProjectID string `json:"project_id"`
		Kind      string `json:"kind"`
	}{}
	for _, raw := range rows {
		var row struct {
			ArtistID  string `json:"artist_id"`
			ProjectID string `json:"project_id"`
			Kind      string `json:"kind"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			t.Fatal(err)
		}
		byKind[row.Kind] = row
	}

	assert.Equal(t, byKind[records.WalletKindAdvance].ArtistID, fakeUUID("la_rusa"), "artist uuid mismatch")
	assert.Equal(t, byKind[records.WalletKindAdvance].ProjectID, fakeUUID("p1"), "project uuid mismatch")
	assert.Equal(t, byKind[records.WalletKindOut].ArtistID, fakeUUID("sin_artista"), "movements without an artist should fall back")

	items, err := store.LoadWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range items {
		assert.Equal(t, m.PendingSync, false, "pushed movement should be clean")
	}
}

func TestPullWalletKeepsLocalOnlyFields(t *testing.T) {
	ctx, backend := newTestEnv(t)

	m, err := store.AddWalletMovement(ctx, records.WalletMovement{
		Kind:     records.WalletKindIn,
		Amount:   100,
		Currency: "USD",
		Category: "SESION",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := SyncWallet(ctx); err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	backend.pulls["wallet-movements"] = fmt.Sprintf(`{"rows":[
		{"local_id":"%s","artist_id":"uuid-sin_artista","amount":150,"kind":"IN","updated_at":"2023-03-14T03:00:00.000Z"}
	]}`, m.ID)
	backend.mu.Unlock()

	if err := SyncWallet(ctx); err != nil {
		t.Fatal(err)
	}

	items, err := store.LoadWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 1, "movement count mismatch")
	assert.Equal(t, items[0].Amount, 150.0, "pulled amount should apply")
	assert.Equal(t, items[0].Currency, "USD", "currency should survive the pull")
	assert.Equal(t, items[0].Category, "SESION", "category should survive the pull")
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	ctx, backend := newTestEnv(t)
	backend.failPush["tracks"] = true

	if _, err := store.AddTrack(ctx, "p1", "El Comienzo"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddPendingTask(ctx, "cobrar saldo"); err != nil {
		t.Fatal(err)
	}

	result, err := SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, result.Ok(), false, "result should carry the failure")
	assert.Equal(t, len(result.Errors), 1, "only the failing collection should error")
	assert.NotEqual(t, result.Errors[consts.CollectionTracks], "", "tracks error missing")

	tracks, err := store.LoadTracks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, tracks[0].PendingSync, true, "failed collection should stay dirty")

	pendings, err := store.LoadPendings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pendings[0].PendingSync, false, "other collections should sync")
}

func TestCascadeDeleteArtist(t *testing.T) {
	ctx, _ := newTestEnv(t)

	if _, err := store.EnsureArtistProfile(ctx, "La Rusa"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertProject(ctx, records.Project{ID: "p1", Title: "Vol 1", Artist: "La Rusa"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.UpsertProject(ctx, records.Project{ID: "p2", Title: "Other", Artist: "Peso Doble"}); err != nil {
		t.Fatal(err)
	}
	track, err := store.AddTrack(ctx, "p1", "El Comienzo")
	if err != nil {
		t.Fatal(err)
	}
	movement, err := store.AddWalletMovement(ctx, records.WalletMovement{Kind: records.WalletKindIn, Amount: 100, Artist: "la_rusa"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := CascadeDeleteArtist(ctx, "la_rusa")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, result.Ok(), true, "cascade sync should succeed")

	p1, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, p1.Deleted(), true, "artist's project should be tombstoned")

	p2, err := store.GetProject(ctx, "p2")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, p2.Deleted(), false, "other artist's project should survive")

	got, err := store.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got.Deleted(), true, "track of deleted project should be tombstoned")

	profile, err := store.GetArtistProfile(ctx, "la_rusa")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, profile.Deleted(), true, "profile should be tombstoned")

	wallet, err := store.LoadWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range wallet {
		assert.NotEqual(t, m.ID, movement.ID, "artist's movement should be hard deleted after push")
	}
}

func TestForceResyncProjects(t *testing.T) {
	ctx, backend := newTestEnv(t)

	if _, err := store.UpsertProject(ctx, records.Project{ID: "p1", Title: "stale"}); err != nil {
		t.Fatal(err)
	}
	if err := SyncProjects(ctx); err != nil {
		t.Fatal(err)
	}

	backend.mu.Lock()
	backend.pulls["projects"] = `{"rows":[
		{"local_id":"p9","title":"fresh","status":"EN_PROCESO","updated_at":"2023-03-14T05:00:00.000Z"}
	]}`
	backend.mu.Unlock()

	if err := ForceResyncProjects(ctx); err != nil {
		t.Fatal(err)
	}

	items, err := store.LoadProjects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(items), 1, "collection should be rebuilt from the backend")
	assert.Equal(t, items[0].ID, "p9", "id mismatch")
}
