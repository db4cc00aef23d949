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

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/clock"
	"github.com/oliworks/oliworks/pkg/server/app"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/testutils"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.App) {
	c := clock.NewMock()
	c.SetNow(time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC))

	a := &app.App{
		DB:    testutils.InitMemoryDB(t),
		Clock: c,
	}

	ctl := New(a)
	rc := RouteConfig{
		APIRoutes:   NewAPIRoutes(a, ctl),
		Controllers: ctl,
	}

	r, err := NewRouter(a, rc)
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server, a
}

func TestSignin(t *testing.T) {
	server, a := newTestServer(t)
	testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")

	body := `{"email": "alice@example.com", "password": "pass1234"}`
	req, err := http.NewRequest("POST", server.URL+"/api/v1/signin", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status mismatch")
	assert.Equal(t, res.Header.Get("Content-Type"), "application/json", "content type mismatch")

	var payload SessionResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, payload.Key, "", "session key should be set")
	assert.Equal(t, payload.ExpiresAt, a.Clock.Now().Add(24*100*time.Hour).Unix(), "expiry mismatch")
}

func TestSigninInvalidCredentials(t *testing.T) {
	server, a := newTestServer(t)
	testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")

	body := `{"email": "alice@example.com", "password": "wrongpass"}`
	req, err := http.NewRequest("POST", server.URL+"/api/v1/signin", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status mismatch")
}

func TestMe(t *testing.T) {
	server, a := newTestServer(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")
	session := testutils.SetupSession(a.DB, user)

	req, err := http.NewRequest("GET", server.URL+"/api/v1/me", nil)
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPAuthDo(t, req, session.Key)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status mismatch")

	var payload MeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, payload.User.UUID, user.UUID, "uuid mismatch")
	assert.Equal(t, payload.User.Email, "alice@example.com", "email mismatch")
}

func TestMeRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest("GET", server.URL+"/api/v1/me", nil)
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status mismatch")
}

func TestSignout(t *testing.T) {
	server, a := newTestServer(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")
	session := testutils.SetupSession(a.DB, user)

	req, err := http.NewRequest("POST", server.URL+"/api/v1/signout", nil)
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPAuthDo(t, req, session.Key)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusNoContent, "status mismatch")

	// the session must be gone
	meReq, err := http.NewRequest("GET", server.URL+"/api/v1/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	meRes := testutils.HTTPAuthDo(t, meReq, session.Key)
	assert.StatusCodeEquals(t, meRes.StatusCode, http.StatusUnauthorized, "session should be invalidated")
}

func TestSyncProjectsRoundtrip(t *testing.T) {
	server, a := newTestServer(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")
	session := testutils.SetupSession(a.DB, user)

	body := `{"rows": [{"local_id": "p1", "title": "Nublado", "status": "EN_PROCESO", "progress": 40, "artist_local_id": "la_rusa", "total_cost": 1500, "data": {"title": "Nublado"}}]}`
	pushReq, err := http.NewRequest("POST", server.URL+"/api/v1/sync/projects", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	pushRes := testutils.HTTPAuthDo(t, pushReq, session.Key)
	assert.StatusCodeEquals(t, pushRes.StatusCode, http.StatusNoContent, "push status mismatch")
	assert.Equal(t, pushRes.Header.Get("Content-Type"), "", "push response should have no content type")

	pullReq, err := http.NewRequest("GET", server.URL+"/api/v1/sync/projects?updated_since=1970-01-01T00:00:00.000Z", nil)
	if err != nil {
		t.Fatal(err)
	}

	pullRes := testutils.HTTPAuthDo(t, pullReq, session.Key)
	assert.StatusCodeEquals(t, pullRes.StatusCode, http.StatusOK, "pull status mismatch")
	assert.Equal(t, pullRes.Header.Get("Content-Type"), "application/json", "content type mismatch")

	var payload GetProjectsResp
	if err := json.NewDecoder(pullRes.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(payload.Rows), 1, "row count mismatch")
	row := payload.Rows[0]
	assert.Equal(t, row.LocalID, "p1", "local id mismatch")
	assert.Equal(t, row.Title, "Nublado", "title mismatch")
	assert.Equal(t, row.Progress, 40, "progress mismatch")
	assert.Equal(t, row.UpdatedAt, "2023-03-14T00:00:00.000Z", "updated_at mismatch")
	assert.DeepEqual(t, row.Data, json.RawMessage(`{"title":"Nublado"}`), "data mismatch")
}

func TestSyncPullScopedToUser(t *testing.T) {
	server, a := newTestServer(t)
	alice := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")
	bob := testutils.SetupUserData(a.DB, "bob@example.com", "pass1234")
	bobSession := testutils.SetupSession(a.DB, bob)

	rows := []database.Pending{{LocalID: "t1", Text: "alice task"}}
	if err := a.UpsertPendings(alice.ID, rows, false); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest("GET", server.URL+"/api/v1/sync/pendings", nil)
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPAuthDo(t, req, bobSession.Key)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status mismatch")

	var payload GetPendingsResp
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(payload.Rows), 0, "should not see another user's rows")
}

func TestWalletMovementLifecycle(t *testing.T) {
	server, a := newTestServer(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")
	session := testutils.SetupSession(a.DB, user)

	// upsert the artist parent rows and look up the minted uuid
	artistsBody := `{"rows": [{"local_id": "la_rusa", "name": "La Rusa"}], "ignore_duplicates": true}`
	artistsReq, err := http.NewRequest("POST", server.URL+"/api/v1/sync/artists", strings.NewReader(artistsBody))
	if err != nil {
		t.Fatal(err)
	}
	artistsRes := testutils.HTTPAuthDo(t, artistsReq, session.Key)
	assert.StatusCodeEquals(t, artistsRes.StatusCode, http.StatusNoContent, "artists push status mismatch")

	lookupBody := `{"local_ids": ["la_rusa"]}`
	lookupReq, err := http.NewRequest("POST", server.URL+"/api/v1/sync/artists/lookup", strings.NewReader(lookupBody))
	if err != nil {
		t.Fatal(err)
	}
	lookupRes := testutils.HTTPAuthDo(t, lookupReq, session.Key)
	assert.StatusCodeEquals(t, lookupRes.StatusCode, http.StatusOK, "lookup status mismatch")

	var lookup LookupResp
	if err := json.NewDecoder(lookupRes.Body).Decode(&lookup); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(lookup.Mappings), 1, "mapping count mismatch")
	assert.Equal(t, lookup.Mappings[0].LocalID, "la_rusa", "mapping local id mismatch")
	artistUUID := lookup.Mappings[0].ID
	assert.NotEqual(t, artistUUID, "", "artist uuid should be set")

	// push a movement referencing the artist uuid
	movementBody := fmt.Sprintf(`{"rows": [{"local_id": "m1", "artist_id": %q, "amount": 500, "kind": "ANTICIPO"}]}`, artistUUID)
	movementReq, err := http.NewRequest("POST", server.URL+"/api/v1/sync/wallet-movements", strings.NewReader(movementBody))
	if err != nil {
		t.Fatal(err)
	}
	movementRes := testutils.HTTPAuthDo(t, movementReq, session.Key)
	assert.StatusCodeEquals(t, movementRes.StatusCode, http.StatusNoContent, "movement push status mismatch")

	// delete it for good
	deleteBody := `{"local_ids": ["m1"]}`
	deleteReq, err := http.NewRequest("POST", server.URL+"/api/v1/sync/wallet-movements/delete", strings.NewReader(deleteBody))
	if err != nil {
		t.Fatal(err)
	}
	deleteRes := testutils.HTTPAuthDo(t, deleteReq, session.Key)
	assert.StatusCodeEquals(t, deleteRes.StatusCode, http.StatusNoContent, "delete status mismatch")

	pullReq, err := http.NewRequest("GET", server.URL+"/api/v1/sync/wallet-movements", nil)
	if err != nil {
		t.Fatal(err)
	}
	pullRes := testutils.HTTPAuthDo(t, pullReq, session.Key)

	var payload GetWalletMovementsResp
	if err := json.NewDecoder(pullRes.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(payload.Rows), 0, "deleted movement should be gone")
}

func TestSyncRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest("GET", server.URL+"/api/v1/sync/projects", nil)
	if err != nil {
		t.Fatal(err)
	}

	res := testutils.HTTPDo(t, req)
	assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status mismatch")
}
