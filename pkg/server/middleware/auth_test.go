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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/server/context"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/testutils"
)

func TestGetCredential(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	got, err := GetCredential(req)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got, "", "missing header should yield empty credential")

	req.Header.Set("Authorization", "Bearer someSessionKey=")
	got, err = GetCredential(req)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got, "someSessionKey=", "credential mismatch")

	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	if _, err = GetCredential(req); err == nil {
		t.Error("expected an error for a non-bearer scheme")
	}
}

func TestAuth(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
	session := testutils.SetupSession(db, user)

	var gotUser *database.User
	handler := Auth(db, func(w http.ResponseWriter, r *http.Request) {
		gotUser = context.User(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Key)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.StatusCodeEquals(t, w.Code, http.StatusOK, "status mismatch")
	if gotUser == nil {
		t.Fatal("user should be set on the request context")
	}
	assert.Equal(t, gotUser.ID, user.ID, "user id mismatch")
}

func TestAuthRejectsGuests(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	handler := Auth(db, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.StatusCodeEquals(t, w.Code, http.StatusUnauthorized, "status mismatch")
}

func TestAuthRejectsExpiredSession(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	session := database.Session{
		UserID:    user.ID,
		Key:       "expired-key",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := db.Save(&session).Error; err != nil {
		t.Fatal(err)
	}

	handler := Auth(db, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer expired-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.StatusCodeEquals(t, w.Code, http.StatusUnauthorized, "status mismatch")
}
