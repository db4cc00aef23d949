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

package app

import (
	"testing"
	"time"

	"github.com/oliworks/oliworks/pkg/assert"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/testutils"
)

func TestCreateUser(t *testing.T) {
	a, _ := newTestApp(t)

	user, err := a.CreateUser("alice@example.com", "pass1234")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, user.Email, "alice@example.com", "email mismatch")
	assert.NotEqual(t, user.UUID, "", "uuid should be set")
	assert.NotEqual(t, user.Password, "pass1234", "password must be hashed")
}

func TestCreateUserValidation(t *testing.T) {
	a, _ := newTestApp(t)

	if _, err := a.CreateUser("", "pass1234"); err != ErrEmailRequired {
		t.Errorf("expected ErrEmailRequired, got %v", err)
	}
	if _, err := a.CreateUser("alice@example.com", "short"); err != ErrPasswordTooShort {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}

	if _, err := a.CreateUser("alice@example.com", "pass1234"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.CreateUser("alice@example.com", "pass1234"); err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	a, _ := newTestApp(t)
	testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")

	user, err := a.Authenticate("alice@example.com", "pass1234")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, user.Email, "alice@example.com", "email mismatch")

	if _, err := a.Authenticate("alice@example.com", "wrongpass"); err != ErrLoginInvalid {
		t.Errorf("expected ErrLoginInvalid, got %v", err)
	}
	if _, err := a.Authenticate("nobody@example.com", "pass1234"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	a, c := newTestApp(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")

	session, err := a.CreateSession(user.ID)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, session.UserID, user.ID, "user id mismatch")
	assert.NotEqual(t, session.Key, "", "key should be set")
	assert.Equal(t, session.ExpiresAt, c.Now().Add(sessionTTL), "expiry mismatch")
}

func TestPurgeExpiredSessions(t *testing.T) {
	a, c := newTestApp(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234")

	expired := database.Session{
		UserID:    user.ID,
		Key:       "expired-key",
		ExpiresAt: c.Now().Add(-time.Hour),
	}
	if err := a.DB.Save(&expired).Error; err != nil {
		t.Fatal(err)
	}
	live := database.Session{
		UserID:    user.ID,
		Key:       "live-key",
		ExpiresAt: c.Now().Add(time.Hour),
	}
	if err := a.DB.Save(&live).Error; err != nil {
		t.Fatal(err)
	}

	count, err := a.PurgeExpiredSessions()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, count, int64(1), "purge count mismatch")

	var remaining []database.Session
	if err := a.DB.Find(&remaining).Error; err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(remaining), 1, "session count mismatch")
	assert.Equal(t, remaining[0].Key, "live-key", "wrong session purged")
}
