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

package database

import (
	"testing"

	"github.com/oliworks/oliworks/pkg/assert"
)

func TestGetJSONMissingKey(t *testing.T) {
	db := InitTestMemoryDB(t)

	got := []string{"untouched"}
	if err := GetJSON(db, "no_such_collection", &got); err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, got, []string{"untouched"}, "dest mismatch")
}

func TestSetJSONRoundtrip(t *testing.T) {
	db := InitTestMemoryDB(t)

	type item struct {
		Name string `json:"name"`
		Done bool   `json:"done"`
	}

	if err := SetJSON(db, "items", []item{{Name: "mix", Done: true}}); err != nil {
		t.Fatal(err)
	}

	var got []item
	if err := GetJSON(db, "items", &got); err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, got, []item{{Name: "mix", Done: true}}, "value mismatch")
}

func TestSetJSONReplaces(t *testing.T) {
	db := InitTestMemoryDB(t)

	if err := SetJSON(db, "items", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := SetJSON(db, "items", []string{"c"}); err != nil {
		t.Fatal(err)
	}

	var got []string
	if err := GetJSON(db, "items", &got); err != nil {
		t.Fatal(err)
	}

	assert.DeepEqual(t, got, []string{"c"}, "value mismatch")

	var count int
	MustScan(t, "counting rows", db.QueryRow("SELECT count(*) FROM collections WHERE key = ?", "items"), &count)
	assert.Equal(t, count, 1, "row count mismatch")
}

func TestSystemKV(t *testing.T) {
	db := InitTestMemoryDB(t)

	if err := UpsertSystem(db, "last_pull_projects", "2024-01-02T03:04:05Z"); err != nil {
		t.Fatal(err)
	}

	var got string
	if err := GetSystem(db, "last_pull_projects", &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got, "2024-01-02T03:04:05Z", "value mismatch")

	if err := UpsertSystem(db, "last_pull_projects", "2024-02-02T03:04:05Z"); err != nil {
		t.Fatal(err)
	}
	if err := GetSystem(db, "last_pull_projects", &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, got, "2024-02-02T03:04:05Z", "value mismatch after upsert")

	if err := DeleteSystem(db, "last_pull_projects"); err != nil {
		t.Fatal(err)
	}
	err := GetSystem(db, "last_pull_projects", &got)
	if err == nil {
		t.Fatal("expected an error for a missing key")
	}
}

func TestTransactionRollback(t *testing.T) {
	db := InitTestMemoryDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if err := UpsertSystem(tx, "user_id", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	var got string
	err = GetSystem(db, "user_id", &got)
	if err == nil {
		t.Fatal("expected the write to be rolled back")
	}
}
