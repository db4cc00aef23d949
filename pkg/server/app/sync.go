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
	"time"

	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/helpers"
	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// Sync tables are keyed by (user_id, local_id), except artist profiles
// which are keyed by (user_id, artist_key). Upserts never touch id,
// uuid or created_at of an existing row, and always stamp updated_at
// with the server clock so incremental pulls see the change.

func onConflict(conflictCols, updateCols []string, ignoreDuplicates bool) clause.OnConflict {
	cols := make([]clause.Column, 0, len(conflictCols))
	for _, c := range conflictCols {
		cols = append(cols, clause.Column{Name: c})
	}

	oc := clause.OnConflict{Columns: cols}
	if ignoreDuplicates {
		oc.DoNothing = true
	} else {
		oc.DoUpdates = clause.AssignmentColumns(updateCols)
	}

	return oc
}

// UpsertProjects upserts the given project rows for the user
func (a *App) UpsertProjects(userID int, rows []database.Project, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		uuid, err := helpers.GenUUID()
		if err != nil {
			return errors.Wrap(err, "generating uuid")
		}

		rows[i].UserID = userID
		rows[i].UUID = uuid
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"title", "status", "progress", "artist_local_id", "total_cost", "data", "deleted_at", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting projects")
	}

	return nil
}

// GetProjectsSince returns the user's project rows updated at or after
// the given time, ascending by updated_at
func (a *App) GetProjectsSince(userID int, since time.Time) ([]database.Project, error) {
	var rows []database.Project
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}

	return rows, nil
}

// UpsertTracks upserts the given track rows for the user
func (a *App) UpsertTracks(userID int, rows []database.Track, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		rows[i].UserID = userID
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"project_local_id", "title", "status", "progress", "general", "musicians", "tuning", "editing", "deleted_at", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting tracks")
	}

	return nil
}

// GetTracksSince returns the user's track rows updated at or after the
// given time, ascending by updated_at
func (a *App) GetTracksSince(userID int, since time.Time) ([]database.Track, error) {
	var rows []database.Track
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}

	return rows, nil
}

// UpsertEvents upserts the given event rows for the user
func (a *App) UpsertEvents(userID int, rows []database.Event, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		rows[i].UserID = userID
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"title", "starts_at", "notes", "deleted_at", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting events")
	}

	return nil
}

// GetEventsSince returns the user's event rows updated at or after the
// given time, ascending by updated_at
func (a *App) GetEventsSince(userID int, since time.Time) ([]database.Event, error) {
	var rows []database.Event
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}

	return rows, nil
}

// UpsertPendings upserts the given pending rows for the user
func (a *App) UpsertPendings(userID int, rows []database.Pending, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		rows[i].UserID = userID
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"text", "done", "deleted_at", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting pendings")
	}

	return nil
}

// GetPendingsSince returns the user's pending rows updated at or after
// the given time, ascending by updated_at
func (a *App) GetPendingsSince(userID int, since time.Time) ([]database.Pending, error) {
	var rows []database.Pending
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying pendings")
	}

	return rows, nil
}

// UpsertArtists upserts the given rows into the artists parent table
func (a *App) UpsertArtists(userID int, rows []database.Artist, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		uuid, err := helpers.GenUUID()
		if err != nil {
			return errors.Wrap(err, "generating uuid")
		}

		rows[i].UserID = userID
		rows[i].UUID = uuid
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"name", "global_note", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting artists")
	}

	return nil
}

// UpsertArtistProfiles upserts the given profile rows for the user
func (a *App) UpsertArtistProfiles(userID int, rows []database.ArtistProfile, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		rows[i].UserID = userID
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "artist_key"},
		[]string{"display_name", "note", "advance_total", "deleted_at", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting artist profiles")
	}

	return nil
}

// GetArtistProfilesSince returns the user's profile rows updated at or
// after the given time, ascending by updated_at
func (a *App) GetArtistProfilesSince(userID int, since time.Time) ([]database.ArtistProfile, error) {
	var rows []database.ArtistProfile
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying artist profiles")
	}

	return rows, nil
}

// UpsertWalletMovements upserts the given wallet rows for the user
func (a *App) UpsertWalletMovements(userID int, rows []database.WalletMovement, ignoreDuplicates bool) error {
	if len(rows) == 0 {
		return nil
	}

	now := a.Clock.Now()
	for i := range rows {
		rows[i].UserID = userID
		rows[i].UpdatedAt = now
	}

	oc := onConflict(
		[]string{"user_id", "local_id"},
		[]string{"artist_id", "project_id", "amount", "kind", "note", "updated_at"},
		ignoreDuplicates,
	)
	if err := a.DB.Clauses(oc).Create(&rows).Error; err != nil {
		return errors.Wrap(err, "upserting wallet movements")
	}

	return nil
}

// GetWalletMovementsSince returns the user's wallet rows updated at or
// after the given time, ascending by updated_at
func (a *App) GetWalletMovementsSince(userID int, since time.Time) ([]database.WalletMovement, error) {
	var rows []database.WalletMovement
	err := a.DB.Where("user_id = ? AND updated_at >= ?", userID, since).
		Order("updated_at ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying wallet movements")
	}

	return rows, nil
}

// DeleteWalletMovements removes the given wallet rows for good. The
// wallet table has no tombstone column, so client soft deletes arrive
// here as real deletes.
func (a *App) DeleteWalletMovements(userID int, localIDs []string) error {
	if len(localIDs) == 0 {
		return nil
	}

	err := a.DB.Where("user_id = ? AND local_id IN ?", userID, localIDs).
		Delete(&database.WalletMovement{}).Error
	if err != nil {
		return errors.Wrap(err, "deleting wallet movements")
	}

	return nil
}

// LookupArtists finds the user's artists either by local id or by uuid
func (a *App) LookupArtists(userID int, localIDs, ids []string) ([]database.Artist, error) {
	var rows []database.Artist

	q := a.DB.Where("user_id = ?", userID)
	if len(localIDs) > 0 {
		q = q.Where("local_id IN ?", localIDs)
	} else {
		q = q.Where("uuid IN ?", ids)
	}

	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying artists")
	}

	return rows, nil
}

// LookupProjects finds the user's projects either by local id or by uuid
func (a *App) LookupProjects(userID int, localIDs, ids []string) ([]database.Project, error) {
	var rows []database.Project

	q := a.DB.Where("user_id = ?", userID)
	if len(localIDs) > 0 {
		q = q.Where("local_id IN ?", localIDs)
	} else {
		q = q.Where("uuid IN ?", ids)
	}

	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}

	return rows, nil
}
