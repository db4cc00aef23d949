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
	"net/http"
	"time"

	"github.com/oliworks/oliworks/pkg/server/app"
	"github.com/oliworks/oliworks/pkg/server/context"
	"github.com/oliworks/oliworks/pkg/server/database"
	"github.com/oliworks/oliworks/pkg/server/presenters"
	"github.com/pkg/errors"
)

// NewSync creates a new Sync controller
func NewSync(app *app.App) *Sync {
	return &Sync{app: app}
}

// Sync is a controller for the sync endpoints
type Sync struct {
	app *app.App
}

// parseUpdatedSince reads the updated_since query parameter. A missing
// value means the epoch, so a fresh client pulls everything.
func parseUpdatedSince(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("updated_since")
	if s == "" {
		return time.Unix(0, 0).UTC(), nil
	}

	t, err := presenters.ParseTS(s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parsing updated_since")
	}

	return t, nil
}

// GetProjectsResp is the response for the projects pull endpoint
type GetProjectsResp struct {
	Rows []presenters.Project `json:"rows"`
}

// GetProjects returns the user's project rows for an incremental pull
func (s *Sync) GetProjects(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetProjectsSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting projects")
		return
	}

	respondJSON(w, http.StatusOK, GetProjectsResp{Rows: presenters.PresentProjects(rows)})
}

type projectsPayload struct {
	Rows             []presenters.Project `json:"rows"`
	IgnoreDuplicates bool                 `json:"ignore_duplicates"`
}

func toProjectModel(row presenters.Project) (database.Project, error) {
	deletedAt, err := presenters.ParseNullTS(row.DeletedAt)
	if err != nil {
		return database.Project{}, errors.Wrap(err, "parsing deleted_at")
	}

	ret := database.Project{
		LocalID:       row.LocalID,
		Title:         row.Title,
		Status:        row.Status,
		Progress:      row.Progress,
		ArtistLocalID: row.ArtistLocalID,
		TotalCost:     row.TotalCost,
		Data:          []byte(row.Data),
		DeletedAt:     deletedAt,
	}

	if row.CreatedAt != "" {
		createdAt, err := presenters.ParseTS(row.CreatedAt)
		if err != nil {
			return database.Project{}, errors.Wrap(err, "parsing created_at")
		}
		ret.CreatedAt = createdAt
	}

	return ret, nil
}

// SaveProjects upserts the pushed project rows
func (s *Sync) SaveProjects(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload projectsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.Project, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toProjectModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertProjects(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting projects")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTracksResp is the response for the tracks pull endpoint
type GetTracksResp struct {
	Rows []presenters.Track `json:"rows"`
}

// GetTracks returns the user's track rows for an incremental pull
func (s *Sync) GetTracks(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetTracksSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting tracks")
		return
	}

	respondJSON(w, http.StatusOK, GetTracksResp{Rows: presenters.PresentTracks(rows)})
}

type tracksPayload struct {
	Rows             []presenters.Track `json:"rows"`
	IgnoreDuplicates bool               `json:"ignore_duplicates"`
}

func toTrackModel(row presenters.Track) (database.Track, error) {
	deletedAt, err := presenters.ParseNullTS(row.DeletedAt)
	if err != nil {
		return database.Track{}, errors.Wrap(err, "parsing deleted_at")
	}

	return database.Track{
		LocalID:        row.LocalID,
		ProjectLocalID: row.ProjectID,
		Title:          row.Title,
		Status:         row.Status,
		Progress:       row.Progress,
		General:        []byte(row.General),
		Musicians:      []byte(row.Musicians),
		Tuning:         []byte(row.Tuning),
		Editing:        []byte(row.Editing),
		DeletedAt:      deletedAt,
	}, nil
}

// SaveTracks upserts the pushed track rows
func (s *Sync) SaveTracks(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload tracksPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.Track, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toTrackModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertTracks(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting tracks")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetEventsResp is the response for the events pull endpoint
type GetEventsResp struct {
	Rows []presenters.Event `json:"rows"`
}

// GetEvents returns the user's event rows for an incremental pull
func (s *Sync) GetEvents(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetEventsSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting events")
		return
	}

	respondJSON(w, http.StatusOK, GetEventsResp{Rows: presenters.PresentEvents(rows)})
}

type eventsPayload struct {
	Rows             []presenters.Event `json:"rows"`
	IgnoreDuplicates bool               `json:"ignore_duplicates"`
}

func toEventModel(row presenters.Event) (database.Event, error) {
	startsAt, err := presenters.ParseTS(row.StartsAt)
	if err != nil {
		return database.Event{}, errors.Wrap(err, "parsing starts_at")
	}

	deletedAt, err := presenters.ParseNullTS(row.DeletedAt)
	if err != nil {
		return database.Event{}, errors.Wrap(err, "parsing deleted_at")
	}

	return database.Event{
		LocalID:   row.LocalID,
		Title:     row.Title,
		StartsAt:  startsAt,
		Notes:     row.Notes,
		DeletedAt: deletedAt,
	}, nil
}

// SaveEvents upserts the pushed event rows
func (s *Sync) SaveEvents(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload eventsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.Event, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toEventModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertEvents(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting events")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPendingsResp is the response for the pendings pull endpoint
type GetPendingsResp struct {
	Rows []presenters.Pending `json:"rows"`
}

// GetPendings returns the user's pending rows for an incremental pull
func (s *Sync) GetPendings(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetPendingsSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting pendings")
		return
	}

	respondJSON(w, http.StatusOK, GetPendingsResp{Rows: presenters.PresentPendings(rows)})
}

type pendingsPayload struct {
	Rows             []presenters.Pending `json:"rows"`
	IgnoreDuplicates bool                 `json:"ignore_duplicates"`
}

func toPendingModel(row presenters.Pending) (database.Pending, error) {
	deletedAt, err := presenters.ParseNullTS(row.DeletedAt)
	if err != nil {
		return database.Pending{}, errors.Wrap(err, "parsing deleted_at")
	}

	return database.Pending{
		LocalID:   row.LocalID,
		Text:      row.Text,
		Done:      row.Done,
		DeletedAt: deletedAt,
	}, nil
}

// SavePendings upserts the pushed pending rows
func (s *Sync) SavePendings(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload pendingsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.Pending, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toPendingModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertPendings(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting pendings")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetArtistProfilesResp is the response for the artist profiles pull endpoint
type GetArtistProfilesResp struct {
	Rows []presenters.ArtistProfile `json:"rows"`
}

// GetArtistProfiles returns the user's profile rows for an incremental pull
func (s *Sync) GetArtistProfiles(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetArtistProfilesSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting artist profiles")
		return
	}

	respondJSON(w, http.StatusOK, GetArtistProfilesResp{Rows: presenters.PresentArtistProfiles(rows)})
}

type artistProfilesPayload struct {
	Rows             []presenters.ArtistProfile `json:"rows"`
	IgnoreDuplicates bool                       `json:"ignore_duplicates"`
}

func toArtistProfileModel(row presenters.ArtistProfile) (database.ArtistProfile, error) {
	deletedAt, err := presenters.ParseNullTS(row.DeletedAt)
	if err != nil {
		return database.ArtistProfile{}, errors.Wrap(err, "parsing deleted_at")
	}

	return database.ArtistProfile{
		ArtistKey:    row.ArtistKey,
		DisplayName:  row.DisplayName,
		Note:         row.Note,
		AdvanceTotal: row.AdvanceTotal,
		DeletedAt:    deletedAt,
	}, nil
}

// SaveArtistProfiles upserts the pushed profile rows
func (s *Sync) SaveArtistProfiles(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload artistProfilesPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.ArtistProfile, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toArtistProfileModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertArtistProfiles(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting artist profiles")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type artistsPayload struct {
	Rows             []presenters.Artist `json:"rows"`
	IgnoreDuplicates bool                `json:"ignore_duplicates"`
}

// SaveArtists upserts the pushed rows into the artists parent table
func (s *Sync) SaveArtists(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload artistsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.Artist, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		rows = append(rows, database.Artist{
			LocalID:    row.LocalID,
			Name:       row.Name,
			GlobalNote: row.GlobalNote,
		})
	}

	if err := s.app.UpsertArtists(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting artists")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetWalletMovementsResp is the response for the wallet pull endpoint
type GetWalletMovementsResp struct {
	Rows []presenters.WalletMovement `json:"rows"`
}

// GetWalletMovements returns the user's wallet rows for an incremental pull
func (s *Sync) GetWalletMovements(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	since, err := parseUpdatedSince(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := s.app.GetWalletMovementsSince(user.ID, since)
	if err != nil {
		handleJSONError(w, err, "getting wallet movements")
		return
	}

	respondJSON(w, http.StatusOK, GetWalletMovementsResp{Rows: presenters.PresentWalletMovements(rows)})
}

type walletMovementsPayload struct {
	Rows             []presenters.WalletMovement `json:"rows"`
	IgnoreDuplicates bool                        `json:"ignore_duplicates"`
}

func toWalletMovementModel(row presenters.WalletMovement) (database.WalletMovement, error) {
	ret := database.WalletMovement{
		LocalID:   row.LocalID,
		ArtistID:  row.ArtistID,
		ProjectID: row.ProjectID,
		Amount:    row.Amount,
		Kind:      row.Kind,
		Note:      row.Note,
	}

	if row.CreatedAt != "" {
		createdAt, err := presenters.ParseTS(row.CreatedAt)
		if err != nil {
			return database.WalletMovement{}, errors.Wrap(err, "parsing created_at")
		}
		ret.CreatedAt = createdAt
	}

	return ret, nil
}

// SaveWalletMovements upserts the pushed wallet rows
func (s *Sync) SaveWalletMovements(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload walletMovementsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows := make([]database.WalletMovement, 0, len(payload.Rows))
	for _, row := range payload.Rows {
		m, err := toWalletMovementModel(row)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rows = append(rows, m)
	}

	if err := s.app.UpsertWalletMovements(user.ID, rows, payload.IgnoreDuplicates); err != nil {
		handleJSONError(w, err, "upserting wallet movements")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type deleteWalletMovementsPayload struct {
	LocalIDs []string `json:"local_ids"`
}

// DeleteWalletMovements removes the given wallet rows
func (s *Sync) DeleteWalletMovements(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload deleteWalletMovementsPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if err := s.app.DeleteWalletMovements(user.ID, payload.LocalIDs); err != nil {
		handleJSONError(w, err, "deleting wallet movements")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type lookupPayload struct {
	LocalIDs []string `json:"local_ids"`
	IDs      []string `json:"ids"`
}

// LookupResp is the response for the lookup endpoints
type LookupResp struct {
	Mappings []presenters.IDMapping `json:"mappings"`
}

// LookupArtists maps artist local ids to uuids and back
func (s *Sync) LookupArtists(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload lookupPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows, err := s.app.LookupArtists(user.ID, payload.LocalIDs, payload.IDs)
	if err != nil {
		handleJSONError(w, err, "looking up artists")
		return
	}

	respondJSON(w, http.StatusOK, LookupResp{Mappings: presenters.PresentArtistMappings(rows)})
}

// LookupProjects maps project local ids to uuids and back
func (s *Sync) LookupProjects(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var payload lookupPayload
	if err := parseRequestData(r, &payload); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	rows, err := s.app.LookupProjects(user.ID, payload.LocalIDs, payload.IDs)
	if err != nil {
		handleJSONError(w, err, "looking up projects")
		return
	}

	respondJSON(w, http.StatusOK, LookupResp{Mappings: presenters.PresentProjectMappings(rows)})
}
