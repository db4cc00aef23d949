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

package presenters

import (
	"encoding/json"

	"github.com/oliworks/oliworks/pkg/server/database"
)

// Project is a project row on the wire
type Project struct {
	LocalID       string          `json:"local_id"`
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	ArtistLocalID string          `json:"artist_local_id"`
	TotalCost     float64         `json:"total_cost"`
	Data          json.RawMessage `json:"data"`
	CreatedAt     string          `json:"created_at,omitempty"`
	UpdatedAt     string          `json:"updated_at,omitempty"`
	DeletedAt     string          `json:"deleted_at,omitempty"`
}

// PresentProject presents a project
func PresentProject(row database.Project) Project {
	return Project{
		LocalID:       row.LocalID,
		Title:         row.Title,
		Status:        row.Status,
		Progress:      row.Progress,
		ArtistLocalID: row.ArtistLocalID,
		TotalCost:     row.TotalCost,
		Data:          json.RawMessage(row.Data),
		CreatedAt:     FormatTS(row.CreatedAt),
		UpdatedAt:     FormatTS(row.UpdatedAt),
		DeletedAt:     FormatNullTS(row.DeletedAt),
	}
}

// PresentProjects presents projects
func PresentProjects(rows []database.Project) []Project {
	ret := []Project{}

	for _, row := range rows {
		ret = append(ret, PresentProject(row))
	}

	return ret
}

// Track is a track row on the wire
type Track struct {
	LocalID   string          `json:"local_id"`
	ProjectID string          `json:"project_id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	General   json.RawMessage `json:"general"`
	Musicians json.RawMessage `json:"musicians"`
	Tuning    json.RawMessage `json:"tuning"`
	Editing   json.RawMessage `json:"editing"`
	UpdatedAt string          `json:"updated_at,omitempty"`
	DeletedAt string          `json:"deleted_at,omitempty"`
}

// PresentTrack presents a track
func PresentTrack(row database.Track) Track {
	return Track{
		LocalID:   row.LocalID,
		ProjectID: row.ProjectLocalID,
		Title:     row.Title,
		Status:    row.Status,
		Progress:  row.Progress,
		General:   json.RawMessage(row.General),
		Musicians: json.RawMessage(row.Musicians),
		Tuning:    json.RawMessage(row.Tuning),
		Editing:   json.RawMessage(row.Editing),
		UpdatedAt: FormatTS(row.UpdatedAt),
		DeletedAt: FormatNullTS(row.DeletedAt),
	}
}

// PresentTracks presents tracks
func PresentTracks(rows []database.Track) []Track {
	ret := []Track{}

	for _, row := range rows {
		ret = append(ret, PresentTrack(row))
	}

	return ret
}

// Event is an event row on the wire
type Event struct {
	LocalID   string `json:"local_id"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"`
	Notes     string `json:"notes,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// PresentEvent presents an event
func PresentEvent(row database.Event) Event {
	return Event{
		LocalID:   row.LocalID,
		Title:     row.Title,
		StartsAt:  FormatTS(row.StartsAt),
		Notes:     row.Notes,
		UpdatedAt: FormatTS(row.UpdatedAt),
		DeletedAt: FormatNullTS(row.DeletedAt),
	}
}

// PresentEvents presents events
func PresentEvents(rows []database.Event) []Event {
	ret := []Event{}

	for _, row := range rows {
		ret = append(ret, PresentEvent(row))
	}

	return ret
}

// Pending is a pending row on the wire
type Pending struct {
	LocalID   string `json:"local_id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// PresentPending presents a pending
func PresentPending(row database.Pending) Pending {
	return Pending{
		LocalID:   row.LocalID,
		Text:      row.Text,
		Done:      row.Done,
		UpdatedAt: FormatTS(row.UpdatedAt),
		DeletedAt: FormatNullTS(row.DeletedAt),
	}
}

// PresentPendings presents pendings
func PresentPendings(rows []database.Pending) []Pending {
	ret := []Pending{}

	for _, row := range rows {
		ret = append(ret, PresentPending(row))
	}

	return ret
}

// ArtistProfile is an artist profile row on the wire
type ArtistProfile struct {
	ArtistKey    string  `json:"artist_key"`
	DisplayName  string  `json:"display_name"`
	Note         string  `json:"note,omitempty"`
	AdvanceTotal float64 `json:"advance_total"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	DeletedAt    string  `json:"deleted_at,omitempty"`
}

// PresentArtistProfile presents an artist profile
func PresentArtistProfile(row database.ArtistProfile) ArtistProfile {
	return ArtistProfile{
		ArtistKey:    row.ArtistKey,
		DisplayName:  row.DisplayName,
		Note:         row.Note,
		AdvanceTotal: row.AdvanceTotal,
		UpdatedAt:    FormatTS(row.UpdatedAt),
		DeletedAt:    FormatNullTS(row.DeletedAt),
	}
}

// PresentArtistProfiles presents artist profiles
func PresentArtistProfiles(rows []database.ArtistProfile) []ArtistProfile {
	ret := []ArtistProfile{}

	for _, row := range rows {
		ret = append(ret, PresentArtistProfile(row))
	}

	return ret
}

// Artist is an artist row on the wire
type Artist struct {
	LocalID    string `json:"local_id"`
	Name       string `json:"name"`
	GlobalNote string `json:"global_note,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// WalletMovement is a wallet movement row on the wire
type WalletMovement struct {
	LocalID   string  `json:"local_id"`
	ProjectID string  `json:"project_id,omitempty"`
	ArtistID  string  `json:"artist_id"`
	Amount    float64 `json:"amount"`
	Kind      string  `json:"kind"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// PresentWalletMovement presents a wallet movement
func PresentWalletMovement(row database.WalletMovement) WalletMovement {
	return WalletMovement{
		LocalID:   row.LocalID,
		ProjectID: row.ProjectID,
		ArtistID:  row.ArtistID,
		Amount:    row.Amount,
		Kind:      row.Kind,
		Note:      row.Note,
		CreatedAt: FormatTS(row.CreatedAt),
		UpdatedAt: FormatTS(row.UpdatedAt),
	}
}

// PresentWalletMovements presents wallet movements
func PresentWalletMovements(rows []database.WalletMovement) []WalletMovement {
	ret := []WalletMovement{}

	for _, row := range rows {
		ret = append(ret, PresentWalletMovement(row))
	}

	return ret
}

// IDMapping pairs a backend uuid with the local key it was created for
type IDMapping struct {
	ID      string `json:"id"`
	LocalID string `json:"local_id"`
}

// PresentArtistMappings presents artist id mappings
func PresentArtistMappings(rows []database.Artist) []IDMapping {
	ret := []IDMapping{}

	for _, row := range rows {
		ret = append(ret, IDMapping{ID: row.UUID, LocalID: row.LocalID})
	}

	return ret
}

// PresentProjectMappings presents project id mappings
func PresentProjectMappings(rows []database.Project) []IDMapping {
	ret := []IDMapping{}

	for _, row := range rows {
		ret = append(ret, IDMapping{ID: row.UUID, LocalID: row.LocalID})
	}

	return ret
}
