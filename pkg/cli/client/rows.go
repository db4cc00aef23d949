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

package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/pkg/errors"
)

// Row shapes mirror the backend tables. Every syncable table is keyed
// by (owner, local id) and carries updated_at for incremental pulls.
// Timestamps travel as RFC3339 strings; the empty string means null.

// ProjectRow is a row in the projects table. Domain fields that have no
// dedicated column ride along in the data document.
type ProjectRow struct {
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

// TrackRow is a row in the tracks table
type TrackRow struct {
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

// EventRow is a row in the events table, backing agenda entries
type EventRow struct {
	LocalID   string `json:"local_id"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"`
	Notes     string `json:"notes,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// PendingRow is a row in the pendings table
type PendingRow struct {
	LocalID   string `json:"local_id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	UpdatedAt string `json:"updated_at,omitempty"`
	DeletedAt string `json:"deleted_at,omitempty"`
}

// ArtistProfileRow is a row in the artist_profiles table
type ArtistProfileRow struct {
	ArtistKey    string  `json:"artist_key"`
	DisplayName  string  `json:"display_name"`
	Note         string  `json:"note,omitempty"`
	AdvanceTotal float64 `json:"advance_total"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	DeletedAt    string  `json:"deleted_at,omitempty"`
}

// ArtistRow is a row in the artists parent table
type ArtistRow struct {
	LocalID    string `json:"local_id"`
	Name       string `json:"name"`
	GlobalNote string `json:"global_note,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// WalletMovementRow is a row in the wallet_movements table. The table
// has no deleted_at column and references artists and projects by their
// backend uuids, not by local keys.
type WalletMovementRow struct {
	LocalID   string  `json:"local_id"`
	ProjectID string  `json:"project_id,omitempty"`
	ArtistID  string  `json:"artist_id"`
	Amount    float64 `json:"amount"`
	Kind      string  `json:"kind"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// IDMapping pairs a backend uuid with the local key it was created for
type IDMapping struct {
	ID      string `json:"id"`
	LocalID string `json:"local_id"`
}

func getRows(ctx context.OliCtx, table, updatedSince string, dest interface{}) error {
	v := url.Values{}
	v.Set("updated_since", updatedSince)

	path := fmt.Sprintf("/v1/sync/%s?%s", table, v.Encode())

	opts := requestOptions{HTTPClient: newPullHTTPClient(ctx)}
	res, err := doAuthorizedReq(ctx, "GET", path, "", &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	return nil
}

type upsertPayload struct {
	Rows             interface{} `json:"rows"`
	IgnoreDuplicates bool        `json:"ignore_duplicates,omitempty"`
}

func upsertRows(ctx context.OliCtx, table string, rows interface{}, ignoreDuplicates bool) error {
	b, err := json.Marshal(upsertPayload{Rows: rows, IgnoreDuplicates: ignoreDuplicates})
	if err != nil {
		return errors.Wrap(err, "marshaling payload")
	}

	path := fmt.Sprintf("/v1/sync/%s", table)

	opts := requestOptions{ExpectedContentType: &contentTypeNone}
	_, err = doAuthorizedReq(ctx, "POST", path, string(b), &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}

// GetProjectsResp is the response from the projects pull endpoint
type GetProjectsResp struct {
	Rows []ProjectRow `json:"rows"`
}

// GetProjects fetches project rows updated at or after the given timestamp,
// ascending by updated_at
func GetProjects(ctx context.OliCtx, updatedSince string) (GetProjectsResp, error) {
	var resp GetProjectsResp
	if err := getRows(ctx, "projects", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting project rows")
	}
	return resp, nil
}

// UpsertProjects upserts project rows keyed by (owner, local id)
func UpsertProjects(ctx context.OliCtx, rows []ProjectRow) error {
	return upsertRows(ctx, "projects", rows, false)
}

// GetTracksResp is the response from the tracks pull endpoint
type GetTracksResp struct {
	Rows []TrackRow `json:"rows"`
}

// GetTracks fetches track rows updated at or after the given timestamp
func GetTracks(ctx context.OliCtx, updatedSince string) (GetTracksResp, error) {
	var resp GetTracksResp
	if err := getRows(ctx, "tracks", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting track rows")
	}
	return resp, nil
}

// UpsertTracks upserts track rows keyed by (owner, local id)
func UpsertTracks(ctx context.OliCtx, rows []TrackRow) error {
	return upsertRows(ctx, "tracks", rows, false)
}

// GetEventsResp is the response from the events pull endpoint
type GetEventsResp struct {
	Rows []EventRow `json:"rows"`
}

// GetEvents fetches event rows updated at or after the given timestamp
func GetEvents(ctx context.OliCtx, updatedSince string) (GetEventsResp, error) {
	var resp GetEventsResp
	if err := getRows(ctx, "events", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting event rows")
	}
	return resp, nil
}

// UpsertEvents upserts event rows keyed by (owner, local id)
func UpsertEvents(ctx context.OliCtx, rows []EventRow) error {
	return upsertRows(ctx, "events", rows, false)
}

// GetPendingsResp is the response from the pendings pull endpoint
type GetPendingsResp struct {
	Rows []PendingRow `json:"rows"`
}

// GetPendings fetches pending rows updated at or after the given timestamp
func GetPendings(ctx context.OliCtx, updatedSince string) (GetPendingsResp, error) {
	var resp GetPendingsResp
	if err := getRows(ctx, "pendings", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting pending rows")
	}
	return resp, nil
}

// UpsertPendings upserts pending rows keyed by (owner, local id)
func UpsertPendings(ctx context.OliCtx, rows []PendingRow) error {
	return upsertRows(ctx, "pendings", rows, false)
}

// GetArtistProfilesResp is the response from the artist profiles pull endpoint
type GetArtistProfilesResp struct {
	Rows []ArtistProfileRow `json:"rows"`
}

// GetArtistProfiles fetches profile rows updated at or after the given timestamp
func GetArtistProfiles(ctx context.OliCtx, updatedSince string) (GetArtistProfilesResp, error) {
	var resp GetArtistProfilesResp
	if err := getRows(ctx, "artist-profiles", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting artist profile rows")
	}
	return resp, nil
}

// UpsertArtistProfiles upserts profile rows keyed by (owner, artist key).
// With ignoreDuplicates, existing rows are left untouched so a backfill
// never clobbers a human-edited display name.
func UpsertArtistProfiles(ctx context.OliCtx, rows []ArtistProfileRow, ignoreDuplicates bool) error {
	return upsertRows(ctx, "artist-profiles", rows, ignoreDuplicates)
}

// UpsertArtists upserts rows into the artists parent table keyed by
// (owner, local id)
func UpsertArtists(ctx context.OliCtx, rows []ArtistRow, ignoreDuplicates bool) error {
	return upsertRows(ctx, "artists", rows, ignoreDuplicates)
}

// GetWalletMovementsResp is the response from the wallet pull endpoint
type GetWalletMovementsResp struct {
	Rows []WalletMovementRow `json:"rows"`
}

// GetWalletMovements fetches wallet rows updated at or after the given timestamp
func GetWalletMovements(ctx context.OliCtx, updatedSince string) (GetWalletMovementsResp, error) {
	var resp GetWalletMovementsResp
	if err := getRows(ctx, "wallet-movements", updatedSince, &resp); err != nil {
		return resp, errors.Wrap(err, "getting wallet rows")
	}
	return resp, nil
}

// UpsertWalletMovements upserts wallet rows keyed by (owner, local id)
func UpsertWalletMovements(ctx context.OliCtx, rows []WalletMovementRow) error {
	return upsertRows(ctx, "wallet-movements", rows, false)
}

type deleteWalletPayload struct {
	LocalIDs []string `json:"local_ids"`
}

// DeleteWalletMovements hard-deletes wallet rows by local id. The wallet
// table has no tombstone column, so local soft deletes propagate as
// real deletes.
func DeleteWalletMovements(ctx context.OliCtx, localIDs []string) error {
	b, err := json.Marshal(deleteWalletPayload{LocalIDs: localIDs})
	if err != nil {
		return errors.Wrap(err, "marshaling payload")
	}

	opts := requestOptions{ExpectedContentType: &contentTypeNone}
	_, err = doAuthorizedReq(ctx, "POST", "/v1/sync/wallet-movements/delete", string(b), &opts)
	if err != nil {
		return errors.Wrap(err, "making http request")
	}

	return nil
}

type lookupPayload struct {
	LocalIDs []string `json:"local_ids,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

// LookupResp is the response from a lookup endpoint
type LookupResp struct {
	Mappings []IDMapping `json:"mappings"`
}

func lookup(ctx context.OliCtx, table string, payload lookupPayload) ([]IDMapping, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling payload")
	}

	path := fmt.Sprintf("/v1/sync/%s/lookup", table)
	res, err := doAuthorizedReq(ctx, "POST", path, string(b), nil)
	if err != nil {
		return nil, errors.Wrap(err, "making http request")
	}

	var resp LookupResp
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decoding payload")
	}

	return resp.Mappings, nil
}

// LookupArtistsByLocalID maps artist local keys to backend uuids
func LookupArtistsByLocalID(ctx context.OliCtx, localIDs []string) ([]IDMapping, error) {
	return lookup(ctx, "artists", lookupPayload{LocalIDs: localIDs})
}

// LookupArtistsByID maps backend artist uuids back to local keys
func LookupArtistsByID(ctx context.OliCtx, ids []string) ([]IDMapping, error) {
	return lookup(ctx, "artists", lookupPayload{IDs: ids})
}

// LookupProjectsByLocalID maps project local ids to backend uuids
func LookupProjectsByLocalID(ctx context.OliCtx, localIDs []string) ([]IDMapping, error) {
	return lookup(ctx, "projects", lookupPayload{LocalIDs: localIDs})
}

// LookupProjectsByID maps backend project uuids back to local ids
func LookupProjectsByID(ctx context.OliCtx, ids []string) ([]IDMapping, error) {
	return lookup(ctx, "projects", lookupPayload{IDs: ids})
}
