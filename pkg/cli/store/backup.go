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
	"os"

	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

const backupVersion = 1

// Backup is a full snapshot of the local collections
type Backup struct {
	Version        int                      `json:"version"`
	CreatedAt      string                   `json:"createdAt"`
	Projects       []records.Project        `json:"projects"`
	Tracks         []records.Track          `json:"tracks"`
	Agenda         []records.AgendaEntry    `json:"agenda"`
	Pendings       []records.PendingTask    `json:"pendings"`
	ArtistProfiles []records.ArtistProfile  `json:"artistProfiles"`
	Wallet         []records.WalletMovement `json:"wallet"`
}

// ExportBackup snapshots every collection into a single JSON file
func ExportBackup(ctx context.OliCtx, path string) error {
	b := Backup{
		Version:   backupVersion,
		CreatedAt: nowISO(ctx),
	}

	var err error
	if b.Projects, err = LoadProjects(ctx); err != nil {
		return errors.Wrap(err, "loading projects")
	}
	if b.Tracks, err = LoadTracks(ctx); err != nil {
		return errors.Wrap(err, "loading tracks")
	}
	if b.Agenda, err = LoadAgenda(ctx); err != nil {
		return errors.Wrap(err, "loading agenda")
	}
	if b.Pendings, err = LoadPendings(ctx); err != nil {
		return errors.Wrap(err, "loading pendings")
	}
	if b.ArtistProfiles, err = LoadArtistProfiles(ctx); err != nil {
		return errors.Wrap(err, "loading artist profiles")
	}
	if b.Wallet, err = LoadWallet(ctx); err != nil {
		return errors.Wrap(err, "loading wallet")
	}

	d, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling backup")
	}

	if err := os.WriteFile(path, d, 0600); err != nil {
		return errors.Wrap(err, "writing backup file")
	}

	return nil
}

// ImportBackup replaces every local collection with the snapshot's
// content. Imported records are marked dirty so the next sync pushes
// them.
func ImportBackup(ctx context.OliCtx, path string) error {
	d, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading backup file")
	}

	var b Backup
	if err := json.Unmarshal(d, &b); err != nil {
		return errors.Wrap(err, "parsing backup file")
	}
	if b.Version != backupVersion {
		return errors.Errorf("unsupported backup version %d", b.Version)
	}

	now := nowMs(ctx)

	for i := range b.Projects {
		b.Projects[i].MarkDirty(now)
	}
	for i := range b.Tracks {
		b.Tracks[i].MarkDirty(now)
	}
	for i := range b.Agenda {
		b.Agenda[i].MarkDirty(now)
	}
	for i := range b.Pendings {
		b.Pendings[i].MarkDirty(now)
	}
	for i := range b.ArtistProfiles {
		b.ArtistProfiles[i].MarkDirty(now)
	}
	for i := range b.Wallet {
		b.Wallet[i].MarkDirty(now)
	}

	if err := SaveProjects(ctx, b.Projects); err != nil {
		return errors.Wrap(err, "saving projects")
	}
	if err := SaveTracks(ctx, b.Tracks); err != nil {
		return errors.Wrap(err, "saving tracks")
	}
	if err := SaveAgenda(ctx, b.Agenda); err != nil {
		return errors.Wrap(err, "saving agenda")
	}
	if err := SavePendings(ctx, b.Pendings); err != nil {
		return errors.Wrap(err, "saving pendings")
	}
	if err := SaveArtistProfiles(ctx, b.ArtistProfiles); err != nil {
		return errors.Wrap(err, "saving artist profiles")
	}
	if err := SaveWallet(ctx, b.Wallet); err != nil {
		return errors.Wrap(err, "saving wallet")
	}

	return nil
}
