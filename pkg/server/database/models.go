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
	"time"
)

// Model is the base model definition. UpdatedAt is the server-side
// sync watermark: clients pull rows with updated_at past their last
// seen value, so it must advance on every write.
type Model struct {
	ID        int       `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

// User is a model for a user
type User struct {
	Model
	UUID        string `gorm:"type:text;index"`
	Email       string `gorm:"uniqueIndex"`
	Password    string
	LastLoginAt *time.Time
}

// Session represents a user session
type Session struct {
	Model
	UserID     int    `gorm:"index"`
	Key        string `gorm:"index"`
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Artist is the parent table for everything referenced by an artist
// key. UUID is the stable identifier wallet movements point at.
type Artist struct {
	Model
	UUID       string `gorm:"uniqueIndex;type:text"`
	UserID     int    `gorm:"index:idx_artists_owner_local,unique"`
	LocalID    string `gorm:"type:text;index:idx_artists_owner_local,unique"`
	Name       string
	GlobalNote string
}

// ArtistProfile holds per-artist display data, keyed by (owner, artist key)
type ArtistProfile struct {
	Model
	UserID       int    `gorm:"index:idx_artist_profiles_owner_key,unique"`
	ArtistKey    string `gorm:"type:text;index:idx_artist_profiles_owner_key,unique"`
	DisplayName  string
	Note         string
	AdvanceTotal float64
	DeletedAt    *time.Time
}

// Project is a model for a production project. Domain fields without a
// dedicated column ride along in the data document.
type Project struct {
	Model
	UUID          string `gorm:"uniqueIndex;type:text"`
	UserID        int    `gorm:"index:idx_projects_owner_local,unique"`
	LocalID       string `gorm:"type:text;index:idx_projects_owner_local,unique"`
	Title         string
	Status        string
	Progress      int
	ArtistLocalID string `gorm:"type:text;index"`
	TotalCost     float64
	Data          []byte `gorm:"type:jsonb"`
	DeletedAt     *time.Time
}

// Track is a model for a track within a project. The four work
// sections are stored as json documents.
type Track struct {
	Model
	UserID         int    `gorm:"index:idx_tracks_owner_local,unique"`
	LocalID        string `gorm:"type:text;index:idx_tracks_owner_local,unique"`
	ProjectLocalID string `gorm:"type:text;index"`
	Title          string
	Status         string
	Progress       int
	General        []byte `gorm:"type:jsonb"`
	Musicians      []byte `gorm:"type:jsonb"`
	Tuning         []byte `gorm:"type:jsonb"`
	Editing        []byte `gorm:"type:jsonb"`
	DeletedAt      *time.Time
}

// Event is a model for an agenda event
type Event struct {
	Model
	UserID    int    `gorm:"index:idx_events_owner_local,unique"`
	LocalID   string `gorm:"type:text;index:idx_events_owner_local,unique"`
	Title     string
	StartsAt  time.Time
	Notes     string
	DeletedAt *time.Time
}

// Pending is a model for a pending task
type Pending struct {
	Model
	UserID    int    `gorm:"index:idx_pendings_owner_local,unique"`
	LocalID   string `gorm:"type:text;index:idx_pendings_owner_local,unique"`
	Text      string
	Done      bool `gorm:"default:false"`
	DeletedAt *time.Time
}

// WalletMovement is a model for a wallet movement. The table has no
// tombstone column; deletes are real deletes. ArtistID references
// artists.uuid and is never empty.
type WalletMovement struct {
	Model
	UserID    int    `gorm:"index:idx_wallet_movements_owner_local,unique"`
	LocalID   string `gorm:"type:text;index:idx_wallet_movements_owner_local,unique"`
	ArtistID  string `gorm:"type:text;not null;index"`
	ProjectID string `gorm:"type:text;index"`
	Amount    float64
	Kind      string
	Note      string
}
