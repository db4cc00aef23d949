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

// Package records defines the synchronized record types and their
// normalization rules. Every collection shares the SyncMeta envelope;
// a record with PendingSync set has local state that the server has
// not confirmed yet.
package records

import (
	"time"

	"github.com/oliworks/oliworks/pkg/cli/utils"
)

// Timestamps in SyncMeta use two representations. LocalUpdatedAt is a
// millisecond epoch stamped by the local clock on every mutation.
// RemoteUpdatedAt and DeletedAt are RFC3339 strings as reported by the
// server; the empty string means null.

// SyncMeta is the envelope shared by every synchronized record
type SyncMeta struct {
	PendingSync     bool   `json:"pendingSync"`
	LocalUpdatedAt  int64  `json:"localUpdatedAt"`
	RemoteUpdatedAt string `json:"remoteUpdatedAt,omitempty"`
	DeletedAt       string `json:"deletedAt,omitempty"`
}

// Dirty returns true if the record has unsynced local state
func (m *SyncMeta) Dirty() bool {
	return m.PendingSync
}

// Deleted returns true if the record carries a tombstone
func (m *SyncMeta) Deleted() bool {
	return m.DeletedAt != ""
}

// MarkDirty flags the record as diverged from the server state
func (m *SyncMeta) MarkDirty(nowMs int64) {
	m.PendingSync = true
	m.LocalUpdatedAt = nowMs
}

// ClearDirty marks the record as delivered, recording the server timestamp
func (m *SyncMeta) ClearDirty(remoteUpdatedAt string) {
	m.PendingSync = false
	m.RemoteUpdatedAt = remoteUpdatedAt
}

// Meta exposes the envelope for generic handling
func (m *SyncMeta) Meta() *SyncMeta {
	return m
}

// Syncable is implemented by every record type via the embedded SyncMeta
type Syncable interface {
	Meta() *SyncMeta
}

// ChecklistKeys are the fixed production stages tracked per project
var ChecklistKeys = []string{
	"GUIAS_QUANTIZ",
	"ARREGLOS",
	"MUSICOS",
	"EDICION",
	"AFINACION",
	"MIX",
	"MASTER",
}

// Checklist maps a production stage key to its completion state
type Checklist map[string]bool

// EmptyChecklist returns a checklist with every stage unset
func EmptyChecklist() Checklist {
	c := Checklist{}
	for _, k := range ChecklistKeys {
		c[k] = false
	}
	return c
}

// Project statuses
const (
	ProjectStatusInProcess = "EN_PROCESO"
	ProjectStatusStandby   = "STANDBY"
	ProjectStatusArchived  = "ARCHIVO"
)

// PaymentAdvance is a partial payment recorded against a project
type PaymentAdvance struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	CreatedAt int64   `json:"createdAt"`
	Note      string  `json:"note,omitempty"`
}

// Payment holds the agreed cost and the advances received so far
type Payment struct {
	Cost       float64          `json:"cost"`
	Advances   []PaymentAdvance `json:"advances"`
	PaidInFull bool             `json:"paidInFull"`
	Comment    string           `json:"comment,omitempty"`
}

// Project is a music production job
type Project struct {
	ID        string `json:"id"`
	DateLabel string `json:"dateLabel"`
	Artist    string `json:"artist"`
	Title     string `json:"title"`

	InstrumentationType string   `json:"instrumentationType"`
	Instruments         []string `json:"instruments"`

	MusiciansDone map[string]bool `json:"musiciansDone"`
	EditionDone   map[string]bool `json:"editionDone"`
	TuningDone    map[string]bool `json:"tuningDone"`

	Checklist Checklist `json:"checklist"`

	Status   string `json:"status"`
	Progress int    `json:"progress"`

	Payment   Payment `json:"payment"`
	TotalCost float64 `json:"totalCost"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	Note string `json:"note,omitempty"`

	// Local key of the owning artist. Resolved to a backend row only
	// at push time.
	ArtistLocalID string `json:"artistLocalId"`

	SyncMeta
}

// Track statuses
const (
	TrackStatusActive = "active"
	TrackStatusDone   = "done"
)

// Track checklist sections
const (
	TrackSectionGeneral   = "general"
	TrackSectionMusicians = "musicians"
	TrackSectionTuning    = "tuning"
	TrackSectionEditing   = "editing"
)

// TrackChecklistItem is a single checklist entry inside a track section
type TrackChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	DeletedAt string `json:"deletedAt,omitempty"`
}

// Track is a production track under a project
type Track struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`

	Status   string `json:"status"`
	Progress int    `json:"progress"`

	General   []TrackChecklistItem `json:"general"`
	Musicians []TrackChecklistItem `json:"musicians"`
	Tuning    []TrackChecklistItem `json:"tuning"`
	Editing   []TrackChecklistItem `json:"editing"`

	SyncMeta
}

// Section returns the checklist items of the named section
func (t *Track) Section(name string) []TrackChecklistItem {
	switch name {
	case TrackSectionMusicians:
		return t.Musicians
	case TrackSectionTuning:
		return t.Tuning
	case TrackSectionEditing:
		return t.Editing
	default:
		return t.General
	}
}

// SetSection replaces the checklist items of the named section
func (t *Track) SetSection(name string, items []TrackChecklistItem) {
	switch name {
	case TrackSectionMusicians:
		t.Musicians = items
	case TrackSectionTuning:
		t.Tuning = items
	case TrackSectionEditing:
		t.Editing = items
	default:
		t.General = items
	}
}

// AgendaEntry is a dated appointment with an artist
type AgendaEntry struct {
	ID        string `json:"id"`
	DateLabel string `json:"dateLabel"`
	Artist    string `json:"artist"`
	Note      string `json:"note,omitempty"`

	SyncMeta
}

// PendingTask is a free-form to-do item
type PendingTask struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`

	SyncMeta
}

// ArtistProfile holds per-artist display data keyed by the stable slug
type ArtistProfile struct {
	ArtistKey    string  `json:"artistKey"`
	DisplayName  string  `json:"displayName"`
	Note         string  `json:"note"`
	AdvanceTotal float64 `json:"advanceTotal"`

	SyncMeta
}

// Wallet movement kinds
const (
	WalletKindIn      = "IN"
	WalletKindOut     = "OUT"
	WalletKindAdvance = "ANTICIPO"
	WalletKindApplied = "APLICADO"
)

// WalletMovement is a single money movement. ProjectID and Artist hold
// local keys; the backend relational ids are resolved at push time.
type WalletMovement struct {
	ID        string  `json:"id"`
	CreatedAt int64   `json:"createdAt"`
	DateLabel string  `json:"dateLabel"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	ProjectID string  `json:"projectId,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Note      string  `json:"note,omitempty"`
	Category  string  `json:"category,omitempty"`

	SyncMeta
}

// NewLocalID generates a fresh local id
func NewLocalID() string {
	id, err := utils.GenerateUUID()
	if err != nil {
		// crypto/rand failing is not recoverable
		panic(err)
	}
	return id
}

// ToMs parses an RFC3339 timestamp into a millisecond epoch. Returns 0
// for the empty string or an unparsable value.
func ToMs(iso string) int64 {
	if iso == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// ToISO formats a millisecond epoch as RFC3339 in UTC
func ToISO(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// DateLabel formats the given time as YYYY-MM-DD
func DateLabel(t time.Time) string {
	return t.Format("2006-01-02")
}
