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

package records

import (
	"strings"
	"time"

	"github.com/oliworks/oliworks/pkg/cli/resolver"
)

// Normalization fills every absent field with a deterministic default
// and recomputes derived values instead of trusting stored ones. All
// normalizers are idempotent.

// NormalizeProject returns a fully populated copy of the given project.
// nowMs is used for any missing timestamp.
func NormalizeProject(p Project, nowMs int64) Project {
	if p.ID == "" {
		p.ID = NewLocalID()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = nowMs
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = nowMs
	}

	p.Title = strings.TrimSpace(p.Title)
	if p.Status == "" {
		p.Status = ProjectStatusInProcess
	}
	if p.InstrumentationType == "" {
		p.InstrumentationType = "OTROS"
	}
	if p.Instruments == nil {
		p.Instruments = []string{}
	}
	if p.MusiciansDone == nil {
		p.MusiciansDone = map[string]bool{}
	}
	if p.EditionDone == nil {
		p.EditionDone = map[string]bool{}
	}
	if p.TuningDone == nil {
		p.TuningDone = map[string]bool{}
	}

	fixed := Checklist{}
	for _, k := range ChecklistKeys {
		fixed[k] = p.Checklist[k]
	}
	p.Checklist = fixed

	// Backfill the artist link from the display name for legacy records
	if p.ArtistLocalID == "" && p.Artist != "" {
		p.ArtistLocalID = resolver.Slugify(p.Artist)
	}

	if p.Payment.Advances == nil {
		p.Payment.Advances = []PaymentAdvance{}
	}

	// The agreed cost backfills the total only when no total was stored
	if p.TotalCost == 0 && p.Payment.Cost > 0 {
		p.TotalCost = p.Payment.Cost
	}

	if p.LocalUpdatedAt == 0 {
		p.LocalUpdatedAt = p.UpdatedAt
	}

	p.Progress = ComputeProgress(p)
	return p
}

// ComputeProgress derives the overall completion percentage of a project
// from its checklist and instrument maps, clamped to 0-100.
func ComputeProgress(p Project) int {
	var checklistDone int
	for _, k := range ChecklistKeys {
		if p.Checklist[k] {
			checklistDone++
		}
	}
	checklistPct := float64(checklistDone) / float64(len(ChecklistKeys)) * 100

	doneMapPct := func(m map[string]bool) float64 {
		if len(m) == 0 {
			return 0
		}
		var done int
		for _, v := range m {
			if v {
				done++
			}
		}
		return float64(done) / float64(len(m)) * 100
	}

	avg := (checklistPct + doneMapPct(p.MusiciansDone) + doneMapPct(p.EditionDone) + doneMapPct(p.TuningDone)) / 4

	return clampPct(avg)
}

func clampPct(v float64) int {
	n := int(v + 0.5)
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// NormalizeTrack returns a fully populated copy of the given track,
// recomputing progress and status from the alive checklist items.
func NormalizeTrack(t Track, nowMs int64) Track {
	if t.ID == "" {
		t.ID = NewLocalID()
	}
	t.Title = strings.TrimSpace(t.Title)

	t.General = normalizeTrackItems(t.General)
	t.Musicians = normalizeTrackItems(t.Musicians)
	t.Tuning = normalizeTrackItems(t.Tuning)
	t.Editing = normalizeTrackItems(t.Editing)

	if t.LocalUpdatedAt == 0 {
		t.LocalUpdatedAt = nowMs
	}

	t.Progress = ComputeTrackProgress(t)
	if t.Progress >= 100 {
		t.Status = TrackStatusDone
	} else {
		t.Status = TrackStatusActive
	}

	return t
}

func normalizeTrackItems(items []TrackChecklistItem) []TrackChecklistItem {
	out := make([]TrackChecklistItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = NewLocalID()
		}
		it.Text = strings.TrimSpace(it.Text)
		out = append(out, it)
	}
	return out
}

// ComputeTrackProgress derives the completion percentage of a track from
// its alive checklist items across all sections.
func ComputeTrackProgress(t Track) int {
	var total, done int
	for _, section := range [][]TrackChecklistItem{t.General, t.Musicians, t.Tuning, t.Editing} {
		for _, it := range section {
			if it.DeletedAt != "" {
				continue
			}
			total++
			if it.Done {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return clampPct(float64(done) / float64(total) * 100)
}

// NormalizeAgendaEntry returns a fully populated copy of the given entry
func NormalizeAgendaEntry(a AgendaEntry, nowMs int64) AgendaEntry {
	if a.ID == "" {
		a.ID = NewLocalID()
	}
	if a.DateLabel == "" {
		a.DateLabel = DateLabel(msToTime(nowMs))
	}
	if a.LocalUpdatedAt == 0 {
		a.LocalUpdatedAt = nowMs
	}
	return a
}

// NormalizePendingTask returns a fully populated copy of the given task
func NormalizePendingTask(p PendingTask, nowMs int64) PendingTask {
	if p.ID == "" {
		p.ID = NewLocalID()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = nowMs
	}
	p.Text = strings.TrimSpace(p.Text)
	if p.LocalUpdatedAt == 0 {
		p.LocalUpdatedAt = nowMs
	}
	return p
}

// NormalizeArtistProfile returns a fully populated copy of the given
// profile. The artist key is always re-slugged so legacy free-form keys
// converge on the canonical form.
func NormalizeArtistProfile(p ArtistProfile, nowMs int64) ArtistProfile {
	p.DisplayName = strings.TrimSpace(p.DisplayName)

	rawKey := strings.TrimSpace(p.ArtistKey)
	if rawKey == "" {
		rawKey = p.DisplayName
	}
	p.ArtistKey = resolver.Slugify(rawKey)

	if p.DisplayName == "" {
		p.DisplayName = p.ArtistKey
	}
	if p.LocalUpdatedAt == 0 {
		p.LocalUpdatedAt = nowMs
	}
	return p
}

// NormalizeWalletMovement returns a fully populated copy of the given movement
func NormalizeWalletMovement(m WalletMovement, nowMs int64) WalletMovement {
	if m.ID == "" {
		m.ID = NewLocalID()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = nowMs
	}
	if m.DateLabel == "" {
		m.DateLabel = DateLabel(msToTime(m.CreatedAt))
	}
	if m.Kind == "" {
		m.Kind = WalletKindIn
	}
	if m.Currency == "" {
		m.Currency = "MXN"
	}
	if m.Artist != "" {
		m.Artist = resolver.Slugify(m.Artist)
	}
	if m.LocalUpdatedAt == 0 {
		m.LocalUpdatedAt = nowMs
	}
	return m
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
