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

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/oliworks/oliworks/pkg/cli/resolver"
	"github.com/pkg/errors"
)

// LoadProjects returns the project collection, normalized
func LoadProjects(ctx context.OliCtx) ([]records.Project, error) {
	raw := loadRaw(ctx, consts.CollectionProjects)

	var stored []records.Project
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.Project, 0, len(stored))
	for _, p := range stored {
		items = append(items, records.NormalizeProject(p, now))
	}

	selfHeal(ctx, consts.CollectionProjects, raw, items)

	return items, nil
}

// SaveProjects persists the project collection, normalizing every item
func SaveProjects(ctx context.OliCtx, items []records.Project) error {
	now := nowMs(ctx)
	norm := make([]records.Project, 0, len(items))
	for _, p := range items {
		norm = append(norm, records.NormalizeProject(p, now))
	}

	return saveCollection(ctx, consts.CollectionProjects, norm)
}

// GetProject finds a project by local id
func GetProject(ctx context.OliCtx, id string) (*records.Project, error) {
	items, err := LoadProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading projects")
	}

	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}

	return nil, nil
}

// UpsertProject inserts or updates a project, marking it dirty
func UpsertProject(ctx context.OliCtx, project records.Project) ([]records.Project, error) {
	items, err := LoadProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading projects")
	}

	now := nowMs(ctx)
	norm := records.NormalizeProject(project, now)

	if norm.ArtistLocalID == "" {
		norm.ArtistLocalID = resolver.Slugify(norm.Artist)
	}

	norm.MarkDirty(now)
	norm.UpdatedAt = now

	idx := -1
	for i := range items {
		if items[i].ID == norm.ID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		items[idx] = norm
	} else {
		items = append([]records.Project{norm}, items...)
	}

	if err := SaveProjects(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving projects")
	}

	return items, nil
}

// SoftDeleteProject tombstones a project, marking it dirty so the
// delete propagates on the next sync
func SoftDeleteProject(ctx context.OliCtx, id string) ([]records.Project, error) {
	items, err := LoadProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading projects")
	}

	now := nowMs(ctx)
	iso := nowISO(ctx)

	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].DeletedAt = iso
		items[i].MarkDirty(now)
		items[i].UpdatedAt = now
	}

	if err := SaveProjects(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving projects")
	}

	return items, nil
}

// ArchiveProject moves a project into the archive status, marking it dirty
func ArchiveProject(ctx context.OliCtx, id string) ([]records.Project, error) {
	p, err := GetProject(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "finding project")
	}
	if p == nil {
		return LoadProjects(ctx)
	}

	next := *p
	next.Status = records.ProjectStatusArchived

	return UpsertProject(ctx, next)
}
