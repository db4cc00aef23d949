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
	"fmt"

	"github.com/oliworks/oliworks/pkg/cli/consts"
	"github.com/oliworks/oliworks/pkg/cli/context"
	"github.com/oliworks/oliworks/pkg/cli/records"
	"github.com/pkg/errors"
)

// WalletCategoryAdvance marks movements derived from project advances
const WalletCategoryAdvance = "ADVANCE"

// LoadWallet returns the wallet movement collection, normalized
func LoadWallet(ctx context.OliCtx) ([]records.WalletMovement, error) {
	raw := loadRaw(ctx, consts.CollectionWallet)

	var stored []records.WalletMovement
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			stored = nil
		}
	}

	now := nowMs(ctx)
	items := make([]records.WalletMovement, 0, len(stored))
	for _, m := range stored {
		items = append(items, records.NormalizeWalletMovement(m, now))
	}

	selfHeal(ctx, consts.CollectionWallet, raw, items)

	return items, nil
}

// SaveWallet persists the wallet movement collection
func SaveWallet(ctx context.OliCtx, items []records.WalletMovement) error {
	now := nowMs(ctx)
	norm := make([]records.WalletMovement, 0, len(items))
	for _, m := range items {
		norm = append(norm, records.NormalizeWalletMovement(m, now))
	}

	return saveCollection(ctx, consts.CollectionWallet, norm)
}

// AddWalletMovement creates a new movement
func AddWalletMovement(ctx context.OliCtx, movement records.WalletMovement) (*records.WalletMovement, error) {
	if movement.ID == "" {
		movement.ID = records.NewLocalID()
	}
	if movement.CreatedAt == 0 {
		movement.CreatedAt = nowMs(ctx)
	}

	items, err := UpsertWalletMovement(ctx, movement)
	if err != nil {
		return nil, errors.Wrap(err, "upserting wallet movement")
	}

	for i := range items {
		if items[i].ID == movement.ID {
			return &items[i], nil
		}
	}

	return nil, nil
}

// UpsertWalletMovement inserts or updates a movement, marking it dirty
func UpsertWalletMovement(ctx context.OliCtx, movement records.WalletMovement) ([]records.WalletMovement, error) {
	items, err := LoadWallet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading wallet")
	}

	now := nowMs(ctx)
	norm := records.NormalizeWalletMovement(movement, now)
	norm.MarkDirty(now)
	norm.RemoteUpdatedAt = ""

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
		items = append([]records.WalletMovement{norm}, items...)
	}

	if err := SaveWallet(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving wallet")
	}

	return items, nil
}

// SoftDeleteWalletMovement tombstones a movement. The backend table has
// no tombstone column, so the deletion is pushed as a hard delete.
func SoftDeleteWalletMovement(ctx context.OliCtx, id string) ([]records.WalletMovement, error) {
	items, err := LoadWallet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading wallet")
	}

	now := nowMs(ctx)
	iso := nowISO(ctx)

	for i := range items {
		if items[i].ID != id {
			continue
		}
		items[i].DeletedAt = iso
		items[i].MarkDirty(now)
	}

	if err := SaveWallet(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving wallet")
	}

	return items, nil
}

// HardDeleteWalletMovements drops movements from the local collection.
// Used after the backend confirmed the delete.
func HardDeleteWalletMovements(ctx context.OliCtx, ids []string) ([]records.WalletMovement, error) {
	items, err := LoadWallet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading wallet")
	}

	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}

	kept := make([]records.WalletMovement, 0, len(items))
	for _, m := range items {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}

	if err := SaveWallet(ctx, kept); err != nil {
		return nil, errors.Wrap(err, "saving wallet")
	}

	return kept, nil
}

// WalletSummary aggregates the alive movements
type WalletSummary struct {
	Income  float64
	Expense float64
	Net     float64
	Count   int
}

// SummarizeWallet totals the alive movements. OUT counts as expense,
// everything else as income.
func SummarizeWallet(ctx context.OliCtx) (WalletSummary, error) {
	items, err := LoadWallet(ctx)
	if err != nil {
		return WalletSummary{}, errors.Wrap(err, "loading wallet")
	}

	var s WalletSummary
	for _, m := range items {
		if m.Deleted() {
			continue
		}
		s.Count++
		if m.Kind == records.WalletKindOut {
			s.Expense += m.Amount
		} else {
			s.Income += m.Amount
		}
	}
	s.Net = s.Income - s.Expense

	return s, nil
}

func advanceMovementID(projectID, advanceID string) string {
	return fmt.Sprintf("adv_%s_%s", projectID, advanceID)
}

// ReplaceProjectAdvances mirrors a project's payment advances into the
// wallet under stable derived ids. Stale advance movements for the
// project are tombstoned.
func ReplaceProjectAdvances(ctx context.OliCtx, project records.Project) ([]records.WalletMovement, error) {
	items, err := LoadWallet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading wallet")
	}

	now := nowMs(ctx)
	iso := nowISO(ctx)

	want := map[string]records.PaymentAdvance{}
	for _, adv := range project.Payment.Advances {
		want[advanceMovementID(project.ID, adv.ID)] = adv
	}

	seen := map[string]bool{}
	for i := range items {
		m := &items[i]
		if m.Category != WalletCategoryAdvance || m.ProjectID != project.ID {
			continue
		}

		adv, ok := want[m.ID]
		if !ok {
			if !m.Deleted() {
				m.DeletedAt = iso
				m.MarkDirty(now)
			}
			continue
		}

		seen[m.ID] = true
		if m.Amount != adv.Amount || m.Deleted() {
			m.Amount = adv.Amount
			m.DeletedAt = ""
			m.MarkDirty(now)
		}
	}

	for id, adv := range want {
		if seen[id] {
			continue
		}

		createdAt := adv.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}

		movement := records.NormalizeWalletMovement(records.WalletMovement{
			ID:        id,
			CreatedAt: createdAt,
			Kind:      records.WalletKindAdvance,
			Amount:    adv.Amount,
			ProjectID: project.ID,
			Artist:    project.ArtistLocalID,
			Note:      adv.Note,
			Category:  WalletCategoryAdvance,
		}, now)
		movement.MarkDirty(now)

		items = append(items, movement)
	}

	if err := SaveWallet(ctx, items); err != nil {
		return nil, errors.Wrap(err, "saving wallet")
	}

	return items, nil
}
