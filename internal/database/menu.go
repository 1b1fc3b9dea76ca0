package database

import (
	"context"

	"github.com/google/uuid"
)

// Menu entities are read-only here: the catalog is managed elsewhere and
// this service only resolves references and prices during order intake.

type GetMenuItemParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	var m MenuItem
	err := q.db.QueryRow(ctx,
		`SELECT id, branch_id, item_name, price, station_id, is_available, created_at, updated_at
		 FROM menu_items WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	).Scan(&m.ID, &m.BranchID, &m.ItemName, &m.Price, &m.StationID, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) GetMenuItemVariation(ctx context.Context, id uuid.UUID) (MenuItemVariation, error) {
	var v MenuItemVariation
	err := q.db.QueryRow(ctx,
		`SELECT id, menu_item_id, name, price, created_at, updated_at
		 FROM menu_item_variations WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.MenuItemID, &v.Name, &v.Price, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (q *Queries) GetModifierOption(ctx context.Context, id uuid.UUID) (ModifierOption, error) {
	var m ModifierOption
	err := q.db.QueryRow(ctx,
		`SELECT id, name, price, created_at, updated_at
		 FROM modifier_options WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.Price, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *Queries) GetKotCancelReason(ctx context.Context, id uuid.UUID) (KotCancelReason, error) {
	var r KotCancelReason
	err := q.db.QueryRow(ctx,
		`SELECT id, reason, cancel_kot, created_at, updated_at
		 FROM kot_cancel_reasons WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Reason, &r.CancelKot, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (q *Queries) ListKotCancelReasons(ctx context.Context) ([]KotCancelReason, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, reason, cancel_kot, created_at, updated_at
		 FROM kot_cancel_reasons ORDER BY reason`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []KotCancelReason
	for rows.Next() {
		var r KotCancelReason
		if err := rows.Scan(&r.ID, &r.Reason, &r.CancelKot, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
