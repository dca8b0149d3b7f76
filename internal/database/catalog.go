package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotbook/internal/booking"
	"slotbook/internal/model"
)

var _ booking.Catalog = (*DB)(nil)

// GetServices returns the shop's active services in catalog order.
func (db *DB) GetServices(ctx context.Context, shopID string) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT shop_id, id, name, duration, price, promotion_price, requires_staff, options, add_ons
		FROM services WHERE shop_id = ? AND is_active = 1
		ORDER BY position, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetPromo looks a code up case-insensitively. Unknown codes return nil, nil.
func (db *DB) GetPromo(ctx context.Context, shopID, code string) (*model.Promo, error) {
	p, err := scanPromo(db.QueryRowContext(ctx, `
		SELECT shop_id, code, discount_type, discount_value, max_discount, specific_services,
		       min_order_amount, valid_from, valid_until, usage_limit, usage_count, is_active
		FROM promos WHERE shop_id = ? AND code = ?`,
		shopID, strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	return p, nil
}

func (db *DB) IncrementPromoUsage(ctx context.Context, shopID, code string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE promos SET usage_count = usage_count + 1, updated_at = ? WHERE shop_id = ? AND code = ?`,
		time.Now(), shopID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return fmt.Errorf("increment promo usage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("promo %s: %w", code, booking.ErrNotFound)
	}
	return nil
}
