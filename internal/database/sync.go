package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slotbook/internal/config"
	"slotbook/internal/timeutil"
)

// SyncCatalog applies the catalog file to the database. Each shop is synced in its
// own transaction: shops, staff, services and promos are upserted, rows missing from
// the file are deactivated and time-offs are replaced. Promo usage counts survive.
func (db *DB) SyncCatalog(ctx context.Context, cat *config.Catalog) error {
	if cat == nil {
		return fmt.Errorf("catalog is nil")
	}
	for _, b := range cat.Bundles() {
		if err := db.syncShop(ctx, b); err != nil {
			return fmt.Errorf("sync shop %s: %w", b.Shop.ID, err)
		}
		db.logger.Info().
			Str("shop_id", b.Shop.ID).
			Int("staff", len(b.Staff)).
			Int("services", len(b.Services)).
			Int("promos", len(b.Promos)).
			Int("time_offs", len(b.TimeOffs)).
			Msg("Catalog synced")
	}
	return nil
}

func (db *DB) syncShop(ctx context.Context, b config.ShopBundle) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	schedule, err := encodeJSON(b.Shop.Schedule)
	if err != nil {
		return err
	}
	var calendar sql.NullString
	if b.Shop.Calendar != nil {
		raw, err := encodeJSON(b.Shop.Calendar)
		if err != nil {
			return err
		}
		calendar = sql.NullString{String: raw, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shops (id, name, schedule, calendar, connected_account_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			schedule = excluded.schedule,
			calendar = excluded.calendar,
			connected_account_id = excluded.connected_account_id,
			updated_at = excluded.updated_at`,
		b.Shop.ID, b.Shop.Name, schedule, calendar, b.Shop.ConnectedAccountID, now, now,
	); err != nil {
		return fmt.Errorf("upsert shop: %w", err)
	}

	// Deactivate everything first; the upserts below reactivate what the file still lists.
	for _, table := range []string{"staff", "services", "promos"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET is_active = 0, updated_at = ? WHERE shop_id = ?", table), now, b.Shop.ID,
		); err != nil {
			return fmt.Errorf("deactivate %s: %w", table, err)
		}
	}

	for i, m := range b.Staff {
		services, err := encodeJSON(nonNil(m.ServiceIDs))
		if err != nil {
			return err
		}
		sched, err := encodeJSON(m.Schedule)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO staff (shop_id, id, name, service_ids, schedule, is_active, position, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(shop_id, id) DO UPDATE SET
				name = excluded.name,
				service_ids = excluded.service_ids,
				schedule = excluded.schedule,
				is_active = 1,
				position = excluded.position,
				updated_at = excluded.updated_at`,
			b.Shop.ID, m.ID, m.Name, services, sched, i, now,
		); err != nil {
			return fmt.Errorf("upsert staff %s: %w", m.ID, err)
		}
	}

	for i, s := range b.Services {
		options, err := encodeJSON(s.Options)
		if err != nil {
			return err
		}
		addOns, err := encodeJSON(s.AddOns)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO services (shop_id, id, name, duration, price, promotion_price, requires_staff, options, add_ons, is_active, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(shop_id, id) DO UPDATE SET
				name = excluded.name,
				duration = excluded.duration,
				price = excluded.price,
				promotion_price = excluded.promotion_price,
				requires_staff = excluded.requires_staff,
				options = excluded.options,
				add_ons = excluded.add_ons,
				is_active = 1,
				position = excluded.position,
				updated_at = excluded.updated_at`,
			b.Shop.ID, s.ID, s.Name, s.Duration, s.Price, nullFloat(s.PromotionPrice), s.RequiresStaff, options, addOns, i, now,
		); err != nil {
			return fmt.Errorf("upsert service %s: %w", s.ID, err)
		}
	}

	for _, p := range b.Promos {
		specific, err := encodeJSON(nonNil(p.SpecificServices))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO promos (shop_id, code, discount_type, discount_value, max_discount, specific_services,
			                    min_order_amount, valid_from, valid_until, usage_limit, usage_count, is_active, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(shop_id, code) DO UPDATE SET
				discount_type = excluded.discount_type,
				discount_value = excluded.discount_value,
				max_discount = excluded.max_discount,
				specific_services = excluded.specific_services,
				min_order_amount = excluded.min_order_amount,
				valid_from = excluded.valid_from,
				valid_until = excluded.valid_until,
				usage_limit = excluded.usage_limit,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			b.Shop.ID, p.Code, string(p.DiscountType), p.DiscountValue, nullFloat(p.MaxDiscount), specific,
			p.MinOrderAmount, nullTime(p.ValidFrom), nullTime(p.ValidUntil), p.UsageLimit, p.Active, now,
		); err != nil {
			return fmt.Errorf("upsert promo %s: %w", p.Code, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM time_offs WHERE shop_id = ?`, b.Shop.ID); err != nil {
		return fmt.Errorf("clear time offs: %w", err)
	}
	for _, t := range b.TimeOffs {
		var open, shut sql.NullInt64
		if t.Hours != nil {
			open = sql.NullInt64{Int64: int64(t.Hours.Open), Valid: true}
			shut = sql.NullInt64{Int64: int64(t.Hours.Close), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO time_offs (id, shop_id, staff_id, start_date, end_date, start_minute, end_minute, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, b.Shop.ID, t.StaffID, timeutil.FormatDate(t.StartDate), timeutil.FormatDate(t.EndDate), open, shut, t.Reason,
		); err != nil {
			return fmt.Errorf("insert time off %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}
