package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slotbook/internal/booking"
	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

var _ booking.Store = (*DB)(nil)

// GetShop returns nil, nil for an unknown shop.
func (db *DB) GetShop(ctx context.Context, shopID string) (*model.Shop, error) {
	shop, err := scanShop(db.QueryRowContext(ctx,
		`SELECT id, name, schedule, calendar, connected_account_id FROM shops WHERE id = ?`, shopID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

// ListShops returns every synced shop ordered by id.
func (db *DB) ListShops(ctx context.Context) ([]model.Shop, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, schedule, calendar, connected_account_id FROM shops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var out []model.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *shop)
	}
	return out, rows.Err()
}

// GetStaff returns active staff in catalog order.
func (db *DB) GetStaff(ctx context.Context, shopID string) ([]model.StaffMember, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT shop_id, id, name, service_ids, schedule
		FROM staff WHERE shop_id = ? AND is_active = 1
		ORDER BY position, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	var out []model.StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetTimeOffs returns every full-day and partial time-off of the shop.
func (db *DB) GetTimeOffs(ctx context.Context, shopID string) ([]model.TimeOff, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, shop_id, staff_id, start_date, end_date, start_minute, end_minute, reason
		FROM time_offs WHERE shop_id = ?
		ORDER BY start_date, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("query time offs: %w", err)
	}
	defer rows.Close()

	var out []model.TimeOff
	for rows.Next() {
		t, err := scanTimeOff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetBlockingBookings returns the PENDING and CONFIRMED bookings on date.
func (db *DB) GetBlockingBookings(ctx context.Context, shopID string, date time.Time) ([]model.ExistingBooking, error) {
	return queryBlocking(ctx, db.DB, shopID, date)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryBlocking(ctx context.Context, q querier, shopID string, date time.Time) ([]model.ExistingBooking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, date, time_start, time_end, staff_ids, status
		FROM bookings
		WHERE shop_id = ? AND date = ? AND status IN (?, ?)
		ORDER BY time_start`,
		shopID, timeutil.FormatDate(date), model.StatusPending, model.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []model.ExistingBooking
	for rows.Next() {
		b, err := scanExisting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetMaxBookingNumber returns the highest booking number of the shop, 0 when it has none.
func (db *DB) GetMaxBookingNumber(ctx context.Context, shopID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(booking_number), 0) FROM bookings WHERE shop_id = ?`, shopID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max booking number: %w", err)
	}
	return n, nil
}

// CreateBooking re-checks staff conflicts and allocates the next booking number
// inside one immediate transaction. A lost race returns booking.ErrSlotTaken.
// When p.RebookedFrom is set the original is marked REBOOKED in the same
// transaction; if it is no longer active booking.ErrBookingChanged is returned
// and nothing is written.
func (db *DB) CreateBooking(ctx context.Context, shopID string, p model.BookingPayload) (booking.Created, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	guests, err := encodeJSON(p.Guests)
	if err != nil {
		return booking.Created{}, fmt.Errorf("encode guests: %w", err)
	}
	staffIDs, err := encodeJSON(nonNil(p.StaffIDs))
	if err != nil {
		return booking.Created{}, fmt.Errorf("encode staff: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return booking.Created{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := queryBlocking(ctx, tx, shopID, p.Date)
	if err != nil {
		return booking.Created{}, err
	}
	for _, e := range existing {
		if e.ID == p.RebookedFrom || e.ID == p.ID {
			continue
		}
		if !timeutil.RangesOverlap(p.TimeStart, p.TimeEnd, e.TimeStart, e.TimeEnd) {
			continue
		}
		for _, id := range p.StaffIDs {
			if e.Involves(id) {
				return booking.Created{}, booking.ErrSlotTaken
			}
		}
	}

	var number int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(booking_number), 0) + 1 FROM bookings WHERE shop_id = ?`, shopID,
	).Scan(&number); err != nil {
		return booking.Created{}, fmt.Errorf("next booking number: %w", err)
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, shopID, number, p.Client.ID, p.Client.Name, p.Client.Email, p.Client.Phone,
		timeutil.FormatDate(p.Date), p.TimeStart, p.TimeEnd, guests, staffIDs, p.TotalDuration, p.Subtotal, p.PromoCode, p.PromoDiscount,
		p.Total, p.DepositRequired, p.DepositAmount, p.DepositDiscount, string(p.PaymentMethod), p.PaymentIntentID, p.Notes,
		string(p.Status), p.RebookedFrom, p.RebookedTo, string(p.OriginalPaymentMethod), p.CancelReason, nullTime(p.CancelledAt), createdAt.UTC(),
	)
	if err != nil {
		return booking.Created{}, fmt.Errorf("insert booking: %w", err)
	}

	if p.RebookedFrom != "" {
		res, err := tx.ExecContext(ctx, `
			UPDATE bookings SET status = ?, rebooked_to = ?, updated_at = ?
			WHERE shop_id = ? AND id = ? AND status IN (?, ?)`,
			string(model.StatusRebooked), p.ID, time.Now(),
			shopID, p.RebookedFrom, string(model.StatusPending), string(model.StatusConfirmed),
		)
		if err != nil {
			return booking.Created{}, fmt.Errorf("mark original rebooked: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return booking.Created{}, err
		}
		if n == 0 {
			return booking.Created{}, booking.ErrBookingChanged
		}
	}

	if err := tx.Commit(); err != nil {
		return booking.Created{}, fmt.Errorf("commit: %w", err)
	}
	return booking.Created{ID: p.ID, BookingNumber: number}, nil
}

// UpdateBookingStatus writes status and any non-empty extra fields. Rebooking
// goes through CreateBooking instead.
func (db *DB) UpdateBookingStatus(ctx context.Context, shopID, bookingID string, status model.BookingStatus, extra booking.StatusUpdate) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings SET
			status = ?,
			rebooked_to = CASE WHEN ? != '' THEN ? ELSE rebooked_to END,
			cancel_reason = CASE WHEN ? != '' THEN ? ELSE cancel_reason END,
			cancelled_at = COALESCE(?, cancelled_at),
			updated_at = ?
		WHERE shop_id = ? AND id = ?`,
		string(status),
		extra.RebookedTo, extra.RebookedTo,
		extra.CancelReason, extra.CancelReason,
		nullTime(extra.CancelledAt),
		time.Now(),
		shopID, bookingID,
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, booking.ErrNotFound)
	}
	return nil
}

// GetBooking returns nil, nil for an unknown booking.
func (db *DB) GetBooking(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error) {
	b, err := scanBooking(db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE shop_id = ? AND id = ?`, shopID, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings with dates in [from, to], any status.
func (db *DB) ListBookings(ctx context.Context, shopID string, from, to time.Time) ([]model.BookingPayload, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE shop_id = ? AND date BETWEEN ? AND ?
		ORDER BY date, time_start, booking_number`,
		shopID, timeutil.FormatDate(from), timeutil.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.BookingPayload
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
