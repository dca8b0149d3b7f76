package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func scanShop(row rowScanner) (*model.Shop, error) {
	var (
		shop     model.Shop
		schedule string
		calendar sql.NullString
	)
	if err := row.Scan(&shop.ID, &shop.Name, &schedule, &calendar, &shop.ConnectedAccountID); err != nil {
		return nil, err
	}
	if err := decodeJSON(schedule, &shop.Schedule); err != nil {
		return nil, fmt.Errorf("shop %s: decode schedule: %w", shop.ID, err)
	}
	if calendar.Valid && calendar.String != "" {
		var cal model.CalendarSettings
		if err := decodeJSON(calendar.String, &cal); err != nil {
			return nil, fmt.Errorf("shop %s: decode calendar: %w", shop.ID, err)
		}
		shop.Calendar = &cal
	}
	return &shop, nil
}

func scanStaff(row rowScanner) (model.StaffMember, error) {
	var (
		m        model.StaffMember
		services string
		schedule string
	)
	if err := row.Scan(&m.ShopID, &m.ID, &m.Name, &services, &schedule); err != nil {
		return m, err
	}
	if err := decodeJSON(services, &m.ServiceIDs); err != nil {
		return m, fmt.Errorf("staff %s: decode services: %w", m.ID, err)
	}
	if err := decodeJSON(schedule, &m.Schedule); err != nil {
		return m, fmt.Errorf("staff %s: decode schedule: %w", m.ID, err)
	}
	return m, nil
}

func scanTimeOff(row rowScanner) (model.TimeOff, error) {
	var (
		t          model.TimeOff
		start, end string
		open, shut sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.ShopID, &t.StaffID, &start, &end, &open, &shut, &t.Reason); err != nil {
		return t, err
	}
	var err error
	if t.StartDate, err = timeutil.ParseDate(start); err != nil {
		return t, fmt.Errorf("time off %s: %w", t.ID, err)
	}
	if t.EndDate, err = timeutil.ParseDate(end); err != nil {
		return t, fmt.Errorf("time off %s: %w", t.ID, err)
	}
	if open.Valid && shut.Valid {
		t.Hours = &model.TimeRange{Open: int(open.Int64), Close: int(shut.Int64)}
	}
	return t, nil
}

func scanService(row rowScanner) (model.Service, error) {
	var (
		s       model.Service
		promo   sql.NullFloat64
		options string
		addOns  string
	)
	if err := row.Scan(&s.ShopID, &s.ID, &s.Name, &s.Duration, &s.Price, &promo, &s.RequiresStaff, &options, &addOns); err != nil {
		return s, err
	}
	s.PromotionPrice = floatPtr(promo)
	if err := decodeJSON(options, &s.Options); err != nil {
		return s, fmt.Errorf("service %s: decode options: %w", s.ID, err)
	}
	if err := decodeJSON(addOns, &s.AddOns); err != nil {
		return s, fmt.Errorf("service %s: decode add-ons: %w", s.ID, err)
	}
	return s, nil
}

func scanPromo(row rowScanner) (*model.Promo, error) {
	var (
		p           model.Promo
		kind        string
		maxDiscount sql.NullFloat64
		specific    string
		from, until sql.NullTime
	)
	if err := row.Scan(
		&p.ShopID, &p.Code, &kind, &p.DiscountValue, &maxDiscount, &specific,
		&p.MinOrderAmount, &from, &until, &p.UsageLimit, &p.UsageCount, &p.Active,
	); err != nil {
		return nil, err
	}
	p.DiscountType = model.DiscountType(kind)
	p.MaxDiscount = floatPtr(maxDiscount)
	p.ValidFrom = timePtr(from)
	p.ValidUntil = timePtr(until)
	if err := decodeJSON(specific, &p.SpecificServices); err != nil {
		return nil, fmt.Errorf("promo %s: decode services: %w", p.Code, err)
	}
	return &p, nil
}

const bookingColumns = `id, shop_id, booking_number, client_id, client_name, client_email, client_phone,
	date, time_start, time_end, guests, staff_ids, total_duration, subtotal, promo_code, promo_discount,
	total, deposit_required, deposit_amount, deposit_discount, payment_method, payment_intent_id, notes,
	status, rebooked_from, rebooked_to, original_payment_method, cancel_reason, cancelled_at, created_at`

func scanBooking(row rowScanner) (*model.BookingPayload, error) {
	var (
		b         model.BookingPayload
		date      string
		guests    string
		staffIDs  string
		method    string
		status    string
		original  string
		cancelled sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.ShopID, &b.BookingNumber, &b.Client.ID, &b.Client.Name, &b.Client.Email, &b.Client.Phone,
		&date, &b.TimeStart, &b.TimeEnd, &guests, &staffIDs, &b.TotalDuration, &b.Subtotal, &b.PromoCode, &b.PromoDiscount,
		&b.Total, &b.DepositRequired, &b.DepositAmount, &b.DepositDiscount, &method, &b.PaymentIntentID, &b.Notes,
		&status, &b.RebookedFrom, &b.RebookedTo, &original, &b.CancelReason, &cancelled, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if b.Date, err = timeutil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if err := decodeJSON(guests, &b.Guests); err != nil {
		return nil, fmt.Errorf("booking %s: decode guests: %w", b.ID, err)
	}
	if err := decodeJSON(staffIDs, &b.StaffIDs); err != nil {
		return nil, fmt.Errorf("booking %s: decode staff: %w", b.ID, err)
	}
	b.PaymentMethod = model.PaymentMethod(method)
	b.Status = model.BookingStatus(status)
	b.OriginalPaymentMethod = model.PaymentMethod(original)
	b.CancelledAt = timePtr(cancelled)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func scanExisting(row rowScanner) (model.ExistingBooking, error) {
	var (
		b        model.ExistingBooking
		date     string
		staffIDs string
		status   string
	)
	if err := row.Scan(&b.ID, &date, &b.TimeStart, &b.TimeEnd, &staffIDs, &status); err != nil {
		return b, err
	}
	var err error
	if b.Date, err = timeutil.ParseDate(date); err != nil {
		return b, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	if err := decodeJSON(staffIDs, &b.StaffIDs); err != nil {
		return b, fmt.Errorf("booking %s: decode staff: %w", b.ID, err)
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}
