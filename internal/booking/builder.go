package booking

import (
	"fmt"
	"time"

	"slotbook/internal/cart"
	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// Build rejection reasons.
const (
	ReasonEmptyCart     = "cart is empty"
	ReasonMissingDate   = "date is required"
	ReasonMissingTime   = "time is required"
	ReasonPastMidnight  = "booking runs past midnight"
	ReasonMissingClient = "client name is required"
)

// BuildInput is everything needed to turn a cart into a booking payload.
type BuildInput struct {
	ID     string
	Shop   model.Shop
	Cart   cart.Cart
	Date   time.Time
	Time   string // "HH:MM"
	Client model.ClientInfo
	// Staff assigns a member to every line of a guest that has no staff of its own.
	Staff         map[string]model.StaffRef
	PaymentMethod model.PaymentMethod
	PromoCode     string
	// Promo is the resolved promo for PromoCode, nil when it does not exist.
	Promo *model.Promo
	Notes string
	Now   time.Time

	RebookedFrom          string
	OriginalPaymentMethod model.PaymentMethod
}

// Build lays out every guest's services back to back from the chosen time,
// prices the cart and returns the immutable payload. It performs no I/O.
// The booking number is left for the store to allocate.
func Build(in BuildInput) (model.BookingPayload, error) {
	if in.Shop.Calendar == nil {
		return model.BookingPayload{}, fmt.Errorf("shop %s: calendar settings missing: %w", in.Shop.ID, ErrConfiguration)
	}
	cal := *in.Shop.Calendar

	var reasons []string
	if in.Cart.IsEmpty() {
		reasons = append(reasons, ReasonEmptyCart)
	}
	if in.Date.IsZero() {
		reasons = append(reasons, ReasonMissingDate)
	}
	start := 0
	if in.Time == "" {
		reasons = append(reasons, ReasonMissingTime)
	} else if m, err := timeutil.ParseClock(in.Time); err != nil || m >= timeutil.MinutesPerDay {
		reasons = append(reasons, fmt.Sprintf("invalid time %q", in.Time))
	} else {
		start = m
	}
	if in.Client.Name == "" {
		reasons = append(reasons, ReasonMissingClient)
	}
	if len(reasons) > 0 {
		return model.BookingPayload{}, Invalid(reasons...)
	}

	guests := in.Cart.Guests()
	breakdown, end, timelineReasons := timeline(guests, start, in.Staff)
	reasons = append(reasons, timelineReasons...)
	if end > timeutil.MinutesPerDay {
		reasons = append(reasons, ReasonPastMidnight)
	}

	subtotal := Subtotal(guests)
	discount := 0.0
	code := NormalizeCode(in.PromoCode)
	if code != "" {
		if r := CheckPromo(in.Promo, subtotal, in.Cart.ServiceIDs(), in.Now); len(r) > 0 {
			reasons = append(reasons, r...)
		} else {
			discount = PromoDiscount(*in.Promo, guests)
		}
	}
	if len(reasons) > 0 {
		return model.BookingPayload{}, Invalid(reasons...)
	}

	method := in.PaymentMethod
	if method == "" {
		method = model.PaymentInStore
	}
	total := Total(subtotal, discount)
	deposit := ComputeDeposit(total, cal, method)

	status := model.StatusPending
	if cal.AutoConfirm {
		status = model.StatusConfirmed
	}

	return model.BookingPayload{
		ID:                    in.ID,
		ShopID:                in.Shop.ID,
		Client:                in.Client,
		Date:                  timeutil.DateOf(in.Date),
		TimeStart:             start,
		TimeEnd:               end,
		Guests:                breakdown,
		StaffIDs:              uniqueStaff(breakdown),
		TotalDuration:         end - start,
		Subtotal:              subtotal,
		PromoCode:             code,
		PromoDiscount:         discount,
		Total:                 total,
		DepositRequired:       deposit.Required,
		DepositAmount:         deposit.Amount,
		DepositDiscount:       deposit.Discount,
		PaymentMethod:         method,
		Notes:                 in.Notes,
		Status:                status,
		RebookedFrom:          in.RebookedFrom,
		OriginalPaymentMethod: in.OriginalPaymentMethod,
		CreatedAt:             in.Now,
	}, nil
}

// timeline resolves start/end and staff for every line and returns the latest end.
func timeline(guests []cart.Guest, start int, assigned map[string]model.StaffRef) ([]model.GuestBreakdown, int, []string) {
	var (
		out     []model.GuestBreakdown
		reasons []string
		end     = start
	)

	type span struct{ from, to int }
	busy := make(map[string][]span)
	clash := make(map[string]bool)

	for _, g := range guests {
		if len(g.Services) == 0 {
			continue
		}
		gb := model.GuestBreakdown{GuestID: g.ID, GuestName: g.Name}
		cursor := start

		for _, s := range g.Services {
			line := model.ServiceLine{
				ServiceID:   s.Service.ID,
				ServiceName: s.Service.Name,
				StartTime:   cursor,
				EndTime:     cursor + s.Duration,
				Duration:    s.Duration,
				Price:       s.BasePrice,
				TotalPrice:  s.TotalPrice,
			}
			if s.Option != nil {
				line.OptionID, line.OptionName = s.Option.ID, s.Option.Name
			}
			for _, a := range s.AddOns {
				line.AddOns = append(line.AddOns, model.AddOnLine{
					ID: a.ID, Name: a.Name, Quantity: a.Units(), Duration: a.Duration, Price: a.Price,
				})
			}

			switch {
			case s.Staff != nil:
				ref := *s.Staff
				line.Staff = &ref
			default:
				if ref, ok := assigned[g.ID]; ok && ref.ID != "" {
					line.Staff = &ref
				}
			}

			if line.Staff == nil && s.Service.RequiresStaff {
				reasons = append(reasons, fmt.Sprintf("staff required for %s (%s)", s.Service.Name, g.Name))
			}
			if line.Staff != nil {
				id := line.Staff.ID
				for _, sp := range busy[id] {
					if timeutil.RangesOverlap(line.StartTime, line.EndTime, sp.from, sp.to) && !clash[id] {
						clash[id] = true
						reasons = append(reasons, fmt.Sprintf("staff %s is assigned to overlapping services", line.Staff.Name))
					}
				}
				busy[id] = append(busy[id], span{line.StartTime, line.EndTime})
			}

			gb.Services = append(gb.Services, line)
			cursor = line.EndTime
		}

		end = max(end, cursor)
		out = append(out, gb)
	}
	return out, end, reasons
}

// uniqueStaff returns distinct staff ids in order of first appearance.
func uniqueStaff(guests []model.GuestBreakdown) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, g := range guests {
		for _, s := range g.Services {
			if s.Staff == nil {
				continue
			}
			if _, dup := seen[s.Staff.ID]; dup {
				continue
			}
			seen[s.Staff.ID] = struct{}{}
			ids = append(ids, s.Staff.ID)
		}
	}
	return ids
}
