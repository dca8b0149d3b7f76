// Package availability combines slot generation with per-staff validation to
// answer which start times on a date can host a booking.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"slotbook/internal/model"
	"slotbook/internal/slots"
)

// Day-level reasons. "No availability" is a result, never an error.
const (
	ReasonNoServices     = "no services selected"
	ReasonShopClosed     = "shop closed"
	ReasonNoStaff        = "no staff available"
	ReasonNoSlots        = "no available slots"
	reasonNotEnoughStaff = "not enough staff for %d guests"
)

var (
	// ErrMissingShop is returned when the request carries no shop.
	ErrMissingShop = errors.New("shop is required")
	// ErrMissingCalendar is returned when the shop has no calendar settings.
	ErrMissingCalendar = errors.New("shop calendar settings are missing")
)

// StaffPolicy decides how parallel guests are matched against staff.
type StaffPolicy string

const (
	// PolicyAdvisory groups capable staff per service but requires only one free member per slot.
	PolicyAdvisory StaffPolicy = "advisory"
	// PolicyStrict requires one distinct free member per guest for every slot.
	PolicyStrict StaffPolicy = "strict"
)

// ParseStaffPolicy defaults an empty value to advisory.
func ParseStaffPolicy(raw string) (StaffPolicy, error) {
	switch StaffPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyAdvisory, "":
		return PolicyAdvisory, nil
	case PolicyStrict:
		return PolicyStrict, nil
	}
	return "", fmt.Errorf("unknown staff policy %q", raw)
}

// ServiceSource is the slice of a cart the orchestrator needs.
type ServiceSource interface {
	ServiceIDs() []string
	TotalDuration() int
	GuestCount() int
}

// Request is one availability computation over fresh snapshots.
type Request struct {
	Shop     *model.Shop
	Staff    []model.StaffMember
	Bookings []model.ExistingBooking
	TimeOffs []model.TimeOff
	Cart     ServiceSource
	Date     time.Time
	// GuestCount overrides the cart's guest count when positive.
	GuestCount int
	Now        time.Time
	Policy     StaffPolicy
}

// Result is the day's slot list with a blocked flag.
type Result struct {
	Slots            []slots.Slot                `json:"slots"`
	BlockDay         bool                        `json:"block_day"`
	Reason           string                      `json:"reason,omitempty"`
	TotalDuration    int                         `json:"total_duration"`
	MembersByService map[string][]model.StaffRef `json:"members_by_service,omitempty"`
	CapableStaff     []model.StaffRef            `json:"capable_staff,omitempty"`
}

// ValidSlots returns the available slots.
func (r Result) ValidSlots() []slots.Slot {
	return slots.AvailableOnly(r.Slots)
}

func blocked(reason string, duration int) Result {
	return Result{BlockDay: true, Reason: reason, TotalDuration: duration}
}

// Compute returns the slots on req.Date that can host the cart's services.
// Only malformed input is an error.
func Compute(req Request) (Result, error) {
	if req.Shop == nil {
		return Result{}, ErrMissingShop
	}
	if req.Shop.Calendar == nil {
		return Result{}, fmt.Errorf("shop %s: %w", req.Shop.ID, ErrMissingCalendar)
	}
	if req.Cart == nil || len(req.Cart.ServiceIDs()) == 0 {
		return blocked(ReasonNoServices, 0), nil
	}

	cal := *req.Shop.Calendar
	if cal.IntervalMinutes <= 0 {
		return Result{}, fmt.Errorf("shop %s: %w: %d", req.Shop.ID, slots.ErrInvalidInterval, cal.IntervalMinutes)
	}

	duration := req.Cart.TotalDuration()
	guests := req.GuestCount
	if guests <= 0 {
		guests = max(req.Cart.GuestCount(), 1)
	}

	day := req.Shop.Schedule.Day(req.Date.Weekday())
	if len(day) == 0 {
		return blocked(ReasonShopClosed, duration), nil
	}

	serviceIDs := distinct(req.Cart.ServiceIDs())
	working := workingStaff(req.Staff, req.TimeOffs, req.Date)

	var capable []model.StaffMember
	for _, m := range working {
		if m.CanPerformAll(serviceIDs) {
			capable = append(capable, m)
		}
	}
	if len(capable) == 0 {
		return blocked(ReasonNoStaff, duration), nil
	}

	res := Result{
		TotalDuration:    duration,
		MembersByService: groupByService(capable, serviceIDs),
		CapableStaff:     refs(capable),
	}

	need := 1
	if req.Policy == PolicyStrict {
		need = guests
		if len(capable) < guests {
			res.BlockDay = true
			res.Reason = fmt.Sprintf(reasonNotEnoughStaff, guests)
			return res, nil
		}
	}

	candidates, err := slots.Generate(day, cal.IntervalMinutes, duration)
	if err != nil {
		return Result{}, fmt.Errorf("shop %s: %w", req.Shop.ID, err)
	}

	v := Validator{
		Now:      req.Now,
		Calendar: cal,
		Date:     req.Date,
		TimeOffs: req.TimeOffs,
		Bookings: req.Bookings,
	}

	for i := range candidates {
		s := &candidates[i]
		if !s.Available {
			continue
		}
		if c := v.Temporal(s.Minute); !c.Valid {
			s.Available, s.Reason = false, c.Reason
			continue
		}

		firstReason := ""
		for _, m := range capable {
			c := v.Validate(m, s.Minute, duration)
			if c.Valid {
				s.StaffIDs = append(s.StaffIDs, m.ID)
			} else if firstReason == "" {
				firstReason = c.Reason
			}
		}

		switch {
		case len(s.StaffIDs) >= need:
		case len(s.StaffIDs) == 0:
			s.Available, s.Reason = false, firstReason
		default:
			s.Available, s.Reason = false, ReasonTooFewFreeStaff
		}
	}

	res.Slots = candidates
	if len(res.ValidSlots()) == 0 {
		res.BlockDay = true
		res.Reason = dayReason(candidates)
	}
	return res, nil
}

// dayReason is the reason of the first blocked slot, or ReasonNoSlots when none carries one.
func dayReason(candidates []slots.Slot) string {
	for _, s := range candidates {
		if !s.Available && s.Reason != "" {
			return s.Reason
		}
	}
	return ReasonNoSlots
}

// workingStaff keeps members who work the weekday and are not on a full-day time-off.
// Partial time-off is left to per-slot validation.
func workingStaff(staff []model.StaffMember, offs []model.TimeOff, date time.Time) []model.StaffMember {
	var out []model.StaffMember
	for _, m := range staff {
		if !m.WorksOn(date.Weekday()) {
			continue
		}
		if onFullDayOff(m.ID, offs, date) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func onFullDayOff(staffID string, offs []model.TimeOff, date time.Time) bool {
	for _, off := range offs {
		if off.StaffID == staffID && off.IsFullDay() && off.CoversDate(date) {
			return true
		}
	}
	return false
}

func groupByService(staff []model.StaffMember, serviceIDs []string) map[string][]model.StaffRef {
	out := make(map[string][]model.StaffRef, len(serviceIDs))
	for _, id := range serviceIDs {
		refs := []model.StaffRef{}
		for _, m := range staff {
			if m.CanPerform(id) {
				refs = append(refs, m.Ref())
			}
		}
		out[id] = refs
	}
	return out
}

func refs(staff []model.StaffMember) []model.StaffRef {
	out := make([]model.StaffRef, 0, len(staff))
	for _, m := range staff {
		out = append(out, m.Ref())
	}
	return out
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
