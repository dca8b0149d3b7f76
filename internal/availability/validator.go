package availability

import (
	"time"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// Reasons reported for an unavailable slot.
const (
	ReasonInPast          = "slot is in the past"
	ReasonBeyondHorizon   = "slot is beyond the booking horizon"
	ReasonStaffDayOff     = "staff does not work this day"
	ReasonStaffOffHours   = "staff not working at this time"
	ReasonStaffTimeOff    = "staff on time off"
	ReasonStaffConflict   = "staff has a conflicting booking"
	ReasonPastMidnight    = "duration runs past midnight"
	ReasonTooFewFreeStaff = "not enough staff free at this time"
)

// Check is the outcome of one validation step.
type Check struct {
	Valid  bool
	Reason string
}

var ok = Check{Valid: true}

func fail(reason string) Check { return Check{Reason: reason} }

// Validator runs the per-slot checks for one date against immutable snapshots.
type Validator struct {
	Now      time.Time
	Calendar model.CalendarSettings
	Date     time.Time
	TimeOffs []model.TimeOff
	Bookings []model.ExistingBooking
}

// Temporal checks advance notice and the booking horizon.
func (v Validator) Temporal(minute int) Check {
	if timeutil.IsInPast(v.Now, v.Date, minute, v.Calendar.Timezone, v.Calendar.AdvanceNoticeHours) {
		return fail(ReasonInPast)
	}
	if !timeutil.IsWithinHorizon(v.Now, v.Date, v.Calendar.Timezone, v.Calendar.MaxBookingHorizonDays) {
		return fail(ReasonBeyondHorizon)
	}
	return ok
}

// Workday checks that [minute, minute+duration) fits one of the staff member's own pairs.
func (v Validator) Workday(staff model.StaffMember, minute, duration int) Check {
	day := staff.Schedule.Day(v.Date.Weekday())
	if len(day) == 0 {
		return fail(ReasonStaffDayOff)
	}
	for _, r := range day {
		if r.Fits(minute, duration) {
			return ok
		}
	}
	return fail(ReasonStaffOffHours)
}

// TimeOff checks the staff member's time-off records covering the date.
// A record with hours blocks only candidates whose span intersects them.
func (v Validator) TimeOff(staff model.StaffMember, minute, duration int) Check {
	for _, off := range v.TimeOffs {
		if off.StaffID != staff.ID || !off.CoversDate(v.Date) {
			continue
		}
		if off.IsFullDay() {
			return fail(ReasonStaffTimeOff)
		}
		if timeutil.RangesOverlap(minute, minute+max(duration, 1), off.Hours.Open, off.Hours.Close) {
			return fail(ReasonStaffTimeOff)
		}
	}
	return ok
}

// Conflict checks blocking bookings on the date that involve the staff member.
func (v Validator) Conflict(staff model.StaffMember, minute, duration int) Check {
	for _, b := range v.Bookings {
		if !b.Status.Blocks() || !model.SameDay(b.Date, v.Date) || !b.Involves(staff.ID) {
			continue
		}
		if timeutil.RangesOverlap(minute, minute+duration, b.TimeStart, b.TimeEnd) {
			return fail(ReasonStaffConflict)
		}
	}
	return ok
}

// Staff runs the staff checks in order: workday, time-off, conflict.
func (v Validator) Staff(staff model.StaffMember, minute, duration int) Check {
	if c := v.Workday(staff, minute, duration); !c.Valid {
		return c
	}
	if c := v.TimeOff(staff, minute, duration); !c.Valid {
		return c
	}
	return v.Conflict(staff, minute, duration)
}

// Validate runs all four checks, short-circuiting on the first failure.
func (v Validator) Validate(staff model.StaffMember, minute, duration int) Check {
	if timeutil.Wraps(minute, duration) {
		return fail(ReasonPastMidnight)
	}
	if c := v.Temporal(minute); !c.Valid {
		return c
	}
	return v.Staff(staff, minute, duration)
}
