package model

import "time"

// TimeRange is a half-open [Open, Close) window in minutes since midnight.
type TimeRange struct {
	Open  int `json:"open"`
	Close int `json:"close"`
}

// Contains reports whether minute falls inside the window.
func (r TimeRange) Contains(minute int) bool {
	return minute >= r.Open && minute < r.Close
}

// Fits reports whether [start, start+duration) lies entirely inside the window.
func (r TimeRange) Fits(start, duration int) bool {
	return r.Contains(start) && start+duration <= r.Close
}

// WeeklySchedule maps a weekday to its open/close pairs. A missing or empty day is closed.
type WeeklySchedule map[time.Weekday][]TimeRange

// Day returns the pairs for a weekday.
func (s WeeklySchedule) Day(wd time.Weekday) []TimeRange {
	if s == nil {
		return nil
	}
	return s[wd]
}

// IsOpen reports whether the weekday has at least one pair.
func (s WeeklySchedule) IsOpen(wd time.Weekday) bool {
	return len(s.Day(wd)) > 0
}

// CalendarSettings are the per-shop booking rules.
type CalendarSettings struct {
	IntervalMinutes       int     `json:"interval_minutes"`
	Timezone              string  `json:"timezone"`
	AdvanceNoticeHours    int     `json:"advance_notice_hours"`
	MaxBookingHorizonDays int     `json:"max_booking_horizon_days"`
	DepositEnabled        bool    `json:"deposit_enabled"`
	DepositPercentage     float64 `json:"deposit_percentage"`
	DepositDiscountAmount float64 `json:"deposit_discount_amount"`
	RefundDeadlineHours   int     `json:"refund_deadline_hours"`
	AutoConfirm           bool    `json:"auto_confirm"`
}

// Shop is a business location with opening hours and booking rules.
type Shop struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Schedule           WeeklySchedule    `json:"schedule"`
	Calendar           *CalendarSettings `json:"calendar,omitempty"`
	ConnectedAccountID string            `json:"connected_account_id,omitempty"`
}
