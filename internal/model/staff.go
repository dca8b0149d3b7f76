package model

import "time"

// StaffMember is a person who performs services at a shop.
type StaffMember struct {
	ID         string         `json:"id"`
	ShopID     string         `json:"shop_id"`
	Name       string         `json:"name"`
	ServiceIDs []string       `json:"service_ids"`
	Schedule   WeeklySchedule `json:"schedule"`
}

// StaffRef is the minimal staff reference carried on cart lines and bookings.
type StaffRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the staff reference for m.
func (m StaffMember) Ref() StaffRef {
	return StaffRef{ID: m.ID, Name: m.Name}
}

// CanPerform reports whether serviceID is in the capability set.
func (m StaffMember) CanPerform(serviceID string) bool {
	for _, id := range m.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// CanPerformAll reports whether every id is in the capability set.
func (m StaffMember) CanPerformAll(serviceIDs []string) bool {
	for _, id := range serviceIDs {
		if !m.CanPerform(id) {
			return false
		}
	}
	return true
}

// WorksOn reports whether the staff schedule has hours on wd.
func (m StaffMember) WorksOn(wd time.Weekday) bool {
	return m.Schedule.IsOpen(wd)
}

// TimeOff blocks a staff member for a range of calendar days.
// Hours == nil blocks whole days; otherwise only that window on each day.
type TimeOff struct {
	ID        string     `json:"id"`
	ShopID    string     `json:"shop_id"`
	StaffID   string     `json:"staff_id"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Hours     *TimeRange `json:"hours,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// IsFullDay reports whether the record blocks entire days.
func (t TimeOff) IsFullDay() bool {
	return t.Hours == nil
}

// CoversDate reports whether date lies in [StartDate, EndDate] by calendar day.
func (t TimeOff) CoversDate(date time.Time) bool {
	d := dayKey(date)
	return d >= dayKey(t.StartDate) && d <= dayKey(t.EndDate)
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// SameDay reports whether a and b share a calendar date, ignoring location.
func SameDay(a, b time.Time) bool {
	return dayKey(a) == dayKey(b)
}
