package slots

import (
	"errors"
	"fmt"
	"sort"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// ReasonDurationExceeds marks a candidate whose duration runs past the close of its open/close pair.
const ReasonDurationExceeds = "duration exceeds available time"

var (
	// ErrInvalidInterval is returned for a zero or negative slot interval.
	ErrInvalidInterval = errors.New("slot interval must be positive")
	// ErrInvalidDuration is returned for a negative required duration.
	ErrInvalidDuration = errors.New("required duration must not be negative")
)

// Slot is a candidate start time on a day.
type Slot struct {
	Minute    int      `json:"minute"`
	Time      string   `json:"time"` // "10:00"
	Available bool     `json:"available"`
	Reason    string   `json:"reason,omitempty"`
	StaffIDs  []string `json:"staff_ids,omitempty"`
}

// Generate expands the day's open/close pairs into candidates every interval
// minutes, from open up to but not including close. A candidate whose
// [start, start+duration) leaves the pair containing start is marked unavailable.
// An empty day yields no slots.
func Generate(day []model.TimeRange, interval, duration int) ([]Slot, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDuration, duration)
	}
	if len(day) == 0 {
		return nil, nil
	}

	ranges := normalize(day)
	seen := make(map[int]struct{})
	var out []Slot

	for _, r := range ranges {
		for cursor := r.Open; cursor < r.Close; cursor += interval {
			if _, dup := seen[cursor]; dup {
				continue
			}
			seen[cursor] = struct{}{}

			slot := Slot{
				Minute:    cursor,
				Time:      timeutil.FormatMinutes(cursor),
				Available: true,
			}
			if !Fits(ranges, cursor, duration) {
				slot.Available = false
				slot.Reason = ReasonDurationExceeds
			}
			out = append(out, slot)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Minute < out[j].Minute })
	return out, nil
}

// Fits reports whether [start, start+duration) lies inside one pair that contains start.
// A duration never spans two disjoint pairs.
func Fits(day []model.TimeRange, start, duration int) bool {
	for _, r := range day {
		if r.Fits(start, duration) {
			return true
		}
	}
	return false
}

// AvailableOnly returns only available slots.
func AvailableOnly(slots []Slot) []Slot {
	var available []Slot
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// Find returns the slot starting at minute.
func Find(slots []Slot, minute int) (Slot, bool) {
	for _, s := range slots {
		if s.Minute == minute {
			return s, true
		}
	}
	return Slot{}, false
}

// normalize drops empty pairs and orders the rest by open time.
func normalize(day []model.TimeRange) []model.TimeRange {
	out := make([]model.TimeRange, 0, len(day))
	for _, r := range day {
		if r.Close > r.Open {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Open == out[j].Open {
			return out[i].Close < out[j].Close
		}
		return out[i].Open < out[j].Open
	})
	return out
}

// FormatDuration formats minutes as a short human-readable string for client messages.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
