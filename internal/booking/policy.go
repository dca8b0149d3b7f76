package booking

import (
	"fmt"
	"time"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// Decision is the outcome of a cancellation or rebooking policy check.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Refundable bool   `json:"refundable"`
	Reason     string `json:"reason,omitempty"`
}

// Policy reasons.
const (
	ReasonAlreadyStarted  = "booking has already started"
	ReasonAlreadyRebooked = "booking was already rebooked"
	ReasonRefundDeadline  = "refund deadline has passed; deposit is non-refundable"
)

// StartsAt is the booking's start instant in the shop's timezone.
func StartsAt(b model.BookingPayload, shop model.Shop) time.Time {
	tz := ""
	if shop.Calendar != nil {
		tz = shop.Calendar.Timezone
	}
	return timeutil.At(b.Date, b.TimeStart, timeutil.LoadLocation(tz))
}

// CanCancel allows cancelling a pending or confirmed booking before it starts.
// A paid deposit is refundable unless the refund deadline has passed.
func CanCancel(b model.BookingPayload, shop model.Shop, now time.Time) Decision {
	if !b.Status.Blocks() {
		return Decision{Reason: fmt.Sprintf("booking cannot be cancelled in status %s", b.Status)}
	}
	start := StartsAt(b, shop)
	if !now.Before(start) {
		return Decision{Reason: ReasonAlreadyStarted}
	}

	d := Decision{Allowed: true}
	if b.PaymentIntentID == "" || b.DepositAmount <= 0 {
		return d
	}
	deadline := 0
	if shop.Calendar != nil {
		deadline = shop.Calendar.RefundDeadlineHours
	}
	if deadline > 0 && now.Add(time.Duration(deadline)*time.Hour).After(start) {
		d.Reason = ReasonRefundDeadline
		return d
	}
	d.Refundable = true
	return d
}

// CanRebook allows moving a pending or confirmed booking that has not started
// and has not been rebooked before.
func CanRebook(b model.BookingPayload, shop model.Shop, now time.Time) Decision {
	if b.RebookedTo != "" || b.Status == model.StatusRebooked {
		return Decision{Reason: ReasonAlreadyRebooked}
	}
	if !b.Status.Blocks() {
		return Decision{Reason: fmt.Sprintf("booking cannot be rebooked in status %s", b.Status)}
	}
	if !now.Before(StartsAt(b, shop)) {
		return Decision{Reason: ReasonAlreadyStarted}
	}
	return Decision{Allowed: true}
}
