package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/cart"
	"slotbook/internal/model"
)

var buildNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func buildShop() model.Shop {
	return model.Shop{
		ID:   "shop-1",
		Name: "Main Street",
		Calendar: &model.CalendarSettings{
			IntervalMinutes:   30,
			Timezone:          "UTC",
			DepositEnabled:    true,
			DepositPercentage: 20,
		},
	}
}

func baseInput(c cart.Cart) BuildInput {
	return BuildInput{
		ID:            "b-1",
		Shop:          buildShop(),
		Cart:          c,
		Date:          time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Time:          "10:00",
		Client:        model.ClientInfo{Name: "Dana"},
		PaymentMethod: model.PaymentOnline,
		Now:           buildNow,
	}
}

func validationReasons(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Reasons
}

func TestBuildTimeline(t *testing.T) {
	ann := &model.StaffRef{ID: "s1", Name: "Ann"}
	c := cart.New().
		AddService(svc("cut", 45, 40), nil, nil, ann).
		AddService(svc("wash", 15, 10), nil, nil, ann)
	c, guestID := c.AddGuest()
	c = c.AddService(svc("massage", 60, 80), nil, nil, nil)

	in := baseInput(c)
	in.Staff = map[string]model.StaffRef{guestID: {ID: "s2", Name: "Ben"}}

	p, err := Build(in)
	require.NoError(t, err)

	require.Len(t, p.Guests, 2)
	me := p.Guests[0].Services
	require.Len(t, me, 2)
	assert.Equal(t, 600, me[0].StartTime)
	assert.Equal(t, 645, me[0].EndTime)
	assert.Equal(t, 645, me[1].StartTime, "next service starts at the previous end")
	assert.Equal(t, 660, me[1].EndTime)

	other := p.Guests[1].Services
	assert.Equal(t, 600, other[0].StartTime, "guests start together")
	assert.Equal(t, "s2", other[0].Staff.ID)

	assert.Equal(t, 600, p.TimeStart)
	assert.Equal(t, 660, p.TimeEnd)
	assert.Equal(t, 60, p.TotalDuration)
	assert.Equal(t, []string{"s1", "s2"}, p.StaffIDs)
	assert.Equal(t, 130.0, p.Subtotal)
	assert.Equal(t, 130.0, p.Total)
	assert.True(t, p.DepositRequired)
	assert.Equal(t, 26.0, p.DepositAmount)
	assert.Equal(t, model.StatusPending, p.Status)
	assert.Equal(t, "b-1", p.ID)
	assert.Equal(t, buildNow, p.CreatedAt)
}

func TestBuildSkipsGuestsWithoutServices(t *testing.T) {
	c, _ := cart.New().AddService(svc("cut", 30, 20), nil, nil, nil).AddGuest()
	p, err := Build(baseInput(c))
	require.NoError(t, err)
	assert.Len(t, p.Guests, 1)
	assert.Empty(t, p.StaffIDs)
}

func TestBuildAppliesPromo(t *testing.T) {
	c := cartWith(svc("cut", 60, 1000))
	in := baseInput(c)
	in.PromoCode = " spring "
	in.Promo = &model.Promo{Code: "SPRING", Active: true, DiscountType: model.DiscountPercentage, DiscountValue: 20, MaxDiscount: fptr(50)}
	in.PaymentMethod = model.PaymentInStore

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "SPRING", p.PromoCode)
	assert.Equal(t, 50.0, p.PromoDiscount)
	assert.Equal(t, 950.0, p.Total)
	assert.False(t, p.DepositRequired)
	assert.Zero(t, p.DepositAmount)
}

func TestBuildRejects(t *testing.T) {
	required := svc("color", 60, 100)
	required.RequiresStaff = true
	ann := &model.StaffRef{ID: "s1", Name: "Ann"}

	tests := []struct {
		name   string
		mutate func(*BuildInput)
		reason string
	}{
		{"empty cart", func(in *BuildInput) { in.Cart = cart.New() }, ReasonEmptyCart},
		{"missing date", func(in *BuildInput) { in.Date = time.Time{} }, ReasonMissingDate},
		{"missing time", func(in *BuildInput) { in.Time = "" }, ReasonMissingTime},
		{"bad time", func(in *BuildInput) { in.Time = "25:00" }, `invalid time "25:00"`},
		{"missing client", func(in *BuildInput) { in.Client = model.ClientInfo{} }, ReasonMissingClient},
		{"past midnight", func(in *BuildInput) { in.Time = "23:30" }, ReasonPastMidnight},
		{"unknown promo", func(in *BuildInput) { in.PromoCode = "NOPE" }, ReasonPromoNotFound},
		{"expired promo", func(in *BuildInput) {
			past := buildNow.Add(-time.Hour)
			in.PromoCode = "OLD"
			in.Promo = &model.Promo{Active: true, ValidUntil: &past, DiscountType: model.DiscountFixed, DiscountValue: 5}
		}, ReasonPromoExpired},
		{"staff required", func(in *BuildInput) {
			in.Cart = cart.New().AddService(required, nil, nil, nil)
		}, "staff required for color (Me)"},
		{"staff double booked across guests", func(in *BuildInput) {
			c := cart.New().AddService(svc("cut", 60, 10), nil, nil, ann)
			c, _ = c.AddGuest()
			in.Cart = c.AddService(svc("cut", 60, 10), nil, nil, ann)
		}, "staff Ann is assigned to overlapping services"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput(cartWith(svc("cut", 60, 40)))
			tt.mutate(&in)
			_, err := Build(in)
			assert.Contains(t, validationReasons(t, err), tt.reason)
		})
	}
}

func TestBuildMissingCalendarIsConfigurationError(t *testing.T) {
	in := baseInput(cartWith(svc("cut", 60, 40)))
	in.Shop.Calendar = nil
	_, err := Build(in)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, IsValidation(err))
}

func TestBuildAutoConfirmAndRebook(t *testing.T) {
	in := baseInput(cartWith(svc("cut", 60, 40)))
	in.Shop.Calendar.AutoConfirm = true
	in.RebookedFrom = "b-0"
	in.OriginalPaymentMethod = model.PaymentOnline

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, p.Status)
	assert.Equal(t, "b-0", p.RebookedFrom)
	assert.Equal(t, model.PaymentOnline, p.OriginalPaymentMethod)
}

func TestBuildSequentialServicesSameStaffAllowed(t *testing.T) {
	ann := &model.StaffRef{ID: "s1", Name: "Ann"}
	c := cart.New().
		AddService(svc("cut", 30, 10), nil, nil, ann).
		AddService(svc("wash", 30, 10), nil, nil, ann)
	_, err := Build(baseInput(c))
	assert.NoError(t, err)
}
