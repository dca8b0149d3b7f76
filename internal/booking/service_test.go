package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slotbook/internal/availability"
	"slotbook/internal/events"
	"slotbook/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetShop(ctx context.Context, shopID string) (*model.Shop, error) {
	args := m.Called(ctx, shopID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Shop), args.Error(1)
}

func (m *mockStore) GetStaff(ctx context.Context, shopID string) ([]model.StaffMember, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).([]model.StaffMember), args.Error(1)
}

func (m *mockStore) GetTimeOffs(ctx context.Context, shopID string) ([]model.TimeOff, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).([]model.TimeOff), args.Error(1)
}

func (m *mockStore) GetBlockingBookings(ctx context.Context, shopID string, date time.Time) ([]model.ExistingBooking, error) {
	args := m.Called(ctx, shopID, date)
	return args.Get(0).([]model.ExistingBooking), args.Error(1)
}

func (m *mockStore) GetMaxBookingNumber(ctx context.Context, shopID string) (int, error) {
	args := m.Called(ctx, shopID)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, shopID string, p model.BookingPayload) (Created, error) {
	args := m.Called(ctx, shopID, p)
	return args.Get(0).(Created), args.Error(1)
}

func (m *mockStore) UpdateBookingStatus(ctx context.Context, shopID, bookingID string, status model.BookingStatus, extra StatusUpdate) error {
	return m.Called(ctx, shopID, bookingID, status, extra).Error(0)
}

func (m *mockStore) GetBooking(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error) {
	args := m.Called(ctx, shopID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingPayload), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetServices(ctx context.Context, shopID string) ([]model.Service, error) {
	args := m.Called(ctx, shopID)
	return args.Get(0).([]model.Service), args.Error(1)
}

func (m *mockCatalog) GetPromo(ctx context.Context, shopID, code string) (*model.Promo, error) {
	args := m.Called(ctx, shopID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Promo), args.Error(1)
}

func (m *mockCatalog) IncrementPromoUsage(ctx context.Context, shopID, code string) error {
	return m.Called(ctx, shopID, code).Error(0)
}

type mockRefunder struct {
	mock.Mock
}

func (m *mockRefunder) RequestRefund(ctx context.Context, paymentIntentID, connectedAccountID string) (RefundResult, error) {
	args := m.Called(ctx, paymentIntentID, connectedAccountID)
	return args.Get(0).(RefundResult), args.Error(1)
}

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishJSON(ctx context.Context, eventType, key string, v any) error {
	return m.Called(ctx, eventType, key, v).Error(0)
}

var (
	ctx      = context.Background()
	bookDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	svcNow   = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	store    *mockStore
	catalog  *mockCatalog
	refunder *mockRefunder
	bus      *mockBus
	svc      *Service
	shop     *model.Shop
}

func newFixture(t *testing.T, bookings []model.ExistingBooking) *fixture {
	t.Helper()
	schedule := model.WeeklySchedule{time.Monday: {{Open: 9 * 60, Close: 18 * 60}}}
	shop := &model.Shop{
		ID:                 "shop-1",
		Name:               "Main Street",
		Schedule:           schedule,
		ConnectedAccountID: "acct_1",
		Calendar: &model.CalendarSettings{
			IntervalMinutes:       30,
			Timezone:              "UTC",
			MaxBookingHorizonDays: 30,
			DepositEnabled:        true,
			DepositPercentage:     50,
			AutoConfirm:           true,
		},
	}
	staff := []model.StaffMember{
		{ID: "s1", ShopID: "shop-1", Name: "Ann", ServiceIDs: []string{"cut"}, Schedule: schedule},
		{ID: "s2", ShopID: "shop-1", Name: "Ben", ServiceIDs: []string{"cut"}, Schedule: schedule},
	}
	services := []model.Service{
		{ID: "cut", ShopID: "shop-1", Name: "Haircut", Duration: 60, Price: 50,
			AddOns: []model.ServiceAddOn{{ID: "wash", Name: "Wash", Duration: 15, Price: 10}}},
	}

	f := &fixture{
		store:    new(mockStore),
		catalog:  new(mockCatalog),
		refunder: new(mockRefunder),
		bus:      new(mockBus),
		shop:     shop,
	}
	f.store.On("GetShop", ctx, "shop-1").Return(shop, nil).Maybe()
	f.store.On("GetStaff", ctx, "shop-1").Return(staff, nil).Maybe()
	f.store.On("GetTimeOffs", ctx, "shop-1").Return([]model.TimeOff{}, nil).Maybe()
	f.store.On("GetBlockingBookings", ctx, "shop-1", mock.Anything).Return(bookings, nil).Maybe()
	f.catalog.On("GetServices", ctx, "shop-1").Return(services, nil).Maybe()

	logger := zerolog.New(io.Discard)
	f.svc = NewService(f.store, f.catalog, f.refunder, f.bus, availability.PolicyAdvisory, &logger)
	f.svc.SetClock(func() time.Time { return svcNow })
	return f
}

func oneCut(staffID string) []GuestSelection {
	return []GuestSelection{{Services: []ServiceSelection{{ServiceID: "cut", StaffID: staffID}}}}
}

func TestServiceAvailability(t *testing.T) {
	f := newFixture(t, []model.ExistingBooking{
		{ID: "x", Date: bookDate, TimeStart: 600, TimeEnd: 660, StaffIDs: []string{"s1", "s2"}, Status: model.StatusConfirmed},
	})

	res, err := f.svc.Availability(ctx, AvailabilityRequest{ShopID: "shop-1", Date: bookDate, Guests: oneCut("")})
	require.NoError(t, err)
	assert.False(t, res.BlockDay)
	assert.Equal(t, 60, res.TotalDuration)
	for _, s := range res.ValidSlots() {
		assert.NotEqual(t, "10:00", s.Time)
	}
}

func TestServiceAvailabilityUnknownShop(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("GetShop", ctx, "missing").Return(nil, ErrNotFound)

	_, err := f.svc.Availability(ctx, AvailabilityRequest{ShopID: "missing", Date: bookDate, Guests: oneCut("")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsCollaborator(err))
}

func TestServiceAvailabilityStoreFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("GetShop", ctx, "broken").Return(nil, errors.New("disk I/O error"))

	_, err := f.svc.Availability(ctx, AvailabilityRequest{ShopID: "broken", Date: bookDate, Guests: oneCut("")})
	assert.True(t, IsCollaborator(err))
}

func TestServiceBuildCartRejectsUnknownSelections(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.BuildCart(ctx, "shop-1", []GuestSelection{{Services: []ServiceSelection{
		{ServiceID: "nails"},
		{ServiceID: "cut", OptionID: "long"},
		{ServiceID: "cut", StaffID: "s9"},
	}}})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{`unknown service "nails"`, `unknown option "long" for Haircut`, `unknown staff "s9"`}, ve.Reasons)
}

func TestServiceCreate(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("CreateBooking", ctx, "shop-1", mock.MatchedBy(func(p model.BookingPayload) bool {
		return p.TimeStart == 9*60 && p.Total == 60 && p.DepositAmount == 30 &&
			p.Status == model.StatusConfirmed && p.PaymentIntentID == "pi_1" &&
			len(p.StaffIDs) == 1 && p.StaffIDs[0] == "s1"
	})).Return(Created{ID: "b-1", BookingNumber: 7}, nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingCreated, "b-1", mock.Anything).Return(nil).Once()

	guests := []GuestSelection{{Services: []ServiceSelection{{ServiceID: "cut", StaffID: "s1", AddOns: []AddOnSelection{{ID: "wash"}}}}}}
	p, err := f.svc.Create(ctx, CreateRequest{
		ShopID:          "shop-1",
		Date:            bookDate,
		Time:            "09:00",
		Guests:          guests,
		Client:          model.ClientInfo{Name: "Dana"},
		PaymentMethod:   model.PaymentOnline,
		PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "b-1", p.ID)
	assert.Equal(t, 7, p.BookingNumber)
	assert.Equal(t, 9*60+75, p.TimeEnd)
	f.store.AssertExpectations(t)
	f.bus.AssertExpectations(t)
}

func TestServiceCreateRejectsTakenSlot(t *testing.T) {
	f := newFixture(t, []model.ExistingBooking{
		{ID: "x", Date: bookDate, TimeStart: 600, TimeEnd: 660, StaffIDs: []string{"s1"}, Status: model.StatusPending},
	})

	_, err := f.svc.Create(ctx, CreateRequest{
		ShopID: "shop-1", Date: bookDate, Time: "09:30", Guests: oneCut("s1"),
		Client: model.ClientInfo{Name: "Dana"},
	})
	reasons := validationReasons(t, err)
	assert.Equal(t, []string{"Ann at 09:30: " + availability.ReasonStaffConflict}, reasons)
	f.store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceCreateRejectsOffGridTime(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Create(ctx, CreateRequest{
		ShopID: "shop-1", Date: bookDate, Time: "09:10", Guests: oneCut(""),
		Client: model.ClientInfo{Name: "Dana"},
	})
	assert.Equal(t, []string{"09:10 is not a bookable start time"}, validationReasons(t, err))
}

func TestServiceCreateWithPromo(t *testing.T) {
	f := newFixture(t, nil)
	promo := &model.Promo{Code: "TEN", Active: true, DiscountType: model.DiscountFixed, DiscountValue: 10}
	f.catalog.On("GetPromo", ctx, "shop-1", "TEN").Return(promo, nil).Once()
	f.catalog.On("IncrementPromoUsage", ctx, "shop-1", "TEN").Return(nil).Once()
	f.store.On("CreateBooking", ctx, "shop-1", mock.MatchedBy(func(p model.BookingPayload) bool {
		return p.PromoDiscount == 10 && p.Total == 40
	})).Return(Created{ID: "b-2", BookingNumber: 8}, nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingCreated, "b-2", mock.Anything).Return(nil).Once()

	_, err := f.svc.Create(ctx, CreateRequest{
		ShopID: "shop-1", Date: bookDate, Time: "11:00", Guests: oneCut(""),
		Client: model.ClientInfo{Name: "Dana"}, PromoCode: "ten",
	})
	require.NoError(t, err)
	f.catalog.AssertExpectations(t)
}

func TestServiceCreateStoreFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("CreateBooking", ctx, "shop-1", mock.Anything).Return(Created{}, errors.New("database is locked")).Once()

	_, err := f.svc.Create(ctx, CreateRequest{
		ShopID: "shop-1", Date: bookDate, Time: "11:00", Guests: oneCut(""),
		Client: model.ClientInfo{Name: "Dana"},
	})
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "create booking", ce.Op)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceCreateLosesRace(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("CreateBooking", ctx, "shop-1", mock.Anything).Return(Created{}, ErrSlotTaken).Once()

	_, err := f.svc.Create(ctx, CreateRequest{
		ShopID: "shop-1", Date: bookDate, Time: "11:00", Guests: oneCut("s1"),
		Client: model.ClientInfo{Name: "Dana"},
	})
	assert.Equal(t, []string{ReasonSlotTaken}, validationReasons(t, err))
	assert.False(t, IsCollaborator(err))
}

func TestServiceQuote(t *testing.T) {
	f := newFixture(t, nil)
	f.catalog.On("GetPromo", ctx, "shop-1", "GONE").Return(nil, nil).Once()

	s, err := f.svc.Quote(ctx, QuoteRequest{ShopID: "shop-1", Guests: oneCut(""), PaymentMethod: model.PaymentOnline})
	require.NoError(t, err)
	assert.Equal(t, 50.0, s.Total)
	assert.Equal(t, 25.0, s.DepositAmount)

	_, err = f.svc.Quote(ctx, QuoteRequest{ShopID: "shop-1", Guests: oneCut(""), PromoCode: "gone"})
	assert.Equal(t, []string{ReasonPromoNotFound}, validationReasons(t, err))
}

func storedBooking() *model.BookingPayload {
	return &model.BookingPayload{
		ID:              "b-1",
		ShopID:          "shop-1",
		BookingNumber:   7,
		Client:          model.ClientInfo{Name: "Dana"},
		Date:            bookDate,
		TimeStart:       600,
		TimeEnd:         660,
		StaffIDs:        []string{"s1"},
		Status:          model.StatusConfirmed,
		PaymentMethod:   model.PaymentOnline,
		PaymentIntentID: "pi_1",
		DepositAmount:   25,
		Guests: []model.GuestBreakdown{{
			GuestID: "guest_0", GuestName: "Me",
			Services: []model.ServiceLine{{ServiceID: "cut", StartTime: 600, EndTime: 660, Duration: 60, Staff: &model.StaffRef{ID: "s1", Name: "Ann"}}},
		}},
	}
}

func TestServiceRebook(t *testing.T) {
	orig := storedBooking()
	f := newFixture(t, []model.ExistingBooking{orig.Existing()})
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()
	f.store.On("CreateBooking", ctx, "shop-1", mock.MatchedBy(func(p model.BookingPayload) bool {
		return p.RebookedFrom == "b-1" && p.OriginalPaymentMethod == model.PaymentOnline &&
			p.TimeStart == 630 && p.PaymentIntentID == "pi_1" && p.Client.Name == "Dana"
	})).Return(Created{ID: "b-2", BookingNumber: 8}, nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingRebooked, "b-2", mock.Anything).Return(nil).Once()

	p, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "10:30"})
	require.NoError(t, err)
	assert.Equal(t, "b-2", p.ID)
	f.store.AssertExpectations(t)
	f.store.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceRebookStoreFailure(t *testing.T) {
	orig := storedBooking()
	f := newFixture(t, []model.ExistingBooking{orig.Existing()})
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()
	f.store.On("CreateBooking", ctx, "shop-1", mock.Anything).Return(Created{}, errors.New("disk full")).Once()

	_, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "12:00"})
	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "create booking", ce.Op)
	f.store.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceRebookOriginalChanged(t *testing.T) {
	orig := storedBooking()
	f := newFixture(t, []model.ExistingBooking{orig.Existing()})
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()
	f.store.On("CreateBooking", ctx, "shop-1", mock.Anything).Return(Created{}, ErrBookingChanged).Once()

	_, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "12:00"})
	assert.Equal(t, []string{ReasonBookingChanged}, validationReasons(t, err))
}

func TestServiceRebookKeepsLapsedPromo(t *testing.T) {
	orig := storedBooking()
	orig.PromoCode = "TEN"
	expired := svcNow.AddDate(0, 0, -1)
	f := newFixture(t, []model.ExistingBooking{orig.Existing()})
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()
	f.catalog.On("GetPromo", ctx, "shop-1", "TEN").Return(&model.Promo{
		Code: "TEN", Active: false, DiscountType: model.DiscountFixed, DiscountValue: 10,
		ValidUntil: &expired, UsageLimit: 1, UsageCount: 1,
	}, nil).Once()
	f.store.On("CreateBooking", ctx, "shop-1", mock.MatchedBy(func(p model.BookingPayload) bool {
		return p.PromoCode == "TEN" && p.PromoDiscount == 10 && p.Total == 40 && p.TimeStart == 12*60
	})).Return(Created{ID: "b-2", BookingNumber: 8}, nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingRebooked, "b-2", mock.Anything).Return(nil).Once()

	p, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.PromoDiscount)
	f.store.AssertExpectations(t)
	f.catalog.AssertNotCalled(t, "IncrementPromoUsage", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceRebookPromoStillNeedsMinimum(t *testing.T) {
	orig := storedBooking()
	orig.PromoCode = "TEN"
	f := newFixture(t, []model.ExistingBooking{orig.Existing()})
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()
	f.catalog.On("GetPromo", ctx, "shop-1", "TEN").Return(&model.Promo{
		Code: "TEN", Active: true, DiscountType: model.DiscountFixed, DiscountValue: 10, MinOrderAmount: 100,
	}, nil).Once()

	_, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "12:00"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	f.store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceRebookRejectsRebooked(t *testing.T) {
	orig := storedBooking()
	orig.Status = model.StatusRebooked
	orig.RebookedTo = "b-9"
	f := newFixture(t, nil)
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(orig, nil).Once()

	_, err := f.svc.Rebook(ctx, RebookRequest{ShopID: "shop-1", BookingID: "b-1", Date: bookDate, Time: "12:00"})
	assert.Equal(t, []string{ReasonAlreadyRebooked}, validationReasons(t, err))
}

func TestServiceCancelWithRefund(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(storedBooking(), nil).Once()
	f.store.On("UpdateBookingStatus", ctx, "shop-1", "b-1", model.StatusCancelled, mock.MatchedBy(func(u StatusUpdate) bool {
		return u.CancelReason == "sick" && u.CancelledAt != nil && u.CancelledAt.Equal(svcNow)
	})).Return(nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingCancelled, "b-1", mock.Anything).Return(nil).Once()
	f.refunder.On("RequestRefund", ctx, "pi_1", "acct_1").Return(RefundResult{Success: true}, nil).Once()

	res, err := f.svc.Cancel(ctx, CancelRequest{ShopID: "shop-1", BookingID: "b-1", Reason: "sick"})
	require.NoError(t, err)
	assert.True(t, res.Refunded)
	assert.Equal(t, model.StatusCancelled, res.Booking.Status)
	f.refunder.AssertExpectations(t)
}

func TestServiceCancelRefundDeclined(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(storedBooking(), nil).Once()
	f.store.On("UpdateBookingStatus", ctx, "shop-1", "b-1", model.StatusCancelled, mock.Anything).Return(nil).Once()
	f.bus.On("PublishJSON", ctx, events.BookingCancelled, "b-1", mock.Anything).Return(nil).Once()
	f.refunder.On("RequestRefund", ctx, "pi_1", "acct_1").Return(RefundResult{Error: "charge already refunded"}, nil).Once()

	res, err := f.svc.Cancel(ctx, CancelRequest{ShopID: "shop-1", BookingID: "b-1"})
	assert.True(t, IsCollaborator(err))
	assert.ErrorContains(t, err, "charge already refunded")
	assert.False(t, res.Refunded)
	assert.Equal(t, model.StatusCancelled, res.Booking.Status, "status write is kept")
	f.store.AssertExpectations(t)
}

func TestServiceCancelNotAllowed(t *testing.T) {
	b := storedBooking()
	b.Status = model.StatusCompleted
	f := newFixture(t, nil)
	f.store.On("GetBooking", ctx, "shop-1", "b-1").Return(b, nil).Once()

	_, err := f.svc.Cancel(ctx, CancelRequest{ShopID: "shop-1", BookingID: "b-1"})
	assert.True(t, IsValidation(err))
	f.store.AssertNotCalled(t, "UpdateBookingStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceMissingCalendar(t *testing.T) {
	f := newFixture(t, nil)
	f.store.On("GetShop", ctx, "bare").Return(&model.Shop{ID: "bare"}, nil)

	_, err := f.svc.Quote(ctx, QuoteRequest{ShopID: "bare", Guests: oneCut("")})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSelectionsFrom(t *testing.T) {
	sel := SelectionsFrom(*storedBooking())
	require.Len(t, sel, 1)
	assert.Equal(t, []ServiceSelection{{ServiceID: "cut", StaffID: "s1"}}, sel[0].Services)
}
