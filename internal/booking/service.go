package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slotbook/internal/availability"
	"slotbook/internal/cart"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
	"slotbook/internal/slots"
	"slotbook/internal/timeutil"
)

// Created is what the store returns for a persisted booking.
type Created struct {
	ID            string
	BookingNumber int
}

// StatusUpdate carries the optional fields written with a status change.
type StatusUpdate struct {
	RebookedTo   string
	CancelReason string
	CancelledAt  *time.Time
}

// Store is the storage collaborator. Missing shops and bookings are reported as a nil result or ErrNotFound.
type Store interface {
	GetShop(ctx context.Context, shopID string) (*model.Shop, error)
	GetStaff(ctx context.Context, shopID string) ([]model.StaffMember, error)
	GetTimeOffs(ctx context.Context, shopID string) ([]model.TimeOff, error)
	GetBlockingBookings(ctx context.Context, shopID string, date time.Time) ([]model.ExistingBooking, error)
	GetMaxBookingNumber(ctx context.Context, shopID string) (int, error)
	CreateBooking(ctx context.Context, shopID string, p model.BookingPayload) (Created, error)
	UpdateBookingStatus(ctx context.Context, shopID, bookingID string, status model.BookingStatus, extra StatusUpdate) error
	GetBooking(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error)
}

// Catalog resolves services and promo codes. GetPromo returns nil, nil for an unknown code.
type Catalog interface {
	GetServices(ctx context.Context, shopID string) ([]model.Service, error)
	GetPromo(ctx context.Context, shopID, code string) (*model.Promo, error)
	IncrementPromoUsage(ctx context.Context, shopID, code string) error
}

// RefundResult is the payment collaborator's answer.
type RefundResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Refunder is the payment collaborator. Retrying is the caller's decision.
type Refunder interface {
	RequestRefund(ctx context.Context, paymentIntentID, connectedAccountID string) (RefundResult, error)
}

// Publisher emits domain events.
type Publisher interface {
	PublishJSON(ctx context.Context, eventType, key string, v any) error
}

// AddOnSelection picks an add-on and its quantity.
type AddOnSelection struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// ServiceSelection picks one service for a guest.
type ServiceSelection struct {
	ServiceID string           `json:"service_id"`
	OptionID  string           `json:"option_id,omitempty"`
	AddOns    []AddOnSelection `json:"add_ons,omitempty"`
	StaffID   string           `json:"staff_id,omitempty"`
}

// GuestSelection is one guest's services. The first selection belongs to the primary guest.
type GuestSelection struct {
	Services []ServiceSelection `json:"services"`
	StaffID  string             `json:"staff_id,omitempty"`
}

// AvailabilityRequest asks for the slots on one date.
type AvailabilityRequest struct {
	ShopID string
	Date   time.Time
	Guests []GuestSelection
}

// QuoteRequest prices a selection without booking it.
type QuoteRequest struct {
	ShopID        string
	Guests        []GuestSelection
	PromoCode     string
	PaymentMethod model.PaymentMethod
}

// CreateRequest books a selection at a date and time.
type CreateRequest struct {
	ShopID          string
	Date            time.Time
	Time            string
	Guests          []GuestSelection
	Client          model.ClientInfo
	PaymentMethod   model.PaymentMethod
	PaymentIntentID string
	PromoCode       string
	Notes           string
}

// RebookRequest moves a booking. Empty Guests reuses the original selection.
type RebookRequest struct {
	ShopID    string
	BookingID string
	Date      time.Time
	Time      string
	Guests    []GuestSelection
	Notes     string
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	ShopID    string
	BookingID string
	Reason    string
}

// CancelResult reports the cancelled booking and the refund outcome.
type CancelResult struct {
	Booking  model.BookingPayload `json:"booking"`
	Refunded bool                 `json:"refunded"`
	Decision Decision             `json:"decision"`
}

// Service drives availability and booking against the collaborators.
type Service struct {
	store    Store
	catalog  Catalog
	refunder Refunder
	bus      Publisher
	policy   availability.StaffPolicy
	now      timeutil.Clock
	logger   zerolog.Logger
}

// NewService wires the collaborators. refunder and bus may be nil.
func NewService(store Store, catalog Catalog, refunder Refunder, bus Publisher, policy availability.StaffPolicy, logger *zerolog.Logger) *Service {
	if policy == "" {
		policy = availability.PolicyAdvisory
	}
	return &Service{
		store:    store,
		catalog:  catalog,
		refunder: refunder,
		bus:      bus,
		policy:   policy,
		now:      time.Now,
		logger:   logger.With().Str("component", "booking").Logger(),
	}
}

// SetClock replaces the wall clock.
func (s *Service) SetClock(clock timeutil.Clock) {
	s.now = clock
}

func (s *Service) loadShop(ctx context.Context, shopID string) (*model.Shop, error) {
	shop, err := s.store.GetShop(ctx, shopID)
	if err != nil {
		return nil, collaborator("get shop", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("shop %s: %w", shopID, ErrNotFound)
	}
	if shop.Calendar == nil {
		return nil, fmt.Errorf("shop %s: calendar settings missing: %w", shopID, ErrConfiguration)
	}
	return shop, nil
}

// BuildCart resolves selections against the catalog and staff into a cart.
func (s *Service) BuildCart(ctx context.Context, shopID string, guests []GuestSelection) (cart.Cart, error) {
	services, err := s.catalog.GetServices(ctx, shopID)
	if err != nil {
		return cart.Cart{}, collaborator("get services", err)
	}
	staff, err := s.store.GetStaff(ctx, shopID)
	if err != nil {
		return cart.Cart{}, collaborator("get staff", err)
	}
	return assembleCart(services, staff, guests)
}

func assembleCart(services []model.Service, staff []model.StaffMember, guests []GuestSelection) (cart.Cart, error) {
	byService := make(map[string]model.Service, len(services))
	for _, svc := range services {
		byService[svc.ID] = svc
	}
	byStaff := make(map[string]model.StaffMember, len(staff))
	for _, m := range staff {
		byStaff[m.ID] = m
	}

	c := cart.New()
	var reasons []string
	for gi, g := range guests {
		if gi > 0 {
			c, _ = c.AddGuest()
		}
		for _, sel := range g.Services {
			svc, ok := byService[sel.ServiceID]
			if !ok {
				reasons = append(reasons, fmt.Sprintf("unknown service %q", sel.ServiceID))
				continue
			}

			var opt *model.ServiceOption
			if sel.OptionID != "" {
				o, ok := svc.Option(sel.OptionID)
				if !ok {
					reasons = append(reasons, fmt.Sprintf("unknown option %q for %s", sel.OptionID, svc.Name))
					continue
				}
				opt = &o
			}

			var addOns []model.ServiceAddOn
			for _, as := range sel.AddOns {
				a, ok := svc.AddOn(as.ID)
				if !ok {
					reasons = append(reasons, fmt.Sprintf("unknown add-on %q for %s", as.ID, svc.Name))
					continue
				}
				a.Quantity = max(as.Quantity, 1)
				addOns = append(addOns, a)
			}

			var ref *model.StaffRef
			staffID := sel.StaffID
			if staffID == "" {
				staffID = g.StaffID
			}
			if staffID != "" {
				m, ok := byStaff[staffID]
				switch {
				case !ok:
					reasons = append(reasons, fmt.Sprintf("unknown staff %q", staffID))
				case !m.CanPerform(svc.ID):
					reasons = append(reasons, fmt.Sprintf("%s cannot perform %s", m.Name, svc.Name))
				default:
					r := m.Ref()
					ref = &r
				}
			}

			c = c.AddService(svc, opt, addOns, ref)
		}
	}

	if len(reasons) > 0 {
		return cart.Cart{}, Invalid(reasons...)
	}
	return c.SetActive(cart.PrimaryGuestID), nil
}

type snapshot struct {
	shop     *model.Shop
	staff    []model.StaffMember
	offs     []model.TimeOff
	bookings []model.ExistingBooking
}

func (s *Service) loadSnapshot(ctx context.Context, shop *model.Shop, date time.Time) (snapshot, error) {
	snap := snapshot{shop: shop}
	var err error
	if snap.staff, err = s.store.GetStaff(ctx, shop.ID); err != nil {
		return snap, collaborator("get staff", err)
	}
	if snap.offs, err = s.store.GetTimeOffs(ctx, shop.ID); err != nil {
		return snap, collaborator("get time offs", err)
	}
	if snap.bookings, err = s.store.GetBlockingBookings(ctx, shop.ID, date); err != nil {
		return snap, collaborator("get bookings", err)
	}
	return snap, nil
}

func (s *Service) compute(snap snapshot, c cart.Cart, date time.Time) (availability.Result, error) {
	res, err := availability.Compute(availability.Request{
		Shop:       snap.shop,
		Staff:      snap.staff,
		Bookings:   snap.bookings,
		TimeOffs:   snap.offs,
		Cart:       c,
		Date:       date,
		GuestCount: c.ServicedGuestCount(),
		Now:        s.now(),
		Policy:     s.policy,
	})
	if err != nil {
		if errors.Is(err, slots.ErrInvalidInterval) || errors.Is(err, availability.ErrMissingCalendar) {
			return res, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return res, err
	}
	return res, nil
}

// Availability loads a fresh snapshot and computes the date's slots.
func (s *Service) Availability(ctx context.Context, req AvailabilityRequest) (availability.Result, error) {
	started := time.Now()
	defer func() { metrics.ObserveAvailability(time.Since(started).Seconds()) }()

	if req.Date.IsZero() {
		return availability.Result{}, Invalid(ReasonMissingDate)
	}
	shop, err := s.loadShop(ctx, req.ShopID)
	if err != nil {
		return availability.Result{}, err
	}
	c, err := s.BuildCart(ctx, req.ShopID, req.Guests)
	if err != nil {
		return availability.Result{}, err
	}
	snap, err := s.loadSnapshot(ctx, shop, req.Date)
	if err != nil {
		return availability.Result{}, err
	}

	res, err := s.compute(snap, c, req.Date)
	if err != nil {
		return res, err
	}
	if res.BlockDay {
		metrics.IncBlockedDay(res.Reason)
	}
	return res, nil
}

// Quote prices a selection. An ineligible promo is a ValidationError.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (CartSummary, error) {
	shop, err := s.loadShop(ctx, req.ShopID)
	if err != nil {
		return CartSummary{}, err
	}
	c, err := s.BuildCart(ctx, req.ShopID, req.Guests)
	if err != nil {
		return CartSummary{}, err
	}
	if c.IsEmpty() {
		return CartSummary{}, Invalid(ReasonEmptyCart)
	}

	promo, err := s.resolvePromo(ctx, shop.ID, req.PromoCode, Subtotal(c.Guests()), c.ServiceIDs(), false)
	if err != nil {
		return CartSummary{}, err
	}
	return Summarize(c, promo, *shop.Calendar, req.PaymentMethod), nil
}

// resolvePromo looks the code up and checks eligibility. An empty code yields nil.
// carried marks a code already applied to the booking being moved; its
// lifecycle (active flag, validity window, usage limit) is not re-checked.
func (s *Service) resolvePromo(ctx context.Context, shopID, code string, subtotal float64, serviceIDs []string, carried bool) (*model.Promo, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	promo, err := s.catalog.GetPromo(ctx, shopID, code)
	if err != nil {
		return nil, collaborator("get promo", err)
	}
	check := promo
	if promo != nil && carried {
		check = carriedPromo(*promo)
	}
	if reasons := CheckPromo(check, subtotal, serviceIDs, s.now()); len(reasons) > 0 {
		return nil, Invalid(reasons...)
	}
	return check, nil
}

// carriedPromo strips the rules that only gate a first use of the code.
func carriedPromo(p model.Promo) *model.Promo {
	p.Active = true
	p.ValidFrom = nil
	p.ValidUntil = nil
	p.UsageLimit = 0
	return &p
}

// Create validates the chosen slot against a fresh snapshot, builds the payload and persists it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.BookingPayload, error) {
	shop, err := s.loadShop(ctx, req.ShopID)
	if err != nil {
		return model.BookingPayload{}, err
	}
	c, err := s.BuildCart(ctx, req.ShopID, req.Guests)
	if err != nil {
		s.reject(err)
		return model.BookingPayload{}, err
	}

	payload, err := s.prepare(ctx, shop, c, prepareInput{
		date:      req.Date,
		time:      req.Time,
		client:    req.Client,
		method:    req.PaymentMethod,
		promoCode: req.PromoCode,
		notes:     req.Notes,
	})
	if err != nil {
		s.reject(err)
		return model.BookingPayload{}, err
	}
	payload.PaymentIntentID = req.PaymentIntentID

	created, err := s.insert(ctx, shop.ID, payload)
	if err != nil {
		return model.BookingPayload{}, err
	}
	payload.ID = created.ID
	payload.BookingNumber = created.BookingNumber

	if payload.PromoCode != "" {
		if err := s.catalog.IncrementPromoUsage(ctx, shop.ID, payload.PromoCode); err != nil {
			s.logger.Warn().Err(err).Str("shop_id", shop.ID).Str("booking_id", payload.ID).Msg("increment promo usage")
		}
	}

	metrics.IncBookingCreated(string(payload.Status))
	s.publish(ctx, events.BookingCreated, payload)
	s.logger.Info().
		Str("shop_id", shop.ID).
		Str("booking_id", payload.ID).
		Int("booking_number", payload.BookingNumber).
		Str("date", timeutil.FormatDate(payload.Date)).
		Msg("booking created")
	return payload, nil
}

type prepareInput struct {
	date      time.Time
	time      string
	client    model.ClientInfo
	method    model.PaymentMethod
	promoCode string
	notes     string
	ignore    string // booking id excluded from conflicts
	promoUsed bool

	rebookedFrom   string
	originalMethod model.PaymentMethod
}

// prepare re-validates the slot and every assigned staff member, then builds the payload.
func (s *Service) prepare(ctx context.Context, shop *model.Shop, c cart.Cart, in prepareInput) (model.BookingPayload, error) {
	if c.IsEmpty() {
		return model.BookingPayload{}, Invalid(ReasonEmptyCart)
	}
	if in.date.IsZero() {
		return model.BookingPayload{}, Invalid(ReasonMissingDate)
	}
	start, err := timeutil.ParseClock(in.time)
	if err != nil {
		return model.BookingPayload{}, Invalid(ReasonMissingTime)
	}

	snap, err := s.loadSnapshot(ctx, shop, in.date)
	if err != nil {
		return model.BookingPayload{}, err
	}
	if in.ignore != "" {
		kept := snap.bookings[:0:0]
		for _, b := range snap.bookings {
			if b.ID != in.ignore {
				kept = append(kept, b)
			}
		}
		snap.bookings = kept
	}

	res, err := s.compute(snap, c, in.date)
	if err != nil {
		return model.BookingPayload{}, err
	}
	if res.BlockDay && len(res.Slots) == 0 {
		return model.BookingPayload{}, Invalid("selected date is not available: " + res.Reason)
	}
	slot, ok := slots.Find(res.Slots, start)
	if !ok {
		return model.BookingPayload{}, Invalid(fmt.Sprintf("%s is not a bookable start time", timeutil.FormatMinutes(start)))
	}
	if !slot.Available {
		return model.BookingPayload{}, Invalid(fmt.Sprintf("%s is not available: %s", slot.Time, slot.Reason))
	}

	promo, err := s.resolvePromo(ctx, shop.ID, in.promoCode, Subtotal(c.Guests()), c.ServiceIDs(), in.promoUsed)
	if err != nil {
		return model.BookingPayload{}, err
	}

	payload, err := Build(BuildInput{
		ID:                    uuid.NewString(),
		Shop:                  *shop,
		Cart:                  c,
		Date:                  in.date,
		Time:                  in.time,
		Client:                in.client,
		PaymentMethod:         in.method,
		PromoCode:             in.promoCode,
		Promo:                 promo,
		Notes:                 in.notes,
		Now:                   s.now(),
		RebookedFrom:          in.rebookedFrom,
		OriginalPaymentMethod: in.originalMethod,
	})
	if err != nil {
		return model.BookingPayload{}, err
	}

	if reasons := checkAssignedStaff(snap, payload, s.now()); len(reasons) > 0 {
		return model.BookingPayload{}, Invalid(reasons...)
	}
	return payload, nil
}

// checkAssignedStaff validates each line's staff for that line's own span.
func checkAssignedStaff(snap snapshot, p model.BookingPayload, now time.Time) []string {
	members := make(map[string]model.StaffMember, len(snap.staff))
	for _, m := range snap.staff {
		members[m.ID] = m
	}
	v := availability.Validator{
		Now:      now,
		Calendar: *snap.shop.Calendar,
		Date:     p.Date,
		TimeOffs: snap.offs,
		Bookings: snap.bookings,
	}

	var reasons []string
	for _, g := range p.Guests {
		for _, line := range g.Services {
			if line.Staff == nil {
				continue
			}
			m, ok := members[line.Staff.ID]
			if !ok {
				reasons = append(reasons, fmt.Sprintf("unknown staff %q", line.Staff.ID))
				continue
			}
			if c := v.Validate(m, line.StartTime, line.Duration); !c.Valid {
				reasons = append(reasons, fmt.Sprintf("%s at %s: %s", m.Name, timeutil.FormatMinutes(line.StartTime), c.Reason))
			}
		}
	}
	return reasons
}

// Rebook books the original's services at a new slot. The store marks the
// original REBOOKED in the same write that inserts the replacement.
func (s *Service) Rebook(ctx context.Context, req RebookRequest) (model.BookingPayload, error) {
	shop, err := s.loadShop(ctx, req.ShopID)
	if err != nil {
		return model.BookingPayload{}, err
	}
	orig, err := s.getBooking(ctx, shop.ID, req.BookingID)
	if err != nil {
		return model.BookingPayload{}, err
	}
	if d := CanRebook(*orig, *shop, s.now()); !d.Allowed {
		return model.BookingPayload{}, Invalid(d.Reason)
	}

	guests := req.Guests
	if len(guests) == 0 {
		guests = SelectionsFrom(*orig)
	}
	c, err := s.BuildCart(ctx, shop.ID, guests)
	if err != nil {
		return model.BookingPayload{}, err
	}

	notes := req.Notes
	if notes == "" {
		notes = orig.Notes
	}
	payload, err := s.prepare(ctx, shop, c, prepareInput{
		date:           req.Date,
		time:           req.Time,
		client:         orig.Client,
		method:         orig.PaymentMethod,
		promoCode:      orig.PromoCode,
		notes:          notes,
		ignore:         orig.ID,
		promoUsed:      true,
		rebookedFrom:   orig.ID,
		originalMethod: orig.PaymentMethod,
	})
	if err != nil {
		s.reject(err)
		return model.BookingPayload{}, err
	}
	payload.PaymentIntentID = orig.PaymentIntentID

	created, err := s.insert(ctx, shop.ID, payload)
	if err != nil {
		return model.BookingPayload{}, err
	}
	payload.ID = created.ID
	payload.BookingNumber = created.BookingNumber

	metrics.IncBookingRebooked()
	s.publish(ctx, events.BookingRebooked, payload)
	s.logger.Info().
		Str("shop_id", shop.ID).
		Str("booking_id", payload.ID).
		Str("rebooked_from", orig.ID).
		Str("date", timeutil.FormatDate(payload.Date)).
		Msg("booking rebooked")
	return payload, nil
}

func (s *Service) insert(ctx context.Context, shopID string, p model.BookingPayload) (Created, error) {
	created, err := s.store.CreateBooking(ctx, shopID, p)
	if errors.Is(err, ErrSlotTaken) {
		metrics.IncBookingRejected("slot_taken")
		return Created{}, Invalid(ReasonSlotTaken)
	}
	if errors.Is(err, ErrBookingChanged) {
		metrics.IncBookingRejected("booking_changed")
		return Created{}, Invalid(ReasonBookingChanged)
	}
	if err != nil {
		return Created{}, collaborator("create booking", err)
	}
	return created, nil
}

// SelectionsFrom rebuilds the guest selections of a stored booking.
func SelectionsFrom(p model.BookingPayload) []GuestSelection {
	out := make([]GuestSelection, 0, len(p.Guests))
	for _, g := range p.Guests {
		gs := GuestSelection{}
		for _, line := range g.Services {
			sel := ServiceSelection{ServiceID: line.ServiceID, OptionID: line.OptionID}
			for _, a := range line.AddOns {
				sel.AddOns = append(sel.AddOns, AddOnSelection{ID: a.ID, Quantity: a.Quantity})
			}
			if line.Staff != nil {
				sel.StaffID = line.Staff.ID
			}
			gs.Services = append(gs.Services, sel)
		}
		out = append(out, gs)
	}
	return out
}

// Cancel marks the booking CANCELLED and refunds a refundable deposit. A refund
// failure is returned after the status write; retrying is the caller's decision.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (CancelResult, error) {
	shop, err := s.loadShop(ctx, req.ShopID)
	if err != nil {
		return CancelResult{}, err
	}
	b, err := s.getBooking(ctx, shop.ID, req.BookingID)
	if err != nil {
		return CancelResult{}, err
	}

	now := s.now()
	d := CanCancel(*b, *shop, now)
	if !d.Allowed {
		return CancelResult{}, Invalid(d.Reason)
	}

	if err := s.store.UpdateBookingStatus(ctx, shop.ID, b.ID, model.StatusCancelled, StatusUpdate{
		CancelReason: req.Reason,
		CancelledAt:  &now,
	}); err != nil {
		return CancelResult{}, collaborator("cancel booking", err)
	}
	b.Status = model.StatusCancelled
	b.CancelReason = req.Reason
	b.CancelledAt = &now

	result := CancelResult{Booking: *b, Decision: d}
	s.publish(ctx, events.BookingCancelled, *b)

	if d.Refundable {
		if err := s.refund(ctx, shop, b); err != nil {
			metrics.IncBookingCancelled(false)
			return result, err
		}
		result.Refunded = true
	}

	metrics.IncBookingCancelled(result.Refunded)
	s.logger.Info().
		Str("shop_id", shop.ID).
		Str("booking_id", b.ID).
		Bool("refunded", result.Refunded).
		Str("reason", req.Reason).
		Msg("booking cancelled")
	return result, nil
}

func (s *Service) refund(ctx context.Context, shop *model.Shop, b *model.BookingPayload) error {
	if s.refunder == nil {
		return &CollaboratorError{Op: "request refund", Err: errors.New("no payment provider configured")}
	}
	res, err := s.refunder.RequestRefund(ctx, b.PaymentIntentID, shop.ConnectedAccountID)
	if err != nil {
		s.logger.Error().Err(err).Str("shop_id", shop.ID).Str("booking_id", b.ID).Msg("request refund")
		return &CollaboratorError{Op: "request refund", Err: err}
	}
	if !res.Success {
		s.logger.Error().Str("shop_id", shop.ID).Str("booking_id", b.ID).Str("reason", res.Error).Msg("refund declined")
		return &CollaboratorError{Op: "request refund", Err: errors.New(res.Error)}
	}
	return nil
}

// Get returns a stored booking.
func (s *Service) Get(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error) {
	return s.getBooking(ctx, shopID, bookingID)
}

func (s *Service) getBooking(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error) {
	b, err := s.store.GetBooking(ctx, shopID, bookingID)
	if err != nil {
		return nil, collaborator("get booking", err)
	}
	if b == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	return b, nil
}

func (s *Service) publish(ctx context.Context, eventType string, p model.BookingPayload) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(ctx, eventType, p.ID, p); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", p.ID).Str("event_type", eventType).Msg("publish event")
	}
}

func (s *Service) reject(err error) {
	switch {
	case IsValidation(err):
		metrics.IncBookingRejected("validation")
	case errors.Is(err, ErrConfiguration):
		metrics.IncBookingRejected("configuration")
	}
}
