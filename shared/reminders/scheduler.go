package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
	"slotbook/internal/slots"
	"slotbook/internal/timeutil"
)

// Store lists shops and their bookings.
type Store interface {
	ListShops(ctx context.Context) ([]model.Shop, error)
	ListBookings(ctx context.Context, shopID string, from, to time.Time) ([]model.BookingPayload, error)
}

// Publisher emits reminder events.
type Publisher interface {
	PublishJSON(ctx context.Context, eventType, key string, v any) error
}

// Reminder is the payload of a booking.reminder event.
type Reminder struct {
	BookingID     string           `json:"booking_id"`
	ShopID        string           `json:"shop_id"`
	BookingNumber int              `json:"booking_number"`
	Client        model.ClientInfo `json:"client"`
	Date          string           `json:"date"`
	Time          string           `json:"time"`
	Duration      string           `json:"duration"`
	StaffIDs      []string         `json:"staff_ids"`
}

// SchedulerConfig holds configuration for the reminder scheduler.
type SchedulerConfig struct {
	// Hour is the shop-local hour (0-23) from which the day's reminders go out.
	Hour int
	// CheckInterval is how often to check if it's time to run.
	CheckInterval time.Duration
}

// Scheduler publishes one reminder per PENDING or CONFIRMED booking dated
// tomorrow in the shop's timezone, once per shop per local day.
type Scheduler struct {
	config SchedulerConfig
	store  Store
	bus    Publisher
	now    func() time.Time
	logger *zerolog.Logger

	mu      sync.Mutex
	lastRun map[string]string // shop id -> local YYYY-MM-DD
}

func NewScheduler(config SchedulerConfig, store Store, bus Publisher, logger *zerolog.Logger) *Scheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	l := logger.With().Str("component", "reminders").Logger()
	return &Scheduler{
		config:  config,
		store:   store,
		bus:     bus,
		now:     time.Now,
		logger:  &l,
		lastRun: make(map[string]string),
	}
}

// Start checks every CheckInterval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Int("hour", s.config.Hour).Dur("interval", s.config.CheckInterval).Msg("Reminder scheduler started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue sends reminders for every shop whose local clock has passed the
// reminder hour and that has not been processed today. It returns the number
// of reminders published.
func (s *Scheduler) RunDue(ctx context.Context) int {
	shops, err := s.store.ListShops(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list shops")
		return 0
	}

	sent := 0
	for i := range shops {
		shop := &shops[i]
		local := s.now().In(timeutil.LoadLocation(shopTimezone(shop)))
		if local.Hour() < s.config.Hour {
			continue
		}
		today := timeutil.FormatDate(local)

		s.mu.Lock()
		done := s.lastRun[shop.ID] == today
		s.mu.Unlock()
		if done {
			continue
		}

		n, err := s.remindShop(ctx, shop.ID, timeutil.DateOf(local).AddDate(0, 0, 1))
		sent += n
		if err != nil {
			s.logger.Error().Err(err).Str("shop_id", shop.ID).Msg("failed to list bookings for reminders")
			continue
		}

		s.mu.Lock()
		s.lastRun[shop.ID] = today
		s.mu.Unlock()
	}
	return sent
}

func (s *Scheduler) remindShop(ctx context.Context, shopID string, date time.Time) (int, error) {
	bookings, err := s.store.ListBookings(ctx, shopID, date, date)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range bookings {
		b := &bookings[i]
		if !b.Status.Blocks() {
			continue
		}
		r := Reminder{
			BookingID:     b.ID,
			ShopID:        shopID,
			BookingNumber: b.BookingNumber,
			Client:        b.Client,
			Date:          timeutil.FormatDate(b.Date),
			Time:          timeutil.FormatMinutes(b.TimeStart),
			Duration:      slots.FormatDuration(b.TotalDuration),
			StaffIDs:      b.StaffIDs,
		}
		if err := s.bus.PublishJSON(ctx, events.BookingReminder, b.ID, r); err != nil {
			metrics.IncReminder(false)
			s.logger.Warn().Err(err).Str("shop_id", shopID).Str("booking_id", b.ID).Msg("publish reminder")
			continue
		}
		metrics.IncReminder(true)
		sent++
	}

	s.logger.Info().
		Str("shop_id", shopID).
		Str("date", timeutil.FormatDate(date)).
		Int("sent", sent).
		Msg("Reminders processed")
	return sent, nil
}

func shopTimezone(shop *model.Shop) string {
	if shop.Calendar == nil {
		return "UTC"
	}
	return shop.Calendar.Timezone
}
