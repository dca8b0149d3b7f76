package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled, by whether a refund was issued.",
		},
		[]string{"refund"},
	)

	bookingRebooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "booking_rebooked_total",
			Help:      "Count of bookings moved to a new slot.",
		},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts rejected before persistence.",
		},
		[]string{"kind"},
	)

	availabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "slotbook",
			Name:      "availability_duration_seconds",
			Help:      "Time spent computing availability, including snapshot loads.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	blockedDays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "availability_blocked_days_total",
			Help:      "Count of availability requests that returned a blocked day, by reason.",
		},
		[]string{"reason"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "reminders_total",
			Help:      "Day-before booking reminders by result.",
		},
		[]string{"result"},
	)

	eventsForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "events_forwarded_total",
			Help:      "Domain events forwarded to Kafka by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingCreated,
			bookingCancelled,
			bookingRebooked,
			bookingRejected,
			availabilityDuration,
			blockedDays,
			cacheLookups,
			httpRequests,
			remindersSent,
			eventsForwarded,
		)
	})
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled(refunded bool) {
	label := "none"
	if refunded {
		label = "issued"
	}
	bookingCancelled.WithLabelValues(label).Inc()
}

func IncBookingRebooked() {
	bookingRebooked.Inc()
}

func IncBookingRejected(kind string) {
	bookingRejected.WithLabelValues(kind).Inc()
}

func ObserveAvailability(seconds float64) {
	availabilityDuration.Observe(seconds)
}

func IncBlockedDay(reason string) {
	blockedDays.WithLabelValues(reason).Inc()
}

func IncCacheLookup(hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	cacheLookups.WithLabelValues(label).Inc()
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

func IncEventForwarded(ok bool) {
	label := "error"
	if ok {
		label = "ok"
	}
	eventsForwarded.WithLabelValues(label).Inc()
}

func IncReminder(ok bool) {
	label := "error"
	if ok {
		label = "sent"
	}
	remindersSent.WithLabelValues(label).Inc()
}
