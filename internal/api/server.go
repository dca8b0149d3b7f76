package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"slotbook/internal/availability"
	"slotbook/internal/booking"
	"slotbook/internal/metrics"
	"slotbook/internal/model"
)

// BookingService is the part of booking.Service the HTTP layer drives.
type BookingService interface {
	Availability(ctx context.Context, req booking.AvailabilityRequest) (availability.Result, error)
	Quote(ctx context.Context, req booking.QuoteRequest) (booking.CartSummary, error)
	Create(ctx context.Context, req booking.CreateRequest) (model.BookingPayload, error)
	Rebook(ctx context.Context, req booking.RebookRequest) (model.BookingPayload, error)
	Cancel(ctx context.Context, req booking.CancelRequest) (booking.CancelResult, error)
	Get(ctx context.Context, shopID, bookingID string) (*model.BookingPayload, error)
}

// Exporter renders bookings of a date range as a workbook.
type Exporter interface {
	Export(ctx context.Context, out io.Writer, shopID string, from, to time.Time) (int, error)
}

// Options configures the HTTP server. RatePerSecond <= 0 disables rate limiting
// and an empty APIKey disables authentication.
type Options struct {
	Port          int
	APIKey        string
	RatePerSecond float64
	Burst         int
}

// HTTPServer exposes availability and booking operations as JSON endpoints.
type HTTPServer struct {
	server   *http.Server
	bookings BookingService
	exporter Exporter
	apiKey   string
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

// NewHTTPServer registers the booking routes and builds the rate limiter from opts.
func NewHTTPServer(opts Options, bookings BookingService, exporter Exporter, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		bookings: bookings,
		exporter: exporter,
		apiKey:   strings.TrimSpace(opts.APIKey),
		logger:   &l,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	mux := http.NewServeMux()
	s.handle(mux, "POST /api/availability", "availability", s.handleAvailability)
	s.handle(mux, "POST /api/quote", "quote", s.handleQuote)
	s.handle(mux, "POST /api/bookings", "create_booking", s.handleCreate)
	s.handle(mux, "GET /api/bookings/export", "export_bookings", s.handleExport)
	s.handle(mux, "GET /api/bookings/{id}", "get_booking", s.handleGet)
	s.handle(mux, "POST /api/bookings/{id}/rebook", "rebook_booking", s.handleRebook)
	s.handle(mux, "POST /api/bookings/{id}/cancel", "cancel_booking", s.handleCancel)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Msg("API server started")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h behind authentication, rate limiting and request metrics.
func (s *HTTPServer) handle(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() { metrics.IncHTTP(route, strconv.Itoa(rec.status)) }()

		if !s.authorized(r) {
			writeError(rec, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		if s.limiter != nil && !s.limiter.Allow() {
			rec.Header().Set("Retry-After", "1")
			writeError(rec, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		h(rec, r)
	})
}

func (s *HTTPServer) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	return r.Header.Get("X-Api-Key") == s.apiKey
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body and rejects unknown fields.
func decode(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

type errorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps booking errors to HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Reasons: ve.Reasons})
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrConfiguration):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("shop configuration")
		writeError(w, http.StatusInternalServerError, err.Error())
	case booking.IsCollaborator(err):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
