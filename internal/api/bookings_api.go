package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotbook/internal/booking"
	"slotbook/internal/model"
	"slotbook/internal/timeutil"
	"slotbook/shared/audit"
)

// MaxExportDaysRange bounds GET /api/bookings/export.
const MaxExportDaysRange = 366

// AvailabilityRequest is the request body for POST /api/availability.
type AvailabilityRequest struct {
	ShopID string                   `json:"shop_id"`
	Date   string                   `json:"date"` // YYYY-MM-DD
	Guests []booking.GuestSelection `json:"guests"`
}

// QuoteRequest is the request body for POST /api/quote.
type QuoteRequest struct {
	ShopID        string                   `json:"shop_id"`
	Guests        []booking.GuestSelection `json:"guests"`
	PromoCode     string                   `json:"promo_code,omitempty"`
	PaymentMethod string                   `json:"payment_method,omitempty"`
}

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	ShopID          string                   `json:"shop_id"`
	Date            string                   `json:"date"`
	Time            string                   `json:"time"` // HH:MM
	Guests          []booking.GuestSelection `json:"guests"`
	Client          model.ClientInfo         `json:"client"`
	PaymentMethod   string                   `json:"payment_method,omitempty"`
	PaymentIntentID string                   `json:"payment_intent_id,omitempty"`
	PromoCode       string                   `json:"promo_code,omitempty"`
	Notes           string                   `json:"notes,omitempty"`
}

// RebookRequest is the request body for POST /api/bookings/{id}/rebook.
type RebookRequest struct {
	ShopID string                   `json:"shop_id"`
	Date   string                   `json:"date"`
	Time   string                   `json:"time"`
	Guests []booking.GuestSelection `json:"guests,omitempty"`
	Notes  string                   `json:"notes,omitempty"`
}

// CancelRequest is the request body for POST /api/bookings/{id}/cancel.
type CancelRequest struct {
	ShopID string `json:"shop_id"`
	Reason string `json:"reason,omitempty"`
}

// CancelResponse reports the cancellation. RefundError is set when the booking
// was cancelled but the deposit refund failed.
type CancelResponse struct {
	booking.CancelResult
	RefundError string `json:"refund_error,omitempty"`
}

// parseOptionalDate leaves an empty date as the zero time so the booking
// service can report it as a validation failure.
func parseOptionalDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; use YYYY-MM-DD", raw)
	}
	return d, nil
}

func requireShop(shopID string) error {
	if strings.TrimSpace(shopID) == "" {
		return fmt.Errorf("shop_id is required")
	}
	return nil
}

// handleAvailability returns the slots of one date for the selected services.
// POST /api/availability
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := requireShop(req.ShopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.bookings.Availability(r.Context(), booking.AvailabilityRequest{
		ShopID: req.ShopID,
		Date:   date,
		Guests: req.Guests,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleQuote prices a selection without booking it.
// POST /api/quote
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := requireShop(req.ShopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.bookings.Quote(r.Context(), booking.QuoteRequest{
		ShopID:        req.ShopID,
		Guests:        req.Guests,
		PromoCode:     req.PromoCode,
		PaymentMethod: method,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleCreate books a selection.
// POST /api/bookings
func (s *HTTPServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := requireShop(req.ShopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	method, err := model.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := s.bookings.Create(r.Context(), booking.CreateRequest{
		ShopID:          req.ShopID,
		Date:            date,
		Time:            req.Time,
		Guests:          req.Guests,
		Client:          req.Client,
		PaymentMethod:   method,
		PaymentIntentID: req.PaymentIntentID,
		PromoCode:       req.PromoCode,
		Notes:           req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

// handleGet returns one booking.
// GET /api/bookings/{id}?shop_id=...
func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shop_id")
	if err := requireShop(shopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := s.bookings.Get(r.Context(), shopID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleRebook moves a booking to a new slot.
// POST /api/bookings/{id}/rebook
func (s *HTTPServer) handleRebook(w http.ResponseWriter, r *http.Request) {
	var req RebookRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := requireShop(req.ShopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := s.bookings.Rebook(r.Context(), booking.RebookRequest{
		ShopID:    req.ShopID,
		BookingID: r.PathValue("id"),
		Date:      date,
		Time:      req.Time,
		Guests:    req.Guests,
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payload)
}

// handleCancel cancels a booking and refunds a refundable deposit.
// POST /api/bookings/{id}/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := requireShop(req.ShopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.bookings.Cancel(r.Context(), booking.CancelRequest{
		ShopID:    req.ShopID,
		BookingID: r.PathValue("id"),
		Reason:    req.Reason,
	})
	if err != nil {
		// The status write happened; only the refund failed.
		if res.Booking.Status == model.StatusCancelled && booking.IsCollaborator(err) {
			s.logger.Warn().Err(err).Str("booking_id", res.Booking.ID).Msg("cancelled without refund")
			writeJSON(w, http.StatusOK, CancelResponse{CancelResult: res, RefundError: err.Error()})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{CancelResult: res})
}

// handleExport streams the shop's bookings in [from, to] as an xlsx workbook.
// GET /api/bookings/export?shop_id=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	q := r.URL.Query()
	shopID := q.Get("shop_id")
	if err := requireShop(shopID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	from, err := parseOptionalDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseOptionalDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	if to.Sub(from) > MaxExportDaysRange*24*time.Hour {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("date range exceeds %d days", MaxExportDaysRange))
		return
	}

	var buf bytes.Buffer
	if _, err := s.exporter.Export(r.Context(), &buf, shopID, from, to); err != nil {
		s.logger.Error().Err(err).Str("shop_id", shopID).Msg("export bookings")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := audit.GenerateFilename(shopID, from, to)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
