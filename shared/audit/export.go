package audit

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

var bookingColumns = []string{
	"Number", "Booking ID", "Date", "Start", "End", "Status", "Client", "Email", "Phone",
	"Staff", "Duration (min)", "Subtotal", "Promo", "Discount", "Total",
	"Deposit", "Payment", "Rebooked From", "Cancel Reason", "Created At",
}

var lineColumns = []string{
	"Number", "Guest", "Service", "Option", "Add-ons", "Staff", "Start", "End", "Duration (min)", "Price",
}

// Exporter renders bookings of a shop into a workbook.
type Exporter struct {
	source    BookingSource
	newWriter func() ExcelWriter
	logger    *zerolog.Logger
}

func NewExporter(source BookingSource, logger *zerolog.Logger) *Exporter {
	l := logger.With().Str("component", "export").Logger()
	return &Exporter{source: source, newWriter: NewExcelizeWriter, logger: &l}
}

// Export writes bookings dated within [from, to] to out and returns how many were written.
func (e *Exporter) Export(ctx context.Context, out io.Writer, shopID string, from, to time.Time) (int, error) {
	if to.Before(from) {
		return 0, fmt.Errorf("export range ends before it starts")
	}
	bookings, err := e.source.ListBookings(ctx, shopID, from, to)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}

	w := e.newWriter()
	defer w.Close()

	if err := WriteBookings(w, bookings); err != nil {
		return 0, err
	}
	if err := w.Save(out); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().
		Str("shop_id", shopID).
		Str("from", timeutil.FormatDate(from)).
		Str("to", timeutil.FormatDate(to)).
		Int("bookings", len(bookings)).
		Msg("Bookings exported")
	return len(bookings), nil
}

// WriteBookings fills a "Bookings" sheet with one row per booking and a
// "Services" sheet with one row per booked service.
func WriteBookings(w ExcelWriter, bookings []model.BookingPayload) error {
	if err := w.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := w.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for i := range bookings {
		if err := w.WriteRow(bookingRow(&bookings[i])); err != nil {
			return fmt.Errorf("write booking %s: %w", bookings[i].ID, err)
		}
	}

	if err := w.AddSheet("Services"); err != nil {
		return err
	}
	if err := w.WriteHeader(lineColumns); err != nil {
		return err
	}
	for i := range bookings {
		b := &bookings[i]
		for _, g := range b.Guests {
			for _, line := range g.Services {
				if err := w.WriteRow(lineRow(b.BookingNumber, g.GuestName, line)); err != nil {
					return fmt.Errorf("write line of %s: %w", b.ID, err)
				}
			}
		}
	}
	return nil
}

func bookingRow(b *model.BookingPayload) []any {
	deposit := ""
	if b.DepositRequired {
		deposit = fmt.Sprintf("%.2f", b.DepositAmount)
	}
	return []any{
		b.BookingNumber,
		b.ID,
		timeutil.FormatDate(b.Date),
		timeutil.FormatMinutes(b.TimeStart),
		timeutil.FormatMinutes(b.TimeEnd),
		string(b.Status),
		b.Client.Name,
		b.Client.Email,
		b.Client.Phone,
		strings.Join(b.StaffIDs, ", "),
		b.TotalDuration,
		b.Subtotal,
		b.PromoCode,
		b.PromoDiscount,
		b.Total,
		deposit,
		string(b.PaymentMethod),
		b.RebookedFrom,
		b.CancelReason,
		b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func lineRow(number int, guest string, line model.ServiceLine) []any {
	addOns := make([]string, 0, len(line.AddOns))
	for _, a := range line.AddOns {
		addOns = append(addOns, a.Name)
	}
	staff := ""
	if line.Staff != nil {
		staff = line.Staff.Name
	}
	return []any{
		number,
		guest,
		line.ServiceName,
		line.OptionName,
		strings.Join(addOns, ", "),
		staff,
		timeutil.FormatMinutes(line.StartTime),
		timeutil.FormatMinutes(line.EndTime),
		line.Duration,
		line.TotalPrice,
	}
}
