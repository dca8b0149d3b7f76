package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"slotbook/internal/model"
	"slotbook/internal/timeutil"
)

// BookingSource lists bookings for export.
type BookingSource interface {
	ListBookings(ctx context.Context, shopID string, from, to time.Time) ([]model.BookingPayload, error)
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []any) error

	// Save writes the Excel file to the writer.
	Save(w io.Writer) error

	Close() error
}

// GenerateFilename creates a filename like "downtown_2025-03-01_2025-03-31.xlsx".
func GenerateFilename(shopID string, from, to time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", shopID, timeutil.FormatDate(from), timeutil.FormatDate(to))
}
