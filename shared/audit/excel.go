package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// ExcelizeWriter implements ExcelWriter on top of an in-memory excelize workbook.
type ExcelizeWriter struct {
	file       *excelize.File
	sheet      string
	row        int
	headStyle  int
	moneyStyle int
}

func NewExcelizeWriter() ExcelWriter {
	f := excelize.NewFile()
	w := &ExcelizeWriter{file: f}
	// Styles are optional; a failure leaves cells unstyled.
	w.headStyle, _ = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	w.moneyStyle, _ = f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	return w
}

// AddSheet starts a new sheet. The workbook's default sheet is reused for the first one.
func (w *ExcelizeWriter) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes bold column headers, sizes the columns and freezes the header row.
func (w *ExcelizeWriter) WriteHeader(columns []string) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, col); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = w.file.SetColWidth(w.sheet, name, name, float64(max(len(col)+2, 12)))
	}

	if w.headStyle != 0 && len(columns) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, w.row)
		last, _ := excelize.CoordinatesToCellName(len(columns), w.row)
		_ = w.file.SetCellStyle(w.sheet, first, last, w.headStyle)
	}
	_ = w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      w.row,
		TopLeftCell: fmt.Sprintf("A%d", w.row+1),
		ActivePane:  "bottomLeft",
	})

	w.row++
	return nil
}

// WriteRow writes one data row. float64 values get a two-decimal number format.
func (w *ExcelizeWriter) WriteRow(row []any) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
		if _, ok := val.(float64); ok && w.moneyStyle != 0 {
			_ = w.file.SetCellStyle(w.sheet, cell, cell, w.moneyStyle)
		}
	}

	w.row++
	return nil
}

// Save writes the workbook as xlsx.
func (w *ExcelizeWriter) Save(out io.Writer) error {
	return w.file.Write(out)
}

func (w *ExcelizeWriter) Close() error {
	return w.file.Close()
}
