// Package report renders inventory views as XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"stockcount-api/internal/model"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetRecords = "Records"
	sheetSummary = "Summary"
)

var recordHeader = []string{
	"Barcode", "Product Code", "Product", "Round", "Branch",
	"Expected", "Counted", "Operator", "Status", "Timestamp",
}

func recordRow(r model.InventoryRecord) []interface{} {
	cell := func(p *int) interface{} {
		if p == nil {
			return ""
		}
		return *p
	}
	return []interface{}{
		r.BarcodeID, cell(r.ProductCode), r.ProductName, cell(r.Round), cell(r.Branch),
		cell(r.ExpectedQty), cell(r.CountedQty), cell(r.OperatorCode), r.Status, r.Timestamp,
	}
}

// workbook wraps an excelize file whose first sheet is renamed to first.
type workbook struct {
	f    *excelize.File
	bold int
}

func newWorkbook(first string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &workbook{f: f, bold: bold}, nil
}

func (w *workbook) setRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *workbook) header(sheet string, titles []string) error {
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	if err := w.setRow(sheet, 1, values); err != nil {
		return err
	}
	return w.f.SetRowStyle(sheet, 1, 1, w.bold)
}

func (w *workbook) records(sheet string, records []model.InventoryRecord) error {
	if err := w.header(sheet, recordHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		if err := w.setRow(sheet, i+2, recordRow(r)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	_ = w.f.SetColWidth(sheet, "A", "A", 18)
	_ = w.f.SetColWidth(sheet, "C", "C", 32)
	_ = w.f.SetColWidth(sheet, "J", "J", 20)
	return nil
}

func (w *workbook) pairs(sheet string, rows [][2]interface{}) error {
	if _, err := w.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create %s sheet: %w", sheet, err)
	}
	for i, kv := range rows {
		if err := w.setRow(sheet, i+1, []interface{}{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	_ = w.f.SetColWidth(sheet, "A", "A", 16)
	return nil
}

func (w *workbook) writeTo(out io.Writer) error {
	defer w.f.Close()
	w.f.SetActiveSheet(0)
	if err := w.f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteReconciled writes reconciled Comparison rows and their summary counts.
func WriteReconciled(out io.Writer, records []model.InventoryRecord, summary model.StatusSummary, generated time.Time) error {
	w, err := newWorkbook(sheetRecords)
	if err != nil {
		return err
	}
	if err := w.records(sheetRecords, records); err != nil {
		w.f.Close()
		return err
	}
	err = w.pairs(sheetSummary, [][2]interface{}{
		{"Generated", generated.Local().Format(model.TimestampLayout)},
		{"Total", summary.Total},
		{"Completed", summary.Completed},
		{"Pending", summary.Pending},
		{"Offline", fmt.Sprint(summary.Offline)},
	})
	if err != nil {
		w.f.Close()
		return err
	}
	return w.writeTo(out)
}

// WriteActivity writes the rows of a recent-activity report.
func WriteActivity(out io.Writer, records []model.InventoryRecord, from, to time.Time, offline bool) error {
	w, err := newWorkbook(sheetRecords)
	if err != nil {
		return err
	}
	if err := w.records(sheetRecords, records); err != nil {
		w.f.Close()
		return err
	}
	source := "remote"
	if offline {
		source = "local pending items"
	}
	err = w.pairs(sheetSummary, [][2]interface{}{
		{"From", from.Local().Format(model.TimestampLayout)},
		{"To", to.Local().Format(model.TimestampLayout)},
		{"Records", len(records)},
		{"Source", source},
	})
	if err != nil {
		w.f.Close()
		return err
	}
	return w.writeTo(out)
}
