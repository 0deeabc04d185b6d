/*
Package upload reads monthly summary workbooks and writes the pay register
export.

PURPOSE:
  HR teams often keep monthly counts (present, OD, leave, lates, OT) in a
  spreadsheet instead of daily records. ParseSummaryWorkbook turns the first
  sheet of such a workbook into payregister.SummaryRow values for
  Engine.DistributeBulkSummary.

HEADERS:
  Matched case-insensitively after trimming. The first variant found wins:
    Employee Code | Emp Code | Emp No
    Total Present | Present Days | Present
    Total Absent | Absent Days | Absent
    Paid Leaves | Paid Leave
    LOP Count | LOP
    Total OD | OD Days | OD
    Holidays | Holiday Count | Holidays & Weekoffs
    Lates | Late Count | Late
    Total OT Hours | OT Hours | OT
    Total Extra Days | Extra Days | Extra

  Cells that are empty or not numbers count as 0. Rows are numbered from 1
  starting below the header; entirely blank rows are ignored.

SEE ALSO:
  - payregister/bulk.go: how rows are spread over a ledger
  - export.go: the register workbook
*/
package upload

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/warp/payregister-engine/payregister"
	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyWorkbook = errors.New("worksheet is empty")
	ErrNoSheet       = errors.New("no worksheet found")
)

var (
	colEmployee = []string{"Employee Code", "Emp Code", "Emp No"}
	colPresent  = []string{"Total Present", "Present Days", "Present"}
	colAbsent   = []string{"Total Absent", "Absent Days", "Absent"}
	colPaid     = []string{"Paid Leaves", "Paid Leave"}
	colLOP      = []string{"LOP Count", "LOP"}
	colOD       = []string{"Total OD", "OD Days", "OD"}
	colHolidays = []string{"Holidays", "Holiday Count", "Holidays & Weekoffs"}
	colLates    = []string{"Lates", "Late Count", "Late"}
	colOT       = []string{"Total OT Hours", "OT Hours", "OT"}
	colExtra    = []string{"Total Extra Days", "Extra Days", "Extra"}
)

// ParseSummaryWorkbook reads summary rows from the first sheet of an xlsx.
func ParseSummaryWorkbook(r io.Reader) ([]payregister.SummaryRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return ParseSummaryRows(rows), nil
}

// ParseSummaryRows maps a header row plus data rows to summary rows.
func ParseSummaryRows(rows [][]string) []payregister.SummaryRow {
	if len(rows) == 0 {
		return nil
	}
	idx := headerIndex(rows[0])
	col := func(variants []string) int {
		for _, v := range variants {
			if i, ok := idx[normalizeHeader(v)]; ok {
				return i
			}
		}
		return -1
	}

	var (
		emp      = col(colEmployee)
		present  = col(colPresent)
		absent   = col(colAbsent)
		paid     = col(colPaid)
		lop      = col(colLOP)
		od       = col(colOD)
		holidays = col(colHolidays)
		lates    = col(colLates)
		ot       = col(colOT)
		extra    = col(colExtra)
	)

	out := make([]payregister.SummaryRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, payregister.SummaryRow{
			RowNumber:      i + 1,
			EmployeeNumber: cellValue(row, emp),
			Present:        number(row, present),
			Absent:         number(row, absent),
			PaidLeave:      number(row, paid),
			LOP:            number(row, lop),
			OD:             number(row, od),
			Holidays:       number(row, holidays),
			Lates:          number(row, lates),
			OTHours:        number(row, ot),
			ExtraDays:      number(row, extra),
		})
	}
	return out
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func number(row []string, idx int) float64 {
	v, err := strconv.ParseFloat(cellValue(row, idx), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
