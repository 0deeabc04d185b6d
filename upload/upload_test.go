package upload_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payregister-engine/payregister"
	"github.com/warp/payregister-engine/upload"
	"github.com/xuri/excelize/v2"
)

// workbook writes rows to the first sheet of a new xlsx.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseSummaryWorkbook_HeaderVariants(t *testing.T) {
	// GIVEN: A sheet using short header variants with odd casing and spacing
	// WHEN: Parsed
	// THEN: Every column is mapped and numbers are read

	buf := workbook(t, [][]any{
		{" emp no ", "PRESENT", "Absent Days", "Paid Leave", "lop", "OD", "Holiday Count", "Late", "OT Hours", "Extra"},
		{"E001", 20, 2, 1.5, 0.5, 2, 1, 3, 6.5, 1},
		{"E002", "n/a", "", 3, 0, 0, 0, 0, 0, 0},
	})

	rows, err := upload.ParseSummaryWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, payregister.SummaryRow{
		RowNumber: 1, EmployeeNumber: "E001",
		Present: 20, Absent: 2, PaidLeave: 1.5, LOP: 0.5, OD: 2,
		Holidays: 1, Lates: 3, OTHours: 6.5, ExtraDays: 1,
	}, rows[0])

	assert.Equal(t, 2, rows[1].RowNumber)
	assert.Zero(t, rows[1].Present, "non-numeric counts as 0")
	assert.Zero(t, rows[1].Absent, "empty counts as 0")
	assert.Equal(t, 3.0, rows[1].PaidLeave)
}

func TestParseSummaryWorkbook_PrefersFirstVariant(t *testing.T) {
	rows := upload.ParseSummaryRows([][]string{
		{"Employee Code", "Present", "Total Present"},
		{"E001", "5", "22"},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 22.0, rows[0].Present)
}

func TestParseSummaryWorkbook_BlankRowsAndMissingCode(t *testing.T) {
	rows := upload.ParseSummaryRows([][]string{
		{"Employee Code", "Total Present"},
		{"E001", "10"},
		{"", ""},
		{"", "4"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[1].RowNumber, "blank rows keep numbering")
	assert.Empty(t, rows[1].EmployeeNumber)
}

func TestParseSummaryWorkbook_RejectsNonWorkbook(t *testing.T) {
	_, err := upload.ParseSummaryWorkbook(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestExportRegister_RoundTripsThroughUpload(t *testing.T) {
	// GIVEN: A ledger with present and leave days
	// WHEN: Exported and parsed back as an upload
	// THEN: The counts survive

	cycle := payregister.NewCycleKey(2026, time.February)
	r := cycle.Resolve(payregister.DefaultCycleSettings())
	var records []payregister.DailyRecord
	for i, d := range r.Dates() {
		rec := payregister.NewDailyRecord(d)
		if i < 20 {
			rec.FirstHalf.Status = payregister.StatusPresent
			rec.SecondHalf.Status = payregister.StatusPresent
			rec.Normalize()
		}
		records = append(records, rec)
	}
	l := payregister.NewLedger("l-1", payregister.Employee{ID: "emp-1", Number: "E001", Name: "Asha"}, cycle, r, records, time.Now())

	data, err := upload.ExportRegister([]*payregister.Ledger{l})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, "Pay Register", f.GetSheetName(0))
	name, err := f.GetCellValue("Pay Register", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)

	rows, err := upload.ParseSummaryWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "E001", rows[0].EmployeeNumber)
	assert.Equal(t, 20.0, rows[0].Present)
	assert.Equal(t, 8.0, rows[0].Absent)
}
