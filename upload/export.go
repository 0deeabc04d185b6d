package upload

import (
	"github.com/warp/payregister-engine/payregister"
	"github.com/xuri/excelize/v2"
)

const registerSheet = "Pay Register"

var registerHeader = []string{
	"Employee Code", "Employee Name", "Month", "Status",
	"Total Present", "Total Absent", "Paid Leaves", "LOP Count", "Total OD",
	"Holidays", "Week Offs", "Lates", "Early Outs", "Total OT Hours",
	"Total Extra Days", "Payable Shifts",
}

// ExportRegister renders one row per ledger with its totals. The present,
// absent, leave, OD, lates, OT and extra columns use the upload header
// names, so an export can be edited and uploaded back.
func ExportRegister(ledgers []*payregister.Ledger) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(registerSheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for c, v := range registerHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(registerSheet, cell, v)
	}
	for r, l := range ledgers {
		row := r + 2
		t := l.Totals
		values := []any{
			l.EmployeeNumber,
			l.EmployeeName,
			l.Cycle.String(),
			string(l.Status),
			t.TotalPresent,
			t.TotalAbsent,
			t.TotalPaidLeave,
			t.TotalLOP,
			t.TotalOD,
			t.TotalHolidays,
			t.TotalWeeklyOffs,
			t.LateCount,
			t.EarlyOutCount,
			t.TotalOTHours,
			t.ExtraDays,
			t.TotalPayableShifts,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(registerSheet, cell, v)
		}
	}

	_ = f.SetColWidth(registerSheet, "A", "A", 14)
	_ = f.SetColWidth(registerSheet, "B", "B", 28)
	_ = f.SetColWidth(registerSheet, "C", "D", 12)
	_ = f.SetColWidth(registerSheet, "E", "P", 14)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(registerSheet, "A1", "P1", style)
	_ = f.SetPanes(registerSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
