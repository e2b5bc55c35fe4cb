package calibration

import (
	"fmt"
	"time"

	"instrupro-backend/internal/model"
)

// Printed sheet constants of the packer calibration form.
const (
	SheetDocumentNumber = "HIMS-L3-F-03-02.30.03"
	SheetDateIssued     = "14-12-2023"
	SheetNextRevision   = "14-12-2026"
	SheetRevision       = "03"
	SheetRows           = 8
	AppliedTestWeight   = "50.00"

	blankField = "_________________"
)

// SheetRow is one line of the calibration table. Fields of rows beyond the
// recorded measurements are empty.
type SheetRow struct {
	SerialNo          int    `json:"serialNo"`
	AppliedWeight     string `json:"appliedWeight"`
	ActualResult      string `json:"actualResult"`
	ErrorPercent      string `json:"errorPercent"`
	AfterCalibration  string `json:"afterCalibration"`
	AfterErrorPercent string `json:"afterErrorPercent"`
}

// Sheet is the printable calibration sheet of one session.
type Sheet struct {
	DocumentNumber string     `json:"documentNumber"`
	DateIssued     string     `json:"dateIssued"`
	NextRevision   string     `json:"nextRevision"`
	Revision       string     `json:"revision"`
	Instrument     string     `json:"instrument"`
	Make           string     `json:"make"`
	Model          string     `json:"model"`
	Capacity       string     `json:"capacity"`
	Code           string     `json:"code"`
	Location       string     `json:"location"`
	Date           string     `json:"date"`
	Rows           []SheetRow `json:"rows"`
	CheckedBy      string     `json:"checkedBy"`
}

// NewSheet lays out session on the fixed eight-row form. Measurements past
// the eighth are not printed.
func NewSheet(session model.CalibrationSession, equipment string) Sheet {
	s := Sheet{
		DocumentNumber: SheetDocumentNumber,
		DateIssued:     SheetDateIssued,
		NextRevision:   SheetNextRevision,
		Revision:       SheetRevision,
		Instrument:     "Packer",
		Make:           "FLS Ventomatic",
		Model:          "Gev Ventocem 8",
		Capacity:       "2400 Bags/Hour",
		Code:           orBlank(equipment),
		Location:       "Packing Plant",
		Date:           sheetDate(session.CreatedAt),
		CheckedBy:      session.UserName,
		Rows:           make([]SheetRow, SheetRows),
	}
	if s.CheckedBy == "" {
		s.CheckedBy = "__"
	}

	for i := range s.Rows {
		row := SheetRow{SerialNo: i + 1, AppliedWeight: AppliedTestWeight}
		if i < len(session.Measurements) {
			m := session.Measurements[i]
			row.ActualResult = fmt.Sprintf("%.2f", m.Input)
			row.ErrorPercent = fmt.Sprintf("%.2f", m.Error)
			row.AfterCalibration = AppliedTestWeight
			row.AfterErrorPercent = "0.00"
		}
		s.Rows[i] = row
	}
	return s
}

func sheetDate(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return blankField
	}
	t := ts.In(time.Local)
	return fmt.Sprintf("%02d/%02d/%04d (DD/MM/YYYY)", t.Day(), int(t.Month()), t.Year())
}

func orBlank(s string) string {
	if s == "" {
		return blankField
	}
	return s
}
