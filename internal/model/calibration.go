package model

import "time"

// Measurement is one applied-weight reading of a calibration session.
type Measurement struct {
	Input float64 `json:"input"`
	Error float64 `json:"error"`
}

// CalibrationSession is one calibration run of a packer. The number of
// measurements is the record count shown in listings; order is kept as
// recorded.
type CalibrationSession struct {
	ID           string        `json:"id"`
	EquipmentID  string        `json:"equipment_id"`
	CreatedAt    *time.Time    `json:"created_at"`
	UserName     string        `json:"user_name"`
	Measurements []Measurement `json:"data"`
}

// Records returns the measurement count.
func (s CalibrationSession) Records() int {
	return len(s.Measurements)
}
