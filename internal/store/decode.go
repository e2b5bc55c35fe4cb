package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"instrupro-backend/internal/model"
	"instrupro-backend/internal/parse"
)

// Document field names of the packers_calibration collection.
const (
	FieldCalibrations = "calibrations"
	fieldCreatedAt    = "created_at"
	fieldUserName     = "user_name"
	fieldMeasurements = "data"
)

// DecodeCalibrations returns the sessions of an equipment document in stored
// order. A nil document decodes to no sessions. Sessions without an id get
// "<equipment>#<index>"; unusable timestamps become nil and measurement values
// that are not numbers become 0.
func DecodeCalibrations(doc *model.Document, equipment string) []model.CalibrationSession {
	if doc == nil {
		return []model.CalibrationSession{}
	}
	raw, _ := doc.Data[FieldCalibrations].([]any)
	sessions := make([]model.CalibrationSession, 0, len(raw))
	for i, item := range raw {
		m, _ := item.(map[string]any)
		s := model.CalibrationSession{
			ID:           stringField(m, "id"),
			EquipmentID:  equipment,
			CreatedAt:    timeField(m, fieldCreatedAt),
			UserName:     stringField(m, fieldUserName),
			Measurements: decodeMeasurements(m[fieldMeasurements]),
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("%s#%d", equipment, i)
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func decodeMeasurements(v any) []model.Measurement {
	raw, _ := v.([]any)
	out := make([]model.Measurement, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]any)
		in, _ := number(m["input"])
		e, _ := number(m["error"])
		out = append(out, model.Measurement{Input: in, Error: e})
	}
	return out
}

// EncodeCalibration is the stored form of a new session.
func EncodeCalibration(s model.CalibrationSession) map[string]any {
	data := make([]any, 0, len(s.Measurements))
	for _, m := range s.Measurements {
		data = append(data, map[string]any{"input": m.Input, "error": m.Error})
	}
	out := map[string]any{
		fieldUserName:     s.UserName,
		fieldMeasurements: data,
	}
	if s.ID != "" {
		out["id"] = s.ID
	}
	if s.CreatedAt != nil {
		out[fieldCreatedAt] = s.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// DecodePLCRequest builds the typed request from a plcModifications document.
// Missing strings are empty, a status other than active or cancelled is
// unknown, and the legacy cancelledDate field is read when cancelledAt is
// absent.
func DecodePLCRequest(doc model.Document) model.PLCRequest {
	m := doc.Data
	r := model.PLCRequest{
		ID:          doc.ID,
		RequestName: stringField(m, "requestName"),
		SignalName:  stringField(m, "signalName"),
		Details:     stringField(m, "details"),
		Date:        stringField(m, "date"),
		Time:        stringField(m, "time"),
		Status:      decodeStatus(m["status"]),
		CreatedAt:   timeField(m, "createdAt"),
		UpdatedAt:   timeField(m, "updatedAt"),
		CancelledAt: timeField(m, "cancelledAt"),
		CancelledBy: stringField(m, "cancelledBy"),
		UpdatedBy:   stringField(m, "updatedBy"),
		UID:         stringField(m, "uid"),
		UserName:    stringField(m, "userName"),
	}
	if r.CancelledAt == nil {
		r.CancelledAt = timeField(m, "cancelledDate")
	}
	return r
}

// DecodePLCRequests decodes every document of the collection.
func DecodePLCRequests(docs []model.Document) []model.PLCRequest {
	out := make([]model.PLCRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, DecodePLCRequest(d))
	}
	return out
}

func decodeStatus(v any) model.PLCStatus {
	s, _ := v.(string)
	switch model.PLCStatus(strings.ToLower(strings.TrimSpace(s))) {
	case model.PLCStatusActive:
		return model.PLCStatusActive
	case model.PLCStatusCancelled:
		return model.PLCStatusCancelled
	default:
		return model.PLCStatusUnknown
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func timeField(m map[string]any, key string) *time.Time {
	t, ok := parse.NormalizeTimestamp(m[key])
	if !ok {
		return nil
	}
	return &t
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parse.ParseDecimal(strings.TrimSpace(n))
	default:
		return 0, false
	}
}
