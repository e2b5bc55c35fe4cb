package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"instrupro-backend/internal/calibration"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/parse"
	"instrupro-backend/internal/webhook"
)

// Weigh feeder reading fields.
const (
	FieldBinBefore = "binBefore"
	FieldBinAfter  = "binAfter"
	FieldTotBefore = "totBefore"
	FieldTotAfter  = "totAfter"
)

// ReportSender delivers the daily weigh feeder errors.
type ReportSender interface {
	Send(ctx context.Context, r webhook.Report) error
}

// WeighFeederRow is a tag with its derived values. ErrorPercent uses
// totAfter - totBefore and is the submitted value; LossOfWeightError uses
// totBefore - totAfter as the loss-of-weight row does. Nil means undefined.
type WeighFeederRow struct {
	model.WeighFeederTag
	BinDifference     *float64          `json:"binDifference"`
	TotDifference     *float64          `json:"totDifference"`
	ErrorPercent      *float64          `json:"errorPercent"`
	LossOfWeightError *float64          `json:"lossOfWeightError"`
	Class             calibration.Class `json:"class,omitempty"`
}

// TagEdit carries typed values for some of a tag's readings.
type TagEdit struct {
	BinBefore *string `json:"binBefore"`
	BinAfter  *string `json:"binAfter"`
	TotBefore *string `json:"totBefore"`
	TotAfter  *string `json:"totAfter"`
}

// WeighFeederOptions configures a WeighFeeder.
type WeighFeederOptions struct {
	Sender ReportSender
	Clock  func() time.Time
	Logger *zap.Logger
}

// WeighFeeder holds the loss-of-weight readings of a fixed tag list.
type WeighFeeder struct {
	mu     sync.Mutex
	tags   []model.WeighFeederTag
	index  map[string]int
	sender ReportSender
	now    func() time.Time
	log    *zap.Logger
}

// NewWeighFeeder creates a WeighFeeder. Tag codes must be unique and
// non-empty.
func NewWeighFeeder(tags []model.WeighFeederTag, opts WeighFeederOptions) (*WeighFeeder, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	w := &WeighFeeder{
		tags:   make([]model.WeighFeederTag, 0, len(tags)),
		index:  make(map[string]int, len(tags)),
		sender: opts.Sender,
		now:    opts.Clock,
		log:    opts.Logger.With(zap.String("screen", "weigh_feeder")),
	}
	for _, t := range tags {
		if t.Code == "" {
			return nil, fmt.Errorf("%w: tag %q has no code", ErrValidation, t.Name)
		}
		if _, dup := w.index[t.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate tag code %q", ErrValidation, t.Code)
		}
		w.index[t.Code] = len(w.tags)
		w.tags = append(w.tags, model.WeighFeederTag{Code: t.Code, Name: t.Name})
	}
	return w, nil
}

// Rows returns every tag in configured order.
func (w *WeighFeeder) Rows() []WeighFeederRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows := make([]WeighFeederRow, 0, len(w.tags))
	for _, t := range w.tags {
		rows = append(rows, deriveRow(t))
	}
	return rows
}

// SetField applies one keystroke result to a reading. A value that is not a
// partial decimal leaves the field unchanged.
func (w *WeighFeeder) SetField(code, field, typed string) (WeighFeederRow, error) {
	var edit TagEdit
	switch field {
	case FieldBinBefore:
		edit.BinBefore = &typed
	case FieldBinAfter:
		edit.BinAfter = &typed
	case FieldTotBefore:
		edit.TotBefore = &typed
	case FieldTotAfter:
		edit.TotAfter = &typed
	default:
		return WeighFeederRow{}, fmt.Errorf("%w: unknown field %q", ErrValidation, field)
	}
	return w.Edit(code, edit)
}

// Edit applies every set field of e through the decimal input filter.
func (w *WeighFeeder) Edit(code string, e TagEdit) (WeighFeederRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	i, ok := w.index[code]
	if !ok {
		return WeighFeederRow{}, fmt.Errorf("%w: tag %q", ErrNotFound, code)
	}
	t := &w.tags[i]
	apply := func(dst *string, typed *string) {
		if typed != nil {
			*dst = parse.FilterDecimal(*dst, *typed)
		}
	}
	apply(&t.BinBefore, e.BinBefore)
	apply(&t.BinAfter, e.BinAfter)
	apply(&t.TotBefore, e.TotBefore)
	apply(&t.TotAfter, e.TotAfter)
	return deriveRow(*t), nil
}

// Reset clears every reading.
func (w *WeighFeeder) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.tags {
		w.tags[i] = model.WeighFeederTag{Code: w.tags[i].Code, Name: w.tags[i].Name}
	}
}

// Report collects the defined error percentages stamped with the current
// time.
func (w *WeighFeeder) Report() webhook.Report {
	rows := w.Rows()
	r := webhook.Report{
		Date:   w.now().UTC().Format(time.RFC3339),
		Errors: make(map[string]float64, len(rows)),
	}
	for _, row := range rows {
		if row.ErrorPercent != nil {
			r.Errors[row.Code] = *row.ErrorPercent
		}
	}
	return r
}

// Submit posts the report to the spreadsheet webhook.
func (w *WeighFeeder) Submit(ctx context.Context) (webhook.Report, error) {
	r := w.Report()
	if len(r.Errors) == 0 {
		return r, fmt.Errorf("%w: no tag has complete readings", ErrValidation)
	}
	if w.sender == nil {
		return r, fmt.Errorf("%w: %w", ErrRemote, webhook.ErrDisabled)
	}
	if err := w.sender.Send(ctx, r); err != nil {
		w.log.Warn("Failed to submit weigh feeder report", zap.Error(err))
		return r, wrapRemote(err)
	}
	return r, nil
}

func deriveRow(t model.WeighFeederTag) WeighFeederRow {
	reading := calibration.ReadingFromText(t.BinBefore, t.BinAfter, t.TotBefore, t.TotAfter)
	row := WeighFeederRow{WeighFeederTag: t}
	if v, ok := reading.BinDifference(); ok {
		row.BinDifference = &v
	}
	if v, ok := reading.TotDifference(calibration.AfterMinusBefore); ok {
		row.TotDifference = &v
	}
	if v, ok := calibration.WeighFeederError(reading, calibration.AfterMinusBefore); ok {
		row.ErrorPercent = &v
		row.Class = calibration.Classify(v)
	}
	if v, ok := calibration.WeighFeederError(reading, calibration.BeforeMinusAfter); ok {
		row.LossOfWeightError = &v
	}
	return row
}
