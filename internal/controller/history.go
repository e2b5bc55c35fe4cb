package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"instrupro-backend/internal/cache"
	"instrupro-backend/internal/calibration"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/store"
)

// HistoryBlob is the cached history of every fetched packer, keyed by name.
type HistoryBlob map[string][]model.CalibrationSession

// HistoryView is the history screen of one packer.
type HistoryView struct {
	Equipment  string                     `json:"equipment"`
	Phase      Phase                      `json:"phase"`
	Sessions   []model.CalibrationSession `json:"sessions"`
	HasData    bool                       `json:"hasData"`
	Cached     bool                       `json:"cached"`
	LastSynced *time.Time                 `json:"lastSynced,omitempty"`
	Notice     string                     `json:"notice,omitempty"`
}

// MeasurementRow is a measurement with its accuracy band.
type MeasurementRow struct {
	model.Measurement
	Class calibration.Class `json:"class"`
	Color string            `json:"color"`
}

// SessionDetail is one session with classified measurements.
type SessionDetail struct {
	model.CalibrationSession
	Records int              `json:"records"`
	Rows    []MeasurementRow `json:"rows"`
}

// HistoryOptions configures a History.
type HistoryOptions struct {
	Equipment []string
	Cache     *cache.LocalCache[HistoryBlob]
	Clock     func() time.Time
	Logger    *zap.Logger
}

// History lists the calibration sessions of one packer at a time. Its cache
// is manual: fetched histories are kept until refreshed or cleared.
type History struct {
	mu        sync.Mutex
	store     store.Store
	cache     *cache.LocalCache[HistoryBlob]
	equipment map[string]bool
	now       func() time.Time
	log       *zap.Logger
	loading   map[string]bool
	notices   map[string]string
	closed    bool
}

// NewHistory creates a History. Without a cache in opts it uses an in-memory
// manual one.
func NewHistory(st store.Store, opts HistoryOptions) *History {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[HistoryBlob](cache.NewMemoryStore(0), cache.Options{Key: cache.KeyHistory, Clock: opts.Clock})
	}
	known := make(map[string]bool, len(opts.Equipment))
	for _, e := range opts.Equipment {
		known[e] = true
	}
	return &History{
		store:     st,
		cache:     opts.Cache,
		equipment: known,
		now:       opts.Clock,
		log:       opts.Logger.With(zap.String("screen", "history")),
		loading:   make(map[string]bool),
		notices:   make(map[string]string),
	}
}

func (h *History) check(equipment string) error {
	if !h.equipment[equipment] {
		return fmt.Errorf("%w: %q", ErrUnknownEquipment, equipment)
	}
	return nil
}

func (h *History) blob() (HistoryBlob, *time.Time) {
	entry, ok := h.cache.Get()
	if !ok || entry.Data == nil {
		return HistoryBlob{}, nil
	}
	ts := entry.Timestamp
	return entry.Data, &ts
}

// View shows the cached history of equipment without touching the store.
func (h *History) View(equipment string) (HistoryView, error) {
	if err := h.check(equipment); err != nil {
		return HistoryView{}, err
	}
	blob, synced := h.blob()
	sessions, cached := blob[equipment]
	if sessions == nil {
		sessions = []model.CalibrationSession{}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	v := HistoryView{
		Equipment: equipment,
		Phase:     PhaseIdle,
		Sessions:  sessions,
		HasData:   len(sessions) > 0,
		Cached:    cached,
		Notice:    h.notices[equipment],
	}
	delete(h.notices, equipment)
	if cached {
		v.Phase = PhaseReady
		v.LastSynced = synced
	}
	if h.loading[equipment] {
		v.Phase = PhaseLoading
	}
	return v, nil
}

// Fetch loads the history of equipment unless it is already cached, in which
// case the cached copy is shown with a notice.
func (h *History) Fetch(ctx context.Context, equipment string) (HistoryView, error) {
	if err := h.check(equipment); err != nil {
		return HistoryView{}, err
	}
	blob, _ := h.blob()
	if _, ok := blob[equipment]; ok {
		h.setNotice(equipment, fmt.Sprintf("Using cached data for %s. Clear the cache to refresh.", equipment))
		return h.View(equipment)
	}
	err := h.load(ctx, equipment)
	v, _ := h.View(equipment)
	return v, err
}

// Refresh reloads the history of equipment from the store.
func (h *History) Refresh(ctx context.Context, equipment string) (HistoryView, error) {
	if err := h.check(equipment); err != nil {
		return HistoryView{}, err
	}
	err := h.load(ctx, equipment)
	v, _ := h.View(equipment)
	return v, err
}

func (h *History) load(ctx context.Context, equipment string) error {
	h.mu.Lock()
	h.loading[equipment] = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.loading, equipment)
		h.mu.Unlock()
	}()

	doc, err := h.store.GetDocument(ctx, model.CollectionPackers, equipment)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Warn("Failed to fetch calibration history", zap.String("equipment", equipment), zap.Error(err))
		h.setNotice(equipment, "Failed to fetch calibration history. Please try again.")
		return wrapRemote(err)
	}

	sessions := store.DecodeCalibrations(doc, equipment)
	SortByBestTimestamp(sessions, SessionTimestamp, Descending)

	h.mu.Lock()
	blob, _ := h.blob()
	next := make(HistoryBlob, len(blob)+1)
	for k, v := range blob {
		next[k] = v
	}
	next[equipment] = sessions
	h.cache.Set(next)
	h.mu.Unlock()

	switch {
	case doc == nil:
		h.setNotice(equipment, fmt.Sprintf("No calibration data exists for %s", equipment))
	case len(sessions) == 0:
		h.setNotice(equipment, fmt.Sprintf("No calibration records found for %s", equipment))
	default:
		h.setNotice(equipment, fmt.Sprintf("Found %d calibration records for %s", len(sessions), equipment))
	}
	return nil
}

func (h *History) setNotice(equipment, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.notices[equipment] = msg
}

// ClearCache drops the cached history of equipment. An empty equipment
// clears every packer.
func (h *History) ClearCache(equipment string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if equipment == "" {
		h.cache.Invalidate()
		return nil
	}
	if !h.equipment[equipment] {
		return fmt.Errorf("%w: %q", ErrUnknownEquipment, equipment)
	}

	blob, _ := h.blob()
	if _, ok := blob[equipment]; !ok {
		return nil
	}
	next := make(HistoryBlob, len(blob))
	for k, v := range blob {
		if k != equipment {
			next[k] = v
		}
	}
	if len(next) == 0 {
		h.cache.Invalidate()
	} else {
		h.cache.Set(next)
	}
	if !h.closed {
		h.notices[equipment] = fmt.Sprintf("Cache cleared for %s", equipment)
	}
	return nil
}

// AddCalibration records a new session for equipment and reloads its
// history from the store.
func (h *History) AddCalibration(ctx context.Context, principal *model.Principal, equipment string, measurements []model.Measurement) (model.CalibrationSession, error) {
	if err := h.check(equipment); err != nil {
		return model.CalibrationSession{}, err
	}
	if principal == nil {
		return model.CalibrationSession{}, fmt.Errorf("%w: no authenticated user", ErrValidation)
	}
	if len(measurements) == 0 {
		return model.CalibrationSession{}, fmt.Errorf("%w: at least one measurement is required", ErrValidation)
	}

	now := h.now()
	session := model.CalibrationSession{
		ID:           uuid.NewString(),
		EquipmentID:  equipment,
		CreatedAt:    &now,
		UserName:     principal.Label(),
		Measurements: append([]model.Measurement(nil), measurements...),
	}
	if err := h.store.AppendToArray(ctx, model.CollectionPackers, equipment, store.FieldCalibrations, store.EncodeCalibration(session)); err != nil {
		return model.CalibrationSession{}, wrapRemote(err)
	}

	if err := h.load(ctx, equipment); err != nil {
		h.log.Warn("Calibration saved but history reload failed", zap.String("equipment", equipment), zap.Error(err))
	}
	return session, nil
}

func (h *History) session(equipment string, index int) (model.CalibrationSession, error) {
	if err := h.check(equipment); err != nil {
		return model.CalibrationSession{}, err
	}
	blob, _ := h.blob()
	sessions := blob[equipment]
	if index < 0 || index >= len(sessions) {
		return model.CalibrationSession{}, fmt.Errorf("%w: session %d of %s", ErrNotFound, index, equipment)
	}
	return sessions[index], nil
}

// Detail returns the index-th listed session of equipment.
func (h *History) Detail(equipment string, index int) (SessionDetail, error) {
	s, err := h.session(equipment, index)
	if err != nil {
		return SessionDetail{}, err
	}
	d := SessionDetail{CalibrationSession: s, Records: s.Records(), Rows: make([]MeasurementRow, 0, len(s.Measurements))}
	for _, m := range s.Measurements {
		class := calibration.Classify(m.Error)
		d.Rows = append(d.Rows, MeasurementRow{Measurement: m, Class: class, Color: class.Color()})
	}
	return d, nil
}

// Sheet builds the printable calibration sheet of the index-th listed session.
func (h *History) Sheet(equipment string, index int) (calibration.Sheet, error) {
	s, err := h.session(equipment, index)
	if err != nil {
		return calibration.Sheet{}, err
	}
	return calibration.NewSheet(s, equipment), nil
}

// Close stops raising notices. Loads in flight still update the cache.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}
