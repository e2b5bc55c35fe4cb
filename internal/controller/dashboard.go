package controller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"instrupro-backend/internal/cache"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/parse"
	"instrupro-backend/internal/store"
)

// EquipmentStatus is the cached calibration summary of one packer.
type EquipmentStatus struct {
	Name          string     `json:"name"`
	Count         int        `json:"count"`
	LastCreatedAt *time.Time `json:"lastCreatedAt"`
}

// DashboardRow is an EquipmentStatus with labels computed at view time.
type DashboardRow struct {
	EquipmentStatus
	LastUpdated string `json:"lastUpdated"`
	DaysSince   string `json:"daysSince"`
	Freshness   string `json:"freshness"`
}

// DashboardView is what the dashboard screen renders.
type DashboardView struct {
	Phase             Phase          `json:"phase"`
	Rows              []DashboardRow `json:"rows"`
	TotalCalibrations int            `json:"totalCalibrations"`
	LastSynced        *time.Time     `json:"lastSynced,omitempty"`
	FromCache         bool           `json:"fromCache"`
	Notice            string         `json:"notice,omitempty"`
}

// DashboardOptions configures a Dashboard.
type DashboardOptions struct {
	Equipment []string
	Cache     *cache.LocalCache[[]EquipmentStatus]
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Dashboard summarises the calibration state of every configured packer.
type Dashboard struct {
	store     store.Store
	equipment []string
	now       func() time.Time
	screen    *screen[[]EquipmentStatus]
}

// NewDashboard creates a Dashboard. Without a cache in opts it uses an
// in-memory one with the default TTL.
func NewDashboard(st store.Store, opts DashboardOptions) *Dashboard {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[[]EquipmentStatus](cache.NewMemoryStore(0), cache.Options{
			Key:   cache.KeyDashboard,
			TTL:   cache.DefaultDashboardTTL,
			Clock: opts.Clock,
		})
	}
	d := &Dashboard{
		store:     st,
		equipment: append([]string(nil), opts.Equipment...),
		now:       opts.Clock,
	}
	d.screen = newScreen("dashboard", opts.Cache, d.fetch, func() []EquipmentStatus {
		return []EquipmentStatus{}
	}, opts.Logger)
	return d
}

// Equipment returns the configured packer names.
func (d *Dashboard) Equipment() []string {
	return append([]string(nil), d.equipment...)
}

func (d *Dashboard) fetch(ctx context.Context) ([]EquipmentStatus, error) {
	out := make([]EquipmentStatus, len(d.equipment))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range d.equipment {
		g.Go(func() error {
			doc, err := d.store.GetDocument(ctx, model.CollectionPackers, name)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			sessions := store.DecodeCalibrations(doc, name)
			status := EquipmentStatus{Name: name, Count: len(sessions)}
			if n := len(sessions); n > 0 {
				status.LastCreatedAt = sessions[n-1].CreatedAt
			}
			out[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Mount shows the cached summary while it is fresh and fetches otherwise.
func (d *Dashboard) Mount(ctx context.Context) error { return d.screen.mount(ctx) }

// Refresh fetches every packer and replaces the cached summary.
func (d *Dashboard) Refresh(ctx context.Context) error { return d.screen.refresh(ctx) }

// Close detaches the view; fetches still in flight only update the cache.
func (d *Dashboard) Close() { d.screen.close() }

// Observe reloads the view when another process rewrites the summary.
func (d *Dashboard) Observe(ctx context.Context, src ChangeSource) {
	observe(ctx, src, d.screen.cache.Key(), func(cache.Change) { d.screen.reload() })
}

// View returns the dashboard with day labels relative to now.
func (d *Dashboard) View() DashboardView {
	v := d.screen.view()
	now := d.now()

	out := DashboardView{
		Phase:      v.Phase,
		Rows:       make([]DashboardRow, 0, len(v.Data)),
		LastSynced: v.LastSynced,
		FromCache:  v.FromCache,
		Notice:     v.Notice,
	}
	for _, s := range v.Data {
		days := parse.DaysSince(s.LastCreatedAt, now)
		out.Rows = append(out.Rows, DashboardRow{
			EquipmentStatus: s,
			LastUpdated:     lastUpdatedLabel(s.LastCreatedAt),
			DaysSince:       days,
			Freshness:       parse.Freshness(days),
		})
		out.TotalCalibrations += s.Count
	}
	return out
}

func lastUpdatedLabel(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return "No data"
	}
	return ts.In(time.Local).Format("2006-01-02 15:04")
}
