package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"instrupro-backend/internal/cache"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/parse"
	"instrupro-backend/internal/store"
)

// Notifier receives PLC request events.
type Notifier interface {
	Dispatch(event model.PLCEvent)
}

// RequestInput is the editable part of a PLC request.
type RequestInput struct {
	RequestName string `json:"requestName"`
	SignalName  string `json:"signalName"`
	Details     string `json:"details"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// Query selects and orders the listed requests. An empty Status matches
// every status.
type Query struct {
	Status model.PLCStatus
	Search string
	Order  Order
}

// RequestList is the filtered request list with the screen state.
type RequestList struct {
	Phase      Phase              `json:"phase"`
	Items      []model.PLCRequest `json:"items"`
	Total      int                `json:"total"`
	LastSynced *time.Time         `json:"lastSynced,omitempty"`
	FromCache  bool               `json:"fromCache"`
	Notice     string             `json:"notice,omitempty"`
}

// RequestOptions configures a Requests controller.
type RequestOptions struct {
	Cache    *cache.LocalCache[[]model.PLCRequest]
	Notifier Notifier
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Requests is the PLC change request screen. Every write goes to the store
// and is followed by a full reload; the list is never patched locally.
type Requests struct {
	store    store.Store
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
	screen   *screen[[]model.PLCRequest]
}

// NewRequests creates a Requests controller. Without a cache in opts it uses
// an in-memory manual one.
func NewRequests(st store.Store, opts RequestOptions) *Requests {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[[]model.PLCRequest](cache.NewMemoryStore(0), cache.Options{Key: cache.KeyPLCRequest, Clock: opts.Clock})
	}
	r := &Requests{
		store:    st,
		notifier: opts.Notifier,
		now:      opts.Clock,
		log:      opts.Logger.With(zap.String("screen", "plc_requests")),
	}
	r.screen = newScreen("PLC modifications", opts.Cache, r.fetch, func() []model.PLCRequest {
		return []model.PLCRequest{}
	}, opts.Logger)
	return r
}

func (r *Requests) fetch(ctx context.Context) ([]model.PLCRequest, error) {
	docs, err := r.store.ListDocuments(ctx, model.CollectionPLCModifications)
	if err != nil {
		return nil, err
	}
	return store.DecodePLCRequests(docs), nil
}

// Mount shows the cached list when there is one and fetches otherwise.
func (r *Requests) Mount(ctx context.Context) error { return r.screen.mount(ctx) }

// Refresh reloads every request and replaces the cached list.
func (r *Requests) Refresh(ctx context.Context) error { return r.screen.refresh(ctx) }

// Close detaches the view; fetches still in flight only update the cache.
func (r *Requests) Close() { r.screen.close() }

// Observe reloads the list when another process rewrites it.
func (r *Requests) Observe(ctx context.Context, src ChangeSource) {
	observe(ctx, src, r.screen.cache.Key(), func(cache.Change) { r.screen.reload() })
}

// List filters and sorts the current list. A request matches when its
// status equals q.Status and, if q.Search is set, one of its name, signal,
// details or user fields contains the search text in any case.
func (r *Requests) List(q Query) RequestList {
	v := r.screen.view()

	items := make([]model.PLCRequest, 0, len(v.Data))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, req := range v.Data {
		if q.Status != "" && req.Status != q.Status {
			continue
		}
		if needle != "" && !matches(req, needle) {
			continue
		}
		items = append(items, req)
	}
	SortByBestTimestamp(items, PLCRequestTimestamp, q.Order)

	return RequestList{
		Phase:      v.Phase,
		Items:      items,
		Total:      len(v.Data),
		LastSynced: v.LastSynced,
		FromCache:  v.FromCache,
		Notice:     v.Notice,
	}
}

func matches(r model.PLCRequest, needle string) bool {
	for _, field := range []string{r.RequestName, r.SignalName, r.Details, r.UserName} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (r *Requests) validate(principal *model.Principal, in RequestInput) error {
	if strings.TrimSpace(in.RequestName) == "" {
		return fmt.Errorf("%w: request name is required", ErrValidation)
	}
	if strings.TrimSpace(in.SignalName) == "" {
		return fmt.Errorf("%w: signal name is required", ErrValidation)
	}
	if principal == nil {
		return fmt.Errorf("%w: no authenticated user", ErrValidation)
	}
	return nil
}

func (r *Requests) payload(in RequestInput, now time.Time) map[string]any {
	return map[string]any{
		"requestName": strings.TrimSpace(in.RequestName),
		"signalName":  strings.ToUpper(strings.TrimSpace(in.SignalName)),
		"details":     strings.TrimSpace(in.Details),
		"date":        parse.NormalizeDate(in.Date, now),
		"time":        parse.ParseTime(in.Time, now),
	}
}

// Create files a new active request and reloads the list.
func (r *Requests) Create(ctx context.Context, principal *model.Principal, in RequestInput) (string, error) {
	if err := r.validate(principal, in); err != nil {
		return "", err
	}
	now := r.now()
	data := r.payload(in, now)
	data["createdAt"] = now.UTC().Format(time.RFC3339Nano)
	data["uid"] = principal.UID
	data["userName"] = principal.Label()
	data["status"] = string(model.PLCStatusActive)

	id, err := r.store.AddDocument(ctx, model.CollectionPLCModifications, data)
	if err != nil {
		return "", wrapRemote(err)
	}
	r.notify(model.PLCEvent{
		Kind:        model.PLCEventCreated,
		RequestID:   id,
		RequestName: data["requestName"].(string),
		SignalName:  data["signalName"].(string),
		By:          principal.Label(),
	})
	r.reload(ctx)
	return id, nil
}

// Update edits the fields of a request. The status is left as it is.
func (r *Requests) Update(ctx context.Context, principal *model.Principal, id string, in RequestInput) error {
	if err := r.validate(principal, in); err != nil {
		return err
	}
	now := r.now()
	patch := r.payload(in, now)
	patch["updatedAt"] = now.UTC().Format(time.RFC3339Nano)
	patch["updatedBy"] = principal.UID

	if err := r.store.UpdateDocument(ctx, model.CollectionPLCModifications, id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: request %s", ErrNotFound, id)
		}
		return wrapRemote(err)
	}
	r.reload(ctx)
	return nil
}

// Cancel moves an active request to cancelled. A cancelled request cannot
// be cancelled again or reopened.
func (r *Requests) Cancel(ctx context.Context, principal *model.Principal, id string) error {
	if principal == nil {
		return fmt.Errorf("%w: no authenticated user", ErrValidation)
	}

	doc, err := r.store.GetDocument(ctx, model.CollectionPLCModifications, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if err != nil {
		return wrapRemote(err)
	}
	current := store.DecodePLCRequest(*doc)
	if current.Status == model.PLCStatusCancelled {
		return ErrAlreadyCancelled
	}

	by := principal.UID
	if by == "" {
		by = "anonymous"
	}
	if err := r.store.UpdateDocument(ctx, model.CollectionPLCModifications, id, map[string]any{
		"status":      string(model.PLCStatusCancelled),
		"cancelledAt": r.now().UTC().Format(time.RFC3339Nano),
		"cancelledBy": by,
	}); err != nil {
		return wrapRemote(err)
	}

	r.notify(model.PLCEvent{
		Kind:        model.PLCEventCancelled,
		RequestID:   id,
		RequestName: current.RequestName,
		SignalName:  current.SignalName,
		By:          principal.Label(),
	})
	r.reload(ctx)
	return nil
}

// reload runs the post-write refresh. Its failure leaves the write in place
// and surfaces as a notice.
func (r *Requests) reload(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("Write succeeded but reload failed", zap.Error(err))
	}
}

func (r *Requests) notify(e model.PLCEvent) {
	if r.notifier != nil {
		r.notifier.Dispatch(e)
	}
}
