package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instrupro-backend/internal/model"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.PLCEvent
}

func (n *recordingNotifier) Dispatch(e model.PLCEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) all() []model.PLCEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.PLCEvent(nil), n.events...)
}

func newRequests(st *fakeStore, clock *fakeClock, n Notifier) *Requests {
	return NewRequests(st, RequestOptions{Notifier: n, Clock: clock.Now})
}

func TestRequests_ValidationMakesNoStoreCalls(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	r := newRequests(st, &fakeClock{t: time.Now()}, nil)

	testCases := []struct {
		name      string
		principal *model.Principal
		input     RequestInput
	}{
		{name: "Blank request name", principal: operator, input: RequestInput{RequestName: "  ", SignalName: "FT-101"}},
		{name: "Blank signal", principal: operator, input: RequestInput{RequestName: "Raise limit", SignalName: ""}},
		{name: "No user", principal: nil, input: RequestInput{RequestName: "Raise limit", SignalName: "FT-101"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Create(ctx, tc.principal, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, r.Update(ctx, tc.principal, "doc-1", tc.input), ErrValidation)
		})
	}
	assert.ErrorIs(t, r.Cancel(ctx, nil, "doc-1"), ErrValidation)

	for _, op := range []string{"get", "list", "add", "update"} {
		assert.Zero(t, st.count(op), op)
	}
}

func TestRequests_CreateNormalisesAndReloads(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 2, 3, 14, 5, 0, 0, time.Local)}
	st := newFakeStore()
	n := &recordingNotifier{}
	r := newRequests(st, clock, n)

	id, err := r.Create(ctx, operator, RequestInput{
		RequestName: "  Raise high limit ",
		SignalName:  "ft-101 ",
		Details:     "Kiln feed",
		Date:        "25/12/2024",
		Time:        "2:30 PM",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, st.count("list"), "list reloads after a write")

	list := r.List(Query{})
	require.Len(t, list.Items, 1)
	got := list.Items[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Raise high limit", got.RequestName)
	assert.Equal(t, "FT-101", got.SignalName)
	assert.Equal(t, "2024-12-25", got.Date)
	assert.Equal(t, "14:30", got.Time)
	assert.Equal(t, model.PLCStatusActive, got.Status)
	assert.Equal(t, "u-1", got.UID)
	assert.Equal(t, "Asha", got.UserName)
	require.NotNil(t, got.CreatedAt)

	events := n.all()
	require.Len(t, events, 1)
	assert.Equal(t, model.PLCEventCreated, events[0].Kind)
	assert.Equal(t, id, events[0].RequestID)
	assert.Equal(t, "FT-101", events[0].SignalName)
}

func TestRequests_CreateDefaultsDateAndTime(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 2, 3, 9, 7, 0, 0, time.Local)}
	r := newRequests(newFakeStore(), clock, nil)

	_, err := r.Create(context.Background(), operator, RequestInput{RequestName: "Bypass", SignalName: "ZS-4", Date: "whenever"})
	require.NoError(t, err)

	got := r.List(Query{}).Items[0]
	assert.Equal(t, "2025-02-03", got.Date)
	assert.Equal(t, "09:07", got.Time)
}

func TestRequests_UpdateKeepsStatus(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)}
	st := newFakeStore()
	r := newRequests(st, clock, nil)

	id, err := r.Create(ctx, operator, RequestInput{RequestName: "A", SignalName: "S1"})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	editor := &model.Principal{UID: "u-2", Email: "eng@plant.example"}
	require.NoError(t, r.Update(ctx, editor, id, RequestInput{RequestName: "A2", SignalName: "s2", Details: "more"}))

	got := r.List(Query{}).Items[0]
	assert.Equal(t, "A2", got.RequestName)
	assert.Equal(t, "S2", got.SignalName)
	assert.Equal(t, model.PLCStatusActive, got.Status)
	assert.Equal(t, "u-2", got.UpdatedBy)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, clock.Now().Equal(*got.UpdatedAt))

	err = r.Update(ctx, editor, "missing", RequestInput{RequestName: "A", SignalName: "S"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequests_CancelIsOneWay(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	n := &recordingNotifier{}
	r := newRequests(st, &fakeClock{t: time.Now()}, n)

	id, err := r.Create(ctx, operator, RequestInput{RequestName: "A", SignalName: "S1"})
	require.NoError(t, err)

	require.NoError(t, r.Cancel(ctx, &model.Principal{}, id))
	got := r.List(Query{}).Items[0]
	assert.Equal(t, model.PLCStatusCancelled, got.Status)
	assert.Equal(t, "anonymous", got.CancelledBy)
	assert.NotNil(t, got.CancelledAt)

	assert.ErrorIs(t, r.Cancel(ctx, operator, id), ErrAlreadyCancelled)
	assert.ErrorIs(t, r.Cancel(ctx, operator, "missing"), ErrNotFound)

	events := n.all()
	require.Len(t, events, 2)
	assert.Equal(t, model.PLCEventCancelled, events[1].Kind)
	assert.Equal(t, "Anonymous", events[1].By)
}

func TestRequests_ListFiltersAndSorts(t *testing.T) {
	st := newFakeStore()
	st.put(model.CollectionPLCModifications, "r1", map[string]any{
		"requestName": "Raise limit", "signalName": "FT-101", "status": "active", "date": "2025-01-10",
	})
	st.put(model.CollectionPLCModifications, "r2", map[string]any{
		"requestName": "Bypass", "signalName": "ZS-4", "status": "Cancelled", "date": "2025-01-12",
		"cancelledDate": "2025-01-13T08:00:00Z",
	})
	st.put(model.CollectionPLCModifications, "r3", map[string]any{
		"requestName": "Tune PID", "signalName": "TIC-7", "details": "ft-101 cascade", "status": "active", "date": "2025-01-11",
	})
	st.put(model.CollectionPLCModifications, "r4", map[string]any{
		"requestName": "Odd", "signalName": "X", "status": "pending",
	})
	r := newRequests(st, &fakeClock{t: time.Now()}, nil)
	require.NoError(t, r.Mount(context.Background()))

	all := r.List(Query{})
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, []string{"r2", "r3", "r1", "r4"}, ids(all.Items))

	active := r.List(Query{Status: model.PLCStatusActive, Order: Ascending})
	assert.Equal(t, []string{"r1", "r3"}, ids(active.Items))
	assert.Equal(t, 4, active.Total)

	search := r.List(Query{Search: " FT-101"})
	assert.Equal(t, []string{"r3", "r1"}, ids(search.Items))

	cancelled := r.List(Query{Status: model.PLCStatusCancelled})
	require.Len(t, cancelled.Items, 1)
	assert.NotNil(t, cancelled.Items[0].CancelledAt)

	unknown := r.List(Query{Status: model.PLCStatusUnknown})
	assert.Equal(t, []string{"r4"}, ids(unknown.Items))
}

func TestRequests_ReloadFailureAfterWrite(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	r := newRequests(st, &fakeClock{t: time.Now()}, nil)
	require.NoError(t, r.Mount(ctx))

	r.store = &listFailStore{fakeStore: st}
	id, err := r.Create(ctx, operator, RequestInput{RequestName: "A", SignalName: "S"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list := r.List(Query{})
	assert.Empty(t, list.Items, "the list is not patched locally")
	assert.NotEmpty(t, list.Notice)
}

type listFailStore struct {
	*fakeStore
}

func (l *listFailStore) ListDocuments(context.Context, string) ([]model.Document, error) {
	return nil, errors.New("list failed")
}
