package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"instrupro-backend/internal/model"
	"instrupro-backend/internal/store"
)

// fakeStore is an in-memory store.Store that counts calls and can be told
// to fail.
type fakeStore struct {
	mu     sync.Mutex
	docs   map[string]map[string]datatypes.JSONMap
	calls  map[string]int
	fail   error
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]map[string]datatypes.JSONMap),
		calls: make(map[string]int),
	}
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeStore) enter(op string) error {
	f.calls[op]++
	return f.fail
}

func roundTrip(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func (f *fakeStore) GetDocument(_ context.Context, collection, id string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("get"); err != nil {
		return nil, err
	}
	data, ok := f.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	return &model.Document{Collection: collection, ID: id, Data: datatypes.JSONMap(roundTrip(data))}, nil
}

func (f *fakeStore) ListDocuments(_ context.Context, collection string) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(f.docs[collection]))
	for id := range f.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Document{Collection: collection, ID: id, Data: datatypes.JSONMap(roundTrip(f.docs[collection][id]))})
	}
	return out, nil
}

func (f *fakeStore) put(collection, id string, data map[string]any) {
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]datatypes.JSONMap)
	}
	f.docs[collection][id] = datatypes.JSONMap(roundTrip(data))
}

func (f *fakeStore) AddDocument(_ context.Context, collection string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("add"); err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.put(collection, id, data)
	return id, nil
}

func (f *fakeStore) UpdateDocument(_ context.Context, collection, id string, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("update"); err != nil {
		return err
	}
	data, ok := f.docs[collection][id]
	if !ok {
		return fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	for k, v := range roundTrip(patch) {
		data[k] = v
	}
	return nil
}

func (f *fakeStore) AppendToArray(_ context.Context, collection, id, field string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("append"); err != nil {
		return err
	}
	data, ok := f.docs[collection][id]
	if !ok {
		f.put(collection, id, map[string]any{})
		data = f.docs[collection][id]
	}
	arr, _ := data[field].([]any)
	data[field] = append(arr, roundTrip(map[string]any{"v": value})["v"])
	return nil
}

func (f *fakeStore) PutSubscription(context.Context, model.PushSubscription) error { return nil }

func (f *fakeStore) GetSubscription(context.Context, string) (*model.PushSubscription, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteSubscription(context.Context, string) error { return nil }

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var _ store.Store = (*fakeStore)(nil)
