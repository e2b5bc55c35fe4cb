package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"instrupro-backend/internal/model"
)

// Store is the remote record store: untyped documents grouped in collections.
// Writes are last-write-wins.
type Store interface {
	GetDocument(ctx context.Context, collection, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, collection string) ([]model.Document, error)
	AddDocument(ctx context.Context, collection string, data map[string]any) (string, error)
	UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error
	// AppendToArray appends value to the array field of a document, creating
	// the document when it does not exist yet.
	AppendToArray(ctx context.Context, collection, id, field string, value any) error

	SubscriptionStore
}

// SubscriptionStore manages browser push subscriptions.
type SubscriptionStore interface {
	PutSubscription(ctx context.Context, sub model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: time.Now}
}

func (s *gormStore) GetDocument(ctx context.Context, collection, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

func (s *gormStore) ListDocuments(ctx context.Context, collection string) ([]model.Document, error) {
	var docs []model.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	return docs, nil
}

func (s *gormStore) AddDocument(ctx context.Context, collection string, data map[string]any) (string, error) {
	body, err := normalize(data)
	if err != nil {
		return "", err
	}
	now := s.now()
	doc := model.Document{
		Collection: collection,
		ID:         uuid.NewString(),
		Data:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return doc.ID, nil
}

func (s *gormStore) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	fields, err := normalize(patch)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		err := tx.Where("collection = ? AND id = ?", collection, id).Take(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("document %s/%s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load document %s/%s: %w", collection, id, err)
		}

		if doc.Data == nil {
			doc.Data = datatypes.JSONMap{}
		}
		for k, v := range fields {
			doc.Data[k] = v
		}
		return s.save(tx, doc)
	})
}

func (s *gormStore) AppendToArray(ctx context.Context, collection, id, field string, value any) error {
	item, err := toJSONValue(value)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		err := tx.Where("collection = ? AND id = ?", collection, id).Take(&doc).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			now := s.now()
			doc = model.Document{
				Collection: collection,
				ID:         id,
				Data:       datatypes.JSONMap{field: []any{item}},
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&doc).Error; err != nil {
				return fmt.Errorf("failed to create document %s/%s: %w", collection, id, err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to load document %s/%s: %w", collection, id, err)
		}

		if doc.Data == nil {
			doc.Data = datatypes.JSONMap{}
		}
		arr, _ := doc.Data[field].([]any)
		doc.Data[field] = append(arr, item)
		return s.save(tx, doc)
	})
}

func (s *gormStore) save(tx *gorm.DB, doc model.Document) error {
	res := tx.Model(&model.Document{}).
		Where("collection = ? AND id = ?", doc.Collection, doc.ID).
		Updates(map[string]any{"data": doc.Data, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("failed to save document %s/%s: %w", doc.Collection, doc.ID, res.Error)
	}
	return nil
}

func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "uid"}),
	}).Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subscription: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// normalize round-trips a document body through JSON so stored values have
// the same shapes as values read back (maps, []any, float64).
func normalize(data map[string]any) (datatypes.JSONMap, error) {
	if data == nil {
		return datatypes.JSONMap{}, nil
	}
	v, err := toJSONValue(data)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]any)
	return datatypes.JSONMap(m), nil
}

func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode document value: %w", err)
	}
	return out, nil
}
