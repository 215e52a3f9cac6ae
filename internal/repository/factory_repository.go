package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"sponsor-backend/internal/models"
)

// ErrDuplicateFactory maps the postgres unique-violation class raised when
// the same factory address is inserted twice.
var ErrDuplicateFactory = errors.New("factory already registered")

// FactoryRepository defines the interface for FactoryEntry data access
type FactoryRepository interface {
	Create(ctx context.Context, entry *models.FactoryEntry) error
	Delete(ctx context.Context, factory string) error
	GetByFactory(ctx context.Context, factory string) (*models.FactoryEntry, error)
	List(ctx context.Context) ([]*models.FactoryEntry, error)
	UpdatePosition(ctx context.Context, factory string, position int) error
	Count(ctx context.Context) (int64, error)
}

type factoryRepository struct {
	db *gorm.DB
}

// NewFactoryRepository creates a new FactoryRepository instance
func NewFactoryRepository(db *gorm.DB) FactoryRepository {
	return &factoryRepository{db: db}
}

func (r *factoryRepository) Create(ctx context.Context, entry *models.FactoryEntry) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return ErrDuplicateFactory
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateFactory
	}
	return err
}

func (r *factoryRepository) Delete(ctx context.Context, factory string) error {
	return r.db.WithContext(ctx).
		Where("factory = ?", factory).
		Delete(&models.FactoryEntry{}).Error
}

// GetByFactory returns nil, nil when the factory is not registered.
func (r *factoryRepository) GetByFactory(ctx context.Context, factory string) (*models.FactoryEntry, error) {
	var entry models.FactoryEntry
	err := r.db.WithContext(ctx).
		Where("factory = ?", factory).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *factoryRepository) List(ctx context.Context) ([]*models.FactoryEntry, error) {
	var entries []*models.FactoryEntry
	err := r.db.WithContext(ctx).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *factoryRepository) UpdatePosition(ctx context.Context, factory string, position int) error {
	return r.db.WithContext(ctx).
		Model(&models.FactoryEntry{}).
		Where("factory = ?", factory).
		Update("position", position).Error
}

func (r *factoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FactoryEntry{}).
		Count(&count).Error
	return count, err
}
