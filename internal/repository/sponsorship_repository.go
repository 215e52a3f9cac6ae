package repository

import (
	"context"
	"errors"

	"sponsor-backend/internal/models"

	"gorm.io/gorm"
)

// SponsorshipRepository defines the interface for SponsorshipRecord data access
type SponsorshipRepository interface {
	Create(ctx context.Context, record *models.SponsorshipRecord) error
	Update(ctx context.Context, record *models.SponsorshipRecord) error
	GetByOperationHash(ctx context.Context, opHash string) (*models.SponsorshipRecord, error)
	FindByRecipient(ctx context.Context, recipient string, page, pageSize int) ([]*models.SponsorshipRecord, int64, error)
	FindRecent(ctx context.Context, limit int) ([]*models.SponsorshipRecord, error)
	Count(ctx context.Context) (int64, error)
	CountReverted(ctx context.Context) (int64, error)
}

type sponsorshipRepository struct {
	db *gorm.DB
}

// NewSponsorshipRepository creates a new SponsorshipRepository instance
func NewSponsorshipRepository(db *gorm.DB) SponsorshipRepository {
	return &sponsorshipRepository{db: db}
}

func (r *sponsorshipRepository) Create(ctx context.Context, record *models.SponsorshipRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *sponsorshipRepository) Update(ctx context.Context, record *models.SponsorshipRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// GetByOperationHash returns nil, nil when no record exists for the hash.
func (r *sponsorshipRepository) GetByOperationHash(ctx context.Context, opHash string) (*models.SponsorshipRecord, error) {
	var record models.SponsorshipRecord
	err := r.db.WithContext(ctx).
		Where("operation_hash = ?", opHash).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *sponsorshipRepository) FindByRecipient(ctx context.Context, recipient string, page, pageSize int) ([]*models.SponsorshipRecord, int64, error) {
	var records []*models.SponsorshipRecord
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.SponsorshipRecord{}).
		Where("recipient = ?", recipient)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *sponsorshipRepository) FindRecent(ctx context.Context, limit int) ([]*models.SponsorshipRecord, error) {
	var records []*models.SponsorshipRecord
	if limit < 1 || limit > 200 {
		limit = 50
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sponsorshipRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SponsorshipRecord{}).
		Count(&count).Error
	return count, err
}

func (r *sponsorshipRepository) CountReverted(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SponsorshipRecord{}).
		Where("operation_reverted = ?", true).
		Count(&count).Error
	return count, err
}
