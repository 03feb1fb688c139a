package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/models"
)

// BatchRepository persists standards and batches.
type BatchRepository interface {
	CreateStandard(ctx context.Context, standard *models.Standard) error
	ListStandards(ctx context.Context) ([]models.Standard, error)
	GetStandard(ctx context.Context, id uint) (models.Standard, error)
	CreateBatch(ctx context.Context, batch *models.Batch) error
	GetBatch(ctx context.Context, id uint) (models.Batch, error)
	ListBatches(ctx context.Context, ids []uint) ([]models.Batch, error)
}

type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository constructs the batch repository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) CreateStandard(ctx context.Context, standard *models.Standard) error {
	return r.db.WithContext(ctx).Create(standard).Error
}

func (r *batchRepository) ListStandards(ctx context.Context) ([]models.Standard, error) {
	var standards []models.Standard
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&standards).Error; err != nil {
		return nil, err
	}
	return standards, nil
}

func (r *batchRepository) GetStandard(ctx context.Context, id uint) (models.Standard, error) {
	var standard models.Standard
	if err := r.db.WithContext(ctx).First(&standard, id).Error; err != nil {
		return models.Standard{}, err
	}
	return standard, nil
}

func (r *batchRepository) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if err := r.db.WithContext(ctx).Omit("Standard").Create(batch).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Preload("Standard").First(batch, batch.ID).Error
}

func (r *batchRepository) GetBatch(ctx context.Context, id uint) (models.Batch, error) {
	var batch models.Batch
	if err := r.db.WithContext(ctx).Preload("Standard").First(&batch, id).Error; err != nil {
		return models.Batch{}, err
	}
	return batch, nil
}

// ListBatches returns the batches with the given IDs, or every batch when ids is nil.
func (r *batchRepository) ListBatches(ctx context.Context, ids []uint) ([]models.Batch, error) {
	query := r.db.WithContext(ctx).Preload("Standard")
	if ids != nil {
		if len(ids) == 0 {
			return []models.Batch{}, nil
		}
		query = query.Where("id IN ?", ids)
	}

	var batches []models.Batch
	if err := query.Order("name ASC").Order("id ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
