package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
)

// Repository reads and stamps the seller's inquiry notification state.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountUnread(ctx context.Context, sellerID uuid.UUID) (int64, error)
	UnreadIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error)
	Latest(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Inquiry, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error)
	CreateEvents(ctx context.Context, events []models.InquiryEvent) error
}

const eventBatchSize = 100

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inbox repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ownedBy(sellerID uuid.UUID) *gorm.DB {
	return r.db.Model(&models.Listing{}).Select("id").Where("seller_id = ?", sellerID)
}

func (r *repositoryImpl) CountUnread(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("listing_id IN (?) AND seller_notified_at IS NULL", r.ownedBy(sellerID)).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) UnreadIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("listing_id IN (?) AND seller_notified_at IS NULL", r.ownedBy(sellerID)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repositoryImpl) Latest(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Where("listing_id IN (?)", r.ownedBy(sellerID)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkNotified stamps seller_notified_at on every id in one statement,
// skipping rows another request already stamped. It returns the ids it
// changed.
func (r *repositoryImpl) MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("id IN ? AND seller_notified_at IS NULL", ids).
		Update("seller_notified_at", at).Error
	if err != nil {
		return nil, err
	}
	stamped := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		stamped = append(stamped, row.ID)
	}
	return stamped, nil
}

func (r *repositoryImpl) CreateEvents(ctx context.Context, events []models.InquiryEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&events, eventBatchSize).Error
}
