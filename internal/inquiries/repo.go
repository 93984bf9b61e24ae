package inquiries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	"github.com/voltlot/voltlot-backend/pkg/pagination"
)

// DeliveryUpdate is the outcome of one dispatch attempt as written back to
// the inquiry row.
type DeliveryUpdate struct {
	Status          enums.DeliveryStatus
	Reference       string
	Error           string
	LastAttemptedAt *time.Time
	DeliveredAt     *time.Time
}

// Repository persists inquiries and their audit events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, inquiry *models.Inquiry) error
	CreateEvent(ctx context.Context, event *models.InquiryEvent) error
	RecordDelivery(ctx context.Context, id uuid.UUID, update DeliveryUpdate) (bool, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Inquiry, error)
	FindForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Inquiry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InquiryStatus, respondedAt *time.Time) error
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Inquiry, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inquiries repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, inquiry *models.Inquiry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(inquiry).Error
}

func (r *repositoryImpl) CreateEvent(ctx context.Context, event *models.InquiryEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// RecordDelivery writes the dispatch outcome only while the row is still
// pending. It reports whether a row was updated.
func (r *repositoryImpl) RecordDelivery(ctx context.Context, id uuid.UUID, update DeliveryUpdate) (bool, error) {
	values := map[string]any{
		"delivery_status":    update.Status,
		"delivery_reference": update.Reference,
		"delivery_error":     update.Error,
	}
	if update.LastAttemptedAt != nil {
		values["last_attempted_at"] = *update.LastAttemptedAt
	}
	if update.DeliveredAt != nil {
		values["delivered_at"] = *update.DeliveredAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ? AND delivery_status = ?", id, enums.DeliveryStatusPending).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListForSeller pages through inquiries on the seller's listings, newest first.
func (r *repositoryImpl) ListForSeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Inquiry, error) {
	owned := r.db.Model(&models.Listing{}).Select("id").Where("seller_id = ?", sellerID)
	query := r.db.WithContext(ctx).
		Preload("Listing").
		Where("listing_id IN (?)", owned)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Inquiry
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) FindForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Inquiry, error) {
	owned := r.db.Model(&models.Listing{}).Select("id").Where("seller_id = ?", sellerID)
	var inquiry models.Inquiry
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		}).
		Where("id = ? AND listing_id IN (?)", id, owned).
		First(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.InquiryStatus, respondedAt *time.Time) error {
	values := map[string]any{"status": status}
	if respondedAt != nil {
		values["responded_at"] = *respondedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Inquiry{}).
		Where("id = ?", id).
		Updates(values).Error
}

// ListStalePending returns inquiries whose delivery outcome was never
// recorded, oldest first.
func (r *repositoryImpl) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Inquiry, error) {
	var rows []models.Inquiry
	err := r.db.WithContext(ctx).
		Where("delivery_status = ? AND created_at < ?", enums.DeliveryStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
