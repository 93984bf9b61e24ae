package photos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
)

// Repository persists listing photos.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListingForSeller(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error)
	CountForListing(ctx context.Context, listingID uuid.UUID) (int64, error)
	FindByKey(ctx context.Context, listingID uuid.UUID, key string) (*models.Photo, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	Create(ctx context.Context, photo *models.Photo) error
	SaveProcessed(ctx context.Context, id uuid.UUID, width, height int, derivatives dbtypes.JSONMap, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a photos repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListingForSeller(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", listingID, sellerID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repositoryImpl) CountForListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Photo{}).Where("listing_id = ?", listingID).Count(&count).Error
	return count, err
}

// FindByKey returns nil, nil when no photo uses key.
func (r *repositoryImpl) FindByKey(ctx context.Context, listingID uuid.UUID, key string) (*models.Photo, error) {
	var photo models.Photo
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND image_key = ?", listingID, key).
		First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *repositoryImpl) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

func (r *repositoryImpl) SaveProcessed(ctx context.Context, id uuid.UUID, width, height int, derivatives dbtypes.JSONMap, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"original_width":  width,
			"original_height": height,
			"derivatives":     derivatives,
			"processed_at":    at,
		}).Error
}
