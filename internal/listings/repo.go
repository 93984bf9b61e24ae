package listings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// Repository exposes persistence helpers for listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	Save(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Listing, error)
	FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Listing, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, status *enums.ListingStatus) ([]models.Listing, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	DealerProfileForUser(ctx context.Context, userID uuid.UUID) (*models.DealerProfile, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a listings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
}

// Save writes every column in one statement; BeforeSave derives timestamps.
func (r *repositoryImpl) Save(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(listing).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repositoryImpl) FindForSeller(ctx context.Context, sellerID, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", id, sellerID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindActiveBySlug applies the same visibility predicate as IsActive.
func (r *repositoryImpl) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Dealer").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC").Order("created_at ASC")
		}).
		Where("slug = ?", slug).
		Where("status = ?", enums.ListingStatusApproved).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repositoryImpl) ListForSeller(ctx context.Context, sellerID uuid.UUID, status *enums.ListingStatus) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.Listing
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) DealerProfileForUser(ctx context.Context, userID uuid.UUID) (*models.DealerProfile, error) {
	var profile models.DealerProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
