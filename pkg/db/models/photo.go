package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
)

// Photo is an uploaded listing image and its generated derivatives.
type Photo struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ListingID      uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:photos_listing_image_key"`
	ImageKey       string          `gorm:"column:image_key;not null;uniqueIndex:photos_listing_image_key"`
	Caption        string          `gorm:"column:caption"`
	AltText        string          `gorm:"column:alt_text"`
	SortOrder      int             `gorm:"column:sort_order;not null;default:0"`
	IsPrimary      bool            `gorm:"column:is_primary;not null;default:false"`
	OriginalWidth  *int            `gorm:"column:original_width"`
	OriginalHeight *int            `gorm:"column:original_height"`
	ProcessedAt    *time.Time      `gorm:"column:processed_at"`
	Derivatives    dbtypes.JSONMap `gorm:"column:derivatives;type:jsonb"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Photo) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
