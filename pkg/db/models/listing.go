package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// Listing is a vehicle offered for sale by a seller, optionally under a dealer.
type Listing struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SellerID uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	DealerID *uuid.UUID `gorm:"column:dealer_id;type:uuid"`
	SpecID   *uuid.UUID `gorm:"column:spec_id;type:uuid"`

	Title       string `gorm:"column:title;not null"`
	Slug        string `gorm:"column:slug;not null;uniqueIndex"`
	Description string `gorm:"column:description"`

	Year             int                `gorm:"column:year;not null"`
	Make             string             `gorm:"column:make;not null"`
	Model            string             `gorm:"column:model;not null"`
	Trim             string             `gorm:"column:trim"`
	Price            decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	MileageKM        int                `gorm:"column:mileage_km;not null"`
	ExteriorColor    string             `gorm:"column:exterior_color"`
	InteriorColor    string             `gorm:"column:interior_color"`
	Province         enums.Province     `gorm:"column:province;type:text;not null"`
	City             string             `gorm:"column:city;not null"`
	Drivetrain       enums.Drivetrain   `gorm:"column:drivetrain;type:text"`
	DCFastChargeType enums.ChargePort   `gorm:"column:dc_fast_charge_type;type:text"`
	RangeKM          *int               `gorm:"column:range_km"`
	BatteryCapacity  *decimal.Decimal   `gorm:"column:battery_capacity_kwh;type:numeric(6,2)"`
	WarrantyYears    *int               `gorm:"column:battery_warranty_years"`
	WarrantyKM       *int               `gorm:"column:battery_warranty_km"`
	HasHeatPump      bool               `gorm:"column:has_heat_pump;not null;default:false"`
	VIN              string             `gorm:"column:vin"`
	Tags             dbtypes.StringList `gorm:"column:tags;type:jsonb"`

	Status        enums.ListingStatus `gorm:"column:status;type:text;not null;index"`
	ApprovedAt    *time.Time          `gorm:"column:approved_at"`
	RejectedAt    *time.Time          `gorm:"column:rejected_at"`
	PublishedAt   *time.Time          `gorm:"column:published_at"`
	ExpiresAt     *time.Time          `gorm:"column:expires_at"`
	FeaturedUntil *time.Time          `gorm:"column:featured_until"`
	IsPromoted    bool                `gorm:"column:is_promoted;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Seller *User          `gorm:"foreignKey:SellerID"`
	Dealer *DealerProfile `gorm:"foreignKey:DealerID"`
	Spec   *ModelSpec     `gorm:"foreignKey:SpecID"`
	Photos []Photo        `gorm:"foreignKey:ListingID"`
}

// ListingTimestamps are the fields derived from a listing's status.
type ListingTimestamps struct {
	ApprovedAt  *time.Time
	PublishedAt *time.Time
	RejectedAt  *time.Time
	IsPromoted  bool
}

// DeriveListingTimestamps computes the status-derived fields from the previous
// values. It back-fills missing timestamps for approved and rejected listings
// and clears the ones that do not apply to the status; existing values are
// never overwritten, so re-saving without a status change is a no-op.
func DeriveListingTimestamps(status enums.ListingStatus, prev ListingTimestamps, now time.Time) ListingTimestamps {
	out := prev
	if status == enums.ListingStatusApproved {
		if out.PublishedAt == nil {
			out.PublishedAt = timePtr(now)
		}
		if out.ApprovedAt == nil {
			out.ApprovedAt = timePtr(now)
		}
	} else {
		out.ApprovedAt = nil
		out.PublishedAt = nil
		out.IsPromoted = false
	}

	if status == enums.ListingStatusRejected {
		if out.RejectedAt == nil {
			out.RejectedAt = timePtr(now)
		}
	} else {
		out.RejectedAt = nil
	}
	return out
}

// Timestamps returns the status-derived fields currently on the listing.
func (l *Listing) Timestamps() ListingTimestamps {
	return ListingTimestamps{
		ApprovedAt:  l.ApprovedAt,
		PublishedAt: l.PublishedAt,
		RejectedAt:  l.RejectedAt,
		IsPromoted:  l.IsPromoted,
	}
}

// ApplyTimestamps writes derived fields back onto the listing.
func (l *Listing) ApplyTimestamps(ts ListingTimestamps) {
	l.ApprovedAt = ts.ApprovedAt
	l.PublishedAt = ts.PublishedAt
	l.RejectedAt = ts.RejectedAt
	l.IsPromoted = ts.IsPromoted
}

func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = enums.ListingStatusDraft
	}
	return nil
}

// BeforeSave keeps derived timestamps consistent on every write.
func (l *Listing) BeforeSave(*gorm.DB) error {
	l.ApplyTimestamps(DeriveListingTimestamps(l.Status, l.Timestamps(), time.Now().UTC()))
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
