package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// Inquiry is a buyer message about a listing.
type Inquiry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	Email       string    `gorm:"column:email;not null"`
	PhoneNumber string    `gorm:"column:phone_number"`
	Message     string    `gorm:"column:message;not null"`

	Status            enums.InquiryStatus  `gorm:"column:status;type:text;not null"`
	DeliveryStatus    enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;index"`
	DeliveryReference string               `gorm:"column:delivery_reference"`
	DeliveryError     string               `gorm:"column:delivery_error"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at"`
	LastAttemptedAt   *time.Time           `gorm:"column:last_attempted_at"`
	SellerNotifiedAt  *time.Time           `gorm:"column:seller_notified_at"`
	RespondedAt       *time.Time           `gorm:"column:responded_at"`
	InternalNotes     string               `gorm:"column:internal_notes"`
	Metadata          dbtypes.JSONMap      `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Listing *Listing       `gorm:"foreignKey:ListingID"`
	Events  []InquiryEvent `gorm:"foreignKey:InquiryID"`
}

func (i *Inquiry) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = enums.InquiryStatusNew
	}
	if i.DeliveryStatus == "" {
		i.DeliveryStatus = enums.DeliveryStatusPending
	}
	return nil
}

// InquiryEvent is an append-only audit entry for an inquiry.
type InquiryEvent struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	InquiryID uuid.UUID              `gorm:"column:inquiry_id;type:uuid;not null;index"`
	EventType enums.InquiryEventType `gorm:"column:event_type;type:text;not null"`
	Message   string                 `gorm:"column:message"`
	Metadata  dbtypes.JSONMap        `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (e *InquiryEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
