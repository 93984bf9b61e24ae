package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// User represents a marketplace account. Sellers receive inquiry email at Email.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName  string         `gorm:"column:full_name;not null"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`

	DealerProfile *DealerProfile `gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.UserRoleBuyer
	}
	return nil
}

// DealerProfile is the public storefront of a dealer account.
type DealerProfile struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name        string         `gorm:"column:name;not null"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex"`
	Summary     string         `gorm:"column:summary"`
	Description string         `gorm:"column:description"`
	PhoneNumber string         `gorm:"column:phone_number"`
	Email       string         `gorm:"column:email"`
	Website     string         `gorm:"column:website"`
	City        string         `gorm:"column:city"`
	Province    enums.Province `gorm:"column:province;type:text"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DealerProfile) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
