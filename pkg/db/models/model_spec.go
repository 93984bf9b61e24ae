package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// ModelSpec is reference data for a make/model/trim/year combination.
type ModelSpec struct {
	ID                       uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Make                     string           `gorm:"column:make;not null"`
	Model                    string           `gorm:"column:model;not null"`
	Trim                     string           `gorm:"column:trim"`
	Year                     int              `gorm:"column:year;not null"`
	BatteryCapacityKWh       *decimal.Decimal `gorm:"column:battery_capacity_kwh;type:numeric(6,2)"`
	UsableBatteryCapacityKWh *decimal.Decimal `gorm:"column:usable_battery_capacity_kwh;type:numeric(6,2)"`
	RangeKM                  *int             `gorm:"column:range_km"`
	Drivetrain               enums.Drivetrain `gorm:"column:drivetrain;type:text"`
	DCFastChargeType         enums.ChargePort `gorm:"column:dc_fast_charge_type;type:text"`
	HeatPumpStandard         bool             `gorm:"column:heat_pump_standard;not null;default:false"`
	OnboardChargerKW         *decimal.Decimal `gorm:"column:onboard_charger_kw;type:numeric(5,2)"`
	SeatingCapacity          *int             `gorm:"column:seating_capacity"`
	Slug                     string           `gorm:"column:slug;not null;uniqueIndex"`
	Notes                    string           `gorm:"column:notes"`
	CreatedAt                time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *ModelSpec) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
