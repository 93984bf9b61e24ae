// Package dbtest opens throwaway sqlite databases migrated with the domain models.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

var seq atomic.Int64

// Open returns an isolated in-memory database with every model migrated.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.User{},
		&models.DealerProfile{},
		&models.ModelSpec{},
		&models.Listing{},
		&models.Photo{},
		&models.Inquiry{},
		&models.InquiryEvent{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Seller inserts an active seller account.
func Seller(t testing.TB, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FullName: "Test Seller", Role: enums.UserRoleSeller, IsActive: true}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return user
}

// Listing inserts a minimal listing owned by sellerID.
func Listing(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, slug string, status enums.ListingStatus) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		SellerID:  sellerID,
		Title:     "2021 Kia Niro EV",
		Slug:      slug,
		Year:      2021,
		Make:      "Kia",
		Model:     "Niro EV",
		Price:     decimal.NewFromInt(29900),
		MileageKM: 48000,
		Province:  enums.ProvinceQC,
		City:      "Montréal",
		Status:    status,
	}
	if err := conn.Create(listing).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}
