package listings

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

func TestBuildVehicleJSONLDForDealerListing(t *testing.T) {
	battery := decimal.RequireFromString("77.4")
	expires := time.Date(2026, 12, 31, 8, 0, 0, 0, time.UTC)
	listing := &models.Listing{
		ID:              uuid.New(),
		Title:           "Kia EV6 GT-Line",
		Year:            2023,
		Make:            "Kia",
		Model:           "EV6",
		Price:           decimal.NewFromInt(52000),
		MileageKM:       12000,
		City:            "Calgary",
		Province:        enums.ProvinceAB,
		Drivetrain:      enums.DrivetrainAWD,
		BatteryCapacity: &battery,
		Status:          enums.ListingStatusApproved,
		ExpiresAt:       &expires,
		Dealer:          &models.DealerProfile{Name: "Prairie EV", Website: "https://prairie.example", City: "Calgary", Province: enums.ProvinceAB},
	}

	doc := BuildVehicleJSONLD(listing, "https://voltlot.test/listings/kia", []string{"a.jpg", "a.jpg", "", "b.jpg"})

	assert.Equal(t, "Vehicle", doc["@type"])
	assert.Equal(t, "Kia EV6 GT-Line", doc["name"])
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, doc["image"])
	assert.Equal(t, "https://schema.org/AllWheelDriveConfiguration", doc["driveWheelConfiguration"])
	assert.Equal(t, "77.4", doc["batteryCapacity"])

	offer, ok := doc["offers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "52000.00", offer["price"])
	assert.Equal(t, "CAD", offer["priceCurrency"])
	assert.Equal(t, "https://schema.org/InStock", offer["availability"])
	assert.Equal(t, "2026-12-31", offer["priceValidUntil"])

	seller, ok := doc["seller"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AutoDealer", seller["@type"])
	assert.Equal(t, "https://prairie.example", seller["url"])

	address, ok := doc["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alberta", address["addressRegion"])
	assert.Equal(t, "CA", address["addressCountry"])
}

func TestBuildVehicleJSONLDPrivateSellerFallbacks(t *testing.T) {
	listing := &models.Listing{
		ID:       uuid.New(),
		Year:     2019,
		Make:     "Nissan",
		Model:    "Leaf",
		City:     "Halifax",
		Province: enums.ProvinceNS,
		Status:   enums.ListingStatusPendingReview,
	}

	doc := BuildVehicleJSONLD(listing, "https://voltlot.test/listings/leaf", nil)

	assert.Equal(t, "2019 Nissan Leaf", doc["name"])
	assert.NotContains(t, doc, "image")
	assert.NotContains(t, doc, "offers", "no offer without a price")
	seller, ok := doc["seller"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Private Seller", seller["name"])
}
