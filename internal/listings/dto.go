package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// URLBuilder resolves storage keys to public URLs.
type URLBuilder interface {
	PublicURL(key string) string
}

// ListingDTO is the API view of a listing.
type ListingDTO struct {
	ID                   uuid.UUID           `json:"id"`
	SellerID             uuid.UUID           `json:"seller_id"`
	DealerID             *uuid.UUID          `json:"dealer_id,omitempty"`
	SpecID               *uuid.UUID          `json:"spec_id,omitempty"`
	Title                string              `json:"title"`
	Slug                 string              `json:"slug"`
	Description          string              `json:"description,omitempty"`
	Year                 int                 `json:"year"`
	Make                 string              `json:"make"`
	Model                string              `json:"model"`
	Trim                 string              `json:"trim,omitempty"`
	Price                decimal.Decimal     `json:"price"`
	MileageKM            int                 `json:"mileage_km"`
	ExteriorColor        string              `json:"exterior_color,omitempty"`
	InteriorColor        string              `json:"interior_color,omitempty"`
	Province             enums.Province      `json:"province"`
	ProvinceName         string              `json:"province_name"`
	City                 string              `json:"city"`
	Drivetrain           enums.Drivetrain    `json:"drivetrain,omitempty"`
	DCFastChargeType     enums.ChargePort    `json:"dc_fast_charge_type,omitempty"`
	RangeKM              *int                `json:"range_km,omitempty"`
	BatteryCapacityKWh   *decimal.Decimal    `json:"battery_capacity_kwh,omitempty"`
	BatteryWarrantyYears *int                `json:"battery_warranty_years,omitempty"`
	BatteryWarrantyKM    *int                `json:"battery_warranty_km,omitempty"`
	HasHeatPump          bool                `json:"has_heat_pump"`
	VIN                  string              `json:"vin,omitempty"`
	Tags                 []string            `json:"tags"`
	Status               enums.ListingStatus `json:"status"`
	ApprovedAt           *time.Time          `json:"approved_at,omitempty"`
	RejectedAt           *time.Time          `json:"rejected_at,omitempty"`
	PublishedAt          *time.Time          `json:"published_at,omitempty"`
	ExpiresAt            *time.Time          `json:"expires_at,omitempty"`
	FeaturedUntil        *time.Time          `json:"featured_until,omitempty"`
	IsPromoted           bool                `json:"is_promoted"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// PhotoDTO is the API view of a listing photo.
type PhotoDTO struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	DisplayURL   string    `json:"display_url"`
	Caption      string    `json:"caption,omitempty"`
	AltText      string    `json:"alt_text,omitempty"`
	SortOrder    int       `json:"sort_order"`
	IsPrimary    bool      `json:"is_primary"`
}

// PublicListing is the public detail payload.
type PublicListing struct {
	Listing ListingDTO     `json:"listing"`
	Dealer  *DealerDTO     `json:"dealer,omitempty"`
	Photos  []PhotoDTO     `json:"photos"`
	JSONLD  map[string]any `json:"json_ld"`
}

// DealerDTO is the public dealer summary shown on a listing.
type DealerDTO struct {
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Website  string         `json:"website,omitempty"`
	City     string         `json:"city,omitempty"`
	Province enums.Province `json:"province,omitempty"`
}

func toListingDTO(l *models.Listing) ListingDTO {
	tags := []string(l.Tags)
	if tags == nil {
		tags = []string{}
	}
	return ListingDTO{
		ID:                   l.ID,
		SellerID:             l.SellerID,
		DealerID:             l.DealerID,
		SpecID:               l.SpecID,
		Title:                l.Title,
		Slug:                 l.Slug,
		Description:          l.Description,
		Year:                 l.Year,
		Make:                 l.Make,
		Model:                l.Model,
		Trim:                 l.Trim,
		Price:                l.Price,
		MileageKM:            l.MileageKM,
		ExteriorColor:        l.ExteriorColor,
		InteriorColor:        l.InteriorColor,
		Province:             l.Province,
		ProvinceName:         l.Province.Name(),
		City:                 l.City,
		Drivetrain:           l.Drivetrain,
		DCFastChargeType:     l.DCFastChargeType,
		RangeKM:              l.RangeKM,
		BatteryCapacityKWh:   l.BatteryCapacity,
		BatteryWarrantyYears: l.WarrantyYears,
		BatteryWarrantyKM:    l.WarrantyKM,
		HasHeatPump:          l.HasHeatPump,
		VIN:                  l.VIN,
		Tags:                 tags,
		Status:               l.Status,
		ApprovedAt:           l.ApprovedAt,
		RejectedAt:           l.RejectedAt,
		PublishedAt:          l.PublishedAt,
		ExpiresAt:            l.ExpiresAt,
		FeaturedUntil:        l.FeaturedUntil,
		IsPromoted:           l.IsPromoted,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

// ToListingDTOs converts rows for list responses.
func ToListingDTOs(rows []models.Listing) []ListingDTO {
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toListingDTO(&rows[i]))
	}
	return out
}

func toPhotoDTO(p *models.Photo, urls URLBuilder) PhotoDTO {
	original := urls.PublicURL(p.ImageKey)
	return PhotoDTO{
		ID:           p.ID,
		URL:          original,
		ThumbnailURL: derivativeURL(p, "thumbnail", urls, original),
		DisplayURL:   derivativeURL(p, "display", urls, original),
		Caption:      p.Caption,
		AltText:      p.AltText,
		SortOrder:    p.SortOrder,
		IsPrimary:    p.IsPrimary,
	}
}

// derivativeURL prefers the stored url, then the stored object name, then
// the original image.
func derivativeURL(p *models.Photo, key string, urls URLBuilder, fallback string) string {
	info, ok := p.Derivatives[key].(map[string]any)
	if !ok {
		return fallback
	}
	if url, ok := info["url"].(string); ok && url != "" {
		return url
	}
	if name, ok := info["name"].(string); ok && name != "" {
		return urls.PublicURL(name)
	}
	return fallback
}
