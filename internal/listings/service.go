package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/db"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	dbtypes "github.com/voltlot/voltlot-backend/pkg/db/types"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/validate"
)

const maxSlugAttempts = 50

// Service defines seller, moderation and public listing operations.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*ListingDTO, error)
	Update(ctx context.Context, sellerID, listingID uuid.UUID, input CreateInput) (*ListingDTO, error)
	Submit(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error)
	Archive(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, status string) ([]ListingDTO, error)
	Moderate(ctx context.Context, listingID uuid.UUID, status string) (*ListingDTO, error)
	Transition(ctx context.Context, listing *models.Listing, status enums.ListingStatus, now time.Time) error
	GetPublic(ctx context.Context, slug string) (*PublicListing, error)
}

// CreateInput carries the seller supplied fields for a new listing.
type CreateInput struct {
	Title                string           `json:"title" validate:"required,max=255"`
	Description          string           `json:"description" validate:"max=10000"`
	Year                 int              `json:"year" validate:"required,gte=1990,lte=2100"`
	Make                 string           `json:"make" validate:"required,max=64"`
	Model                string           `json:"model" validate:"required,max=64"`
	Trim                 string           `json:"trim" validate:"max=64"`
	Price                decimal.Decimal  `json:"price"`
	MileageKM            int              `json:"mileage_km" validate:"gte=0"`
	ExteriorColor        string           `json:"exterior_color" validate:"max=64"`
	InteriorColor        string           `json:"interior_color" validate:"max=64"`
	Province             enums.Province   `json:"province" validate:"required"`
	City                 string           `json:"city" validate:"required,max=128"`
	Drivetrain           enums.Drivetrain `json:"drivetrain"`
	DCFastChargeType     enums.ChargePort `json:"dc_fast_charge_type"`
	RangeKM              *int             `json:"range_km" validate:"omitempty,gt=0"`
	BatteryCapacityKWh   *decimal.Decimal `json:"battery_capacity_kwh"`
	BatteryWarrantyYears *int             `json:"battery_warranty_years" validate:"omitempty,gte=0"`
	BatteryWarrantyKM    *int             `json:"battery_warranty_km" validate:"omitempty,gte=0"`
	HasHeatPump          bool             `json:"has_heat_pump"`
	VIN                  string           `json:"vin" validate:"max=17"`
	Tags                 []string         `json:"tags" validate:"max=20,dive,max=32"`
	SpecID               *uuid.UUID       `json:"spec_id"`
}

func (in CreateInput) check() error {
	if err := validate.Struct(&in); err != nil {
		return err
	}
	if !in.Province.IsValid() {
		return validate.FieldError("province", "must be a Canadian province or territory code")
	}
	if !in.Drivetrain.IsValid() {
		return validate.FieldError("drivetrain", "must be one of FWD RWD AWD")
	}
	if !in.DCFastChargeType.IsValid() {
		return validate.FieldError("dc_fast_charge_type", "must be one of CCS NACS CHAdeMO TESLA UNKNOWN")
	}
	if !in.Price.IsPositive() {
		return validate.FieldError("price", "must be greater than 0")
	}
	if in.BatteryCapacityKWh != nil && in.BatteryCapacityKWh.IsNegative() {
		return validate.FieldError("battery_capacity_kwh", "must not be negative")
	}
	return nil
}

func (in *CreateInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	return in.check()
}

// applyTo copies the editable fields onto listing.
func (in CreateInput) applyTo(listing *models.Listing) {
	listing.SpecID = in.SpecID
	listing.Title = in.Title
	listing.Description = strings.TrimSpace(in.Description)
	listing.Year = in.Year
	listing.Make = strings.TrimSpace(in.Make)
	listing.Model = strings.TrimSpace(in.Model)
	listing.Trim = strings.TrimSpace(in.Trim)
	listing.Price = in.Price.Round(2)
	listing.MileageKM = in.MileageKM
	listing.ExteriorColor = in.ExteriorColor
	listing.InteriorColor = in.InteriorColor
	listing.Province = in.Province
	listing.City = in.City
	listing.Drivetrain = in.Drivetrain
	listing.DCFastChargeType = in.DCFastChargeType
	listing.RangeKM = in.RangeKM
	listing.BatteryCapacity = in.BatteryCapacityKWh
	listing.WarrantyYears = in.BatteryWarrantyYears
	listing.WarrantyKM = in.BatteryWarrantyKM
	listing.HasHeatPump = in.HasHeatPump
	listing.VIN = strings.ToUpper(strings.TrimSpace(in.VIN))
	listing.Tags = dbtypes.StringList(in.Tags)
}

type service struct {
	repo          Repository
	urls          URLBuilder
	publicBaseURL string
	logg          *logger.Logger
	now           func() time.Time
}

// NewService wires listings dependencies.
func NewService(repo Repository, urls URLBuilder, publicBaseURL string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "listings repository required")
	}
	if urls == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "photo url builder required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:          repo,
		urls:          urls,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logg:          logg,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*ListingDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}

	listing := &models.Listing{SellerID: sellerID, Status: enums.ListingStatusDraft}
	input.applyTo(listing)
	if err := s.defaultDealer(ctx, listing); err != nil {
		return nil, err
	}

	if err := s.createWithUniqueSlug(ctx, listing); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing.created")
	dto := toListingDTO(listing)
	return &dto, nil
}

// Update rewrites the seller editable fields. Status and slug stay as they
// are; Save re-derives the lifecycle timestamps.
func (s *service) Update(ctx context.Context, sellerID, listingID uuid.UUID, input CreateInput) (*ListingDTO, error) {
	listing, err := s.loadForSeller(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	if err := input.normalize(); err != nil {
		return nil, err
	}
	input.applyTo(listing)
	if listing.DealerID == nil {
		if err := s.defaultDealer(ctx, listing); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save listing")
	}

	s.logg.Info(s.logg.WithListingID(ctx, listing.ID.String()), "listing.updated")
	dto := toListingDTO(listing)
	return &dto, nil
}

func (s *service) defaultDealer(ctx context.Context, listing *models.Listing) error {
	dealer, err := s.repo.DealerProfileForUser(ctx, listing.SellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer profile")
	}
	if dealer != nil {
		listing.DealerID = &dealer.ID
	}
	return nil
}

// createWithUniqueSlug checks candidates for a free slug, then inserts. A unique
// violation from a concurrent insert moves on to the next suffix.
func (s *service) createWithUniqueSlug(ctx context.Context, listing *models.Listing) error {
	base := BaseSlug(listing.Title, listing.Make, listing.Model, listing.Year)
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := SlugCandidate(base, attempt)
		taken, err := s.repo.SlugTaken(ctx, candidate)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug")
		}
		if taken {
			continue
		}
		listing.Slug = candidate
		err = s.repo.Create(ctx, listing)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		listing.ID = uuid.Nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique slug")
}

func (s *service) Submit(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.loadForSeller(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	if !CanSubmit(listing.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft or rejected listings can be submitted for review").
			WithDetails(map[string]any{"status": listing.Status})
	}
	if err := s.Transition(ctx, listing, enums.ListingStatusPendingReview, s.now()); err != nil {
		return nil, err
	}
	dto := toListingDTO(listing)
	return &dto, nil
}

func (s *service) Archive(ctx context.Context, sellerID, listingID uuid.UUID) (*ListingDTO, error) {
	listing, err := s.loadForSeller(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	listing.ExpiresAt = &now
	if err := s.Transition(ctx, listing, enums.ListingStatusArchived, now); err != nil {
		return nil, err
	}
	dto := toListingDTO(listing)
	return &dto, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, status string) ([]ListingDTO, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	var filter *enums.ListingStatus
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := enums.ParseListingStatus(status)
		if err != nil {
			return nil, validate.FieldError("status", "is not a valid listing status")
		}
		filter = &parsed
	}
	rows, err := s.repo.ListForSeller(ctx, sellerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	return ToListingDTOs(rows), nil
}

func (s *service) Moderate(ctx context.Context, listingID uuid.UUID, status string) (*ListingDTO, error) {
	parsed, err := enums.ParseListingStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, validate.FieldError("status", "is not a valid listing status")
	}
	listing, err := s.repo.FindByID(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if err := s.Transition(ctx, listing, parsed, s.now()); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"listing_id": listing.ID.String(),
		"status":     string(parsed),
	}), "listing.moderated")
	dto := toListingDTO(listing)
	return &dto, nil
}

// Transition applies the status change and persists it in one write.
func (s *service) Transition(ctx context.Context, listing *models.Listing, status enums.ListingStatus, now time.Time) error {
	if err := ApplyTransition(listing, status, now); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, listing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save listing")
	}
	return nil
}

func (s *service) GetPublic(ctx context.Context, slug string) (*PublicListing, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	listing, err := s.repo.FindActiveBySlug(ctx, slug, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}

	photos := make([]PhotoDTO, 0, len(listing.Photos))
	images := make([]string, 0, len(listing.Photos))
	for i := range listing.Photos {
		dto := toPhotoDTO(&listing.Photos[i], s.urls)
		photos = append(photos, dto)
		images = append(images, dto.DisplayURL)
	}

	out := &PublicListing{
		Listing: toListingDTO(listing),
		Photos:  photos,
		JSONLD:  BuildVehicleJSONLD(listing, s.detailURL(listing.Slug), images),
	}
	if d := listing.Dealer; d != nil {
		out.Dealer = &DealerDTO{Name: d.Name, Slug: d.Slug, Website: d.Website, City: d.City, Province: d.Province}
	}
	return out, nil
}

func (s *service) loadForSeller(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	listing, err := s.repo.FindForSeller(ctx, sellerID, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

func (s *service) detailURL(slug string) string {
	return s.publicBaseURL + "/listings/" + slug
}
