package photos

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// KeyPrefix is the storage prefix every listing photo lives under.
const KeyPrefix = "listings/photos/"

const (
	defaultMaxPerListing  = 10
	defaultMaxUploadBytes = 10 * 1024 * 1024
	defaultUploadExpiry   = 300 * time.Second
)

// Signer issues upload URLs and resolves public URLs.
type Signer interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string, size int64, expires time.Duration) (string, error)
	PublicURL(key string) string
}

// TaskPublisher enqueues derivative generation for a photo.
type TaskPublisher interface {
	PublishProcessPhoto(ctx context.Context, photoID uuid.UUID) error
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UploadInput describes the file the seller is about to upload.
type UploadInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadTarget tells the browser where and how to PUT the file.
type UploadTarget struct {
	Upload UploadInstructions `json:"upload"`
	Photo  PendingPhoto       `json:"photo"`
}

// UploadInstructions is the presigned request.
type UploadInstructions struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	ExpiresIn   int               `json:"expires_in"`
	MaxFileSize int64             `json:"max_file_size"`
}

// PendingPhoto identifies the object the callback will confirm.
type PendingPhoto struct {
	StorageKey     string `json:"storage_key"`
	Bucket         string `json:"bucket"`
	ContentType    string `json:"content_type"`
	RemainingSlots int    `json:"remaining_slots"`
}

// CallbackResult is returned once an upload is registered.
type CallbackResult struct {
	PhotoID        uuid.UUID `json:"photo_id"`
	ImageURL       string    `json:"image_url"`
	IsPrimary      bool      `json:"is_primary"`
	RemainingSlots int       `json:"remaining_slots"`
	Created        bool      `json:"created"`
}

// Service runs the seller side of the photo pipeline.
type Service interface {
	UploadURL(ctx context.Context, sellerID, listingID uuid.UUID, input UploadInput) (*UploadTarget, error)
	Callback(ctx context.Context, sellerID, listingID uuid.UUID, storageKey string) (*CallbackResult, error)
}

type service struct {
	repo      Repository
	tx        TxRunner
	signer    Signer
	publisher TaskPublisher
	logg      *logger.Logger
	maxPhotos int
	maxBytes  int64
	expiry    time.Duration
	now       func() time.Time
}

// NewService wires the photo service. publisher may be nil, in which case
// uploads are registered but never processed.
func NewService(repo Repository, tx TxRunner, signer Signer, publisher TaskPublisher, cfg config.PhotosConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "photos repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "photo storage required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	s := &service{
		repo:      repo,
		tx:        tx,
		signer:    signer,
		publisher: publisher,
		logg:      logg,
		maxPhotos: cfg.MaxPerListing,
		maxBytes:  cfg.MaxUploadBytes,
		expiry:    cfg.UploadURLExpiry,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.maxPhotos <= 0 {
		s.maxPhotos = defaultMaxPerListing
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxUploadBytes
	}
	if s.expiry <= 0 {
		s.expiry = defaultUploadExpiry
	}
	return s, nil
}

func (s *service) UploadURL(ctx context.Context, sellerID, listingID uuid.UUID, input UploadInput) (*UploadTarget, error) {
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountForListing(ctx, listing.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count photos")
	}
	if int(count) >= s.maxPhotos {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "You already have the maximum number of photos.")
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if strings.TrimSpace(input.Filename) == "" || contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename and content_type required")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Only image uploads are allowed.")
	}
	if input.SizeBytes < 0 || input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxBytes))
	}
	filename := sanitizeFileName(input.Filename)
	if filename == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid filename provided.")
	}

	key := BuildKey(s.now(), uuid.New(), filename)
	signed, err := s.signer.PresignPut(ctx, key, contentType, input.SizeBytes, s.expiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Unable to generate upload URL.")
	}

	return &UploadTarget{
		Upload: UploadInstructions{
			URL:         signed,
			Method:      "PUT",
			Headers:     map[string]string{"Content-Type": contentType},
			ExpiresIn:   int(s.expiry.Seconds()),
			MaxFileSize: s.maxBytes,
		},
		Photo: PendingPhoto{
			StorageKey:     key,
			Bucket:         s.signer.Bucket(),
			ContentType:    contentType,
			RemainingSlots: s.maxPhotos - int(count),
		},
	}, nil
}

// Callback registers an uploaded object as a listing photo and queues its
// derivatives. Re-posting the same key returns the existing photo.
func (s *service) Callback(ctx context.Context, sellerID, listingID uuid.UUID, storageKey string) (*CallbackResult, error) {
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage_key missing")
	}
	if !strings.HasPrefix(storageKey, KeyPrefix) || strings.Contains(storageKey, "..") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage_key is not a listing photo key")
	}
	listing, err := s.ownedListing(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}

	var (
		photo   *models.Photo
		created bool
		count   int64
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByKey(ctx, listing.ID, storageKey)
		if err != nil {
			return err
		}
		count, err = repo.CountForListing(ctx, listing.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			photo = existing
			return nil
		}
		if int(count) >= s.maxPhotos {
			return pkgerrors.New(pkgerrors.CodeValidation, "Photo limit reached for this listing.")
		}
		photo = &models.Photo{
			ListingID: listing.ID,
			ImageKey:  storageKey,
			SortOrder: int(count),
			IsPrimary: count == 0,
		}
		if err := repo.Create(ctx, photo); err != nil {
			return err
		}
		created = true
		count++
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "photo already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register photo")
	}

	logCtx := s.logg.WithFields(s.logg.WithListingID(ctx, listing.ID.String()), map[string]any{
		"photo_id": photo.ID.String(),
		"created":  created,
	})
	if s.publisher != nil {
		if err := s.publisher.PublishProcessPhoto(ctx, photo.ID); err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "photo.enqueue_failed")
		}
	}
	s.logg.Info(logCtx, "photo.registered")

	remaining := s.maxPhotos - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &CallbackResult{
		PhotoID:        photo.ID,
		ImageURL:       s.signer.PublicURL(photo.ImageKey),
		IsPrimary:      photo.IsPrimary,
		RemainingSlots: remaining,
		Created:        created,
	}, nil
}

func (s *service) ownedListing(ctx context.Context, sellerID, listingID uuid.UUID) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	listing, err := s.repo.ListingForSeller(ctx, sellerID, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return listing, nil
}

// BuildKey returns listings/photos/YYYY/MM/<id>_<filename>.
func BuildKey(now time.Time, id uuid.UUID, filename string) string {
	return fmt.Sprintf("%s%04d/%02d/%s_%s", KeyPrefix, now.Year(), int(now.Month()), id.String(), filename)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
