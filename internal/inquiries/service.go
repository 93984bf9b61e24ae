package inquiries

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/internal/abuse"
	"github.com/voltlot/voltlot-backend/internal/notifications"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/metrics"
	"github.com/voltlot/voltlot-backend/pkg/pagination"
	"github.com/voltlot/voltlot-backend/pkg/validate"
)

const (
	sourcePublicDetail = "public_detail"

	msgCreated            = "Inquiry submitted from public listing detail page."
	msgEmailSent          = "Inquiry email delivered to seller."
	msgEmailFailed        = "Inquiry email delivery failed."
	msgDeliveryFallback   = "Unable to deliver inquiry email."
	msgOutcomeNotRecorded = "Delivery outcome was not recorded."

	staleBatchSize = 100
)

// ListingFinder resolves publicly visible listings with their seller loaded.
type ListingFinder interface {
	FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*models.Listing, error)
}

// RateLimiter gates submissions per listing and client address.
type RateLimiter interface {
	Check(ctx context.Context, listingID, addr string) (bool, error)
	Increment(ctx context.Context, listingID, addr string) error
}

// ChallengeVerifier checks bot-challenge tokens.
type ChallengeVerifier interface {
	Provider() string
	Verify(ctx context.Context, token, remoteAddr string) abuse.Verdict
}

// Notifier makes one seller email attempt.
type Notifier interface {
	BackendName() string
	Notify(ctx context.Context, delivery notifications.Delivery) notifications.Result
}

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SubmitInput is a public inquiry as received from the listing page.
type SubmitInput struct {
	Slug         string `json:"-"`
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email,max=254"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,max=32"`
	Message      string `json:"message" validate:"required,min=10,max=5000"`
	CaptchaToken string `json:"-"`
	RemoteAddr   string `json:"-"`
	UserAgent    string `json:"-"`
	Referer      string `json:"-"`
}

func (in *SubmitInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Message = strings.TrimSpace(in.Message)
}

// Service runs the public intake pipeline and the seller follow-up operations.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Inquiry, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error)
	MarkContacted(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error)
	MarkClosed(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error)
	ExpireStaleDeliveries(ctx context.Context, olderThan time.Duration) (int, error)
}

// Deps bundles the collaborators of the inquiry service.
type Deps struct {
	Repo     Repository
	Listings ListingFinder
	Tx       TxRunner
	Limiter  RateLimiter
	Captcha  ChallengeVerifier
	Notifier Notifier
	Metrics  *metrics.InquiryMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	listings ListingFinder
	tx       TxRunner
	limiter  RateLimiter
	captcha  ChallengeVerifier
	notifier Notifier
	metrics  *metrics.InquiryMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates deps and builds the inquiry service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inquiry repository required")
	case deps.Listings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "listing finder required")
	case deps.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case deps.Limiter == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rate limiter required")
	case deps.Captcha == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "captcha verifier required")
	case deps.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case deps.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     deps.Repo,
		listings: deps.Listings,
		tx:       deps.Tx,
		limiter:  deps.Limiter,
		captcha:  deps.Captcha,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logg:     deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Submit runs the intake gates in order, persists the inquiry and makes one
// notification attempt. Once the inquiry is committed the call succeeds,
// whatever happens to the email.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Inquiry, error) {
	listing, err := s.listings.FindActiveBySlug(ctx, strings.TrimSpace(input.Slug), s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.metrics.IncSubmission(metrics.OutcomeNotFound)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		s.metrics.IncSubmission(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	listingID := listing.ID.String()
	ctx = s.logg.WithListingID(ctx, listingID)

	input.normalize()
	if err := validate.Struct(&input); err != nil {
		s.metrics.IncSubmission(metrics.OutcomeInvalid)
		return nil, err
	}

	limited, err := s.limiter.Check(ctx, listingID, input.RemoteAddr)
	if err != nil {
		s.metrics.IncSubmission(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable")
	}
	if limited {
		s.metrics.IncSubmission(metrics.OutcomeRateLimited)
		s.logg.Warn(s.logg.WithField(ctx, "remote_addr", input.RemoteAddr), "inquiry.rate_limited")
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, abuse.RateLimitMessage)
	}

	verdict := s.captcha.Verify(ctx, input.CaptchaToken, input.RemoteAddr)
	if !verdict.OK {
		s.metrics.IncSubmission(metrics.OutcomeCaptchaFailed)
		s.logg.Warn(s.logg.WithField(ctx, "remote_addr", input.RemoteAddr), "inquiry.captcha_failed")
		return nil, pkgerrors.New(pkgerrors.CodeCaptcha, verdict.Message)
	}

	inquiry := &models.Inquiry{
		ListingID:      listing.ID,
		Name:           input.Name,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		Message:        input.Message,
		Status:         enums.InquiryStatusNew,
		DeliveryStatus: enums.DeliveryStatusPending,
		Metadata: map[string]any{
			"source":      sourcePublicDetail,
			"remote_addr": input.RemoteAddr,
			"user_agent":  input.UserAgent,
			"referer":     input.Referer,
			"captcha": map[string]any{
				"provider": s.captcha.Provider(),
				"verified": verdict.OK,
				"details":  verdict.Details,
			},
		},
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, inquiry); err != nil {
			return err
		}
		return repo.CreateEvent(ctx, &models.InquiryEvent{
			InquiryID: inquiry.ID,
			EventType: enums.InquiryEventCreated,
			Message:   msgCreated,
		})
	})
	if err != nil {
		s.metrics.IncSubmission(metrics.OutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create inquiry")
	}
	ctx = s.logg.WithInquiryID(ctx, inquiry.ID.String())
	s.metrics.IncSubmission(metrics.OutcomeCreated)

	if err := s.limiter.Increment(ctx, listingID, input.RemoteAddr); err != nil {
		s.logg.Error(ctx, "inquiry.rate_increment_failed", err)
	}

	s.dispatch(ctx, inquiry, listing)
	return inquiry, nil
}

// dispatch sends the seller email and records the outcome. Write-back
// failures are logged; the stale sweep closes out rows left pending.
func (s *service) dispatch(ctx context.Context, inquiry *models.Inquiry, listing *models.Listing) {
	sellerEmail := ""
	if listing.Seller != nil {
		sellerEmail = listing.Seller.Email
	}

	started := time.Now()
	result := s.notifier.Notify(ctx, notifications.Delivery{
		InquiryID:    inquiry.ID,
		ListingTitle: listing.Title,
		City:         listing.City,
		ProvinceName: listing.Province.Name(),
		SellerEmail:  sellerEmail,
		BuyerName:    inquiry.Name,
		BuyerEmail:   inquiry.Email,
		BuyerPhone:   inquiry.PhoneNumber,
		Message:      inquiry.Message,
	})
	s.metrics.ObserveDispatch(s.notifier.BackendName(), result.Success, time.Since(started))

	now := s.now()
	update := DeliveryUpdate{
		Reference:       result.Info.Reference(),
		LastAttemptedAt: &now,
	}
	event := &models.InquiryEvent{
		InquiryID: inquiry.ID,
		Metadata:  map[string]any(result.Info),
	}
	if result.Success {
		update.Status = enums.DeliveryStatusSent
		update.DeliveredAt = &now
		event.EventType = enums.InquiryEventEmailSent
		event.Message = msgEmailSent
	} else {
		update.Status = enums.DeliveryStatusFailed
		update.Error = result.Info.Error()
		if update.Error == "" {
			update.Error = msgDeliveryFallback
		}
		event.EventType = enums.InquiryEventEmailFailed
		event.Message = msgEmailFailed
	}

	applied, err := s.recordOutcome(ctx, inquiry.ID, update, event)
	if err != nil {
		s.logg.Error(ctx, "inquiry.delivery_writeback_failed", err)
		return
	}
	if !applied {
		s.logg.Warn(ctx, "inquiry.delivery_already_recorded")
		return
	}
	inquiry.DeliveryStatus = update.Status
	inquiry.DeliveryReference = update.Reference
	inquiry.DeliveryError = update.Error
	inquiry.LastAttemptedAt = update.LastAttemptedAt
	inquiry.DeliveredAt = update.DeliveredAt
}

// recordOutcome writes the delivery fields and the matching event in one
// transaction. Rows that already left pending are untouched.
func (s *service) recordOutcome(ctx context.Context, id uuid.UUID, update DeliveryUpdate, event *models.InquiryEvent) (bool, error) {
	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.RecordDelivery(ctx, id, update)
		if err != nil || !ok {
			return err
		}
		if err := repo.CreateEvent(ctx, event); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, validate.FieldError("cursor", "is invalid")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListForSeller(ctx, sellerID, cursor, pagination.FetchSize(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inquiries")
	}

	out := &ListResult{Items: make([]InquiryDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		out.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for i := range rows {
		out.Items = append(out.Items, toInquiryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error) {
	inquiry, err := s.load(ctx, sellerID, inquiryID)
	if err != nil {
		return nil, err
	}
	dto := toInquiryDTO(inquiry)
	return &dto, nil
}

func (s *service) MarkContacted(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error) {
	return s.setStatus(ctx, sellerID, inquiryID, enums.InquiryStatusContacted)
}

func (s *service) MarkClosed(ctx context.Context, sellerID, inquiryID uuid.UUID) (*InquiryDTO, error) {
	return s.setStatus(ctx, sellerID, inquiryID, enums.InquiryStatusClosed)
}

func (s *service) setStatus(ctx context.Context, sellerID, inquiryID uuid.UUID, status enums.InquiryStatus) (*InquiryDTO, error) {
	inquiry, err := s.load(ctx, sellerID, inquiryID)
	if err != nil {
		return nil, err
	}
	var respondedAt *time.Time
	if status == enums.InquiryStatusContacted {
		now := s.now()
		respondedAt = &now
		inquiry.RespondedAt = respondedAt
	}
	if err := s.repo.UpdateStatus(ctx, inquiry.ID, status, respondedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inquiry")
	}
	inquiry.Status = status
	dto := toInquiryDTO(inquiry)
	return &dto, nil
}

func (s *service) load(ctx context.Context, sellerID, inquiryID uuid.UUID) (*models.Inquiry, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	inquiry, err := s.repo.FindForSeller(ctx, sellerID, inquiryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inquiry not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inquiry")
	}
	return inquiry, nil
}

// ExpireStaleDeliveries marks inquiries still pending after olderThan as
// failed. It never re-sends.
func (s *service) ExpireStaleDeliveries(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now()
	rows, err := s.repo.ListStalePending(ctx, now.Add(-olderThan), staleBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale inquiries")
	}
	expired := 0
	for _, row := range rows {
		event := &models.InquiryEvent{
			InquiryID: row.ID,
			EventType: enums.InquiryEventEmailFailed,
			Message:   msgEmailFailed,
			Metadata:  map[string]any{"error": msgOutcomeNotRecorded, "reason": "stale"},
		}
		applied, err := s.recordOutcome(ctx, row.ID, DeliveryUpdate{
			Status: enums.DeliveryStatusFailed,
			Error:  msgOutcomeNotRecorded,
		}, event)
		if err != nil {
			return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale inquiry")
		}
		if applied {
			expired++
		}
	}
	if expired > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "count", expired), "inquiry.stale_deliveries_expired")
	}
	return expired, nil
}
