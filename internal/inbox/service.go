package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// ViewLimit is how many recent inquiries the notifications view lists.
const ViewLimit = 50

const msgDashboardViewed = "Seller viewed the inquiry in the dashboard."

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Item is one row of the notifications view.
type Item struct {
	ID             uuid.UUID            `json:"id"`
	ListingID      uuid.UUID            `json:"listing_id"`
	ListingTitle   string               `json:"listing_title"`
	Name           string               `json:"name"`
	Email          string               `json:"email"`
	Message        string               `json:"message"`
	Status         enums.InquiryStatus  `json:"status"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	CreatedAt      time.Time            `json:"created_at"`
	Unread         bool                 `json:"unread"`
}

// View is the notifications page payload.
type View struct {
	UnreadCount int64  `json:"unread_count"`
	Items       []Item `json:"items"`
}

// Service exposes the seller's unread inquiry state.
type Service interface {
	UnreadCount(ctx context.Context, sellerID uuid.UUID) (int64, error)
	Open(ctx context.Context, sellerID uuid.UUID) (*View, error)
}

type service struct {
	repo Repository
	tx   TxRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the inbox service.
func NewService(repo Repository, tx TxRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inbox repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) UnreadCount(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	if sellerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}
	count, err := s.repo.CountUnread(ctx, sellerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread inquiries")
	}
	return count, nil
}

// Open lists recent inquiries and marks the unread snapshot as seen. Only
// inquiries unread when the snapshot was taken are stamped, so anything
// arriving during the request stays unread until the next visit.
func (s *service) Open(ctx context.Context, sellerID uuid.UUID) (*View, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller required")
	}

	view := &View{Items: []Item{}}
	stamped := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ids, err := repo.UnreadIDs(ctx, sellerID)
		if err != nil {
			return err
		}
		unread := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			unread[id] = struct{}{}
		}

		rows, err := repo.Latest(ctx, sellerID, ViewLimit)
		if err != nil {
			return err
		}
		for i := range rows {
			view.Items = append(view.Items, toItem(&rows[i], unread))
		}

		stampedIDs, err := repo.MarkNotified(ctx, ids, s.now())
		if err != nil {
			return err
		}
		events := make([]models.InquiryEvent, 0, len(stampedIDs))
		for _, id := range stampedIDs {
			events = append(events, models.InquiryEvent{
				InquiryID: id,
				EventType: enums.InquiryEventDashboardViewed,
				Message:   msgDashboardViewed,
			})
		}
		if err := repo.CreateEvents(ctx, events); err != nil {
			return err
		}
		stamped = len(stampedIDs)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open notifications")
	}

	if stamped > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"user_id": sellerID.String(),
			"stamped": stamped,
		}), "inbox.opened")
	}
	return view, nil
}

func toItem(row *models.Inquiry, unread map[uuid.UUID]struct{}) Item {
	_, isUnread := unread[row.ID]
	item := Item{
		ID:             row.ID,
		ListingID:      row.ListingID,
		Name:           row.Name,
		Email:          row.Email,
		Message:        row.Message,
		Status:         row.Status,
		DeliveryStatus: row.DeliveryStatus,
		CreatedAt:      row.CreatedAt,
		Unread:         isUnread,
	}
	if row.Listing != nil {
		item.ListingTitle = row.Listing.Title
	}
	return item
}
