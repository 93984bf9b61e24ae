package inquiries

import (
	"time"

	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
)

// InquiryDTO is the seller dashboard view of an inquiry.
type InquiryDTO struct {
	ID                uuid.UUID            `json:"id"`
	ListingID         uuid.UUID            `json:"listing_id"`
	ListingTitle      string               `json:"listing_title"`
	ListingSlug       string               `json:"listing_slug"`
	Name              string               `json:"name"`
	Email             string               `json:"email"`
	PhoneNumber       string               `json:"phone_number,omitempty"`
	Message           string               `json:"message"`
	Status            enums.InquiryStatus  `json:"status"`
	DeliveryStatus    enums.DeliveryStatus `json:"delivery_status"`
	DeliveryReference string               `json:"delivery_reference,omitempty"`
	DeliveryError     string               `json:"delivery_error,omitempty"`
	DeliveredAt       *time.Time           `json:"delivered_at,omitempty"`
	LastAttemptedAt   *time.Time           `json:"last_attempted_at,omitempty"`
	SellerNotifiedAt  *time.Time           `json:"seller_notified_at,omitempty"`
	RespondedAt       *time.Time           `json:"responded_at,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	Events            []EventDTO           `json:"events,omitempty"`
}

// EventDTO is one audit log entry.
type EventDTO struct {
	ID        uuid.UUID              `json:"id"`
	EventType enums.InquiryEventType `json:"event_type"`
	Message   string                 `json:"message"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ListResult is one page of seller inquiries.
type ListResult struct {
	Items      []InquiryDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toInquiryDTO(i *models.Inquiry) InquiryDTO {
	out := InquiryDTO{
		ID:                i.ID,
		ListingID:         i.ListingID,
		Name:              i.Name,
		Email:             i.Email,
		PhoneNumber:       i.PhoneNumber,
		Message:           i.Message,
		Status:            i.Status,
		DeliveryStatus:    i.DeliveryStatus,
		DeliveryReference: i.DeliveryReference,
		DeliveryError:     i.DeliveryError,
		DeliveredAt:       i.DeliveredAt,
		LastAttemptedAt:   i.LastAttemptedAt,
		SellerNotifiedAt:  i.SellerNotifiedAt,
		RespondedAt:       i.RespondedAt,
		CreatedAt:         i.CreatedAt,
	}
	if i.Listing != nil {
		out.ListingTitle = i.Listing.Title
		out.ListingSlug = i.Listing.Slug
	}
	if len(i.Events) > 0 {
		out.Events = make([]EventDTO, 0, len(i.Events))
		for _, e := range i.Events {
			out.Events = append(out.Events, EventDTO{
				ID:        e.ID,
				EventType: e.EventType,
				Message:   e.Message,
				Metadata:  e.Metadata,
				CreatedAt: e.CreatedAt,
			})
		}
	}
	return out
}
