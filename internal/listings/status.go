package listings

import (
	"time"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/validate"
)

// DeriveTimestamps is applied before every listing write; see
// models.DeriveListingTimestamps.
func DeriveTimestamps(status enums.ListingStatus, prev models.ListingTimestamps, now time.Time) models.ListingTimestamps {
	return models.DeriveListingTimestamps(status, prev, now)
}

// ApplyTransition moves listing to status in memory. Approval and rejection
// restamp their timestamps; draft and pending_review clear all of them.
func ApplyTransition(listing *models.Listing, status enums.ListingStatus, now time.Time) error {
	if listing == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing required")
	}
	if !status.IsValid() {
		return validate.FieldError("status", "is not a valid listing status")
	}

	listing.Status = status
	switch status {
	case enums.ListingStatusApproved:
		listing.ApprovedAt = &now
		listing.PublishedAt = &now
		listing.RejectedAt = nil
	case enums.ListingStatusRejected:
		listing.RejectedAt = &now
		listing.PublishedAt = nil
		listing.ApprovedAt = nil
	case enums.ListingStatusDraft, enums.ListingStatusPendingReview:
		listing.ApprovedAt = nil
		listing.RejectedAt = nil
		listing.PublishedAt = nil
	}
	listing.ApplyTimestamps(DeriveTimestamps(listing.Status, listing.Timestamps(), now))
	return nil
}

// IsActive reports whether the listing is publicly visible at now.
func IsActive(listing *models.Listing, now time.Time) bool {
	if listing == nil || listing.Status != enums.ListingStatusApproved {
		return false
	}
	return listing.ExpiresAt == nil || listing.ExpiresAt.After(now)
}

// CanSubmit reports whether a seller may send the listing to moderation.
func CanSubmit(status enums.ListingStatus) bool {
	return status == enums.ListingStatusDraft || status == enums.ListingStatusRejected
}
