package listings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
)

func TestApplyTransition(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := earlier.Add(48 * time.Hour)

	listing := &models.Listing{Status: enums.ListingStatusPendingReview}
	require.NoError(t, ApplyTransition(listing, enums.ListingStatusApproved, earlier))
	assert.Equal(t, earlier, *listing.ApprovedAt)
	assert.Equal(t, earlier, *listing.PublishedAt)

	require.NoError(t, ApplyTransition(listing, enums.ListingStatusApproved, now))
	assert.Equal(t, now, *listing.ApprovedAt, "re-approval restamps")

	listing.IsPromoted = true
	require.NoError(t, ApplyTransition(listing, enums.ListingStatusRejected, now))
	assert.Nil(t, listing.ApprovedAt)
	assert.Nil(t, listing.PublishedAt)
	assert.False(t, listing.IsPromoted)
	assert.Equal(t, now, *listing.RejectedAt)

	require.NoError(t, ApplyTransition(listing, enums.ListingStatusDraft, now))
	assert.Nil(t, listing.RejectedAt)

	err := ApplyTransition(listing, enums.ListingStatus("published"), now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, enums.ListingStatusDraft, listing.Status)
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, IsActive(&models.Listing{Status: enums.ListingStatusApproved}, now))
	assert.True(t, IsActive(&models.Listing{Status: enums.ListingStatusApproved, ExpiresAt: &future}, now))
	assert.False(t, IsActive(&models.Listing{Status: enums.ListingStatusApproved, ExpiresAt: &past}, now))
	assert.False(t, IsActive(&models.Listing{Status: enums.ListingStatusApproved, ExpiresAt: &now}, now))
	assert.False(t, IsActive(&models.Listing{Status: enums.ListingStatusArchived}, now))
	assert.False(t, IsActive(nil, now))
}

func TestCanSubmit(t *testing.T) {
	assert.True(t, CanSubmit(enums.ListingStatusDraft))
	assert.True(t, CanSubmit(enums.ListingStatusRejected))
	assert.False(t, CanSubmit(enums.ListingStatusApproved))
	assert.False(t, CanSubmit(enums.ListingStatusPendingReview))
	assert.False(t, CanSubmit(enums.ListingStatusArchived))
}
