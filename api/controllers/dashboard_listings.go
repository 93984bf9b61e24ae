package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/api/validators"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// SellerListings lists the caller's listings, optionally filtered by ?status.
func SellerListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := validators.QueryString(r, "status", 32)
		items, err := svc.ListForSeller(r.Context(), sellerID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// CreateListing stores a new draft listing owned by the caller.
func CreateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input listings.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Create(r.Context(), sellerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

// UpdateListing edits the caller's listing in place.
func UpdateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input listings.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Update(r.Context(), sellerID, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// SubmitListing moves a draft or rejected listing into review.
func SubmitListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return listingAction(svc.Submit, logg)
}

// ArchiveListing withdraws a listing from the marketplace.
func ArchiveListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return listingAction(svc.Archive, logg)
}

type sellerListingAction func(ctx context.Context, sellerID, listingID uuid.UUID) (*listings.ListingDTO, error)

func listingAction(action sellerListingAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := action(r.Context(), sellerID, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
