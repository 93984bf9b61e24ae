package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/api/validators"
	"github.com/voltlot/voltlot-backend/internal/photos"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

type photoUploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=100"`
	SizeBytes   int64  `json:"size_bytes" validate:"gte=0"`
}

type photoCallbackRequest struct {
	ListingID  uuid.UUID `json:"listing_id" validate:"required"`
	StorageKey string    `json:"storage_key" validate:"required,max=512"`
}

// PhotoUploadURL issues a presigned PUT for a new photo on the listing.
func PhotoUploadURL(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
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
		var req photoUploadRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := svc.UploadURL(r.Context(), sellerID, listingID, photos.UploadInput{
			Filename:    req.Filename,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, target)
	}
}

// PhotoUploadCallback registers an uploaded object as a listing photo.
func PhotoUploadCallback(svc photos.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req photoCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Callback(r.Context(), sellerID, req.ListingID, req.StorageKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
