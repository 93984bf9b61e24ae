package controllers

import (
	"net/http"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/api/validators"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

type moderateRequest struct {
	Status string `json:"status" validate:"required"`
}

// ModerateListing sets a listing's status on behalf of an admin.
func ModerateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := pathUUID(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req moderateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Moderate(r.Context(), listingID, req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
