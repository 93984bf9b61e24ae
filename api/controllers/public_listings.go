package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// PublicListingDetail serves an active listing with its photos and JSON-LD.
func PublicListingDetail(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		responses.WriteSuccess(w, detail)
	}
}
