package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

func SellerInquiries(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListForSeller(r.Context(), sellerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SellerInquiry(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return inquiryAction(svc.Get, logg)
}

func MarkInquiryContacted(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return inquiryAction(svc.MarkContacted, logg)
}

func MarkInquiryClosed(svc inquiries.Service, logg *logger.Logger) http.HandlerFunc {
	return inquiryAction(svc.MarkClosed, logg)
}

func inquiryAction(action func(ctx context.Context, sellerID, inquiryID uuid.UUID) (*inquiries.InquiryDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiry, err := action(r.Context(), sellerID, inquiryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}
