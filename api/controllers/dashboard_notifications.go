package controllers

import (
	"net/http"

	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/internal/inbox"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// UnreadInquiryCount backs the dashboard badge. It never marks anything read.
func UnreadInquiryCount(svc inbox.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.UnreadCount(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread_count": count})
	}
}

// NotificationsView renders the latest inquiries and stamps unread ones as
// notified.
func NotificationsView(svc inbox.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Open(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
