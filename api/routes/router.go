package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltlot/voltlot-backend/api/controllers"
	"github.com/voltlot/voltlot-backend/api/middleware"
	"github.com/voltlot/voltlot-backend/internal/inbox"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/internal/photos"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// Dependencies are the services and readiness checks the HTTP surface is built from.
type Dependencies struct {
	// Checks maps readiness check names to pingers. Nil entries report
	// "disabled".
	Checks    map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer
	Users     middleware.ActiveUserChecker
	Listings  listings.Service
	Inquiries inquiries.Service
	Challenge controllers.ChallengeTokens
	Inbox     inbox.Service
	Photos    photos.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(!cfg.App.IgnoreForwardedFor),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Checks))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/listings/{slug}", controllers.PublicListingDetail(deps.Listings, logg))
		r.Post("/listings/{slug}/inquiries", controllers.SubmitInquiry(deps.Inquiries, deps.Challenge, logg))
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleDealer, enums.UserRoleAdmin))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.SellerListings(deps.Listings, logg))
			r.Post("/", controllers.CreateListing(deps.Listings, logg))
			r.Patch("/{listingId}", controllers.UpdateListing(deps.Listings, logg))
			r.Post("/{listingId}/submit", controllers.SubmitListing(deps.Listings, logg))
			r.Post("/{listingId}/archive", controllers.ArchiveListing(deps.Listings, logg))
			r.Post("/{listingId}/photos/upload-url", controllers.PhotoUploadURL(deps.Photos, logg))
		})
		r.Post("/photos/callback", controllers.PhotoUploadCallback(deps.Photos, logg))

		r.Route("/inquiries", func(r chi.Router) {
			r.Get("/", controllers.SellerInquiries(deps.Inquiries, logg))
			r.Get("/{inquiryId}", controllers.SellerInquiry(deps.Inquiries, logg))
			r.Post("/{inquiryId}/contacted", controllers.MarkInquiryContacted(deps.Inquiries, logg))
			r.Post("/{inquiryId}/closed", controllers.MarkInquiryClosed(deps.Inquiries, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationsView(deps.Inbox, logg))
			r.Get("/unread-count", controllers.UnreadInquiryCount(deps.Inbox, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Post("/listings/{listingId}/status", controllers.ModerateListing(deps.Listings, logg))
	})

	return r
}
