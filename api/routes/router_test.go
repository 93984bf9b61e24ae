package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/api/controllers"
	"github.com/voltlot/voltlot-backend/internal/abuse"
	"github.com/voltlot/voltlot-backend/internal/inbox"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/internal/listings"
	pkgAuth "github.com/voltlot/voltlot-backend/pkg/auth"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubListings struct {
	listings.Service
	moderated bool
}

func (s *stubListings) ListForSeller(context.Context, uuid.UUID, string) ([]listings.ListingDTO, error) {
	return []listings.ListingDTO{}, nil
}

func (s *stubListings) Moderate(_ context.Context, id uuid.UUID, status string) (*listings.ListingDTO, error) {
	s.moderated = true
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatus(status)}, nil
}

type stubInquiries struct {
	inquiries.Service
}

func (stubInquiries) Submit(context.Context, inquiries.SubmitInput) (*models.Inquiry, error) {
	return &models.Inquiry{ID: uuid.New(), DeliveryStatus: enums.DeliveryStatusPending}, nil
}

func (stubInquiries) ListForSeller(context.Context, uuid.UUID, pagination.Params) (*inquiries.ListResult, error) {
	return &inquiries.ListResult{}, nil
}

// limitedInquiries runs the real limiter over the address the router resolved.
type limitedInquiries struct {
	inquiries.Service
	limiter *abuse.Limiter
	addrs   []string
}

func (s *limitedInquiries) Submit(ctx context.Context, input inquiries.SubmitInput) (*models.Inquiry, error) {
	s.addrs = append(s.addrs, input.RemoteAddr)
	limited, err := s.limiter.Check(ctx, input.Slug, input.RemoteAddr)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, abuse.RateLimitMessage)
	}
	if err := s.limiter.Increment(ctx, input.Slug, input.RemoteAddr); err != nil {
		return nil, err
	}
	return &models.Inquiry{ID: uuid.New(), DeliveryStatus: enums.DeliveryStatusSent}, nil
}

type stubInbox struct{}

func (stubInbox) UnreadCount(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (stubInbox) Open(context.Context, uuid.UUID) (*inbox.View, error) { return &inbox.View{}, nil }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "voltlot-test", ExpirationMinutes: 15},
	}
}

func newTestRouter(t *testing.T, listingsSvc listings.Service) (http.Handler, *config.Config) {
	t.Helper()
	return newTestRouterWith(t, testConfig(), listingsSvc, stubInquiries{})
}

func newTestRouterWith(t *testing.T, cfg *config.Config, listingsSvc listings.Service, inquiriesSvc inquiries.Service) (http.Handler, *config.Config) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, Dependencies{
		Checks:    map[string]controllers.Pinger{"postgres": stubPinger{}, "redis": stubPinger{}},
		Gatherer:  prometheus.NewRegistry(),
		Listings:  listingsSvc,
		Inquiries: inquiriesSvc,
		Inbox:     stubInbox{},
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestRouter(t, &stubListings{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestPublicInquiryDoesNotRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, &stubListings{})

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/listings/niro/inquiries", strings.NewReader(`{"name":"A"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func postInquiryVia(router http.Handler, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/listings/niro/inquiries", strings.NewReader(`{"name":"A"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = "10.0.0.5:443"
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestInquiryLimiterKeysOnForwardedClient(t *testing.T) {
	svc := &limitedInquiries{limiter: abuse.NewLimiter(abuse.NewMemoryStore(), 1)}
	router, _ := newTestRouterWith(t, testConfig(), &stubListings{}, svc)

	assert.Equal(t, http.StatusCreated, postInquiryVia(router, "203.0.113.7, 10.0.0.5").Code)
	assert.Equal(t, http.StatusTooManyRequests, postInquiryVia(router, "203.0.113.7, 10.0.0.5").Code)
	assert.Equal(t, http.StatusCreated, postInquiryVia(router, "198.51.100.1, 10.0.0.5").Code)
	assert.Equal(t, []string{"203.0.113.7", "203.0.113.7", "198.51.100.1"}, svc.addrs)
}

func TestInquiryLimiterIgnoresForwardedForWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.App.IgnoreForwardedFor = true
	svc := &limitedInquiries{limiter: abuse.NewLimiter(abuse.NewMemoryStore(), 1)}
	router, _ := newTestRouterWith(t, cfg, &stubListings{}, svc)

	assert.Equal(t, http.StatusCreated, postInquiryVia(router, "203.0.113.7").Code)
	assert.Equal(t, http.StatusTooManyRequests, postInquiryVia(router, "198.51.100.1").Code)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.5"}, svc.addrs)
}

func TestDashboardRequiresSellerRole(t *testing.T) {
	router, cfg := newTestRouter(t, &stubListings{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/inquiries", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/inquiries", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleBuyer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	for _, role := range []enums.UserRole{enums.UserRoleSeller, enums.UserRoleDealer, enums.UserRoleAdmin} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/notifications/unread-count", nil)
		req.Header.Set("Authorization", bearer(t, cfg, role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusOK, resp.Code, role)
	}
}

func TestAdminModerationRequiresAdmin(t *testing.T) {
	svc := &stubListings{}
	router, cfg := newTestRouter(t, svc)
	path := "/api/admin/v1/listings/" + uuid.NewString() + "/status"

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleSeller))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.False(t, svc.moderated)

	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":"approved"}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.moderated)
}
