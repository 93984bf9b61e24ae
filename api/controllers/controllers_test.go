package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/api/middleware"
	"github.com/voltlot/voltlot-backend/internal/inbox"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/internal/photos"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func withParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func asSeller(req *http.Request, sellerID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), sellerID.String(), enums.UserRoleSeller))
}

type stubInquiries struct {
	inquiries.Service
	submitted  inquiries.SubmitInput
	submitErr  error
	listParams pagination.Params
	lastAction string
}

func (s *stubInquiries) Submit(_ context.Context, input inquiries.SubmitInput) (*models.Inquiry, error) {
	s.submitted = input
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &models.Inquiry{ID: uuid.New(), DeliveryStatus: enums.DeliveryStatusSent}, nil
}

func (s *stubInquiries) ListForSeller(_ context.Context, _ uuid.UUID, params pagination.Params) (*inquiries.ListResult, error) {
	s.listParams = params
	return &inquiries.ListResult{}, nil
}

func (s *stubInquiries) MarkContacted(_ context.Context, _, id uuid.UUID) (*inquiries.InquiryDTO, error) {
	s.lastAction = "contacted"
	return &inquiries.InquiryDTO{ID: id, Status: enums.InquiryStatusContacted}, nil
}

type stubTokens struct{}

func (stubTokens) Token(lookup func(string) string) string {
	return lookup("cf-turnstile-response")
}

func TestSubmitInquiryAcceptsJSON(t *testing.T) {
	svc := &stubInquiries{}
	handler := middleware.ClientIP(false)(SubmitInquiry(svc, stubTokens{}, testLogger()))

	body := `{"name":"Alex","email":"alex@example.com","message":"Is it available?","cf-turnstile-response":"tok"}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/listings/kia-niro/inquiries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "203.0.113.7:5555"
	req = withParams(req, map[string]string{"slug": "kia-niro"})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "kia-niro", svc.submitted.Slug)
	assert.Equal(t, "Alex", svc.submitted.Name)
	assert.Equal(t, "tok", svc.submitted.CaptchaToken)
	assert.Equal(t, "203.0.113.7", svc.submitted.RemoteAddr)
	assert.Equal(t, "test-agent", svc.submitted.UserAgent)

	var created inquiryCreated
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &created))
	assert.Equal(t, enums.DeliveryStatusSent, created.DeliveryStatus)
}

func TestSubmitInquiryAcceptsForm(t *testing.T) {
	svc := &stubInquiries{}
	handler := SubmitInquiry(svc, stubTokens{}, testLogger())

	form := url.Values{"name": {"Sam"}, "email": {"sam@example.com"}, "message": {"Hi"}, "phone_number": {"5145550100"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = withParams(req, map[string]string{"slug": "niro"})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "5145550100", svc.submitted.PhoneNumber)
	assert.Empty(t, svc.submitted.CaptchaToken)
}

func TestSubmitInquiryMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeRateLimit, "Too many inquiries"), http.StatusTooManyRequests},
		{pkgerrors.New(pkgerrors.CodeCaptcha, "Captcha failed"), http.StatusUnprocessableEntity},
		{pkgerrors.New(pkgerrors.CodeNotFound, "listing not found"), http.StatusNotFound},
		{pkgerrors.New(pkgerrors.CodeDependency, "rate limiter unavailable"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		handler := SubmitInquiry(&stubInquiries{submitErr: tc.err}, nil, testLogger())
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, withParams(req, map[string]string{"slug": "x"}))
		assert.Equal(t, tc.status, resp.Code, tc.err.Error())
	}
}

func TestSubmitInquiryRejectsMalformedJSON(t *testing.T) {
	handler := SubmitInquiry(&stubInquiries{}, nil, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSellerInquiriesRequiresActor(t *testing.T) {
	handler := SellerInquiries(&stubInquiries{}, testLogger())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSellerInquiriesPassesPagination(t *testing.T) {
	svc := &stubInquiries{}
	handler := SellerInquiries(svc, testLogger())

	req := asSeller(httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc", nil), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, svc.listParams)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil), uuid.New()))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkInquiryContacted(t *testing.T) {
	svc := &stubInquiries{}
	handler := MarkInquiryContacted(svc, testLogger())
	id := uuid.New()

	req := asSeller(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withParams(req, map[string]string{"inquiryId": id.String()}))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "contacted", svc.lastAction)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withParams(asSeller(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()), map[string]string{"inquiryId": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubListings struct {
	listings.Service
	status    string
	created   listings.CreateInput
	updated   uuid.UUID
	moderated string
	public    *listings.PublicListing
}

func (s *stubListings) ListForSeller(_ context.Context, _ uuid.UUID, status string) ([]listings.ListingDTO, error) {
	s.status = status
	return []listings.ListingDTO{}, nil
}

func (s *stubListings) Create(_ context.Context, sellerID uuid.UUID, input listings.CreateInput) (*listings.ListingDTO, error) {
	s.created = input
	return &listings.ListingDTO{ID: uuid.New(), SellerID: sellerID, Title: input.Title, Status: enums.ListingStatusDraft}, nil
}

func (s *stubListings) Update(_ context.Context, sellerID, id uuid.UUID, input listings.CreateInput) (*listings.ListingDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	s.updated = id
	s.created = input
	return &listings.ListingDTO{ID: id, SellerID: sellerID, Title: input.Title, Status: enums.ListingStatusApproved}, nil
}

func (s *stubListings) Submit(_ context.Context, _, id uuid.UUID) (*listings.ListingDTO, error) {
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatusPendingReview}, nil
}

func (s *stubListings) Moderate(_ context.Context, id uuid.UUID, status string) (*listings.ListingDTO, error) {
	s.moderated = status
	if status == "sold" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status")
	}
	return &listings.ListingDTO{ID: id, Status: enums.ListingStatus(status)}, nil
}

func (s *stubListings) GetPublic(_ context.Context, slug string) (*listings.PublicListing, error) {
	if s.public == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return s.public, nil
}

func TestSellerListingsFiltersByStatus(t *testing.T) {
	svc := &stubListings{}
	resp := httptest.NewRecorder()
	SellerListings(svc, testLogger()).ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodGet, "/?status=pending", nil), uuid.New()))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "pending", svc.status)
}

func TestCreateListing(t *testing.T) {
	svc := &stubListings{}
	body := `{"title":"2022 Hyundai Kona Electric","year":2022,"make":"Hyundai","model":"Kona Electric","price":"31500","province":"ON","city":"Ottawa"}`
	req := asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	CreateListing(svc, testLogger()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Hyundai", svc.created.Make)

	req = asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"colour":"red"}`)), uuid.New())
	resp = httptest.NewRecorder()
	CreateListing(svc, testLogger()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateListing(t *testing.T) {
	svc := &stubListings{}
	id := uuid.New()
	body := `{"title":"2022 Hyundai Kona Electric Ultimate","year":2022,"make":"Hyundai","model":"Kona Electric","price":"29900","province":"ON","city":"Ottawa"}`
	req := withParams(asSeller(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body)), uuid.New()), map[string]string{"listingId": id.String()})
	resp := httptest.NewRecorder()
	UpdateListing(svc, testLogger()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, svc.updated)
	assert.Equal(t, "2022 Hyundai Kona Electric Ultimate", svc.created.Title)

	req = withParams(asSeller(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body)), uuid.New()), map[string]string{"listingId": "not-a-uuid"})
	resp = httptest.NewRecorder()
	UpdateListing(svc, testLogger()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = withParams(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body)), map[string]string{"listingId": id.String()})
	resp = httptest.NewRecorder()
	UpdateListing(svc, testLogger()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSubmitListing(t *testing.T) {
	id := uuid.New()
	req := withParams(asSeller(httptest.NewRequest(http.MethodPost, "/", nil), uuid.New()), map[string]string{"listingId": id.String()})
	resp := httptest.NewRecorder()
	SubmitListing(&stubListings{}, testLogger()).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var dto listings.ListingDTO
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &dto))
	assert.Equal(t, enums.ListingStatusPendingReview, dto.Status)
}

func TestModerateListing(t *testing.T) {
	svc := &stubListings{}
	id := uuid.New()
	handler := ModerateListing(svc, testLogger())

	req := withParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"approved"}`)), map[string]string{"listingId": id.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "approved", svc.moderated)

	req = withParams(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"sold"}`)), map[string]string{"listingId": id.String()})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPublicListingDetail(t *testing.T) {
	svc := &stubListings{}
	req := withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"slug": "missing"})
	resp := httptest.NewRecorder()
	PublicListingDetail(svc, testLogger()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	svc.public = &listings.PublicListing{}
	resp = httptest.NewRecorder()
	PublicListingDetail(svc, testLogger()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "public, max-age=60", resp.Header().Get("Cache-Control"))
}

type stubInbox struct {
	opened int
}

func (s *stubInbox) UnreadCount(context.Context, uuid.UUID) (int64, error) { return 3, nil }

func (s *stubInbox) Open(context.Context, uuid.UUID) (*inbox.View, error) {
	s.opened++
	return &inbox.View{UnreadCount: 0, Items: []inbox.Item{}}, nil
}

func TestUnreadCountDoesNotOpenView(t *testing.T) {
	svc := &stubInbox{}
	resp := httptest.NewRecorder()
	UnreadInquiryCount(svc, testLogger()).ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"unread_count":3}`, string(decodeEnvelope(t, resp).Data))
	assert.Zero(t, svc.opened)

	resp = httptest.NewRecorder()
	NotificationsView(svc, testLogger()).ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New()))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, svc.opened)
}

type stubPhotos struct {
	listingID uuid.UUID
	created   bool
}

func (s *stubPhotos) UploadURL(_ context.Context, _, listingID uuid.UUID, input photos.UploadInput) (*photos.UploadTarget, error) {
	s.listingID = listingID
	if !strings.HasPrefix(input.ContentType, "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Only image uploads are allowed.")
	}
	return &photos.UploadTarget{}, nil
}

func (s *stubPhotos) Callback(_ context.Context, _, listingID uuid.UUID, key string) (*photos.CallbackResult, error) {
	s.listingID = listingID
	return &photos.CallbackResult{PhotoID: uuid.New(), Created: s.created}, nil
}

func TestPhotoUploadURL(t *testing.T) {
	svc := &stubPhotos{}
	id := uuid.New()
	handler := PhotoUploadURL(svc, testLogger())

	req := withParams(asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"filename":"front.jpg","content_type":"image/jpeg","size_bytes":2048}`)), uuid.New()), map[string]string{"listingId": id.String()})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, svc.listingID)

	req = withParams(asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"filename":"notes.pdf","content_type":"application/pdf"}`)), uuid.New()), map[string]string{"listingId": id.String()})
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPhotoUploadCallbackStatus(t *testing.T) {
	listingID := uuid.New()
	body := `{"listing_id":"` + listingID.String() + `","storage_key":"listings/photos/2026/10/a_front.jpg"}`

	svc := &stubPhotos{created: true}
	resp := httptest.NewRecorder()
	PhotoUploadCallback(svc, testLogger()).ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, listingID, svc.listingID)

	svc.created = false
	resp = httptest.NewRecorder()
	PhotoUploadCallback(svc, testLogger()).ServeHTTP(resp, asSeller(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New()))
	assert.Equal(t, http.StatusOK, resp.Code)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"postgres": stubPinger{}, "redis": nil}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-VoltLot-Env"))
	assert.Contains(t, resp.Body.String(), `"redis":"disabled"`)

	resp = httptest.NewRecorder()
	HealthReady(cfg, testLogger(), map[string]Pinger{"postgres": stubPinger{err: errors.New("refused")}}).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(&config.Config{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
