package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/api/middleware"
	"github.com/voltlot/voltlot-backend/api/responses"
	"github.com/voltlot/voltlot-backend/api/validators"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// ChallengeTokens extracts the bot-challenge response from submitted fields.
type ChallengeTokens interface {
	Token(lookup func(field string) string) string
}

type inquiryCreated struct {
	ID             uuid.UUID            `json:"id"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
}

// SubmitInquiry accepts a buyer inquiry as JSON or as an HTML form post.
func SubmitInquiry(svc inquiries.Service, tokens ChallengeTokens, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lookup, err := submittedFields(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inquiries.SubmitInput{
			Slug:        chi.URLParam(r, "slug"),
			Name:        lookup("name"),
			Email:       lookup("email"),
			PhoneNumber: lookup("phone_number"),
			Message:     lookup("message"),
			RemoteAddr:  middleware.ClientIPFromContext(r.Context()),
			UserAgent:   r.UserAgent(),
			Referer:     r.Referer(),
		}
		if tokens != nil {
			input.CaptchaToken = tokens.Token(lookup)
		}

		inquiry, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inquiryCreated{
			ID:             inquiry.ID,
			DeliveryStatus: inquiry.DeliveryStatus,
		})
	}
}

// submittedFields returns a field lookup over either body encoding. JSON
// values that are not strings are rendered with fmt.
func submittedFields(r *http.Request) (func(string) string, error) {
	if validators.IsFormRequest(r) {
		if err := validators.ParseForm(r); err != nil {
			return nil, err
		}
		return func(field string) string { return r.PostForm.Get(field) }, nil
	}

	body := map[string]any{}
	decoder := json.NewDecoder(io.LimitReader(r.Body, validators.MaxBodyBytes))
	if err := decoder.Decode(&body); err != nil && err != io.EOF {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	return func(field string) string {
		switch v := body[field].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}, nil
}
