package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/api/responses"
	pkgAuth "github.com/voltlot/voltlot-backend/pkg/auth"
	"github.com/voltlot/voltlot-backend/pkg/config"
	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

// ActiveUserChecker reports whether a token's subject may still act.
type ActiveUserChecker interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Auth validates a bearer token and seeds the request context with the claims.
// When users is non-nil, disabled accounts are rejected even with a valid token.
func Auth(cfg config.JWTConfig, users ActiveUserChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if users != nil {
				ok, err := users.IsActive(r.Context(), claims.UserID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate account"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled"))
					return
				}
			}

			ctx := WithActor(r.Context(), claims.UserID.String(), claims.Role)
			if claims.DealerID != nil {
				ctx = context.WithValue(ctx, ctxDealerID, claims.DealerID.String())
			}
			if logg != nil {
				ctx = logg.WithFields(logg.WithUserID(ctx, claims.UserID.String()), map[string]any{
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
