package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/voltlot/voltlot-backend/pkg/validate"
)

// ParseQueryInt reads an integer query parameter bounded by [min, max]. An
// absent parameter yields def.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validate.FieldError(key, "must be an integer")
	}
	if value < min || value > max {
		return 0, validate.FieldError(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return value, nil
}

// QueryString returns a trimmed query parameter capped at maxRunes.
func QueryString(r *http.Request, key string, maxRunes int) string {
	return SanitizeString(r.URL.Query().Get(key), maxRunes)
}
