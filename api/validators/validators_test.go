package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/voltlot/voltlot-backend/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=ten&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	v, err = ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(req, "big", 25, 1, 100)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"big": "must be between 1 and 100"}, pkgerrors.As(err).Details())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Montréal", SanitizeString("  Montréal  ", 0))
	assert.Equal(t, "Mont", SanitizeString("Montréal", 4))
	assert.Equal(t, "Montré", SanitizeString("Montréal", 6))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}
	var dest body

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &dest), pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"name": "is required"}, pkgerrors.As(err).Details())

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSONBody(req, &dest))
}

func TestIsFormRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	assert.True(t, IsFormRequest(req))

	req.Header.Set("Content-Type", "application/json")
	assert.False(t, IsFormRequest(req))
}
