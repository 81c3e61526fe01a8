package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/organizations", strings.NewReader(`{"name":"acme"}`))

	var body struct {
		Name string `json:"name"`
	}
	require.NoError(t, ParseJSON(req, &body))
	assert.Equal(t, "acme", body.Name)
}

func TestParseJSONInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/organizations", strings.NewReader(`{not json`))

	var body map[string]string
	err := ParseJSON(req, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/organizations", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()

	var body map[string]string
	ok := ParseJSONOrError(rec, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/organizations/acme", nil)
	req = mux.SetURLVars(req, map[string]string{"org_name": "acme"})

	val, err := ParsePathString(req, "org_name")
	require.NoError(t, err)
	assert.Equal(t, "acme", val)

	_, err = ParsePathString(req, "team_name")
	assert.Error(t, err)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users?org_name=acme", nil)

	assert.Equal(t, "acme", ParseQueryString(req, "org_name", ""))
	assert.Equal(t, "fallback", ParseQueryString(req, "missing", "fallback"))
}

func TestRequireNonEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "acme", "name"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "name"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}
