package handler

import (
	"net/http"
	"testing"

	"github.com/foomo/sitepress/pkg/site"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestHTTPRoutes(t *testing.T) {
	l := zaptest.NewLogger(t)
	h := NewHTTP(l, site.New(l, t.TempDir()))

	rec := serve(t, h, http.MethodGet, "/sitepress/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply": {"loaded": false, "created": "0001-01-01T00:00:00Z", "resources": 0, "responses": 0, "duration": 0}}`, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/sitepress/manifest", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, h, http.MethodGet, "/sitepress/update", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// no update routine is running, the request can not be queued
	rec = serve(t, h, http.MethodPost, "/sitepress/update", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rejected":true`)

	rec = serve(t, h, http.MethodGet, "/sitepress/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(t, h, http.MethodGet, "/other", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
