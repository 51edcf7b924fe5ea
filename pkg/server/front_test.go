package server

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testBuild(t *testing.T, body string, certificate *tls.Certificate, redirect bool) *site.Build {
	t.Helper()
	b := cache.NewBuilder()
	require.NoError(t, b.AddResponse("example.com/", cache.NewEntry("/", &cache.StaticResponse{
		Status:      http.StatusOK,
		ContentType: "text/plain",
		Body:        []byte(body),
	}, nil)))
	return &site.Build{
		ID: b.ID(),
		Config: &config.Configuration{
			Localization: config.Localization{
				Primary:   "en",
				Languages: map[string]*config.Language{"en": {Code: "en", Host: "example.com", BasePath: "/"}},
			},
			Redirect: config.Redirect{Enabled: redirect},
		},
		Generation:  b.Seal(),
		Certificate: certificate,
	}
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestFrontBeforePublish(t *testing.T) {
	f := NewFront(zaptest.NewLogger(t))
	assert.Equal(t, http.StatusServiceUnavailable, get(f.HTTPS(), "https://example.com/").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(f.HTTP(), "http://example.com/").Code)
	_, err := f.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
	assert.ErrorIs(t, err, ErrNoCertificate)
}

func TestFrontSwap(t *testing.T) {
	f := NewFront(zaptest.NewLogger(t))
	https := f.HTTPS()

	f.Swap(testBuild(t, "first", nil, true))
	assert.Equal(t, "first", get(https, "https://example.com/").Body.String())
	// no certificate, plain http serves the site
	assert.Equal(t, "first", get(f.HTTP(), "http://example.com/").Body.String())

	cert := &tls.Certificate{}
	f.Swap(testBuild(t, "second", cert, true))
	assert.Equal(t, "second", get(https, "https://example.com/").Body.String())
	rec := get(f.HTTP(), "http://example.com/")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/", rec.Header().Get("Location"))

	got, err := f.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.Same(t, cert, got)

	// redirect disabled keeps serving over plain http
	f.Swap(testBuild(t, "third", cert, false))
	assert.Equal(t, "third", get(f.HTTP(), "http://example.com/").Body.String())
}

func TestNewHTTPSServer(t *testing.T) {
	f := NewFront(zaptest.NewLogger(t))
	srv, err := f.NewHTTPSServer(":0", f.HTTPS())
	require.NoError(t, err)
	assert.Contains(t, srv.TLSConfig.NextProtos, "h2")
	assert.NotNil(t, srv.TLSConfig.GetCertificate)
}
