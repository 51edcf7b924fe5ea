package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/foomo/sitepress/pkg/handler"
	"github.com/foomo/sitepress/pkg/site"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

type (
	// Front serves the published build. Handlers and certificate of a build
	// are swapped in together once it is published.
	Front struct {
		l           *zap.Logger
		errorPath   string
		static      atomic.Pointer[http.Handler]
		redirect    atomic.Pointer[http.Handler]
		certificate atomic.Pointer[tls.Certificate]
	}
	FrontOption func(*Front)
)

var ErrNoCertificate = errors.New("no certificate loaded")

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewFront(l *zap.Logger, opts ...FrontOption) *Front {
	inst := &Front{
		l: l.Named("front"),
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func FrontWithErrorPath(v string) FrontOption {
	return func(o *Front) {
		o.errorPath = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Swap installs the handlers and certificate of b
func (f *Front) Swap(b *site.Build) {
	var opts []handler.StaticOption
	if f.errorPath != "" {
		opts = append(opts, handler.StaticWithErrorPath(f.errorPath))
	}
	var static http.Handler = handler.NewStatic(f.l, b.Generation, b.Config.Localization, opts...)

	// plain http serves the site itself unless it can redirect to https
	redirect := static
	if b.Certificate != nil && b.Config.Redirect.Enabled {
		redirect = handler.NewRedirect(f.l, b.Config.Localization)
	}

	if b.Certificate != nil {
		f.certificate.Store(b.Certificate)
	}
	f.static.Store(&static)
	f.redirect.Store(&redirect)
	f.l.Info("swapped handlers",
		zap.String("generation", b.ID),
		zap.Bool("tls", b.Certificate != nil),
		zap.Bool("redirect", b.Certificate != nil && b.Config.Redirect.Enabled),
	)
}

// HTTPS handler of the tls listener
func (f *Front) HTTPS() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(&f.static, w, r)
	})
}

// HTTP handler of the plain listener
func (f *Front) HTTP() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(&f.redirect, w, r)
	})
}

// GetCertificate implements tls.Config.GetCertificate with the certificate
// of the latest build
func (f *Front) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	if c := f.certificate.Load(); c != nil {
		return c, nil
	}
	return nil, ErrNoCertificate
}

// NewHTTPSServer returns a http/2 enabled tls server for h
func (f *Front) NewHTTPSServer(addr string, h http.Handler) (*http.Server, error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: f.GetCertificate,
		},
	}
	if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
		return nil, errors.Wrap(err, "failed to configure http2")
	}
	return srv, nil
}

// ServeTLS runs srv until ctx is done
func (f *Front) ServeTLS(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		f.l.Info("starting tls listener", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServeTLS("", "")
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func serve(p *atomic.Pointer[http.Handler], w http.ResponseWriter, r *http.Request) {
	h := p.Load()
	if h == nil {
		http.Error(w, "site not published yet", http.StatusServiceUnavailable)
		return
	}
	(*h).ServeHTTP(w, r)
}
