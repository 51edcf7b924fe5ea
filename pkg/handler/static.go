package handler

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingBrotli   = "br"

	// HeaderPJAX request header selecting the pjax fragment
	HeaderPJAX = "X-PJAX"

	allowedMethods = "GET, HEAD, OPTIONS"
)

type (
	// Static serves the responses of one published generation
	Static struct {
		l            *zap.Logger
		responses    cache.Finder
		localization config.Localization
		errorPath    string
	}
	StaticOption func(*Static)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewStatic(l *zap.Logger, responses cache.Finder, localization config.Localization, opts ...StaticOption) *Static {
	inst := &Static{
		l:            l.Named("static"),
		responses:    responses,
		localization: localization,
		errorPath:    "/404.html",
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// StaticWithErrorPath site relative path of the not found page of each language
func StaticWithErrorPath(v string) StaticOption {
	return func(o *Static) {
		o.errorPath = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		w.Header().Set("Allow", allowedMethods)
		w.WriteHeader(http.StatusNoContent)
		h.count(http.StatusNoContent, EncodingIdentity)
		return
	default:
		w.Header().Set("Allow", allowedMethods)
		httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		h.count(http.StatusMethodNotAllowed, EncodingIdentity)
		return
	}

	host := Hostname(r.Host)
	p := r.URL.Path
	if p == "" {
		p = "/"
	}

	entry, ok := h.responses.Find(host + p)
	if !ok {
		entry, ok = h.notFound(host, p)
		if !ok {
			http.NotFound(w, r)
			h.count(http.StatusNotFound, EncodingIdentity)
			return
		}
	}
	h.serve(w, r, entry)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *Static) serve(w http.ResponseWriter, r *http.Request, entry *cache.Entry) {
	resp := entry.Select(r.Header.Get(HeaderPJAX) != "")
	header := w.Header()
	for _, v := range resp.Headers {
		header.Add(v.Name, v.Value)
	}

	// redirects carry their location only
	if resp.Status >= http.StatusMultipleChoices && resp.Status < http.StatusBadRequest {
		w.WriteHeader(resp.Status)
		h.count(resp.Status, EncodingIdentity)
		return
	}

	vary := []string{"Accept-Encoding"}
	if entry.PJAX != nil {
		vary = append(vary, HeaderPJAX)
	}
	header.Set("Vary", strings.Join(vary, ", "))
	header.Set("ETag", resp.ETag)
	if !resp.LastModified.IsZero() {
		header.Set("Last-Modified", resp.LastModified.UTC().Format(http.TimeFormat))
	}

	if resp.Status == http.StatusOK && MatchETag(r.Header.Get("If-None-Match"), resp.ETag) {
		w.WriteHeader(http.StatusNotModified)
		h.count(http.StatusNotModified, EncodingIdentity)
		return
	}

	encoding, body := Negotiate(r.Header.Get("Accept-Encoding"), resp)
	if encoding != EncodingIdentity {
		header.Set("Content-Encoding", encoding)
	}
	if resp.ContentType != "" {
		header.Set("Content-Type", resp.ContentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		if _, err := w.Write(body); err != nil {
			h.l.Debug("failed to write response", zap.String("url", r.Host+r.URL.Path), zap.Error(err))
		}
	}
	h.count(resp.Status, encoding)
}

// notFound finds the error page of the language owning host and path
func (h *Static) notFound(host, p string) (*cache.Entry, bool) {
	var lang *config.Language
	for _, code := range h.localization.Codes() {
		candidate, ok := h.localization.Languages[code]
		if !ok || candidate.Host != host {
			continue
		}
		base := strings.TrimSuffix(candidate.BasePath, "/")
		if p != base && !strings.HasPrefix(p, base+"/") {
			continue
		}
		if lang == nil || len(candidate.BasePath) > len(lang.BasePath) {
			lang = candidate
		}
	}
	if lang == nil {
		return nil, false
	}
	return h.responses.Find(lang.Key(h.errorPath))
}

func (h *Static) count(status int, encoding string) {
	metrics.StaticRequestCounter.WithLabelValues(strconv.Itoa(status), encoding).Inc()
}

// ------------------------------------------------------------------------------------------------
// ~ Utils
// ------------------------------------------------------------------------------------------------

// Hostname strips the port and lower cases host
func Hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// MatchETag reports whether an If-None-Match header value matches etag
func MatchETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// Negotiate picks the smallest body the client accepts, brotli before gzip
func Negotiate(acceptEncoding string, resp *cache.StaticResponse) (string, []byte) {
	accepted := acceptedEncodings(acceptEncoding)
	if resp.Brotli != nil && accepted[EncodingBrotli] {
		return EncodingBrotli, resp.Brotli
	}
	if resp.Gzip != nil && accepted[EncodingGzip] {
		return EncodingGzip, resp.Gzip
	}
	return EncodingIdentity, resp.Body
}

// acceptedEncodings parses an Accept-Encoding header, dropping q=0 entries
func acceptedEncodings(header string) map[string]bool {
	accepted := map[string]bool{}
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					q = f
				}
			}
		}
		if name == "*" {
			accepted[EncodingGzip] = accepted[EncodingGzip] || q > 0
			accepted[EncodingBrotli] = accepted[EncodingBrotli] || q > 0
			continue
		}
		accepted[name] = q > 0
	}
	return accepted
}
