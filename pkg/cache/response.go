package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"
)

type (
	// Header a single response header
	Header struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	// StaticResponse a pre built, pre compressed http response
	StaticResponse struct {
		Status       int       `json:"status"`
		ContentType  string    `json:"contentType"`
		Headers      []Header  `json:"headers"`
		Body         []byte    `json:"-"`
		Gzip         []byte    `json:"-"`
		Brotli       []byte    `json:"-"`
		ETag         string    `json:"etag"`
		LastModified time.Time `json:"lastModified"`
	}
	// Entry the regular response and its optional pjax variant, sharing one entity tag
	Entry struct {
		Regular *StaticResponse
		PJAX    *StaticResponse
		// Producer key of the resource that produced the entry
		Producer string
		// Root entries are served at the host root, outside any language base path
		Root bool
	}
)

// ETag derives a strong entity tag from content
func ETag(parts ...[]byte) string {
	h := sha256.New()
	for _, part := range parts {
		_, _ = h.Write(part)
		_, _ = h.Write([]byte{0})
	}
	return `"` + base64.RawURLEncoding.EncodeToString(h.Sum(nil)[:16]) + `"`
}

// NewEntry builds an entry, deriving a shared entity tag from both bodies
func NewEntry(producer string, regular, pjax *StaticResponse) *Entry {
	parts := [][]byte{regular.Body}
	if pjax != nil {
		parts = append(parts, pjax.Body)
	}
	etag := ETag(parts...)
	regular.ETag = etag
	if pjax != nil {
		pjax.ETag = etag
	}
	return &Entry{Regular: regular, PJAX: pjax, Producer: producer}
}

// ETag shared entity tag
func (e *Entry) ETag() string {
	return e.Regular.ETag
}

// Select returns the pjax variant when requested and present
func (e *Entry) Select(pjax bool) *StaticResponse {
	if pjax && e.PJAX != nil {
		return e.PJAX
	}
	return e.Regular
}

// HeaderValue returns the first header value for name
func (r *StaticResponse) HeaderValue(name string) string {
	for _, h := range r.Headers {
		if http.CanonicalHeaderKey(h.Name) == http.CanonicalHeaderKey(name) {
			return h.Value
		}
	}
	return ""
}

// Size uncompressed body size
func (r *StaticResponse) Size() int64 {
	return int64(len(r.Body))
}
