package render

import (
	"bytes"
	"net/http"
	"sort"
	"strings"
	"text/template"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/errs"
)

type (
	// HeaderData values available to header templates
	HeaderData struct {
		URL         string
		Path        string
		ContentType string
		Language    string
		Kind        string
	}
	// Headers renders configured response header templates
	Headers struct {
		names     []string
		templates map[string]*template.Template
	}
)

// NewHeaders parses the header templates, keyed by header name
func NewHeaders(definitions map[string]string) (*Headers, error) {
	h := &Headers{templates: map[string]*template.Template{}}
	return h.With(definitions)
}

// With returns a copy of h with definitions added or replaced. An empty
// definition removes the header.
func (h *Headers) With(definitions map[string]string) (*Headers, error) {
	next := &Headers{templates: make(map[string]*template.Template, len(h.templates)+len(definitions))}
	for name, tpl := range h.templates {
		next.templates[name] = tpl
	}
	for name, text := range definitions {
		name = http.CanonicalHeaderKey(strings.TrimSpace(name))
		if name == "" {
			return nil, errs.Configuration("header name must not be empty")
		}
		if text == "" {
			delete(next.templates, name)
			continue
		}
		tpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, errs.Configuration("invalid template for header %s: %s", name, err)
		}
		next.templates[name] = tpl
	}
	for name := range next.templates {
		next.names = append(next.names, name)
	}
	sort.Strings(next.names)
	return next, nil
}

// Render executes every template, headers rendering to an empty value are omitted
func (h *Headers) Render(data HeaderData) ([]cache.Header, error) {
	headers := make([]cache.Header, 0, len(h.names))
	var buf bytes.Buffer
	for _, name := range h.names {
		buf.Reset()
		if err := h.templates[name].Execute(&buf, data); err != nil {
			return nil, errs.Configuration("failed to render header %s: %s", name, err)
		}
		if value := strings.TrimSpace(buf.String()); value != "" {
			headers = append(headers, cache.Header{Name: name, Value: value})
		}
	}
	return headers, nil
}

func (h *Headers) Len() int {
	return len(h.names)
}
