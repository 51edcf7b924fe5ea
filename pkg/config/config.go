package config

import (
	"sort"
	"strings"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"golang.org/x/net/idna"
	"golang.org/x/text/language"
)

type (
	// Configuration the effective site configuration of one environment
	Configuration struct {
		Localization Localization `json:"localization"`
		// Template resource template defaults inherited by every resource
		Template document.Document `json:"template"`
		// Headers header templates applied to every response
		Headers map[string]string `json:"headers"`
		TLS     TLS               `json:"tls"`
		// Redirect enables the plain http to https redirect handler
		Redirect Redirect `json:"redirect"`
	}
	Localization struct {
		Primary   string               `json:"primary"`
		Languages map[string]*Language `json:"languages"`
	}
	Language struct {
		Code     string `json:"-"`
		Name     string `json:"name"`
		Host     string `json:"host"`
		BasePath string `json:"base_path"`
		Country  string `json:"country"`
		Tag      language.Tag `json:"-"`
	}
	TLS struct {
		Certificate string `json:"certificate"`
		Key         string `json:"key"`
	}
	Redirect struct {
		Enabled bool `json:"enabled"`
	}
)

// Enabled reports whether a certificate pair is configured
func (t TLS) Enabled() bool {
	return t.Certificate != "" && t.Key != ""
}

// Codes returns the language codes, primary first, the rest sorted
func (l Localization) Codes() []string {
	codes := make([]string, 0, len(l.Languages))
	for code := range l.Languages {
		if code != l.Primary {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{l.Primary}, codes...)
}

// PrimaryLanguage returns the primary language entry
func (l Localization) PrimaryLanguage() *Language {
	return l.Languages[l.Primary]
}

// Hosts returns all distinct hosts
func (l Localization) Hosts() []string {
	seen := map[string]bool{}
	var hosts []string
	for _, code := range l.Codes() {
		h := l.Languages[code].Host
		if !seen[h] {
			seen[h] = true
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Path joins the language base path with a site relative path
func (l *Language) Path(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(l.BasePath, "/") + p
}

// Key returns the response cache key for a site relative path
func (l *Language) Key(p string) string {
	return l.Host + l.Path(p)
}

// URL returns the absolute url for a site relative path
func (l *Language) URL(p string) string {
	return "https://" + l.Key(p)
}

func (c *Configuration) validate() error {
	l := c.Localization
	if l.Primary == "" {
		return errs.Configuration("localization.primary is required")
	}
	if len(l.Languages) == 0 {
		return errs.Configuration("localization.languages must not be empty")
	}
	if _, ok := l.Languages[l.Primary]; !ok {
		return errs.Configuration("primary language %q has no entry in localization.languages", l.Primary)
	}
	for code, lang := range l.Languages {
		if lang == nil {
			return errs.Configuration("language %q must not be empty", code)
		}
		tag, err := language.Parse(code)
		if err != nil {
			return errs.Configuration("language %q is not a valid language tag: %s", code, err)
		}
		if lang.Host == "" {
			return errs.Configuration("language %q is missing host", code)
		}
		host, err := idna.Lookup.ToASCII(lang.Host)
		if err != nil {
			return errs.Configuration("language %q has an invalid host %q: %s", code, lang.Host, err)
		}
		if lang.BasePath == "" {
			lang.BasePath = "/"
		}
		if !strings.HasPrefix(lang.BasePath, "/") {
			return errs.Configuration("language %q base_path %q must start with /", code, lang.BasePath)
		}
		lang.Code = code
		lang.Host = host
		lang.Tag = tag
	}
	if (c.TLS.Certificate == "") != (c.TLS.Key == "") {
		return errs.Configuration("tls.certificate and tls.key must be set together")
	}
	if c.Template == nil {
		c.Template = document.Document{}
	}
	return nil
}
