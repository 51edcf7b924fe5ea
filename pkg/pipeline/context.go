package pipeline

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/render"
	"github.com/foomo/sitepress/pkg/resolve"
	"github.com/foomo/sitepress/pkg/resource"
)

type (
	// Language active language of one execution
	Language struct {
		Primary      string
		Current      *config.Language
		Localization config.Localization
	}
	// Context everything a pipeline may read while executing one resource in
	// one language. Resource, Responses and Resolver are read only.
	Context struct {
		Resource  *resource.Resource
		Responses cache.Finder
		Resolver  *resolve.Resolver
		// Input path of the input file, empty for kinds without input
		Input string
		// Stem target url path without extension
		Stem     string
		Headers  *render.Headers
		Language Language
		Sitemap  *Sitemap
		Feed     *Feed
		Images   ImageCodec
		// Created generation time
		Created time.Time
	}
)

// Code returns the current language code
func (c *Context) Code() string {
	return c.Language.Current.Code
}

// Path returns the stem with ext
func (c *Context) Path(ext string) string {
	return WithExt(c.Stem, ext)
}

// URL returns the absolute url of a site relative path in the current language
func (c *Context) URL(p string) string {
	return c.Language.Current.URL(p)
}

// Alternates returns the url of p in every configured language
func (c *Context) Alternates(p string) map[string]string {
	alternates := make(map[string]string, len(c.Language.Localization.Languages))
	for code, lang := range c.Language.Localization.Languages {
		alternates[code] = lang.URL(p)
	}
	return alternates
}

func (c *Context) Resolve(ref resource.Reference) (string, error) {
	url, _, err := c.Resolver.Resolve(ref, c.Language.Primary, c.Code())
	return url, err
}

func (c *Context) Data(ref resource.Reference) (resource.UrlData, error) {
	return c.Resolver.Data(ref, c.Language.Primary, c.Code())
}

func (c *Context) Title(ref resource.Reference) (string, error) {
	return c.Resolver.Title(ref, c.Language.Primary, c.Code())
}

// ResourceTitle returns the title of the executing resource, empty if none
func (c *Context) ResourceTitle() string {
	title, _ := c.Resource.TitleFor(c.Language.Primary, c.Code())
	return title
}

// ReadInput reads the input file
func (c *Context) ReadInput() ([]byte, error) {
	if c.Input == "" {
		return nil, errs.InvalidFile(c.Resource.Definition, "resource %s has no input file", c.Resource.Key)
	}
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return nil, errs.IO(c.Input, err)
	}
	return data, nil
}

// ReadFile reads a file relative to the resource folder
func (c *Context) ReadFile(name string) ([]byte, string, error) {
	filename := filepath.Join(c.Resource.Folder, filepath.FromSlash(name))
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, filename, errs.IO(filename, err)
	}
	return data, filename, nil
}

// NewOutput returns a cacheable 200 output with the configured headers rendered
func (c *Context) NewOutput(p, contentType string, body []byte) (Output, error) {
	headers, err := c.Headers.Render(render.HeaderData{
		URL:         c.URL(p),
		Path:        p,
		ContentType: contentType,
		Language:    c.Code(),
		Kind:        c.Resource.Kind,
	})
	if err != nil {
		return Output{}, errs.WithPath(c.Resource.Definition, err)
	}
	return Output{
		Path:        p,
		Tags:        map[resource.Tag]resource.Details{},
		Status:      http.StatusOK,
		ContentType: contentType,
		Headers:     headers,
		Body:        body,
		Cacheable:   true,
	}, nil
}
