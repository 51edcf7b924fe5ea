package pipeline

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/pkg/errors"
)

const htmlContentType = "text/html; charset=utf-8"

type (
	// Page html page rendered from its input template
	Page struct {
		// PJAX template file rendering the fragment served to pjax requests
		PJAX string `json:"pjax"`
		// AMP template file rendering the amp variant
		AMP    string               `json:"amp"`
		Links  References           `json:"links"`
		Images []resource.Reference `json:"images"`
		Data   document.Document    `json:"data"`
		// Status response status, error pages are excluded from the sitemap
		Status  int        `json:"status"`
		NoIndex bool       `json:"noindex"`
		Feed    *FeedEntry `json:"feed"`
	}
	// FeedEntry publishes the page to a feed channel
	FeedEntry struct {
		Channel     string    `json:"channel"`
		Description string    `json:"description"`
		Published   time.Time `json:"published"`
	}
	// PageData template data of a page
	PageData struct {
		Title      string
		Language   string
		Lang       string
		URL        string
		Path       string
		AMPURL     string
		Alternates map[string]string
		Data       document.Document
		Status     int
	}
)

func (p *Page) Kind() string       { return "page" }
func (p *Page) Priority() Priority { return PriorityAggregate }

func (p *Page) References() []resource.Reference {
	return append(p.Links.Sorted(), p.Images...)
}

func (p *Page) Validate() error {
	if p.Status != 0 && (p.Status < 200 || p.Status > 599) {
		return errors.Errorf("invalid status %d", p.Status)
	}
	if p.Feed != nil && p.Feed.Channel == "" {
		return errors.New("feed.channel is required")
	}
	return nil
}

func (p *Page) Execute(ctx *Context) ([]Output, error) {
	path := ctx.Stem
	if path == "" {
		path = "/"
	}
	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	data := PageData{
		Title:      ctx.ResourceTitle(),
		Language:   ctx.Code(),
		Lang:       ctx.Language.Current.Tag.String(),
		URL:        ctx.URL(path),
		Path:       path,
		Alternates: ctx.Alternates(path),
		Data:       p.Data,
		Status:     status,
	}
	if p.AMP != "" {
		data.AMPURL = ctx.URL(ampPath(path))
	}

	source, err := ctx.ReadInput()
	if err != nil {
		return nil, err
	}
	body, err := p.render(ctx, ctx.Input, source, data)
	if err != nil {
		return nil, err
	}
	out, err := ctx.NewOutput(path, htmlContentType, body)
	if err != nil {
		return nil, err
	}
	out.Status = status
	details := resource.GenericDetails(htmlContentType, int64(len(body)))
	out.Tag(resource.DefaultTag, details)

	if p.PJAX != "" {
		fragment, err := p.renderFile(ctx, p.PJAX, data)
		if err != nil {
			return nil, err
		}
		pjax := out
		pjax.Tags = nil
		pjax.Body = fragment
		out.PJAX = &pjax
		out.Tag(resource.PJAXTag, details)
	}
	outputs := []Output{out}

	if p.AMP != "" {
		body, err := p.renderFile(ctx, p.AMP, data)
		if err != nil {
			return nil, err
		}
		amp, err := ctx.NewOutput(ampPath(path), htmlContentType, body)
		if err != nil {
			return nil, err
		}
		amp.Status = status
		amp.Tag(resource.AMPTag, resource.GenericDetails(htmlContentType, int64(len(body))))
		outputs = append(outputs, amp)
	}

	if status == http.StatusOK && !p.NoIndex {
		entry := SitemapEntry{
			URL:          data.URL,
			LastModified: ctx.Created,
			Alternates:   data.Alternates,
		}
		for _, ref := range p.Images {
			url, err := ctx.Resolve(ref)
			if err != nil {
				return nil, err
			}
			entry.Images = append(entry.Images, url)
		}
		ctx.Sitemap.Add(ctx.Code(), entry)
	}
	if p.Feed != nil {
		published := p.Feed.Published
		if published.IsZero() {
			published = ctx.Created
		}
		ctx.Feed.Add(ctx.Code(), FeedItem{
			Channel:     p.Feed.Channel,
			Title:       data.Title,
			URL:         data.URL,
			Description: p.Feed.Description,
			Published:   published,
		})
	}
	return outputs, nil
}

func (p *Page) renderFile(ctx *Context, name string, data PageData) ([]byte, error) {
	source, filename, err := ctx.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return p.render(ctx, filename, source, data)
}

func (p *Page) render(ctx *Context, filename string, source []byte, data PageData) ([]byte, error) {
	tpl, err := template.New(filename).Funcs(p.Links.funcs(ctx)).Parse(string(source))
	if err != nil {
		return nil, errs.Codec(filename, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, errs.WithPath(filename, resolutionError(err))
	}
	return buf.Bytes(), nil
}

// ampPath returns the amp variant path of a page path
func ampPath(path string) string {
	if path == "/" {
		return "/amp/"
	}
	return "/amp" + path
}
