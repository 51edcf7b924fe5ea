package pipeline

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/pkg/errors"
)

// ------------------------------------------------------------------------------------------------
// ~ Sitemap
// ------------------------------------------------------------------------------------------------

// SitemapIndex xml sitemap over every indexed page of the language
type SitemapIndex struct{}

type (
	sitemapURLSet struct {
		XMLName    xml.Name         `xml:"urlset"`
		XMLNS      string           `xml:"xmlns,attr"`
		XHTML      string           `xml:"xmlns:xhtml,attr"`
		ImageXMLNS string           `xml:"xmlns:image,attr"`
		URLs       []sitemapURLNode `xml:"url"`
	}
	sitemapURLNode struct {
		Loc        string             `xml:"loc"`
		LastMod    string             `xml:"lastmod,omitempty"`
		Alternates []sitemapAlternate `xml:"xhtml:link"`
		Images     []sitemapImage     `xml:"image:image"`
	}
	sitemapAlternate struct {
		Rel      string `xml:"rel,attr"`
		HrefLang string `xml:"hreflang,attr"`
		Href     string `xml:"href,attr"`
	}
	sitemapImage struct {
		Loc string `xml:"image:loc"`
	}
)

func (p *SitemapIndex) Kind() string                     { return "sitemap" }
func (p *SitemapIndex) Priority() Priority               { return PriorityIndex }
func (p *SitemapIndex) References() []resource.Reference { return nil }

func (p *SitemapIndex) Execute(ctx *Context) ([]Output, error) {
	set := sitemapURLSet{
		XMLNS:      "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML:      "http://www.w3.org/1999/xhtml",
		ImageXMLNS: "http://www.google.com/schemas/sitemap-image/1.1",
	}
	for _, entry := range ctx.Sitemap.Entries(ctx.Code()) {
		node := sitemapURLNode{Loc: entry.URL}
		if !entry.LastModified.IsZero() {
			node.LastMod = entry.LastModified.UTC().Format(time.RFC3339)
		}
		for _, code := range ctx.Language.Localization.Codes() {
			if href, ok := entry.Alternates[code]; ok && len(entry.Alternates) > 1 {
				node.Alternates = append(node.Alternates, sitemapAlternate{Rel: "alternate", HrefLang: code, Href: href})
			}
		}
		for _, image := range entry.Images {
			node.Images = append(node.Images, sitemapImage{Loc: image})
		}
		set.URLs = append(set.URLs, node)
	}
	body, err := encodeXML(set)
	if err != nil {
		return nil, err
	}
	return xmlOutput(ctx, ctx.Path(".xml"), "application/xml; charset=utf-8", body)
}

// ------------------------------------------------------------------------------------------------
// ~ RSS
// ------------------------------------------------------------------------------------------------

// RSS feed over the pages published to a channel
type RSS struct {
	Channel     string `json:"channel"`
	Description string `json:"description"`
	Limit       int    `json:"limit"`
}

type (
	rssDocument struct {
		XMLName xml.Name   `xml:"rss"`
		Version string     `xml:"version,attr"`
		Channel rssChannel `xml:"channel"`
	}
	rssChannel struct {
		Title       string    `xml:"title"`
		Link        string    `xml:"link"`
		Description string    `xml:"description"`
		Language    string    `xml:"language"`
		Items       []rssItem `xml:"item"`
	}
	rssItem struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		GUID        string `xml:"guid"`
		Description string `xml:"description,omitempty"`
		PubDate     string `xml:"pubDate"`
	}
)

func (p *RSS) Kind() string                     { return "rss" }
func (p *RSS) Priority() Priority               { return PriorityIndex }
func (p *RSS) References() []resource.Reference { return nil }

func (p *RSS) Validate() error {
	if p.Channel == "" {
		return errors.New("channel is required")
	}
	if p.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	return nil
}

func (p *RSS) Execute(ctx *Context) ([]Output, error) {
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       ctx.ResourceTitle(),
			Link:        ctx.URL("/"),
			Description: p.Description,
			Language:    ctx.Language.Current.Tag.String(),
		},
	}
	items := ctx.Feed.Items(ctx.Code(), p.Channel)
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	for _, item := range items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       item.Title,
			Link:        item.URL,
			GUID:        item.URL,
			Description: item.Description,
			PubDate:     item.Published.UTC().Format(time.RFC1123Z),
		})
	}
	body, err := encodeXML(doc)
	if err != nil {
		return nil, err
	}
	return xmlOutput(ctx, ctx.Path(".xml"), "application/rss+xml; charset=utf-8", body)
}

// ------------------------------------------------------------------------------------------------
// ~ Robots
// ------------------------------------------------------------------------------------------------

// Robots robots.txt served at the host root
type Robots struct {
	Allow    []string `json:"allow"`
	Disallow []string `json:"disallow"`
	// Sitemaps site relative sitemap paths announced per language
	Sitemaps []string `json:"sitemaps"`
}

func (p *Robots) Kind() string                     { return "robots" }
func (p *Robots) Priority() Priority               { return PriorityIndex }
func (p *Robots) References() []resource.Reference { return nil }

func (p *Robots) Execute(ctx *Context) ([]Output, error) {
	var buf bytes.Buffer
	buf.WriteString("User-agent: *\n")
	for _, v := range p.Allow {
		buf.WriteString("Allow: " + v + "\n")
	}
	for _, v := range p.Disallow {
		buf.WriteString("Disallow: " + v + "\n")
	}
	if len(p.Allow) == 0 && len(p.Disallow) == 0 {
		buf.WriteString("Disallow:\n")
	}
	// every language sharing the host is announced by the one robots.txt
	for _, code := range ctx.Language.Localization.Codes() {
		lang := ctx.Language.Localization.Languages[code]
		if lang.Host != ctx.Language.Current.Host {
			continue
		}
		for _, sitemap := range p.Sitemaps {
			buf.WriteString("Sitemap: " + lang.URL(sitemap) + "\n")
		}
	}
	const contentType = "text/plain; charset=utf-8"
	out, err := ctx.NewOutput("/robots.txt", contentType, buf.Bytes())
	if err != nil {
		return nil, err
	}
	out.Root = true
	out.Tag(resource.DefaultTag, resource.GenericDetails(contentType, int64(buf.Len())))
	return []Output{out}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Redirect
// ------------------------------------------------------------------------------------------------

// Redirect permanent or temporary redirect to a reference
type Redirect struct {
	Target resource.Reference `json:"target"`
	Status int                `json:"status"`
}

func (p *Redirect) Kind() string       { return "redirect" }
func (p *Redirect) Priority() Priority { return PriorityIndex }

func (p *Redirect) References() []resource.Reference {
	return []resource.Reference{p.Target}
}

func (p *Redirect) Validate() error {
	if !p.Target.IsExternal() && p.Target.Resource == nil {
		return errors.New("target is required")
	}
	switch p.Status {
	case 0, http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return nil
	default:
		return errors.Errorf("status %d is not a redirect", p.Status)
	}
}

func (p *Redirect) Execute(ctx *Context) ([]Output, error) {
	location, err := ctx.Resolve(p.Target)
	if err != nil {
		return nil, err
	}
	status := p.Status
	if status == 0 {
		status = http.StatusMovedPermanently
	}
	path := ctx.Stem
	if path == "" {
		path = "/"
	}
	out, err := ctx.NewOutput(path, "", nil)
	if err != nil {
		return nil, err
	}
	out.Status = status
	out.Cacheable = false
	out.Headers = append(out.Headers, cache.Header{Name: "Location", Value: location})
	details := resource.GenericDetails("", 0)
	out.Tag(resource.DefaultTag, details).Tag(resource.RedirectTag, details)
	return []Output{out}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func encodeXML(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode xml")
	}
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func xmlOutput(ctx *Context, path, contentType string, body []byte) ([]Output, error) {
	out, err := ctx.NewOutput(path, contentType, body)
	if err != nil {
		return nil, err
	}
	out.Tag(resource.DefaultTag, resource.GenericDetails(contentType, int64(len(body))))
	return []Output{out}, nil
}
