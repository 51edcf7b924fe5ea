package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/discovery"
	"github.com/foomo/sitepress/pkg/document"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/render"
	"github.com/foomo/sitepress/pkg/resolve"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func localization() config.Localization {
	return config.Localization{
		Primary: "en",
		Languages: map[string]*config.Language{
			"en": {Code: "en", Host: "example.com", BasePath: "/", Tag: language.English},
			"de": {Code: "de", Host: "example.com", BasePath: "/de", Tag: language.German},
		},
	}
}

type fixture struct {
	t         *testing.T
	dir       string
	resources resource.Map
	responses *cache.Builder
	sitemap   *Sitemap
	feed      *Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:         t,
		dir:       t.TempDir(),
		resources: resource.Map{},
		responses: cache.NewBuilder(),
		sitemap:   NewSitemap(),
		feed:      NewFeed(),
	}
}

func (f *fixture) write(name string, data []byte) string {
	f.t.Helper()
	filename := filepath.Join(f.dir, name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(filename), 0o755))
	require.NoError(f.t, os.WriteFile(filename, data, 0o644))
	return filename
}

func (f *fixture) resource(key string, p Pipeline) *resource.Resource {
	r := &resource.Resource{
		Key:        resource.ParseKey(key),
		Name:       resource.ParseKey(key).String(),
		Folder:     f.dir,
		Definition: filepath.Join(f.dir, "test.res.yaml"),
		Payload:    p,
	}
	r.Header.Kind = p.Kind()
	f.resources[r.Key.String()] = r
	return r
}

func (f *fixture) context(r *resource.Resource, lang, input string) *Context {
	f.t.Helper()
	headers, err := render.NewHeaders(map[string]string{"Content-Language": "{{ .Language }}"})
	require.NoError(f.t, err)
	l := localization()
	return &Context{
		Resource:  r,
		Responses: f.responses,
		Resolver:  resolve.New(f.resources, f.responses),
		Input:     input,
		Stem:      r.Key.String(),
		Headers:   headers,
		Language:  Language{Primary: l.Primary, Current: l.Languages[lang], Localization: l},
		Sitemap:   f.sitemap,
		Feed:      f.feed,
		Images:    NearestCodec{},
		Created:   created,
	}
}

// publish attaches outputs the way dispatch does
func (f *fixture) publish(r *resource.Resource, lang string, outputs []Output) {
	f.t.Helper()
	l := localization().Languages[lang]
	for _, out := range outputs {
		url := l.URL(out.Path)
		for tag, details := range out.Tags {
			r.AddUrlData(tag, lang, resource.UrlData{URL: url, Details: details})
		}
		regular := &cache.StaticResponse{Status: out.Status, ContentType: out.ContentType, Body: out.Body}
		require.NoError(f.t, f.responses.AddResponse(l.Key(out.Path), cache.NewEntry(r.Key.String(), regular, nil)))
	}
}

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPriorities(t *testing.T) {
	assert.Equal(t, []Priority{PriorityLeaf, PriorityDependent, PriorityAggregate, PriorityIndex}, Priorities())
	assert.True(t, PriorityLeaf < PriorityDependent)
	assert.True(t, PriorityAggregate < PriorityIndex)
	assert.Equal(t, "aggregate", PriorityAggregate.String())

	for _, kind := range Kinds() {
		p := kind.New()
		assert.Equal(t, kind.Name, p.Kind())
	}
	assert.Equal(t, PriorityLeaf, (&Raster{}).Priority())
	assert.Equal(t, PriorityDependent, (&CSS{}).Priority())
	assert.Equal(t, PriorityAggregate, (&Page{}).Priority())
	assert.Equal(t, PriorityIndex, (&SitemapIndex{}).Priority())
}

func TestWithExt(t *testing.T) {
	assert.Equal(t, "/index.xml", WithExt("/", ".xml"))
	assert.Equal(t, "/logo.png", WithExt("/logo", ".png"))
	assert.Equal(t, "/feed.xml", WithExt("/feed.xml", ".xml"))
	assert.Equal(t, "/about", WithExt("/about", ""))
}

func TestRegistryDecode(t *testing.T) {
	f := newFixture(t)
	f.write("logo.png", pngImage(t, 4, 4))
	f.write("logo.res.yaml", []byte("widths: [2]"))
	f.write("style.css", []byte("body{}"))
	f.write("feed.res.yaml", []byte("kind: rss"))
	f.write("orphan.res.yaml", []byte("title: {en: x}"))
	f.write("icon.ico", []byte{0, 0, 1, 0})
	r := NewRegistry()

	decode := func(name string, doc document.Document) (resource.Payload, error) {
		var header resource.Header
		require.NoError(t, document.Decode(doc, &header))
		return r.Decode(discovery.Request{Key: resource.ParseKey("/" + name), Name: name, Folder: f.dir, Definition: filepath.Join(f.dir, name+".res.yaml"), Header: header, Document: doc})
	}

	p, err := decode("logo", document.Document{"widths": []interface{}{2.0}})
	require.NoError(t, err)
	require.IsType(t, &Raster{}, p)
	assert.Equal(t, []int{2}, p.(*Raster).Widths)

	p, err = decode("feed", document.Document{"kind": "rss", "channel": "news"})
	require.NoError(t, err)
	assert.Equal(t, "rss", p.Kind())

	p, err = decode("theme", document.Document{"kind": "css", "input": "style.css"})
	require.NoError(t, err)
	assert.Equal(t, "css", p.Kind())

	p, err = decode("favicon", document.Document{"kind": "raw", "input": "icon.ico", "root": true})
	require.NoError(t, err)
	assert.True(t, p.(*Raw).Root)

	_, err = decode("orphan", document.Document{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))

	_, err = decode("logo", document.Document{"kind": "teleport"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))

	_, err = decode("orphan", document.Document{"kind": "page"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidFile))

	_, err = decode("feed", document.Document{"kind": "rss"})
	require.Error(t, err, "rss requires a channel")

	_, err = decode("logo", document.Document{"widths": "wide"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindInvalidFile))

	input, err := r.Input(&resource.Resource{Name: "logo", Folder: f.dir, Header: resource.Header{Kind: "raster"}, Document: document.Document{}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "logo.png"), input)

	input, err = r.Input(&resource.Resource{Name: "feed", Folder: f.dir, Header: resource.Header{Kind: "rss"}, Document: document.Document{}})
	require.NoError(t, err)
	assert.Empty(t, input)
}

func TestRasterExecute(t *testing.T) {
	f := newFixture(t)
	input := f.write("logo.png", pngImage(t, 64, 32))
	p := &Raster{Widths: []int{32, 16, 128}}
	r := f.resource("/logo", p)

	outputs, err := p.Execute(f.context(r, "en", input))
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	assert.Equal(t, "/logo.png", outputs[0].Path)
	assert.Equal(t, "image/png", outputs[0].ContentType)
	assert.Contains(t, outputs[0].Tags, resource.DefaultTag)
	assert.Contains(t, outputs[0].Tags, resource.ImageWidthTag(128), "no upscaling")
	assert.Equal(t, 64, outputs[0].Tags[resource.DefaultTag].Width)

	assert.Equal(t, "/logo-16w.png", outputs[1].Path)
	assert.Equal(t, 16, outputs[1].Tags[resource.ImageWidthTag(16)].Width)
	assert.Equal(t, 8, outputs[1].Tags[resource.ImageWidthTag(16)].Height)
	smallest := outputs[1].Tags[resource.SmallestImageTag]
	assert.Equal(t, 16, smallest.Width)

	assert.Equal(t, "/logo-32w.png", outputs[2].Path)
	cfg, err := png.DecodeConfig(bytes.NewReader(outputs[2].Body))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)

	assert.Equal(t, []cache.Header{{Name: "Content-Language", Value: "en"}}, outputs[0].Headers)
}

func TestRasterCodecError(t *testing.T) {
	f := newFixture(t)
	input := f.write("broken.png", []byte("not an image"))
	p := &Raster{}
	r := f.resource("/broken", p)
	_, err := p.Execute(f.context(r, "en", input))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindCodec))
	assert.Contains(t, err.Error(), input)
}

func TestSVGSize(t *testing.T) {
	w, h, err := svgSize([]byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="120px" height="40"></svg>`))
	require.NoError(t, err)
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)

	w, h, err = svgSize([]byte(`<svg viewBox="0 0 24 12.4"/>`))
	require.NoError(t, err)
	assert.Equal(t, 24, w)
	assert.Equal(t, 12, h)

	_, _, err = svgSize([]byte(`<html/>`))
	require.Error(t, err)
	_, _, err = svgSize([]byte(`<svg/>`))
	require.Error(t, err)
}

func TestVideoTracks(t *testing.T) {
	f := newFixture(t)
	input := f.write("intro.mp4", []byte("mp4"))
	f.write("intro.de.vtt", []byte("WEBVTT"))
	p := &Video{Width: 1280, Height: 720, Tracks: map[string]string{"de": "intro.de.vtt"}}
	require.NoError(t, p.Validate())
	r := f.resource("/intro", p)

	outputs, err := p.Execute(f.context(r, "en", input))
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "/intro.mp4", outputs[0].Path)
	assert.Equal(t, resource.DetailsVideo, outputs[0].Tags[resource.DefaultTag].Kind)
	assert.Equal(t, 1280, outputs[0].Tags[resource.DefaultTag].Width)
	assert.Equal(t, "/intro.de.vtt", outputs[1].Path)
	assert.Contains(t, outputs[1].Tags, resource.VideoTrackTag("de"))

	assert.Error(t, (&Video{Tracks: map[string]string{"not a language!": "x"}}).Validate())
}

func TestCSSResolvesReferences(t *testing.T) {
	f := newFixture(t)
	logoInput := f.write("logo.png", pngImage(t, 20, 10))
	logo := &Raster{}
	logoRes := f.resource("/logo", logo)
	outputs, err := logo.Execute(f.context(logoRes, "en", logoInput))
	require.NoError(t, err)
	f.publish(logoRes, "en", outputs)

	input := f.write("main.css", []byte(`.logo{background:url({{ url "logo" }});width:{{ width "logo" }}px;height:{{ height "logo" }}px}`))
	p := &CSS{Refs: References{"logo": resource.Internal("/logo", resource.DefaultTag)}}
	r := f.resource("/main", p)
	outputs, err = p.Execute(f.context(r, "en", input))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "/main.css", outputs[0].Path)
	assert.Equal(t, ".logo{background:url(https://example.com/logo.png);width:20px;height:10px}", string(outputs[0].Body))

	// the german build falls back to the primary language output
	outputs, err = p.Execute(f.context(r, "de", input))
	require.NoError(t, err)
	assert.Contains(t, string(outputs[0].Body), "https://example.com/logo.png")

	input = f.write("broken.css", []byte(`{{ url "logo" }} {{ url "missing" }}`))
	_, err = p.Execute(f.context(r, "en", input))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))

	broken := &CSS{Refs: References{"logo": resource.Internal("/logo", resource.ImageWidthTag(999))}}
	_, err = broken.Execute(f.context(r, "en", f.write("tag.css", []byte(`{{ url "logo" }}`))))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindConfiguration))
}

func TestPageExecute(t *testing.T) {
	f := newFixture(t)
	logoInput := f.write("logo.png", pngImage(t, 64, 32))
	logo := &Raster{Widths: []int{16}}
	logoRes := f.resource("/logo", logo)
	outputs, err := logo.Execute(f.context(logoRes, "en", logoInput))
	require.NoError(t, err)
	f.publish(logoRes, "en", outputs)

	input := f.write("index.html", []byte(`<html lang="{{ .Lang }}"><title>{{ .Title }}</title><img src="{{ url "logo" }}" width="{{ width "logo" }}" alt="{{ title "docs" }}">{{ .Data.greeting }}</html>`))
	f.write("index.pjax.html", []byte(`<main>{{ .Title }}</main>`))
	f.write("index.amp.html", []byte(`<html amp><link rel="canonical" href="{{ .URL }}"></html>`))
	p := &Page{
		PJAX: "index.pjax.html",
		AMP:  "index.amp.html",
		Links: References{
			"logo": resource.Internal("/logo", resource.SmallestImageTag),
			"docs": resource.External("https://foomo.org", map[string]string{"en": "Docs"}),
		},
		Images: []resource.Reference{resource.Internal("/logo", resource.DefaultTag)},
		Data:   document.Document{"greeting": "hello"},
		Feed:   &FeedEntry{Channel: "news", Published: created.Add(-time.Hour)},
	}
	require.NoError(t, p.Validate())
	r := f.resource("/", p)
	r.Header.Title = map[string]string{"en": "Home"}

	outputs, err = p.Execute(f.context(r, "en", input))
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	page := outputs[0]
	assert.Equal(t, "/", page.Path)
	assert.Equal(t, 200, page.Status)
	assert.Equal(t, `<html lang="en"><title>Home</title><img src="https://example.com/logo-16w.png" width="16" alt="Docs">hello</html>`, string(page.Body))
	require.NotNil(t, page.PJAX)
	assert.Equal(t, "<main>Home</main>", string(page.PJAX.Body))
	assert.Contains(t, page.Tags, resource.PJAXTag)

	amp := outputs[1]
	assert.Equal(t, "/amp/", amp.Path)
	assert.Contains(t, amp.Tags, resource.AMPTag)
	assert.Contains(t, string(amp.Body), "https://example.com/")

	entries := f.sitemap.Entries("en")
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/", entries[0].URL)
	assert.Equal(t, "https://example.com/de/", entries[0].Alternates["de"])
	assert.Equal(t, []string{"https://example.com/logo.png"}, entries[0].Images)

	items := f.feed.Items("en", "news")
	require.Len(t, items, 1)
	assert.Equal(t, "Home", items[0].Title)
}

func TestPageErrorStatus(t *testing.T) {
	f := newFixture(t)
	input := f.write("404.html", []byte(`<h1>{{ .Status }}</h1>`))
	p := &Page{Status: 404}
	r := f.resource("/404.html", p)
	outputs, err := p.Execute(f.context(r, "de", input))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, 404, outputs[0].Status)
	assert.Equal(t, "<h1>404</h1>", string(outputs[0].Body))
	assert.Empty(t, f.sitemap.Entries("de"), "error pages are not indexed")

	assert.Error(t, (&Page{Status: 42}).Validate())
}

func TestSitemapAndRSS(t *testing.T) {
	f := newFixture(t)
	f.sitemap.Add("en", SitemapEntry{URL: "https://example.com/b", Alternates: map[string]string{"en": "https://example.com/b", "de": "https://example.com/de/b"}})
	f.sitemap.Add("en", SitemapEntry{URL: "https://example.com/a", Images: []string{"https://example.com/a.png"}})
	f.feed.Add("en", FeedItem{Channel: "news", Title: "Old", URL: "https://example.com/old", Published: created.Add(-time.Hour)})
	f.feed.Add("en", FeedItem{Channel: "news", Title: "New", URL: "https://example.com/new", Published: created})
	f.feed.Add("en", FeedItem{Channel: "other", Title: "Other", URL: "https://example.com/other", Published: created})

	sitemap := &SitemapIndex{}
	outputs, err := sitemap.Execute(f.context(f.resource("/sitemap", sitemap), "en", ""))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "/sitemap.xml", outputs[0].Path)
	body := string(outputs[0].Body)
	assert.Contains(t, body, "<loc>https://example.com/a</loc>")
	assert.Contains(t, body, `<xhtml:link rel="alternate" hreflang="de" href="https://example.com/de/b"></xhtml:link>`)
	assert.Contains(t, body, "<image:loc>https://example.com/a.png</image:loc>")
	assert.Less(t, bytes.Index(outputs[0].Body, []byte("example.com/a<")), bytes.Index(outputs[0].Body, []byte("example.com/b<")))

	rss := &RSS{Channel: "news", Limit: 1}
	require.NoError(t, rss.Validate())
	res := f.resource("/news/feed.xml", rss)
	outputs, err = rss.Execute(f.context(res, "en", ""))
	require.NoError(t, err)
	assert.Equal(t, "/news/feed.xml", outputs[0].Path)
	body = string(outputs[0].Body)
	assert.Contains(t, body, "<title>New</title>")
	assert.NotContains(t, body, "Old")
	assert.NotContains(t, body, "Other")
}

func TestRobots(t *testing.T) {
	f := newFixture(t)
	p := &Robots{Disallow: []string{"/private"}, Sitemaps: []string{"/sitemap.xml"}}
	outputs, err := p.Execute(f.context(f.resource("/robots", p), "en", ""))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.True(t, outputs[0].Root)
	assert.Equal(t, "/robots.txt", outputs[0].Path)
	assert.Equal(t, "User-agent: *\nDisallow: /private\nSitemap: https://example.com/sitemap.xml\nSitemap: https://example.com/de/sitemap.xml\n", string(outputs[0].Body))
}

func TestRedirect(t *testing.T) {
	f := newFixture(t)
	p := &Redirect{Target: resource.External("https://foomo.org", nil)}
	require.NoError(t, p.Validate())
	outputs, err := p.Execute(f.context(f.resource("/old", p), "en", ""))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, 301, outputs[0].Status)
	assert.False(t, outputs[0].Cacheable)
	assert.Contains(t, outputs[0].Headers, cache.Header{Name: "Location", Value: "https://foomo.org"})
	assert.Contains(t, outputs[0].Tags, resource.RedirectTag)

	assert.Error(t, (&Redirect{}).Validate())
	assert.Error(t, (&Redirect{Target: resource.External("https://foomo.org", nil), Status: 200}).Validate())
}

func TestManifest(t *testing.T) {
	f := newFixture(t)
	iconInput := f.write("icon.png", pngImage(t, 48, 48))
	icon := &Raster{}
	iconRes := f.resource("/icon", icon)
	outputs, err := icon.Execute(f.context(iconRes, "en", iconInput))
	require.NoError(t, err)
	f.publish(iconRes, "en", outputs)

	p := &Manifest{Name: "Site", Icons: []resource.Reference{resource.Internal("/icon", resource.DefaultTag)}}
	require.NoError(t, p.Validate())
	outputs, err = p.Execute(f.context(f.resource("/manifest", p), "en", ""))
	require.NoError(t, err)
	assert.Equal(t, "/manifest.webmanifest", outputs[0].Path)
	assert.JSONEq(t, `{
		"name": "Site",
		"lang": "en",
		"start_url": "https://example.com/",
		"icons": [{"src": "https://example.com/icon.png", "sizes": "48x48", "type": "image/png"}]
	}`, string(outputs[0].Body))

	assert.Error(t, (&Manifest{}).Validate())
	internal := resource.Internal("/home", resource.DefaultTag)
	assert.Error(t, (&Manifest{Name: "Site", StartURL: &internal}).Validate())
	mail := resource.External("mailto:info@example.com", nil)
	assert.Error(t, (&Manifest{Name: "Site", StartURL: &mail}).Validate())
	start := resource.External("https://example.com/app", nil)
	assert.NoError(t, (&Manifest{Name: "Site", StartURL: &start}).Validate())
}
