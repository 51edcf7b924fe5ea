package site

import (
	"context"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/compress"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/metrics"
	"github.com/foomo/sitepress/pkg/pipeline"
	"github.com/foomo/sitepress/pkg/render"
	"github.com/foomo/sitepress/pkg/resolve"
	"github.com/foomo/sitepress/pkg/resource"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// dispatcher executes the pipelines of one build generation
type dispatcher struct {
	l          *zap.Logger
	cfg        *config.Configuration
	registry   *pipeline.Registry
	compressor *compress.Compressor
	images     pipeline.ImageCodec
	workers    int
	resources  resource.Map
	builder    *cache.Builder
	resolver   *resolve.Resolver
	headers    *render.Headers
	sitemap    *pipeline.Sitemap
	feed       *pipeline.Feed
	// hosts language code owning the root outputs of each host
	hosts map[string]string
}

func (d *dispatcher) run(ctx context.Context, buckets []Bucket) error {
	d.resolver = resolve.New(d.resources, d.builder)
	d.sitemap = pipeline.NewSitemap()
	d.feed = pipeline.NewFeed()
	d.hosts = map[string]string{}
	for _, code := range d.cfg.Localization.Codes() {
		host := d.cfg.Localization.Languages[code].Host
		if _, ok := d.hosts[host]; !ok {
			d.hosts[host] = code
		}
	}

	for _, bucket := range buckets {
		start := time.Now()
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.workers)
		for _, r := range bucket.Resources {
			r := r
			g.Go(func() error {
				return d.dispatch(gCtx, r)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		metrics.BucketDuration.WithLabelValues(bucket.Priority.String()).Observe(time.Since(start).Seconds())
		d.l.Debug("bucket done",
			zap.String("priority", bucket.Priority.String()),
			zap.Int("resources", len(bucket.Resources)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

// dispatch executes r once per language and inserts its outputs
func (d *dispatcher) dispatch(ctx context.Context, r *resource.Resource) error {
	p := r.Payload.(pipeline.Pipeline)
	input, err := d.registry.Input(r)
	if err != nil {
		return err
	}
	headers, err := d.headers.With(r.Header.Headers)
	if err != nil {
		return errs.WithPath(r.Definition, err)
	}
	stem := r.Header.Path
	if stem == "" {
		stem = r.Key.String()
	}

	for _, code := range d.cfg.Localization.Codes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lang := d.cfg.Localization.Languages[code]
		outputs, err := p.Execute(&pipeline.Context{
			Resource:  r,
			Responses: d.builder,
			Resolver:  d.resolver,
			Input:     input,
			Stem:      stem,
			Headers:   headers,
			Language: pipeline.Language{
				Primary:      d.cfg.Localization.Primary,
				Current:      lang,
				Localization: d.cfg.Localization,
			},
			Sitemap: d.sitemap,
			Feed:    d.feed,
			Images:  d.images,
			Created: d.builder.Created(),
		})
		if err != nil {
			return errs.WithPath(r.Definition, err)
		}
		for _, out := range outputs {
			if err := d.insert(ctx, r, lang, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *dispatcher) insert(ctx context.Context, r *resource.Resource, lang *config.Language, out pipeline.Output) error {
	key := lang.Key(out.Path)
	if out.Root {
		key = lang.Host + out.Path
	}
	url := "https://" + key

	if !out.Root || d.hosts[lang.Host] == lang.Code {
		regular, err := d.response(ctx, out)
		if err != nil {
			return errs.WithPath(r.Definition, err)
		}
		var pjax *cache.StaticResponse
		if out.PJAX != nil {
			if pjax, err = d.response(ctx, *out.PJAX); err != nil {
				return errs.WithPath(r.Definition, err)
			}
		}
		entry := cache.NewEntry(r.Key.String(), regular, pjax)
		entry.Root = out.Root
		if err := d.builder.AddResponse(key, entry); err != nil {
			return errs.WithPath(r.Definition, err)
		}
	}
	for tag, details := range out.Tags {
		r.AddUrlData(tag, lang.Code, resource.UrlData{URL: url, Details: details})
	}
	return nil
}

func (d *dispatcher) response(ctx context.Context, out pipeline.Output) (*cache.StaticResponse, error) {
	resp := &cache.StaticResponse{
		Status:      out.Status,
		ContentType: out.ContentType,
		Headers:     out.Headers,
		Body:        out.Body,
		Gzip:        out.Gzip,
		Brotli:      out.Brotli,
	}
	if out.Cacheable && out.Gzip == nil && out.Brotli == nil && d.compressor.Compressible(out.ContentType, len(out.Body)) {
		gz, br, err := d.compressor.Compress(ctx, out.Body)
		if err != nil {
			return nil, errs.IO(out.Path, err)
		}
		resp.Gzip, resp.Brotli = gz, br
	}
	return resp, nil
}
