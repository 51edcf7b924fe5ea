package site

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/compress"
	"github.com/foomo/sitepress/pkg/config"
	"github.com/foomo/sitepress/pkg/discovery"
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/merge"
	"github.com/foomo/sitepress/pkg/metrics"
	"github.com/foomo/sitepress/pkg/output"
	"github.com/foomo/sitepress/pkg/pipeline"
	"github.com/foomo/sitepress/pkg/render"
	"github.com/foomo/sitepress/pkg/resource"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Site builds the source tree of one input root and publishes the result
	Site struct {
		l           *zap.Logger
		input       string
		environment string
		workers     int
		merger      *merge.Merger
		registry    *pipeline.Registry
		images      pipeline.ImageCodec
		compressor  *compress.Compressor
		store       *cache.Store
		history     *History
		output      *output.Writer
		onPublished []func(*Build)
		// watch rebuilds on changes below input
		watch         bool
		watchDebounce time.Duration
		watchIgnore   []string
		loaded        *atomic.Bool
		current       atomic.Pointer[Build]
		// publishLock serializes publishing, builds themselves run through the update routine
		publishLock             sync.Mutex
		updateInProgressChannel chan chan updateResponse
	}
	// Build a completely built generation with everything it was built from
	Build struct {
		ID          string
		Config      *config.Configuration
		Resources   resource.Map
		Generation  *cache.Generation
		Certificate *tls.Certificate
		Duration    time.Duration
	}
	Option func(*Site)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, input string, opts ...Option) *Site {
	inst := &Site{
		l:                       l.Named("site"),
		input:                   input,
		workers:                 runtime.NumCPU(),
		merger:                  merge.New(),
		registry:                pipeline.NewRegistry(pipeline.Kinds()...),
		images:                  pipeline.NearestCodec{},
		store:                   cache.NewStore(),
		loaded:                  &atomic.Bool{},
		updateInProgressChannel: make(chan chan updateResponse),
	}
	for _, opt := range opts {
		opt(inst)
	}
	if inst.compressor == nil {
		inst.compressor = compress.New(inst.l)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithEnvironment(v string) Option {
	return func(o *Site) {
		o.environment = v
	}
}

func WithWorkers(v int) Option {
	return func(o *Site) {
		if v > 0 {
			o.workers = v
		}
	}
}

// WithWatch rebuilds on changes below the input root, ignore lists
// directories relative to it
func WithWatch(debounce time.Duration, ignore ...string) Option {
	return func(o *Site) {
		o.watch = true
		o.watchDebounce = debounce
		o.watchIgnore = ignore
	}
}

func WithMerger(v *merge.Merger) Option {
	return func(o *Site) {
		o.merger = v
	}
}

func WithRegistry(v *pipeline.Registry) Option {
	return func(o *Site) {
		o.registry = v
	}
}

func WithImageCodec(v pipeline.ImageCodec) Option {
	return func(o *Site) {
		o.images = v
	}
}

func WithCompressor(v *compress.Compressor) Option {
	return func(o *Site) {
		o.compressor = v
	}
}

func WithStore(v *cache.Store) Option {
	return func(o *Site) {
		o.store = v
	}
}

func WithHistory(v *History) Option {
	return func(o *Site) {
		o.history = v
	}
}

func WithOutput(v *output.Writer) Option {
	return func(o *Site) {
		o.output = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (s *Site) Loaded() bool {
	return s.loaded.Load()
}

func (s *Site) Environment() string {
	return s.environment
}

// Store returns the response store readers are served from
func (s *Site) Store() *cache.Store {
	return s.store
}

// Current returns the published build, nil before the first publish
func (s *Site) Current() *Build {
	return s.current.Load()
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// OnPublished registers fn to be called with every published build
func (s *Site) OnPublished(fn func(*Build)) {
	s.onPublished = append(s.onPublished, fn)
}

// Build runs configuration loading, discovery, scheduling and dispatch. The
// result is not published.
func (s *Site) Build(ctx context.Context) (*Build, error) {
	start := time.Now()

	cfg, err := config.NewLoader(s.l, config.LoaderWithMerger(s.merger)).Load(s.input, s.environment)
	if err != nil {
		return nil, err
	}
	headers, err := render.NewHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}
	var certificate *tls.Certificate
	if cfg.TLS.Enabled() {
		cert, err := tls.LoadX509KeyPair(s.path(cfg.TLS.Certificate), s.path(cfg.TLS.Key))
		if err != nil {
			return nil, errs.ConfigurationAt(s.path(cfg.TLS.Certificate), "failed to load certificate: %s", err)
		}
		certificate = &cert
	}

	resources, _, err := discovery.New(s.l, s.registry, discovery.WithMerger(s.merger)).
		Discover(filepath.Join(s.input, discovery.SourceDir), cfg.Template)
	if err != nil {
		return nil, err
	}
	buckets, err := Schedule(resources)
	if err != nil {
		return nil, err
	}

	builder := cache.NewBuilder()
	d := &dispatcher{
		l:          s.l.With(zap.String("generation", builder.ID())),
		cfg:        cfg,
		registry:   s.registry,
		compressor: s.compressor,
		images:     s.images,
		workers:    s.workers,
		resources:  resources,
		builder:    builder,
		headers:    headers,
	}
	if err := d.run(ctx, buckets); err != nil {
		return nil, err
	}

	return &Build{
		ID:          builder.ID(),
		Config:      cfg,
		Resources:   resources,
		Generation:  builder.Seal(),
		Certificate: certificate,
		Duration:    time.Since(start),
	}, nil
}

// Publish makes b the live build: writes the output layout, swaps the
// response store, persists the manifest and notifies listeners
func (s *Site) Publish(ctx context.Context, b *Build) error {
	s.publishLock.Lock()
	defer s.publishLock.Unlock()

	if s.output != nil {
		if _, err := s.output.Write(ctx, b.Generation); err != nil {
			return err
		}
	}

	s.store.Publish(b.Generation)
	s.current.Store(b)

	metrics.ResponsesGauge.WithLabelValues().Set(float64(b.Generation.Len()))
	metrics.ResourcesGauge.Reset()
	for _, r := range b.Resources {
		metrics.ResourcesGauge.WithLabelValues(r.Kind).Inc()
	}

	if s.history != nil {
		if err := s.history.Add(ctx, NewManifest(s.environment, b.Resources, b.Generation)); err != nil {
			s.l.Error("could not persist build manifest", zap.Error(err))
			metrics.ManifestPersistFailedCounter.WithLabelValues().Inc()
		}
	}

	for _, fn := range s.onPublished {
		fn(b)
	}
	return nil
}

// Reconfigure rebuilds everything and publishes the result. On failure the
// previous build stays live.
func (s *Site) Reconfigure(ctx context.Context) (*Build, error) {
	b, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Publish(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// path resolves configured file names relative to the input root
func (s *Site) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.input, name)
}
