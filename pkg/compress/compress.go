package compress

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/foomo/sitepress/pkg/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CacheDir storage folder holding compressed bodies keyed by content hash
const CacheDir = "cache"

type (
	// Compressor produces gzip and brotli bodies, reusing previously
	// compressed bodies from storage when available
	Compressor struct {
		l            *zap.Logger
		storage      storage.Storage
		minSize      int
		gzipLevel    int
		brotliLevel  int
		compressible []string
	}
	Option func(*Compressor)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, opts ...Option) *Compressor {
	inst := &Compressor{
		l:           l.Named("compress"),
		minSize:     256,
		gzipLevel:   gzip.BestCompression,
		brotliLevel: brotli.BestCompression,
		compressible: []string{
			"text/",
			"application/json",
			"application/javascript",
			"application/manifest+json",
			"application/xml",
			"application/rss+xml",
			"image/svg+xml",
			"font/ttf",
			"font/otf",
		},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithStorage enables the content addressed body cache
func WithStorage(v storage.Storage) Option {
	return func(o *Compressor) {
		o.storage = v
	}
}

func WithMinSize(v int) Option {
	return func(o *Compressor) {
		o.minSize = v
	}
}

func WithGzipLevel(v int) Option {
	return func(o *Compressor) {
		o.gzipLevel = v
	}
}

func WithBrotliLevel(v int) Option {
	return func(o *Compressor) {
		o.brotliLevel = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Compressible reports whether bodies of contentType are worth compressing
func (c *Compressor) Compressible(contentType string, size int) bool {
	if size < c.minSize {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, prefix := range c.compressible {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

// Compress returns the gzip and brotli encodings of body. Encodings not
// smaller than body are dropped and returned as nil.
func (c *Compressor) Compress(ctx context.Context, body []byte) (gz, br []byte, err error) {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	gz, err = c.cached(ctx, hash+".gz", body, c.encodeGzip)
	if err != nil {
		return nil, nil, err
	}
	br, err = c.cached(ctx, hash+".br", body, c.encodeBrotli)
	if err != nil {
		return nil, nil, err
	}
	if len(gz) >= len(body) {
		gz = nil
	}
	if len(br) >= len(body) {
		br = nil
	}
	return gz, br, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (c *Compressor) cached(ctx context.Context, name string, body []byte, encode func([]byte) ([]byte, error)) ([]byte, error) {
	key := CacheDir + "/" + name[:2] + "/" + name
	if c.storage != nil {
		data, err := c.storage.Read(ctx, key)
		if err == nil {
			return data, nil
		} else if !storage.IsNotExist(err) {
			c.l.Warn("failed to read compressed body from cache", zap.String("key", key), zap.Error(err))
		}
	}
	data, err := encode(body)
	if err != nil {
		return nil, err
	}
	if c.storage != nil {
		if err := c.storage.Write(ctx, key, data); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", key)
		}
	}
	return data, nil
}

func (c *Compressor) encodeGzip(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.gzipLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip writer")
	}
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrap(err, "failed to gzip body")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to gzip body")
	}
	return buf.Bytes(), nil
}

func (c *Compressor) encodeBrotli(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.brotliLevel)
	if _, err := w.Write(body); err != nil {
		return nil, errors.Wrap(err, "failed to brotli encode body")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to brotli encode body")
	}
	return buf.Bytes(), nil
}
