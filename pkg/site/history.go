package site

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/resource"
	"github.com/foomo/sitepress/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	HistoryDir            = "manifests"
	HistoryManifestPrefix = HistoryDir + "/sitepress-manifest-"
	HistoryManifestSuffix = ".json"
	CurrentKey            = HistoryManifestPrefix + "current" + HistoryManifestSuffix
	historyTimeFormat     = "2006-01-02T15-04-05.000000000Z"
)

type (
	// Manifest describes one published generation
	Manifest struct {
		ID          string                   `json:"id"`
		Created     time.Time                `json:"created"`
		Environment string                   `json:"environment"`
		Resources   map[string]string        `json:"resources"`
		Responses   map[string]ManifestEntry `json:"responses"`
	}
	ManifestEntry struct {
		Producer    string `json:"producer"`
		Status      int    `json:"status"`
		ContentType string `json:"contentType"`
		ETag        string `json:"etag"`
		Size        int64  `json:"size"`
		PJAX        bool   `json:"pjax,omitempty"`
		Location    string `json:"location,omitempty"`
	}
	// History persists build manifests and keeps the latest historyLimit backups
	History struct {
		l            *zap.Logger
		storage      storage.Storage
		historyLimit int
		now          func() time.Time
		mu           sync.RWMutex
	}
	HistoryOption func(*History)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func HistoryWithHistoryLimit(v int) HistoryOption {
	return func(o *History) {
		o.historyLimit = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHistory(l *zap.Logger, s storage.Storage, opts ...HistoryOption) *History {
	inst := &History{
		l:            l.Named("history"),
		storage:      s,
		historyLimit: 2,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// NewManifest describes a generation built from resources
func NewManifest(environment string, resources resource.Map, g *cache.Generation) *Manifest {
	m := &Manifest{
		ID:          g.ID(),
		Created:     g.Created(),
		Environment: environment,
		Resources:   make(map[string]string, len(resources)),
		Responses:   make(map[string]ManifestEntry, g.Len()),
	}
	for key, r := range resources {
		m.Resources[key] = r.Kind
	}
	for _, url := range g.URLs() {
		e, _ := g.Find(url)
		m.Responses[url] = ManifestEntry{
			Producer:    e.Producer,
			Status:      e.Regular.Status,
			ContentType: e.Regular.ContentType,
			ETag:        e.ETag(),
			Size:        e.Regular.Size(),
			PJAX:        e.PJAX != nil,
			Location:    e.Regular.HeaderValue("Location"),
		}
	}
	return m
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Add writes the manifest as backup and as current manifest
func (h *History) Add(ctx context.Context, m *Manifest) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}

	backupKey := HistoryManifestPrefix + h.now().UTC().Format(historyTimeFormat) + HistoryManifestSuffix
	if err := h.storage.Write(ctx, backupKey, data); err != nil {
		return errors.Wrap(err, "failed to write backup manifest")
	}

	h.l.Debug("writing files",
		zap.String("backup", backupKey),
		zap.String("current", CurrentKey),
	)

	if err := h.storage.Write(ctx, CurrentKey, data); err != nil {
		return errors.Wrap(err, "failed to write current manifest")
	}

	if err := h.cleanup(ctx); err != nil {
		return errors.Wrap(err, "failed to clean up history")
	}
	return nil
}

// Current reads the manifest of the latest published generation
func (h *History) Current(ctx context.Context) (*Manifest, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, err := h.storage.Read(ctx, CurrentKey)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to decode current manifest")
	}
	return &m, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// getHistory returns the backups, newest first
func (h *History) getHistory(ctx context.Context) ([]string, error) {
	keys, err := h.storage.List(ctx, HistoryManifestPrefix)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, key := range keys {
		if key != CurrentKey && strings.HasSuffix(key, HistoryManifestSuffix) {
			files = append(files, key)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

func (h *History) cleanup(ctx context.Context) error {
	files, err := h.getFilesForCleanup(ctx, h.historyLimit)
	if err != nil {
		return err
	}
	for _, f := range files {
		h.l.Debug("removing outdated backup", zap.String("file", f))
		if err := h.storage.Delete(ctx, f); err != nil {
			return errors.Wrapf(err, "could not remove file %s", f)
		}
	}
	return nil
}

func (h *History) getFilesForCleanup(ctx context.Context, historyVersions int) ([]string, error) {
	files, err := h.getHistory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not generate file cleanup list")
	}
	if len(files) <= historyVersions {
		return nil, nil
	}
	return files[historyVersions:], nil
}
