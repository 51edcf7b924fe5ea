package output

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/foomo/sitepress/pkg/cache"
	"github.com/foomo/sitepress/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Folders recreated on every write. The compressed body cache lives next to
// them and survives builds.
const (
	SiteDir   = "site"
	RootDir   = "root"
	ErrorsDir = "errors"
	PJAXDir   = "pjax"
)

// IndexName file name of urls ending with a slash
const IndexName = "index.html"

type (
	// Writer persists a generation into the output layout
	Writer struct {
		l       *zap.Logger
		storage storage.Storage
	}
	// Stats written files per folder
	Stats map[string]int
)

func New(l *zap.Logger, s storage.Storage) *Writer {
	return &Writer{
		l:       l.Named("output"),
		storage: s,
	}
}

// Folders returns the recreated folders
func Folders() []string {
	return []string{SiteDir, RootDir, ErrorsDir, PJAXDir}
}

// Write recreates the output folders from g. Redirects carry no body and are
// only listed in the build manifest.
func (w *Writer) Write(ctx context.Context, g *cache.Generation) (Stats, error) {
	for _, folder := range Folders() {
		n, err := storage.DeletePrefix(ctx, w.storage, folder+"/")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to clear %s", folder)
		}
		w.l.Debug("cleared folder", zap.String("folder", folder), zap.Int("files", n))
	}

	stats := Stats{}
	for _, url := range g.URLs() {
		entry, _ := g.Find(url)
		folder, ok := Folder(entry)
		if !ok {
			continue
		}
		if err := w.storage.Write(ctx, Key(folder, url), entry.Regular.Body); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", url)
		}
		stats[folder]++
		if entry.PJAX != nil {
			if err := w.storage.Write(ctx, Key(PJAXDir, url), entry.PJAX.Body); err != nil {
				return nil, errors.Wrapf(err, "failed to write pjax variant of %s", url)
			}
			stats[PJAXDir]++
		}
	}
	w.l.Info("wrote output", zap.String("generation", g.ID()), zap.Any("files", stats))
	return stats, nil
}

// Folder returns the output folder of entry, false for entries without a file
func Folder(entry *cache.Entry) (string, bool) {
	status := entry.Regular.Status
	switch {
	case status >= http.StatusBadRequest:
		return ErrorsDir, true
	case status >= http.StatusMultipleChoices:
		return "", false
	case entry.Root:
		return RootDir, true
	default:
		return SiteDir, true
	}
}

// Key maps a cache url key "host/path" to its file below folder. Paths
// without extension become folders so "/blog" and "/blog/post" can coexist.
func Key(folder, url string) string {
	url = strings.TrimSuffix(url, "/")
	if path.Ext(path.Base(url)) == "" || !strings.Contains(url, "/") {
		url += "/" + IndexName
	}
	return folder + "/" + url
}
