package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultDebounce = 300 * time.Millisecond

type (
	// Watcher reports changes below a directory tree, grouping bursts of
	// events into a single notification
	Watcher struct {
		l        *zap.Logger
		root     string
		debounce time.Duration
		ignore   []string
		watcher  *fsnotify.Watcher
	}
	Option func(*Watcher)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, root string, opts ...Option) (*Watcher, error) {
	inst := &Watcher{
		l:        l.Named("watch"),
		root:     filepath.Clean(root),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(inst)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create watcher")
	}
	inst.watcher = w
	if err := inst.add(inst.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithDebounce(v time.Duration) Option {
	return func(o *Watcher) {
		if v > 0 {
			o.debounce = v
		}
	}
}

// WithIgnore skips directories below root, given relative to root
func WithIgnore(v ...string) Option {
	return func(o *Watcher) {
		for _, dir := range v {
			o.ignore = append(o.ignore, filepath.Clean(dir))
		}
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Run calls fn once per burst of changes until ctx is done. fn runs on the
// watch goroutine, events arriving meanwhile start the next burst.
func (w *Watcher) Run(ctx context.Context, fn func()) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.l.Debug("routine canceled", zap.Error(ctx.Err()))
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						w.l.Warn("could not watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			w.l.Debug("change", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.l.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			fn()
		}
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// add watches dir and all its subdirectories
func (w *Watcher) add(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	// editor swap and backup files
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return !w.ignored(event.Name)
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if rel == dir || strings.HasPrefix(rel, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
