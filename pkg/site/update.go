package site

import (
	"context"
	"time"

	"github.com/foomo/sitepress/pkg/metrics"
	"github.com/foomo/sitepress/pkg/storage"
	"github.com/foomo/sitepress/pkg/watch"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrUpdateRejected = errors.New("update rejected: build in progress")

const (
	SourceStartup = "startup"
	SourceWatch   = "watch"
	SourceManual  = "manual"
)

type (
	// Update information about a rebuild request
	Update struct {
		// did it work or not
		Success bool `json:"success"`
		// Rejected set when another build was running
		Rejected     bool   `json:"rejected"`
		ErrorMessage string `json:"errorMessage"`
		Generation   string `json:"generation,omitempty"`
		Stats        struct {
			NumberOfResources int `json:"numberOfResources"`
			NumberOfResponses int `json:"numberOfResponses"`
			// seconds
			BuildRuntime float64 `json:"buildRuntime"`
			OwnRuntime   float64 `json:"ownRuntime"`
		} `json:"stats"`
	}
	updateResponse struct {
		build *Build
		err   error
	}
)

// Update requests a rebuild and waits for its outcome. A request arriving
// while a build runs is rejected.
func (s *Site) Update(source string) *Update {
	s.l.Info("update triggered", zap.String("source", source))

	start := time.Now()
	// the initial build waits for the update routine instead of being rejected
	b, err := s.tryUpdate(source == SourceStartup)
	update := &Update{}

	if err != nil {
		update.Stats.NumberOfResources = -1
		update.Stats.NumberOfResponses = -1
		update.ErrorMessage = err.Error()
		if errors.Is(err, ErrUpdateRejected) {
			update.Rejected = true
			metrics.BuildsRejectedCounter.WithLabelValues(source).Inc()
		} else {
			s.l.Error("failed to update site", zap.String("source", source), zap.Error(err))
			if current := s.Current(); current != nil {
				s.l.Info("keeping previous generation", zap.String("generation", current.ID))
			}
		}
	} else {
		update.Success = true
		update.Generation = b.ID
		update.Stats.NumberOfResources = len(b.Resources)
		update.Stats.NumberOfResponses = b.Generation.Len()
		update.Stats.BuildRuntime = b.Duration.Seconds()
	}
	update.Stats.OwnRuntime = time.Since(start).Seconds() - update.Stats.BuildRuntime
	return update
}

func (s *Site) UpdateRoutine(ctx context.Context) error {
	l := s.l.Named("routine.update")
	for {
		select {
		case <-ctx.Done():
			l.Debug("routine canceled", zap.Error(ctx.Err()))
			return nil
		case resChan := <-s.updateInProgressChannel:
			start := time.Now()
			l := l.With(zap.String("run_id", uuid.New().String()))

			l.Info("update started")

			b, err := s.Reconfigure(context.WithoutCancel(ctx))
			if err != nil {
				l.Error("update failed", zap.Error(err))
				metrics.BuildsFailedCounter.WithLabelValues().Inc()
			} else {
				if !s.Loaded() {
					s.loaded.Store(true)
					l.Info("initial update success", zap.String("generation", b.ID))
				} else {
					l.Info("update success", zap.String("generation", b.ID))
				}
				metrics.BuildsCompletedCounter.WithLabelValues().Inc()
			}

			resChan <- updateResponse{
				build: b,
				err:   err,
			}

			metrics.BuildDuration.WithLabelValues().Observe(time.Since(start).Seconds())
		}
	}
}

// WatchRoutine rebuilds whenever the input tree changes
func (s *Site) WatchRoutine(ctx context.Context) error {
	l := s.l.Named("routine.watch")
	w, err := watch.New(l, s.input, watch.WithDebounce(s.watchDebounce), watch.WithIgnore(s.watchIgnore...))
	if err != nil {
		return err
	}
	return w.Run(ctx, func() {
		if resp := s.Update(SourceWatch); resp.Rejected {
			l.Info("change detected while building, waiting for the next one")
		}
	})
}

func (s *Site) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	l := s.l.Named("start")

	up := make(chan bool, 1)
	g.Go(func() error {
		l.Debug("starting update routine")
		up <- true
		return s.UpdateRoutine(gCtx)
	})
	l.Debug("waiting for UpdateRoutine")
	<-up

	if s.history != nil {
		if m, err := s.history.Current(gCtx); storage.IsNotExist(err) {
			l.Info("no previous build manifest")
		} else if err != nil {
			l.Warn("could not read previous build manifest", zap.Error(err))
		} else {
			l.Info("previous build manifest",
				zap.String("generation", m.ID),
				zap.Time("created", m.Created),
				zap.Int("num_responses", len(m.Responses)),
			)
		}
	}

	if s.watch {
		g.Go(func() error {
			l.Debug("starting watch routine")
			return s.WatchRoutine(gCtx)
		})
	}

	if !s.Loaded() {
		l.Debug("trying to build initial state")
		if resp := s.Update(SourceStartup); !resp.Success {
			l.Error("failed to build initial state",
				zap.String("error", resp.ErrorMessage),
				zap.Float64("own_runtime", resp.Stats.OwnRuntime),
			)
		}
	}

	return g.Wait()
}

// limit ressources and allow only one build at once
func (s *Site) tryUpdate(wait bool) (*Build, error) {
	c := make(chan updateResponse)
	if wait {
		s.updateInProgressChannel <- c
		ur := <-c
		return ur.build, ur.err
	}
	select {
	case s.updateInProgressChannel <- c:
		s.l.Debug("update request added to queue")
		ur := <-c
		return ur.build, ur.err
	default:
		s.l.Info("update request rejected, a build is in progress")
		return nil, ErrUpdateRejected
	}
}
