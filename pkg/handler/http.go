package handler

import (
	"net/http"
	"strings"
	"time"

	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/foomo/sitepress/pkg/site"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// HTTP admin api triggering rebuilds and describing the published generation
	HTTP struct {
		l        *zap.Logger
		basePath string
		site     *site.Site
	}
	HTTPOption func(*HTTP)
	// Status summary of the published generation
	Status struct {
		Loaded     bool      `json:"loaded"`
		Generation string    `json:"generation,omitempty"`
		Created    time.Time `json:"created,omitempty"`
		Resources  int       `json:"resources"`
		Responses  int       `json:"responses"`
		Duration   float64   `json:"duration"`
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHTTP(l *zap.Logger, s *site.Site, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:        l.Named("http"),
		basePath: "/sitepress",
		site:     s,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithBasePath(v string) HTTPOption {
	return func(o *HTTP) {
		o.basePath = strings.TrimSuffix(v, "/")
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, h.basePath+"/") {
		http.NotFound(w, r)
		return
	}
	route := Route(strings.TrimPrefix(r.URL.Path, h.basePath+"/"))

	switch route {
	case RouteUpdate:
		if r.Method != http.MethodPost {
			httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		update := h.site.Update(site.SourceManual)
		status := http.StatusOK
		switch {
		case update.Rejected:
			status = http.StatusConflict
		case !update.Success:
			status = http.StatusUnprocessableEntity
		}
		h.reply(w, status, update)
	case RouteStatus, RouteManifest:
		if r.Method != http.MethodGet {
			httputils.ServerError(h.l, w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		b := h.site.Current()
		if route == RouteManifest {
			if b == nil {
				httputils.ServerError(h.l, w, r, http.StatusServiceUnavailable, errors.New("no generation published yet"))
				return
			}
			h.reply(w, http.StatusOK, site.NewManifest(h.site.Environment(), b.Resources, b.Generation))
			return
		}
		status := Status{Loaded: h.site.Loaded()}
		if b != nil {
			status.Generation = b.ID
			status.Created = b.Generation.Created()
			status.Resources = len(b.Resources)
			status.Responses = b.Generation.Len()
			status.Duration = b.Duration.Seconds()
		}
		h.reply(w, http.StatusOK, status)
	default:
		http.NotFound(w, r)
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// reply encodes v as JSON
func (h *HTTP) reply(w http.ResponseWriter, status int, v interface{}) {
	bytes, err := json.Marshal(map[string]interface{}{
		"reply": v,
	})
	if err != nil {
		h.l.Error("could not encode reply", zap.Error(err))
		http.Error(w, "could not encode reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}
