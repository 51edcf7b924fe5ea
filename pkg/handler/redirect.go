package handler

import (
	"net/http"

	"github.com/foomo/sitepress/pkg/config"
	"go.uber.org/zap"
)

// Redirect sends plain http requests for configured hosts to https
type Redirect struct {
	l     *zap.Logger
	hosts map[string]bool
}

func NewRedirect(l *zap.Logger, localization config.Localization) *Redirect {
	hosts := map[string]bool{}
	for _, host := range localization.Hosts() {
		hosts[host] = true
	}
	return &Redirect{
		l:     l.Named("redirect"),
		hosts: hosts,
	}
}

func (h *Redirect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := Hostname(r.Host)
	if !h.hosts[host] {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
}
