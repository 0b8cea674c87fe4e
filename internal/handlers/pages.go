package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-tutoring/httpx"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PagesHandler struct {
	base
	store Pinger
}

func NewPagesHandler(cfg *RouterConfig, store Pinger) *PagesHandler {
	return &PagesHandler{base: cfg.base(), store: store}
}

func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", nil)
}

func (h *PagesHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger(r).Warn().Err(err).Msg("health check failed")
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
