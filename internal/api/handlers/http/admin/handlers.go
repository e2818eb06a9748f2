package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type StatsGetter interface {
	GetStats(ctx context.Context, req domain.StatsRequest) (*domain.ReportStats, error)
}

type Handler struct {
	logger *slog.Logger
	Stats  StatsGetter
}

func NewHandler(logger *slog.Logger, stats StatsGetter) *Handler {
	return &Handler{
		logger: logger,
		Stats:  stats,
	}
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("AdminStats", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	var req domain.StatsRequest
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(w, r, fmt.Errorf("minutes %q must be an integer: %w", raw, e.ErrInvalidInput))
			return
		}
		req.Minutes = minutes
	}

	stats, err := h.Stats.GetStats(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("stats served", slog.Int("minutes", stats.Minutes), slog.Int64("total", stats.Total))
	h.writeSuccess(w, http.StatusOK, stats)
}
