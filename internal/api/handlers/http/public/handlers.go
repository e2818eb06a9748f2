package public

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/internal/middleware"
	"trafine/pkg/e"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type TrafficReader interface {
	GetMergedIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) (*domain.MergedResult, error)
	GetTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error)
}

type IncidentLifecycle interface {
	Report(ctx context.Context, req domain.ReportRequest) (*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Validate(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Invalidate(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Resolve(ctx context.Context, id uuid.UUID, by domain.Requester) (*domain.Incident, error)
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, error)
}

type Handler struct {
	logger    *slog.Logger
	Traffic   TrafficReader
	Lifecycle IncidentLifecycle
}

func NewHandler(logger *slog.Logger, traffic TrafficReader, lifecycle IncidentLifecycle) *Handler {
	return &Handler{
		logger:    logger,
		Traffic:   traffic,
		Lifecycle: lifecycle,
	}
}

func (h *Handler) TrafficInfo(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("TrafficInfo", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	q := r.URL.Query()
	bbox, err := geo.ParseBBox(q.Get("bbox"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	zoom, err := geo.ParseZoom(q.Get("zoom"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	flow, err := h.Traffic.GetTrafficFlow(r.Context(), bbox, zoom)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, flow)
}

func (h *Handler) TrafficIncidents(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("TrafficIncidents", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	q := r.URL.Query()
	bbox, err := geo.ParseBBox(q.Get("bbox"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	filter := domain.IncidentType(strings.TrimSpace(q.Get("incidentType")))

	res, err := h.Traffic.GetMergedIncidents(r.Context(), bbox, filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if res.Degraded {
		l.Warn("serving user reports only", slog.String("bbox", bbox.String()))
	}
	h.writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) TrafficReport(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	by := middleware.RequesterFrom(r.Context())
	if by.UserID == "" {
		h.handleError(w, r, fmt.Errorf("%s header: %w", middleware.HeaderUserID, e.ErrMissingRequiredField))
		return
	}

	var req domain.ReportRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	req.UserID = by.UserID

	inc, err := h.Lifecycle.Report(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("report created", slog.String("id", inc.ID), slog.String("user_id", by.UserID))
	h.writeSuccess(w, http.StatusCreated, inc)
}

func (h *Handler) TrafficReports(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("TrafficReports", slog.String("query", r.URL.RawQuery))

	filter, err := parseReportFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	reports, err := h.Lifecycle.ListReports(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

func (h *Handler) TrafficReportGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	inc, err := h.Lifecycle.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, http.StatusOK, inc)
}

func (h *Handler) TrafficValidate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Validate)
}

func (h *Handler) TrafficInvalidate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Invalidate)
}

func (h *Handler) TrafficResolve(w http.ResponseWriter, r *http.Request) {
	by := middleware.RequesterFrom(r.Context())
	h.transition(w, r, func(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
		return h.Lifecycle.Resolve(ctx, id, by)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*domain.Incident, error)) {
	l := h.log(r)

	id, err := parseID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	inc, err := fn(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("report updated",
		slog.String("id", inc.ID),
		slog.String("path", r.URL.Path),
		slog.Bool("active", inc.Active),
		slog.Int("validations", inc.Validations),
		slog.Int("invalidations", inc.Invalidations),
	)
	h.writeSuccess(w, http.StatusOK, inc)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", raw, e.ErrInvalidInput)
	}
	return id, nil
}

func parseReportFilter(r *http.Request) (domain.ReportFilter, error) {
	q := r.URL.Query()
	var f domain.ReportFilter

	if raw := q.Get("bbox"); raw != "" {
		bbox, err := geo.ParseBBox(raw)
		if err != nil {
			return f, err
		}
		f.BBox = &bbox
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("active %q must be true or false: %w", raw, e.ErrInvalidInput)
		}
		f.Active = &active
	}
	f.UserID = strings.TrimSpace(q.Get("userId"))

	t := strings.TrimSpace(q.Get("incidentType"))
	if t != "all" {
		f.IncidentType = domain.IncidentType(t)
	}
	return f, nil
}
