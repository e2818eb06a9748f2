package public

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trafine/pkg/e"

	chimw "github.com/go-chi/chi/v5/middleware"
)

var kindStatus = map[string]int{
	e.KindValidation:          http.StatusBadRequest,
	e.KindNotFound:            http.StatusNotFound,
	e.KindConflict:            http.StatusConflict,
	e.KindProviderUnavailable: http.StatusBadGateway,
	e.KindForbidden:           http.StatusForbidden,
	e.KindStore:               http.StatusInternalServerError,
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind := e.Kind(err)
	status := kindStatus[kind]

	l := h.log(r).With(
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	if status >= http.StatusInternalServerError {
		l.Error("handler error")
	} else {
		l.Warn("request rejected")
	}

	message := err.Error()
	if kind == e.KindStore && !errors.Is(err, e.ErrDeadline) {
		message = "internal error"
	}

	h.writeJSON(w, status, map[string]string{
		"status":  "error",
		"kind":    kind,
		"message": message,
	})
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) writeSuccess(w http.ResponseWriter, code int, data any) {
	h.writeJSON(w, code, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
