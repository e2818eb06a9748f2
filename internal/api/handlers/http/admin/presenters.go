package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"trafine/pkg/e"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	kind := e.Kind(err)

	h.log(r).Error("handler error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("kind", kind),
		slog.Any("error", err),
	)

	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case e.KindValidation:
		status, message = http.StatusBadRequest, err.Error()
	case e.KindNotFound:
		status, message = http.StatusNotFound, err.Error()
	case e.KindForbidden:
		status, message = http.StatusForbidden, err.Error()
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

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
