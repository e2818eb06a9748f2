package system_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"trafine/internal/api/handlers/http/system"
)

func TestSystemHealth(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	cases := []struct {
		name   string
		checks map[string]system.Check
		want   int
	}{
		{"no_checks", nil, http.StatusOK},
		{"all_up", map[string]system.Check{"postgres": up, "redis": up}, http.StatusOK},
		{"one_down", map[string]system.Check{"postgres": up, "redis": down}, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		rr := httptest.NewRecorder()
		system.NewHandler(logger, tc.checks).SystemHealth(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d got %d body=%s", tc.name, tc.want, rr.Code, rr.Body.String())
		}
	}
}
