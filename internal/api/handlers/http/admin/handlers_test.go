package admin_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"

	"trafine/internal/api/handlers/http/admin"
	mock_admin "trafine/internal/api/handlers/http/admin/mocks"
	"trafine/internal/domain"
	"trafine/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAdminStats_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	stats := mock_admin.NewMockStatsGetter(ctrl)
	h := admin.NewHandler(newTestLogger(), stats)

	want := &domain.ReportStats{Minutes: 30, Total: 4, Active: 2, Invalidated: 1, Resolved: 1}
	stats.EXPECT().GetStats(gomock.Any(), domain.StatsRequest{Minutes: 30}).Return(want, nil).Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats?minutes=30", nil)
	rr := httptest.NewRecorder()
	h.AdminStats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var body struct {
		Status string             `json:"status"`
		Data   domain.ReportStats `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Status != "success" || body.Data != *want {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestAdminStats_DefaultWindow(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	stats := mock_admin.NewMockStatsGetter(ctrl)
	h := admin.NewHandler(newTestLogger(), stats)

	stats.EXPECT().GetStats(gomock.Any(), domain.StatsRequest{}).Return(&domain.ReportStats{Minutes: 60}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	rr := httptest.NewRecorder()
	h.AdminStats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
}

func TestAdminStats_NotANumber_400(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	h := admin.NewHandler(newTestLogger(), mock_admin.NewMockStatsGetter(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats?minutes=abc", nil)
	rr := httptest.NewRecorder()
	h.AdminStats(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestAdminStats_ServiceErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{e.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		ctrl := gomock.NewController(t)
		stats := mock_admin.NewMockStatsGetter(ctrl)
		h := admin.NewHandler(newTestLogger(), stats)
		stats.EXPECT().GetStats(gomock.Any(), gomock.Any()).Return(nil, tc.err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats?minutes=5000", nil)
		rr := httptest.NewRecorder()
		h.AdminStats(rr, req)

		if rr.Code != tc.want {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.want, rr.Code)
		}
	}
}
