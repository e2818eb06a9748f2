package public_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"trafine/internal/api/handlers/http/public"
	mock_public "trafine/internal/api/handlers/http/public/mocks"
	"trafine/internal/domain"
	"trafine/internal/middleware"
	"trafine/pkg/e"
)

type envelope struct {
	Status  string          `json:"status"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func addChiURLParam(r *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withRequester(r *http.Request, by domain.Requester) *http.Request {
	return r.WithContext(middleware.WithRequester(r.Context(), by))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	return out
}

func newHandler(t *testing.T) (*public.Handler, *mock_public.MockTrafficReader, *mock_public.MockIncidentLifecycle) {
	t.Helper()
	ctrl := gomock.NewController(t)
	traffic := mock_public.NewMockTrafficReader(ctrl)
	lifecycle := mock_public.NewMockIncidentLifecycle(ctrl)
	return public.NewHandler(newTestLogger(), traffic, lifecycle), traffic, lifecycle
}

func sampleIncident(id uuid.UUID) *domain.Incident {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Incident{
		ID:           id.String(),
		Source:       domain.SourceUserReport,
		Position:     domain.Position{Lon: 2.35, Lat: 48.85},
		IncidentType: domain.TypeAccident,
		Severity:     domain.SeverityModerate,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
		Active:       true,
		ReportedBy:   "user-1",
	}
}

func TestTrafficIncidents_OK(t *testing.T) {
	t.Parallel()

	h, traffic, _ := newHandler(t)

	bbox := domain.BBox{MinLon: 2.2, MinLat: 48.8, MaxLon: 2.5, MaxLat: 48.9}
	traffic.EXPECT().
		GetMergedIncidents(gomock.Any(), bbox, domain.TypeAccident).
		Return(&domain.MergedResult{ProviderCount: 1, Incidents: []domain.Incident{{ID: "tomtom:1", Source: domain.SourceProvider}}}, nil).
		Times(1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/incidents?bbox=2.2,48.8,2.5,48.9&incidentType=accident", nil)
	rr := httptest.NewRecorder()

	h.TrafficIncidents(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Status != "success" {
		t.Fatalf("unexpected status %q", env.Status)
	}
	var res domain.MergedResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(res.Incidents) != 1 || res.Incidents[0].ID != "tomtom:1" || res.ProviderCount != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestTrafficIncidents_BadBBox_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)

	for _, q := range []string{"", "?bbox=1,2,3", "?bbox=3,48,2,49", "?bbox=a,b,c,d"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/incidents"+q, nil)
		rr := httptest.NewRecorder()

		h.TrafficIncidents(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected %d got %d", q, http.StatusBadRequest, rr.Code)
		}
		if env := decodeEnvelope(t, rr); env.Kind != e.KindValidation {
			t.Fatalf("%q: unexpected kind %q", q, env.Kind)
		}
	}
}

func TestTrafficIncidents_ErrorKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{e.ErrInvalidIncidentType, http.StatusBadRequest, e.KindValidation},
		{fmt.Errorf("query: %w", e.ErrInternal), http.StatusInternalServerError, e.KindStore},
		{e.ErrProviderUnavailable, http.StatusBadGateway, e.KindProviderUnavailable},
	}

	for _, tc := range cases {
		h, traffic, _ := newHandler(t)
		traffic.EXPECT().GetMergedIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/incidents?bbox=2,48,3,49", nil)
		rr := httptest.NewRecorder()
		h.TrafficIncidents(rr, req)

		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.status, rr.Code)
		}
		env := decodeEnvelope(t, rr)
		if env.Status != "error" || env.Kind != tc.kind {
			t.Fatalf("%v: unexpected envelope %+v", tc.err, env)
		}
	}
}

func TestTrafficInfo_DefaultZoom(t *testing.T) {
	t.Parallel()

	h, traffic, _ := newHandler(t)
	bbox := domain.BBox{MinLon: 2, MinLat: 48, MaxLon: 3, MaxLat: 49}
	traffic.EXPECT().
		GetTrafficFlow(gomock.Any(), bbox, 10).
		Return(&domain.FlowResult{BBox: bbox, Zoom: 10, CurrentSpeed: 30, FreeFlowSpeed: 50}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/info?bbox=2,48,3,49", nil)
	rr := httptest.NewRecorder()
	h.TrafficInfo(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestTrafficInfo_BadZoom_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/info?bbox=2,48,3,49&zoom=-1", nil)
	rr := httptest.NewRecorder()
	h.TrafficInfo(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestTrafficReport_Created(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()

	want := domain.ReportRequest{
		UserID:       "user-1",
		IncidentType: domain.TypeAccident,
		Coordinates:  []float64{2.35, 48.85},
		Description:  "two cars",
	}
	lifecycle.EXPECT().Report(gomock.Any(), want).Return(sampleIncident(id), nil).Times(1)

	body := `{"incidentType":"accident","coordinates":[2.35,48.85],"description":"two cars"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/report", bytes.NewBufferString(body))
	req = withRequester(req, domain.Requester{UserID: "user-1"})
	rr := httptest.NewRecorder()

	h.TrafficReport(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected %d got %d body=%s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var got domain.Incident
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.ID != id.String() || !got.Active || got.ReportedBy != "user-1" {
		t.Fatalf("unexpected incident %+v", got)
	}
}

func TestTrafficReport_MissingUser_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)
	body := `{"incidentType":"accident","coordinates":[2.35,48.85]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/report", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.TrafficReport(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestTrafficReport_InvalidJSON_400(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"{bad json", "", `{"incidentType":"accident","foo":1}`} {
		h, _, _ := newHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/report", bytes.NewBufferString(body))
		req = withRequester(req, domain.Requester{UserID: "user-1"})
		rr := httptest.NewRecorder()

		h.TrafficReport(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected %d got %d", body, http.StatusBadRequest, rr.Code)
		}
	}
}

func TestTrafficReports_Filter(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)

	active := false
	bbox := domain.BBox{MinLon: 2, MinLat: 48, MaxLon: 3, MaxLat: 49}
	want := domain.ReportFilter{BBox: &bbox, UserID: "user-1", Active: &active, IncidentType: domain.TypeHazard}
	lifecycle.EXPECT().ListReports(gomock.Any(), want).Return([]domain.Incident{*sampleIncident(uuid.New())}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/reports?bbox=2,48,3,49&userId=user-1&active=false&incidentType=hazard", nil)
	rr := httptest.NewRecorder()
	h.TrafficReports(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var data struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &data); err != nil || data.Count != 1 {
		t.Fatalf("unexpected data %s (%v)", rr.Body.String(), err)
	}
}

func TestTrafficReports_BadActive_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/reports?active=maybe", nil)
	rr := httptest.NewRecorder()
	h.TrafficReports(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestTrafficReportGet_NotFound_404(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()
	lifecycle.EXPECT().Get(gomock.Any(), id).Return(nil, e.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/traffic/reports/"+id.String(), nil)
	req = addChiURLParam(req, "id", id.String())
	rr := httptest.NewRecorder()
	h.TrafficReportGet(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d", http.StatusNotFound, rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Kind != e.KindNotFound {
		t.Fatalf("unexpected kind %q", env.Kind)
	}
}

func TestTrafficValidate_InvalidID_400(t *testing.T) {
	t.Parallel()

	h, _, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/validate/not-a-uuid", nil)
	req = addChiURLParam(req, "id", "not-a-uuid")
	rr := httptest.NewRecorder()
	h.TrafficValidate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestTrafficValidate_Inactive_409(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()
	lifecycle.EXPECT().Validate(gomock.Any(), id).Return(nil, e.ErrIncidentNotActive)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/validate/"+id.String(), nil)
	req = addChiURLParam(req, "id", id.String())
	rr := httptest.NewRecorder()
	h.TrafficValidate(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected %d got %d", http.StatusConflict, rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Kind != e.KindConflict {
		t.Fatalf("unexpected kind %q", env.Kind)
	}
}

func TestTrafficInvalidate_OK(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()
	inc := sampleIncident(id)
	inc.Invalidations = 3
	inc.Active = false
	inc.InactiveReason = domain.ReasonInvalidated
	lifecycle.EXPECT().Invalidate(gomock.Any(), id).Return(inc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/invalidate/"+id.String(), nil)
	req = addChiURLParam(req, "id", id.String())
	rr := httptest.NewRecorder()
	h.TrafficInvalidate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestTrafficResolve_PassesRequester(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()
	by := domain.Requester{UserID: "user-2", IsAdmin: true}
	lifecycle.EXPECT().Resolve(gomock.Any(), id, by).Return(sampleIncident(id), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/resolve/"+id.String(), nil)
	req = addChiURLParam(req, "id", id.String())
	req = withRequester(req, by)
	rr := httptest.NewRecorder()
	h.TrafficResolve(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestTrafficResolve_Forbidden_403(t *testing.T) {
	t.Parallel()

	h, _, lifecycle := newHandler(t)
	id := uuid.New()
	lifecycle.EXPECT().Resolve(gomock.Any(), id, domain.Requester{UserID: "stranger"}).Return(nil, e.ErrForbidden)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/traffic/resolve/"+id.String(), nil)
	req = addChiURLParam(req, "id", id.String())
	req = withRequester(req, domain.Requester{UserID: "stranger"})
	rr := httptest.NewRecorder()
	h.TrafficResolve(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected %d got %d", http.StatusForbidden, rr.Code)
	}
}
