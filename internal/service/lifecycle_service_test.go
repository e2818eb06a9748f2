package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"trafine/internal/domain"
	"trafine/internal/service"
	mock_service "trafine/internal/service/mocks"
	"trafine/internal/storage/memory"
	"trafine/pkg/e"
)

// --- helpers ---

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLifecycle(t *testing.T, events service.EventQueue) (service.LifecycleService, *clock) {
	t.Helper()
	clk := &clock{now: fixedNow()}
	store := memory.New(discard())
	return service.NewLifecycleService(store, events, discard(), time.Second, service.WithClock(clk.Now)), clk
}

func accidentAtParis(user string) domain.ReportRequest {
	return domain.ReportRequest{
		UserID:       user,
		IncidentType: domain.TypeAccident,
		Coordinates:  []float64{2.35, 48.85},
	}
}

// --- Report ---

func TestLifecycle_Report_RoundTripDefaults(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)

	inc, err := svc.Report(context.Background(), accidentAtParis("u-1"))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	got, err := svc.Get(context.Background(), uuid.MustParse(inc.ID))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Validations != 0 || got.Invalidations != 0 || !got.Active {
		t.Fatalf("unexpected initial state: %+v", got)
	}
	if d := got.ExpiresAt.Sub(got.CreatedAt); d != 60*time.Minute {
		t.Fatalf("expected 60m lifetime, got %v", d)
	}
	if got.Severity != domain.SeverityModerate {
		t.Fatalf("expected default severity moderate, got %q", got.Severity)
	}
	if got.ReportedBy != "u-1" {
		t.Fatalf("reportedBy mismatch: %q", got.ReportedBy)
	}
	if got.Position != (domain.Position{Lon: 2.35, Lat: 48.85}) {
		t.Fatalf("position mismatch: %+v", got.Position)
	}
}

func TestLifecycle_Report_CustomDuration(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)

	req := accidentAtParis("u-1")
	req.DurationMinutes = intPtr(15)
	inc, err := svc.Report(context.Background(), req)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if d := inc.ExpiresAt.Sub(inc.CreatedAt); d != 15*time.Minute {
		t.Fatalf("expected 15m lifetime, got %v", d)
	}
}

func TestLifecycle_Report_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *domain.ReportRequest)
		wantErr error
	}{
		{"missing type", func(r *domain.ReportRequest) { r.IncidentType = "" }, e.ErrMissingRequiredField},
		{"missing coordinates", func(r *domain.ReportRequest) { r.Coordinates = nil }, e.ErrMissingRequiredField},
		{"unknown type", func(r *domain.ReportRequest) { r.IncidentType = "meteor" }, e.ErrInvalidIncidentType},
		{"bad latitude", func(r *domain.ReportRequest) { r.Coordinates = []float64{2.35, 95} }, e.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := mock_service.NewMockIncidentStore(ctrl)
			store.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

			svc := service.NewLifecycleService(store, nil, discard(), time.Second)

			req := accidentAtParis("u-1")
			tt.mutate(&req)
			_, err := svc.Report(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if e.Kind(err) != e.KindValidation {
				t.Fatalf("expected ValidationError kind, got %s", e.Kind(err))
			}
		})
	}
}

// --- Validate / Invalidate ---

func TestLifecycle_Scenario_ConsensusDeactivation(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	ctx := context.Background()

	inc, err := svc.Report(ctx, accidentAtParis("u-1"))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	id := uuid.MustParse(inc.ID)
	if d := inc.ExpiresAt.Sub(inc.CreatedAt); d != time.Hour {
		t.Fatalf("expected 60m lifetime, got %v", d)
	}

	var wg sync.WaitGroup
	errs := make(chan error, domain.InvalidationThreshold)
	for i := 0; i < domain.InvalidationThreshold; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Invalidate(ctx, id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Invalidate: %v", err)
		}
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Invalidations != 3 || got.Active {
		t.Fatalf("expected invalidations=3 active=false, got %d %v", got.Invalidations, got.Active)
	}
	if got.InactiveReason != domain.ReasonInvalidated {
		t.Fatalf("expected reason invalidated, got %q", got.InactiveReason)
	}

	_, err = svc.Validate(ctx, id)
	if !errors.Is(err, e.ErrIncidentNotActive) || e.Kind(err) != e.KindConflict {
		t.Fatalf("expected not-active conflict, got %v", err)
	}

	after, _ := svc.Get(ctx, id)
	if after.Validations != 0 || after.Invalidations != 3 {
		t.Fatalf("counters changed on rejected call: %+v", after)
	}
}

func TestLifecycle_BelowThresholdStaysActive(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	ctx := context.Background()

	inc, _ := svc.Report(ctx, accidentAtParis("u-1"))
	id := uuid.MustParse(inc.ID)

	const k = domain.InvalidationThreshold - 1
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Invalidate(ctx, id); err != nil {
				t.Errorf("Invalidate: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, id)
	if !got.Active || got.Invalidations != k {
		t.Fatalf("expected active with %d invalidations, got %+v", k, got)
	}
}

func TestLifecycle_ConcurrentValidationsAllCounted(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	ctx := context.Background()

	inc, _ := svc.Report(ctx, accidentAtParis("u-1"))
	id := uuid.MustParse(inc.ID)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Validate(ctx, id); err != nil {
				t.Errorf("Validate: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, id)
	if got.Validations != n {
		t.Fatalf("expected %d validations, got %d", n, got.Validations)
	}
}

func TestLifecycle_ExpiredIsInactiveOnRead(t *testing.T) {
	t.Parallel()

	svc, clk := newLifecycle(t, nil)
	ctx := context.Background()

	inc, _ := svc.Report(ctx, accidentAtParis("u-1"))
	id := uuid.MustParse(inc.ID)

	clk.Advance(61 * time.Minute)

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Active || got.InactiveReason != domain.ReasonExpired {
		t.Fatalf("expected lazily expired, got %+v", got)
	}

	if _, err := svc.Invalidate(ctx, id); !errors.Is(err, e.ErrIncidentNotActive) {
		t.Fatalf("expected not-active on expired report, got %v", err)
	}
}

func TestLifecycle_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	id := uuid.New()

	for name, call := range map[string]func() error{
		"get":        func() error { _, err := svc.Get(context.Background(), id); return err },
		"validate":   func() error { _, err := svc.Validate(context.Background(), id); return err },
		"invalidate": func() error { _, err := svc.Invalidate(context.Background(), id); return err },
		"resolve": func() error {
			_, err := svc.Resolve(context.Background(), id, domain.Requester{IsAdmin: true})
			return err
		},
	} {
		if err := call(); !errors.Is(err, e.ErrNotFound) {
			t.Fatalf("%s: expected not found, got %v", name, err)
		}
	}
}

// --- Resolve ---

func TestLifecycle_Resolve_IdempotentForOwner(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	ctx := context.Background()

	inc, _ := svc.Report(ctx, accidentAtParis("u-1"))
	id := uuid.MustParse(inc.ID)
	owner := domain.Requester{UserID: "u-1"}

	first, err := svc.Resolve(ctx, id, owner)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := svc.Resolve(ctx, id, owner)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first.Active || second.Active {
		t.Fatalf("expected inactive after resolve")
	}
	if *first != *second {
		t.Fatalf("resolve not idempotent:\nfirst=%+v\nsecond=%+v", first, second)
	}
}

func TestLifecycle_Resolve_Authorization(t *testing.T) {
	t.Parallel()

	svc, _ := newLifecycle(t, nil)
	ctx := context.Background()

	inc, _ := svc.Report(ctx, accidentAtParis("u-1"))
	id := uuid.MustParse(inc.ID)

	if _, err := svc.Resolve(ctx, id, domain.Requester{UserID: "someone-else"}); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Resolve(ctx, id, domain.Requester{}); !errors.Is(err, e.ErrForbidden) {
		t.Fatalf("expected forbidden for anonymous, got %v", err)
	}

	got, err := svc.Resolve(ctx, id, domain.Requester{IsAdmin: true})
	if err != nil {
		t.Fatalf("admin Resolve: %v", err)
	}
	if got.Active || got.InactiveReason != domain.ReasonResolved {
		t.Fatalf("expected resolved, got %+v", got)
	}
}

// --- ListReports ---

func TestLifecycle_ListReports(t *testing.T) {
	t.Parallel()

	svc, clk := newLifecycle(t, nil)
	ctx := context.Background()

	old, _ := svc.Report(ctx, accidentAtParis("u-1"))
	clk.Advance(90 * time.Minute)
	fresh, _ := svc.Report(ctx, accidentAtParis("u-1"))
	other := accidentAtParis("u-2")
	other.IncidentType = domain.TypeRoadworks
	other.Coordinates = []float64{13.4, 52.5}
	_, _ = svc.Report(ctx, other)

	all, err := svc.ListReports(ctx, domain.ReportFilter{UserID: "u-1"})
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(all) != 2 || all[0].ID != fresh.ID || all[1].ID != old.ID {
		t.Fatalf("expected newest-first [fresh, old], got %+v", all)
	}
	if all[1].Active {
		t.Fatalf("expired report must render inactive")
	}

	active := true
	live, err := svc.ListReports(ctx, domain.ReportFilter{UserID: "u-1", Active: &active})
	if err != nil {
		t.Fatalf("ListReports active: %v", err)
	}
	if len(live) != 1 || live[0].ID != fresh.ID {
		t.Fatalf("expected only fresh report, got %+v", live)
	}

	paris := &domain.BBox{MinLon: 2, MinLat: 48, MaxLon: 3, MaxLat: 49}
	inBox, err := svc.ListReports(ctx, domain.ReportFilter{BBox: paris})
	if err != nil {
		t.Fatalf("ListReports bbox: %v", err)
	}
	for _, inc := range inBox {
		if !paris.Contains(inc.Position) {
			t.Fatalf("report outside bbox: %+v", inc.Position)
		}
	}
	if len(inBox) != 2 {
		t.Fatalf("expected 2 reports in bbox, got %d", len(inBox))
	}

	if _, err := svc.ListReports(ctx, domain.ReportFilter{IncidentType: "meteor"}); !errors.Is(err, e.ErrInvalidIncidentType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}

// --- ExpireStale and events ---

func TestLifecycle_ExpireStale_PublishesEvents(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	events := mock_service.NewMockEventQueue(ctrl)

	var (
		mu      sync.Mutex
		actions []domain.EventAction
	)
	events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev domain.IncidentEvent) error {
			mu.Lock()
			defer mu.Unlock()
			actions = append(actions, ev.Action)
			return nil
		}).AnyTimes()

	svc, clk := newLifecycle(t, events)
	ctx := context.Background()

	_, _ = svc.Report(ctx, accidentAtParis("u-1"))
	clk.Advance(2 * time.Hour)

	n, err := svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []domain.EventAction{domain.EventReported, domain.EventExpired}
	if len(actions) != len(want) || actions[0] != want[0] || actions[1] != want[1] {
		t.Fatalf("unexpected events: %v", actions)
	}
}

func TestLifecycle_PublishFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	events := mock_service.NewMockEventQueue(ctrl)
	events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("redis down")).AnyTimes()

	svc, _ := newLifecycle(t, events)
	ctx := context.Background()

	inc, err := svc.Report(ctx, accidentAtParis("u-1"))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	got, err := svc.Validate(ctx, uuid.MustParse(inc.ID))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Validations != 1 {
		t.Fatalf("expected validation to persist, got %d", got.Validations)
	}
}

func TestLifecycle_InvalidateEmitsDeactivatedOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mock_service.NewMockIncidentStore(ctrl)
	events := mock_service.NewMockEventQueue(ctrl)

	id := uuid.New()
	current := &domain.Incident{
		ID:            id.String(),
		Source:        domain.SourceUserReport,
		IncidentType:  domain.TypeHazard,
		CreatedAt:     fixedNow(),
		ExpiresAt:     fixedNow().Add(time.Hour),
		Active:        true,
		Invalidations: 2,
		ReportedBy:    "u-1",
	}

	store.EXPECT().Mutate(gomock.Any(), id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, fn domain.MutateFunc) (*domain.Incident, error) {
			next := *current
			changed, err := fn(&next)
			if err != nil {
				return nil, err
			}
			if !changed {
				t.Fatalf("expected a change")
			}
			return &next, nil
		})

	gomock.InOrder(
		events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev domain.IncidentEvent) error {
				if ev.Action != domain.EventInvalidated {
					t.Fatalf("expected invalidated first, got %s", ev.Action)
				}
				return nil
			}),
		events.EXPECT().Enqueue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev domain.IncidentEvent) error {
				if ev.Action != domain.EventDeactivated || ev.Incident.Active {
					t.Fatalf("expected deactivated event with inactive incident, got %+v", ev)
				}
				return nil
			}),
	)

	svc := service.NewLifecycleService(store, events, discard(), time.Second, service.WithClock(fixedNow))
	got, err := svc.Invalidate(context.Background(), id)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if got.Active || got.Invalidations != 3 || got.InactiveReason != domain.ReasonInvalidated {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestLifecycle_StoreErrorSurfaced(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mock_service.NewMockIncidentStore(ctrl)
	store.EXPECT().Mutate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, e.WrapError(context.Background(), "postgres.Incident.Mutate", errors.New("boom")))

	svc := service.NewLifecycleService(store, nil, discard(), time.Second)
	_, err := svc.Validate(context.Background(), uuid.New())
	if e.Kind(err) != e.KindStore {
		t.Fatalf("expected StoreError, got %v (%s)", err, e.Kind(err))
	}
}
