package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"trafine/internal/domain"
	"trafine/internal/metrics"
	"trafine/pkg/e"
)

// EventSender drains the lifecycle event queue and POSTs each event to a
// webhook. With no URL configured events are only logged.
type EventSender struct {
	logger     *slog.Logger
	url        string
	queue      EventSource
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	popTimeout time.Duration
}

func NewEventSender(logger *slog.Logger, url string, q EventSource) *EventSender {
	return &EventSender{
		logger:     logger,
		url:        url,
		queue:      q,
		http:       &http.Client{Timeout: 5 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		popTimeout: 5 * time.Second,
	}
}

// WithBackoff sets the base delay between delivery attempts.
func (s *EventSender) WithBackoff(d time.Duration) *EventSender {
	s.backoff = d
	return s
}

func (s *EventSender) Run(ctx context.Context) {
	s.logger.Info("eventSender STARTED", slog.String("url", s.url))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("eventSender STOPPED", slog.String("reason", ctx.Err().Error()))
			return
		default:
		}

		ev, err := s.queue.BRPop(ctx, s.popTimeout)
		if err != nil {
			if errors.Is(err, e.ErrEventQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("BRPop failed", slog.Any("error", err))
			s.sleep(ctx, 500*time.Millisecond)
			continue
		}

		if s.url == "" {
			s.logger.Info("incident event",
				slog.String("action", string(ev.Action)),
				slog.String("id", ev.IncidentID),
			)
			continue
		}

		s.logger.Debug("sending event", slog.String("action", string(ev.Action)), slog.String("id", ev.IncidentID))
		if s.sendWithRetry(ctx, ev) {
			metrics.EventsPublished.WithLabelValues("deliver", "ok").Inc()
		} else {
			metrics.EventsPublished.WithLabelValues("deliver", "error").Inc()
		}
	}
}

func (s *EventSender) sendWithRetry(ctx context.Context, ev domain.IncidentEvent) bool {
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal event failed", slog.String("error", err.Error()))
		return false
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			s.logger.Info("stop retries due to context cancel")
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			s.logger.Error("create webhook request failed", slog.String("error", err.Error()))
			return false
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			return true
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		reason := "unknown"
		if err != nil {
			reason = err.Error()
		} else if resp != nil {
			reason = resp.Status
		}

		s.logger.Warn("webhook failed",
			slog.Int("attempt", attempt),
			slog.String("url", s.url),
			slog.String("action", string(ev.Action)),
			slog.String("reason", reason),
		)

		if attempt < s.maxRetries {
			s.sleep(ctx, time.Duration(attempt)*s.backoff)
		}
	}
	return false
}

func (s *EventSender) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
