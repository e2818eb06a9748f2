// Package tomtom is the Provider Client for the TomTom Traffic API.
package tomtom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trafine/internal/domain"
	"trafine/internal/metrics"
	"trafine/pkg/e"
)

const (
	DefaultBaseURL = "https://api.tomtom.com"

	endpointIncidents = "incidents"
	endpointFlow      = "flow"

	incidentFields = "{incidents{type,geometry{type,coordinates},properties{id,iconCategory,magnitudeOfDelay," +
		"events{description,code,iconCategory},startTime,endTime,from,to,length,delay,roadNumbers}}}"

	maxErrorBody = 4 << 10
)

// typeCategories maps the user-report taxonomy onto TomTom icon categories
// for the categoryFilter parameter. Police has no TomTom equivalent.
var typeCategories = map[domain.IncidentType][]IconCategory{
	domain.TypeAccident:   {CategoryAccident},
	domain.TypeCongestion: {CategoryJam},
	domain.TypeRoadClosed: {CategoryRoadClosed},
	domain.TypeRoadworks:  {CategoryRoadWorks},
	domain.TypeHazard:     {CategoryDangerousConditions},
	domain.TypePolice:     {},
}

// FilterAll disables the type filter.
const FilterAll domain.IncidentType = "all"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout bounds each attempt, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = n
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func NewClient(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		timeout:    5 * time.Second,
		retries:    1,
		backoff:    200 * time.Millisecond,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIncidents returns the provider's present incidents inside bbox.
// An empty filter or FilterAll returns every category.
func (c *Client) FetchIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) ([]Incident, error) {
	const op = "tomtom.Client.FetchIncidents"

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("bbox", bbox.String())
	q.Set("fields", incidentFields)
	q.Set("language", "en-GB")
	q.Set("timeValidityFilter", "present")

	if filter != "" && filter != FilterAll {
		cats, ok := typeCategories[filter]
		if !ok {
			return nil, fmt.Errorf("%s: %q: %w", op, filter, e.ErrInvalidIncidentType)
		}
		if len(cats) == 0 {
			return []Incident{}, nil
		}
		ids := make([]string, 0, len(cats))
		for _, cat := range cats {
			ids = append(ids, strconv.Itoa(int(cat)))
		}
		q.Set("categoryFilter", strings.Join(ids, ","))
	}

	endpoint := c.baseURL + "/traffic/services/5/incidentDetails?" + q.Encode()

	var resp IncidentsResponse
	if err := c.get(ctx, endpointIncidents, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.Incidents == nil {
		resp.Incidents = []Incident{}
	}

	c.logger.Debug("fetched provider incidents",
		slog.String("op", op),
		slog.String("bbox", bbox.String()),
		slog.Int("count", len(resp.Incidents)),
	)
	return resp.Incidents, nil
}

// FetchTrafficFlow reads the flow segment nearest the bbox centre.
func (c *Client) FetchTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error) {
	const op = "tomtom.Client.FetchTrafficFlow"

	center := bbox.Center()
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("point", fmt.Sprintf("%g,%g", center.Lat, center.Lon))
	q.Set("unit", "KMPH")

	endpoint := fmt.Sprintf("%s/traffic/services/4/flowSegmentData/absolute/%d/json?%s", c.baseURL, zoom, q.Encode())

	var resp flowResponse
	if err := c.get(ctx, endpointFlow, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seg := resp.FlowSegmentData
	flow := &domain.FlowResult{
		BBox:                bbox,
		Zoom:                zoom,
		Point:               center,
		FunctionalRoadClass: seg.FRC,
		CurrentSpeed:        seg.CurrentSpeed,
		FreeFlowSpeed:       seg.FreeFlowSpeed,
		CurrentTravelTime:   seg.CurrentTravelTime,
		FreeFlowTravelTime:  seg.FreeFlowTravelTime,
		Confidence:          seg.Confidence,
		RoadClosure:         seg.RoadClosure,
		Coordinates:         make([]domain.Position, 0, len(seg.Coordinates.Coordinate)),
	}
	for _, pt := range seg.Coordinates.Coordinate {
		flow.Coordinates = append(flow.Coordinates, domain.Position{Lon: pt.Longitude, Lat: pt.Latitude})
	}
	return flow, nil
}

// retryableError marks failures worth another attempt: network errors,
// 429 and 5xx.
type retryableError struct{ err error }

func (r retryableError) Error() string { return r.err.Error() }
func (r retryableError) Unwrap() error { return r.err }

// get performs a GET with bounded retries. Every failure is reported as
// e.ErrProviderUnavailable.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
				return fmt.Errorf("%w: %w", e.ErrProviderUnavailable, ctx.Err())
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		err := c.attempt(ctx, rawURL, out)
		if err == nil {
			metrics.ProviderRequests.WithLabelValues(endpoint, "ok").Inc()
			return nil
		}
		lastErr = err

		var retry retryableError
		if !errors.As(err, &retry) || ctx.Err() != nil {
			break
		}
		c.logger.Warn("provider request failed, retrying",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}

	metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()
	return fmt.Errorf("%w: %w", e.ErrProviderUnavailable, lastErr)
}

func (c *Client) attempt(ctx context.Context, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retryableError{fmt.Errorf("request failed: %w", redactKey(err))}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// decoded below
	case resp.StatusCode == http.StatusTooManyRequests:
		return retryableError{fmt.Errorf("rate limit exceeded (HTTP 429)")}
	case resp.StatusCode >= 500:
		return retryableError{fmt.Errorf("server error (HTTP %d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("authentication error (HTTP %d): api key rejected", resp.StatusCode)
	default:
		var apiErr APIError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error() != "" {
			return fmt.Errorf("bad request (HTTP %d): %s", resp.StatusCode, apiErr.Error())
		}
		return fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return retryableError{fmt.Errorf("reading response: %w", ctx.Err())}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// redactKey strips the query string from url errors so the API key never
// reaches the logs.
func redactKey(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
		}
	}
	return err
}
