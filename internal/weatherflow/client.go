package weatherflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/repository"
)

// DefaultBaseURL is the WeatherFlow REST API root
const DefaultBaseURL = "https://swd.weatherflow.com/swd/rest"

// StatusError is returned for any non-2xx API response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weatherflow: unexpected status code %d", e.Code)
}

// retryable reports whether the status says the upstream is unhealthy
// rather than that the request was wrong.
func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Status is the API level result carried inside a 200 response
type Status struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// ObservationResponse is the station observations document
type ObservationResponse struct {
	// Status is nil when the document has no "status" key
	Status    *Status `json:"status"`
	StationID int     `json:"station_id"`

	// Obs is nil when the document has no "obs" key
	Obs []map[string]any `json:"obs"`
}

// Breaker settings. The state lives in a BreakerStore so it carries
// across one-shot processes.
const (
	BreakerName       = "weatherflow"
	FailureThreshold  = 3
	DefaultOpenPeriod = 5 * time.Minute
)

// Client fetches station observations, one request per call
type Client struct {
	baseURL    string
	http       *http.Client
	store      repository.BreakerStore
	now        func() time.Time
	openPeriod time.Duration
}

// Option customises a Client
type Option func(*Client)

// WithBreakerStore keeps breaker state in store instead of process memory
func WithBreakerStore(store repository.BreakerStore) Option {
	return func(c *Client) { c.store = store }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithOpenPeriod sets how long a tripped breaker blocks requests
func WithOpenPeriod(d time.Duration) Option {
	return func(c *Client) { c.openPeriod = d }
}

// NewClient creates a client. An empty baseURL means DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpClient,
		store:      repository.NewMemoryStore(),
		now:        time.Now,
		openPeriod: DefaultOpenPeriod,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// isSuccessful decides what counts against the breaker: transport errors,
// undecodable bodies, 429 and 5xx. Other client errors do not.
func isSuccessful(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.retryable()
	}
	return err == nil
}

// breaker rebuilds the circuit from saved state. tripped is set when the
// call about to run opens it.
func (c *Client) breaker(state repository.BreakerState, tripped *bool) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: 1,
		Timeout:     c.openPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return state.Failures+int(counts.ConsecutiveFailures) >= FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				*tripped = true
			}
		},
	})
}

// IsCircuitOpen reports whether err means the request was never sent
// because the breaker is open
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}

// ObservationURL builds the request URL for a station
func (c *Client) ObservationURL(stationID, token string) string {
	return fmt.Sprintf("%s/observations/station/%s?token=%s",
		c.baseURL, url.PathEscape(stationID), url.QueryEscape(token))
}

// Observations fetches the latest observations for stationID.
// Non-2xx responses come back as *StatusError.
func (c *Client) Observations(ctx context.Context, stationID, token string) (*ObservationResponse, error) {
	state, err := c.store.BreakerState(ctx, BreakerName)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to read circuit breaker state", err)
	}

	now := c.now()
	if now.Before(state.OpenUntil) {
		return nil, apperrors.NewNetworkError("WeatherFlow circuit breaker open", gobreaker.ErrOpenState).
			WithDetails(fmt.Sprintf("retry after %s", state.OpenUntil.Format(time.RFC3339)))
	}

	var tripped bool
	result, err := c.breaker(state, &tripped).Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ObservationURL(stationID, token), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Code: resp.StatusCode}
		}

		var payload ObservationResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, apperrors.NewDecodeError("Failed to decode WeatherFlow response", err)
		}
		return &payload, nil
	})

	next := repository.BreakerState{}
	switch {
	case tripped:
		next = repository.BreakerState{Failures: state.Failures + 1, OpenUntil: now.Add(c.openPeriod)}
	case !isSuccessful(err):
		next = repository.BreakerState{Failures: state.Failures + 1}
	}
	if next != state {
		if saveErr := c.store.SetBreakerState(ctx, BreakerName, next); saveErr != nil {
			return nil, apperrors.NewInternalError("Failed to save circuit breaker state", saveErr)
		}
	}

	if err != nil {
		var statusErr *StatusError
		var appErr *apperrors.AppError
		switch {
		case errors.As(err, &statusErr), errors.As(err, &appErr):
			return nil, err
		default:
			return nil, apperrors.NewNetworkError("WeatherFlow request failed", err)
		}
	}

	payload, ok := result.(*ObservationResponse)
	if !ok {
		return nil, apperrors.NewInternalError("unexpected result type from circuit breaker", nil)
	}
	return payload, nil
}
