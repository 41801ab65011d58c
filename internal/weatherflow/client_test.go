package weatherflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/anime-shed/allsky-modules-go/internal/errors"
	"github.com/anime-shed/allsky-modules-go/internal/repository"
)

type fakeAPI struct {
	status   int
	body     gin.H
	requests int
	token    string
	station  string
}

func newFakeAPI(t *testing.T, api *fakeAPI) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/observations/station/:id", func(c *gin.Context) {
		api.requests++
		api.station = c.Param("id")
		api.token = c.Query("token")
		if api.status != http.StatusOK {
			c.JSON(api.status, gin.H{"error": "nope"})
			return
		}
		c.JSON(http.StatusOK, api.body)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func TestObservations(t *testing.T) {
	api := &fakeAPI{
		status: http.StatusOK,
		body: gin.H{
			"status":     gin.H{"status_code": 0, "status_message": "SUCCESS"},
			"station_id": 1234,
			"obs": []gin.H{
				{"air_temperature": 20.0, "relative_humidity": 55, "brightness": 12345},
			},
		},
	}
	server := newFakeAPI(t, api)
	client := NewClient(server.Client(), server.URL)

	resp, err := client.Observations(context.Background(), "1234", "secret key")
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if api.station != "1234" || api.token != "secret key" {
		t.Errorf("Unexpected request station=%q token=%q", api.station, api.token)
	}
	if resp.Status == nil || resp.Status.StatusCode != 0 || resp.StationID != 1234 {
		t.Errorf("Unexpected status %+v", resp)
	}
	if len(resp.Obs) != 1 || resp.Obs[0]["air_temperature"] != 20.0 {
		t.Errorf("Unexpected obs %v", resp.Obs)
	}
}

func TestObservations_MissingObs(t *testing.T) {
	api := &fakeAPI{
		status: http.StatusOK,
		body:   gin.H{"status": gin.H{"status_code": 0, "status_message": "SUCCESS"}},
	}
	server := newFakeAPI(t, api)

	resp, err := NewClient(server.Client(), server.URL).Observations(context.Background(), "1", "k")
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if resp.Obs != nil {
		t.Errorf("Expected nil obs, got %v", resp.Obs)
	}
}

func TestObservations_StatusError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests, http.StatusBadGateway} {
		api := &fakeAPI{status: code}
		server := newFakeAPI(t, api)

		_, err := NewClient(server.Client(), server.URL).Observations(context.Background(), "1", "k")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("Expected StatusError for %d, got %v", code, err)
		}
		if statusErr.Code != code {
			t.Errorf("Expected code %d, got %d", code, statusErr.Code)
		}
		if api.requests != 1 {
			t.Errorf("Expected exactly one request for %d, got %d", code, api.requests)
		}
	}
}

func TestObservations_CircuitBreaker(t *testing.T) {
	api := &fakeAPI{status: http.StatusServiceUnavailable}
	server := newFakeAPI(t, api)
	client := NewClient(server.Client(), server.URL)

	for i := 0; i < 3; i++ {
		client.Observations(context.Background(), "1", "k")
	}
	_, err := client.Observations(context.Background(), "1", "k")
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected breaker to open, got %v", err)
	}
	if api.requests != 3 {
		t.Errorf("Expected open breaker to block the request, got %d requests", api.requests)
	}
}

func TestObservations_ClientErrorsDoNotTrip(t *testing.T) {
	api := &fakeAPI{status: http.StatusUnauthorized}
	server := newFakeAPI(t, api)
	client := NewClient(server.Client(), server.URL)

	for i := 0; i < 5; i++ {
		client.Observations(context.Background(), "1", "k")
	}
	if api.requests != 5 {
		t.Errorf("Expected every request to reach the API, got %d", api.requests)
	}
}

func TestObservations_TransportError(t *testing.T) {
	client := NewClient(&http.Client{Timeout: time.Second}, "http://127.0.0.1:1")
	_, err := client.Observations(context.Background(), "1", "k")
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected network error, got %v", err)
	}
}

func TestObservations_DecodeError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/observations/station/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "not json")
	})
	server := httptest.NewServer(r)
	defer server.Close()

	_, err := NewClient(server.Client(), server.URL).Observations(context.Background(), "1", "k")
	if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestObservationURL(t *testing.T) {
	client := NewClient(nil, "")
	got := client.ObservationURL("5678", "abc")
	want := "https://swd.weatherflow.com/swd/rest/observations/station/5678?token=abc"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestObservations_MissingStatus(t *testing.T) {
	api := &fakeAPI{
		status: http.StatusOK,
		body:   gin.H{"obs": []gin.H{{"air_temperature": 20.0}}},
	}
	server := newFakeAPI(t, api)

	resp, err := NewClient(server.Client(), server.URL).Observations(context.Background(), "1", "k")
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if resp.Status != nil {
		t.Errorf("Expected nil status, got %+v", resp.Status)
	}
}

func TestObservations_BreakerStateSurvivesClients(t *testing.T) {
	api := &fakeAPI{status: http.StatusServiceUnavailable}
	server := newFakeAPI(t, api)
	store := repository.NewMemoryStore()
	now := time.Unix(1700000000, 0)

	// A fresh client per call, as each process builds its own.
	call := func() error {
		client := NewClient(server.Client(), server.URL,
			WithBreakerStore(store),
			WithClock(func() time.Time { return now }),
			WithOpenPeriod(5*time.Minute))
		_, err := client.Observations(context.Background(), "1", "k")
		return err
	}

	for i := 0; i < FailureThreshold; i++ {
		if err := call(); IsCircuitOpen(err) {
			t.Fatalf("call %d: breaker opened too early", i+1)
		}
		now = now.Add(time.Minute)
	}

	state, err := store.BreakerState(context.Background(), BreakerName)
	if err != nil {
		t.Fatalf("BreakerState failed: %v", err)
	}
	if state.Failures != FailureThreshold || state.OpenUntil.IsZero() {
		t.Fatalf("Expected tripped state, got %+v", state)
	}

	if err := call(); !IsCircuitOpen(err) || !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected open circuit, got %v", err)
	}
	if api.requests != FailureThreshold {
		t.Errorf("Expected open breaker to block the request, got %d requests", api.requests)
	}

	// After the open period one trial request goes through; failing it reopens.
	now = state.OpenUntil
	if err := call(); IsCircuitOpen(err) {
		t.Fatalf("Expected a trial request, got %v", err)
	}
	if api.requests != FailureThreshold+1 {
		t.Errorf("Expected trial request to reach the API, got %d requests", api.requests)
	}
	if err := call(); !IsCircuitOpen(err) {
		t.Errorf("Expected failed trial to reopen the breaker, got %v", err)
	}

	// A success closes it again.
	api.status = http.StatusOK
	api.body = gin.H{"status": gin.H{"status_code": 0}, "obs": []gin.H{}}
	now = now.Add(10 * time.Minute)
	if err := call(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	state, _ = store.BreakerState(context.Background(), BreakerName)
	if state.Failures != 0 || !state.OpenUntil.IsZero() {
		t.Errorf("Expected reset state, got %+v", state)
	}
}
