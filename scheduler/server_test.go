package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestWebServer(t *testing.T) (*ClockScheduler, *WebServer) {
	t.Helper()

	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	hs := NewWebServer(scheduler, 8089, 0)
	if hs == nil {
		t.Fatal("NewWebServer returned nil")
	}
	return scheduler, hs
}

func TestNewWebServer_Disabled(t *testing.T) {
	scheduler, err := NewClockScheduler(testConfig(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	hs := NewWebServer(scheduler, 0, time.Second)
	if hs != nil {
		t.Fatal("Expected nil web server for port 0")
	}

	// a disabled server is safe to use
	if err := hs.Start(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	hs.Publish(scheduler.Snapshot())
	if err := hs.Stop(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestHealthHandler(t *testing.T) {
	_, hs := newTestWebServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	hs.healthHandler(rec, req)

	// not started yet
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}

	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.Status != "unhealthy" {
		t.Errorf("Expected unhealthy, got %s", health.Status)
	}
	if health.Scheduler.Days != 3 {
		t.Errorf("Expected 3 days, got %d", health.Scheduler.Days)
	}
	if health.Scheduler.TickStep != "15m0s" {
		t.Errorf("Expected tick step 15m0s, got %s", health.Scheduler.TickStep)
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	_, hs := newTestWebServer(t)

	handlers := map[string]http.HandlerFunc{
		"/api/health": hs.healthHandler,
		"/api/ready":  hs.readinessHandler,
		"/api/status": hs.statusHandler,
		"/api/table":  hs.tableHandler,
	}

	for path, handler := range handlers {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: expected status 405, got %d", path, rec.Code)
		}
	}
}

func TestStatusHandler(t *testing.T) {
	scheduler, hs := newTestWebServer(t)
	scheduler.Tick()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	hs.statusHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response struct {
		SchedulerStatus SchedulerStatus `json:"scheduler_status"`
		Clock           struct {
			Type     string `json:"type"`
			Phase    string `json:"phase"`
			Daylight bool   `json:"daylight"`
			NextRise struct {
				Label     string `json:"label"`
				Countdown string `json:"countdown"`
			} `json:"next_rise"`
		} `json:"clock"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.SchedulerStatus.Ticks != 1 {
		t.Errorf("Expected 1 tick, got %d", response.SchedulerStatus.Ticks)
	}
	if response.Clock.Type != "snapshot" {
		t.Errorf("Expected snapshot, got %s", response.Clock.Type)
	}
	if response.Clock.Phase != "before_rise" || response.Clock.Daylight {
		t.Errorf("Expected night before sunrise, got %s", response.Clock.Phase)
	}
	if response.Clock.NextRise.Label != "today" || response.Clock.NextRise.Countdown != "01:00:00" {
		t.Errorf("Expected sunrise today in one hour, got %+v", response.Clock.NextRise)
	}
}

func TestTableHandler(t *testing.T) {
	_, hs := newTestWebServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/table", nil)
	rec := httptest.NewRecorder()
	hs.tableHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response struct {
		Timezone string    `json:"timezone"`
		Days     []DayInfo `json:"days"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Timezone != "UTC-08" {
		t.Errorf("Expected UTC-08, got %s", response.Timezone)
	}
	if len(response.Days) != 3 {
		t.Fatalf("Expected 3 days, got %d", len(response.Days))
	}

	expectedDates := []string{"2019-12-21", "2020-01-20", "2020-02-19"}
	for i, day := range response.Days {
		if day.Date != expectedDates[i] {
			t.Errorf("Day %d: expected %s, got %s", i, expectedDates[i], day.Date)
		}
		if len(day.Track) != 33 {
			t.Errorf("Day %d: expected 33 track points, got %d", i, len(day.Track))
		}
		if day.Entry.Rise >= day.Entry.Set {
			t.Errorf("Day %d: expected sunrise before sunset", i)
		}
	}
}

func TestWebSocket(t *testing.T) {
	scheduler, hs := newTestWebServer(t)

	go hs.handleBroadcasts()
	defer close(hs.done)

	server := httptest.NewServer(http.HandlerFunc(hs.wsHandler))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	readSnapshot := func() map[string]any {
		t.Helper()
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("Failed to set deadline: %v", err)
		}
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Failed to read message: %v", err)
		}
		return msg
	}

	initial := readSnapshot()
	if initial["type"] != "snapshot" {
		t.Errorf("Expected initial snapshot, got %v", initial["type"])
	}
	if initial["tick"] != float64(0) {
		t.Errorf("Expected tick 0, got %v", initial["tick"])
	}

	// the client is registered before the initial message is sent
	scheduler.Tick()
	hs.Publish(scheduler.Tick())

	update := readSnapshot()
	if update["tick"] != float64(1) {
		t.Errorf("Expected tick 1, got %v", update["tick"])
	}
	sun, ok := update["sun"].(map[string]any)
	if !ok {
		t.Fatalf("Expected sun position, got %v", update["sun"])
	}
	if _, ok := sun["azimuth_south"]; !ok {
		t.Error("Expected south based azimuth")
	}
}
