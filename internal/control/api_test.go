package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dwaltig/agentdeck/internal/probe"
	"github.com/rs/zerolog"
)

func completedReport() *probe.Report {
	r := probe.NewReport()
	r.AddStep("intake health", true, 10*time.Millisecond, "")
	r.Append(probe.LevelSuccess, "intake healthy")
	r.Complete()
	return r
}

func newTestAPI() *API {
	return NewAPI([]string{"http://localhost:5173"}, zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestAPI().Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "agentdeck-console" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	api := newTestAPI()
	api.SetHandlers(
		func() map[string]interface{} {
			return map[string]interface{}{
				"connection_state": "open",
				"active_view":      "dashboard",
			}
		},
		nil, nil, nil,
	)

	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["connection_state"] != "open" || body["active_view"] != "dashboard" {
		t.Errorf("unexpected status body: %v", body)
	}
}

func TestRunTestsEndpoint(t *testing.T) {
	api := newTestAPI()
	api.SetHandlers(
		nil,
		func(ctx context.Context) (*probe.Report, error) {
			return completedReport(), nil
		},
		nil, nil,
	)

	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/tests/run", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var snap probe.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.StepsTotal != 1 || snap.StepsPassed != 1 || snap.SuccessRate != 100.0 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestRunTestsConflict(t *testing.T) {
	api := newTestAPI()
	api.SetHandlers(
		nil,
		func(ctx context.Context) (*probe.Report, error) {
			return nil, probe.ErrRunInProgress
		},
		nil, nil,
	)

	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/tests/run", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 while a run is in progress, got %d", resp.StatusCode)
	}
}

func TestLastTestsEndpoint(t *testing.T) {
	var last *probe.Report
	api := newTestAPI()
	api.SetHandlers(nil, nil, func() *probe.Report { return last }, nil)

	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/tests/last")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 before any run, got %d", resp.StatusCode)
	}

	last = completedReport()
	resp, err = http.Get(srv.URL + "/tests/last")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after a run, got %d", resp.StatusCode)
	}
}

func TestActivateViewEndpoint(t *testing.T) {
	var activated string
	api := newTestAPI()
	api.SetHandlers(nil, nil, nil, func(ctx context.Context, view string) error {
		if view != "live-agents" {
			return fmt.Errorf("unknown view: %s", view)
		}
		activated = view
		return nil
	})

	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/views/activate", "application/json", strings.NewReader(`{"view":"live-agents"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if activated != "live-agents" {
		t.Errorf("activate callback not invoked, got %q", activated)
	}

	resp, err = http.Post(srv.URL+"/views/activate", "application/json", strings.NewReader(`{"view":"settings"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown view, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/views/activate", "application/json", strings.NewReader(`not json`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestAPI().Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "agentdeck_frames_received_total") {
		t.Errorf("metrics output missing counters:\n%s", body)
	}
}
