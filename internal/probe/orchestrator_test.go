package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeTarget is one simulated backend agent with switchable health and
// process behavior.
type fakeTarget struct {
	srv           *httptest.Server
	healthStatus  int32
	processStatus int32
	processCalls  int64
}

func newFakeTarget(t *testing.T) *fakeTarget {
	t.Helper()

	ft := &fakeTarget{healthStatus: http.StatusOK, processStatus: http.StatusOK}
	ft.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(int(atomic.LoadInt32(&ft.healthStatus)))
		case "/process":
			atomic.AddInt64(&ft.processCalls, 1)
			status := int(atomic.LoadInt32(&ft.processStatus))
			if status != http.StatusOK {
				http.Error(w, "stage failed", status)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"result": "ok"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ft.srv.Close)
	return ft
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, []*fakeTarget) {
	t.Helper()

	fakes := []*fakeTarget{newFakeTarget(t), newFakeTarget(t), newFakeTarget(t)}
	targets := []Target{
		{Name: "intake", BaseURL: fakes[0].srv.URL},
		{Name: "intelligence", BaseURL: fakes[1].srv.URL},
		{Name: "decision", BaseURL: fakes[2].srv.URL},
	}
	return NewOrchestrator(targets, time.Second, time.Second, zerolog.Nop()), fakes
}

func countMessages(results []Result, substr string) int {
	n := 0
	for _, r := range results {
		if strings.Contains(r.Message, substr) {
			n++
		}
	}
	return n
}

func TestRunAllHealthy(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	var mu sync.Mutex
	statuses := map[string]TargetStatus{}
	o.OnStatus(func(target string, status TargetStatus) {
		mu.Lock()
		statuses[target] = status
		mu.Unlock()
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := report.Steps()
	if len(steps) != 7 {
		t.Fatalf("expected 7 steps (3 health, 3 performance, 1 pipeline), got %d", len(steps))
	}
	for _, s := range steps {
		if !s.Passed {
			t.Errorf("step %s failed: %s", s.Name, s.Error)
		}
	}
	if report.SuccessRate() != 100.0 {
		t.Errorf("expected 100%% success, got %v", report.SuccessRate())
	}

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"intake", "intelligence", "decision"} {
		if statuses[name] != StatusHealthy {
			t.Errorf("expected %s healthy, got %s", name, statuses[name])
		}
	}
}

func TestRunDegradedTargetContinues(t *testing.T) {
	o, fakes := newTestOrchestrator(t)
	atomic.StoreInt32(&fakes[1].healthStatus, http.StatusServiceUnavailable)

	var mu sync.Mutex
	statuses := map[string]TargetStatus{}
	o.OnStatus(func(target string, status TargetStatus) {
		mu.Lock()
		statuses[target] = status
		mu.Unlock()
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	steps := report.Steps()
	if len(steps) != 7 {
		t.Fatalf("one degraded target must not shorten the run, got %d steps", len(steps))
	}

	failed := 0
	for _, s := range steps {
		if !s.Passed {
			failed++
			if s.Name != "intelligence health" {
				t.Errorf("unexpected failed step: %s", s.Name)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 failed step, got %d", failed)
	}

	mu.Lock()
	defer mu.Unlock()
	if statuses["intelligence"] != StatusDegraded {
		t.Errorf("expected intelligence degraded, got %s", statuses["intelligence"])
	}
	if statuses["intake"] != StatusHealthy || statuses["decision"] != StatusHealthy {
		t.Errorf("healthy targets misclassified: %v", statuses)
	}
}

func TestRunOfflineTarget(t *testing.T) {
	o, fakes := newTestOrchestrator(t)
	fakes[2].srv.Close()

	var mu sync.Mutex
	statuses := map[string]TargetStatus{}
	o.OnStatus(func(target string, status TargetStatus) {
		mu.Lock()
		statuses[target] = status
		mu.Unlock()
	})

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	if statuses["decision"] != StatusOffline {
		t.Errorf("expected decision offline, got %s", statuses["decision"])
	}
	mu.Unlock()

	if len(report.Steps()) != 7 {
		t.Errorf("an offline target must not shorten the run, got %d steps", len(report.Steps()))
	}
}

func TestPipelineFailsFastAtBrokenStage(t *testing.T) {
	o, fakes := newTestOrchestrator(t)
	atomic.StoreInt32(&fakes[1].processStatus, http.StatusInternalServerError)

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The decision stage sees exactly one /process call, from its own
	// performance probe. The pipeline must stop at the broken stage.
	if got := atomic.LoadInt64(&fakes[2].processCalls); got != 1 {
		t.Errorf("pipeline reached a stage past the failure: %d decision calls", got)
	}

	var pipelineStep *StepResult
	for _, s := range report.Steps() {
		if s.Name == "end-to-end pipeline" {
			step := s
			pipelineStep = &step
		}
	}
	if pipelineStep == nil {
		t.Fatal("pipeline step missing from report")
	}
	if pipelineStep.Passed {
		t.Error("pipeline step must fail when a stage fails")
	}
	if !strings.Contains(pipelineStep.Error, "intelligence") {
		t.Errorf("pipeline error should name the broken stage: %s", pipelineStep.Error)
	}

	if got := countMessages(report.Results(), "pipeline failed"); got != 1 {
		t.Errorf("expected exactly one pipeline failure line, got %d", got)
	}
}

func TestRunSummaryLine(t *testing.T) {
	o, fakes := newTestOrchestrator(t)
	atomic.StoreInt32(&fakes[0].healthStatus, http.StatusServiceUnavailable)

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := report.Results()
	last := results[len(results)-1]
	if last.Level != LevelInfo || !strings.Contains(last.Message, "6/7 passed (85.7%)") {
		t.Errorf("unexpected summary line: %+v", last)
	}
}

func TestConcurrentRunRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	o := NewOrchestrator([]Target{{Name: "intake", BaseURL: slow.URL}}, 5*time.Second, 5*time.Second, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		o.Run(context.Background())
		close(done)
	}()
	<-started

	if _, err := o.Run(context.Background()); err != ErrRunInProgress {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(release)
	<-done
}

func TestLastReportTracksRuns(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	if o.LastReport() != nil {
		t.Fatal("expected no report before the first run")
	}

	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.LastReport() != report {
		t.Error("LastReport must return the latest completed run")
	}
}
