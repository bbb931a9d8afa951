package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Target is one backend agent the orchestrator probes.
type Target struct {
	Name    string
	BaseURL string
}

// TargetStatus is the per-target indicator derived from the health probe.
type TargetStatus string

const (
	StatusHealthy  TargetStatus = "healthy"
	StatusDegraded TargetStatus = "degraded"
	StatusOffline  TargetStatus = "offline"
)

// StatusFunc receives per-target status updates as each health probe
// completes, before the run finishes.
type StatusFunc func(target string, status TargetStatus)

// ErrRunInProgress is returned when a run is requested while another is
// still executing.
var ErrRunInProgress = errors.New("test run already in progress")

// Orchestrator runs the sequential system test suite: a health probe per
// target, a performance probe per target, and one end-to-end pipeline
// probe across all targets.
type Orchestrator struct {
	targets       []Target
	healthClient  *http.Client
	processClient *http.Client
	logger        zerolog.Logger
	onStatus      StatusFunc

	runMu sync.Mutex

	mu   sync.Mutex
	last *Report
}

// NewOrchestrator creates an orchestrator over the given targets in
// pipeline order.
func NewOrchestrator(targets []Target, healthTimeout, processTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if healthTimeout <= 0 {
		healthTimeout = 5 * time.Second
	}
	if processTimeout <= 0 {
		processTimeout = 10 * time.Second
	}
	return &Orchestrator{
		targets:       targets,
		healthClient:  &http.Client{Timeout: healthTimeout},
		processClient: &http.Client{Timeout: processTimeout},
		logger:        logger.With().Str("component", "probe").Logger(),
	}
}

// OnStatus registers the per-target status callback.
func (o *Orchestrator) OnStatus(fn StatusFunc) {
	o.onStatus = fn
}

// LastReport returns the most recently completed report, or nil if no
// run has completed yet.
func (o *Orchestrator) LastReport() *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Run executes the full suite sequentially and returns its report. Only
// one run may execute at a time; a concurrent call fails immediately
// with ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	report := NewReport()
	o.logger.Info().Str("run_id", report.ID).Msg("test run started")
	report.Append(LevelInfo, "Starting system test run...")

	report.Append(LevelInfo, "Running health probes...")
	for _, target := range o.targets {
		o.runStep(report, target.Name+" health", func() { o.probeHealth(ctx, report, target) })
	}

	report.Append(LevelInfo, "Running performance probes...")
	for _, target := range o.targets {
		o.runStep(report, target.Name+" performance", func() { o.probePerformance(ctx, report, target) })
	}

	report.Append(LevelInfo, "Running end-to-end pipeline probe...")
	o.runStep(report, "end-to-end pipeline", func() { o.probePipeline(ctx, report) })

	passed := report.Passed()
	total := len(report.Steps())
	report.Append(LevelInfo, fmt.Sprintf("Test run complete: %d/%d passed (%.1f%%), avg response %dms",
		passed, total, report.SuccessRate(), report.AverageResponseTimeMs()))
	report.Complete()

	metrics.Get().RecordProbeRun(passed, total-passed)
	o.logger.Info().
		Str("run_id", report.ID).
		Int("passed", passed).
		Int("total", total).
		Msg("test run complete")

	o.mu.Lock()
	o.last = report
	o.mu.Unlock()

	return report, nil
}

// runStep isolates one step so a panicking probe fails that step and the
// run continues.
func (o *Orchestrator) runStep(report *Report, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("%s crashed: %v", name, rec)
			o.logger.Error().Str("step", name).Interface("panic", rec).Msg("probe step panicked")
			report.Append(LevelError, "❌ "+msg)
			report.AddStep(name, false, 0, msg)
		}
	}()
	fn()
}

// probeHealth checks one target's /health endpoint. A failing target
// never aborts the run; the next target is still probed.
func (o *Orchestrator) probeHealth(ctx context.Context, report *Report, target Target) {
	name := target.Name + " health"
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.BaseURL+"/health", nil)
	if err != nil {
		o.finishHealth(report, target, name, time.Since(start), StatusOffline, err.Error())
		return
	}

	resp, err := o.healthClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		o.finishHealth(report, target, name, elapsed, StatusOffline, err.Error())
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		o.finishHealth(report, target, name, elapsed, StatusDegraded, fmt.Sprintf("status %d", resp.StatusCode))
		return
	}
	o.finishHealth(report, target, name, elapsed, StatusHealthy, "")
}

// finishHealth records one health step and pushes the per-target status
// immediately.
func (o *Orchestrator) finishHealth(report *Report, target Target, name string, elapsed time.Duration, status TargetStatus, detail string) {
	switch status {
	case StatusHealthy:
		report.Append(LevelSuccess, fmt.Sprintf("✅ %s healthy (%dms)", target.Name, elapsed.Milliseconds()))
		report.AddStep(name, true, elapsed, "")
	case StatusDegraded:
		msg := fmt.Sprintf("%s degraded: %s", target.Name, detail)
		report.Append(LevelWarning, "❌ "+msg)
		report.AddStep(name, false, elapsed, msg)
	case StatusOffline:
		msg := fmt.Sprintf("%s offline: %s", target.Name, detail)
		report.Append(LevelError, "❌ "+msg)
		report.AddStep(name, false, elapsed, msg)
	}

	if o.onStatus != nil {
		o.onStatus(target.Name, status)
	}
}

// probePerformance measures one target's /process latency with a
// synthetic payload.
func (o *Orchestrator) probePerformance(ctx context.Context, report *Report, target Target) {
	name := target.Name + " performance"
	start := time.Now()

	_, err := o.process(ctx, target, syntheticCase())
	elapsed := time.Since(start)
	if err != nil {
		msg := fmt.Sprintf("%s performance probe failed: %v", target.Name, err)
		report.Append(LevelError, "❌ "+msg)
		report.AddStep(name, false, elapsed, msg)
		return
	}

	report.Append(LevelSuccess, fmt.Sprintf("✅ %s responded in %dms", target.Name, elapsed.Milliseconds()))
	report.AddStep(name, true, elapsed, "")
}

// probePipeline runs one synthetic case through every target in order,
// feeding each stage's output into the next. The first failing stage
// aborts the step, so one broken stage yields exactly one failure.
func (o *Orchestrator) probePipeline(ctx context.Context, report *Report) {
	const name = "end-to-end pipeline"
	start := time.Now()

	// Each stage's request carries the results of every prior stage,
	// keyed by "<stage>_result".
	payload := syntheticCase()
	prior := make(map[string]interface{})
	for i, target := range o.targets {
		result, err := o.process(ctx, target, payload)
		if err != nil {
			elapsed := time.Since(start)
			msg := fmt.Sprintf("pipeline failed at %s (stage %d/%d): %v", target.Name, i+1, len(o.targets), err)
			report.Append(LevelError, "❌ "+msg)
			report.AddStep(name, false, elapsed, msg)
			return
		}
		prior[target.Name+"_result"] = result
		payload = make(map[string]interface{}, len(prior))
		for k, v := range prior {
			payload[k] = v
		}
	}

	elapsed := time.Since(start)
	report.Append(LevelSuccess, fmt.Sprintf("✅ pipeline completed %d stages in %dms", len(o.targets), elapsed.Milliseconds()))
	report.AddStep(name, true, elapsed, "")
}

// process posts one payload to a target's /process endpoint and decodes
// the JSON result.
func (o *Orchestrator) process(ctx context.Context, target Target, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.BaseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.processClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// syntheticCase builds the test payload fed to /process probes.
func syntheticCase() map[string]interface{} {
	return map[string]interface{}{
		"case_id":     "test-" + uuid.New().String(),
		"case_type":   "synthetic",
		"customer_id": "probe",
		"description": "synthetic test case generated by the console test runner",
	}
}
