package probe

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result severity levels, in display order.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Result is one human-readable line of a test run's output feed.
type Result struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StepResult is the machine-readable outcome of one orchestrator step.
type StepResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Snapshot is the JSON form of a completed run, served by the control API.
type Snapshot struct {
	ID                    string       `json:"id"`
	StartedAt             time.Time    `json:"started_at"`
	CompletedAt           time.Time    `json:"completed_at"`
	StepsTotal            int          `json:"steps_total"`
	StepsPassed           int          `json:"steps_passed"`
	SuccessRate           float64      `json:"success_rate"`
	AverageResponseTimeMs int64        `json:"average_response_time_ms"`
	Steps                 []StepResult `json:"steps"`
	Results               []Result     `json:"results"`
}

// Report accumulates the output of one orchestrator run.
type Report struct {
	ID        string
	StartedAt time.Time

	mu          sync.Mutex
	completedAt time.Time
	results     []Result
	steps       []StepResult
	now         func() time.Time
}

// NewReport starts an empty report for a new run.
func NewReport() *Report {
	return &Report{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		now:       time.Now,
	}
}

// Append adds one output line to the run's feed.
func (r *Report) Append(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results = append(r.results, Result{
		Level:     level,
		Message:   message,
		Timestamp: r.now(),
	})
}

// AddStep records one step outcome. It does not emit an output line;
// callers append their own classification so a multi-stage step still
// produces a single line.
func (r *Report) AddStep(name string, passed bool, latency time.Duration, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.steps = append(r.steps, StepResult{
		Name:      name,
		Passed:    passed,
		LatencyMs: latency.Milliseconds(),
		Error:     errMsg,
	})
}

// Complete stamps the run's end time.
func (r *Report) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completedAt = r.now()
}

// Results returns a copy of the output feed in order.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Steps returns a copy of the recorded step outcomes in order.
func (r *Report) Steps() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StepResult, len(r.steps))
	copy(out, r.steps)
	return out
}

// Passed returns the number of passing steps.
func (r *Report) Passed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passedLocked()
}

func (r *Report) passedLocked() int {
	passed := 0
	for _, s := range r.steps {
		if s.Passed {
			passed++
		}
	}
	return passed
}

// SuccessRate returns the percentage of passing steps, rounded to one
// decimal place. An empty run reports zero.
func (r *Report) SuccessRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.steps) == 0 {
		return 0
	}
	rate := float64(r.passedLocked()) / float64(len(r.steps)) * 100
	return math.Round(rate*10) / 10
}

// AverageResponseTimeMs returns the mean step latency in whole
// milliseconds. An empty run reports zero.
func (r *Report) AverageResponseTimeMs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.steps) == 0 {
		return 0
	}
	var total int64
	for _, s := range r.steps {
		total += s.LatencyMs
	}
	return total / int64(len(r.steps))
}

// Snapshot returns the serializable form of the run.
func (r *Report) Snapshot() Snapshot {
	steps := r.Steps()
	results := r.Results()

	r.mu.Lock()
	completedAt := r.completedAt
	r.mu.Unlock()

	return Snapshot{
		ID:                    r.ID,
		StartedAt:             r.StartedAt,
		CompletedAt:           completedAt,
		StepsTotal:            len(steps),
		StepsPassed:           r.Passed(),
		SuccessRate:           r.SuccessRate(),
		AverageResponseTimeMs: r.AverageResponseTimeMs(),
		Steps:                 steps,
		Results:               results,
	}
}
