package types

import (
	"encoding/json"
	"time"
)

// Frame kinds delivered over the event stream. Kinds outside this set are
// ignored by the router.
const (
	FrameAgentStatusUpdate  = "agent_status_update"
	FrameCaseUpdate         = "case_update"
	FramePerformanceMetrics = "performance_metrics"
	FrameAgentConversation  = "agent_conversation"
	FrameCostOptimization   = "cost_optimization"
	FrameLearningUpdate     = "learning_update"
)

// Frame is the envelope for one event-stream message. Payload stays raw
// until the router resolves the kind.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AgentStatusPayload updates a single agent's live status.
type AgentStatusPayload struct {
	AgentName       string    `json:"agent_name"`
	Status          string    `json:"status"`
	QueueSize       int       `json:"queue_size"`
	ProcessingCount int       `json:"processing_count"`
	LastActivity    time.Time `json:"last_activity"`
	HealthScore     float64   `json:"health_score"`
	ErrorRate       float64   `json:"error_rate"`
}

// CaseUpdatePayload reports progress of one in-flight case.
type CaseUpdatePayload struct {
	SessionID           string                  `json:"session_id"`
	CustomerID          string                  `json:"customer_id"`
	CurrentStage        string                  `json:"current_stage"`
	ProgressPercentage  int                     `json:"progress_percentage"`
	AgentWorkflow       map[string]WorkflowStep `json:"agent_workflow"`
	EstimatedCompletion *time.Time              `json:"estimated_completion,omitempty"`
}

// CostOptimizationPayload mirrors CostOptimizationMetrics on the stream.
type CostOptimizationPayload = CostOptimizationMetrics

// PerformanceMetricsPayload mirrors PerformanceMetrics on the stream.
type PerformanceMetricsPayload = PerformanceMetrics

// LearningUpdatePayload carries incremental learning metrics.
type LearningUpdatePayload struct {
	CasesProcessed  int64     `json:"cases_processed"`
	ModelAccuracy   float64   `json:"model_accuracy"`
	ConfidenceTrend float64   `json:"confidence_trend"`
	LastModelUpdate time.Time `json:"last_model_update"`
}
