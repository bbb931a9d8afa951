package types

import "time"

// AgentName identifies one of the backend processing agents.
type AgentName string

const (
	AgentIntake       AgentName = "intake"
	AgentIntelligence AgentName = "intelligence"
	AgentDecision     AgentName = "decision"
)

// AllAgents returns the fixed set of backend agents in pipeline order.
var AllAgents = []AgentName{AgentIntake, AgentIntelligence, AgentDecision}

// AgentStatusInfo describes one backend agent as reported by the dashboard
// metrics endpoint.
type AgentStatusInfo struct {
	Name            string    `json:"name"`
	Status          string    `json:"status"` // active, busy, ready, error
	QueueSize       int       `json:"queue_size"`
	ProcessingCount int       `json:"processing_count"`
	ErrorRate       float64   `json:"error_rate"`
	LastSeen        time.Time `json:"last_seen"`
	Health          bool      `json:"health"`
}

// SystemStatus summarizes overall backend health.
type SystemStatus struct {
	OverallHealth float64 `json:"overall_health"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// PerformanceMetrics holds case throughput and quality counters.
type PerformanceMetrics struct {
	CasesProcessed     int64   `json:"cases_processed"`
	AutoApproved       int64   `json:"auto_approved"`
	UnderReview        int64   `json:"under_review"`
	Rejected           int64   `json:"rejected"`
	AvgProcessingTime  float64 `json:"avg_processing_time"`
	CostPerCase        float64 `json:"cost_per_case"`
	ThroughputPerHour  int64   `json:"throughput_per_hour"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

// CostOptimizationMetrics tracks processing cost against targets.
type CostOptimizationMetrics struct {
	CurrentCostPerCase        float64 `json:"current_cost_per_case"`
	TargetCostPerCase         float64 `json:"target_cost_per_case"`
	CostSavingsPercentage     float64 `json:"cost_savings_percentage"`
	LocalProcessingPercentage float64 `json:"local_processing_percentage"`
	AIFallbackPercentage      float64 `json:"ai_fallback_percentage"`
	FastTrackPercentage       float64 `json:"fast_track_percentage"`
}

// PredictiveInsight is a single recommendation shown on the dashboard.
type PredictiveInsight struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
	ImpactLevel    string  `json:"impact_level"` // low, medium, high, critical
	Confidence     float64 `json:"confidence"`
}

// DashboardMetrics is the full-state snapshot returned by
// GET /dashboard-metrics.
type DashboardMetrics struct {
	SystemStatus     SystemStatus               `json:"system_status"`
	AgentStatus      map[string]AgentStatusInfo `json:"agent_status"`
	Performance      PerformanceMetrics         `json:"performance"`
	CostOptimization CostOptimizationMetrics    `json:"cost_optimization"`
	Insights         []PredictiveInsight        `json:"insights"`
}

// ConversationEntry is one line of the live agent conversation stream.
type ConversationEntry struct {
	AgentName        string `json:"agent_name"`
	AgentType        string `json:"agent_type"` // intake, intelligence, decision, system
	AgentIcon        string `json:"agent_icon"`
	Message          string `json:"message"`
	Timestamp        string `json:"timestamp"`
	ConversationType string `json:"conversation_type"` // processing, analysis, decision, case_closed
}

// CaseClosed reports whether this entry marks the end of a case.
func (e ConversationEntry) CaseClosed() bool {
	return e.ConversationType == "case_closed"
}

// CaseSummary is one row of the active case list.
type CaseSummary struct {
	CaseID              string     `json:"case_id"`
	CustomerName        string     `json:"customer_name"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	CreatedAt           time.Time  `json:"created_at"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// TimelineItem is one event in a case's processing history.
type TimelineItem struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Agent       string `json:"agent"`
	Status      string `json:"status"`
}

// WorkflowStep describes one stage of the three-stage case workflow.
type WorkflowStep struct {
	Status         string   `json:"status"` // completed, processing, waiting, failed
	StatusText     string   `json:"status_text"`
	Details        string   `json:"details"`
	Confidence     *float64 `json:"confidence,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
}

// WorkflowStatus is the fixed three-stage workflow record for a case.
type WorkflowStatus struct {
	Intake       WorkflowStep `json:"intake"`
	Intelligence WorkflowStep `json:"intelligence"`
	Decision     WorkflowStep `json:"decision"`
}

// RiskFactor is one contributor to a case's risk score.
type RiskFactor struct {
	Factor      string  `json:"factor"`
	Description string  `json:"description"`
	Impact      float64 `json:"impact"`
	Severity    string  `json:"severity"`
}

// RiskAssessmentDetails summarizes the intelligence agent's risk view of
// a case.
type RiskAssessmentDetails struct {
	RiskScore   float64      `json:"risk_score"`
	RiskLevel   string       `json:"risk_level"`
	RiskFactors []RiskFactor `json:"risk_factors"`
	Confidence  float64      `json:"confidence"`
}

// ComplianceSummaryDetails carries the per-regulation compliance verdicts
// for a case.
type ComplianceSummaryDetails struct {
	OverallStatus   string   `json:"overall_status"`
	AMLStatus       string   `json:"aml_status"`
	KYCStatus       string   `json:"kyc_status"`
	GDPRStatus      string   `json:"gdpr_status"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
}

// CaseDetail is the on-demand detail view for a selected case. It is
// re-fetched on every selection and never cached.
type CaseDetail struct {
	CaseID            string                   `json:"case_id"`
	CustomerName      string                   `json:"customer_name"`
	CaseType          string                   `json:"case_type"`
	Priority          string                   `json:"priority"`
	Status            string                   `json:"status"`
	StatusColor       string                   `json:"status_color"`
	StatusIcon        string                   `json:"status_icon"`
	Timeline          []TimelineItem           `json:"timeline"`
	Workflow          WorkflowStatus           `json:"workflow"`
	RiskAssessment    RiskAssessmentDetails    `json:"risk_assessment"`
	ComplianceSummary ComplianceSummaryDetails `json:"compliance_summary"`
}

// ImprovementItem is one entry of the learning dashboard's recent
// improvements feed.
type ImprovementItem struct {
	ImprovementType string    `json:"improvement_type"` // success, warning, info
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Timestamp       time.Time `json:"timestamp"`
}

// PerformanceHistory carries the learning dashboard's trend series.
// All slices are index-aligned with Dates.
type PerformanceHistory struct {
	Dates          []string  `json:"dates"`
	Accuracy       []float64 `json:"accuracy"`
	Cost           []float64 `json:"cost"`
	ProcessingTime []float64 `json:"processing_time"`
}

// LearningMetrics is the full-state snapshot for the learning dashboard.
type LearningMetrics struct {
	CasesProcessed     int64              `json:"cases_processed"`
	ModelAccuracy      float64            `json:"model_accuracy"`
	ConfidenceTrend    string             `json:"confidence_trend"`
	LastUpdate         string             `json:"last_update"`
	UpdateFrequency    string             `json:"update_frequency"`
	RecentImprovements []ImprovementItem  `json:"recent_improvements"`
	PerformanceHistory PerformanceHistory `json:"performance_history"`
}

// ChatMessage is one entry of the agent chat transcript.
type ChatMessage struct {
	SenderType string `json:"sender_type"` // user, agent, system
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	AgentType  string `json:"agent_type,omitempty"`
}

// ChatResponse is the reply returned by POST /chat/message.
type ChatResponse struct {
	AgentName  string  `json:"agent_name"`
	AgentType  string  `json:"agent_type"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}
