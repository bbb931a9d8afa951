package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dwaltig/agentdeck/internal/store"
	"github.com/dwaltig/agentdeck/internal/types"
)

// RenderState is everything a render needs: the active view, the latest
// metric snapshot, and the per-view data held by the controller. Render
// is a pure function of this state.
type RenderState struct {
	View          View
	Connected     bool
	Metrics       map[string]interface{}
	Conversations []types.ConversationEntry
	Cases         []types.CaseSummary
	CaseDetail    *types.CaseDetail
	Learning      *types.LearningMetrics
	Chat          []types.ChatMessage
	Alerts        []Alert
}

// Render produces the plain-text representation of one view.
func Render(s RenderState) string {
	var b strings.Builder

	indicator := "disconnected"
	if s.Connected {
		indicator = "connected"
	}
	fmt.Fprintf(&b, "=== %s [%s] ===\n", s.View, indicator)

	for _, alert := range s.Alerts {
		fmt.Fprintf(&b, "! [%s] %s\n", alert.Level, alert.Message)
	}

	switch s.View {
	case ViewDashboard:
		renderDashboard(&b, s)
	case ViewLiveAgents:
		renderLiveAgents(&b, s)
	case ViewCaseProcessing:
		renderCaseProcessing(&b, s)
	case ViewLearning:
		renderLearning(&b, s)
	case ViewAgentChat:
		renderChat(&b, s)
	}

	return b.String()
}

func renderDashboard(b *strings.Builder, s RenderState) {
	if v, ok := s.Metrics[store.MetricSystemStatus].(types.SystemStatus); ok {
		fmt.Fprintf(b, "system health: %.0f%%  uptime: %ds\n", v.OverallHealth*100, v.UptimeSeconds)
	}

	if agents, ok := s.Metrics[store.MetricAgentStatus].(map[string]types.AgentStatusInfo); ok {
		names := make([]string, 0, len(agents))
		for name := range agents {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			a := agents[name]
			fmt.Fprintf(b, "agent %-24s %-8s queue=%d processing=%d\n",
				name, a.Status, a.QueueSize, a.ProcessingCount)
		}
	}

	if v, ok := s.Metrics[store.MetricPerformance].(types.PerformanceMetrics); ok {
		fmt.Fprintf(b, "cases: %d processed, %d auto-approved, %d under review, %d rejected\n",
			v.CasesProcessed, v.AutoApproved, v.UnderReview, v.Rejected)
		fmt.Fprintf(b, "avg processing: %.1fs  accuracy: %.1f%%  throughput: %d/h\n",
			v.AvgProcessingTime, v.AccuracyPercentage, v.ThroughputPerHour)
	}

	if v, ok := s.Metrics[store.MetricCostOptimization].(types.CostOptimizationMetrics); ok {
		fmt.Fprintf(b, "cost/case: $%.2f (target $%.2f)  savings: %.1f%%  local: %.1f%%\n",
			v.CurrentCostPerCase, v.TargetCostPerCase, v.CostSavingsPercentage, v.LocalProcessingPercentage)
	}

	if insights, ok := s.Metrics[store.MetricInsights].([]types.PredictiveInsight); ok {
		for _, in := range insights {
			fmt.Fprintf(b, "insight [%s] %s: %s\n", in.ImpactLevel, in.Title, in.Recommendation)
		}
	}
}

func renderLiveAgents(b *strings.Builder, s RenderState) {
	if len(s.Conversations) == 0 {
		b.WriteString("no agent activity yet\n")
		return
	}
	for _, e := range s.Conversations {
		marker := ""
		if e.CaseClosed() {
			marker = " [case closed]"
		}
		fmt.Fprintf(b, "%s %s %s: %s%s\n", e.Timestamp, e.AgentIcon, e.AgentName, e.Message, marker)
	}
}

func renderCaseProcessing(b *strings.Builder, s RenderState) {
	if len(s.Cases) == 0 {
		b.WriteString("no active cases\n")
	}
	for _, c := range s.Cases {
		fmt.Fprintf(b, "case %-14s %-20s %-18s priority=%s\n",
			c.CaseID, c.CustomerName, c.Status, c.Priority)
	}

	if s.CaseDetail == nil {
		return
	}

	d := s.CaseDetail
	fmt.Fprintf(b, "--- %s / %s (%s) ---\n", d.CaseID, d.CustomerName, d.Status)
	for _, item := range d.Timeline {
		fmt.Fprintf(b, "  %s %-12s %s [%s]\n", item.Timestamp, item.Agent, item.Description, item.Status)
	}
	fmt.Fprintf(b, "  workflow: intake=%s intelligence=%s decision=%s\n",
		d.Workflow.Intake.Status, d.Workflow.Intelligence.Status, d.Workflow.Decision.Status)
	fmt.Fprintf(b, "  risk: %.2f (%s)  compliance: %s aml=%s kyc=%s gdpr=%s\n",
		d.RiskAssessment.RiskScore, d.RiskAssessment.RiskLevel,
		d.ComplianceSummary.OverallStatus, d.ComplianceSummary.AMLStatus,
		d.ComplianceSummary.KYCStatus, d.ComplianceSummary.GDPRStatus)
	for _, f := range d.RiskAssessment.RiskFactors {
		fmt.Fprintf(b, "  risk factor [%s] %s: %+.2f\n", f.Severity, f.Factor, f.Impact)
	}
	for _, v := range d.ComplianceSummary.Violations {
		fmt.Fprintf(b, "  violation: %s\n", v)
	}
}

func renderLearning(b *strings.Builder, s RenderState) {
	if s.Learning != nil {
		l := s.Learning
		fmt.Fprintf(b, "cases processed: %d  model accuracy: %.1f%%  trend: %s\n",
			l.CasesProcessed, l.ModelAccuracy, l.ConfidenceTrend)
		for _, imp := range l.RecentImprovements {
			fmt.Fprintf(b, "improvement [%s] %s: %s\n", imp.ImprovementType, imp.Title, imp.Description)
		}
		h := l.PerformanceHistory
		for i := range h.Dates {
			if i >= len(h.Accuracy) || i >= len(h.Cost) {
				break
			}
			fmt.Fprintf(b, "  %s  accuracy=%.1f%%  cost=$%.2f\n", h.Dates[i], h.Accuracy[i], h.Cost[i])
		}
	}

	// Overlay the latest stream update, which may be newer than the
	// fetched snapshot.
	if v, ok := s.Metrics[store.MetricLearning].(types.LearningUpdatePayload); ok {
		fmt.Fprintf(b, "live: %d cases, accuracy %.1f%%\n", v.CasesProcessed, v.ModelAccuracy)
	}
}

func renderChat(b *strings.Builder, s RenderState) {
	if len(s.Chat) == 0 {
		b.WriteString("no messages yet\n")
		return
	}
	for _, m := range s.Chat {
		fmt.Fprintf(b, "%s %s: %s\n", m.Timestamp, m.SenderName, m.Content)
	}
}
