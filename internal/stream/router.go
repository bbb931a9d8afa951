package stream

import (
	"encoding/json"

	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/dwaltig/agentdeck/internal/store"
	"github.com/dwaltig/agentdeck/internal/types"
	"github.com/rs/zerolog"
)

// Router maps a frame's type discriminant to the handler that applies it.
// Handlers only write the metrics store or append to the conversation
// log; rendering happens elsewhere, driven by the OnUpdate hook.
type Router struct {
	store    *store.Store
	convo    *store.ConversationLog
	logger   zerolog.Logger
	onUpdate func()
	handlers map[string]func(json.RawMessage) error
}

// NewRouter creates a router over the given store and conversation log.
func NewRouter(st *store.Store, convo *store.ConversationLog, logger zerolog.Logger) *Router {
	r := &Router{
		store:  st,
		convo:  convo,
		logger: logger.With().Str("component", "router").Logger(),
	}
	r.handlers = map[string]func(json.RawMessage) error{
		types.FrameAgentStatusUpdate:  r.handleAgentStatus,
		types.FrameCaseUpdate:         r.handleCaseUpdate,
		types.FramePerformanceMetrics: r.handlePerformance,
		types.FrameAgentConversation:  r.handleConversation,
		types.FrameCostOptimization:   r.handleCostOptimization,
		types.FrameLearningUpdate:     r.handleLearning,
	}
	return r
}

// OnUpdate registers a hook invoked after every successfully applied
// frame, typically to re-render the active view.
func (r *Router) OnUpdate(fn func()) {
	r.onUpdate = fn
}

// Dispatch routes one frame to its handler. Unknown kinds and malformed
// payloads are ignored so newer backends stay compatible.
func (r *Router) Dispatch(frame types.Frame) {
	m := metrics.Get()
	m.RecordFrameReceived()

	handler, ok := r.handlers[frame.Type]
	if !ok {
		m.RecordFrameDropped()
		r.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown frame kind")
		return
	}

	if err := handler(frame.Payload); err != nil {
		m.RecordFrameDropped()
		r.logger.Debug().Err(err).Str("type", frame.Type).Msg("ignoring malformed frame payload")
		return
	}

	if r.onUpdate != nil {
		r.onUpdate()
	}
}

// handleAgentStatus merges one agent's status into the agent_status map,
// keeping the same shape the dashboard snapshot stores. Re-applying the
// same payload leaves the store unchanged.
func (r *Router) handleAgentStatus(payload json.RawMessage) error {
	var p types.AgentStatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	agents := make(map[string]types.AgentStatusInfo)
	if cur, ok := r.store.Get(store.MetricAgentStatus); ok {
		if m, ok := cur.(map[string]types.AgentStatusInfo); ok {
			for k, v := range m {
				agents[k] = v
			}
		}
	}
	agents[p.AgentName] = types.AgentStatusInfo{
		Name:            p.AgentName,
		Status:          p.Status,
		QueueSize:       p.QueueSize,
		ProcessingCount: p.ProcessingCount,
		ErrorRate:       p.ErrorRate,
		LastSeen:        p.LastActivity,
		Health:          p.Status != "error",
	}
	r.store.Set(store.MetricAgentStatus, agents)
	return nil
}

func (r *Router) handleCaseUpdate(payload json.RawMessage) error {
	var p types.CaseUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	r.store.Set(store.MetricActiveCase, p)
	return nil
}

func (r *Router) handlePerformance(payload json.RawMessage) error {
	var p types.PerformanceMetricsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	r.store.Set(store.MetricPerformance, p)
	return nil
}

func (r *Router) handleConversation(payload json.RawMessage) error {
	var entry types.ConversationEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return err
	}
	r.convo.Append(entry)
	return nil
}

func (r *Router) handleCostOptimization(payload json.RawMessage) error {
	var p types.CostOptimizationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	r.store.Set(store.MetricCostOptimization, p)
	return nil
}

func (r *Router) handleLearning(payload json.RawMessage) error {
	var p types.LearningUpdatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	r.store.Set(store.MetricLearning, p)
	return nil
}
