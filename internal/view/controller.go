package view

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dwaltig/agentdeck/internal/client"
	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/dwaltig/agentdeck/internal/store"
	"github.com/dwaltig/agentdeck/internal/types"
	"github.com/rs/zerolog"
)

// View identifies one of the console's mutually exclusive screens.
type View string

const (
	ViewDashboard      View = "dashboard"
	ViewLiveAgents     View = "live-agents"
	ViewCaseProcessing View = "case-processing"
	ViewLearning       View = "learning-dashboard"
	ViewAgentChat      View = "agent-chat"
)

// AllViews is the fixed set of views in display order.
var AllViews = []View{ViewDashboard, ViewLiveAgents, ViewCaseProcessing, ViewLearning, ViewAgentChat}

// Valid reports whether v is a known view.
func Valid(v View) bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

// DefaultRefreshInterval drives the periodic dashboard self-heal reload.
const DefaultRefreshInterval = 30 * time.Second

// Transcript is the chat surface the agent-chat view renders from. The
// controller fetches history itself and hands it over only after the
// generation check, so a stale load can never touch the transcript.
type Transcript interface {
	Transcript() []types.ChatMessage
	ReplaceHistory(history []types.ChatMessage)
}

// Controller is the state machine over the console's views. Exactly one
// view is active; activating a view triggers its full-state load and a
// render. A per-view generation counter guards against late responses
// from a superseded activation being applied.
type Controller struct {
	backend   client.Backend
	store     *store.Store
	convo     *store.ConversationLog
	chat      Transcript
	alerts    *Alerts
	out       io.Writer
	connected func() bool
	logger    zerolog.Logger

	refreshInterval time.Duration

	mu         sync.Mutex
	active     View
	gen        map[View]uint64
	cases      []types.CaseSummary
	caseDetail *types.CaseDetail
	learning   *types.LearningMetrics
}

// NewController creates a view controller starting on the dashboard view.
// connected supplies the live-connection indicator shown in the header.
func NewController(
	backend client.Backend,
	st *store.Store,
	convo *store.ConversationLog,
	chat Transcript,
	alerts *Alerts,
	out io.Writer,
	connected func() bool,
	refreshInterval time.Duration,
	logger zerolog.Logger,
) *Controller {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}
	if connected == nil {
		connected = func() bool { return false }
	}
	return &Controller{
		backend:         backend,
		store:           st,
		convo:           convo,
		chat:            chat,
		alerts:          alerts,
		out:             out,
		connected:       connected,
		logger:          logger.With().Str("component", "view").Logger(),
		refreshInterval: refreshInterval,
		active:          ViewDashboard,
		gen:             make(map[View]uint64),
	}
}

// Active returns the currently active view.
func (c *Controller) Active() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Activate switches to the given view and loads its data. Re-activating
// the active view only refreshes its data. The load runs synchronously;
// callers wanting fire-and-forget semantics wrap it in a goroutine.
func (c *Controller) Activate(ctx context.Context, v View) error {
	if !Valid(v) {
		return fmt.Errorf("unknown view: %s", v)
	}

	c.mu.Lock()
	c.active = v
	c.gen[v]++
	gen := c.gen[v]
	c.mu.Unlock()

	c.load(ctx, v, gen)
	return nil
}

// Refresh reloads the active view's data without changing state, used
// after a stream reconnect when live state may be stale.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	v := c.active
	gen := c.gen[v]
	c.mu.Unlock()

	c.load(ctx, v, gen)
}

// Run drives the periodic self-heal reload: while the dashboard view is
// active it is re-fetched every refresh interval. Inactive views are
// never refreshed in the background.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	c.logger.Info().Dur("interval", c.refreshInterval).Msg("periodic refresh started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("periodic refresh stopped")
			return
		case <-ticker.C:
			c.mu.Lock()
			active := c.active
			gen := c.gen[active]
			c.mu.Unlock()

			if active != ViewDashboard {
				continue
			}
			c.load(ctx, ViewDashboard, gen)
		}
	}
}

// SelectCase loads the detail record for one case. Details are fetched
// fresh on every selection. The result is discarded if the user has left
// the case-processing view before it arrives.
func (c *Controller) SelectCase(ctx context.Context, caseID string) error {
	c.mu.Lock()
	gen := c.gen[ViewCaseProcessing]
	c.mu.Unlock()

	detail, err := c.backend.CaseDetails(ctx, caseID)
	if err != nil {
		c.fail(ViewCaseProcessing, err)
		return err
	}

	c.mu.Lock()
	if c.active != ViewCaseProcessing || c.gen[ViewCaseProcessing] != gen {
		c.mu.Unlock()
		c.logger.Debug().Str("case_id", caseID).Msg("discarding stale case detail")
		return nil
	}
	c.caseDetail = detail
	c.mu.Unlock()

	c.Render()
	return nil
}

// load fetches the full-state snapshot for a view and applies it only if
// the view is still active under the same generation.
func (c *Controller) load(ctx context.Context, v View, gen uint64) {
	apply, err := c.fetch(ctx, v)
	metrics.Get().RecordViewLoad(string(v), err != nil)
	if err != nil {
		c.fail(v, err)
		return
	}

	c.mu.Lock()
	if c.active != v || c.gen[v] != gen {
		c.mu.Unlock()
		c.logger.Debug().Str("view", string(v)).Msg("discarding stale view load")
		return
	}
	apply()
	c.mu.Unlock()

	c.Render()
}

// fetch performs the request/response load for a view and returns the
// function that applies the result under the controller lock.
func (c *Controller) fetch(ctx context.Context, v View) (func(), error) {
	switch v {
	case ViewDashboard:
		dm, err := c.backend.DashboardMetrics(ctx)
		if err != nil {
			return nil, err
		}
		return func() { c.applyDashboard(dm) }, nil

	case ViewLiveAgents:
		entries, err := c.backend.Conversations(ctx)
		if err != nil {
			return nil, err
		}
		return func() { c.convo.Replace(entries) }, nil

	case ViewCaseProcessing:
		cases, err := c.backend.ActiveCases(ctx)
		if err != nil {
			return nil, err
		}
		return func() {
			c.cases = cases
			c.caseDetail = nil
		}, nil

	case ViewLearning:
		lm, err := c.backend.LearningMetrics(ctx)
		if err != nil {
			return nil, err
		}
		return func() { c.learning = lm }, nil

	case ViewAgentChat:
		if c.chat == nil {
			return func() {}, nil
		}
		history, err := c.backend.ChatHistory(ctx)
		if err != nil {
			return nil, err
		}
		return func() { c.chat.ReplaceHistory(history) }, nil
	}

	return nil, fmt.Errorf("unknown view: %s", v)
}

// applyDashboard writes the snapshot into the metrics store. Caller
// holds the controller lock; store access is independently guarded.
func (c *Controller) applyDashboard(dm *types.DashboardMetrics) {
	c.store.Set(store.MetricSystemStatus, dm.SystemStatus)
	c.store.Set(store.MetricAgentStatus, dm.AgentStatus)
	c.store.Set(store.MetricPerformance, dm.Performance)
	c.store.Set(store.MetricCostOptimization, dm.CostOptimization)
	c.store.Set(store.MetricInsights, dm.Insights)
}

// fail logs a load failure and raises a transient alert. The view keeps
// rendering whatever data it already has.
func (c *Controller) fail(v View, err error) {
	c.logger.Error().Err(err).Str("view", string(v)).Msg("view load failed")
	if c.alerts != nil {
		c.alerts.Push("error", fmt.Sprintf("failed to load %s: %v", v, err))
	}
	c.Render()
}

// Render writes the active view to the output surface. It is safe to
// call from any goroutine; the render itself is a pure function of the
// assembled state.
func (c *Controller) Render() {
	if c.out == nil {
		return
	}

	state := c.snapshot()
	if _, err := io.WriteString(c.out, Render(state)); err != nil {
		c.logger.Debug().Err(err).Msg("render write failed")
	}
}

// snapshot assembles the current render state.
func (c *Controller) snapshot() RenderState {
	c.mu.Lock()
	s := RenderState{
		View:       c.active,
		Cases:      c.cases,
		CaseDetail: c.caseDetail,
		Learning:   c.learning,
	}
	c.mu.Unlock()

	s.Connected = c.connected()
	s.Metrics = c.store.GetAll()
	if c.convo != nil {
		s.Conversations = c.convo.Entries()
	}
	if c.chat != nil {
		s.Chat = c.chat.Transcript()
	}
	if c.alerts != nil {
		s.Alerts = c.alerts.Active()
	}
	return s
}
