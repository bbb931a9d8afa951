package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds the console's own operational counters. These describe
// the console process itself and are kept separate from the MetricsStore,
// which holds backend telemetry.
type Metrics struct {
	mu sync.RWMutex

	// Stream metrics
	FramesReceivedTotal int64
	FramesDroppedTotal  int64
	StreamReconnects    int64

	// View metrics
	viewLoadsTotal map[string]int64
	viewLoadErrors map[string]int64

	// Chat metrics
	ChatMessagesSent   int64
	ChatMessagesFailed int64

	// Probe metrics
	ProbeRunsTotal   int64
	ProbeStepsPassed int64
	ProbeStepsFailed int64

	startTime time.Time
}

var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			viewLoadsTotal: make(map[string]int64),
			viewLoadErrors: make(map[string]int64),
			startTime:      time.Now(),
		}
	})
	return instance
}

// RecordFrameReceived increments the received frame counter.
func (m *Metrics) RecordFrameReceived() {
	m.mu.Lock()
	m.FramesReceivedTotal++
	m.mu.Unlock()
}

// RecordFrameDropped increments the dropped frame counter (unknown kind
// or malformed payload).
func (m *Metrics) RecordFrameDropped() {
	m.mu.Lock()
	m.FramesDroppedTotal++
	m.mu.Unlock()
}

// RecordReconnect increments the stream reconnect counter.
func (m *Metrics) RecordReconnect() {
	m.mu.Lock()
	m.StreamReconnects++
	m.mu.Unlock()
}

// RecordViewLoad records one completed view load.
func (m *Metrics) RecordViewLoad(view string, failed bool) {
	m.mu.Lock()
	m.viewLoadsTotal[view]++
	if failed {
		m.viewLoadErrors[view]++
	}
	m.mu.Unlock()
}

// RecordChatMessage records one chat send and its outcome.
func (m *Metrics) RecordChatMessage(failed bool) {
	m.mu.Lock()
	m.ChatMessagesSent++
	if failed {
		m.ChatMessagesFailed++
	}
	m.mu.Unlock()
}

// RecordProbeRun records one completed orchestrator run.
func (m *Metrics) RecordProbeRun(passed, failed int) {
	m.mu.Lock()
	m.ProbeRunsTotal++
	m.ProbeStepsPassed += int64(passed)
	m.ProbeStepsFailed += int64(failed)
	m.mu.Unlock()
}

// Handler returns an HTTP handler exposing the counters in Prometheus
// text format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("agentdeck_uptime_seconds", time.Since(m.startTime).Seconds())

		write("agentdeck_frames_received_total", m.FramesReceivedTotal)
		write("agentdeck_frames_dropped_total", m.FramesDroppedTotal)
		write("agentdeck_stream_reconnects_total", m.StreamReconnects)

		for view, count := range m.viewLoadsTotal {
			write("agentdeck_view_loads_total", count, "view", view)
		}
		for view, count := range m.viewLoadErrors {
			write("agentdeck_view_load_errors_total", count, "view", view)
		}

		write("agentdeck_chat_messages_sent_total", m.ChatMessagesSent)
		write("agentdeck_chat_messages_failed_total", m.ChatMessagesFailed)

		write("agentdeck_probe_runs_total", m.ProbeRunsTotal)
		write("agentdeck_probe_steps_passed_total", m.ProbeStepsPassed)
		write("agentdeck_probe_steps_failed_total", m.ProbeStepsFailed)
	}
}
