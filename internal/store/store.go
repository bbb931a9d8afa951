package store

import "sync"

// Metric keys defined by the backend contract. The store rejects writes
// outside this set so unknown stream payloads can never leak in.
const (
	MetricSystemStatus     = "system_status"
	MetricAgentStatus      = "agent_status"
	MetricPerformance      = "performance"
	MetricCostOptimization = "cost_optimization"
	MetricInsights         = "insights"
	MetricLearning         = "learning"
	MetricActiveCase       = "active_case"
)

var knownMetrics = map[string]struct{}{
	MetricSystemStatus:     {},
	MetricAgentStatus:      {},
	MetricPerformance:      {},
	MetricCostOptimization: {},
	MetricInsights:         {},
	MetricLearning:         {},
	MetricActiveCase:       {},
}

// Store holds the last known value for each observable metric.
// Last-write-wins, no eviction; the key set is fixed by the contract.
type Store struct {
	values map[string]interface{}
	mu     sync.RWMutex
}

// NewStore creates an empty metrics store.
func NewStore() *Store {
	return &Store{
		values: make(map[string]interface{}, len(knownMetrics)),
	}
}

// Set stores the latest value for a contract-defined metric. Unknown keys
// are rejected and the store is left untouched.
func (s *Store) Set(key string, value interface{}) bool {
	if _, ok := knownMetrics[key]; !ok {
		return false
	}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return true
}

// Get returns the last known value for a metric.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetAll returns a copy of the current metric snapshot.
func (s *Store) GetAll() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	return snapshot
}

// Len returns the number of metrics currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys returns the metric names currently present in the store.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
