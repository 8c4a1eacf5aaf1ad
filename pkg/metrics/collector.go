// Package metrics aggregates per-role agent statistics. The collector keeps
// an in-process aggregate (served as JSON by the API) and mirrors every
// observation to Prometheus instruments on a dedicated registry.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/northstar-pm/northstar/pkg/config"
)

// RoleStats holds the raw counters for one agent role.
type RoleStats struct {
	Calls        int64
	TotalTime    time.Duration
	CacheHits    int64
	CacheMisses  int64
	ToolCalls    int64
	InputTokens  int64
	OutputTokens int64
}

// RoleSnapshot is the JSON view of one role's stats with derived fields.
type RoleSnapshot struct {
	Role         config.AgentRole `json:"role"`
	Calls        int64            `json:"calls"`
	TotalTimeMs  int64            `json:"total_time_ms"`
	AvgTimeMs    int64            `json:"avg_time_ms"`
	CacheHits    int64            `json:"cache_hits"`
	CacheMisses  int64            `json:"cache_misses"`
	CacheHitRate float64          `json:"cache_hit_rate"`
	ToolCalls    int64            `json:"tool_calls"`
	InputTokens  int64            `json:"input_tokens"`
	OutputTokens int64            `json:"output_tokens"`
}

// Collector is safe for concurrent use. One mutex guards the aggregate map;
// Prometheus instruments handle their own synchronisation.
type Collector struct {
	mu    sync.Mutex
	stats map[config.AgentRole]*RoleStats

	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	inputTokens  *prometheus.CounterVec
	outputTokens *prometheus.CounterVec
}

// NewCollector builds a collector with its own Prometheus registry so tests
// and multiple instances never collide on the default registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		stats:    make(map[config.AgentRole]*RoleStats),
		registry: registry,
	}

	c.calls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_calls_total",
			Help:      "Total agent invocations",
		},
		[]string{"role"},
	)
	c.duration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "northstar",
			Name:      "agent_call_duration_seconds",
			Help:      "Agent invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"role"},
	)
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_cache_hits_total",
			Help:      "Agent responses served from the response cache",
		},
		[]string{"role"},
	)
	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_cache_misses_total",
			Help:      "Agent cache probes that missed",
		},
		[]string{"role"},
	)
	c.toolCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_tool_calls_total",
			Help:      "External tool invocations made by agents",
		},
		[]string{"role"},
	)
	c.inputTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_tokens_input_total",
			Help:      "Input tokens sent to providers",
		},
		[]string{"role"},
	)
	c.outputTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "northstar",
			Name:      "agent_tokens_output_total",
			Help:      "Output tokens received from providers",
		},
		[]string{"role"},
	)

	return c
}

// Registry exposes the collector's registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// statsFor must be called with c.mu held.
func (c *Collector) statsFor(role config.AgentRole) *RoleStats {
	s, ok := c.stats[role]
	if !ok {
		s = &RoleStats{}
		c.stats[role] = s
	}
	return s
}

// RecordCall records one completed agent invocation, cache hits included.
// Token counts are zero for cached responses.
func (c *Collector) RecordCall(role config.AgentRole, duration time.Duration, inputTokens, outputTokens int) {
	c.mu.Lock()
	s := c.statsFor(role)
	s.Calls++
	s.TotalTime += duration
	s.InputTokens += int64(inputTokens)
	s.OutputTokens += int64(outputTokens)
	c.mu.Unlock()

	label := string(role)
	c.calls.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
	if inputTokens > 0 {
		c.inputTokens.WithLabelValues(label).Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		c.outputTokens.WithLabelValues(label).Add(float64(outputTokens))
	}
}

// RecordCacheHit counts a cache probe that was answered from the cache.
func (c *Collector) RecordCacheHit(role config.AgentRole) {
	c.mu.Lock()
	c.statsFor(role).CacheHits++
	c.mu.Unlock()

	c.cacheHits.WithLabelValues(string(role)).Inc()
}

// RecordCacheMiss counts a cache probe that fell through to the provider.
func (c *Collector) RecordCacheMiss(role config.AgentRole) {
	c.mu.Lock()
	c.statsFor(role).CacheMisses++
	c.mu.Unlock()

	c.cacheMisses.WithLabelValues(string(role)).Inc()
}

// RecordToolCalls counts n tool invocations attributed to role.
func (c *Collector) RecordToolCalls(role config.AgentRole, n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.statsFor(role).ToolCalls += int64(n)
	c.mu.Unlock()

	c.toolCalls.WithLabelValues(string(role)).Add(float64(n))
}

// Snapshot returns per-role stats with derived averages, sorted by role.
func (c *Collector) Snapshot() []RoleSnapshot {
	c.mu.Lock()
	out := make([]RoleSnapshot, 0, len(c.stats))
	for role, s := range c.stats {
		out = append(out, snapshotOf(role, s))
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// SnapshotFor returns one role's stats, or false if the role never ran.
func (c *Collector) SnapshotFor(role config.AgentRole) (RoleSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[role]
	if !ok {
		return RoleSnapshot{}, false
	}
	return snapshotOf(role, s), true
}

func snapshotOf(role config.AgentRole, s *RoleStats) RoleSnapshot {
	snap := RoleSnapshot{
		Role:         role,
		Calls:        s.Calls,
		TotalTimeMs:  s.TotalTime.Milliseconds(),
		CacheHits:    s.CacheHits,
		CacheMisses:  s.CacheMisses,
		ToolCalls:    s.ToolCalls,
		InputTokens:  s.InputTokens,
		OutputTokens: s.OutputTokens,
	}
	if s.Calls > 0 {
		snap.AvgTimeMs = (s.TotalTime / time.Duration(s.Calls)).Milliseconds()
	}
	if probes := s.CacheHits + s.CacheMisses; probes > 0 {
		snap.CacheHitRate = float64(s.CacheHits) / float64(probes)
	}
	return snap
}
