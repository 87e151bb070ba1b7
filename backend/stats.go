package backend

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds atomic per-backend counters, following this tree's existing
// stats.go pattern (plain atomic fields behind a small recorder, snapshot
// on demand) but exported as a prometheus.Collector so a process can wire
// it straight into an http.Handler via promhttp.

type backendCounters struct {
	completions uint64
	fastFails   uint64
	failures    [len(failureText)]uint64
}

// Stats aggregates counters across every backend an event thread owns.
type Stats struct {
	mu       sync.Mutex
	counters map[string]*backendCounters

	completionsDesc *prometheus.Desc
	failuresDesc    *prometheus.Desc
	fastFailDesc    *prometheus.Desc
}

// NewStats constructs an empty Stats registry.
func NewStats() *Stats {
	return &Stats{
		counters: make(map[string]*backendCounters),
		completionsDesc: prometheus.NewDesc(
			"beproxy_backend_completions_total",
			"Total responses completed for a backend.",
			[]string{"addr"}, nil,
		),
		failuresDesc: prometheus.NewDesc(
			"beproxy_backend_failures_total",
			"Total reset-triggering failures for a backend, by kind.",
			[]string{"addr", "kind"}, nil,
		),
		fastFailDesc: prometheus.NewDesc(
			"beproxy_backend_fast_fails_total",
			"Total requests failed immediately because the backend was already bad.",
			[]string{"addr"}, nil,
		),
	}
}

func (s *Stats) counterFor(addr string) *backendCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[addr]
	if !ok {
		c = &backendCounters{}
		s.counters[addr] = c
	}
	return c
}

func (s *Stats) recordCompletion(addr string) {
	atomic.AddUint64(&s.counterFor(addr).completions, 1)
}

func (s *Stats) recordFailure(addr string, kind FailureKind) {
	atomic.AddUint64(&s.counterFor(addr).failures[kind], 1)
}

func (s *Stats) recordFastFail(addr string) {
	atomic.AddUint64(&s.counterFor(addr).fastFails, 1)
}

// Describe implements prometheus.Collector.
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.completionsDesc
	ch <- s.failuresDesc
	ch <- s.fastFailDesc
}

// Collect implements prometheus.Collector.
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, c := range s.counters {
		ch <- prometheus.MustNewConstMetric(s.completionsDesc, prometheus.CounterValue,
			float64(atomic.LoadUint64(&c.completions)), addr)
		ch <- prometheus.MustNewConstMetric(s.fastFailDesc, prometheus.CounterValue,
			float64(atomic.LoadUint64(&c.fastFails)), addr)
		for i, n := range c.failures {
			if n == 0 {
				continue
			}
			ch <- prometheus.MustNewConstMetric(s.failuresDesc, prometheus.CounterValue,
				float64(atomic.LoadUint64(&c.failures[i])), addr, FailureKind(i).String())
		}
	}
}
