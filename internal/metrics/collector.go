// Package metrics exposes pipeline run counters in Prometheus text format
// without pulling in the full client library.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector tracks pipeline runs per transport plus run latency.
type Collector struct {
	startTime time.Time

	mu       sync.Mutex
	runs     map[string]int64 // transport -> total
	failures map[string]int64 // transport -> failed
	latency  *histogram
}

type histogram struct {
	count   int64
	sum     float64
	buckets []bucket
}

type bucket struct {
	le    float64
	count int64
}

// run latency buckets in seconds; the upper ones cover slow catalog filters.
var latencyBuckets = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, math.Inf(1)}

func NewCollector() *Collector {
	h := &histogram{buckets: make([]bucket, len(latencyBuckets))}
	for i, le := range latencyBuckets {
		h.buckets[i] = bucket{le: le}
	}
	return &Collector{
		startTime: time.Now(),
		runs:      make(map[string]int64),
		failures:  make(map[string]int64),
		latency:   h,
	}
}

// RecordRun implements agent.RunRecorder.
func (c *Collector) RecordRun(transport string, duration time.Duration, err error) {
	if transport == "" {
		transport = "unknown"
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runs[transport]++
	if err != nil {
		c.failures[transport]++
	}

	v := duration.Seconds()
	c.latency.count++
	c.latency.sum += v
	for i := range c.latency.buckets {
		if v <= c.latency.buckets[i].le {
			c.latency.buckets[i].count++
		}
	}
}

// Handler renders the metrics in Prometheus exposition format.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, c.render())
	}
}

func (c *Collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP salesbot_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE salesbot_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "salesbot_uptime_seconds %d\n", int64(time.Since(c.startTime).Seconds()))

	writeCounter(&sb, "salesbot_runs_total", "Total pipeline runs", c.runs)
	writeCounter(&sb, "salesbot_run_failures_total", "Pipeline runs that produced no reply", c.failures)

	fmt.Fprintf(&sb, "# HELP salesbot_run_duration_seconds Pipeline run duration\n")
	fmt.Fprintf(&sb, "# TYPE salesbot_run_duration_seconds histogram\n")
	for _, b := range c.latency.buckets {
		le := fmt.Sprintf("%g", b.le)
		if math.IsInf(b.le, 1) {
			le = "+Inf"
		}
		fmt.Fprintf(&sb, "salesbot_run_duration_seconds_bucket{le=%q} %d\n", le, b.count)
	}
	fmt.Fprintf(&sb, "salesbot_run_duration_seconds_count %d\n", c.latency.count)
	fmt.Fprintf(&sb, "salesbot_run_duration_seconds_sum %f\n", c.latency.sum)

	return sb.String()
}

func writeCounter(sb *strings.Builder, name, help string, values map[string]int64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s counter\n", name)

	transports := make([]string, 0, len(values))
	for t := range values {
		transports = append(transports, t)
	}
	sort.Strings(transports)
	for _, t := range transports {
		fmt.Fprintf(sb, "%s{transport=%q} %d\n", name, t, values[t])
	}
}
