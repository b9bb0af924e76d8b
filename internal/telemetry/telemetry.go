package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Gauge   MetricType = "gauge"
	Timer   MetricType = "timer"
)

// Metric represents a telemetry metric
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
	Unit      string            `json:"unit,omitempty"`
}

// Collector buffers the metrics of one run and writes them to the log
// when flushed. A disabled collector drops everything.
type Collector struct {
	mu      sync.Mutex
	metrics []Metric
	enabled bool
}

// NewCollector creates a new telemetry collector
func NewCollector(enabled bool) *Collector {
	return &Collector{enabled: enabled}
}

// Counter increments a counter metric
func (c *Collector) Counter(name string, value float64, labels map[string]string) {
	c.add(Metric{Name: name, Type: Counter, Value: value, Labels: labels})
}

// Gauge sets a gauge metric value
func (c *Collector) Gauge(name string, value float64, labels map[string]string) {
	c.add(Metric{Name: name, Type: Gauge, Value: value, Labels: labels})
}

// Timer records a duration measurement
func (c *Collector) Timer(name string, duration time.Duration, labels map[string]string) {
	c.add(Metric{Name: name, Type: Timer, Value: float64(duration.Milliseconds()), Labels: labels, Unit: "ms"})
}

// Start returns a function that records the time elapsed since Start as a
// timer when called.
func (c *Collector) Start(name string, labels map[string]string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		d := time.Since(start)
		c.Timer(name, d, labels)
		return d
	}
}

func (c *Collector) add(m Metric) {
	if c == nil || !c.enabled {
		return
	}
	m.Timestamp = time.Now()
	c.mu.Lock()
	c.metrics = append(c.metrics, m)
	c.mu.Unlock()
}

// Metrics returns a copy of current metrics
func (c *Collector) Metrics() []Metric {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Metric, len(c.metrics))
	copy(out, c.metrics)
	return out
}

// Totals sums counters by name.
func (c *Collector) Totals() map[string]float64 {
	out := map[string]float64{}
	for _, m := range c.Metrics() {
		if m.Type == Counter {
			out[m.Name] += m.Value
		}
	}
	return out
}

// Flush logs and clears buffered metrics.
func (c *Collector) Flush() {
	if c == nil {
		return
	}
	totals := c.Totals()
	c.mu.Lock()
	metrics := c.metrics
	c.metrics = nil
	c.mu.Unlock()
	if len(metrics) == 0 {
		return
	}

	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	for _, metric := range metrics {
		log.Debug().
			Str("name", metric.Name).
			Str("type", string(metric.Type)).
			Float64("value", metric.Value).
			Str("unit", metric.Unit).
			Interface("labels", metric.Labels).
			Msg("telemetry_metric")
	}
	log.Debug().Interface("totals", totals).Msg("telemetry_summary")
}
