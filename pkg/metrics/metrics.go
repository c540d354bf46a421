// Package metrics is a small Prometheus-compatible registry: counters,
// gauges and histograms with optional labels, rendered in the text
// exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are the default histogram buckets (in seconds).
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge can go up and down.
type Gauge struct{ val atomic.Int64 }

func (g *Gauge) Set(n int64)   { g.val.Store(n) }
func (g *Gauge) Inc()          { g.val.Add(1) }
func (g *Gauge) Dec()          { g.val.Add(-1) }
func (g *Gauge) Value() int64  { return g.val.Load() }

// Histogram tracks the distribution of observed values using fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64 // non-cumulative, one per bucket
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *Histogram {
	b := slices.Clone(buckets)
	slices.Sort(b)
	return &Histogram{buckets: b, counts: make([]uint64, len(b))}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	if i, _ := slices.BinarySearch(h.buckets, v); i < len(h.buckets) {
		h.counts[i]++
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) {
	h.Observe(time.Since(t).Seconds())
}

func (h *Histogram) snapshot() ([]float64, []uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buckets, slices.Clone(h.counts), h.sum, h.count
}

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

// family groups every labelled series under one base name.
type family struct {
	kind   kind
	help   string
	series map[string]any // full name -> *Counter | *Gauge | *Histogram
}

// Registry holds named metrics. Names may carry labels, as produced by
// WithLabels; each label combination is a distinct series of its family.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	order    []string
}

// New creates a new Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// get returns the series for name, creating it with mk if absent. It panics
// when name is already registered with a different kind.
func (r *Registry) get(name, help string, k kind, mk func() any) any {
	base := baseName(name)

	r.mu.RLock()
	if f, ok := r.families[base]; ok && f.kind == k {
		if m, ok := f.series[name]; ok {
			r.mu.RUnlock()
			return m
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[base]
	if !ok {
		f = &family{kind: k, series: make(map[string]any)}
		r.families[base] = f
		r.order = append(r.order, base)
	}
	if f.kind != k {
		panic(fmt.Sprintf("metrics: %s registered as %s, not %s", base, f.kind, k))
	}
	if help != "" {
		f.help = help
	}
	m, ok := f.series[name]
	if !ok {
		m = mk()
		f.series[name] = m
	}
	return m
}

// Counter returns (or creates) a counter.
func (r *Registry) Counter(name, help string) *Counter {
	return r.get(name, help, kindCounter, func() any { return &Counter{} }).(*Counter)
}

// Gauge returns (or creates) a gauge.
func (r *Registry) Gauge(name, help string) *Gauge {
	return r.get(name, help, kindGauge, func() any { return &Gauge{} }).(*Gauge)
}

// Histogram returns (or creates) a histogram. nil buckets means DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	return r.get(name, help, kindHistogram, func() any { return newHistogram(buckets) }).(*Histogram)
}

// WithLabels returns a metric name with labels appended, e.g.
// WithLabels("foo", "k", "v") => `foo{k="v"}`. Odd pairs are ignored.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) < 2 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i+1 < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i != -1 {
		return name[:i]
	}
	return name
}

// labelsOf returns the inner label list of `foo{a="b"}`, i.e. `a="b"`.
func labelsOf(name string) string {
	i := strings.IndexByte(name, '{')
	if i == -1 {
		return ""
	}
	return strings.TrimSuffix(name[i+1:], "}")
}

// Render returns the Prometheus text exposition format output.
func (r *Registry) Render() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, base := range r.order {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, f.kind)

		names := make([]string, 0, len(f.series))
		for n := range f.series {
			names = append(names, n)
		}
		slices.Sort(names)

		for _, n := range names {
			switch m := f.series[n].(type) {
			case *Counter:
				fmt.Fprintf(&b, "%s %d\n", n, m.Value())
			case *Gauge:
				fmt.Fprintf(&b, "%s %d\n", n, m.Value())
			case *Histogram:
				renderHistogram(&b, base, labelsOf(n), m)
			}
		}
	}
	return b.String()
}

func renderHistogram(b *strings.Builder, base, labels string, h *Histogram) {
	buckets, counts, sum, count := h.snapshot()
	sep, wrapped := "", ""
	if labels != "" {
		sep, wrapped = ","+labels, "{"+labels+"}"
	}
	var cumulative uint64
	for i, le := range buckets {
		cumulative += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", base, le, sep, cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, sep, count)
	fmt.Fprintf(b, "%s_sum%s %g\n", base, wrapped, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, wrapped, count)
}

// Handler serves the rendered registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
