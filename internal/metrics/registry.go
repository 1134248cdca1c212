// Package metrics provides the process-wide metrics registry.
//
// The Registry is an explicitly constructed instance owned by the
// composition root, not a package-level singleton. Every metric written by
// the poller, the exporter manager, the plan extractor, or the HTTP
// middleware goes through Register/Observe, so the registry is the only
// synchronization point between components.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
)

// Kind identifies the instrument type backing a metric.
type Kind int

// Supported instrument kinds.
const (
	KindGauge Kind = iota
	KindCounter
	KindHistogram
)

// String returns the instrument kind name.
func (k Kind) String() string {
	switch k {
	case KindGauge:
		return "gauge"
	case KindCounter:
		return "counter"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Definition declares a metric's name, help text, instrument kind, and
// label schema. Label order is not significant; the schema is a set.
type Definition struct {
	Name    string
	Help    string
	Kind    Kind
	Labels  []string
	Buckets []float64 // histograms only; nil means prometheus.DefBuckets
}

// DuplicateMetricError reports a Register call whose definition conflicts
// with one already registered under the same name.
type DuplicateMetricError struct {
	Name string
}

func (e *DuplicateMetricError) Error() string {
	return fmt.Sprintf("metric %q already registered with a different schema", e.Name)
}

// UnknownMetricError reports an Observe call against a name that was never
// registered. This is a programming error, never swallowed.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("metric %q is not registered", e.Name)
}

// LabelSchemaError reports an Observe call whose label keys do not match the
// registered schema.
type LabelSchemaError struct {
	Name string
	Want []string
	Got  []string
}

func (e *LabelSchemaError) Error() string {
	return fmt.Sprintf("metric %q: label keys %v do not match registered schema %v", e.Name, e.Got, e.Want)
}

// InvalidObservationError reports a value the instrument cannot accept,
// such as a negative counter increment.
type InvalidObservationError struct {
	Name  string
	Value float64
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("metric %q: invalid observation %v", e.Name, e.Value)
}

type instrument struct {
	def     Definition
	gauge   *prometheus.GaugeVec
	counter *prometheus.CounterVec
	hist    *prometheus.HistogramVec
}

// Registry is a thread-safe table of named metric instruments backed by a
// private prometheus.Registry.
type Registry struct {
	log  *logrus.Logger
	prom *prometheus.Registry

	mu          sync.RWMutex
	instruments map[string]*instrument
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		log:         log,
		prom:        prometheus.NewRegistry(),
		instruments: make(map[string]*instrument),
	}
}

// Register adds a metric definition. Registering the same definition twice
// is a no-op; registering a conflicting definition under an existing name
// fails with DuplicateMetricError.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.instruments[def.Name]; ok {
		if sameSchema(existing.def, def) {
			return nil
		}

		return &DuplicateMetricError{Name: def.Name}
	}

	inst := &instrument{def: def}

	switch def.Kind {
	case KindGauge:
		inst.gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: def.Name, Help: def.Help},
			def.Labels,
		)
		r.prom.MustRegister(inst.gauge)
	case KindCounter:
		inst.counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: def.Name, Help: def.Help},
			def.Labels,
		)
		r.prom.MustRegister(inst.counter)
	case KindHistogram:
		buckets := def.Buckets
		if buckets == nil {
			buckets = prometheus.DefBuckets
		}
		inst.hist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: def.Name, Help: def.Help, Buckets: buckets},
			def.Labels,
		)
		r.prom.MustRegister(inst.hist)
	default:
		return fmt.Errorf("metric %q: unsupported kind %d", def.Name, def.Kind)
	}

	r.instruments[def.Name] = inst

	return nil
}

// MustRegister registers each definition and panics on failure. Intended for
// the composition root, where a bad definition is a defect.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Observe records a value against a registered metric. Gauges overwrite,
// counters increment by the (non-negative) value, histograms record one
// observation. Unknown names and mismatched label keys fail loudly.
func (r *Registry) Observe(name string, labels map[string]string, value float64) error {
	r.mu.RLock()
	inst, ok := r.instruments[name]
	r.mu.RUnlock()

	if !ok {
		return &UnknownMetricError{Name: name}
	}

	if err := checkLabels(inst.def, labels); err != nil {
		return err
	}

	switch inst.def.Kind {
	case KindGauge:
		inst.gauge.With(labels).Set(value)
	case KindCounter:
		if value < 0 {
			return &InvalidObservationError{Name: name, Value: value}
		}
		inst.counter.With(labels).Add(value)
	case KindHistogram:
		inst.hist.With(labels).Observe(value)
	}

	return nil
}

// Inc is shorthand for Observe(name, labels, 1) on a counter.
func (r *Registry) Inc(name string, labels map[string]string) error {
	return r.Observe(name, labels, 1)
}

// Export renders every registered metric in the Prometheus text exposition
// format. Output is deterministic: families sorted by name, label pairs
// sorted within each series. Never blocks on external I/O.
func (r *Registry) Export() (string, error) {
	families, err := r.prom.Gather()
	if err != nil {
		return "", fmt.Errorf("gathering metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))

	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("encoding metric family %q: %w", mf.GetName(), err)
		}
	}

	return buf.String(), nil
}

// Handler returns the HTTP handler serving the exposition endpoint with the
// standard version-tagged content type.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying prometheus.Gatherer, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}

func sameSchema(a, b Definition) bool {
	if a.Kind != b.Kind || len(a.Labels) != len(b.Labels) {
		return false
	}

	wa := append([]string(nil), a.Labels...)
	wb := append([]string(nil), b.Labels...)
	sort.Strings(wa)
	sort.Strings(wb)

	for i := range wa {
		if wa[i] != wb[i] {
			return false
		}
	}

	return true
}

func checkLabels(def Definition, labels map[string]string) error {
	ok := len(labels) == len(def.Labels)

	if ok {
		for _, name := range def.Labels {
			if _, present := labels[name]; !present {
				ok = false

				break
			}
		}
	}

	if !ok {
		got := make([]string, 0, len(labels))
		for k := range labels {
			got = append(got, k)
		}
		sort.Strings(got)

		want := append([]string(nil), def.Labels...)
		sort.Strings(want)

		return &LabelSchemaError{Name: def.Name, Want: want, Got: got}
	}

	return nil
}
