package absint

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cs-au-dk/absum/analysis/cfg"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// invokeOutcomes counts call-site resolutions by outcome
	invokeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absum_invoke_outcomes_total",
		Help: "Call-site resolutions by outcome",
	}, []string{"outcome"})

	// fixpointIterations tracks transfer applications per fixpoint run
	fixpointIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "absum_fixpoint_iterations",
		Help:    "Transfer function applications per fixpoint iteration",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// rootDuration tracks the analysis time of roots
	rootDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "absum_root_analysis_duration_seconds",
		Help:    "Analysis time per root in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	// summariesStored counts finalized summaries added to the repository
	summariesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "absum_summaries_stored_total",
		Help: "Finalized summaries stored in the summary repository",
	})
)

// Metrics collects execution metrics of an analyzer. All methods are safe on
// a nil receiver, which disables collection.
type Metrics struct {
	mu         sync.Mutex
	outcomes   map[OutcomeKind]int
	expanded   map[*cfg.Function]int
	iterations int
	roots      int
	time       time.Duration
}

// NewMetrics returns an enabled metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		outcomes: make(map[OutcomeKind]int),
		expanded: make(map[*cfg.Function]int),
	}
}

// Enabled checks whether the Metrics object is available.
func (m *Metrics) Enabled() bool {
	return m != nil
}

func (m *Metrics) RecordOutcome(kind OutcomeKind) {
	if m == nil {
		return
	}
	invokeOutcomes.WithLabelValues(kind.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[kind]++
}

// Expanded registers that the body of a method was analyzed.
func (m *Metrics) Expanded(method *cfg.Function) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expanded[method]++
}

func (m *Metrics) AddIterations(n int) {
	if m == nil {
		return
	}
	fixpointIterations.Observe(float64(n))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations += n
}

func (m *Metrics) SummaryStored() {
	if m == nil {
		return
	}
	summariesStored.Inc()
}

// RootDone registers the completion of a root analysis.
func (m *Metrics) RootDone(d time.Duration) {
	if m == nil {
		return
	}
	rootDuration.Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.roots++
	m.time += d
}

// Outcomes returns a copy of the outcome counters.
func (m *Metrics) Outcomes() map[OutcomeKind]int {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[OutcomeKind]int, len(m.outcomes))
	for k, v := range m.outcomes {
		res[k] = v
	}
	return res
}

// Functions returns how often every method body was analyzed.
func (m *Metrics) Functions() map[*cfg.Function]int {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make(map[*cfg.Function]int, len(m.expanded))
	for k, v := range m.expanded {
		res[k] = v
	}
	return res
}

func (m *Metrics) Iterations() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.iterations
}

// Performance returns the total time spent on roots.
func (m *Metrics) Performance() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.time.String()
}

func (m *Metrics) String() string {
	if m == nil {
		return "metrics disabled"
	}

	m.mu.Lock()
	roots := m.roots
	m.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Roots: %d\nTime: %s\nIterations: %d\n", roots, m.Performance(), m.Iterations())

	sb.WriteString("Outcomes:\n")
	outcomes := m.Outcomes()
	for _, k := range OutcomeKinds() {
		if n := outcomes[k]; n > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", k, n)
		}
	}

	funs := m.Functions()
	names := make([]string, 0, len(funs))
	for f, n := range funs {
		names = append(names, fmt.Sprintf("  %s -- %d", f.Name(), n))
	}
	sort.Strings(names)
	fmt.Fprintf(&sb, "Expanded functions: %d {\n%s\n}", len(funs), strings.Join(names, "\n"))
	return sb.String()
}
