// Package checker inspects the final states of analyzed roots and reports
// findings, e.g. assertions the analysis could not prove.
package checker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"

	"github.com/sirupsen/logrus"
)

// Severity orders reports by how certain the finding is.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Report is a single finding in a method.
type Report struct {
	Checker  string
	Severity Severity
	Method   string
	// Node is the ID of the offending node, or -1 for method-wide reports.
	Node    int
	Message string
}

func (r Report) String() string {
	if r.Node < 0 {
		return fmt.Sprintf("%s: %s: [%s] %s", r.Severity, r.Method, r.Checker, r.Message)
	}
	return fmt.Sprintf("%s: %s:%d: [%s] %s", r.Severity, r.Method, r.Node, r.Checker, r.Message)
}

// Checker inspects the state of a root.
type Checker[D lattice.Domain[D]] interface {
	Name() string
	Check(method *cfg.Function, state *absint.AbstractState[D], graph *cfg.Graph) []Report
}

// Manager runs checkers on the states of analyzed roots and collects their
// reports. Roots may be reported concurrently.
type Manager[D lattice.Domain[D]] struct {
	checkers []Checker[D]
	log      *logrus.Entry

	mu      sync.Mutex
	reports []Report
}

var _ absint.CheckerManager[lattice.AccessPathMap] = (*Manager[lattice.AccessPathMap])(nil)

// NewManager creates a manager running the given checkers. Reports are
// logged at their severity when log is not nil.
func NewManager[D lattice.Domain[D]](log *logrus.Entry, checkers ...Checker[D]) *Manager[D] {
	return &Manager[D]{checkers: checkers, log: log}
}

func (m *Manager[D]) RunCheckersOnSingleMethod(method *cfg.Function, state *absint.AbstractState[D], graph *cfg.Graph) {
	var found []Report
	for _, c := range m.checkers {
		found = append(found, c.Check(method, state, graph)...)
	}

	if m.log != nil {
		for _, r := range found {
			entry := m.log.WithFields(logrus.Fields{
				"checker": r.Checker,
				"method":  r.Method,
			})
			if r.Node >= 0 {
				entry = entry.WithField("node", r.Node)
			}
			switch r.Severity {
			case Error:
				entry.Error(r.Message)
			case Warning:
				entry.Warn(r.Message)
			default:
				entry.Info(r.Message)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, found...)
}

// Reports returns the collected reports ordered by method, node and checker.
func (m *Manager[D]) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := append([]Report(nil), m.reports...)
	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Checker < b.Checker
	})
	return res
}

// Count returns the number of reports of at least the given severity.
func (m *Manager[D]) Count(min Severity) (n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.Severity >= min {
			n++
		}
	}
	return
}
