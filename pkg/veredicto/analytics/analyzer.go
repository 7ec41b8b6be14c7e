// Package analytics aggregates decision-level statistics across processed
// absence requests.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/inference"
)

// Analyzer accumulates per-run statistics. Safe for concurrent use.
type Analyzer struct {
	mu sync.Mutex

	total        int64
	outcomes     map[string]int64
	ruleFires    map[string]int64
	severities   map[string]int64
	terminations map[inference.TerminationReason]int64
	sanctions    int64
	approvals    int64
	totalElapsed time.Duration
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		outcomes:     make(map[string]int64),
		ruleFires:    make(map[string]int64),
		severities:   make(map[string]int64),
		terminations: make(map[inference.TerminationReason]int64),
	}
}

// Record consumes one finished run and its classification.
func (a *Analyzer) Record(res *inference.Result, outcome inference.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.outcomes[string(outcome)]++
	a.terminations[res.TerminatedBy]++
	a.totalElapsed += res.ExecutionTime

	for _, s := range res.Steps {
		if !s.Fired {
			continue
		}
		a.ruleFires[s.RuleID]++
		a.severities[string(s.Severity)]++
	}
	if res.SanctionApplied {
		a.sanctions++
	}
	if res.RequiresApproval {
		a.approvals++
	}
}

// RuleCount pairs a rule ID with how often it fired.
type RuleCount struct {
	RuleID string
	Fires  int64
}

// Stats is a point-in-time summary of everything recorded so far.
type Stats struct {
	TotalProcessed      int64
	OutcomeDistribution map[string]int64
	SeverityMix         map[string]int64
	TopRules            []RuleCount
	Sanctions           int64
	Approvals           int64
	IterationCapRuns    int64
	AvgExecutionTime    time.Duration
}

// Snapshot returns a copy of the accumulated statistics. TopRules lists
// every fired rule, most frequent first.
func (a *Analyzer) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{
		TotalProcessed:      a.total,
		OutcomeDistribution: make(map[string]int64, len(a.outcomes)),
		SeverityMix:         make(map[string]int64, len(a.severities)),
		Sanctions:           a.sanctions,
		Approvals:           a.approvals,
		IterationCapRuns:    a.terminations[inference.TerminatedIterationCap],
	}
	for k, v := range a.outcomes {
		s.OutcomeDistribution[k] = v
	}
	for k, v := range a.severities {
		s.SeverityMix[k] = v
	}
	for id, n := range a.ruleFires {
		s.TopRules = append(s.TopRules, RuleCount{RuleID: id, Fires: n})
	}
	sort.Slice(s.TopRules, func(i, j int) bool {
		if s.TopRules[i].Fires != s.TopRules[j].Fires {
			return s.TopRules[i].Fires > s.TopRules[j].Fires
		}
		return s.TopRules[i].RuleID < s.TopRules[j].RuleID
	})
	if a.total > 0 {
		s.AvgExecutionTime = a.totalElapsed / time.Duration(a.total)
	}
	return s
}
