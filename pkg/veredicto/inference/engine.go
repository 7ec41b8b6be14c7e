package inference

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ausentia/veredicto/pkg/veredicto/condition"
	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/rules"
)

// DefaultMaxIterations caps the number of forward-chaining passes per run.
const DefaultMaxIterations = 100

// Options configures an inference Engine.
type Options struct {
	// MaxIterations caps passes per run; DefaultMaxIterations when zero.
	MaxIterations int
	// AllowRefire lets a rule fire again in a later pass after the derived
	// fact overlay has changed. Off by default: each rule fires at most
	// once per run, which keeps chaining finite without a cap.
	AllowRefire bool
	// Clock feeds the temporal condition functions. time.Now when nil.
	Clock func() time.Time
	// RequiredAttributes name facts whose absence is an evaluation error
	// rather than a false condition.
	RequiredAttributes []string
}

// Engine runs prioritized rules against a fact set with forward chaining.
// An Engine is stateless between runs and safe for concurrent use.
type Engine struct {
	maxIterations int
	allowRefire   bool
	clock         func() time.Time
	required      map[string]bool

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates an Engine with the given options.
func New(opts Options) *Engine {
	max := opts.MaxIterations
	if max <= 0 {
		max = DefaultMaxIterations
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	required := make(map[string]bool, len(opts.RequiredAttributes))
	for _, name := range opts.RequiredAttributes {
		required[name] = true
	}
	return &Engine{
		maxIterations: max,
		allowRefire:   opts.AllowRefire,
		clock:         clock,
		required:      required,
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}
}

func (e *Engine) newRunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ulid.MustNew(ulid.Now(), e.entropy).String()
}

// Evaluate runs the snapshot's rules against the fact set until fixpoint or
// the iteration cap. The caller's fact set is never mutated; rule effects
// land in a private overlay. A condition error in one rule skips only that
// rule; the run always completes with a full trace.
func (e *Engine) Evaluate(fs facts.FactSet, snap *rules.Snapshot) (*Result, error) {
	if snap == nil {
		return nil, fmt.Errorf("rule snapshot: %w", internalerr.ErrStoreUnavailable)
	}

	started := time.Now()
	now := e.clock()

	work := fs.Derive()
	// Timestamp-derived helper available to conditions alongside the
	// whitelisted functions.
	_ = work.Set("current_hour", int64(now.Hour()))

	env := condition.Env{Facts: work, Now: e.clock, Required: e.required}

	res := &Result{
		RunID:        e.newRunID(),
		DerivedFacts: make(map[string]any),
		TerminatedBy: TerminatedFixpoint,
	}

	ruleSet := snap.Rules()
	firedAt := make(map[string]int, len(ruleSet)) // overlay version at last firing
	fired := make(map[string]bool, len(ruleSet))
	errNotes := make(map[string]string)
	version := 1

	for pass := 1; ; pass++ {
		firedThisPass := false

		for i := range ruleSet {
			rule := &ruleSet[i]
			if fired[rule.ID] {
				if !e.allowRefire || firedAt[rule.ID] >= version {
					continue
				}
			}

			ok, err := condition.EvalBool(rule.AST, env)
			if err != nil {
				errNotes[rule.ID] = err.Error()
				continue
			}
			if !ok {
				continue
			}

			effect, setName, changed := e.apply(rule, work, res)
			if changed {
				version++
			}
			fired[rule.ID] = true
			firedAt[rule.ID] = version
			delete(errNotes, rule.ID)
			firedThisPass = true

			res.Steps = append(res.Steps, Step{
				RuleID:          rule.ID,
				RuleName:        rule.Name,
				Severity:        rule.Severity,
				Fired:           true,
				FactsReferenced: rule.Refs,
				ActionEffect:    effect,
				SetFact:         setName,
			})
		}

		if !firedThisPass {
			break
		}
		if pass >= e.maxIterations {
			res.TerminatedBy = TerminatedIterationCap
			break
		}
	}

	// Rules that never fired close the trace in priority order.
	for i := range ruleSet {
		rule := &ruleSet[i]
		if fired[rule.ID] {
			continue
		}
		res.Steps = append(res.Steps, Step{
			RuleID:          rule.ID,
			RuleName:        rule.Name,
			Severity:        rule.Severity,
			FactsReferenced: rule.Refs,
			Err:             errNotes[rule.ID],
		})
	}

	res.RulesTriggered = countFired(res.Steps)
	res.ExecutionTime = time.Since(started)
	return res, nil
}

// apply executes a fired rule's action. It reports the effect description,
// the derived fact name if any, and whether the overlay changed.
func (e *Engine) apply(rule *rules.Compiled, work *facts.Derived, res *Result) (effect, setName string, changed bool) {
	switch rule.Act.Verb {
	case rules.ActionAddObservation:
		msg := rule.Act.Args[0].(string)
		res.Observations = append(res.Observations, fmt.Sprintf("[%s] %s", severityTag(rule.Severity), msg))
		return "observación agregada: " + msg, "", false

	case rules.ActionMarkSanction:
		already := res.SanctionApplied
		res.SanctionApplied = true
		res.SanctionReason = rule.Name
		return "sanción aplicada", "", !already

	case rules.ActionRequireApproval:
		already := res.RequiresApproval
		res.RequiresApproval = true
		res.ApprovalReason = rule.Name
		return "requiere aprobación de supervisor", "", !already

	case rules.ActionSetFact:
		name := rule.Act.Args[0].(string)
		value := rule.Act.Args[1]
		prev, had := work.Get(name)
		_ = work.Set(name, value)
		res.DerivedFacts[name] = value
		return fmt.Sprintf("hecho establecido: %s = %v", name, value), name, !had || prev != value
	}
	return "", "", false
}

func severityTag(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "ERROR"
	case rules.SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

func countFired(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Fired {
			n++
		}
	}
	return n
}
