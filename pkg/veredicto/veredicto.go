// Package veredicto is an expert system for employee absence requests. It
// combines a forward-chaining rule engine with case-based reasoning over
// previously decided requests and produces explained, classified decisions.
package veredicto

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ausentia/veredicto/pkg/veredicto/analytics"
	"github.com/ausentia/veredicto/pkg/veredicto/cbr"
	"github.com/ausentia/veredicto/pkg/veredicto/explain"
	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/inference"
	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
	"github.com/ausentia/veredicto/pkg/veredicto/rules"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
)

// Options configures an Engine.
type Options struct {
	// Rules supplies the active rule snapshot. Required.
	Rules *rules.Source
	// Cases is the precedent store backing case-based reasoning. Required.
	Cases store.CaseStore

	// Inference tunes the forward-chaining loop.
	Inference inference.Options
	// Retrieval tunes precedent matching.
	Retrieval cbr.Options

	// Clock anchors all temporal reasoning. time.Now when nil.
	Clock func() time.Time
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Engine is the main decision facade. Safe for concurrent use.
type Engine struct {
	rules       *rules.Source
	cases       store.CaseStore
	inf         *inference.Engine
	recommender *cbr.Recommender
	stats       *analytics.Analyzer
	clock       func() time.Time
	log         *zap.Logger
}

// New wires an Engine from its dependencies.
func New(opts Options) (*Engine, error) {
	if opts.Rules == nil {
		return nil, fmt.Errorf("rule source required: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Cases == nil {
		return nil, fmt.Errorf("case store required: %w", internalerr.ErrInvalidConfig)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	infOpts := opts.Inference
	if infOpts.Clock == nil {
		infOpts.Clock = clock
	}
	retOpts := opts.Retrieval
	if retOpts.Clock == nil {
		retOpts.Clock = clock
	}

	recommender, err := cbr.New(opts.Cases, retOpts)
	if err != nil {
		return nil, err
	}

	return &Engine{
		rules:       opts.Rules,
		cases:       opts.Cases,
		inf:         inference.New(infOpts),
		recommender: recommender,
		stats:       analytics.NewAnalyzer(),
		clock:       clock,
		log:         log,
	}, nil
}

// Close releases the underlying case store.
func (e *Engine) Close() error {
	return e.cases.Close()
}

// ReplaceRules atomically swaps the active rule set. In-flight requests keep
// the snapshot they started with.
func (e *Engine) ReplaceRules(snap *rules.Snapshot) {
	e.rules.Replace(snap)
}

// Decision is the full outcome of processing one absence request.
type Decision struct {
	CaseID              string
	Outcome             inference.Outcome
	RiskLevel           inference.RiskLevel
	Inference           *inference.Result
	Recommendations     []cbr.Recommendation
	SimilarCases        []cbr.Match
	Observations        []string
	Explanation         string
	Summary             string
	RequiresHumanReview bool
	NextActions         []string
	ProcessingTime      time.Duration
}

// Process runs one absence request through precedent retrieval, rule
// inference and classification, stores the decided case, and returns the
// explained decision. The audience parameter selects the explanation depth;
// an empty string means employee.
func (e *Engine) Process(ctx context.Context, fs facts.FactSet, audience string) (*Decision, error) {
	started := time.Now()
	if audience == "" {
		audience = "employee"
	}

	recs, matches, err := e.recommender.Recommend(ctx, fs)
	if err != nil {
		return nil, fmt.Errorf("precedent retrieval: %w", err)
	}

	snap := e.rules.Snapshot()
	res, err := e.inf.Evaluate(fs, snap)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	outcome, risk := inference.Classify(res)
	e.stats.Record(res, outcome)

	c := store.NewCase(
		fs.Map(),
		res.FiredRuleIDs(),
		res.ActionsTaken(),
		string(outcome),
		map[string]float64(e.recommender.Extract(fs)),
		e.clock(),
	)
	if err := e.cases.Append(ctx, c); err != nil {
		// A decided case that fails to persist is still a decision; the
		// caller gets it with a logged warning.
		e.log.Warn("case not persisted",
			zap.String("case_id", c.ID),
			zap.Error(err))
	}

	d := &Decision{
		CaseID:              c.ID,
		Outcome:             outcome,
		RiskLevel:           risk,
		Inference:           res,
		Recommendations:     recs,
		SimilarCases:        matches,
		Observations:        res.Observations,
		Explanation:         explain.Explain(res, explain.ForAudience(audience)),
		Summary:             explain.Summary(res),
		RequiresHumanReview: requiresHumanReview(res, recs),
		NextActions:         nextActions(outcome, fs),
		ProcessingTime:      time.Since(started),
	}

	e.log.Info("request processed",
		zap.String("run_id", res.RunID),
		zap.String("case_id", c.ID),
		zap.String("outcome", string(outcome)),
		zap.String("risk", string(risk)),
		zap.Int("rules_triggered", res.RulesTriggered),
		zap.Duration("elapsed", d.ProcessingTime))
	return d, nil
}

// ProvideFeedback attaches reviewer feedback to a decided case so future
// recommendations can weigh expert-validated precedents.
func (e *Engine) ProvideFeedback(ctx context.Context, caseID, feedback string, expertValidation bool) error {
	if caseID == "" {
		return fmt.Errorf("case id required: %w", internalerr.ErrInvalidInput)
	}
	if err := e.cases.UpdateFeedback(ctx, caseID, feedback, expertValidation); err != nil {
		return err
	}
	e.log.Info("feedback recorded",
		zap.String("case_id", caseID),
		zap.Bool("expert_validation", expertValidation))
	return nil
}

// Stats describes the engine's activity since startup.
type Stats struct {
	Processing  analytics.Stats
	StoredCases int
	ActiveRules int
	// ValidationRate is the share of stored cases an expert has confirmed.
	ValidationRate float64
	// LearningActive reports whether enough precedent has accumulated for
	// case-based recommendations to carry weight.
	LearningActive bool
}

// learningThreshold is the precedent count below which the case base is too
// thin to call the system learning.
const learningThreshold = 10

// Stats returns processing statistics plus case-base health.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	all, err := e.cases.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	validated := 0
	for _, c := range all {
		if c.ExpertValidation {
			validated++
		}
	}
	s := Stats{
		Processing:     e.stats.Snapshot(),
		StoredCases:    len(all),
		ActiveRules:    e.rules.Snapshot().Len(),
		LearningActive: len(all) >= learningThreshold,
	}
	if len(all) > 0 {
		s.ValidationRate = float64(validated) / float64(len(all))
	}
	return s, nil
}

// requiresHumanReview flags decisions a person should look at: any sanction
// or approval requirement, thin precedent support, or a complex run.
func requiresHumanReview(res *inference.Result, recs []cbr.Recommendation) bool {
	if res.SanctionApplied || res.RequiresApproval {
		return true
	}
	if len(recs) == 0 || recs[0].Confidence < 0.5 {
		return true
	}
	return res.RulesTriggered >= 4
}

func nextActions(outcome inference.Outcome, fs facts.FactSet) []string {
	var actions []string

	switch outcome {
	case inference.OutcomeSanctioned:
		actions = append(actions,
			"Notificar sanción al empleado y RRHH",
			"Documentar en expediente personal")
	case inference.OutcomeRejected:
		actions = append(actions,
			"Notificar rechazo con explicación detallada",
			"Ofrecer alternativas si aplica")
	case inference.OutcomeRequiresApproval:
		actions = append(actions,
			"Escalar a supervisor para aprobación",
			"Establecer plazo para decisión")
	case inference.OutcomeApprovedWithConditions:
		actions = append(actions, "Aprobar con observaciones indicadas")
		if uploaded, ok := fs.Bool("certificate_uploaded"); ok && !uploaded {
			actions = append(actions, "Solicitar certificado médico pendiente")
		}
	case inference.OutcomeAutoApproved:
		actions = append(actions,
			"Procesar aprobación automática",
			"Enviar confirmación al empleado")
	}

	if n, ok := fs.Int("ausencias_ultimo_mes"); ok && n >= 3 {
		actions = append(actions, "Programar seguimiento con RRHH")
	}
	return actions
}
