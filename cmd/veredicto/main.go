// Package main provides the veredicto CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ausentia/veredicto/pkg/veredicto"
	"github.com/ausentia/veredicto/pkg/veredicto/cbr"
	"github.com/ausentia/veredicto/pkg/veredicto/config"
	"github.com/ausentia/veredicto/pkg/veredicto/facts"
	"github.com/ausentia/veredicto/pkg/veredicto/inference"
	"github.com/ausentia/veredicto/pkg/veredicto/rules"
	"github.com/ausentia/veredicto/pkg/veredicto/store"
	"github.com/ausentia/veredicto/pkg/veredicto/store/memstore"
	"github.com/ausentia/veredicto/pkg/veredicto/store/sqlite"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "veredicto",
		Short: "Expert system for employee absence decisions",
		Long: `Veredicto evaluates employee absence requests against a prioritized
rule set with forward chaining, compares them with previously decided
cases, and produces a classified, explained decision.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("veredicto v%s (%s)\n", version, commit)
		},
	})

	evaluateCmd := &cobra.Command{
		Use:   "evaluate [facts.json]",
		Short: "Evaluate one absence request",
		Long: `Evaluate reads the request facts from a JSON file (or stdin when the
argument is "-") and prints the decision. Timestamp facts are accepted
as RFC 3339 strings.`,
		Args: cobra.ExactArgs(1),
		RunE: runEvaluate,
	}
	evaluateCmd.Flags().String("rules", "", "Rules file (YAML); built-in rules when omitted")
	evaluateCmd.Flags().String("cases", "", "Case database path; in-memory when omitted")
	evaluateCmd.Flags().String("audience", "employee", "Explanation audience: employee, hr, admin")
	evaluateCmd.Flags().Bool("json", false, "Emit the decision as JSON")
	rootCmd.AddCommand(evaluateCmd)

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Rule set operations",
	}
	validateCmd := &cobra.Command{
		Use:   "validate [rules.yaml]",
		Short: "Validate a rules file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesValidate,
	}
	initCmd := &cobra.Command{
		Use:   "init [rules.yaml]",
		Short: "Write the built-in rule set to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesInit,
	}
	rulesCmd.AddCommand(validateCmd, initCmd)
	rootCmd.AddCommand(rulesCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored-case statistics",
		RunE:  runStats,
	}
	statsCmd.Flags().String("cases", "", "Case database path")
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadRules(path string) (*rules.Snapshot, error) {
	if path == "" {
		return rules.NewSnapshot(rules.DefaultRules())
	}
	snap, _, err := rules.LoadFile(path)
	return snap, err
}

func openCases(ctx context.Context, path string) (store.CaseStore, error) {
	if path == "" {
		return memstore.New(), nil
	}
	return sqlite.Open(ctx, path)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rulesPath, _ := cmd.Flags().GetString("rules")
	if rulesPath == "" {
		rulesPath = cfg.RulesPath
	}
	snap, err := loadRules(rulesPath)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	casesPath, _ := cmd.Flags().GetString("cases")
	if casesPath == "" {
		casesPath = cfg.CasesPath
	}
	cases, err := openCases(ctx, casesPath)
	if err != nil {
		return fmt.Errorf("open case store: %w", err)
	}

	engine, err := veredicto.New(veredicto.Options{
		Rules: rules.NewSource(snap),
		Cases: cases,
		Inference: inference.Options{
			MaxIterations:      cfg.Engine.MaxIterations,
			AllowRefire:        cfg.Engine.AllowRefire,
			RequiredAttributes: cfg.Engine.RequiredAttributes,
		},
		Retrieval: cbr.Options{
			Weights:       cbr.Weights(cfg.Retrieval.FeatureWeights),
			MinSimilarity: cfg.Retrieval.MinSimilarity,
			TopK:          cfg.Retrieval.TopK,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	fs, err := readFacts(args[0])
	if err != nil {
		return fmt.Errorf("read facts: %w", err)
	}

	audience, _ := cmd.Flags().GetString("audience")
	decision, err := engine.Process(ctx, fs, audience)
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return printDecisionJSON(decision)
	}
	printDecision(decision)
	return nil
}

// readFacts parses a JSON object of request facts. RFC 3339 strings become
// timestamps so rules like hours_since(certificate_deadline) work from files.
func readFacts(path string) (facts.FactSet, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return facts.FactSet{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return facts.FactSet{}, err
	}

	attrs := make(map[string]any, len(raw))
	for name, v := range raw {
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				attrs[name] = ts
				continue
			}
		}
		attrs[name] = v
	}
	return facts.New(attrs)
}

func printDecision(d *veredicto.Decision) {
	fmt.Printf("Caso:      %s\n", d.CaseID)
	fmt.Printf("Outcome:   %s\n", d.Outcome)
	fmt.Printf("Riesgo:    %s\n", d.RiskLevel)
	fmt.Printf("Revisión:  %v\n", d.RequiresHumanReview)
	fmt.Printf("Reglas:    %d disparadas (%s)\n", d.Inference.RulesTriggered, d.Inference.TerminatedBy)

	if len(d.Observations) > 0 {
		fmt.Println("\nObservaciones:")
		for _, o := range d.Observations {
			fmt.Println("  -", o)
		}
	}
	if len(d.Recommendations) > 0 {
		fmt.Println("\nRecomendaciones:")
		for _, r := range d.Recommendations {
			fmt.Printf("  - [%s] %s (confianza %.2f)\n", r.Type, r.Suggestion, r.Confidence)
		}
	}
	if len(d.NextActions) > 0 {
		fmt.Println("\nPróximas acciones:")
		for _, a := range d.NextActions {
			fmt.Println("  -", a)
		}
	}
	fmt.Println("\n" + d.Explanation)
}

func printDecisionJSON(d *veredicto.Decision) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		CaseID              string                      `json:"case_id"`
		Outcome             inference.Outcome           `json:"outcome"`
		RiskLevel           inference.RiskLevel         `json:"risk_level"`
		RulesTriggered      int                         `json:"rules_triggered"`
		TerminatedBy        inference.TerminationReason `json:"terminated_by"`
		Observations        []string                    `json:"observations,omitempty"`
		Recommendations     []cbr.Recommendation        `json:"recommendations,omitempty"`
		RequiresHumanReview bool                        `json:"requires_human_review"`
		NextActions         []string                    `json:"next_actions,omitempty"`
		Explanation         string                      `json:"explanation"`
	}{
		CaseID:              d.CaseID,
		Outcome:             d.Outcome,
		RiskLevel:           d.RiskLevel,
		RulesTriggered:      d.Inference.RulesTriggered,
		TerminatedBy:        d.Inference.TerminatedBy,
		Observations:        d.Observations,
		Recommendations:     d.Recommendations,
		RequiresHumanReview: d.RequiresHumanReview,
		NextActions:         d.NextActions,
		Explanation:         d.Explanation,
	})
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	snap, meta, err := rules.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d reglas válidas (versión %d)\n", snap.Len(), meta.Version)
	for _, r := range snap.Rules() {
		fmt.Printf("  %3d  %-30s [%s]\n", r.Priority, r.ID, r.Severity)
	}
	return nil
}

func runRulesInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := rules.SaveFile(path, rules.DefaultRules(), rules.FileMetadata{}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rules to %s\n", len(rules.DefaultRules()), path)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	casesPath, _ := cmd.Flags().GetString("cases")
	if casesPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		casesPath = cfg.CasesPath
	}
	if casesPath == "" {
		return fmt.Errorf("no case database given (use --cases or a config file)")
	}

	cases, err := sqlite.Open(ctx, casesPath)
	if err != nil {
		return err
	}
	defer cases.Close()

	all, err := cases.All(ctx)
	if err != nil {
		return err
	}

	outcomes := map[string]int{}
	validated := 0
	for _, c := range all {
		outcomes[c.Outcome]++
		if c.ExpertValidation {
			validated++
		}
	}

	fmt.Printf("Casos almacenados: %d\n", len(all))
	fmt.Printf("Validados por experto: %d\n", validated)
	fmt.Println("Distribución de outcomes:")
	for outcome, n := range outcomes {
		fmt.Printf("  %-26s %d\n", outcome, n)
	}
	return nil
}
