// Package explain renders inference traces as natural-language
// explanations for employees, HR staff and administrators.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ausentia/veredicto/pkg/veredicto/inference"
)

// DetailLevel controls how much of the trace the explanation exposes.
type DetailLevel string

const (
	DetailBasic     DetailLevel = "basic"
	DetailMedium    DetailLevel = "medium"
	DetailDetailed  DetailLevel = "detailed"
	DetailTechnical DetailLevel = "technical"
)

// Language selects the explanation wording.
type Language string

const (
	LangES Language = "es"
	LangEN Language = "en"
)

// Context carries the audience parameters of one explanation.
type Context struct {
	DetailLevel DetailLevel
	Language    Language
	// IncludeTechnical adds the final derived-fact dump; only honored at
	// the technical detail level.
	IncludeTechnical bool
}

// ForAudience maps a user type to its conventional explanation context:
// employees get a medium summary, staff roles get the detailed view.
func ForAudience(userType string) Context {
	ctx := Context{DetailLevel: DetailDetailed, Language: LangES}
	if userType == "employee" {
		ctx.DetailLevel = DetailMedium
	}
	if userType == "admin" || userType == "developer" {
		ctx.DetailLevel = DetailTechnical
		ctx.IncludeTechnical = true
	}
	return ctx
}

type phrases struct {
	summary      string // total rules, execution seconds
	analysis     string
	noRulesFired string
	conditionMet string
	actionTaken  string
	chainHeader  string
	chainLink    string // setter rule, fact, user rule
	finalFacts   string
	skipped      string
}

var phrasebook = map[Language]phrases{
	LangES: {
		summary:      "El sistema analizó %d reglas en %.3fs",
		analysis:     "Análisis detallado:",
		noRulesFired: "No se aplicaron reglas adicionales, el registro es normal",
		conditionMet: "condición cumplida",
		actionTaken:  "acción: %s",
		chainHeader:  "Encadenamiento detectado:",
		chainLink:    "'%s' estableció '%s' usado por '%s'",
		finalFacts:   "Estado final:",
		skipped:      "no aplicada",
	},
	LangEN: {
		summary:      "The system analyzed %d rules in %.3fs",
		analysis:     "Detailed analysis:",
		noRulesFired: "No additional rules applied, the record is normal",
		conditionMet: "condition satisfied",
		actionTaken:  "action: %s",
		chainHeader:  "Chain detected:",
		chainLink:    "'%s' set '%s' used by '%s'",
		finalFacts:   "Final state:",
		skipped:      "not applied",
	},
}

// Explain renders the trace for the given audience context.
func Explain(res *inference.Result, ctx Context) string {
	lang := ctx.Language
	if _, ok := phrasebook[lang]; !ok {
		lang = LangES
	}
	p := phrasebook[lang]

	var b strings.Builder

	if ctx.DetailLevel != DetailBasic {
		fmt.Fprintf(&b, p.summary, len(res.Steps), res.ExecutionTime.Seconds())
		b.WriteString("\n")
	}

	if res.RulesTriggered == 0 {
		b.WriteString(p.noRulesFired)
		return b.String()
	}

	b.WriteString(p.analysis)
	n := 0
	for _, s := range res.Steps {
		if !s.Fired && ctx.DetailLevel != DetailTechnical {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n%d. %s", n, s.RuleName)
		switch {
		case ctx.DetailLevel == DetailBasic:
			// name only
		case s.Fired:
			fmt.Fprintf(&b, "\n   - %s", p.conditionMet)
			fmt.Fprintf(&b, "\n   - "+p.actionTaken, s.ActionEffect)
		default:
			fmt.Fprintf(&b, "\n   - %s", p.skipped)
			if s.Err != "" {
				fmt.Fprintf(&b, " (%s)", s.Err)
			}
		}
	}

	if ctx.DetailLevel == DetailDetailed || ctx.DetailLevel == DetailTechnical {
		if chains := detectChains(res.Steps); len(chains) > 0 {
			b.WriteString("\n" + p.chainHeader)
			for _, c := range chains {
				fmt.Fprintf(&b, "\n   - "+p.chainLink, c.setter, c.fact, c.user)
			}
		}
	}

	if ctx.DetailLevel == DetailTechnical && ctx.IncludeTechnical && len(res.DerivedFacts) > 0 {
		b.WriteString("\n" + p.finalFacts)
		names := make([]string, 0, len(res.DerivedFacts))
		for name := range res.DerivedFacts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "\n   - %s: %v", name, res.DerivedFacts[name])
		}
	}

	return b.String()
}

type chain struct {
	setter, fact, user string
}

// detectChains finds fired rules whose derived fact a later fired rule
// referenced.
func detectChains(steps []inference.Step) []chain {
	var out []chain
	for i, s := range steps {
		if !s.Fired || s.SetFact == "" {
			continue
		}
		for _, later := range steps[i+1:] {
			if !later.Fired {
				continue
			}
			for _, ref := range later.FactsReferenced {
				if ref == s.SetFact {
					out = append(out, chain{setter: s.RuleName, fact: s.SetFact, user: later.RuleName})
				}
			}
		}
	}
	return out
}

// Summary renders a short executive summary of the run in Spanish.
func Summary(res *inference.Result) string {
	if res.RulesTriggered == 0 {
		return "El registro no requiere acciones especiales."
	}

	var errs, warns int
	for _, s := range res.Steps {
		if !s.Fired {
			continue
		}
		switch s.Severity {
		case "error":
			errs++
		case "warning":
			warns++
		}
	}

	var b strings.Builder
	switch {
	case errs > 0:
		fmt.Fprintf(&b, "%d problema(s) crítico(s) detectado(s)", errs)
	case warns > 0:
		fmt.Fprintf(&b, "%d observación(es) identificada(s)", warns)
	default:
		b.WriteString("Registro procesado con observaciones menores")
	}

	if actions := res.ActionsTaken(); len(actions) > 0 {
		b.WriteString("\nAcciones tomadas:")
		for _, a := range actions {
			b.WriteString("\n- " + a)
		}
	}
	return b.String()
}
