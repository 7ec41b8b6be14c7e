package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// Severity classifies how serious a fired rule is. It feeds risk scoring.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// Rule is one prioritized condition/action pair as authored. Condition and
// Action are stored in their textual form so the at-rest representation
// round-trips losslessly; compiled forms live on the Snapshot.
type Rule struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Condition   string    `yaml:"condition"`
	Action      string    `yaml:"action"`
	Priority    int       `yaml:"priority"`
	Severity    Severity  `yaml:"severity"`
	Explanation string    `yaml:"explanation,omitempty"`
	CreatedBy   string    `yaml:"created_by,omitempty"`
	CreatedAt   time.Time `yaml:"created_at,omitempty"`
}

// ActionVerb is one of the four whitelisted effect kinds.
type ActionVerb string

const (
	ActionAddObservation  ActionVerb = "add_observation"
	ActionMarkSanction    ActionVerb = "mark_sanction"
	ActionRequireApproval ActionVerb = "require_approval"
	ActionSetFact         ActionVerb = "set_fact"
)

// Action is the parsed form of a rule's action text: a verb plus literal
// arguments. No other shape is admitted.
type Action struct {
	Verb ActionVerb
	Args []any
}

// ActionNotPermittedError reports an action outside the whitelist or with
// malformed arguments.
type ActionNotPermittedError struct {
	Text string
	Msg  string
}

func (e *ActionNotPermittedError) Error() string {
	return fmt.Sprintf("action %q: %s", e.Text, e.Msg)
}

func (e *ActionNotPermittedError) Unwrap() error { return internalerr.ErrActionNotPermitted }

// ParseAction parses and checks an action of the form verb(arg, ...). The
// arguments must be literals: quoted strings, numbers or booleans.
func ParseAction(text string) (Action, error) {
	trimmed := strings.TrimSpace(text)
	open := strings.Index(trimmed, "(")
	if open < 0 || !strings.HasSuffix(trimmed, ")") {
		return Action{}, &ActionNotPermittedError{Text: text, Msg: "expected verb(arguments)"}
	}
	verb := ActionVerb(strings.TrimSpace(trimmed[:open]))
	inner := trimmed[open+1 : len(trimmed)-1]

	args, err := parseActionArgs(inner)
	if err != nil {
		return Action{}, &ActionNotPermittedError{Text: text, Msg: err.Error()}
	}

	switch verb {
	case ActionAddObservation:
		if len(args) != 1 {
			return Action{}, &ActionNotPermittedError{Text: text, Msg: "add_observation takes one message"}
		}
		if _, ok := args[0].(string); !ok {
			return Action{}, &ActionNotPermittedError{Text: text, Msg: "message must be a quoted string"}
		}
	case ActionMarkSanction, ActionRequireApproval:
		if len(args) != 0 {
			return Action{}, &ActionNotPermittedError{Text: text, Msg: string(verb) + " takes no arguments"}
		}
	case ActionSetFact:
		if len(args) != 2 {
			return Action{}, &ActionNotPermittedError{Text: text, Msg: "set_fact takes a name and a value"}
		}
		if _, ok := args[0].(string); !ok {
			return Action{}, &ActionNotPermittedError{Text: text, Msg: "fact name must be a quoted string"}
		}
	default:
		return Action{}, &ActionNotPermittedError{Text: text, Msg: "verb not in whitelist"}
	}

	return Action{Verb: verb, Args: args}, nil
}

func parseActionArgs(inner string) ([]any, error) {
	var args []any
	i := 0
	for {
		for i < len(inner) && (inner[i] == ' ' || inner[i] == '\t') {
			i++
		}
		if i >= len(inner) {
			return args, nil
		}

		c := inner[i]
		switch {
		case c == '\'' || c == '"':
			end := strings.IndexByte(inner[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string argument")
			}
			args = append(args, inner[i+1:i+1+end])
			i += end + 2
		default:
			stop := strings.IndexByte(inner[i:], ',')
			var raw string
			if stop < 0 {
				raw = strings.TrimSpace(inner[i:])
				i = len(inner)
			} else {
				raw = strings.TrimSpace(inner[i : i+stop])
				i += stop
			}
			v, err := parseBareArg(raw)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}

		for i < len(inner) && (inner[i] == ' ' || inner[i] == '\t') {
			i++
		}
		if i >= len(inner) {
			return args, nil
		}
		if inner[i] != ',' {
			return nil, fmt.Errorf("expected , between arguments")
		}
		i++
	}
}

func parseBareArg(raw string) (any, error) {
	switch raw {
	case "":
		return nil, fmt.Errorf("empty argument")
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("argument %q is not a literal", raw)
}
