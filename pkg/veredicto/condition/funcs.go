package condition

import (
	"sort"
	"time"
)

// missingAge is what the temporal helpers report for a missing or zero
// timestamp. Mirrors the convention used by the rule authors: "no deadline
// recorded" reads as overdue long ago, so deadline rules still fire.
const missingAge = 999

type builtin struct {
	arity int
	call  func(now time.Time, args []any) (any, error)
}

var builtins = map[string]builtin{
	"hours_since": {
		arity: 1,
		call: func(now time.Time, args []any) (any, error) {
			t, ok := args[0].(time.Time)
			if !ok || t.IsZero() {
				return float64(missingAge), nil
			}
			return now.Sub(t).Hours(), nil
		},
	},
	"days_since": {
		arity: 1,
		call: func(now time.Time, args []any) (any, error) {
			t, ok := args[0].(time.Time)
			if !ok || t.IsZero() {
				return int64(missingAge), nil
			}
			return int64(now.Sub(t).Hours() / 24), nil
		},
	},
	"is_weekend": {
		arity: 0,
		call: func(now time.Time, args []any) (any, error) {
			wd := now.Weekday()
			return wd == time.Saturday || wd == time.Sunday, nil
		},
	},
}

func lookupFunc(name string) (builtin, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// Functions returns the names of the whitelisted functions.
func Functions() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
