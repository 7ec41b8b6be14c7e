package condition

import "time"

// Facts is the read side of a fact set. Both facts.FactSet and the engine's
// derived view satisfy it.
type Facts interface {
	Get(name string) (any, bool)
}

// Env carries everything a condition may touch during evaluation: the fact
// set, the clock behind the temporal helpers, and the names of attributes
// that must be present. There is no other input channel.
type Env struct {
	Facts    Facts
	Now      func() time.Time
	Required map[string]bool
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// EvalBool evaluates a parsed condition to a boolean. A reference to an
// attribute absent from this particular fact set makes the enclosing test
// false rather than failing, unless the attribute is declared required.
func EvalBool(n Node, env Env) (bool, error) {
	v, err := eval(n, env, 0)
	if err != nil {
		return false, err
	}
	return truthy(v)
}

// Eval evaluates a sub-expression to a typed value. Missing optional
// attributes surface as nil.
func Eval(n Node, env Env) (any, error) {
	return eval(n, env, 0)
}

func eval(n Node, env Env, depth int) (any, error) {
	if depth > maxNesting {
		return nil, evalErrorf("expression nested too deeply")
	}

	switch t := n.(type) {
	case Literal:
		return t.Value, nil

	case List:
		out := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			v, err := eval(e, env, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case Attr:
		v, ok := env.Facts.Get(t.Name)
		if !ok {
			if env.Required[t.Name] {
				return nil, evalErrorf("required attribute %q absent", t.Name)
			}
			return nil, nil
		}
		return v, nil

	case Call:
		fn, ok := lookupFunc(t.Name)
		if !ok {
			return nil, &UnknownFunctionError{Name: t.Name}
		}
		if len(t.Args) != fn.arity {
			return nil, &UnknownFunctionError{Name: t.Name, Msg: "wrong argument count"}
		}
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			v, err := eval(a, env, depth+1)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return fn.call(env.now(), args)

	case Not:
		v, err := eval(t.Expr, env, depth+1)
		if err != nil {
			return nil, err
		}
		b, err := truthy(v)
		if err != nil {
			return nil, err
		}
		return !b, nil

	case Binary:
		lv, err := eval(t.Left, env, depth+1)
		if err != nil {
			return nil, err
		}
		lb, err := truthy(lv)
		if err != nil {
			return nil, err
		}
		// Short-circuit like the boolean operators rule authors expect.
		if t.Op == "and" && !lb {
			return false, nil
		}
		if t.Op == "or" && lb {
			return true, nil
		}
		rv, err := eval(t.Right, env, depth+1)
		if err != nil {
			return nil, err
		}
		return truthy(rv)

	case Compare:
		lv, err := eval(t.Left, env, depth+1)
		if err != nil {
			return nil, err
		}
		rv, err := eval(t.Right, env, depth+1)
		if err != nil {
			return nil, err
		}
		return compare(t.Op, lv, rv)

	default:
		return nil, evalErrorf("unexpected node %T", n)
	}
}

// truthy interprets a value in boolean position. Only booleans and nil
// (a missing optional attribute) are accepted; anything else is a type
// mismatch in the rule, not in the engine.
func truthy(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	default:
		return false, evalErrorf("value of type %T used as boolean", v)
	}
}

func compare(op string, l, r any) (bool, error) {
	switch op {
	case "in":
		return member(l, r)
	case "not in":
		ok, err := member(l, r)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}

	// A missing operand makes any comparison false instead of erroring.
	if l == nil || r == nil {
		return false, nil
	}

	if lf, lok := asFloat(l); lok {
		if rf, rok := asFloat(r); rok {
			return compareOrdered(op, lf, rf)
		}
	}
	if ls, lok := l.(string); lok {
		if rs, rok := r.(string); rok {
			return compareOrdered(op, ls, rs)
		}
	}
	if lt, lok := l.(time.Time); lok {
		if rt, rok := r.(time.Time); rok {
			return compareTimes(op, lt, rt)
		}
	}
	if lb, lok := l.(bool); lok {
		if rb, rok := r.(bool); rok {
			switch op {
			case "==":
				return lb == rb, nil
			case "!=":
				return lb != rb, nil
			}
			return false, evalErrorf("booleans do not support %s", op)
		}
	}

	// Cross-type: equality is decidable, ordering is not.
	switch op {
	case "==":
		return false, nil
	case "!=":
		return true, nil
	}
	return false, evalErrorf("cannot order %T against %T", l, r)
}

func compareOrdered[T float64 | string](op string, l, r T) (bool, error) {
	switch op {
	case "==":
		return l == r, nil
	case "!=":
		return l != r, nil
	case "<":
		return l < r, nil
	case "<=":
		return l <= r, nil
	case ">":
		return l > r, nil
	case ">=":
		return l >= r, nil
	}
	return false, evalErrorf("unknown operator %s", op)
}

func compareTimes(op string, l, r time.Time) (bool, error) {
	switch op {
	case "==":
		return l.Equal(r), nil
	case "!=":
		return !l.Equal(r), nil
	case "<":
		return l.Before(r), nil
	case "<=":
		return l.Before(r) || l.Equal(r), nil
	case ">":
		return l.After(r), nil
	case ">=":
		return l.After(r) || l.Equal(r), nil
	}
	return false, evalErrorf("unknown operator %s", op)
}

func member(l, r any) (bool, error) {
	elems, ok := r.([]any)
	if !ok {
		return false, evalErrorf("right side of membership test is not a list")
	}
	if l == nil {
		return false, nil
	}
	for _, e := range elems {
		eq, err := compare("==", l, e)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
