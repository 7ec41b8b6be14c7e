package condition

import "sort"

// Node is one node of a parsed condition. The node set is fixed and
// enumerable: literals, literal lists, attribute references, whitelisted
// calls, comparisons and boolean operators. Nothing else parses.
type Node interface {
	node()
}

// Literal is a string, number or boolean constant.
type Literal struct {
	Value any
}

// List is a literal list, usable only as the right side of a membership test.
type List struct {
	Elems []Node
}

// Attr references a fact by name.
type Attr struct {
	Name string
}

// Call invokes a whitelisted function.
type Call struct {
	Name string
	Args []Node
}

// Not negates its operand.
type Not struct {
	Expr Node
}

// Binary is a boolean "and" or "or".
type Binary struct {
	Op    string
	Left  Node
	Right Node
}

// Compare is a comparison or membership test. Op is one of
// ==, !=, <, <=, >, >=, in, not in.
type Compare struct {
	Op    string
	Left  Node
	Right Node
}

func (Literal) node() {}
func (List) node()    {}
func (Attr) node()    {}
func (Call) node()    {}
func (Not) node()     {}
func (Binary) node()  {}
func (Compare) node() {}

// Attributes returns the sorted set of fact names referenced by the tree.
func Attributes(n Node) []string {
	seen := make(map[string]struct{})
	collectAttrs(n, seen)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectAttrs(n Node, seen map[string]struct{}) {
	switch t := n.(type) {
	case Attr:
		seen[t.Name] = struct{}{}
	case List:
		for _, e := range t.Elems {
			collectAttrs(e, seen)
		}
	case Call:
		for _, a := range t.Args {
			collectAttrs(a, seen)
		}
	case Not:
		collectAttrs(t.Expr, seen)
	case Binary:
		collectAttrs(t.Left, seen)
		collectAttrs(t.Right, seen)
	case Compare:
		collectAttrs(t.Left, seen)
		collectAttrs(t.Right, seen)
	}
}

// Validate walks the tree and checks that every attribute reference is in the
// known set and every call names a whitelisted function with the right arity.
// It is the admission-time half of the evaluator's safety contract.
func Validate(n Node, known map[string]struct{}) error {
	switch t := n.(type) {
	case Literal:
		return nil
	case Attr:
		if _, ok := known[t.Name]; !ok {
			return &UnknownAttributeError{Name: t.Name}
		}
		return nil
	case List:
		for _, e := range t.Elems {
			if err := Validate(e, known); err != nil {
				return err
			}
		}
		return nil
	case Call:
		fn, ok := lookupFunc(t.Name)
		if !ok {
			return &UnknownFunctionError{Name: t.Name}
		}
		if len(t.Args) != fn.arity {
			return &UnknownFunctionError{Name: t.Name, Msg: "wrong argument count"}
		}
		for _, a := range t.Args {
			if err := Validate(a, known); err != nil {
				return err
			}
		}
		return nil
	case Not:
		return Validate(t.Expr, known)
	case Binary:
		if err := Validate(t.Left, known); err != nil {
			return err
		}
		return Validate(t.Right, known)
	case Compare:
		if err := Validate(t.Left, known); err != nil {
			return err
		}
		return Validate(t.Right, known)
	default:
		return evalErrorf("unexpected node %T", n)
	}
}
