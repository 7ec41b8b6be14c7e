package condition

import (
	"fmt"

	"github.com/ausentia/veredicto/pkg/veredicto/internalerr"
)

// SyntaxError reports a parse failure with the byte offset of the offending
// token.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return internalerr.ErrSyntax }

// UnknownAttributeError reports a condition referencing an attribute outside
// the declared attribute set.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

func (e *UnknownAttributeError) Unwrap() error { return internalerr.ErrUnknownAttribute }

// UnknownFunctionError reports a call to a function outside the whitelist, or
// with the wrong number of arguments.
type UnknownFunctionError struct {
	Name string
	Msg  string
}

func (e *UnknownFunctionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("function %q: %s", e.Name, e.Msg)
	}
	return fmt.Sprintf("unknown function %q", e.Name)
}

func (e *UnknownFunctionError) Unwrap() error { return internalerr.ErrUnknownFunction }

// EvalError reports a runtime failure while evaluating an admitted condition
// against one particular fact set, typically a type mismatch.
type EvalError struct {
	Msg string
}

func (e *EvalError) Error() string { return "evaluation error: " + e.Msg }

func (e *EvalError) Unwrap() error { return internalerr.ErrEvaluation }

func evalErrorf(format string, args ...any) *EvalError {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}
