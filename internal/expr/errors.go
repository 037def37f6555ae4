package expr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSyntax  = errors.New("expr: syntax error")
	ErrCompile = errors.New("expr: compile error")
	ErrArity   = errors.New("expr: wrong number of arguments")
	ErrShape   = errors.New("expr: arguments cannot be broadcast")
)

// ParseError reports a malformed formula.
type ParseError struct {
	Formula string
	Pos     int
	Msg     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expr: %s at position %d in %q", e.Msg, e.Pos, e.Formula)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// CompileError reports a mismatch between an expression's free symbols
// and the argument order it was compiled against.
type CompileError struct {
	Formula   string
	Missing   []string
	Duplicate []string
	Expected  int
	Got       int
}

func (e *CompileError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "symbols "+strings.Join(e.Missing, ", ")+" not in argument order")
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate arguments "+strings.Join(e.Duplicate, ", "))
	}
	return fmt.Sprintf("expr: cannot compile %q: %s (expression needs %d symbols, ordering has %d)",
		e.Formula, strings.Join(parts, "; "), e.Expected, e.Got)
}

func (e *CompileError) Unwrap() error { return ErrCompile }
