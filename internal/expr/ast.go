package expr

import (
	"sort"
	"strconv"
	"strings"
)

// Expr is an immutable node of a parsed formula.
type Expr interface {
	String() string
	prec() int
}

// Num is a numeric literal or a folded constant.
type Num struct{ Value float64 }

// Sym is a named free symbol.
type Sym struct{ Name string }

// Neg is unary negation.
type Neg struct{ X Expr }

// Binary is one of + - * / ^.
type Binary struct {
	Op   byte
	L, R Expr
}

// Call applies a builtin function.
type Call struct {
	Fn   string
	Args []Expr
}

const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

func (n *Num) prec() int {
	if n.Value < 0 {
		return precNeg
	}
	return precAtom
}
func (s *Sym) prec() int  { return precAtom }
func (n *Neg) prec() int  { return precNeg }
func (c *Call) prec() int { return precAtom }
func (b *Binary) prec() int {
	switch b.Op {
	case '+', '-':
		return precAdd
	case '*', '/':
		return precMul
	default:
		return precPow
	}
}

func (n *Num) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (s *Sym) String() string { return s.Name }
func (n *Neg) String() string { return "-" + wrap(n.X, precNeg+1) }

func (b *Binary) String() string {
	p := b.prec()
	switch b.Op {
	case '^':
		// right associative
		return wrap(b.L, p+1) + "^" + wrap(b.R, p)
	case '-', '/':
		return wrap(b.L, p) + " " + string(b.Op) + " " + wrap(b.R, p+1)
	default:
		return wrap(b.L, p) + " " + string(b.Op) + " " + wrap(b.R, p)
	}
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Fn + "(" + strings.Join(args, ", ") + ")"
}

func wrap(e Expr, min int) string {
	if e.prec() < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// FreeSymbols returns every symbol name the expression depends on.
func FreeSymbols(e Expr) map[string]struct{} {
	out := make(map[string]struct{})
	collect(e, out)
	return out
}

func collect(e Expr, out map[string]struct{}) {
	switch n := e.(type) {
	case *Sym:
		out[n.Name] = struct{}{}
	case *Neg:
		collect(n.X, out)
	case *Binary:
		collect(n.L, out)
		collect(n.R, out)
	case *Call:
		for _, a := range n.Args {
			collect(a, out)
		}
	}
}

// SortedSymbols returns the union of free symbols of all expressions in
// lexical order. It is the only ordering callers should persist.
func SortedSymbols(exprs ...Expr) []string {
	set := make(map[string]struct{})
	for _, e := range exprs {
		collect(e, set)
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
