package expr

import (
	"fmt"
	"sort"
)

// Substitute replaces the named symbols with constants and folds every
// subtree that becomes constant. Symbols absent from values are kept.
func Substitute(e Expr, values map[string]float64) Expr {
	switch n := e.(type) {
	case *Num:
		return n
	case *Sym:
		if v, ok := values[n.Name]; ok {
			return &Num{Value: v}
		}
		return n
	case *Neg:
		x := Substitute(n.X, values)
		if c, ok := x.(*Num); ok {
			return &Num{Value: -c.Value}
		}
		return &Neg{X: x}
	case *Binary:
		l, r := Substitute(n.L, values), Substitute(n.R, values)
		cl, lok := l.(*Num)
		cr, rok := r.(*Num)
		if lok && rok {
			return &Num{Value: binop(n.Op, cl.Value, cr.Value)}
		}
		return &Binary{Op: n.Op, L: l, R: r}
	case *Call:
		args := make([]Expr, len(n.Args))
		consts := make([]float64, 0, len(n.Args))
		for i, a := range n.Args {
			args[i] = Substitute(a, values)
			if c, ok := args[i].(*Num); ok {
				consts = append(consts, c.Value)
			}
		}
		if len(consts) == len(args) {
			return &Num{Value: applyBuiltin(n.Fn, consts)}
		}
		return &Call{Fn: n.Fn, Args: args}
	}
	return e
}

// Eval evaluates e by walking the tree with the given bindings. It is the
// reference against which compiled functions are checked.
func Eval(e Expr, env map[string]float64) (float64, error) {
	folded := Substitute(e, env)
	if c, ok := folded.(*Num); ok {
		return c.Value, nil
	}
	missing := make([]string, 0)
	for name := range FreeSymbols(folded) {
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return 0, fmt.Errorf("expr: unbound symbols %v in %q", missing, e.String())
}

func applyBuiltin(name string, args []float64) float64 {
	b := builtins[name]
	if b.arity == 1 {
		return b.f1(args[0])
	}
	return b.f2(args[0], args[1])
}
