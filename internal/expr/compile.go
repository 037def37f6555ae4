package expr

import (
	"fmt"
	"sort"
)

type evalFn func(env []float64) float64

// Func is a compiled expression with a fixed positional argument order.
// It holds no mutable state and may be evaluated concurrently.
type Func struct {
	src   string
	order []string
	fn    evalFn
}

// Compile builds a numeric function whose i-th argument binds
// orderedSymbols[i]. Every free symbol of e must appear in the ordering;
// extra, unused arguments are allowed.
func Compile(e Expr, orderedSymbols []string) (*Func, error) {
	index := make(map[string]int, len(orderedSymbols))
	var dup []string
	for i, name := range orderedSymbols {
		if _, seen := index[name]; seen {
			dup = append(dup, name)
			continue
		}
		index[name] = i
	}
	free := FreeSymbols(e)
	var missing []string
	for name := range free {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 || len(dup) > 0 {
		sort.Strings(missing)
		return nil, &CompileError{
			Formula:   e.String(),
			Missing:   missing,
			Duplicate: dup,
			Expected:  len(free),
			Got:       len(orderedSymbols),
		}
	}
	order := make([]string, len(orderedSymbols))
	copy(order, orderedSymbols)
	return &Func{src: e.String(), order: order, fn: build(e, index)}, nil
}

func build(e Expr, index map[string]int) evalFn {
	switch n := e.(type) {
	case *Num:
		v := n.Value
		return func([]float64) float64 { return v }
	case *Sym:
		i := index[n.Name]
		return func(env []float64) float64 { return env[i] }
	case *Neg:
		x := build(n.X, index)
		return func(env []float64) float64 { return -x(env) }
	case *Binary:
		l, r := build(n.L, index), build(n.R, index)
		switch n.Op {
		case '+':
			return func(env []float64) float64 { return l(env) + r(env) }
		case '-':
			return func(env []float64) float64 { return l(env) - r(env) }
		case '*':
			return func(env []float64) float64 { return l(env) * r(env) }
		case '/':
			return func(env []float64) float64 { return l(env) / r(env) }
		default:
			return func(env []float64) float64 { return binop('^', l(env), r(env)) }
		}
	case *Call:
		b := builtins[n.Fn]
		if b.arity == 1 {
			f, x := b.f1, build(n.Args[0], index)
			return func(env []float64) float64 { return f(x(env)) }
		}
		f, x, y := b.f2, build(n.Args[0], index), build(n.Args[1], index)
		return func(env []float64) float64 { return f(x(env), y(env)) }
	}
	panic(fmt.Sprintf("expr: unknown node %T", e))
}

// Arity is the number of positional arguments.
func (f *Func) Arity() int { return len(f.order) }

// Symbols returns the argument order the function was compiled with.
func (f *Func) Symbols() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

func (f *Func) String() string { return f.src }

// Apply evaluates the function on env without checking its length.
// env must hold exactly Arity values; it is meant for hot loops whose
// caller has already validated the shape.
func (f *Func) Apply(env []float64) float64 { return f.fn(env) }

// Eval evaluates the function at a single point.
func (f *Func) Eval(args ...float64) (float64, error) {
	if len(args) != len(f.order) {
		return 0, fmt.Errorf("%w: %s expects %d, got %d", ErrArity, f.src, len(f.order), len(args))
	}
	return f.fn(args), nil
}

// Call evaluates the function element-wise. Each argument is either a
// scalar (length 1) or a series of the common length N; the result has
// length N (or 1 when every argument is scalar).
func (f *Func) Call(args ...[]float64) ([]float64, error) {
	if len(args) != len(f.order) {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArity, f.src, len(f.order), len(args))
	}
	n := 1
	for i, a := range args {
		if len(a) == 1 {
			continue
		}
		if n != 1 && len(a) != n {
			return nil, fmt.Errorf("%w: argument %s has length %d, want %d", ErrShape, f.order[i], len(a), n)
		}
		n = len(a)
	}
	out := make([]float64, n)
	env := make([]float64, len(args))
	for k := 0; k < n; k++ {
		for i, a := range args {
			if len(a) == 1 {
				env[i] = a[0]
			} else {
				env[i] = a[k]
			}
		}
		out[k] = f.fn(env)
	}
	return out, nil
}
