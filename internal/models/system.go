package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/expr"
)

// TimeSymbol is the independent variable of every system.
const TimeSymbol = "t"

var (
	// ErrInvalidSystem indicates a malformed equation/variable declaration.
	ErrInvalidSystem = errors.New("models: invalid system")
)

// Phase is the compilation state of a System.
type Phase int

const (
	Uncompiled Phase = iota
	Compiled
)

func (p Phase) String() string {
	if p == Compiled {
		return "compiled"
	}
	return "uncompiled"
}

// System is a first order ODE system dx_i/dt = f_i(t, x; p) given as
// symbolic formulas. Its parameter list is derived once at construction,
// sorted lexically, and is the single ordering used for every parameter
// vector passed to it.
type System struct {
	equations []string
	exprs     []expr.Expr
	vars      []string
	params    []string

	mu    sync.Mutex
	key   []float64
	bound *Bound
}

// New parses one equation per state variable. Free symbols that are
// neither t nor a state variable become parameters.
func New(equations, variables []string) (*System, error) {
	if len(equations) == 0 {
		return nil, fmt.Errorf("%w: no equations", ErrInvalidSystem)
	}
	if len(equations) != len(variables) {
		return nil, fmt.Errorf("%w: %d equations for %d variables", ErrInvalidSystem, len(equations), len(variables))
	}

	vars := make([]string, len(variables))
	seen := make(map[string]bool, len(variables))
	for i, v := range variables {
		name, err := variableName(v)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate variable %q", ErrInvalidSystem, name)
		}
		seen[name] = true
		vars[i] = name
	}

	exprs := make([]expr.Expr, len(equations))
	for i, eq := range equations {
		e, err := expr.Parse(eq)
		if err != nil {
			return nil, fmt.Errorf("equation for d%s/dt: %w", vars[i], err)
		}
		exprs[i] = e
	}

	s := &System{
		equations: append([]string(nil), equations...),
		exprs:     exprs,
		vars:      vars,
	}
	s.params = s.classify()
	return s, nil
}

func variableName(v string) (string, error) {
	name := strings.TrimSpace(v)
	if name == "" {
		return "", fmt.Errorf("%w: empty variable name", ErrInvalidSystem)
	}
	if name == TimeSymbol {
		return "", fmt.Errorf("%w: %q is the time symbol and cannot be a state variable", ErrInvalidSystem, name)
	}
	if expr.IsFunction(name) {
		return "", fmt.Errorf("%w: %q is a function name", ErrInvalidSystem, name)
	}
	e, err := expr.Parse(name)
	if err != nil {
		return "", fmt.Errorf("%w: variable %q: %v", ErrInvalidSystem, name, err)
	}
	sym, ok := e.(*expr.Sym)
	if !ok {
		return "", fmt.Errorf("%w: variable %q is not a plain symbol", ErrInvalidSystem, name)
	}
	return sym.Name, nil
}

// classify returns the sorted parameter symbols of the equations.
func (s *System) classify() []string {
	isVar := make(map[string]bool, len(s.vars)+1)
	isVar[TimeSymbol] = true
	for _, v := range s.vars {
		isVar[v] = true
	}
	params := make([]string, 0)
	for _, name := range expr.SortedSymbols(s.exprs...) {
		if !isVar[name] {
			params = append(params, name)
		}
	}
	return params
}

// Params returns the parameter names in positional order.
func (s *System) Params() []string { return append([]string(nil), s.params...) }

// Variables returns the state variable names in state order.
func (s *System) Variables() []string { return append([]string(nil), s.vars...) }

// Equations returns the source formulas.
func (s *System) Equations() []string { return append([]string(nil), s.equations...) }

func (s *System) StateDim() int { return len(s.vars) }

// State reports whether a callable is currently cached.
func (s *System) State() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound == nil {
		return Uncompiled
	}
	return Compiled
}

// ParamVector turns a name to value mapping into the positional parameter
// vector. Extra keys are ignored.
func (s *System) ParamVector(values map[string]float64) ([]float64, error) {
	return paramVector(s.params, values)
}

func paramVector(names []string, values map[string]float64) ([]float64, error) {
	out := make([]float64, len(names))
	var missing []string
	for i, name := range names {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out[i] = v
	}
	if len(missing) > 0 {
		return nil, &dynamo.MissingParamError{Missing: missing}
	}
	return out, nil
}

func (s *System) checkParams(params []float64) error {
	if len(params) != len(s.params) {
		return &dynamo.ParamCountError{Params: s.Params(), Expected: len(s.params), Got: len(params)}
	}
	return nil
}

// Compile substitutes the parameter values and compiles the equations
// against the ordering [t, vars...]. The result is cached for the exact
// parameter vector; a different vector replaces the cache.
func (s *System) Compile(params []float64) (*Bound, error) {
	if err := s.checkParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound != nil && sameVector(s.key, params) {
		return s.bound, nil
	}

	values := make(map[string]float64, len(params))
	for i, name := range s.params {
		values[name] = params[i]
	}
	order := append([]string{TimeSymbol}, s.vars...)

	funcs := make([]*expr.Func, len(s.exprs))
	for i, e := range s.exprs {
		f, err := expr.Compile(expr.Substitute(e, values), order)
		if err != nil {
			return nil, fmt.Errorf("equation for d%s/dt: %w", s.vars[i], err)
		}
		funcs[i] = f
	}

	s.key = append(s.key[:0], params...)
	s.bound = &Bound{funcs: funcs, params: append([]float64(nil), params...)}
	return s.bound, nil
}

// Bind is Compile under the name used by integration callers.
func (s *System) Bind(params []float64) (*Bound, error) {
	return s.Compile(params)
}

// RightHandSide evaluates dx/dt at (t, y), compiling on first use.
func (s *System) RightHandSide(t float64, y []float64, params []float64) ([]float64, error) {
	if len(y) != len(s.vars) {
		return nil, fmt.Errorf("%w: state has %d values, system has %d variables",
			dynamo.ErrDimensionMismatch, len(y), len(s.vars))
	}
	b, err := s.Compile(params)
	if err != nil {
		return nil, err
	}
	return b.Derive(t, y), nil
}

func sameVector(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// Bound is a System with its parameters baked in. It is immutable and
// safe for concurrent use.
type Bound struct {
	funcs  []*expr.Func
	params []float64
}

func (b *Bound) StateDim() int { return len(b.funcs) }

// Params returns the parameter vector the system was compiled with.
func (b *Bound) Params() []float64 { return append([]float64(nil), b.params...) }

func (b *Bound) Derive(t float64, x dynamo.State) dynamo.State {
	env := make([]float64, len(x)+1)
	env[0] = t
	copy(env[1:], x)
	dx := make(dynamo.State, len(b.funcs))
	for i, f := range b.funcs {
		dx[i] = f.Apply(env)
	}
	return dx
}

// Describe lists the system in "dx/dt = f" form, one equation per line.
func (s *System) Describe() string {
	lines := make([]string, len(s.vars))
	for i, v := range s.vars {
		lines[i] = fmt.Sprintf("d%s/dt = %s", v, s.exprs[i])
	}
	if len(s.params) > 0 {
		lines = append(lines, "params: "+strings.Join(s.params, ", "))
	}
	return strings.Join(lines, "\n")
}
