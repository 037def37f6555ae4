package models

import (
	"fmt"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/expr"
)

// ArgSymbol is the abscissa of a closed-form curve.
const ArgSymbol = "x"

// Function is a closed-form curve y = f(x; p). Its compiled argument
// order is x followed by the parameters in lexical order.
type Function struct {
	formula string
	params  []string
	fn      *expr.Func
}

func NewFunction(formula string) (*Function, error) {
	e, err := expr.Parse(formula)
	if err != nil {
		return nil, err
	}
	params := make([]string, 0)
	for _, name := range expr.SortedSymbols(e) {
		if name != ArgSymbol {
			params = append(params, name)
		}
	}
	fn, err := expr.Compile(e, append([]string{ArgSymbol}, params...))
	if err != nil {
		return nil, err
	}
	return &Function{formula: formula, params: params, fn: fn}, nil
}

func (f *Function) Formula() string { return f.formula }

// Params returns the parameter names in positional order.
func (f *Function) Params() []string { return append([]string(nil), f.params...) }

func (f *Function) ParamVector(values map[string]float64) ([]float64, error) {
	return paramVector(f.params, values)
}

// Evaluate computes f over xs with the given parameter vector.
func (f *Function) Evaluate(xs []float64, params []float64) ([]float64, error) {
	if len(params) != len(f.params) {
		return nil, fmt.Errorf("%s: %w", f.formula,
			&dynamo.ParamCountError{Params: f.Params(), Expected: len(f.params), Got: len(params)})
	}
	args := make([][]float64, 0, len(params)+1)
	args = append(args, xs)
	for _, p := range params {
		args = append(args, []float64{p})
	}
	return f.fn.Call(args...)
}
