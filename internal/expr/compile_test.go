package expr

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func permutations(names []string) [][]string {
	if len(names) <= 1 {
		return [][]string{append([]string(nil), names...)}
	}
	var out [][]string
	for i := range names {
		rest := make([]string, 0, len(names)-1)
		rest = append(rest, names[:i]...)
		rest = append(rest, names[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{names[i]}, p...))
		}
	}
	return out
}

func TestCompileMatchesSubstitutionForEveryOrder(t *testing.T) {
	e := MustParse(`a x^2 + b \sin(c x) - \frac{\exp(-a)}{b}`)
	values := map[string]float64{"a": 0.7, "b": -1.3, "c": 2.1, "x": 0.45}

	want, err := Eval(e, values)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}

	orders := permutations(SortedSymbols(e))
	if len(orders) != 24 {
		t.Fatalf("expected 24 orderings, got %d", len(orders))
	}
	for _, order := range orders {
		f, err := Compile(e, order)
		if err != nil {
			t.Fatalf("Compile(%v) failed: %v", order, err)
		}
		args := make([]float64, len(order))
		for i, name := range order {
			args[i] = values[name]
		}
		got, err := f.Eval(args...)
		if err != nil {
			t.Fatalf("Eval failed: %v", err)
		}
		if got != want {
			t.Errorf("order %v: got %v, want %v", order, got, want)
		}
	}
}

func TestCompileMissingSymbol(t *testing.T) {
	e := MustParse("x + y")
	_, err := Compile(e, []string{"x"})

	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if !errors.Is(err, ErrCompile) {
		t.Error("CompileError should unwrap to ErrCompile")
	}
	if !reflect.DeepEqual(ce.Missing, []string{"y"}) {
		t.Errorf("Missing = %v, want [y]", ce.Missing)
	}
	if ce.Expected != 2 || ce.Got != 1 {
		t.Errorf("Expected/Got = %d/%d, want 2/1", ce.Expected, ce.Got)
	}
}

func TestCompileDuplicateSymbol(t *testing.T) {
	_, err := Compile(MustParse("x"), []string{"x", "x"})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if !reflect.DeepEqual(ce.Duplicate, []string{"x"}) {
		t.Errorf("Duplicate = %v, want [x]", ce.Duplicate)
	}
}

func TestCompileExtraArgumentsAllowed(t *testing.T) {
	f, err := Compile(MustParse("2*x"), []string{"unused", "x"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Arity() != 2 {
		t.Errorf("Arity = %d, want 2", f.Arity())
	}
	got, _ := f.Eval(99, 4)
	if got != 8 {
		t.Errorf("got %v, want 8", got)
	}
}

func TestFuncCallBroadcast(t *testing.T) {
	f, err := Compile(MustParse("a*x + 1"), []string{"a", "x"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.Call([]float64{2}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{3, 5, 7}) {
		t.Errorf("got %v, want [3 5 7]", got)
	}

	got, err = f.Call([]float64{1, 2, 3}, []float64{1, 1, 2})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{2, 3, 7}) {
		t.Errorf("got %v, want [2 3 7]", got)
	}

	if _, err := f.Call([]float64{1, 2}, []float64{1, 2, 3}); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	if _, err := f.Call([]float64{1}); !errors.Is(err, ErrArity) {
		t.Errorf("expected ErrArity, got %v", err)
	}
	if _, err := f.Eval(1, 2, 3); !errors.Is(err, ErrArity) {
		t.Errorf("expected ErrArity, got %v", err)
	}
}

func TestConstantFuncCall(t *testing.T) {
	f, err := Compile(MustParse(`2\pi`), nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Call()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 2*math.Pi {
		t.Errorf("got %v, want [2pi]", got)
	}
}

func TestNonFinitePropagates(t *testing.T) {
	tests := []struct {
		formula string
		x       float64
		check   func(float64) bool
	}{
		{"log(x)", -1, math.IsNaN},
		{"sqrt(x)", -4, math.IsNaN},
		{"1/x", 0, func(v float64) bool { return math.IsInf(v, 1) }},
		{"exp(x)", 1000, func(v float64) bool { return math.IsInf(v, 1) }},
	}
	for _, tt := range tests {
		f, err := Compile(MustParse(tt.formula), []string{"x"})
		if err != nil {
			t.Fatal(err)
		}
		got, err := f.Eval(tt.x)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.formula, err)
		}
		if !tt.check(got) {
			t.Errorf("%s at %v = %v", tt.formula, tt.x, got)
		}
	}
}

func TestSubstituteFolds(t *testing.T) {
	e := Substitute(MustParse("a*x + b*exp(0)"), map[string]float64{"a": 2, "b": 1})
	if got := e.String(); got != "2 * x + 1" {
		t.Errorf("String = %q, want %q", got, "2 * x + 1")
	}
	if syms := SortedSymbols(e); !reflect.DeepEqual(syms, []string{"x"}) {
		t.Errorf("symbols = %v, want [x]", syms)
	}

	if _, err := Eval(MustParse("x + y"), map[string]float64{"x": 1}); err == nil {
		t.Error("expected unbound symbol error")
	}
}
