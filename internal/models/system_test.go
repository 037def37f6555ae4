package models

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/expr"
)

func thixotropic(t *testing.T) *System {
	t.Helper()
	sys, err := New([]string{
		`-s \cdot \exp(-w)`,
		`c \cdot (1 - w - b \cdot \exp(h \cdot s) \cdot (1 + w))`,
	}, []string{"s", "w"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return sys
}

func TestParamsAreSortedAndExcludeStateAndTime(t *testing.T) {
	sys, err := New([]string{"k*t - s", "a*w + z"}, []string{"s", "w"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "k", "z"}
	if got := sys.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %v, want %v", got, want)
	}
}

func TestParamClassificationIsIdempotent(t *testing.T) {
	eqs := []string{`c \cdot (1 - w - b \cdot \exp(h \cdot s) \cdot (1 + w))`, `-s \cdot \exp(-w)`}
	first, _ := New(eqs, []string{"w", "s"})
	for i := 0; i < 10; i++ {
		again, err := New(eqs, []string{"w", "s"})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Params(), again.Params()) {
			t.Fatalf("classification changed: %v vs %v", first.Params(), again.Params())
		}
	}
	if got := first.Params(); !reflect.DeepEqual(got, []string{"b", "c", "h"}) {
		t.Errorf("Params() = %v", got)
	}
}

func TestNewRejectsBadDeclarations(t *testing.T) {
	tests := []struct {
		name string
		eqs  []string
		vars []string
		want error
	}{
		{"count mismatch", []string{"x"}, []string{"x", "y"}, ErrInvalidSystem},
		{"time as variable", []string{"1"}, []string{"t"}, ErrInvalidSystem},
		{"duplicate", []string{"x", "x"}, []string{"x", "x"}, ErrInvalidSystem},
		{"function name", []string{"1"}, []string{"exp"}, ErrInvalidSystem},
		{"not a symbol", []string{"1"}, []string{"x+y"}, ErrInvalidSystem},
		{"empty", nil, nil, ErrInvalidSystem},
		{"parse error", []string{"w(1-w)"}, []string{"w"}, expr.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.eqs, tt.vars)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRightHandSideParamCount(t *testing.T) {
	sys := thixotropic(t)
	_, err := sys.RightHandSide(0, []float64{1, 0}, []float64{1, 2})

	var pc *dynamo.ParamCountError
	if !errors.As(err, &pc) {
		t.Fatalf("expected ParamCountError, got %v", err)
	}
	if pc.Expected != 3 || pc.Got != 2 {
		t.Errorf("Expected/Got = %d/%d, want 3/2", pc.Expected, pc.Got)
	}
	if !errors.Is(err, dynamo.ErrParameterCount) {
		t.Error("error should match ErrParameterCount")
	}
	if sys.State() != Uncompiled {
		t.Error("failed call should not compile the system")
	}
}

func TestRightHandSideDimension(t *testing.T) {
	sys := thixotropic(t)
	_, err := sys.RightHandSide(0, []float64{1}, []float64{1, 1, 1})
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRightHandSideValues(t *testing.T) {
	sys := thixotropic(t)
	b, c, h := 1e-3, 0.5, 0.02
	s, w := 3.0, 0.25

	dx, err := sys.RightHandSide(0, []float64{s, w}, []float64{b, c, h})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		-s * math.Exp(-w),
		c * (1 - w - b*math.Exp(h*s)*(1+w)),
	}
	for i := range want {
		if math.Abs(dx[i]-want[i]) > 1e-14 {
			t.Errorf("dx[%d] = %v, want %v", i, dx[i], want[i])
		}
	}
}

func TestCompileCache(t *testing.T) {
	sys := thixotropic(t)
	if sys.State() != Uncompiled {
		t.Fatalf("new system state = %v", sys.State())
	}

	p1 := []float64{1, 2, 3}
	b1, err := sys.Compile(p1)
	if err != nil {
		t.Fatal(err)
	}
	if sys.State() != Compiled {
		t.Errorf("state = %v after Compile", sys.State())
	}

	b1again, _ := sys.Compile([]float64{1, 2, 3})
	if b1 != b1again {
		t.Error("same parameter vector should reuse the cached callable")
	}

	b2, _ := sys.Compile([]float64{1, 2, 4})
	if b2 == b1 {
		t.Error("different parameter vector must produce a new callable")
	}
	if !reflect.DeepEqual(b1.Params(), p1) {
		t.Errorf("old callable parameters changed: %v", b1.Params())
	}

	// the right-hand side follows the vector it is given, not the first one
	d1, _ := sys.RightHandSide(0, []float64{1, 0}, []float64{0, 1, 0})
	d2, _ := sys.RightHandSide(0, []float64{1, 0}, []float64{0, 2, 0})
	if d1[1] == d2[1] {
		t.Errorf("RHS ignored new parameters: %v vs %v", d1, d2)
	}
}

func TestFixedPoint(t *testing.T) {
	sys, err := New([]string{"0", "0"}, []string{"s", "w"})
	if err != nil {
		t.Fatal(err)
	}
	dx, err := sys.RightHandSide(1.5, []float64{0.3, 0.7}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if dx[0] != 0 || dx[1] != 0 {
		t.Errorf("expected zero derivative, got %v", dx)
	}
}

func vanDerPol(mu float64, x dynamo.State) dynamo.State {
	return dynamo.State{x[1], mu*(1-x[0]*x[0])*x[1] - x[0]}
}

func TestMatchesHandCodedVanDerPol(t *testing.T) {
	sys, err := New([]string{"y", `\mu (1 - x^2) y - x`}, []string{"x", "y"})
	if err != nil {
		t.Fatal(err)
	}
	params, err := sys.ParamVector(map[string]float64{"mu": 1.5, "unused": 9})
	if err != nil {
		t.Fatal(err)
	}
	bound, err := sys.Bind(params)
	if err != nil {
		t.Fatal(err)
	}

	points := []dynamo.State{{0, 0}, {1, 1}, {-2, 0.5}, {0.3, -4}}
	for _, x := range points {
		got := bound.Derive(0, x)
		want := vanDerPol(1.5, x)
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-12 {
				t.Errorf("at %v: got %v, want %v", x, got, want)
			}
		}
	}
}

func TestParamVectorMissing(t *testing.T) {
	sys := thixotropic(t)
	_, err := sys.ParamVector(map[string]float64{"c": 1})

	var mp *dynamo.MissingParamError
	if !errors.As(err, &mp) {
		t.Fatalf("expected MissingParamError, got %v", err)
	}
	if !reflect.DeepEqual(mp.Missing, []string{"b", "h"}) {
		t.Errorf("Missing = %v", mp.Missing)
	}
}

func TestFunctionArgumentOrder(t *testing.T) {
	f, err := NewFunction(`a \cdot x^2 + b`)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Params(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Params() = %v", got)
	}
	ys, err := f.Evaluate([]float64{0, 1, 2}, []float64{2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ys, []float64{1, 3, 9}) {
		t.Errorf("got %v, want [1 3 9]", ys)
	}
	if _, err := f.Evaluate([]float64{0}, []float64{1}); !errors.Is(err, dynamo.ErrParameterCount) {
		t.Errorf("expected ErrParameterCount, got %v", err)
	}
}
