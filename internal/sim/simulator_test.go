package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/symplot/internal/dynamo"
	"github.com/san-kum/symplot/internal/models"
)

func mustSystem(t *testing.T, eqs, vars []string) *models.System {
	t.Helper()
	sys, err := models.New(eqs, vars)
	if err != nil {
		t.Fatalf("models.New failed: %v", err)
	}
	return sys
}

func TestIntegrateTimeDecay(t *testing.T) {
	sys := mustSystem(t, []string{"-k x"}, []string{"x"})
	cfg := dynamo.DefaultConfig()
	cfg.Samples = 11

	tr, err := IntegrateTime(context.Background(), sys, []float64{1}, Span{0, 2}, []float64{0.5}, cfg)
	if err != nil {
		t.Fatalf("IntegrateTime failed: %v", err)
	}
	if len(tr.Times) != 11 {
		t.Fatalf("expected 11 samples, got %d", len(tr.Times))
	}
	for i, ti := range tr.Times {
		if want := 0.2 * float64(i); math.Abs(ti-want) > 1e-12 {
			t.Errorf("t[%d] = %v, want %v", i, ti, want)
		}
		if want := math.Exp(-0.5 * ti); math.Abs(tr.Values[0][i]-want) > 1e-8 {
			t.Errorf("x(%v) = %v, want %v", ti, tr.Values[0][i], want)
		}
	}
}

func TestIntegratePhaseCircle(t *testing.T) {
	sys := mustSystem(t, []string{"v", "-x"}, []string{"x", "v"})
	cfg := dynamo.DefaultConfig()
	cfg.Samples = 100

	xs, vs, err := IntegratePhase(context.Background(), sys, []float64{1, 0}, Span{0, 2 * math.Pi}, nil, [2]int{0, 1}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range xs {
		if r := math.Hypot(xs[i], vs[i]); math.Abs(r-1) > 1e-7 {
			t.Fatalf("radius %v at sample %d", r, i)
		}
	}

	_, _, err = IntegratePhase(context.Background(), sys, []float64{1, 0}, Span{0, 1}, nil, [2]int{0, 2}, cfg)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for bad index, got %v", err)
	}
}

func TestUnknownMethodFailsBeforeIntegration(t *testing.T) {
	sys := mustSystem(t, []string{"-x"}, []string{"x"})
	cfg := dynamo.DefaultConfig()
	cfg.Method = "Heun"

	_, err := IntegrateTime(context.Background(), sys, []float64{1}, Span{0, 1}, nil, cfg)
	if !errors.Is(err, dynamo.ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
	if sys.State() != models.Uncompiled {
		t.Error("system was compiled although the method was rejected")
	}
}

func TestRunValidation(t *testing.T) {
	sys := mustSystem(t, []string{"-k x"}, []string{"x"})
	s, err := New(sys, dynamo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if s.Method() != "DOP853" {
		t.Errorf("default method = %s", s.Method())
	}

	tests := []struct {
		name   string
		x0     []float64
		span   Span
		params []float64
		want   error
	}{
		{"param count", []float64{1}, Span{0, 1}, nil, dynamo.ErrParameterCount},
		{"initial conditions", []float64{1, 2}, Span{0, 1}, []float64{1}, dynamo.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Run(context.Background(), tt.x0, tt.span, tt.params); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.Run(context.Background(), []float64{1}, Span{1, 1}, []float64{1}); err == nil {
		t.Error("expected error for empty t_span")
	}
}

func TestOrderedInitialConditionsNeverCross(t *testing.T) {
	sys := mustSystem(t, []string{`r \cdot x \cdot \left(1 - \frac{x}{K}\right)`}, []string{"x"})
	params, err := sys.ParamVector(map[string]float64{"K": 2, "r": 1.5})
	if err != nil {
		t.Fatal(err)
	}
	cfg := dynamo.DefaultConfig()
	cfg.Samples = 200

	s, err := New(sys, cfg)
	if err != nil {
		t.Fatal(err)
	}
	x0s := [][]float64{{0.05}, {0.5}, {1}, {1.9}, {3.5}}
	res, err := NewEnsemble(s, 3).Run(context.Background(), x0s, Span{0, 8}, params)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	trs := res.Trajectories
	if len(trs) != len(x0s) {
		t.Fatalf("got %d trajectories", len(trs))
	}
	for k := range trs[0].Times {
		for i := 1; i < len(trs); i++ {
			lo, hi := trs[i-1].Values[0][k], trs[i].Values[0][k]
			if !(lo < hi) {
				t.Fatalf("trajectories %d and %d cross at t=%v: %v >= %v", i-1, i, trs[0].Times[k], lo, hi)
			}
		}
	}
}

func TestStructuralRelaxationOrderedStartsNeverCross(t *testing.T) {
	sys := mustSystem(t, []string{
		`-s \cdot \exp(-w)`,
		`c \cdot (1 - w - b \cdot \exp(h \cdot s) \cdot (1 + w))`,
	}, []string{"s", "w"})
	params, err := sys.ParamVector(map[string]float64{"b": 1e-12, "c": 0.3, "h": 0.07})
	if err != nil {
		t.Fatal(err)
	}
	cfg := dynamo.DefaultConfig()
	cfg.Samples = 200

	s, err := New(sys, cfg)
	if err != nil {
		t.Fatal(err)
	}
	x0s := [][]float64{{50, 0.02}, {100, 0.02}, {150, 0.02}, {200, 0.02}, {250, 0.02}}
	res, err := NewEnsemble(s, 0).Run(context.Background(), x0s, Span{0, 20}, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failures)
	}
	trs := res.Trajectories
	for k := range trs[0].Times {
		for i := 1; i < len(trs); i++ {
			lo, hi := trs[i-1].Values[0][k], trs[i].Values[0][k]
			if !(lo < hi) {
				t.Fatalf("s from %v and %v cross at t=%v: %v >= %v", x0s[i-1][0], x0s[i][0], trs[0].Times[k], lo, hi)
			}
		}
		for i := range trs {
			if k > 0 && trs[i].Values[0][k] >= trs[i].Values[0][k-1] {
				t.Fatalf("s from %v is not decreasing at t=%v", x0s[i][0], trs[i].Times[k])
			}
		}
	}
}

func TestGrid(t *testing.T) {
	g := Grid(Span{0, 1}, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("Grid[%d] = %v, want %v", i, g[i], want[i])
		}
	}
	if g := Grid(Span{2, 3}, 1); len(g) != 1 || g[0] != 2 {
		t.Errorf("single point grid = %v", g)
	}
}

func TestEnsembleKeepsSurvivors(t *testing.T) {
	sys := mustSystem(t, []string{"x^2"}, []string{"x"})
	cfg := dynamo.DefaultConfig()
	cfg.Method = "RK45"
	cfg.Samples = 20
	s, err := New(sys, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// x' = x^2 from x0 = 1 blows up at t = 1; x0 = 0 stays put and
	// x0 = -1 decays as -1/(1+t)
	res, err := NewEnsemble(s, 1).Run(context.Background(), [][]float64{{0}, {-1}, {1}}, Span{0, 2}, nil)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if got := len(res.Survivors()); got != 2 {
		t.Fatalf("got %d survivors, want 2", got)
	}
	if len(res.Failures) != 1 || res.Failures[0].Index != 2 {
		t.Fatalf("failures = %v, want only trajectory 2", res.Failures)
	}
	var ie *dynamo.IntegrationError
	if !errors.As(res.Failures[0], &ie) {
		t.Errorf("expected IntegrationError, got %v", res.Failures[0].Err)
	}
	if res.Trajectories[2] != nil {
		t.Error("failed slot should be nil")
	}
	if got, want := res.Trajectories[1].Values[0][19], -1.0/3; math.Abs(got-want) > 1e-6 {
		t.Errorf("x(2) = %v, want %v", got, want)
	}
	if got := res.Trajectories[0].Values[0][19]; got != 0 {
		t.Errorf("fixed point moved to %v", got)
	}
}

func TestEnsembleSharedFailure(t *testing.T) {
	sys := mustSystem(t, []string{`r \cdot x`}, []string{"x"})
	s, err := New(sys, dynamo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEnsemble(s, 2).Run(context.Background(), [][]float64{{1}, {2}}, Span{0, 1}, nil); !errors.Is(err, dynamo.ErrParameterCount) {
		t.Errorf("expected ErrParameterCount, got %v", err)
	}
}
