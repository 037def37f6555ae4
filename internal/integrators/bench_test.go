package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/symplot/internal/dynamo"
)

func benchMethod(b *testing.B, m Method, sys dynamo.System, x0 dynamo.State) {
	tEval := linspace(0, 10, 100)
	cfg := dynamo.DefaultConfig()
	cfg.RelTol, cfg.AbsTol = 1e-6, 1e-9

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Solve(context.Background(), sys, tEval, x0, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRK23(b *testing.B) { benchMethod(b, NewRK23(), oscillator, dynamo.State{1, 0}) }
func BenchmarkRK45(b *testing.B) { benchMethod(b, NewRK45(), oscillator, dynamo.State{1, 0}) }
func BenchmarkDOP853(b *testing.B) { benchMethod(b, NewDOP853(), oscillator, dynamo.State{1, 0}) }
func BenchmarkRadau(b *testing.B) { benchMethod(b, NewRadau(), oscillator, dynamo.State{1, 0}) }
func BenchmarkBDF(b *testing.B) { benchMethod(b, NewBDF(), oscillator, dynamo.State{1, 0}) }

var chain = dynamo.SystemFunc{Dim: 20, F: func(t float64, x dynamo.State) dynamo.State {
	dx := make(dynamo.State, 20)
	for i := 0; i < 5; i++ {
		dx[i*4] = x[i*4+2]
		dx[i*4+1] = x[i*4+3]
		dx[i*4+2] = -x[i*4] * 0.1
		dx[i*4+3] = -x[i*4+1] * 0.1
	}
	return dx
}}

func BenchmarkDOP853_Chain20(b *testing.B) {
	x := make(dynamo.State, 20)
	for i := range x {
		x[i] = float64(i) * 0.1
	}
	benchMethod(b, NewDOP853(), chain, x)
}

func BenchmarkLSODA_VanDerPol(b *testing.B) {
	tEval := linspace(0, 3000, 100)
	cfg := dynamo.DefaultConfig()
	for i := 0; i < b.N; i++ {
		if _, err := NewLSODA().Solve(context.Background(), vanDerPol, tEval, dynamo.State{2, 0}, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
