package main

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestEvalFormula(t *testing.T) {
	params, xFrom, xTo = map[string]string{"a": "2"}, 0, 1
	evalPoints, width, height = 11, 40, 8
	if err := evalFormula(testCommand(), []string{`a \cdot x^2`}); err != nil {
		t.Fatalf("eval failed: %v", err)
	}

	evalPoints = 1
	if err := evalFormula(testCommand(), []string{`x`}); err == nil {
		t.Error("expected an error for a single sample")
	}
}

func TestPhaseSketchDrawsSurvivors(t *testing.T) {
	equations, variables = []string{"x^2", "1"}, []string{"x", "y"}
	tSpan, pair, params = []float64{0, 2}, []int{0, 1}, nil
	phaseSolver, phasePoints, workers = "RK45", 50, 2
	width, height, ascii = 40, 10, false

	// the trajectory from x = 1 blows up at t = 1
	initial = []string{"0,0", "-1,0", "1,0"}
	if err := phaseSketch(testCommand(), nil); err != nil {
		t.Fatalf("phase sketch with one failing trajectory: %v", err)
	}

	initial = []string{"1,0"}
	err := phaseSketch(testCommand(), nil)
	if err == nil || !strings.Contains(err.Error(), "all 1 trajectories failed") {
		t.Errorf("expected every trajectory to fail, got %v", err)
	}

	initial = nil
	if err := phaseSketch(testCommand(), nil); err == nil {
		t.Error("expected an error without initial conditions")
	}
}
