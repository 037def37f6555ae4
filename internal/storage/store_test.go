package storage

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/symplot/internal/figure"
)

func sampleFigure(t *testing.T) *figure.Figure {
	t.Helper()
	fig := figure.New()
	fig.Axes.XLabel = "t"
	fig.Axes.YLim = figure.NewRange(-1, 1)
	fig.EnableSecondary()
	if err := fig.AddCurve([]float64{0, 0.5, 1}, []float64{1, math.Pi, -1e-300}, figure.Style{Label: "x, v", Color: "navy"}, figure.Primary); err != nil {
		t.Fatal(err)
	}
	if err := fig.AddCurve([]float64{0, 1}, []float64{10, 20}, figure.Style{Label: "load", LineStyle: "--"}, figure.Secondary); err != nil {
		t.Fatal(err)
	}
	fig.SetField(&figure.Quiver{X: []float64{0, 1}, Y: []float64{0, 1}, U: [][]float64{{1, 0}, {0, 1}}, V: [][]float64{{0, 1}, {1, 0}}, Color: "pink"})
	return fig
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(Run{Type: "ode_time", Output: "plots/decay.svg", Elapsed: time.Second, Figure: sampleFigure(t), Failures: []string{"curve 2: boom"}})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Type != "ode_time" || meta.Elapsed != time.Second || len(meta.Failures) != 1 {
		t.Errorf("metadata = %+v", meta)
	}
	if len(meta.Curves) != 2 || meta.Curves[1].Axis != "secondary" || meta.Curves[0].Points != 3 {
		t.Errorf("curve metadata = %+v", meta.Curves)
	}

	fig, _, err := st.LoadFigure(runID)
	if err != nil {
		t.Fatalf("LoadFigure failed: %v", err)
	}
	orig := sampleFigure(t)
	got, want := fig.Curves(), orig.Curves()
	if len(got) != len(want) {
		t.Fatalf("got %d curves, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Style != want[i].Style || got[i].Axis != want[i].Axis {
			t.Errorf("curve %d: %+v, want %+v", i, got[i], want[i])
		}
		for j := range want[i].Y {
			if got[i].X[j] != want[i].X[j] || got[i].Y[j] != want[i].Y[j] {
				t.Errorf("curve %d point %d: (%v, %v)", i, j, got[i].X[j], got[i].Y[j])
			}
		}
	}
	if fig.Axes != orig.Axes || !fig.HasSecondary() {
		t.Errorf("axes = %+v", fig.Axes)
	}
	if q := fig.Field(); q == nil || q.Color != "pink" || q.V[0][1] != 1 {
		t.Errorf("field = %+v", q)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, err := st.Save(Run{Output: "a.svg", Figure: sampleFigure(t)})
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(Run{Output: "a.svg", Figure: sampleFigure(t)})
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatalf("runs share id %s", first)
	}
	os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755)

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(Run{Output: "x.png", Figure: sampleFigure(t)})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	for _, name := range []string{metadataFile, curvesFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	xs, _, err := st.LoadCurves(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(xs) != 2 || len(xs[0]) != 3 || len(xs[1]) != 2 {
		t.Errorf("curve lengths = %v", xs)
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
	if _, _, err := st.LoadFigure("nope"); !errors.Is(err, ErrNoRun) {
		t.Errorf("expected ErrNoRun, got %v", err)
	}
}
