package export

import (
	"bytes"
	"encoding/json"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/symplot/internal/figure"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"red", color.NRGBA{255, 0, 0, 255}, true},
		{"SteelBlue", color.NRGBA{70, 130, 180, 255}, true},
		{"k", color.NRGBA{0, 0, 0, 255}, true},
		{"#1f77b4", color.NRGBA{0x1f, 0x77, 0xb4, 255}, true},
		{"#fff", color.NRGBA{255, 255, 255, 255}, true},
		{"#12345", color.NRGBA{}, false},
		{"no-such-colour", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseColor(%q) error = %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveColorAlpha(t *testing.T) {
	c, err := resolveColor("blue", 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n := c.(color.NRGBA); n.A != 128 || n.B != 255 {
		t.Errorf("got %v", n)
	}
	if _, err := resolveColor("", 0, 3); err != nil {
		t.Errorf("palette colour failed: %v", err)
	}
}

func TestDashes(t *testing.T) {
	for _, s := range []string{"", "-", "--", ":", "-.", "dashed"} {
		if _, err := dashes(s); err != nil {
			t.Errorf("dashes(%q): %v", s, err)
		}
	}
	if d, _ := dashes("--"); len(d) != 2 {
		t.Errorf("dashed pattern = %v", d)
	}
	if _, err := dashes("~~"); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestFormatFor(t *testing.T) {
	if FormatFor("out/a.PNG") != PNG || FormatFor("a.svg") != SVG || FormatFor("a") != SVG {
		t.Error("wrong format choice")
	}
}

func TestFiniteRuns(t *testing.T) {
	nan := math.NaN()
	runs := finiteRuns([]float64{0, 1, 2, 3, 4, 5}, []float64{1, nan, 2, 3, math.Inf(1), 4})
	if len(runs) != 3 || len(runs[0]) != 1 || len(runs[1]) != 2 || len(runs[2]) != 1 {
		t.Errorf("runs = %v", runs)
	}
	if runs := finiteRuns([]float64{0}, []float64{nan}); len(runs) != 0 {
		t.Errorf("all NaN gave %v", runs)
	}
}

func dualFigure(t *testing.T) *figure.Figure {
	t.Helper()
	fig := figure.New()
	fig.Axes.Grid = true
	fig.Axes.XLabel = "t"
	fig.EnableSecondary()
	if err := fig.AddCurve([]float64{0, 1, 2}, []float64{0, 1, 4}, figure.Style{Label: "left", Color: "navy"}, figure.Primary); err != nil {
		t.Fatal(err)
	}
	if err := fig.AddCurve([]float64{-1, 3}, []float64{100, 200}, figure.Style{Label: "right", LineStyle: ":"}, figure.Secondary); err != nil {
		t.Fatal(err)
	}
	return fig
}

func TestPlotsSecondaryPanel(t *testing.T) {
	fig := dualFigure(t)
	fig.Axes.RightLim = figure.NewRange(0, 500)

	plots, err := Plots(fig, defaultSize)
	if err != nil {
		t.Fatal(err)
	}
	if len(plots) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(plots))
	}
	for i, p := range plots {
		if p.X.Min != -1 || p.X.Max != 3 {
			t.Errorf("panel %d x range [%v, %v], want [-1, 3]", i, p.X.Min, p.X.Max)
		}
	}
	if plots[1].Y.Min != 0 || plots[1].Y.Max != 500 {
		t.Errorf("right limits not applied: [%v, %v]", plots[1].Y.Min, plots[1].Y.Max)
	}
}

func TestPlotsRejectsBadStyle(t *testing.T) {
	fig := figure.New()
	fig.AddCurve([]float64{0, 1}, []float64{0, 1}, figure.Style{Color: "notacolour"}, figure.Primary)
	if _, err := Plots(fig, defaultSize); err == nil {
		t.Error("expected error for unknown colour")
	}
}

func TestWriteSVGAndPNG(t *testing.T) {
	fig := dualFigure(t)
	fig.SetField(&figure.Quiver{
		X: []float64{0, 1}, Y: []float64{0, 1},
		U: [][]float64{{1, 0}, {0, 0}}, V: [][]float64{{0, 1}, {1, 0}},
		Color: "pink", Alpha: 0.3, Width: 0.003,
	})

	var buf bytes.Buffer
	if err := Write(&buf, fig, SVG, Options{Width: 300, Height: 300}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Error("output is not SVG")
	}

	path := filepath.Join(t.TempDir(), "nested", "plot.png")
	if err := Save(fig, path, Options{Width: 100, Height: 100}); err != nil {
		t.Fatalf("png: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not PNG")
	}
}

func TestWriteJSON(t *testing.T) {
	fig := figure.New()
	fig.AddCurve([]float64{0, 1, 2}, []float64{1, math.NaN(), 3}, figure.Style{Label: "gap"}, figure.Primary)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewExportData("function", "f.svg", fig, nil)); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var decoded struct {
		Type   string
		Curves []struct {
			Label string
			Axis  string
			Y     []*float64
		}
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "function" || len(decoded.Curves) != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	y := decoded.Curves[0].Y
	if y[1] != nil || *y[2] != 3 || decoded.Curves[0].Axis != "primary" {
		t.Errorf("curve = %+v", decoded.Curves[0])
	}
}
