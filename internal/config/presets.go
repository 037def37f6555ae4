package config

import "sort"

func curveStyle(label, color string) *Style {
	return &Style{Label: label, Color: color, LineWidth: 1.5}
}

// Presets are ready-made requests. Each call builds a fresh value.
var Presets = map[string]func() *Request{
	"harmonic": func() *Request {
		return &Request{
			Type:   KindODETime,
			Output: "harmonic.svg",
			Curves: []Curve{{
				Equations:         []string{"v", "-\\omega^2 x"},
				VariableNames:     []string{"x", "v"},
				InitialConditions: []float64{1, 0},
				TSpan:             []float64{0, 20},
				Params:            map[string]float64{"omega": 1},
				Styles:            []Style{{Label: "x", Color: "steelblue"}, {Label: "v", Color: "darkorange", LineStyle: "--"}},
			}},
			Axes: Axes{XLabel: "t", YLabel: "x, v"},
		}
	},
	"damped": func() *Request {
		return &Request{
			Type:   KindPhase,
			Output: "damped.svg",
			Curves: []Curve{{
				Equations:         []string{"v", "-k x - c v"},
				VariableNames:     []string{"x", "v"},
				InitialConditions: []float64{2, 0},
				TSpan:             []float64{0, 30},
				Params:            map[string]float64{"k": 1, "c": 0.3},
				VarIndices:        []int{0, 1},
				Style:             curveStyle("spiral", "navy"),
			}},
			Axes:        Axes{XLabel: "x", YLabel: "v", XLim: []float64{-2.5, 2.5}, YLim: []float64{-2.5, 2.5}},
			VectorField: &VectorField{Enabled: true},
		}
	},
	"vanderpol": func() *Request {
		return &Request{
			Type:     KindPhase,
			Output:   "vanderpol.svg",
			Defaults: Defaults{Params: map[string]float64{"mu": 1}, SolverMethod: "Radau"},
			Curves: []Curve{
				{
					Equations:         []string{"y", `\mu (1 - x^2) y - x`},
					VariableNames:     []string{"x", "y"},
					InitialConditions: []float64{0.1, 0},
					TSpan:             []float64{0, 40},
					VarIndices:        []int{0, 1},
					Style:             curveStyle("inside", "crimson"),
				},
				{
					Equations:         []string{"y", `\mu (1 - x^2) y - x`},
					VariableNames:     []string{"x", "y"},
					InitialConditions: []float64{3, 3},
					TSpan:             []float64{0, 40},
					VarIndices:        []int{0, 1},
					Style:             curveStyle("outside", "seagreen"),
				},
			},
			Axes:        Axes{XLabel: "x", YLabel: "y"},
			VectorField: &VectorField{Enabled: true, Density: 25},
		}
	},
	"lotka-volterra": func() *Request {
		return &Request{
			Type:   KindODETime,
			Output: "lotka_volterra.svg",
			Defaults: Defaults{
				Params: map[string]float64{"alpha": 1.1, "beta": 0.4, "delta": 0.1, "gamma": 0.4},
				TSpan:  []float64{0, 50},
			},
			Curves: []Curve{{
				Equations:         []string{`\alpha x - \beta x y`, `\delta x y - \gamma y`},
				VariableNames:     []string{"x", "y"},
				InitialConditions: []float64{10, 10},
				Styles:            []Style{{Label: "prey", Color: "forestgreen"}, {Label: "predator", Color: "firebrick", UseRightAxis: true}},
			}},
			Axes: Axes{XLabel: "t", YLabel: "prey", DualYAxis: true, YLabelRight: "predator"},
		}
	},
	"lorenz": func() *Request {
		return &Request{
			Type:     KindPhase,
			Output:   "lorenz.svg",
			Defaults: Defaults{Params: map[string]float64{"sigma": 10, "rho": 28, "beta": 8.0 / 3, KeyPoints: 10000}},
			Curves: []Curve{{
				Equations:         []string{`\sigma (y - x)`, `x \cdot (\rho - z) - y`, `x y - \beta z`},
				VariableNames:     []string{"x", "y", "z"},
				InitialConditions: []float64{1, 1, 1},
				TSpan:             []float64{0, 40},
				VarIndices:        []int{0, 2},
				Style:             curveStyle("attractor", "purple"),
			}},
			Axes: Axes{XLabel: "x", YLabel: "z"},
		}
	},
	"thixotropy": func() *Request {
		return &Request{
			Type:   KindODETime,
			Output: "thixotropy.svg",
			Defaults: Defaults{
				Params: map[string]float64{"a": 1, "alpha": 1.5, "b": 0.5, "beta": 1, "c": 0.2, "h": 1},
			},
			Curves: []Curve{{
				Equations: []string{
					`a \cdot w^{\beta} - s \cdot w^{\beta - \alpha}`,
					`c \cdot \left((1 - w) - b \cdot \exp(h \cdot s) \cdot w\right)`,
				},
				VariableNames:     []string{"s", "w"},
				InitialConditions: []float64{0.2, 0.8},
				TSpan:             []float64{0, 30},
				Styles:            []Style{{Label: "s", Color: "black"}, {Label: "w", Color: "gray", LineStyle: ":"}},
			}},
			Axes: Axes{XLabel: "t"},
		}
	},
	"gaussian": func() *Request {
		return &Request{
			Type:   KindFunction,
			Output: "gaussian.svg",
			Curves: []Curve{
				{Formula: `a \exp\left(-\frac{x^2}{2 \sigma^2}\right)`, XRange: []float64{-4, 4}, Params: map[string]float64{"a": 1, "sigma": 1}, Style: curveStyle("σ=1", "steelblue")},
				{Formula: `a \exp\left(-\frac{x^2}{2 \sigma^2}\right)`, XRange: []float64{-4, 4}, Params: map[string]float64{"a": 1, "sigma": 0.5}, Style: curveStyle("σ=0.5", "darkorange")},
			},
			Axes: Axes{XLabel: "x", YLabel: "f(x)"},
		}
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Request {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the preset names in lexical order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
