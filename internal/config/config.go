package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/symplot/internal/dynamo"
)

// Plot kinds.
const (
	KindFunction = "function"
	KindODETime  = "ode_time"
	KindPhase    = "phase_portrait"
)

// Reserved parameter keys that tune sampling and the solver rather than
// feed a formula.
const (
	KeyPoints = "n_points"
	KeyRelTol = "rtol"
	KeyAbsTol = "atol"
)

const (
	DefaultPoints   = 1000
	DefaultDensity  = 20
	DefaultOutput   = "output"
	defaultFieldCol = "pink"
)

// Request is one plot description, usually read from a YAML file.
type Request struct {
	Type        string       `yaml:"type"`
	Output      string       `yaml:"output"`
	Defaults    Defaults     `yaml:"defaults,omitempty"`
	Curves      []Curve      `yaml:"curves"`
	Axes        Axes         `yaml:"axes,omitempty"`
	VectorField *VectorField `yaml:"vector_field,omitempty"`
}

// Defaults apply to every curve that does not override them.
type Defaults struct {
	Params       map[string]float64 `yaml:"params,omitempty"`
	SolverMethod string             `yaml:"solver_method,omitempty"`
	TSpan        []float64          `yaml:"t_span,omitempty"`
}

// Curve describes a function curve or one ODE solution. Which fields
// are required depends on the request type.
type Curve struct {
	Formula string    `yaml:"formula,omitempty"`
	XRange  []float64 `yaml:"x_range,omitempty"`

	Equations         []string  `yaml:"equations,omitempty"`
	VariableNames     []string  `yaml:"variable_names,omitempty"`
	InitialConditions []float64 `yaml:"initial_conditions,omitempty"`
	TSpan             []float64 `yaml:"t_span,omitempty"`
	SolverMethod      string    `yaml:"solver_method,omitempty"`
	VarIndices        []int     `yaml:"var_indices,omitempty"`

	Params map[string]float64 `yaml:"params,omitempty"`
	Style  *Style             `yaml:"style,omitempty"`
	Styles []Style            `yaml:"styles,omitempty"`
}

type Style struct {
	Label        string  `yaml:"label,omitempty"`
	Color        string  `yaml:"color,omitempty"`
	LineStyle    string  `yaml:"linestyle,omitempty"`
	LineWidth    float64 `yaml:"linewidth,omitempty"`
	Alpha        float64 `yaml:"alpha,omitempty"`
	UseRightAxis bool    `yaml:"use_right_axis,omitempty"`
}

type Axes struct {
	Title       string    `yaml:"title,omitempty"`
	XLim        []float64 `yaml:"xlim,omitempty"`
	YLim        []float64 `yaml:"ylim,omitempty"`
	XLabel      string    `yaml:"xlabel,omitempty"`
	YLabel      string    `yaml:"ylabel,omitempty"`
	Grid        *bool     `yaml:"grid,omitempty"`
	Legend      *bool     `yaml:"legend,omitempty"`
	DualYAxis   bool      `yaml:"dual_y_axis,omitempty"`
	YLimRight   []float64 `yaml:"ylim_right,omitempty"`
	YLabelRight string    `yaml:"ylabel_right,omitempty"`
}

// GridEnabled reports whether grid lines are drawn. Function plots
// default to no grid, ODE plots to a grid.
func (a Axes) GridEnabled(kind string) bool {
	if a.Grid != nil {
		return *a.Grid
	}
	return kind != KindFunction
}

func (a Axes) LegendEnabled() bool {
	return a.Legend == nil || *a.Legend
}

type VectorField struct {
	Enabled bool    `yaml:"enabled"`
	Density int     `yaml:"density,omitempty"`
	Color   string  `yaml:"color,omitempty"`
	Alpha   float64 `yaml:"alpha,omitempty"`
	Scale   float64 `yaml:"scale,omitempty"`
	Width   float64 `yaml:"width,omitempty"`
}

// Batch lists request files to run one after another.
type Batch struct {
	Configs []string `yaml:"configs"`
}

// DefaultParams are the global parameter defaults every request starts
// from.
func DefaultParams() map[string]float64 {
	return map[string]float64{
		KeyPoints: DefaultPoints,
		KeyRelTol: 1e-9,
		KeyAbsTol: 1e-12,
	}
}

// MergeParams layers each map over the previous ones. Later keys win;
// the inputs are not modified.
func MergeParams(layers ...map[string]float64) map[string]float64 {
	merged := make(map[string]float64)
	for _, l := range layers {
		for k, v := range l {
			merged[k] = v
		}
	}
	return merged
}

// CurveParams returns the parameters in effect for c: the global
// defaults, then the request defaults, then the curve's own values.
func (r *Request) CurveParams(c Curve) map[string]float64 {
	return MergeParams(DefaultParams(), r.Defaults.Params, c.Params)
}

// SolverConfig builds the integration settings for a curve from its
// merged parameters.
func (r *Request) SolverConfig(c Curve, merged map[string]float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	if n, ok := merged[KeyPoints]; ok && n >= 2 {
		cfg.Samples = int(n)
	}
	if v, ok := merged[KeyRelTol]; ok && v > 0 {
		cfg.RelTol = v
	}
	if v, ok := merged[KeyAbsTol]; ok && v > 0 {
		cfg.AbsTol = v
	}
	switch {
	case c.SolverMethod != "":
		cfg.Method = c.SolverMethod
	case r.Defaults.SolverMethod != "":
		cfg.Method = r.Defaults.SolverMethod
	}
	return cfg
}

// TimeSpan returns the curve's t_span, falling back to the request
// default. Spans given in params were already folded in by Parse.
func (r *Request) TimeSpan(c Curve) []float64 {
	if len(c.TSpan) > 0 {
		return c.TSpan
	}
	return r.Defaults.TSpan
}

// FieldSettings returns the vector field options with defaults filled
// in, or nil when no field is requested.
func (r *Request) FieldSettings() *VectorField {
	if r.VectorField == nil || !r.VectorField.Enabled {
		return nil
	}
	vf := *r.VectorField
	if vf.Density == 0 {
		vf.Density = DefaultDensity
	}
	if vf.Color == "" {
		vf.Color = defaultFieldCol
	}
	if vf.Alpha == 0 {
		vf.Alpha = 0.3
	}
	if vf.Scale == 0 {
		vf.Scale = 30
	}
	if vf.Width == 0 {
		vf.Width = 0.003
	}
	return &vf
}

// Load reads and decodes a request. It does not validate it.
func Load(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a request. A t_span listed among the params, at the
// defaults or the curve level, takes precedence over the curve's own
// t_span and is folded into it; the curve level wins over defaults.
func Parse(data []byte) (*Request, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	req := &Request{}
	if len(doc.Content) == 0 {
		return req, nil
	}
	root := doc.Content[0]

	defaultSpan, err := liftParamSpan(mappingValue(root, "defaults"))
	if err != nil {
		return nil, err
	}
	var curveSpans [][]float64
	if curves := mappingValue(root, "curves"); curves != nil && curves.Kind == yaml.SequenceNode {
		for _, c := range curves.Content {
			span, err := liftParamSpan(c)
			if err != nil {
				return nil, err
			}
			curveSpans = append(curveSpans, span)
		}
	}

	if err := root.Decode(req); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if req.Type != KindODETime && req.Type != KindPhase {
		return req, nil
	}
	for i := range req.Curves {
		span := defaultSpan
		if i < len(curveSpans) && curveSpans[i] != nil {
			span = curveSpans[i]
		}
		if span != nil {
			req.Curves[i].TSpan = span
		}
	}
	return req, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// liftParamSpan removes a t_span entry from the params mapping of n and
// returns its value. Params otherwise hold only numbers.
func liftParamSpan(n *yaml.Node) ([]float64, error) {
	params := mappingValue(n, "params")
	if params == nil || params.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(params.Content); i += 2 {
		if params.Content[i].Value != "t_span" {
			continue
		}
		var span []float64
		if err := params.Content[i+1].Decode(&span); err != nil {
			return nil, fmt.Errorf("config: params.t_span (line %d): %w", params.Content[i].Line, err)
		}
		params.Content = append(params.Content[:i], params.Content[i+2:]...)
		return span, nil
	}
	return nil, nil
}

func Save(path string, req *Request) error {
	data, err := yaml.Marshal(req)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadBatch reads a batch file. Relative request paths are resolved
// against the batch file's directory.
func LoadBatch(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(b.Configs) == 0 {
		return nil, errors.New("config: batch lists no configs")
	}
	dir := filepath.Dir(path)
	paths := make([]string, len(b.Configs))
	for i, p := range b.Configs {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		paths[i] = p
	}
	return paths, nil
}
