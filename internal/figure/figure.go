package figure

import (
	"errors"
	"fmt"
)

var (
	ErrSecondaryDisabled = errors.New("figure: secondary axis not enabled")
	ErrLengthMismatch    = errors.New("figure: x and y lengths differ")
	ErrEmptyCurve        = errors.New("figure: curve has no points")
)

// Axis selects the scale a curve is drawn against.
type Axis int

const (
	Primary Axis = iota
	Secondary
)

func (a Axis) String() string {
	if a == Secondary {
		return "secondary"
	}
	return "primary"
}

// Style is the resolved look of a curve. Zero values mean "renderer
// default".
type Style struct {
	Label     string  `json:"label,omitempty"`
	Color     string  `json:"color,omitempty"`
	LineStyle string  `json:"linestyle,omitempty"` // "-", "--", ":", "-."
	LineWidth float64 `json:"linewidth,omitempty"`
	Alpha     float64 `json:"alpha,omitempty"`
}

// Curve is one x/y series. The slices are owned by the figure.
type Curve struct {
	X, Y  []float64
	Style Style
	Axis  Axis
}

func (c Curve) Len() int { return len(c.X) }

// Range is an optional closed interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Set bool    `json:"set"`
}

func NewRange(lo, hi float64) Range { return Range{Min: lo, Max: hi, Set: true} }

// Axes carries the cosmetic settings of a figure.
type Axes struct {
	Title  string `json:"title,omitempty"`
	XLabel string `json:"xlabel,omitempty"`
	YLabel string `json:"ylabel,omitempty"`
	XLim   Range  `json:"xlim"`
	YLim   Range  `json:"ylim"`
	Grid   bool   `json:"grid"`
	Legend bool   `json:"legend"`

	RightLabel string `json:"ylabel_right,omitempty"`
	RightLim   Range  `json:"ylim_right"`
}

// Quiver is a grid of unit directions. U[r][c] and V[r][c] belong to
// the point (X[c], Y[r]).
type Quiver struct {
	X     []float64   `json:"x"`
	Y     []float64   `json:"y"`
	U     [][]float64 `json:"u"`
	V     [][]float64 `json:"v"`
	Color string      `json:"color,omitempty"`
	Alpha float64     `json:"alpha,omitempty"`
	Scale float64     `json:"scale,omitempty"`
	Width float64     `json:"width,omitempty"`
}

// Figure is a mutable composition surface. It is not safe for
// concurrent use; a caller that computes curves in parallel appends
// them from a single goroutine.
type Figure struct {
	Axes Axes

	curves    []Curve
	secondary bool
	field     *Quiver
}

func New() *Figure {
	return &Figure{Axes: Axes{Legend: true}}
}

// EnableSecondary turns on the right hand scale. It must be called
// before curves are added against it.
func (f *Figure) EnableSecondary() { f.secondary = true }

func (f *Figure) HasSecondary() bool { return f.secondary }

// AddCurve appends a copy of the series. Adding to the secondary axis
// before EnableSecondary fails with ErrSecondaryDisabled.
func (f *Figure) AddCurve(x, y []float64, style Style, axis Axis) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d x values, %d y values", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return ErrEmptyCurve
	}
	if axis == Secondary && !f.secondary {
		return fmt.Errorf("%w: curve %q", ErrSecondaryDisabled, style.Label)
	}
	c := Curve{
		X:     append([]float64(nil), x...),
		Y:     append([]float64(nil), y...),
		Style: style,
		Axis:  axis,
	}
	f.curves = append(f.curves, c)
	return nil
}

// SetField replaces the direction field overlay; nil removes it.
func (f *Figure) SetField(q *Quiver) { f.field = q }

func (f *Figure) Field() *Quiver { return f.field }

// Curves returns the curves in insertion order. The returned slice is a
// copy; the series themselves are shared and must not be modified.
func (f *Figure) Curves() []Curve {
	out := make([]Curve, len(f.curves))
	copy(out, f.curves)
	return out
}

// CurvesOn returns the curves drawn against axis.
func (f *Figure) CurvesOn(axis Axis) []Curve {
	var out []Curve
	for _, c := range f.curves {
		if c.Axis == axis {
			out = append(out, c)
		}
	}
	return out
}

func (f *Figure) Len() int { return len(f.curves) }

// Clear removes every curve and the field and resets the axes.
func (f *Figure) Clear() {
	f.curves = nil
	f.field = nil
	f.secondary = false
	f.Axes = Axes{Legend: true}
}
