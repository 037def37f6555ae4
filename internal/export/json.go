package export

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/san-kum/symplot/internal/figure"
)

type CurveData struct {
	Label string       `json:"label"`
	Axis  string       `json:"axis"`
	Style figure.Style `json:"style"`
	X     Samples      `json:"x"`
	Y     Samples      `json:"y"`
}

// Samples marshals non-finite values as null, which JSON has no number
// for.
type Samples []float64

func (s Samples) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(s)*8+2)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

type ExportData struct {
	Type     string         `json:"type"`
	Output   string         `json:"output"`
	Axes     figure.Axes    `json:"axes"`
	Curves   []CurveData    `json:"curves"`
	Field    *figure.Quiver `json:"field,omitempty"`
	Failures []string       `json:"failures,omitempty"`
}

// NewExportData collects the series of fig for JSON output.
func NewExportData(typ, output string, fig *figure.Figure, failures []string) ExportData {
	data := ExportData{
		Type:     typ,
		Output:   output,
		Axes:     fig.Axes,
		Curves:   make([]CurveData, 0, fig.Len()),
		Field:    fig.Field(),
		Failures: failures,
	}
	for _, c := range fig.Curves() {
		data.Curves = append(data.Curves, CurveData{
			Label: c.Style.Label,
			Axis:  c.Axis.String(),
			Style: c.Style,
			X:     c.X,
			Y:     c.Y,
		})
	}
	return data
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
