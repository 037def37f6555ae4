package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CLI styles, derived from the current theme.
var (
	HeaderStyle lipgloss.Style
	MetricLabel lipgloss.Style
	MetricValue lipgloss.Style
	Subtle      lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style
	Panel       lipgloss.Style

	sparkHigh, sparkMid, sparkLow lipgloss.Style
)

func init() { applyTheme(CurrentTheme) }

func applyTheme(t Theme) {
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.Secondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(t.Muted)
	MetricLabel = lipgloss.NewStyle().Foreground(t.Muted)
	MetricValue = lipgloss.NewStyle().Foreground(t.Secondary).Bold(true)
	Subtle = lipgloss.NewStyle().Foreground(t.Muted)
	StatusOK = lipgloss.NewStyle().Bold(true).Foreground(t.Success)
	StatusWarn = lipgloss.NewStyle().Bold(true).Foreground(t.Warning)
	StatusError = lipgloss.NewStyle().Bold(true).Foreground(t.Error)
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Muted).
		Padding(0, 1)

	sparkHigh = lipgloss.NewStyle().Foreground(t.Success)
	sparkMid = lipgloss.NewStyle().Foreground(t.Accent)
	sparkLow = lipgloss.NewStyle().Foreground(t.Primary)
}

// SparklineChart renders a one line sketch of values, skipping NaN.
func SparklineChart(values []float64, width int) string {
	finiteVals := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			finiteVals = append(finiteVals, v)
		}
	}
	if len(finiteVals) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := finiteVals[0], finiteVals[0]
	for _, v := range finiteVals {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(finiteVals) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(finiteVals); i++ {
		norm := (finiteVals[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			result.WriteString(sparkMid.Render(c))
		default:
			result.WriteString(sparkLow.Render(c))
		}
	}

	return result.String()
}

// Separator is a muted rule of the given width.
func Separator(width int) string {
	if width < 8 {
		return Subtle.Render(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return Subtle.Render(left + " ◆ " + right)
}
