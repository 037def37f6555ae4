package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// single letter colour codes as used by matplotlib style strings
var shortColors = map[string]string{
	"b": "blue", "g": "green", "r": "red", "c": "cyan",
	"m": "magenta", "y": "yellow", "k": "black", "w": "white",
}

// ParseColor resolves an SVG colour name, a matplotlib single letter
// code, or a #rrggbb / #rgb hex string.
func ParseColor(s string) (color.NRGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if long, ok := shortColors[name]; ok {
		name = long
	}
	if c, ok := colornames.Map[name]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}, nil
	}
	if strings.HasPrefix(name, "#") {
		hex := name[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 6 {
			v, err := strconv.ParseUint(hex, 16, 32)
			if err == nil {
				return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
			}
		}
	}
	return color.NRGBA{}, fmt.Errorf("export: unknown colour %q", s)
}

// resolveColor picks the named colour, or the i-th palette colour when
// none is given, and applies alpha (0 means opaque).
func resolveColor(name string, alpha float64, i int) (color.Color, error) {
	var c color.NRGBA
	if name == "" {
		r, g, b, a := plotutil.Color(i).RGBA()
		c = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	} else {
		var err error
		if c, err = ParseColor(name); err != nil {
			return nil, err
		}
	}
	if alpha > 0 && alpha < 1 {
		c.A = uint8(alpha*255 + 0.5)
	}
	return c, nil
}

// dashes maps a matplotlib line style to a dash pattern.
func dashes(style string) ([]vg.Length, error) {
	switch style {
	case "", "-", "solid":
		return nil, nil
	case "--", "dashed":
		return []vg.Length{vg.Points(6), vg.Points(3)}, nil
	case ":", "dotted":
		return []vg.Length{vg.Points(1), vg.Points(2)}, nil
	case "-.", "dashdot":
		return []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}, nil
	}
	return nil, fmt.Errorf("export: unknown line style %q", style)
}
