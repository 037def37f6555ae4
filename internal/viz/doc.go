// Package viz draws terminal previews of figures and styles the CLI
// output.
//
//   - [Canvas]: Braille-based pixel canvas used for phase portraits
//   - [Preview]: asciigraph charts for time series, the canvas otherwise
//   - [Summary]: a lipgloss table of the curves and failures of a run
//
// Colours come from the current [Theme].
package viz
