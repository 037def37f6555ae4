// Package export renders figures to SVG or PNG with gonum/plot and
// writes their data as JSON.
package export
