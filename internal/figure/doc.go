// Package figure accumulates styled curves and an optional direction
// field for one plot request. It knows nothing about how the series
// were produced and nothing about how they are drawn.
package figure
