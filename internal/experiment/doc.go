// Package experiment turns a validated plot request into a figure.
//
// Curves are computed concurrently, each by a worker that owns its own
// model, and are placed on the figure in request order. A curve that
// fails to parse, compile or integrate is reported and skipped; the
// remaining curves are still drawn.
package experiment
