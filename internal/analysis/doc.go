// Package analysis samples and summarises solutions in the phase plane.
//
//   - [SampleField]: unit direction field of a system on a regular grid
//   - [Extent]: bounding box of a set of curves, used as default view
//   - [PhasePortraitToASCII]: quick character rendering of a trajectory
//
// A direction field is evaluated at t=0 with every state variable other
// than the plotted pair held at zero:
//
//	f, err := analysis.SampleField(sys, params, analysis.UnitLimits, [2]int{0, 1}, 20)
package analysis
