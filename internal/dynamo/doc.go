// Package dynamo provides the core types shared by the compilation and
// integration pipeline.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE right-hand sides (dX/dt = f(t, X))
//   - [Config]: solver tolerances, sampling and step budget
//   - [IntegrationError]: per-curve solver failure with its reason
//
// # Example
//
//	sys, _ := models.New([]string{"y", "-x"}, []string{"x", "y"})
//	bound, _ := sys.Bind(nil)
//	dx := bound.Derive(0, dynamo.State{1, 0})
//
// # Thread Safety
//
// A System returned by models.System.Bind is read-only and may be
// evaluated from several goroutines. Nothing else in this package holds
// mutable state.
package dynamo
