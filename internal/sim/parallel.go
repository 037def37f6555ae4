package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/symplot/internal/dynamo"
)

// Ensemble integrates one system from several initial conditions
// concurrently. The bound system is shared read-only by all workers.
type Ensemble struct {
	base    *Simulator
	workers int
}

func NewEnsemble(s *Simulator, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ensemble{base: s, workers: workers}
}

// Failure is an initial condition whose integration failed.
type Failure struct {
	Index int
	X0    []float64
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("trajectory %d from %v: %v", f.Index, f.X0, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// EnsembleResult holds one slot per initial condition, in input order.
// A failed slot is nil in Trajectories and listed in Failures.
type EnsembleResult struct {
	Trajectories []*dynamo.Trajectory
	Failures     []Failure
}

// Survivors returns the trajectories that integrated successfully.
func (r *EnsembleResult) Survivors() []*dynamo.Trajectory {
	out := make([]*dynamo.Trajectory, 0, len(r.Trajectories))
	for _, tr := range r.Trajectories {
		if tr != nil {
			out = append(out, tr)
		}
	}
	return out
}

// Run integrates every initial condition. A failing trajectory does not
// stop the others; the returned error covers only problems shared by all
// of them, such as a parameter vector that does not bind.
func (e *Ensemble) Run(ctx context.Context, x0s [][]float64, span Span, params []float64) (*EnsembleResult, error) {
	// compile once so the workers share the cached callable
	if _, err := e.base.sys.Bind(params); err != nil {
		return nil, err
	}

	res := &EnsembleResult{Trajectories: make([]*dynamo.Trajectory, len(x0s))}
	errs := make([]error, len(x0s))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range x0s {
		g.Go(func() error {
			tr, err := e.base.Run(ctx, x0s[i], span, params)
			if err != nil {
				errs[i] = err
				return nil
			}
			res.Trajectories[i] = tr
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			res.Failures = append(res.Failures, Failure{Index: i, X0: x0s[i], Err: err})
		}
	}
	return res, nil
}
