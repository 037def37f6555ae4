package integrators

import (
	"context"

	"github.com/san-kum/symplot/internal/dynamo"
)

const (
	stiffHLambda   = 3.25 // Dormand-Prince stability boundary on the real axis
	stiffSteps     = 15
	calmSteps      = 6
	rejectWindow   = 50
	rejectFraction = 3 // switch when more than 1/rejectFraction of a window is rejected
)

// lsoda starts with Dormand-Prince and hands over to BDF for the rest of
// the integration once the problem looks stiff: either h*|lambda| sits
// on the explicit stability boundary for several accepted steps, or a
// large share of recent trials is rejected.
type lsoda struct {
	sys  dynamo.System
	cfg  dynamo.Config
	tEnd float64

	rk       *erk
	explicit *adaptive
	implicit *bdf
	// lastImplicit is set once the latest step was taken by implicit.
	lastImplicit bool

	stiffCount, calmCount int
	trials, rejects       int
}

func newLSODA(sys dynamo.System, t0 float64, x0 dynamo.State, tEnd float64, cfg dynamo.Config) *lsoda {
	rk := newERK(sys, dormandPrince, cfg)
	return &lsoda{
		sys:      sys,
		cfg:      cfg,
		tEnd:     tEnd,
		rk:       rk,
		explicit: newAdaptive(sys, rk, t0, x0, tEnd, cfg),
	}
}

func (l *lsoda) current() (float64, dynamo.State) {
	if l.lastImplicit {
		return l.implicit.current()
	}
	return l.explicit.current()
}

func (l *lsoda) counts() (int, int) {
	steps, rejected := l.explicit.counts()
	if l.implicit != nil {
		s, r := l.implicit.counts()
		steps, rejected = steps+s, rejected+r
	}
	return steps, rejected
}

func (l *lsoda) dense() bool { return true }

func (l *lsoda) interpolate(tq float64) dynamo.State {
	if l.lastImplicit {
		return l.implicit.interpolate(tq)
	}
	return l.explicit.interpolate(tq)
}

// stiff reports whether the integration has moved to BDF.
func (l *lsoda) stiff() bool { return l.implicit != nil }

func (l *lsoda) step(bound float64) error {
	if l.implicit != nil {
		l.lastImplicit = true
		return l.implicit.step(bound)
	}

	before := l.explicit.rejected
	if err := l.explicit.step(bound); err != nil {
		return err
	}
	rejected := l.explicit.rejected - before
	l.trials += 1 + rejected
	l.rejects += rejected

	if l.rk.hLam > stiffHLambda {
		l.stiffCount++
		l.calmCount = 0
	} else {
		l.calmCount++
		if l.calmCount >= calmSteps {
			l.stiffCount = 0
		}
	}

	switchNow := l.stiffCount >= stiffSteps
	if l.trials >= rejectWindow {
		if l.rejects*rejectFraction > l.trials {
			switchNow = true
		}
		l.trials, l.rejects = 0, 0
	}
	if switchNow {
		t, x := l.explicit.current()
		l.implicit = newBDF(l.sys, t, x, l.tEnd, l.explicit.h, l.cfg)
	}
	return nil
}

// LSODA switches automatically from a non-stiff to a stiff method.
type LSODA struct{}

func NewLSODA() *LSODA { return &LSODA{} }

func (LSODA) Name() string { return "LSODA" }

func (m LSODA) Solve(ctx context.Context, sys dynamo.System, tEval []float64, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	if err := validate(sys, tEval, x0, &cfg); err != nil {
		return nil, err
	}
	c := &counter{sys: sys}
	return drive(ctx, m.Name(), c, tEval, x0, cfg, func(t0 float64, x0 dynamo.State, tEnd float64) solver {
		return newLSODA(c, t0, x0, tEnd, cfg)
	})
}
