package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/symplot/internal/dynamo"
)

// stepper is a single-step scheme under adaptive control.
type stepper interface {
	// trial attempts a step of size h from (t, x). It returns the
	// candidate state and the scaled RMS error of the step; values above
	// one reject it. A non-nil error wrapping dynamo.ErrNewtonFailed is
	// treated as a rejection, any other error aborts the integration.
	trial(t float64, x dynamo.State, h float64) (dynamo.State, float64, error)
	// accept commits the last trial.
	accept(t float64, x dynamo.State, h float64)
	// errorOrder is the order of the local error estimate.
	errorOrder() int
}

// denseStepper can evaluate its last accepted step anywhere inside it.
type denseStepper interface {
	stepper
	interpolate(tOld float64, xOld dynamo.State, h, tq float64) dynamo.State
}

// adaptive runs a stepper under the usual error per step controller.
type adaptive struct {
	st  stepper
	cfg dynamo.Config

	t    float64
	x    dynamo.State
	h    float64
	tOld float64
	xOld dynamo.State
	hOld float64

	steps, rejected int
	rejectedLast    bool
}

func newAdaptive(sys dynamo.System, st stepper, t0 float64, x0 dynamo.State, tEnd float64, cfg dynamo.Config) *adaptive {
	h := cfg.FirstDt
	if h <= 0 {
		h = initialStep(sys, t0, x0, sys.Derive(t0, x0), st.errorOrder(), tEnd-t0, cfg)
	}
	return &adaptive{st: st, cfg: cfg, t: t0, x: x0, h: h}
}

func (a *adaptive) current() (float64, dynamo.State) { return a.t, a.x }

func (a *adaptive) counts() (int, int) { return a.steps, a.rejected }

func (a *adaptive) dense() bool {
	_, ok := a.st.(denseStepper)
	return ok
}

func (a *adaptive) interpolate(tq float64) dynamo.State {
	return a.st.(denseStepper).interpolate(a.tOld, a.xOld, a.hOld, tq)
}

func (a *adaptive) step(bound float64) error {
	exponent := -1 / float64(a.st.errorOrder()+1)
	for {
		h := a.h
		if a.cfg.MaxDt > 0 {
			h = math.Min(h, a.cfg.MaxDt)
		}
		minStep := math.Max(a.cfg.MinDt, 10*epsilon(a.t))
		if h < minStep {
			return failure(dynamo.ErrStepTooSmall, "required step size %.3g is below %.3g", h, minStep)
		}

		hStep, landing := h, false
		if a.t+hStep*1.01 >= bound {
			hStep, landing = bound-a.t, true
		}

		xNew, norm, err := a.st.trial(a.t, a.x, hStep)
		if err != nil {
			if !errors.Is(err, dynamo.ErrNewtonFailed) {
				return err
			}
			a.rejected++
			a.rejectedLast = true
			a.h = hStep * 0.5
			continue
		}

		if math.IsNaN(norm) || norm > 1 {
			a.rejected++
			a.rejectedLast = true
			factor := minFactor
			if !math.IsNaN(norm) {
				factor = math.Max(minFactor, safety*math.Pow(norm, exponent))
			}
			a.h = hStep * factor
			continue
		}

		a.st.accept(a.t, xNew, hStep)
		a.tOld, a.xOld, a.hOld = a.t, a.x, hStep
		if landing {
			a.t = bound
		} else {
			a.t += hStep
		}
		a.x = xNew
		a.steps++

		factor := maxFactor
		if norm > 0 {
			factor = math.Min(maxFactor, safety*math.Pow(norm, exponent))
		}
		if a.rejectedLast {
			factor = math.Min(1, factor)
		}
		a.rejectedLast = false
		next := hStep * factor
		if landing && hStep < h {
			// clamped to a sample time; keep the unclamped proposal
			next = math.Max(next, h)
		}
		a.h = next
		return nil
	}
}
