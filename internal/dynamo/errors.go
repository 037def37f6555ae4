package dynamo

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for compilation and integration.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterCount indicates the caller supplied the wrong number of
	// parameter values for a compiled system.
	ErrParameterCount = errors.New("dynamo: parameter count mismatch")

	// ErrMissingParameter indicates a parameter symbol has no value.
	ErrMissingParameter = errors.New("dynamo: missing parameter value")

	// ErrContextCanceled indicates the integration was interrupted.
	ErrContextCanceled = errors.New("dynamo: integration canceled by context")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the step budget was exhausted.
	ErrMaxSteps = errors.New("dynamo: step budget exhausted")

	// ErrNewtonFailed indicates an implicit method could not converge.
	ErrNewtonFailed = errors.New("dynamo: newton iteration did not converge")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrUnknownMethod indicates a solver method outside the supported set.
	ErrUnknownMethod = errors.New("dynamo: unknown solver method")
)

// ParamCountError reports a parameter vector of the wrong arity.
type ParamCountError struct {
	Params   []string
	Expected int
	Got      int
}

func (e *ParamCountError) Error() string {
	return fmt.Sprintf("dynamo: expected %d parameter values (%s), got %d",
		e.Expected, strings.Join(e.Params, ", "), e.Got)
}

func (e *ParamCountError) Unwrap() error {
	return ErrParameterCount
}

// MissingParamError names the parameters for which no value was supplied.
type MissingParamError struct {
	Missing []string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("dynamo: no value for parameter(s) %s", strings.Join(e.Missing, ", "))
}

func (e *MissingParamError) Unwrap() error {
	return ErrMissingParameter
}

// IntegrationError wraps a solver failure with integration context.
type IntegrationError struct {
	Method  string
	Step    int
	Time    float64
	Reason  string
	Wrapped error
}

func (e *IntegrationError) Error() string {
	msg := fmt.Sprintf("%s: integration failed at t=%.6g (step %d)", e.Method, e.Time, e.Step)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
