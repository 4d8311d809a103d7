// Package solver solves the models built with package qp.
package solver

import (
	"context"
	"fmt"

	"github.com/sarchlab/libra/qp"
)

// Status is the outcome of a solve.
type Status int

// Status constants.
const (
	Optimal Status = iota
	Infeasible
	Unbounded
	NumericFailure
	IterationLimit
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	case NumericFailure:
		return "NumericFailure"
	case IterationLimit:
		return "IterationLimit"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// A Result carries the status of a solve and, unless the model was proven
// infeasible, the best assignment found.
type Result struct {
	Status Status

	// X holds one value per model variable.
	X []float64

	Objective float64

	// Violation is the largest bound or constraint violation of X.
	Violation float64

	Evaluations int
}

// Value returns the value of v.
func (r *Result) Value(v qp.Var) float64 {
	return r.X[v]
}

// Values returns the values of vs.
func (r *Result) Values(vs []qp.Var) []float64 {
	values := make([]float64, len(vs))
	for i, v := range vs {
		values[i] = r.X[v]
	}

	return values
}

// A Solver optimizes a model. Errors are reserved for models the solver
// cannot handle and for cancellation; infeasibility, unboundedness and
// numerical trouble are reported through Result.Status.
type Solver interface {
	Solve(ctx context.Context, m *qp.Model) (*Result, error)
}
