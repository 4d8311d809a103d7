package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sarchlab/libra/qp"
	"github.com/sarchlab/libra/solver"
	"k8s.io/klog/v2"
)

// PerfPerCostScale divides the performance-per-cost objective to keep its
// magnitude close to the end-to-end time.
const PerfPerCostScale = 1e10

// Objective is the goal of the optimization.
type Objective int

// Objective constants.
const (
	// PerformanceOnly minimizes the end-to-end time.
	PerformanceOnly Objective = iota
	// PerformancePerCost minimizes end-to-end time times network cost.
	PerformancePerCost
)

func (o Objective) String() string {
	switch o {
	case PerformanceOnly:
		return "PerformanceOnly"
	case PerformancePerCost:
		return "PerformancePerCost"
	default:
		return fmt.Sprintf("Objective(%d)", int(o))
	}
}

// ParseObjective translates an objective name.
func ParseObjective(name string) (Objective, error) {
	switch strings.TrimSpace(name) {
	case "perf", "PerformanceOnly":
		return PerformanceOnly, nil
	case "perf-per-cost", "PerformancePerCost":
		return PerformancePerCost, nil
	default:
		return 0, errorf(name, "not a valid objective")
	}
}

// SetObjective sets the objective of the program. It can be called again to
// replace the objective until the session is solved.
func (s *Session) SetObjective(o Objective) error {
	c := s.ctx
	if err := c.expect("set objective", workloadInstantiated, objectiveSet); err != nil {
		return err
	}

	var objective qp.Expr

	switch o {
	case PerformanceOnly:
		objective = s.e2e
	case PerformancePerCost:
		product, err := s.e2e.Mul(c.networkCost.Expr())
		if err != nil {
			return errorf(o, "cannot build objective: %v", err)
		}

		objective = product.Scale(1 / PerfPerCostScale)
	default:
		return errorf(o, "not a valid objective")
	}

	c.qp.SetObjective(objective, qp.Minimize)
	s.objective = o
	c.state = objectiveSet

	return nil
}

// Objective returns the objective set on the session.
func (s *Session) Objective() Objective {
	return s.objective
}

// An Outcome is the result of a solve. Values are only meaningful when
// Status is solver.Optimal.
type Outcome struct {
	Status       solver.Status
	EndToEndTime float64
	NetworkCost  float64
	Objective    float64
	Violation    float64

	bandwidths []float64
	values     []float64
}

// Bandwidths returns the solved bandwidth of every dimension, in GB/s.
func (o *Outcome) Bandwidths() []float64 {
	return append([]float64(nil), o.bandwidths...)
}

// Value returns the solved value of a variable.
func (o *Outcome) Value(v qp.Var) float64 {
	return o.values[v]
}

// Solve hands the program to the solver. A solver status other than
// optimal is reported in the outcome, not as an error.
func (s *Session) Solve(ctx context.Context, slv solver.Solver) (*Outcome, error) {
	c := s.ctx
	if err := c.expect("solve", objectiveSet); err != nil {
		return nil, err
	}

	if slv == nil {
		return nil, errorf(nil, "solver is required")
	}

	klog.V(1).Infof("solving %s with %d variables and %d constraints",
		c.qp.Name, c.qp.NumVars(), len(c.qp.Constrs()))

	res, err := slv.Solve(ctx, c.qp)
	if err != nil {
		return nil, err
	}

	c.state = solved

	outcome := &Outcome{
		Status:    res.Status,
		Objective: res.Objective,
		Violation: res.Violation,
	}

	if res.Status != solver.Optimal {
		klog.Warningf("solver finished with status %s", res.Status)
	}

	if len(res.X) == c.qp.NumVars() {
		outcome.values = append([]float64(nil), res.X...)
		outcome.bandwidths = res.Values(c.bw)
		outcome.NetworkCost = res.Value(c.networkCost)
		outcome.EndToEndTime = s.e2e.Eval(res.X)
	}

	klog.V(1).Infof("solve finished: %s, objective %g", res.Status, res.Objective)

	return outcome, nil
}

// FormatBandwidths renders bandwidths with two decimals, separated by tabs.
func FormatBandwidths(bw []float64) string {
	return strings.Join(lo.Map(bw, func(b float64, _ int) string {
		return fmt.Sprintf("%.2f", b)
	}), "\t")
}
