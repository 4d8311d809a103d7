package solver

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/sarchlab/libra/qp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/optimize/convex/lp"
	"k8s.io/klog/v2"
)

// A ReducedSpaceSolver solves a model by searching over its decision
// variables only. Derived variables are computed from their defining
// equalities and max constraints. Affine equalities over the decision
// variables are eliminated through their null space, affine inequalities are
// kept strictly satisfied by a log barrier, and any other constraint is
// enforced with a quadratic penalty. The search itself is Nelder-Mead, so
// the objective does not need to be smooth.
//
// The solver finds a local optimum. It is exact for the bilinear reciprocal
// and max constraints of the bandwidth model, which it evaluates by
// definition.
type ReducedSpaceSolver struct {
	// MaxRounds is the number of barrier rounds. Each round shrinks the
	// barrier weight tenfold.
	MaxRounds int

	// MaxEvaluations bounds the objective evaluations of one round.
	MaxEvaluations int

	// Tolerance is the relative feasibility tolerance.
	Tolerance float64
}

// NewReducedSpaceSolver creates a solver with default settings.
func NewReducedSpaceSolver() *ReducedSpaceSolver {
	return &ReducedSpaceSolver{
		MaxRounds:      10,
		MaxEvaluations: 20000,
		Tolerance:      1e-6,
	}
}

// Solve solves the model.
func (s *ReducedSpaceSolver) Solve(ctx context.Context, m *qp.Model) (*Result, error) {
	if m.NumVars() == 0 {
		return nil, errors.New("model has no variable")
	}

	p := presolve(m)
	sys := newLinearSystem(p)

	klog.V(2).Infof("presolve: %d variables, %d decision, %d definitions, %d penalized",
		m.NumVars(), len(p.decisions), len(p.definitions), len(sys.rest)+len(p.residualMax))

	x0, basis, err := sys.reduce(s.Tolerance)
	if errors.Is(err, errInconsistent) {
		return &Result{Status: Infeasible}, nil
	}

	if err != nil {
		return nil, err
	}

	r := &reducedProblem{
		presolved: p,
		sys:       sys,
		x0:        x0,
		basis:     basis,
	}

	if basis == nil {
		return s.finish(r, nil, 0), nil
	}

	_, k := basis.Dims()
	r.gz, r.hz = sys.reducedInequalities(x0, basis)

	z, slack, err := interiorPoint(r.gz, r.hz, k)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &Result{Status: Infeasible}, nil
	case err != nil:
		klog.V(1).Infof("no interior point, falling back to penalties: %v", err)
		z = make([]float64, k)
		r.penalizeInequalities = true
	case slack < -s.Tolerance*(1+floats.Norm(r.hz, math.Inf(1))):
		return &Result{Status: Infeasible}, nil
	case slack <= s.Tolerance:
		r.penalizeInequalities = true
	}

	return s.search(ctx, r, z)
}

func (s *ReducedSpaceSolver) search(
	ctx context.Context,
	r *reducedProblem,
	z []float64,
) (*Result, error) {
	scale := math.Max(1, math.Abs(r.objective(z)))
	if math.IsInf(scale, 0) || math.IsNaN(scale) {
		scale = 1
	}

	r.mu = 0.1 * scale / float64(len(r.hz)+1)
	r.rho = 1e6 * scale

	evaluations := 0
	status := optimize.NotTerminated

	for round := 0; round < s.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := optimize.Minimize(
			optimize.Problem{Func: r.merit},
			z,
			&optimize.Settings{
				FuncEvaluations: s.MaxEvaluations,
				Converger: &optimize.FunctionConverge{
					Absolute:   1e-12 * scale,
					Relative:   1e-12,
					Iterations: 100 * (len(z) + 1),
				},
			},
			&optimize.NelderMead{SimplexSize: simplexSize(z)},
		)
		if err != nil && result == nil {
			return nil, errors.Wrap(err, "minimize")
		}

		evaluations += result.Stats.FuncEvaluations
		status = result.Status
		klog.V(2).Infof("round %d: merit %g, status %v, mu %g",
			round, result.F, result.Status, r.mu)

		if status == optimize.FunctionNegativeInfinity {
			break
		}

		z = result.X
		r.mu *= 0.1
		r.rho *= 10
	}

	res := s.finish(r, z, evaluations)
	switch {
	case status == optimize.FunctionNegativeInfinity:
		res.Status = Unbounded
	case res.Status == Optimal && status == optimize.FunctionEvaluationLimit:
		res.Status = IterationLimit
	}

	return res, nil
}

// finish evaluates the final point and classifies it.
func (s *ReducedSpaceSolver) finish(r *reducedProblem, z []float64, evaluations int) *Result {
	x := r.point(z)
	obj, _ := r.model.Objective()
	res := &Result{
		X:           x,
		Objective:   obj.Eval(x),
		Violation:   r.model.Violation(x),
		Evaluations: evaluations,
	}

	magnitude := 1 + floats.Norm(finite(x), math.Inf(1))
	switch {
	case math.IsNaN(res.Objective) || math.IsNaN(res.Violation):
		res.Status = NumericFailure
	case math.IsInf(res.Objective, -1):
		res.Status = Unbounded
	case res.Violation > s.Tolerance*magnitude:
		res.Status = NumericFailure
		if r.basis == nil {
			res.Status = Infeasible
		}
	default:
		res.Status = Optimal
	}

	return res
}

// finite replaces infinite entries with zero.
func finite(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if !math.IsInf(v, 0) {
			out[i] = v
		}
	}

	return out
}

func simplexSize(z []float64) float64 {
	return 0.1 * math.Max(1, floats.Norm(z, math.Inf(1)))
}

// A reducedProblem evaluates the model as a function of the null-space
// coordinates z.
type reducedProblem struct {
	*presolved

	sys   *linearSystem
	x0    []float64
	basis *mat.Dense
	gz    [][]float64
	hz    []float64

	penalizeInequalities bool
	mu, rho              float64
}

// point returns the full assignment at z.
func (r *reducedProblem) point(z []float64) []float64 {
	dec := append([]float64(nil), r.x0...)
	if r.basis != nil {
		n, k := r.basis.Dims()
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				dec[i] += r.basis.At(i, j) * z[j]
			}
		}
	}

	x := make([]float64, r.model.NumVars())
	for i, v := range r.decisions {
		x[v] = dec[i]
	}

	r.complete(x)

	return x
}

func (r *reducedProblem) objective(z []float64) float64 {
	obj, sense := r.model.Objective()
	value := obj.Eval(r.point(z))
	if sense == qp.Maximize {
		value = -value
	}

	return value
}

// merit is the barrier and penalty function minimized in one round.
func (r *reducedProblem) merit(z []float64) float64 {
	x := r.point(z)
	obj, sense := r.model.Objective()

	value := obj.Eval(x)
	if sense == qp.Maximize {
		value = -value
	}

	if math.IsInf(value, -1) {
		return value
	}

	penalty := r.penalty(x, r.sys.rest)
	barrier := 0.0

	for i, row := range r.gz {
		slack := r.hz[i] - floats.Dot(row, z)

		if r.penalizeInequalities {
			violation := math.Max(0, -slack)
			penalty += violation * violation
			continue
		}

		if slack <= 0 {
			return math.Inf(1)
		}

		barrier -= math.Log(slack)
	}

	merit := value + r.mu*barrier + r.rho*penalty
	if math.IsNaN(merit) {
		return math.Inf(1)
	}

	return merit
}
