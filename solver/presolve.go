package solver

import (
	"math"

	"github.com/samber/lo"
	"github.com/sarchlab/libra/qp"
	"k8s.io/klog/v2"
)

// A definition computes a derived variable from other variables, either as
// v = (rhs - rest) / coef or as v = max(args).
type definition struct {
	v    qp.Var
	coef qp.Expr
	rest qp.Expr
	rhs  float64
	max  *qp.MaxConstr
	deps []qp.Var
}

func (d *definition) eval(x []float64) float64 {
	if d.max != nil {
		return d.max.Value(x)
	}

	return (d.rhs - d.rest.Eval(x)) / d.coef.Eval(x)
}

// A presolved model splits the variables into decision variables and derived
// variables computed from them in topological order.
type presolved struct {
	model       *qp.Model
	definitions []*definition
	decisions   []qp.Var

	// residual holds the constraints not used as a definition.
	residual    []qp.Constr
	residualMax []qp.MaxConstr
}

func presolve(m *qp.Model) *presolved {
	p := &presolved{model: m}
	defined := make(map[qp.Var]*definition)
	var defs []*definition

	for _, c := range m.Constrs() {
		d := defineByConstr(m, c, defined)
		if d == nil {
			p.residual = append(p.residual, c)
			continue
		}

		defined[d.v] = d
		defs = append(defs, d)
	}

	for _, c := range m.MaxConstrs() {
		if !m.VarInfo(c.Result).Derived || defined[c.Result] != nil {
			p.residualMax = append(p.residualMax, c)
			continue
		}

		d := &definition{v: c.Result, max: &c, deps: c.Args}
		defined[d.v] = d
		defs = append(defs, d)
	}

	p.order(defs)

	isDefined := lo.SliceToMap(p.definitions, func(d *definition) (qp.Var, bool) {
		return d.v, true
	})
	for i := 0; i < m.NumVars(); i++ {
		v := qp.Var(i)
		if isDefined[v] {
			continue
		}

		if m.VarInfo(v).Derived {
			klog.V(1).Infof("derived variable %s has no definition, searching over it",
				m.VarName(v))
		}

		p.decisions = append(p.decisions, v)
	}

	return p
}

// defineByConstr returns the definition an equality provides for its latest
// created, still undefined derived variable, or nil.
func defineByConstr(
	m *qp.Model,
	c qp.Constr,
	defined map[qp.Var]*definition,
) *definition {
	if c.Sense != qp.Equal {
		return nil
	}

	candidates := lo.Filter(c.Expr.Vars(), func(v qp.Var, _ int) bool {
		return m.VarInfo(v).Derived && defined[v] == nil
	})
	if len(candidates) == 0 {
		return nil
	}

	v := lo.Max(candidates)
	coef, rest, ok := c.Expr.Split(v)
	if !ok || (coef.Degree() == 0 && coef.Constant() == 0) {
		return nil
	}

	return &definition{
		v:    v,
		coef: coef,
		rest: rest,
		rhs:  c.RHS,
		deps: append(coef.Vars(), rest.Vars()...),
	}
}

// order sorts the definitions with Kahn's algorithm so that every definition
// comes after the definitions it depends on. Definitions caught in a cycle
// are dropped and their constraints kept as residual constraints.
func (p *presolved) order(defs []*definition) {
	byVar := lo.SliceToMap(defs, func(d *definition) (qp.Var, *definition) {
		return d.v, d
	})

	inDegree := make(map[qp.Var]int, len(defs))
	dependents := make(map[qp.Var][]qp.Var)
	for _, d := range defs {
		inDegree[d.v] = 0
		for _, dep := range lo.Uniq(d.deps) {
			if byVar[dep] == nil {
				continue
			}

			inDegree[d.v]++
			dependents[dep] = append(dependents[dep], d.v)
		}
	}

	var queue []qp.Var
	for _, d := range defs {
		if inDegree[d.v] == 0 {
			queue = append(queue, d.v)
		}
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		p.definitions = append(p.definitions, byVar[v])

		for _, next := range dependents[v] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	for _, d := range defs {
		if inDegree[d.v] == 0 {
			continue
		}

		klog.V(1).Infof("definition of %s is cyclic, keeping it as a constraint",
			p.model.VarName(d.v))

		if d.max != nil {
			p.residualMax = append(p.residualMax, *d.max)
			continue
		}

		expr, _ := d.coef.Mul(d.v.Expr())
		p.residual = append(p.residual, qp.Constr{
			Name:  "cyclic_" + p.model.VarName(d.v),
			Expr:  expr.Add(d.rest),
			Sense: qp.Equal,
			RHS:   d.rhs,
		})
	}
}

// complete fills x with the values of every derived variable, assuming the
// decision variables are already set.
func (p *presolved) complete(x []float64) {
	for _, d := range p.definitions {
		x[d.v] = d.eval(x)
	}
}

// isDecisionLinear tells whether c is an affine constraint over decision
// variables only.
func (p *presolved) isDecisionLinear(c qp.Constr, decision map[qp.Var]int) bool {
	if c.Expr.Degree() > 1 {
		return false
	}

	return lo.EveryBy(c.Expr.Vars(), func(v qp.Var) bool {
		_, ok := decision[v]
		return ok
	})
}

// penalty returns the sum of squared violations of the constraints and
// bounds that the search does not enforce exactly.
func (p *presolved) penalty(x []float64, constrs []qp.Constr) float64 {
	total := 0.0

	for _, c := range constrs {
		v := c.Violation(x)
		total += v * v
	}

	for _, c := range p.residualMax {
		v := x[c.Result] - c.Value(x)
		total += v * v
	}

	for _, d := range p.definitions {
		info := p.model.VarInfo(d.v)
		below := math.Max(0, info.LB-x[d.v])
		above := math.Max(0, x[d.v]-info.UB)
		total += below*below + above*above
	}

	return total
}
