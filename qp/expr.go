package qp

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// A Var is a handle to a variable of a Model.
type Var int

// Expr returns the expression made of the variable alone.
func (v Var) Expr() Expr {
	return Expr{linear: map[Var]float64{v: 1}}
}

// Pair is an unordered pair of variables of a quadratic term. X <= Y.
type Pair struct {
	X, Y Var
}

func newPair(a, b Var) Pair {
	if a > b {
		a, b = b, a
	}

	return Pair{X: a, Y: b}
}

// An Expr is a polynomial of degree at most two over model variables. Exprs
// are values; every operation returns a new Expr.
type Expr struct {
	constant float64
	linear   map[Var]float64
	quad     map[Pair]float64
}

// Const returns a constant expression.
func Const(c float64) Expr {
	return Expr{constant: c}
}

// Sum adds up expressions.
func Sum(exprs ...Expr) Expr {
	return lo.Reduce(exprs, func(acc Expr, e Expr, _ int) Expr {
		return acc.Add(e)
	}, Expr{})
}

// SumVars adds up variables.
func SumVars(vars []Var) Expr {
	return Sum(lo.Map(vars, func(v Var, _ int) Expr { return v.Expr() })...)
}

func (e Expr) clone() Expr {
	c := Expr{
		constant: e.constant,
		linear:   make(map[Var]float64, len(e.linear)),
		quad:     make(map[Pair]float64, len(e.quad)),
	}

	for v, coef := range e.linear {
		c.linear[v] = coef
	}

	for p, coef := range e.quad {
		c.quad[p] = coef
	}

	return c
}

// Constant returns the constant term.
func (e Expr) Constant() float64 {
	return e.constant
}

// Coef returns the linear coefficient of v.
func (e Expr) Coef(v Var) float64 {
	return e.linear[v]
}

// QuadCoef returns the coefficient of the a*b term.
func (e Expr) QuadCoef(a, b Var) float64 {
	return e.quad[newPair(a, b)]
}

// Add returns e + o.
func (e Expr) Add(o Expr) Expr {
	r := e.clone()
	r.constant += o.constant

	for v, coef := range o.linear {
		r.linear[v] += coef
	}

	for p, coef := range o.quad {
		r.quad[p] += coef
	}

	return r.prune()
}

// AddConst returns e + c.
func (e Expr) AddConst(c float64) Expr {
	r := e.clone()
	r.constant += c

	return r
}

// Sub returns e - o.
func (e Expr) Sub(o Expr) Expr {
	return e.Add(o.Scale(-1))
}

// Scale returns k * e.
func (e Expr) Scale(k float64) Expr {
	r := e.clone()
	r.constant *= k

	for v := range r.linear {
		r.linear[v] *= k
	}

	for p := range r.quad {
		r.quad[p] *= k
	}

	return r.prune()
}

// Mul returns e * o. The product must stay within degree two.
func (e Expr) Mul(o Expr) (Expr, error) {
	if e.Degree()+o.Degree() > 2 {
		return Expr{}, errors.Errorf(
			"product of degree %d and degree %d expressions is not quadratic",
			e.Degree(), o.Degree())
	}

	r := Const(e.constant * o.constant).clone()

	for v, coef := range e.linear {
		r.linear[v] += coef * o.constant
	}

	for v, coef := range o.linear {
		r.linear[v] += coef * e.constant
	}

	for p, coef := range e.quad {
		r.quad[p] += coef * o.constant
	}

	for p, coef := range o.quad {
		r.quad[p] += coef * e.constant
	}

	for a, ca := range e.linear {
		for b, cb := range o.linear {
			r.quad[newPair(a, b)] += ca * cb
		}
	}

	return r.prune(), nil
}

func (e Expr) prune() Expr {
	for v, coef := range e.linear {
		if coef == 0 {
			delete(e.linear, v)
		}
	}

	for p, coef := range e.quad {
		if coef == 0 {
			delete(e.quad, p)
		}
	}

	return e
}

// Degree returns 0 for a constant, 1 for an affine and 2 for a quadratic
// expression.
func (e Expr) Degree() int {
	switch {
	case len(e.quad) > 0:
		return 2
	case len(e.linear) > 0:
		return 1
	default:
		return 0
	}
}

// Vars returns the variables used by the expression, in ascending order.
func (e Expr) Vars() []Var {
	set := make(map[Var]bool)
	for v := range e.linear {
		set[v] = true
	}

	for p := range e.quad {
		set[p.X] = true
		set[p.Y] = true
	}

	vars := lo.Keys(set)
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	return vars
}

// LinearTerms returns the variables with a linear coefficient, in ascending
// order.
func (e Expr) LinearTerms() []Var {
	vars := lo.Keys(e.linear)
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })

	return vars
}

// QuadTerms returns the quadratic pairs in ascending order.
func (e Expr) QuadTerms() []Pair {
	pairs := lo.Keys(e.quad)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].X != pairs[j].X {
			return pairs[i].X < pairs[j].X
		}

		return pairs[i].Y < pairs[j].Y
	})

	return pairs
}

// Eval evaluates the expression at x, indexed by variable.
func (e Expr) Eval(x []float64) float64 {
	value := e.constant

	for v, coef := range e.linear {
		value += coef * x[v]
	}

	for p, coef := range e.quad {
		value += coef * x[p.X] * x[p.Y]
	}

	return value
}

// Split writes e as coef*v + rest, where neither coef nor rest uses v. It
// fails if e contains v*v.
func (e Expr) Split(v Var) (coef, rest Expr, ok bool) {
	if _, found := e.quad[newPair(v, v)]; found {
		return Expr{}, Expr{}, false
	}

	coef = Const(e.linear[v])
	rest = e.clone()
	delete(rest.linear, v)

	for p, c := range e.quad {
		switch v {
		case p.X:
			coef = coef.Add(Expr{linear: map[Var]float64{p.Y: c}})
			delete(rest.quad, p)
		case p.Y:
			coef = coef.Add(Expr{linear: map[Var]float64{p.X: c}})
			delete(rest.quad, p)
		}
	}

	return coef, rest, true
}
