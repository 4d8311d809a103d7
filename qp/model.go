// Package qp provides a small, solver-independent algebraic modeling layer
// for quadratically constrained programs with max constraints.
package qp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint.
type Sense int

// Sense constants.
const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// ObjectiveSense tells whether the objective is minimized or maximized.
type ObjectiveSense int

// ObjectiveSense constants.
const (
	Minimize ObjectiveSense = iota
	Maximize
)

// VarInfo describes a variable.
type VarInfo struct {
	Name   string
	LB, UB float64

	// Derived marks a variable whose value is determined by other variables
	// through one of the model's equalities or max constraints. Solvers may
	// eliminate derived variables instead of searching over them.
	Derived bool
}

// A Constr is the constraint Expr (Sense) RHS. Expr has no constant term.
type Constr struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Violation returns how far x is from satisfying the constraint.
func (c Constr) Violation(x []float64) float64 {
	lhs := c.Expr.Eval(x)

	switch c.Sense {
	case LessEqual:
		return math.Max(0, lhs-c.RHS)
	case GreaterEqual:
		return math.Max(0, c.RHS-lhs)
	default:
		return math.Abs(lhs - c.RHS)
	}
}

// A MaxConstr is the general constraint Result == max(Args...).
type MaxConstr struct {
	Name   string
	Result Var
	Args   []Var
}

// Value returns max(Args) at x.
func (c MaxConstr) Value(x []float64) float64 {
	value := math.Inf(-1)
	for _, a := range c.Args {
		value = math.Max(value, x[a])
	}

	return value
}

// A Model is a set of variables, constraints and an objective.
type Model struct {
	Name string

	vars       []VarInfo
	constrs    []Constr
	maxConstrs []MaxConstr
	objective  Expr
	sense      ObjectiveSense
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVar adds a decision variable with bounds [lb, ub].
func (m *Model) AddVar(name string, lb, ub float64) Var {
	m.vars = append(m.vars, VarInfo{Name: name, LB: lb, UB: ub})
	return Var(len(m.vars) - 1)
}

// AddDerivedVar adds a variable that the model defines through a later
// equality or max constraint.
func (m *Model) AddDerivedVar(name string, lb, ub float64) Var {
	m.vars = append(m.vars, VarInfo{Name: name, LB: lb, UB: ub, Derived: true})
	return Var(len(m.vars) - 1)
}

// AddVars adds n decision variables named prefix_0 ... prefix_{n-1}.
func (m *Model) AddVars(n int, lb, ub float64, prefix string) []Var {
	vars := make([]Var, n)
	for i := range vars {
		vars[i] = m.AddVar(fmt.Sprintf("%s_%d", prefix, i), lb, ub)
	}

	return vars
}

// AddConstr adds the constraint lhs (sense) rhs. Both sides may be any
// expression of degree at most two.
func (m *Model) AddConstr(name string, lhs Expr, sense Sense, rhs Expr) Constr {
	diff := lhs.Sub(rhs)
	c := Constr{
		Name:  name,
		Expr:  diff.AddConst(-diff.Constant()),
		Sense: sense,
		RHS:   -diff.Constant(),
	}

	// Normalize -0.
	if c.RHS == 0 {
		c.RHS = 0
	}

	if c.Name == "" {
		c.Name = fmt.Sprintf("c%d", len(m.constrs))
	}

	m.constrs = append(m.constrs, c)

	return c
}

// AddMaxConstr adds the general constraint result == max(args...).
func (m *Model) AddMaxConstr(name string, result Var, args []Var) MaxConstr {
	c := MaxConstr{
		Name:   name,
		Result: result,
		Args:   append([]Var(nil), args...),
	}

	if c.Name == "" {
		c.Name = fmt.Sprintf("g%d", len(m.maxConstrs))
	}

	m.maxConstrs = append(m.maxConstrs, c)

	return c
}

// SetObjective sets the objective.
func (m *Model) SetObjective(e Expr, sense ObjectiveSense) {
	m.objective = e
	m.sense = sense
}

// Objective returns the objective expression and its sense.
func (m *Model) Objective() (Expr, ObjectiveSense) {
	return m.objective, m.sense
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// VarInfo returns the description of v.
func (m *Model) VarInfo(v Var) VarInfo {
	return m.vars[v]
}

// VarName returns the name of v.
func (m *Model) VarName(v Var) string {
	return m.vars[v].Name
}

// Constrs returns the constraints in insertion order.
func (m *Model) Constrs() []Constr {
	return append([]Constr(nil), m.constrs...)
}

// MaxConstrs returns the max constraints in insertion order.
func (m *Model) MaxConstrs() []MaxConstr {
	return append([]MaxConstr(nil), m.maxConstrs...)
}

// A Checkpoint marks the size of a model so that later additions can be
// undone.
type Checkpoint struct {
	vars, constrs, maxConstrs int
}

// Checkpoint returns the current size of the model.
func (m *Model) Checkpoint() Checkpoint {
	return Checkpoint{
		vars:       len(m.vars),
		constrs:    len(m.constrs),
		maxConstrs: len(m.maxConstrs),
	}
}

// Rollback removes every variable and constraint added after cp. The
// objective is left untouched.
func (m *Model) Rollback(cp Checkpoint) {
	m.vars = m.vars[:cp.vars]
	m.constrs = m.constrs[:cp.constrs]
	m.maxConstrs = m.maxConstrs[:cp.maxConstrs]
}

// Violation returns the largest violation of any bound or constraint at x.
func (m *Model) Violation(x []float64) float64 {
	worst := 0.0

	for i, info := range m.vars {
		worst = math.Max(worst, info.LB-x[i])
		worst = math.Max(worst, x[i]-info.UB)
	}

	for _, c := range m.constrs {
		worst = math.Max(worst, c.Violation(x))
	}

	for _, c := range m.maxConstrs {
		worst = math.Max(worst, math.Abs(x[c.Result]-c.Value(x)))
	}

	return worst
}
