package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sarchlab/libra/qp"
)

// A ConstraintStrategy restricts the bandwidth variables.
type ConstraintStrategy interface {
	AddConstraints(c *Context, bw []qp.Var) error
}

// TotalBandwidth fixes the sum of the bandwidths of all dimensions.
type TotalBandwidth struct {
	Total float64
}

// AddConstraints adds sum(bw) == Total.
func (t TotalBandwidth) AddConstraints(c *Context, bw []qp.Var) error {
	if t.Total <= 0 {
		return errorf(t.Total, "total bandwidth should be positive")
	}

	return c.AddConstraint("total_bw", qp.SumVars(bw), qp.Equal, qp.Const(t.Total))
}

// A LinearRow is the constraint sum(Coefficients[d] * bw[d]) (Sense) RHS.
// Missing trailing coefficients are zero.
type LinearRow struct {
	Name         string
	Coefficients []float64
	Sense        qp.Sense
	RHS          float64
}

// LinearConstraints is a list of linear rows over the bandwidths.
type LinearConstraints []LinearRow

// AddConstraints adds every row.
func (rows LinearConstraints) AddConstraints(c *Context, bw []qp.Var) error {
	for i, row := range rows {
		if len(row.Coefficients) > len(bw) {
			return errorf(len(row.Coefficients),
				"constraint %d expects a network with at least this many dimensions, got %d",
				i, len(bw))
		}

		lhs := qp.Sum(lo.Map(row.Coefficients, func(coef float64, d int) qp.Expr {
			return bw[d].Expr().Scale(coef)
		})...)

		name := row.Name
		if name == "" {
			name = fmt.Sprintf("bw_constraint_%d", i)
		}

		if err := c.AddConstraint(name, lhs, row.Sense, qp.Const(row.RHS)); err != nil {
			return err
		}
	}

	return nil
}

// ParseSense translates a relation written as <=, ==, = or >=.
func ParseSense(s string) (qp.Sense, error) {
	switch strings.TrimSpace(s) {
	case "<=":
		return qp.LessEqual, nil
	case "==", "=":
		return qp.Equal, nil
	case ">=":
		return qp.GreaterEqual, nil
	default:
		return 0, errorf(s, "not a valid constraint relation")
	}
}

var constraintPresets = map[string]func() ConstraintStrategy{
	"total_bw_500gbps": func() ConstraintStrategy {
		return TotalBandwidth{Total: 500}
	},
	"multiple_constraints": func() ConstraintStrategy {
		return LinearConstraints{
			{Name: "total_bw", Coefficients: []float64{1, 1, 1, 1}, Sense: qp.Equal, RHS: 1000},
			{Name: "bw_0_fixed", Coefficients: []float64{1}, Sense: qp.Equal, RHS: 500},
			{Name: "bw_0_ge_bw_1", Coefficients: []float64{1, -1}, Sense: qp.GreaterEqual},
			{Name: "bw_1_ge_bw_2", Coefficients: []float64{0, 1, -1}, Sense: qp.GreaterEqual},
			{Name: "bw_2_3_sum", Coefficients: []float64{0, 0, 1, 1}, Sense: qp.Equal, RHS: 200},
		}
	},
}

// ConstraintByName returns a built-in constraint preset.
func ConstraintByName(name string) (ConstraintStrategy, error) {
	create, ok := constraintPresets[strings.TrimSpace(name)]
	if !ok {
		return nil, errorf(name, "not a valid constraint preset, expected one of %v",
			ConstraintNames())
	}

	return create(), nil
}

// ConstraintNames lists the built-in constraint presets.
func ConstraintNames() []string {
	names := lo.Keys(constraintPresets)
	sort.Strings(names)

	return names
}
